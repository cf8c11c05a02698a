package exporter

import (
	"fmt"
	"log/slog"

	"qpcrcli/pkg/contracts/domain"
)

// Writer persists result tables. Write returns every file it created.
type Writer interface {
	Format() Format
	Write(path string, tables []domain.NamedTable) ([]string, error)
}

// NewWriter returns the writer for format.
func NewWriter(format Format, logger *slog.Logger) (Writer, error) {
	switch format {
	case FormatXLSX, "":
		return NewWorkbookWriter(logger), nil
	case FormatCSV:
		return NewCSVWriter(logger), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
