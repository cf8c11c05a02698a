package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"qpcrcli/internal/infrastructure"
	"qpcrcli/pkg/contracts/domain"
)

// CSVWriter writes every named table to its own CSV file next to the
// requested path: "<stem>_<table>.csv".
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	return &CSVWriter{logger: infrastructure.WithComponent(logger, "csv_writer")}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Format reports FormatCSV.
func (w *CSVWriter) Format() Format { return FormatCSV }

// Write writes one file per table and returns their paths in table order.
func (w *CSVWriter) Write(path string, tables []domain.NamedTable) ([]string, error) {
	stem := stemOf(path)
	written := make([]string, 0, len(tables))
	for _, t := range tables {
		target := stem + "_" + t.Name + ".csv"
		records := make([][]string, len(t.Rows))
		for i, row := range t.Rows {
			records[i] = formatRow(row)
		}
		if err := w.WriteCSV(target, WriteOptions{Headers: t.Header, Records: records, BOMPrefix: true}); err != nil {
			return written, fmt.Errorf("table %s: %w", t.Name, err)
		}
		written = append(written, target)
	}
	return written, nil
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// Write BOM if requested (helps Excel recognize UTF-8 headers such as ΔCt)
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
