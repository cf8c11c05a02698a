package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"qpcrcli/internal/infrastructure"
	"qpcrcli/pkg/contracts/domain"
)

// WorkbookWriter writes named tables to the sheets of one .xlsx workbook.
type WorkbookWriter struct {
	logger *slog.Logger
}

func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	return &WorkbookWriter{logger: infrastructure.WithComponent(logger, "workbook_writer")}
}

// Format reports FormatXLSX.
func (w *WorkbookWriter) Format() Format { return FormatXLSX }

// Write saves the workbook at path. The file appears only once it is
// complete; a failed write leaves no file behind.
func (w *WorkbookWriter) Write(path string, tables []domain.NamedTable) ([]string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ddct-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := w.WriteTo(tmp, tables); err != nil {
		tmp.Close()
		return nil, err
	}
	// CreateTemp opens the file 0600
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to set workbook permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("failed to move workbook into place: %w", err)
	}

	w.logger.Info("Workbook written", slog.String("path", path), slog.Int("sheets", len(tables)))
	return []string{path}, nil
}

// WriteTo streams the workbook to out.
func (w *WorkbookWriter) WriteTo(out io.Writer, tables []domain.NamedTable) error {
	f, err := buildWorkbook(tables)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(tables []domain.NamedTable) (*excelize.File, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to write")
	}
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, t domain.NamedTable, headerStyle int) error {
	sw, err := f.NewStreamWriter(t.Name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", t.Name, err)
	}

	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", t.Name, err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, t.Name, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %s: %w", t.Name, err)
	}
	return nil
}
