package testutil

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// PlateHeader is the column layout of the instrument export used across
// tests: gene in "Sample", biosample label in "Target".
var PlateHeader = []any{"Well", "Sample", "Target", "Cq"}

// MinimalPlate is the smallest plate with a control, a treated sample and
// one target gene. MT-1/GeneX ends at ΔΔCt 1.5.
func MinimalPlate() [][]any {
	return [][]any{
		{"A1", "ACTB", "CTR-1", 18.0},
		{"A2", "GeneX", "CTR-1", 22.0},
		{"B1", "ACTB", "MT-1", 18.5},
		{"B2", "GeneX", "MT-1", 24.0},
	}
}

// WritePlateWorkbook saves rows under PlateHeader to a single-sheet workbook
// in dir and returns its path.
func WritePlateWorkbook(t *testing.T, dir, name, sheet string, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	header := append([]any(nil), PlateHeader...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := append([]any(nil), r...)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}
