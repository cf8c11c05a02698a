package dataprocessing

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writePlate saves a two-sheet workbook: a cover sheet and "Results" with
// the plate data.
func writePlate(t *testing.T, dir string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Cover"))
	require.NoError(t, f.SetCellValue("Cover", "A1", "Run 42"))

	_, err := f.NewSheet("Results")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Results", "A1", &[]any{"Well", "Sample", "Target", "Cq"}))
	require.NoError(t, f.SetSheetRow("Results", "A2", &[]any{"A1", "ACTB", "CTR-1", 18.257}))
	require.NoError(t, f.SetSheetRow("Results", "A3", &[]any{"A2", "GeneX", "CTR-1", "Undetermined"}))

	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Results", "D2", "D2", style))

	path := filepath.Join(dir, "plate.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseSheetSelector(t *testing.T) {
	tests := []struct {
		in   string
		want SheetSelector
	}{
		{"", SheetSelector{}},
		{"  ", SheetSelector{}},
		{"0", SheetSelector{}},
		{"2", SheetSelector{Index: 2}},
		{"Results", SheetSelector{Name: "Results"}},
		{"-1", SheetSelector{Name: "-1"}},
		{"+3", SheetSelector{Name: "+3"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSheetSelector(tt.in))
		})
	}
}

func TestReadTableWorkbook(t *testing.T) {
	path := writePlate(t, t.TempDir())

	tbl, err := ReadTable(path, SheetSelector{Name: "Results"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Well", "Sample", "Target", "Cq"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "18.257", tbl.Rows[0][3])
	assert.Equal(t, "Undetermined", tbl.Rows[1][3])

	byIndex, err := ReadTable(path, SheetSelector{Index: 1})
	require.NoError(t, err)
	assert.Equal(t, tbl, byIndex)

	cover, err := ReadTable(path, SheetSelector{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Run 42"}, cover.Columns)
	assert.Empty(t, cover.Rows)
}

func TestReadTableSheetNotFound(t *testing.T) {
	path := writePlate(t, t.TempDir())

	_, err := ReadTable(path, SheetSelector{Name: "Missing"})
	assert.True(t, errors.Is(err, ErrSheetNotFound))
	assert.Contains(t, err.Error(), "Results")

	_, err = ReadTable(path, SheetSelector{Index: 5})
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}

func TestReadTableFromUpload(t *testing.T) {
	data, err := os.ReadFile(writePlate(t, t.TempDir()))
	require.NoError(t, err)

	tbl, err := ReadTableFrom(bytes.NewReader(data), "upload.XLSX", SheetSelector{Index: 1})
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 2)
}

func TestReadTableCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plate.csv")
	content := "\ufeffWell, Sample ,Target,Cq\nA1,ACTB,CTR-1,18.2\nA2,GeneX,CTR-1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := ReadTable(path, SheetSelector{Name: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Well", "Sample", "Target", "Cq"}, tbl.Columns)
	assert.Equal(t, [][]string{{"A1", "ACTB", "CTR-1", "18.2"}, {"A2", "GeneX", "CTR-1"}}, tbl.Rows)
}

func TestReadTableUnsupported(t *testing.T) {
	_, err := ReadTable("plate.xls", SheetSelector{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = ReadTableFrom(bytes.NewReader(nil), "plate.txt", SheetSelector{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestReadTableEmptyCSV(t *testing.T) {
	_, err := ReadTableFrom(bytes.NewReader(nil), "empty.csv", SheetSelector{})
	assert.True(t, errors.Is(err, ErrEmptySheet))
}
