package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"qpcrcli/internal/ddct"
)

var (
	// ErrSheetNotFound is returned when the selector names no sheet of the workbook.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrUnsupportedFormat is returned for inputs that are neither workbooks nor CSV.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrEmptySheet is returned when the sheet has no header row.
	ErrEmptySheet = errors.New("sheet has no header row")
)

// SheetSelector picks a worksheet by name, or by zero-based index when Name
// is empty.
type SheetSelector struct {
	Index int
	Name  string
}

// ParseSheetSelector reads a sheet selector typed by a user: blank or "0"
// is the first sheet, digits are an index, anything else is a sheet name.
func ParseSheetSelector(s string) SheetSelector {
	s = strings.TrimSpace(s)
	if s == "" {
		return SheetSelector{}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && isDigits(s) {
		return SheetSelector{Index: n}
	}
	return SheetSelector{Name: s}
}

func (s SheetSelector) String() string {
	if s.Name != "" {
		return strconv.Quote(s.Name)
	}
	return "#" + strconv.Itoa(s.Index)
}

// ReadTable loads one sheet of an .xlsx/.xlsm workbook, or a .csv file,
// into a table whose first row supplies the column names.
func ReadTable(path string, sel SheetSelector) (*ddct.Table, error) {
	switch formatOf(path) {
	case formatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return readCSV(f)
	case formatWorkbook:
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer f.Close()
		return readSheet(f, sel)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// ReadTableFrom is ReadTable for uploaded content; name only decides the
// format.
func ReadTableFrom(r io.Reader, name string, sel SheetSelector) (*ddct.Table, error) {
	switch formatOf(name) {
	case formatCSV:
		return readCSV(r)
	case formatWorkbook:
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer f.Close()
		return readSheet(f, sel)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
}

func readSheet(f *excelize.File, sel SheetSelector) (*ddct.Table, error) {
	sheets := f.GetSheetList()
	name := sel.Name
	if name == "" {
		if sel.Index < 0 || sel.Index >= len(sheets) {
			return nil, fmt.Errorf("%w: index %d, workbook has %d sheet(s)", ErrSheetNotFound, sel.Index, len(sheets))
		}
		name = sheets[sel.Index]
	} else if idx, _ := f.GetSheetIndex(name); idx < 0 {
		return nil, fmt.Errorf("%w: %q, available: %s", ErrSheetNotFound, name, strings.Join(sheets, ", "))
	}

	// Raw values keep the full precision of Cq cells whatever their number format.
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	return tableFromRows(rows)
}

func readCSV(r io.Reader) (*ddct.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	// Excel writes a BOM in front of UTF-8 CSV
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return tableFromRows(rows)
}

func tableFromRows(rows [][]string) (*ddct.Table, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.TrimSpace(c)
	}
	return &ddct.Table{Columns: header, Rows: rows[1:]}, nil
}

type inputFormat int

const (
	formatUnknown inputFormat = iota
	formatWorkbook
	formatCSV
)

func formatOf(name string) inputFormat {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return formatWorkbook
	case ".csv":
		return formatCSV
	}
	return formatUnknown
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
