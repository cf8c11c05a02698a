package exporter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Format is an output format of the result tables.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" or "csv"; blank means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown output format %q (want xlsx or csv)", s)
}

// DefaultOutputPath places the result next to the input, suffixed "_ddct":
// "/data/run.xlsx" becomes "/data/run_ddct.xlsx". For CSV the returned path
// is the stem each table file is derived from.
func DefaultOutputPath(input string, format Format) string {
	return stemOf(input) + "_ddct." + string(format)
}

func stemOf(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// formatFloat keeps the shortest representation that round-trips, so CSV
// output loses no precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case float64:
			out[i] = formatFloat(x)
		case string:
			out[i] = x
		case nil:
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
