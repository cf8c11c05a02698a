package ddct

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// plate builds a table in the instrument layout: gene in "Sample", biosample
// label in "Target".
func plate(rows ...[]string) *Table {
	return &Table{Columns: []string{"Well", "Sample", "Target", "Cq"}, Rows: rows}
}

func row(well, gene, label string, cq float64) []string {
	return []string{well, gene, label, strconv.FormatFloat(cq, 'f', -1, 64)}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ControlPattern = "^CTR"
	opts.ReferencePattern = "ACTB"
	return opts
}

func wellsOf(sample, gene string, cqs ...float64) []Well {
	ws := make([]Well, len(cqs))
	for i, cq := range cqs {
		ws[i] = Well{Sample: sample, Gene: gene, Cq: cq, ID: "W" + strconv.Itoa(i)}
	}
	return ws
}

func findWell(t *testing.T, res *Result, sample, gene string) []float64 {
	t.Helper()
	for _, w := range res.Wells {
		if w.Sample == sample && w.Gene == gene {
			return []float64{w.DeltaCt, w.DeltaDeltaCt, w.FoldChange}
		}
	}
	require.Failf(t, "well not found", "%s/%s", sample, gene)
	return nil
}
