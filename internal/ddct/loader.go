package ddct

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Load checks that every configured column exists and converts the table
// into wells. Rows whose Cq is empty, non-numeric or not finite are dropped.
func Load(t *Table, cols Columns) ([]Well, error) {
	required := lo.Uniq([]string{cols.Control, cols.Reference, cols.Sample, cols.Cq, cols.Well})

	var missing []string
	for _, name := range required {
		if t.ColumnIndex(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		present := append([]string(nil), t.Columns...)
		sort.Strings(present)
		return nil, &SchemaError{Missing: missing, Present: present}
	}

	var (
		controlIdx = t.ColumnIndex(cols.Control)
		refIdx     = t.ColumnIndex(cols.Reference)
		sampleIdx  = t.ColumnIndex(cols.Sample)
		cqIdx      = t.ColumnIndex(cols.Cq)
		wellIdx    = t.ColumnIndex(cols.Well)
	)

	wells := make([]Well, 0, len(t.Rows))
	for i := range t.Rows {
		cq, ok := ParseCq(t.Cell(i, cqIdx))
		if !ok {
			continue
		}
		wells = append(wells, Well{
			Label:       t.Cell(i, sampleIdx),
			ControlText: t.Cell(i, controlIdx),
			Gene:        t.Cell(i, refIdx),
			ID:          t.Cell(i, wellIdx),
			Cq:          cq,
		})
	}
	return wells, nil
}

// ParseCq converts a Cq cell to a number. Instrument placeholders such as
// "Undetermined" or "N/A" are reported as missing.
func ParseCq(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
