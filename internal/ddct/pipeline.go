package ddct

import (
	"fmt"

	"qpcrcli/pkg/contracts/domain"
)

// RunStats counts what happened to the input rows.
type RunStats struct {
	RowsRead        int `json:"rows_read"`
	RowsDropped     int `json:"rows_dropped"`
	ControlWells    int `json:"control_wells"`
	ReferenceWells  int `json:"reference_wells"`
	OutliersRemoved int `json:"outliers_removed"`
}

// Result holds the result tables of one run. Outliers is nil unless
// recording was on and at least one well was removed.
type Result struct {
	Wells    []domain.WellResult
	Samples  []domain.SampleResult
	Outliers []domain.OutlierWell
	Stats    RunStats
}

// Run executes the whole pipeline over t. It either returns every table or
// an error; there are no partial results.
func Run(t *Table, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	classifier, err := opts.Classifier()
	if err != nil {
		return nil, err
	}

	loaded, err := Load(t, opts.Columns)
	if err != nil {
		return nil, err
	}
	stats := RunStats{RowsRead: len(t.Rows), RowsDropped: len(t.Rows) - len(loaded)}

	wells, err := classifier.Classify(loaded)
	if err != nil {
		return nil, err
	}

	var removed []Well
	if f := opts.Filter(); f != nil {
		wells, removed = f.Apply(wells)
	}
	stats.OutliersRemoved = len(removed)
	for _, w := range wells {
		if w.IsControl {
			stats.ControlWells++
		}
		if w.IsReference {
			stats.ReferenceWells++
		}
	}

	computed, err := Compute(wells)
	if err != nil {
		return nil, err
	}
	samples, err := SampleTable(computed, opts.ExcludeReferenceInSamples)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Wells:   WellTable(computed),
		Samples: samples,
		Stats:   stats,
	}
	if opts.RecordOutliers && len(removed) > 0 {
		res.Outliers = OutlierTable(removed)
	}
	return res, nil
}

// Tables converts the result into named tables for the writers: "well",
// "sample" and "outliers" when present.
func (r *Result) Tables() []domain.NamedTable {
	well := domain.NamedTable{Name: domain.SheetWell, Header: domain.WellHeader}
	for _, w := range r.Wells {
		well.Rows = append(well.Rows, []any{w.Gene, w.Group, w.Sample, w.Well, w.Cq, w.DeltaCt, w.DeltaDeltaCt, w.FoldChange})
	}
	sample := domain.NamedTable{Name: domain.SheetSample, Header: domain.SampleHeader}
	for _, s := range r.Samples {
		sample.Rows = append(sample.Rows, []any{s.Gene, s.Group, s.Sample, s.Cq, s.DeltaCt, s.DeltaDeltaCt, s.FoldChange})
	}
	tables := []domain.NamedTable{well, sample}
	if len(r.Outliers) > 0 {
		out := domain.NamedTable{Name: domain.SheetOutliers, Header: domain.OutlierHeader}
		for _, o := range r.Outliers {
			out.Rows = append(out.Rows, []any{o.Group, o.Sample, o.Gene, o.Well, o.Cq})
		}
		tables = append(tables, out)
	}
	return tables
}

// String formats the counts for log lines.
func (s RunStats) String() string {
	return fmt.Sprintf("read=%d dropped=%d control=%d reference=%d outliers=%d",
		s.RowsRead, s.RowsDropped, s.ControlWells, s.ReferenceWells, s.OutliersRemoved)
}
