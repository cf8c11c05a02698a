package domain

import "time"

// WellResult is one surviving well with its derived metrics.
type WellResult struct {
	Gene         string  `json:"gene"`
	Group        string  `json:"group"`
	Sample       string  `json:"sample"`
	Well         string  `json:"well"`
	Cq           float64 `json:"cq"`
	DeltaCt      float64 `json:"delta_ct"`
	DeltaDeltaCt float64 `json:"delta_delta_ct"`
	FoldChange   float64 `json:"fold_change"`
}

// SampleResult is the mean of the surviving wells of one (Group, Sample, Gene).
type SampleResult struct {
	Gene         string  `json:"gene"`
	Group        string  `json:"group"`
	Sample       string  `json:"sample"`
	Cq           float64 `json:"cq"`
	DeltaCt      float64 `json:"delta_ct"`
	DeltaDeltaCt float64 `json:"delta_delta_ct"`
	FoldChange   float64 `json:"fold_change"`
}

// OutlierWell is a well removed by the outlier filter, kept for auditing.
type OutlierWell struct {
	Group  string  `json:"group"`
	Sample string  `json:"sample"`
	Gene   string  `json:"gene"`
	Well   string  `json:"well"`
	Cq     float64 `json:"cq"`
}

// Sheet names of the output workbook
const (
	SheetWell     = "well"
	SheetSample   = "sample"
	SheetOutliers = "outliers"
)

// Column headers of the output sheets
var (
	WellHeader    = []string{"Gene", "Group", "Sample", "Well", "Cq", "ΔCt", "ΔΔCt", "Fold Change"}
	SampleHeader  = []string{"Gene", "Group", "Sample", "Cq", "ΔCt", "ΔΔCt", "Fold Change"}
	OutlierHeader = []string{"Group", "Sample", "Gene", "Well", "Cq"}
)

// NamedTable is a result table on its way to the I/O boundary. Each one
// becomes a sheet (or file) named after Name.
type NamedTable struct {
	Name   string
	Header []string
	Rows   [][]any
}

// AnalysisReport summarises one finished run
type AnalysisReport struct {
	RunID           string        `json:"run_id" validate:"required,uuid"`
	InputPath       string        `json:"input_path,omitempty"`
	OutputPath      string        `json:"output_path,omitempty"`
	RowsRead        int           `json:"rows_read"`
	RowsDropped     int           `json:"rows_dropped"`
	WellCount       int           `json:"well_count"`
	SampleCount     int           `json:"sample_count"`
	OutliersRemoved int           `json:"outliers_removed"`
	Duration        time.Duration `json:"duration"`
	CompletedAt     time.Time     `json:"completed_at"`
}
