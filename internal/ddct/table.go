package ddct

// Table is one sheet held in memory: a header row of column names and the
// data rows as cell text. Rows may be shorter than the header; missing cells
// read as empty.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the first column with the given name,
// or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the text at (row, col), empty when the row is short.
func (t *Table) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Columns names the five input columns a run needs. The same column may be
// named more than once, e.g. when the sample label also carries the control
// marker.
type Columns struct {
	Control   string `json:"control_column" yaml:"control_column" validate:"required"`
	Reference string `json:"reference_column" yaml:"reference_column" validate:"required"`
	Sample    string `json:"sample_column" yaml:"sample_column" validate:"required"`
	Cq        string `json:"cq_column" yaml:"cq_column" validate:"required"`
	Well      string `json:"well_column" yaml:"well_column" validate:"required"`
}

// DefaultColumns mirrors the plate-reader export the tool was first written
// for, where the gene sits in "Sample" and the biosample label in "Target".
func DefaultColumns() Columns {
	return Columns{
		Control:   "Target",
		Reference: "Sample",
		Sample:    "Target",
		Cq:        "Cq",
		Well:      "Well",
	}
}

// Well is one measurement threaded through the pipeline. Stages never mutate
// a Well in place; they copy it into the slice they return.
type Well struct {
	Label       string
	ControlText string
	Gene        string
	ID          string
	Cq          float64

	Group       string
	Sample      string
	IsControl   bool
	IsReference bool

	DeltaCt      float64
	DeltaDeltaCt float64
	FoldChange   float64
}

type sampleGene struct {
	Sample string
	Gene   string
}
