package ddct

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Each typed error below matches exactly one of them.
var (
	ErrInvalidOptions         = errors.New("invalid analysis options")
	ErrSchema                 = errors.New("missing required columns")
	ErrNoControlMatch         = errors.New("no control rows matched")
	ErrMissingReference       = errors.New("reference-gene mean missing")
	ErrMissingControlBaseline = errors.New("control baseline missing")
	ErrEmptyResult            = errors.New("empty sample result")
)

// SchemaError reports configured columns absent from the input table.
type SchemaError struct {
	Missing []string
	Present []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column(s): %s. Present columns: %s",
		quoteList(e.Missing), quoteList(e.Present))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// NoControlMatchError is returned when the control pattern matched no row.
// Most of the time the pattern is fine and the column is wrong.
type NoControlMatchError struct {
	Pattern string
	Column  string
}

func (e *NoControlMatchError) Error() string {
	return fmt.Sprintf("no control rows matched pattern %q in column %q. "+
		"Check the control pattern and control column. If your layout is conventional "+
		"(Sample = biosample like 'CTR-1', Target = gene), use control column 'Sample', "+
		"reference column 'Target' and sample column 'Sample'",
		e.Pattern, e.Column)
}

func (e *NoControlMatchError) Is(target error) bool { return target == ErrNoControlMatch }

// MissingReferenceError lists samples without any reference-gene well.
type MissingReferenceError struct {
	Samples []string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("reference-gene Cq mean not found for some samples; "+
		"ensure each sample has at least one reference-gene well. Affected samples: %s",
		quoteList(e.Samples))
}

func (e *MissingReferenceError) Is(target error) bool { return target == ErrMissingReference }

// MissingControlBaselineError lists genes that have no control-group well.
type MissingControlBaselineError struct {
	Genes []string
}

func (e *MissingControlBaselineError) Error() string {
	return fmt.Sprintf("no control-group rows found for some gene(s); "+
		"add control wells or adjust the control pattern/column. Affected genes: %s",
		quoteList(e.Genes))
}

func (e *MissingControlBaselineError) Is(target error) bool {
	return target == ErrMissingControlBaseline
}

// EmptyResultError is returned when excluding reference-gene rows leaves
// nothing to average for the sample table.
type EmptyResultError struct{}

func (e *EmptyResultError) Error() string {
	return "no target-gene rows available for sample means; " +
		"either the input only contains the reference gene or the reference pattern matched everything"
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
