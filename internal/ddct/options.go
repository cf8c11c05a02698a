package ddct

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Options configures one run. Every field except the two patterns has a
// usable default in DefaultOptions.
type Options struct {
	ControlPattern   string `json:"control_pattern" yaml:"control_pattern"`
	ReferencePattern string `json:"reference_pattern" yaml:"reference_pattern"`

	Columns Columns `json:"columns" yaml:"columns"`

	CaseSensitive             bool `json:"case_sensitive" yaml:"case_sensitive"`
	ExcludeReferenceInSamples bool `json:"exclude_reference_in_samples" yaml:"exclude_reference_in_samples"`

	OutlierFilter    bool    `json:"outlier_filter" yaml:"outlier_filter"`
	OutlierMethod    Method  `json:"outlier_method" yaml:"outlier_method"`
	OutlierThreshold float64 `json:"outlier_threshold" yaml:"outlier_threshold" validate:"gte=0"`
	MinReps          int     `json:"min_reps" yaml:"min_reps" validate:"min=1"`
	RecordOutliers   bool    `json:"record_outliers" yaml:"record_outliers"`

	// ControlMatcher and ReferenceMatcher replace the patterns when set.
	ControlMatcher   Matcher `json:"-" yaml:"-"`
	ReferenceMatcher Matcher `json:"-" yaml:"-"`
}

// DefaultOptions returns the defaults with empty patterns.
func DefaultOptions() Options {
	return Options{
		Columns:          DefaultColumns(),
		OutlierFilter:    true,
		OutlierMethod:    MethodMAD,
		OutlierThreshold: 3.0,
		MinReps:          3,
		RecordOutliers:   true,
	}
}

var validate = validator.New()

// Validate checks field constraints and that both roles have a matcher.
func (o Options) Validate() error {
	return o.check(true)
}

// ValidateDefaults checks field constraints only. Defaults loaded from
// configuration may leave the patterns to each run.
func (o Options) ValidateDefaults() error {
	return o.check(false)
}

func (o Options) check(needPatterns bool) error {
	var problems []string
	if err := validate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	if needPatterns && o.ControlMatcher == nil && strings.TrimSpace(o.ControlPattern) == "" {
		problems = append(problems, "control pattern is required")
	}
	if needPatterns && o.ReferenceMatcher == nil && strings.TrimSpace(o.ReferencePattern) == "" {
		problems = append(problems, "reference pattern is required")
	}
	if _, ok := methodNames[o.OutlierMethod]; !ok {
		problems = append(problems, fmt.Sprintf("unknown outlier method %s", o.OutlierMethod))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(problems, "; "))
	}
	return nil
}

// Classifier builds the classifier for o, compiling the patterns unless a
// matcher override is set.
func (o Options) Classifier() (Classifier, error) {
	control := o.ControlMatcher
	if control == nil {
		m, err := NewRegexMatcher(o.ControlPattern, o.CaseSensitive)
		if err != nil {
			return Classifier{}, err
		}
		control = m
	}
	reference := o.ReferenceMatcher
	if reference == nil {
		m, err := NewRegexMatcher(o.ReferencePattern, o.CaseSensitive)
		if err != nil {
			return Classifier{}, err
		}
		reference = m
	}
	return Classifier{Control: control, Reference: reference, ControlColumn: o.Columns.Control}, nil
}

// Filter returns the outlier filter for o, or nil when filtering is off.
func (o Options) Filter() *OutlierFilter {
	if !o.OutlierFilter {
		return nil
	}
	return &OutlierFilter{Method: o.OutlierMethod, Threshold: o.OutlierThreshold, MinReps: o.MinReps}
}
