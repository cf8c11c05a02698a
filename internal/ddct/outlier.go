package ddct

import (
	"fmt"
	"math"
	"strings"
)

// Method selects the outlier estimator.
type Method int

const (
	MethodMAD Method = iota
	MethodIQR
	MethodZScore
)

var methodNames = map[Method]string{
	MethodMAD:    "mad",
	MethodIQR:    "iqr",
	MethodZScore: "zscore",
}

// String returns the lower-case method name, or Method(n) when unknown.
func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod accepts "mad", "iqr" or "zscore" in any case.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mad":
		return MethodMAD, nil
	case "iqr":
		return MethodIQR, nil
	case "zscore":
		return MethodZScore, nil
	}
	return 0, fmt.Errorf("%w: unknown outlier method %q (want mad, iqr or zscore)", ErrInvalidOptions, name)
}

// MarshalText lets Method travel through YAML and JSON as its name.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a method name as ParseMethod does.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Detector flags the entries of values that are outliers at threshold.
// The returned slice has the same length as values.
type Detector func(values []float64, threshold float64) []bool

// Detector returns the estimator for m.
func (m Method) Detector() Detector {
	switch m {
	case MethodIQR:
		return flagIQR
	case MethodZScore:
		return flagZScore
	default:
		return flagMAD
	}
}

func flagMAD(values []float64, threshold float64) []bool {
	flags := make([]bool, len(values))
	med := median(values)
	spread := madScale * medianAbsDev(values)
	if spread == 0 || math.IsNaN(spread) {
		return flags
	}
	for i, v := range values {
		flags[i] = math.Abs(v-med)/spread > threshold
	}
	return flags
}

func flagIQR(values []float64, threshold float64) []bool {
	flags := make([]bool, len(values))
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	if iqr == 0 || math.IsNaN(iqr) {
		return flags
	}
	lo, hi := q1-threshold*iqr, q3+threshold*iqr
	for i, v := range values {
		flags[i] = v < lo || v > hi
	}
	return flags
}

func flagZScore(values []float64, threshold float64) []bool {
	flags := make([]bool, len(values))
	mu := mean(values)
	sd := popStdDev(values)
	if sd == 0 || math.IsNaN(sd) {
		return flags
	}
	for i, v := range values {
		flags[i] = math.Abs(v-mu)/sd > threshold
	}
	return flags
}

// OutlierFilter removes outlier wells within each (Sample, Gene) partition.
type OutlierFilter struct {
	Method    Method
	Threshold float64
	MinReps   int
}

// Apply splits wells into those kept and those flagged. Both slices keep
// the input order. Partitions smaller than MinReps are kept whole.
func (f OutlierFilter) Apply(wells []Well) (kept, removed []Well) {
	detect := f.Method.Detector()

	partitions := make(map[sampleGene][]int)
	var order []sampleGene
	for i, w := range wells {
		k := sampleGene{Sample: w.Sample, Gene: w.Gene}
		if _, ok := partitions[k]; !ok {
			order = append(order, k)
		}
		partitions[k] = append(partitions[k], i)
	}

	flagged := make([]bool, len(wells))
	for _, k := range order {
		idx := partitions[k]
		if len(idx) < f.MinReps {
			continue
		}
		values := make([]float64, len(idx))
		for j, i := range idx {
			values[j] = wells[i].Cq
		}
		for j, hit := range detect(values, f.Threshold) {
			flagged[idx[j]] = hit
		}
	}

	kept = make([]Well, 0, len(wells))
	for i, w := range wells {
		if flagged[i] {
			removed = append(removed, w)
			continue
		}
		kept = append(kept, w)
	}
	return kept, removed
}
