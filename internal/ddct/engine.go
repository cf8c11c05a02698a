package ddct

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// ReferenceMeans returns the mean Cq of the reference-gene wells of each
// sample.
func ReferenceMeans(wells []Well) map[string]float64 {
	refs := lo.Filter(wells, func(w Well, _ int) bool { return w.IsReference })
	groups := lo.GroupBy(refs, func(w Well) string { return w.Sample })
	return lo.MapValues(groups, func(ws []Well, _ string) float64 {
		return mean(cqs(ws))
	})
}

// ComputeDeltaCt subtracts each sample's reference mean from its wells.
// Every sample must have at least one reference-gene well.
func ComputeDeltaCt(wells []Well) ([]Well, error) {
	refMean := ReferenceMeans(wells)

	var missing []string
	out := make([]Well, len(wells))
	for i, w := range wells {
		m, ok := refMean[w.Sample]
		if !ok {
			missing = append(missing, w.Sample)
			continue
		}
		w.DeltaCt = w.Cq - m
		out[i] = w
	}
	if len(missing) > 0 {
		return nil, &MissingReferenceError{Samples: sortedUniq(missing)}
	}
	return out, nil
}

// ControlBaselines averages control ΔCt per (Sample, Gene) first and then
// per Gene, so every control sample weighs the same whatever its number of
// replicates.
func ControlBaselines(wells []Well) map[string]float64 {
	controls := lo.Filter(wells, func(w Well, _ int) bool { return w.IsControl })
	perSample := lo.GroupBy(controls, func(w Well) sampleGene {
		return sampleGene{Sample: w.Sample, Gene: w.Gene}
	})

	sampleMeans := make(map[string][]float64)
	for k, ws := range perSample {
		sampleMeans[k.Gene] = append(sampleMeans[k.Gene], mean(deltaCts(ws)))
	}
	return lo.MapValues(sampleMeans, func(ms []float64, _ string) float64 {
		// sorted so the sum does not depend on map order
		sort.Float64s(ms)
		return mean(ms)
	})
}

// ApplyBaselines derives ΔΔCt and Fold Change from ΔCt. Every gene must
// have a baseline.
func ApplyBaselines(wells []Well, baselines map[string]float64) ([]Well, error) {
	var missing []string
	out := make([]Well, len(wells))
	for i, w := range wells {
		b, ok := baselines[w.Gene]
		if !ok {
			missing = append(missing, w.Gene)
			continue
		}
		w.DeltaDeltaCt = w.DeltaCt - b
		w.FoldChange = math.Exp2(-w.DeltaDeltaCt)
		out[i] = w
	}
	if len(missing) > 0 {
		return nil, &MissingControlBaselineError{Genes: sortedUniq(missing)}
	}
	return out, nil
}

// Compute runs ΔCt, the control baseline and ΔΔCt over classified,
// filtered wells.
func Compute(wells []Well) ([]Well, error) {
	withDelta, err := ComputeDeltaCt(wells)
	if err != nil {
		return nil, err
	}
	return ApplyBaselines(withDelta, ControlBaselines(withDelta))
}

func cqs(ws []Well) []float64 {
	return lo.Map(ws, func(w Well, _ int) float64 { return w.Cq })
}

func deltaCts(ws []Well) []float64 {
	return lo.Map(ws, func(w Well, _ int) float64 { return w.DeltaCt })
}

func sortedUniq(xs []string) []string {
	u := lo.Uniq(xs)
	sort.Strings(u)
	return u
}
