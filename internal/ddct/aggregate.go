package ddct

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"qpcrcli/pkg/contracts/domain"
)

// WellTable turns computed wells into result rows ordered by
// (Gene, Group, Sample). Ties keep their input order.
func WellTable(wells []Well) []domain.WellResult {
	rows := lo.Map(wells, func(w Well, _ int) domain.WellResult {
		return domain.WellResult{
			Gene:         w.Gene,
			Group:        w.Group,
			Sample:       w.Sample,
			Well:         w.ID,
			Cq:           w.Cq,
			DeltaCt:      w.DeltaCt,
			DeltaDeltaCt: w.DeltaDeltaCt,
			FoldChange:   w.FoldChange,
		}
	})
	slices.SortStableFunc(rows, func(a, b domain.WellResult) int {
		return compareKey(a.Gene, a.Group, a.Sample, b.Gene, b.Group, b.Sample)
	})
	return rows
}

type sampleKey struct {
	Group, Sample, Gene string
}

// SampleTable averages every numeric column over the wells of each
// (Group, Sample, Gene). With excludeReference the reference-gene wells are
// left out, and an empty result is an EmptyResultError.
func SampleTable(wells []Well, excludeReference bool) ([]domain.SampleResult, error) {
	if excludeReference {
		wells = lo.Reject(wells, func(w Well, _ int) bool { return w.IsReference })
		if len(wells) == 0 {
			return nil, &EmptyResultError{}
		}
	}

	groups := lo.GroupBy(wells, func(w Well) sampleKey {
		return sampleKey{Group: w.Group, Sample: w.Sample, Gene: w.Gene}
	})
	keys := lo.Uniq(lo.Map(wells, func(w Well, _ int) sampleKey {
		return sampleKey{Group: w.Group, Sample: w.Sample, Gene: w.Gene}
	}))

	rows := make([]domain.SampleResult, 0, len(keys))
	for _, k := range keys {
		ws := groups[k]
		rows = append(rows, domain.SampleResult{
			Gene:         k.Gene,
			Group:        k.Group,
			Sample:       k.Sample,
			Cq:           mean(cqs(ws)),
			DeltaCt:      mean(deltaCts(ws)),
			DeltaDeltaCt: mean(lo.Map(ws, func(w Well, _ int) float64 { return w.DeltaDeltaCt })),
			FoldChange:   mean(lo.Map(ws, func(w Well, _ int) float64 { return w.FoldChange })),
		})
	}
	slices.SortStableFunc(rows, func(a, b domain.SampleResult) int {
		return compareKey(a.Gene, a.Group, a.Sample, b.Gene, b.Group, b.Sample)
	})
	return rows, nil
}

// OutlierTable lists removed wells ordered by (Gene, Group, Sample, Well).
func OutlierTable(removed []Well) []domain.OutlierWell {
	rows := lo.Map(removed, func(w Well, _ int) domain.OutlierWell {
		return domain.OutlierWell{Group: w.Group, Sample: w.Sample, Gene: w.Gene, Well: w.ID, Cq: w.Cq}
	})
	slices.SortStableFunc(rows, func(a, b domain.OutlierWell) int {
		if c := compareKey(a.Gene, a.Group, a.Sample, b.Gene, b.Group, b.Sample); c != 0 {
			return c
		}
		return cmp.Compare(a.Well, b.Well)
	})
	return rows
}

func compareKey(geneA, groupA, sampleA, geneB, groupB, sampleB string) int {
	if c := cmp.Compare(geneA, geneB); c != 0 {
		return c
	}
	if c := cmp.Compare(groupA, groupB); c != 0 {
		return c
	}
	return cmp.Compare(sampleA, sampleB)
}
