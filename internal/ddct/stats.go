package ddct

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// madScale turns a median absolute deviation into a consistent estimate of
// the standard deviation for normal data.
const madScale = 1.4826

func mean(xs []float64) float64 {
	return stat.Mean(xs, nil)
}

// popStdDev divides by N, not N-1.
func popStdDev(xs []float64) float64 {
	return math.Sqrt(stat.Moment(2, xs, nil))
}

func median(xs []float64) float64 {
	m, err := stats.Median(xs)
	if err != nil {
		return math.NaN()
	}
	return m
}

func medianAbsDev(xs []float64) float64 {
	m, err := stats.MedianAbsoluteDeviation(xs)
	if err != nil {
		return math.NaN()
	}
	return m
}

// quantile interpolates linearly between closest ranks, h = p*(n-1).
// stat.Quantile only offers the empirical and LinInterp-on-CDF variants,
// which put the quartiles elsewhere for small replicate counts.
func quantile(xs []float64, p float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	h := p * float64(n-1)
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}
