package profiling

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the descriptive statistics of a numeric column.
// Fields are NaN when they cannot be computed.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Summarize computes descriptive statistics over data, which must hold no NaNs.
// The standard deviation is the sample one (n-1) and needs two values.
func Summarize(data []float64) Summary {
	nan := math.NaN()
	s := Summary{Count: len(data), Mean: nan, StdDev: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan}
	if len(data) == 0 {
		return s
	}

	mean, std := stat.MeanStdDev(data, nil)
	s.Mean = mean
	if len(data) > 1 {
		s.StdDev = std
	}

	min, err := stats.Min(data)
	if err == nil {
		s.Min = min
	}
	max, err := stats.Max(data)
	if err == nil {
		s.Max = max
	}
	median, err := stats.Median(data)
	if err == nil {
		s.Median = median
	}

	sorted := sortedCopy(data)
	s.Q25 = Quantile(sorted, 0.25)
	s.Q75 = Quantile(sorted, 0.75)
	return s
}

// Quantile returns the p-quantile of an ascending slice using linear
// interpolation between closest ranks: h = (n-1)p, q = x[⌊h⌋] + (h-⌊h⌋)(x[⌊h⌋+1]-x[⌊h⌋]).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || p < 0 || p > 1 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Quantiles sorts a copy of data once and evaluates each p.
func Quantiles(data []float64, ps ...float64) []float64 {
	sorted := sortedCopy(data)
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = Quantile(sorted, p)
	}
	return out
}

// IQRBounds returns the closed acceptance interval [Q1-k·IQR, Q3+k·IQR].
// ok is false when data is empty.
func IQRBounds(data []float64, k float64) (lower, upper float64, ok bool) {
	if len(data) == 0 {
		return math.NaN(), math.NaN(), false
	}
	q := Quantiles(data, 0.25, 0.75)
	iqr := q[1] - q[0]
	return q[0] - k*iqr, q[1] + k*iqr, true
}

// DetectOutliers counts the values outside the IQR bounds.
func DetectOutliers(data []float64, k float64) int {
	lower, upper, ok := IQRBounds(data, k)
	if !ok {
		return 0
	}
	outlierCount := 0
	for _, x := range data {
		if x < lower || x > upper {
			outlierCount++
		}
	}
	return outlierCount
}

// BinEdges returns n+1 evenly spaced histogram edges covering data. The
// highest edge sits just above the maximum so that left-closed [lo, hi)
// bins include it.
func BinEdges(data []float64, n int) []float64 {
	if len(data) == 0 || n < 1 {
		return nil
	}
	lo := floats.Min(data)
	hi := floats.Max(data)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	pad := (hi - lo) * 0.001
	return floats.Span(make([]float64, n+1), lo, hi+pad)
}

// SturgesBins picks a histogram bin count from the sample size.
func SturgesBins(n int) int {
	if n < 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

func sortedCopy(data []float64) []float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return sorted
}
