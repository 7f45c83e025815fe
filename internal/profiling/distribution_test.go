package profiling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_LinearInterpolation(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2})

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487358056, s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.InDelta(t, 1.75, s.Q25, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, 3.25, s.Q75, 1e-12)
	assert.Equal(t, 4.0, s.Max)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 0, s.Count)
	for _, v := range []float64{s.Mean, s.StdDev, s.Min, s.Q25, s.Median, s.Q75, s.Max} {
		assert.True(t, math.IsNaN(v))
	}
}

func TestSummarize_SingleValueHasNoStdDev(t *testing.T) {
	s := Summarize([]float64{7})

	assert.Equal(t, 7.0, s.Mean)
	assert.True(t, math.IsNaN(s.StdDev))
	assert.Equal(t, 7.0, s.Q25)
	assert.Equal(t, 7.0, s.Q75)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 10}, {0.1, 14}, {0.25, 20}, {0.5, 30}, {0.9, 46}, {1, 50},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, Quantile(sorted, c.p), 1e-12, "p=%v", c.p)
	}
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.True(t, math.IsNaN(Quantile(sorted, 1.5)))
}

func TestIQRBounds(t *testing.T) {
	data := []float64{1, 2, 3, 4, 100}

	lower, upper, ok := IQRBounds(data, 1.5)
	require.True(t, ok)
	// Q1=2, Q3=4, IQR=2
	assert.InDelta(t, -1, lower, 1e-12)
	assert.InDelta(t, 7, upper, 1e-12)
	assert.Equal(t, 1, DetectOutliers(data, 1.5))

	_, _, ok = IQRBounds(nil, 3)
	assert.False(t, ok)
}

func TestBinEdges(t *testing.T) {
	edges := BinEdges([]float64{0, 5, 10}, 2)

	require.Len(t, edges, 3)
	assert.Equal(t, 0.0, edges[0])
	assert.Greater(t, edges[2], 10.0)

	flat := BinEdges([]float64{3, 3}, 1)
	require.Len(t, flat, 2)
	assert.Less(t, flat[0], 3.0)
	assert.Greater(t, flat[1], 3.0)

	assert.Nil(t, BinEdges(nil, 4))
	assert.Equal(t, 8, SturgesBins(100))
}
