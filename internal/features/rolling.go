package features

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"gonum.org/v1/gonum/stat"
)

// rollingMean computes a trailing simple moving average over the given
// window. The steady state comes from the indicator pipeline; the first
// window-1 entries use an expanding window so short series still produce
// defined values.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || window <= 0 {
		return out
	}

	prefix := window - 1
	if prefix > len(values) {
		prefix = len(values)
	}
	for i := 0; i < prefix; i++ {
		out[i] = stat.Mean(values[:i+1], nil)
	}

	if len(values) >= window {
		sma := trend.NewSmaWithPeriod[float64](window)
		tail := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
		copy(out[window-1:], tail)
	}

	return out
}

// rollingStd computes a trailing sample standard deviation over the given
// window, expanding at the series start. A single observation has no sample
// deviation and yields 0.
func rollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		if i-start < 1 {
			out[i] = 0
			continue
		}
		out[i] = stat.StdDev(values[start:i+1], nil)
	}
	return out
}

// lag shifts values forward by offset rows; the leading rows are NaN.
func lag(values []float64, offset int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < offset {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i-offset]
	}
	return out
}

// diff computes the first difference; the first row is NaN.
func diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}
