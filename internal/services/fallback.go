package services

import (
	"gonum.org/v1/gonum/stat"
)

// MovingAverage is the deterministic moving-average model: the mean of the
// final window observations, repeated for every future step. The pipeline
// degrades through LinearTrend; this model is a secondary utility.
type MovingAverage struct {
	Window int
}

// NewMovingAverage creates a moving-average model; non-positive windows use
// the default of 7.
func NewMovingAverage(window int) *MovingAverage {
	if window <= 0 {
		window = 7
	}
	return &MovingAverage{Window: window}
}

// Predict repeats the trailing-window mean for the requested steps, falling
// back to the overall mean when fewer than Window points exist.
func (m *MovingAverage) Predict(data []float64, steps int) []float64 {
	var avg float64
	switch {
	case len(data) == 0:
		avg = 0
	case len(data) < m.Window:
		avg = stat.Mean(data, nil)
	default:
		avg = stat.Mean(data[len(data)-m.Window:], nil)
	}

	out := make([]float64, steps)
	for i := range out {
		out[i] = avg
	}
	return out
}

// LinearTrend is the deterministic trend-extrapolation fallback model: an
// ordinary least squares line over the observation index, projected forward.
type LinearTrend struct{}

// NewLinearTrend creates a linear trend model.
func NewLinearTrend() *LinearTrend {
	return &LinearTrend{}
}

// Predict projects the fitted line steps points past the series end, floored
// at 0. With fewer than two observations the last known value (or 0) is
// repeated.
func (t *LinearTrend) Predict(data []float64, steps int) []float64 {
	out := make([]float64, steps)

	if len(data) < 2 {
		last := 0.0
		if len(data) == 1 {
			last = data[0]
		}
		for i := range out {
			out[i] = last
		}
		return out
	}

	x := make([]float64, len(data))
	for i := range x {
		x[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(x, data, nil, false)

	for i := range out {
		v := slope*float64(len(data)+i) + intercept
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}
