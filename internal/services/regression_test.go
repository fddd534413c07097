package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearModelFitsPerfectLine(t *testing.T) {
	// y = 2*x0 + 3*x1 + 5
	x := [][]float64{
		{1, 1}, {2, 1}, {3, 2}, {4, 3}, {5, 5}, {6, 8},
	}
	y := make([]float64, len(x))
	for i, row := range x {
		y[i] = 2*row[0] + 3*row[1] + 5
	}

	model := NewLinearModel()
	score, err := model.Train(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-6)
	assert.True(t, model.Trained())

	preds := model.Predict([][]float64{{7, 10}})
	require.Len(t, preds, 1)
	assert.InDelta(t, 2*7+3*10+5, preds[0], 1e-6)
}

func TestLinearModelInsufficientRows(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []float64
	}{
		{"empty", nil, nil},
		{"single row", [][]float64{{1}}, []float64{10}},
		{"length mismatch", [][]float64{{1}, {2}}, []float64{10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewLinearModel()
			score, err := model.Train(tt.x, tt.y)
			require.NoError(t, err)
			assert.Equal(t, 0.0, score)
			assert.False(t, model.Trained())
			assert.Nil(t, model.Coefficients())
		})
	}
}

func TestLinearModelUntrainedPredictsZeros(t *testing.T) {
	model := NewLinearModel()
	preds := model.Predict([][]float64{{1, 2}, {3, 4}})
	assert.Equal(t, []float64{0, 0}, preds)
}

func TestLinearModelFloorsNegativePredictions(t *testing.T) {
	// Steeply decreasing series pushes extrapolations below zero.
	x := [][]float64{{1}, {2}, {3}, {4}, {5}}
	y := []float64{50, 40, 30, 20, 10}

	model := NewLinearModel()
	_, err := model.Train(x, y)
	require.NoError(t, err)

	preds := model.Predict([][]float64{{100}})
	require.Len(t, preds, 1)
	assert.Equal(t, 0.0, preds[0])
}

func TestLinearModelScoreClampedForNoisyData(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []float64{3, 90, 1, 88, 5, 92}

	model := NewLinearModel()
	score, err := model.Train(x, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}
