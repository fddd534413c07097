package services

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/helios-bi/foresight-go/internal/utils"
)

// LinearModel is the primary trainable model: ordinary least squares over
// the full feature matrix. A fresh value is constructed inside every
// pipeline run; nothing is shared or reused across requests.
type LinearModel struct {
	intercept float64
	coef      []float64
	trained   bool
}

// NewLinearModel creates an untrained linear model.
func NewLinearModel() *LinearModel {
	return &LinearModel{}
}

// Train fits the model on the feature matrix and target vector and returns
// the coefficient of determination clamped to [0, 1]. Fewer than two rows
// leaves the model untrained with score 0. A singular design matrix is
// reported as a ModelFailureError.
func (m *LinearModel) Train(x [][]float64, y []float64) (float64, error) {
	if len(x) < 2 || len(x) != len(y) {
		return 0, nil
	}

	cols := len(x[0])
	design := mat.NewDense(len(x), cols+1, nil)
	for i, row := range x {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, mat.NewVecDense(len(y), y)); err != nil {
		// An ill-conditioned design still yields a usable least squares
		// solution; only a hard solve failure aborts training.
		if _, ok := err.(mat.Condition); !ok {
			return 0, utils.NewModelFailureError("training", "least squares solve: %v", err)
		}
	}

	m.intercept = beta.AtVec(0)
	m.coef = make([]float64, cols)
	for j := 0; j < cols; j++ {
		m.coef[j] = beta.AtVec(j + 1)
	}
	m.trained = true

	estimates := make([]float64, len(x))
	for i, row := range x {
		estimates[i] = m.predictRow(row)
	}

	score := stat.RSquaredFrom(estimates, y, nil)
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score, nil
}

// Predict returns one value per feature row, floored at 0 since business
// quantities are never negative. An untrained model returns zeros.
func (m *LinearModel) Predict(x [][]float64) []float64 {
	out := make([]float64, len(x))
	if !m.trained {
		return out
	}
	for i, row := range x {
		v := m.predictRow(row)
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Trained reports whether Train completed successfully.
func (m *LinearModel) Trained() bool {
	return m.trained
}

// Coefficients returns the fitted feature weights, nil when untrained.
func (m *LinearModel) Coefficients() []float64 {
	if !m.trained {
		return nil
	}
	out := make([]float64, len(m.coef))
	copy(out, m.coef)
	return out
}

func (m *LinearModel) predictRow(row []float64) float64 {
	v := m.intercept
	for j, c := range m.coef {
		if j < len(row) {
			v += c * row[j]
		}
	}
	return v
}
