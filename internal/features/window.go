package features

import (
	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

// Example is one training pair: SequenceLength consecutive feature rows and
// the label row immediately after them.
type Example struct {
	Window Matrix
	Label  []float64
}

// Windows slides a window of length L over X and pairs each window with the
// following row of Y. It yields max(0, N-L) examples; window i covers rows
// [i, i+L) and its label is Y[i+L]. Windows share row storage with X and Y.
func Windows(X, Y Matrix, L int) ([]Example, error) {
	if L < 1 {
		return nil, apperrors.InvalidInput.Explain("sequence length must be positive, got %d", L)
	}
	if X.Rows() != Y.Rows() {
		return nil, apperrors.Misaligned.Explain("feature matrix has %d rows, label matrix has %d", X.Rows(), Y.Rows())
	}
	n := X.Rows() - L
	if n <= 0 {
		return nil, nil
	}
	out := make([]Example, n)
	for i := 0; i < n; i++ {
		out[i] = Example{
			Window: X[i : i+L : i+L],
			Label:  Y[i+L],
		}
	}
	return out, nil
}

// WindowsOnly returns the same windows as Windows without labels, for
// inference. Window i predicts row i+L.
func WindowsOnly(X Matrix, L int) ([]Matrix, error) {
	if L < 1 {
		return nil, apperrors.InvalidInput.Explain("sequence length must be positive, got %d", L)
	}
	n := X.Rows() - L
	if n <= 0 {
		return nil, nil
	}
	out := make([]Matrix, n)
	for i := 0; i < n; i++ {
		out[i] = X[i : i+L : i+L]
	}
	return out, nil
}

// Stack splits examples into the predictor's input windows and target rows.
func Stack(examples []Example) ([]Matrix, Matrix) {
	windows := make([]Matrix, len(examples))
	labels := make(Matrix, len(examples))
	for i, ex := range examples {
		windows[i] = ex.Window
		labels[i] = ex.Label
	}
	return windows, labels
}
