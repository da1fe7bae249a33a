package features

import (
	"math"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

// ScalerState holds fitted per-column standardization parameters.
type ScalerState struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Scaler standardizes columns to zero mean and unit variance using the
// population standard deviation. Constant columns keep a scale of 1.
type Scaler struct {
	state *ScalerState
}

// NewScaler returns an unfitted scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// RestoreScaler rebuilds a fitted scaler from persisted parameters.
func RestoreScaler(state ScalerState) (*Scaler, error) {
	if len(state.Mean) != len(state.Scale) {
		return nil, apperrors.InvalidInput.Explain("scaler state has %d means and %d scales", len(state.Mean), len(state.Scale))
	}
	for j, s := range state.Scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, apperrors.InvalidInput.Explain("scaler column %d has invalid scale %v", j, s)
		}
	}
	return &Scaler{state: &ScalerState{
		Mean:  append([]float64(nil), state.Mean...),
		Scale: append([]float64(nil), state.Scale...),
	}}, nil
}

// Fitted reports whether Fit has been called.
func (s *Scaler) Fitted() bool {
	return s != nil && s.state != nil
}

// State returns a copy of the fitted parameters.
func (s *Scaler) State() (ScalerState, error) {
	if !s.Fitted() {
		return ScalerState{}, apperrors.NotFitted.Explain("scaler has not been fitted")
	}
	return ScalerState{
		Mean:  append([]float64(nil), s.state.Mean...),
		Scale: append([]float64(nil), s.state.Scale...),
	}, nil
}

// Fit computes column means and scales from X, replacing any previous fit.
func (s *Scaler) Fit(X Matrix) error {
	n := X.Rows()
	if n == 0 {
		return apperrors.InvalidInput.Explain("cannot fit scaler on an empty matrix")
	}
	cols := X.Cols()
	if !X.rectangular(cols) {
		return apperrors.InvalidInput.Explain("matrix rows have differing widths")
	}

	mean := make([]float64, cols)
	for _, row := range X {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	scale := make([]float64, cols)
	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / float64(n))
		if scale[j] < 1e-12 {
			scale[j] = 1
		}
	}

	s.state = &ScalerState{Mean: mean, Scale: scale}
	return nil
}

// FitTransform fits on X and returns the standardized copy.
func (s *Scaler) FitTransform(X Matrix) (Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Transform standardizes X with the fitted parameters. X is not modified.
func (s *Scaler) Transform(X Matrix) (Matrix, error) {
	if err := s.check(X); err != nil {
		return nil, err
	}
	out := NewMatrix(X.Rows(), X.Cols())
	for i, row := range X {
		for j, v := range row {
			out[i][j] = (v - s.state.Mean[j]) / s.state.Scale[j]
		}
	}
	return out, nil
}

// InverseTransform maps standardized values back to the original units.
func (s *Scaler) InverseTransform(X Matrix) (Matrix, error) {
	if err := s.check(X); err != nil {
		return nil, err
	}
	out := NewMatrix(X.Rows(), X.Cols())
	for i, row := range X {
		for j, v := range row {
			out[i][j] = v*s.state.Scale[j] + s.state.Mean[j]
		}
	}
	return out, nil
}

func (s *Scaler) check(X Matrix) error {
	if !s.Fitted() {
		return apperrors.NotFitted.Explain("scaler has not been fitted")
	}
	cols := len(s.state.Mean)
	if X.Rows() > 0 && !X.rectangular(cols) {
		return apperrors.InvalidInput.Explain("matrix has %d columns, scaler was fitted on %d", X.Cols(), cols)
	}
	return nil
}
