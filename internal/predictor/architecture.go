// Package predictor implements the stacked recurrent network that maps a
// window of standardized feature rows to the four mindset targets.
//
// The network is LSTM(Hidden1, full sequence) -> Dropout -> LSTM(Hidden2,
// last step) -> Dropout -> Dense(Dense, ReLU) -> Dense(Outputs, sigmoid).
// All parameters live in one flat vector so they can be persisted and
// updated by the optimizer without per-layer bookkeeping.
package predictor

import (
	"fmt"

	"github.com/Aidin1998/mindset_analyzer/pkg/validation"
)

// Architecture describes the network shape. It is persisted with the weights
// and must match exactly when weights are restored.
type Architecture struct {
	InputSize      int     `yaml:"input_size" json:"input_size" validate:"min=1"`
	SequenceLength int     `yaml:"sequence_length" json:"sequence_length" validate:"min=1"`
	Hidden1        int     `yaml:"hidden1" json:"hidden1" validate:"min=1"`
	Hidden2        int     `yaml:"hidden2" json:"hidden2" validate:"min=1"`
	Dense          int     `yaml:"dense" json:"dense" validate:"min=1"`
	Outputs        int     `yaml:"outputs" json:"outputs" validate:"min=1"`
	Dropout        float64 `yaml:"dropout" json:"dropout" validate:"gte=0,lt=1"`
}

// DefaultArchitecture returns the production network for inputSize features.
func DefaultArchitecture(inputSize int) Architecture {
	return Architecture{
		InputSize:      inputSize,
		SequenceLength: 24,
		Hidden1:        128,
		Hidden2:        64,
		Dense:          32,
		Outputs:        4,
		Dropout:        0.2,
	}
}

// Validate checks that every dimension is usable.
func (a Architecture) Validate() error {
	if err := validation.Struct(a); err != nil {
		return fmt.Errorf("invalid architecture: %w", err)
	}
	return nil
}

// ParamCount is the length of the flat weight vector.
func (a Architecture) ParamCount() int {
	return lstmParams(a.InputSize, a.Hidden1) +
		lstmParams(a.Hidden1, a.Hidden2) +
		denseParams(a.Hidden2, a.Dense) +
		denseParams(a.Dense, a.Outputs)
}

func lstmParams(in, hidden int) int {
	return 4*hidden*in + 4*hidden*hidden + 4*hidden
}

func denseParams(in, out int) int {
	return out*in + out
}
