// Package artifact bundles a trained predictor with the schema and scaler it
// was trained with, and persists the bundle as a versioned directory.
package artifact

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/internal/predictor"
)

// Artifact is everything needed to turn raw feature rows into predictions.
// It is immutable once saved and is always loaded as a whole.
type Artifact struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Schema    features.Schema
	Targets   []string
	Scaler    *features.Scaler
	Model     *predictor.Model
}

// New assembles an artifact with a fresh ID.
func New(schema features.Schema, scaler *features.Scaler, model *predictor.Model) *Artifact {
	return &Artifact{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Schema:    append(features.Schema(nil), schema...),
		Targets:   append([]string(nil), dataset.Targets...),
		Scaler:    scaler,
		Model:     model,
	}
}

// SequenceLength is the window length the model was trained on.
func (a *Artifact) SequenceLength() int {
	return a.Model.Architecture().SequenceLength
}

// Predict standardizes X with the stored scaler, windows it and returns one
// prediction row per window. Row i predicts X row i+SequenceLength.
func (a *Artifact) Predict(X features.Matrix) (features.Matrix, error) {
	if a.Model == nil || !a.Model.Trained() {
		return nil, apperrors.ModelNotTrained.Explain("artifact has no trained model")
	}
	if X.Rows() > 0 && X.Cols() != len(a.Schema) {
		return nil, apperrors.InvalidInput.Explain("feature matrix has %d columns, artifact schema has %d", X.Cols(), len(a.Schema))
	}
	scaled, err := a.Scaler.Transform(X)
	if err != nil {
		return nil, err
	}
	windows, err := features.WindowsOnly(scaled, a.SequenceLength())
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, apperrors.InsufficientData.Explain("%d rows cannot fill a window of %d", X.Rows(), a.SequenceLength())
	}
	return a.Model.Predict(windows)
}
