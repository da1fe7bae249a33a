// Package training runs the end-to-end fit: load tables, align, scale,
// window, train the predictor, persist the artifact and record the run.
package training

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/artifact"
	"github.com/Aidin1998/mindset_analyzer/internal/config"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/internal/predictor"
	"github.com/Aidin1998/mindset_analyzer/internal/registry"
	"github.com/Aidin1998/mindset_analyzer/pkg/metrics"
	"github.com/Aidin1998/mindset_analyzer/pkg/tracing"
)

// TableLoader supplies the measurement tables collected for a date.
type TableLoader interface {
	Load(date time.Time) (dataset.Tables, error)
}

// RunRecorder persists training run outcomes.
type RunRecorder interface {
	Record(ctx context.Context, run *registry.TrainingRun) error
}

// Pipeline trains models from stored tables.
type Pipeline struct {
	config *config.Config
	logger *zap.SugaredLogger
	tables TableLoader
	runs   RunRecorder
}

// Result is the outcome of TrainForDate.
type Result struct {
	Artifact *artifact.Artifact
	History  *predictor.History
	Run      *registry.TrainingRun
}

// NewPipeline creates a pipeline. runs may be nil to skip run recording.
func NewPipeline(cfg *config.Config, tables TableLoader, runs RunRecorder, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{
		config: cfg,
		logger: logger,
		tables: tables,
		runs:   runs,
	}
}

// Prepare aligns tables into a feature matrix and extracts the matching
// label matrix. Both have one row per mindset row.
func Prepare(tables dataset.Tables, aligner *features.Aligner) (features.Matrix, features.Matrix, error) {
	X, err := aligner.Align(tables)
	if err != nil {
		return nil, nil, err
	}
	Y, err := features.Labels(tables)
	if err != nil {
		return nil, nil, err
	}
	return X, Y, nil
}

// Aligner builds the aligner configured for tables: the fixed default
// schema, or one discovered from the tables' columns.
func (p *Pipeline) Aligner(tables dataset.Tables) *features.Aligner {
	schema := features.DefaultSchema()
	if p.config.Data.Schema == "discover" {
		schema = features.DiscoverSchema(tables)
	}
	return features.NewAligner(schema, p.config.Data.StrictTimestamps, p.logger)
}

// Train fits a scaler on X, windows the scaled rows against Y and fits a new
// model. It fails with InsufficientData when X is too short for one window.
func (p *Pipeline) Train(ctx context.Context, schema features.Schema, X, Y features.Matrix) (a *artifact.Artifact, history *predictor.History, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "training.Train")
	defer func() {
		metrics.TrainingRuns.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	L := p.config.Model.SequenceLength
	if X.Rows() != Y.Rows() {
		return nil, nil, apperrors.Misaligned.Explain("feature matrix has %d rows, label matrix has %d", X.Rows(), Y.Rows())
	}
	if X.Rows() <= L {
		return nil, nil, apperrors.InsufficientData.Explain("%d rows yield no sequences of length %d", X.Rows(), L)
	}
	span.SetAttributes(
		attribute.Int("training.rows", X.Rows()),
		attribute.Int("training.features", X.Cols()),
	)

	scaler := features.NewScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return nil, nil, fmt.Errorf("fit scaler: %w", err)
	}
	examples, err := features.Windows(scaled, Y, L)
	if err != nil {
		return nil, nil, err
	}
	windows, labels := features.Stack(examples)

	p.logger.Infow("Prepared training sequences",
		"rows", X.Rows(),
		"features", X.Cols(),
		"sequence_length", L,
		"examples", len(examples),
	)

	arch := p.config.Model.Architecture(len(schema), len(dataset.Targets))
	model, err := predictor.NewModel(arch, p.config.Model.Seed, p.logger)
	if err != nil {
		return nil, nil, err
	}
	history, err = model.Fit(ctx, windows, labels, p.config.Training.TrainConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("fit model: %w", err)
	}

	return artifact.New(schema, scaler, model), history, nil
}

// TrainForDate loads the tables stored for date, trains on them, publishes
// the artifact as a new version under the configured model directory and
// records the run with that version's directory.
func (p *Pipeline) TrainForDate(ctx context.Context, date time.Time) (res *Result, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "training.TrainForDate")
	defer span.End()

	run := &registry.TrainingRun{
		DataDate:  date,
		Epochs:    p.config.Training.Epochs,
		StartedAt: time.Now().UTC(),
	}
	res = &Result{Run: run}
	defer func() {
		p.finishRun(ctx, run, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.logger.Errorw("Training run failed",
				"date", date.Format(time.DateOnly),
				"kind", apperrors.KindOf(err),
				"error", err,
			)
		}
	}()

	p.logger.Infow("Starting training run",
		"date", date.Format(time.DateOnly),
		"model_dir", p.config.Model.Dir,
	)

	tables, err := p.tables.Load(date)
	if err != nil {
		return res, err
	}

	aligner := p.Aligner(tables)
	X, Y, err := Prepare(tables, aligner)
	if err != nil {
		return res, err
	}
	run.Examples = max(0, X.Rows()-p.config.Model.SequenceLength)

	a, history, err := p.Train(ctx, aligner.Schema, X, Y)
	if err != nil {
		return res, err
	}
	res.Artifact, res.History = a, history
	run.TrainExamples = history.TrainExamples
	run.ValidationExamples = history.ValidationExamples
	loss, mae, valLoss, valMAE := history.Final()
	run.FinalLoss, run.FinalMAE = finite(loss), finite(mae)
	run.FinalValLoss, run.FinalValMAE = finite(valLoss), finite(valMAE)

	dir, err := artifact.Publish(ctx, a, p.config.Model.Dir)
	if err != nil {
		return res, fmt.Errorf("save artifact: %w", err)
	}
	run.ArtifactID, run.ArtifactDir = &a.ID, dir

	p.logger.Infow("Training run completed",
		"artifact_id", a.ID,
		"artifact_dir", dir,
		"loss", run.FinalLoss,
		"val_loss", run.FinalValLoss,
	)
	return res, nil
}

// finite maps the NaN reported for an absent metric to zero, which every
// registry backend can store.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (p *Pipeline) finishRun(ctx context.Context, run *registry.TrainingRun, err error) {
	run.EndedAt = time.Now().UTC()
	run.Status = registry.StatusSucceeded
	if err != nil {
		run.Status = registry.StatusFailed
		run.Error = err.Error()
	}
	if p.runs == nil {
		return
	}
	if recErr := p.runs.Record(ctx, run); recErr != nil {
		p.logger.Errorw("Failed to record training run", "run_id", run.ID, "error", recErr)
	}
}
