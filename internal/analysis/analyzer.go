// Package analysis runs a trained artifact over a day of collected data and
// summarizes the predicted mindset series.
package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/artifact"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/pkg/tracing"
)

// TableLoader supplies the measurement tables collected for a date.
type TableLoader interface {
	Load(date time.Time) (dataset.Tables, error)
}

// Result is a predicted mindset series. Row i of Values is the prediction
// for mindset row SequenceLength+i, observed at Timestamps[i].
type Result struct {
	Date           time.Time
	Targets        []string
	SequenceLength int
	Timestamps     []time.Time
	Values         features.Matrix
	// Tables are the inputs the predictions were made from.
	Tables dataset.Tables
}

// Series returns the predicted values of one target.
func (r *Result) Series(target string) ([]float64, bool) {
	for j, t := range r.Targets {
		if t == target {
			return r.Values.Column(j), true
		}
	}
	return nil, false
}

// Analyzer predicts daily mindset patterns with a loaded artifact.
type Analyzer struct {
	artifact         *artifact.Artifact
	tables           TableLoader
	strictTimestamps bool
	logger           *zap.SugaredLogger
}

func NewAnalyzer(a *artifact.Artifact, tables TableLoader, strictTimestamps bool, logger *zap.SugaredLogger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Analyzer{
		artifact:         a,
		tables:           tables,
		strictTimestamps: strictTimestamps,
		logger:           logger,
	}
}

// DailyPatterns loads the tables stored for date, aligns them with the
// artifact's schema and predicts every complete window.
func (an *Analyzer) DailyPatterns(ctx context.Context, date time.Time) (res *Result, err error) {
	_, span := tracing.Tracer().Start(ctx, "analysis.DailyPatterns")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tables, err := an.tables.Load(date)
	if err != nil {
		return nil, err
	}
	mindset, ok := tables[dataset.Mindset]
	if !ok || mindset == nil {
		return nil, apperrors.NoData.Explain("no mindset table stored for %s", date.Format(time.DateOnly))
	}

	aligner := features.NewAligner(an.artifact.Schema, an.strictTimestamps, an.logger)
	X, err := aligner.Align(tables)
	if err != nil {
		return nil, err
	}
	values, err := an.artifact.Predict(X)
	if err != nil {
		return nil, err
	}

	L := an.artifact.SequenceLength()
	timestamps := make([]time.Time, len(values))
	if len(mindset.Timestamps) >= L+len(values) {
		copy(timestamps, mindset.Timestamps[L:])
	}
	span.SetAttributes(attribute.Int("analysis.predictions", len(values)))

	an.logger.Infow("Predicted daily patterns",
		"date", date.Format(time.DateOnly),
		"artifact_id", an.artifact.ID,
		"rows", X.Rows(),
		"predictions", len(values),
	)

	return &Result{
		Date:           date,
		Targets:        append([]string(nil), an.artifact.Targets...),
		SequenceLength: L,
		Timestamps:     timestamps,
		Values:         values,
		Tables:         tables,
	}, nil
}
