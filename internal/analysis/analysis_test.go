package analysis

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/artifact"
	"github.com/Aidin1998/mindset_analyzer/internal/config"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/internal/training"
)

var day = time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)

func trainedModel(t *testing.T) (*artifact.Artifact, *dataset.FileStore) {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Dir = filepath.Join(t.TempDir(), "data")
	cfg.Model.Dir = filepath.Join(t.TempDir(), "model")
	cfg.Model.SequenceLength = 6
	cfg.Model.Hidden1 = 8
	cfg.Model.Hidden2 = 6
	cfg.Model.Dense = 4
	cfg.Training.Epochs = 2

	store := dataset.NewFileStore(cfg.Data.Dir)
	require.NoError(t, store.Save(day, dataset.NewSimulator(9).CollectAll(day)))

	res, err := training.NewPipeline(cfg, store, nil, nil).TrainForDate(context.Background(), day)
	require.NoError(t, err)

	a, err := artifact.LoadCurrent(context.Background(), cfg.Model.Dir)
	require.NoError(t, err)
	require.Equal(t, res.Artifact.ID, a.ID)
	return a, store
}

func TestDailyPatterns(t *testing.T) {
	a, store := trainedModel(t)
	an := NewAnalyzer(a, store, true, zaptest.NewLogger(t).Sugar())

	res, err := an.DailyPatterns(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, 19, res.Values.Rows())
	require.Len(t, res.Timestamps, 19)
	assert.Equal(t, day.Add(6*time.Hour), res.Timestamps[0])
	assert.Equal(t, day.Add(24*time.Hour), res.Timestamps[18])
	assert.Equal(t, dataset.Targets, res.Targets)

	mood, ok := res.Series("mood_score")
	require.True(t, ok)
	assert.Len(t, mood, 19)
	_, ok = res.Series("happiness")
	assert.False(t, ok)

	insights, err := Insights(res)
	require.NoError(t, err)
	require.Len(t, insights, 4)
	assert.Contains(t, insights[0].String(), "Average mood score: ")

	corr, err := Correlations(res, res.Tables)
	require.NoError(t, err)
	assert.Len(t, corr, 4*12)
	for _, c := range corr {
		if !math.IsNaN(c.Coefficient) {
			assert.LessOrEqual(t, math.Abs(c.Coefficient), 1+1e-9)
		}
	}
}

func TestDailyPatternsNoData(t *testing.T) {
	a, store := trainedModel(t)
	an := NewAnalyzer(a, store, true, nil)

	_, err := an.DailyPatterns(context.Background(), day.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.NoData))
}

func TestInsights(t *testing.T) {
	res := &Result{
		Targets: []string{"mood_score", "energy_level"},
		Values: features.Matrix{
			{0.1, 0.5},
			{0.2, 0.5},
			{0.3, 0.5},
		},
	}
	insights, err := Insights(res)
	require.NoError(t, err)

	assert.Equal(t, "0.20", insights[0].Mean.StringFixed(2))
	require.True(t, insights[0].Std.Valid)
	assert.Equal(t, "0.10", insights[0].Std.Decimal.StringFixed(2))
	assert.Equal(t, "Average mood score: 0.20 (std: 0.10)", insights[0].String())
	assert.Equal(t, "Average energy level: 0.50 (std: 0.00)", insights[1].String())

	single := &Result{Targets: []string{"focus_level"}, Values: features.Matrix{{0.456}}}
	insights, err = Insights(single)
	require.NoError(t, err)
	assert.False(t, insights[0].Std.Valid)
	assert.Equal(t, "Average focus level: 0.46 (std: nan)", insights[0].String())

	_, err = Insights(&Result{})
	assert.True(t, apperrors.Is(err, apperrors.InsufficientData))
}

func TestCorrelations(t *testing.T) {
	activity := dataset.NewTable(dataset.Activity, "steps", "movement_level", "exercise_minutes")
	rows := [][]float64{
		{99, 99, 5},
		{99, 99, 5},
		{10, 4, 5},
		{20, 3, 5},
		{30, 2, 5},
		{40, 1, 5},
	}
	for i, r := range rows {
		require.NoError(t, activity.AppendRow(day.Add(time.Duration(i)*time.Hour), r...))
	}

	res := &Result{
		Targets:        []string{"mood_score"},
		SequenceLength: 2,
		Values:         features.Matrix{{0.1}, {0.2}, {0.3}, {0.4}},
	}
	corr, err := Correlations(res, dataset.Tables{dataset.Activity: activity})
	require.NoError(t, err)
	require.Len(t, corr, 3)

	assert.Equal(t, "activity_steps", corr[0].Feature)
	assert.InDelta(t, 1, corr[0].Coefficient, 1e-12)
	assert.Equal(t, "activity_movement_level", corr[1].Feature)
	assert.InDelta(t, -1, corr[1].Coefficient, 1e-12)
	assert.True(t, math.IsNaN(corr[2].Coefficient))

	res.SequenceLength = 3
	_, err = Correlations(res, dataset.Tables{dataset.Activity: activity})
	assert.True(t, apperrors.Is(err, apperrors.Misaligned))
}
