package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/dataset"
)

var start = time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)

func hourlyTables(t *testing.T, rows int) dataset.Tables {
	t.Helper()
	sim := dataset.NewSimulator(7)
	tables := make(dataset.Tables)
	for _, c := range dataset.AllCategories {
		tables[c] = sim.Collect(c, start, time.Duration(rows-1)*time.Hour)
		require.Equal(t, rows, tables[c].Len())
	}
	return tables
}

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()
	require.Len(t, s, 12)
	require.NoError(t, s.Validate())
	assert.Equal(t, Feature{Category: dataset.Activity, Column: "steps"}, s[0])
	assert.Equal(t, Feature{Category: dataset.Environmental, Column: "light_level"}, s[11])
}

func TestDiscoverSchemaFirstCategoryWins(t *testing.T) {
	activity := dataset.NewTable(dataset.Activity, "steps", "stress_level")
	physio := dataset.NewTable(dataset.Physiological, "stress_level", "heart_rate")
	s := DiscoverSchema(dataset.Tables{
		dataset.Physiological: physio,
		dataset.Activity:      activity,
	})

	assert.Equal(t, Schema{
		{Category: dataset.Activity, Column: "steps"},
		{Category: dataset.Activity, Column: "stress_level"},
		{Category: dataset.Physiological, Column: "heart_rate"},
	}, s)
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{"empty", Schema{}},
		{"label category", Schema{{Category: dataset.Mindset, Column: "mood_score"}}},
		{"duplicate column", Schema{
			{Category: dataset.Activity, Column: "steps"},
			{Category: dataset.Social, Column: "steps"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
		})
	}
}

func TestAlignShape(t *testing.T) {
	tables := hourlyTables(t, 30)
	aligner := NewAligner(DefaultSchema(), true, zaptest.NewLogger(t).Sugar())

	X, err := aligner.Align(tables)
	require.NoError(t, err)
	assert.Equal(t, 30, X.Rows())
	assert.Equal(t, 12, X.Cols())

	steps, _ := tables[dataset.Activity].Column("steps")
	assert.Equal(t, steps, X.Column(0))

	Y, err := Labels(tables)
	require.NoError(t, err)
	assert.Equal(t, 30, Y.Rows())
	assert.Equal(t, 4, Y.Cols())
	for _, row := range Y {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestAlignZeroFillsMissingCategory(t *testing.T) {
	tables := hourlyTables(t, 30)
	full, err := NewAligner(DefaultSchema(), true, nil).Align(tables)
	require.NoError(t, err)

	delete(tables, dataset.Social)
	X, err := NewAligner(DefaultSchema(), true, nil).Align(tables)
	require.NoError(t, err)
	require.Equal(t, full.Rows(), X.Rows())

	social := 0
	for j, f := range DefaultSchema() {
		if f.Category != dataset.Social {
			assert.Equal(t, full.Column(j), X.Column(j), f.String())
			continue
		}
		social++
		for _, v := range X.Column(j) {
			assert.Zero(t, v, f.String())
		}
	}
	assert.Positive(t, social)
}

func TestAlignRequiresMindset(t *testing.T) {
	tables := hourlyTables(t, 10)
	delete(tables, dataset.Mindset)

	_, err := NewAligner(DefaultSchema(), true, nil).Align(tables)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.NoData))
}

func TestAlignRejectsRowMismatch(t *testing.T) {
	tables := hourlyTables(t, 30)
	tables[dataset.Environmental] = dataset.NewSimulator(1).Collect(dataset.Environmental, start, 10*time.Hour)

	_, err := NewAligner(DefaultSchema(), false, nil).Align(tables)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Misaligned))
}

func TestAlignStrictTimestamps(t *testing.T) {
	tables := hourlyTables(t, 30)
	tables[dataset.Activity] = dataset.NewSimulator(1).Collect(dataset.Activity, start.Add(time.Hour), 29*time.Hour)

	_, err := NewAligner(DefaultSchema(), true, nil).Align(tables)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Misaligned))

	_, err = NewAligner(DefaultSchema(), false, nil).Align(tables)
	assert.NoError(t, err)
}

func TestLabelsMissingTarget(t *testing.T) {
	mindset := dataset.NewTable(dataset.Mindset, "mood_score", "energy_level", "focus_level")
	require.NoError(t, mindset.AppendRow(start, 0.1, 0.2, 0.3))

	_, err := Labels(dataset.Tables{dataset.Mindset: mindset})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.NoData))
}

func TestScalerRoundTrip(t *testing.T) {
	X := Matrix{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
		{4, 40, 5},
	}
	s := NewScaler()
	Z, err := s.FitTransform(X)
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		col := Z.Column(j)
		var sum float64
		for _, v := range col {
			sum += v
		}
		assert.InDelta(t, 0, sum/float64(len(col)), 1e-12)
	}
	// constant column: scale 1, centred at 0
	assert.Equal(t, []float64{0, 0, 0, 0}, Z.Column(2))

	back, err := s.InverseTransform(Z)
	require.NoError(t, err)
	for i := range X {
		for j := range X[i] {
			assert.InDelta(t, X[i][j], back[i][j], 1e-9)
		}
	}
	assert.Equal(t, 1.0, X[0][0], "input must not be modified")
}

func TestScalerNotFitted(t *testing.T) {
	_, err := NewScaler().Transform(Matrix{{1}})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.NotFitted))

	_, err = NewScaler().State()
	assert.True(t, apperrors.Is(err, apperrors.NotFitted))
}

func TestScalerColumnMismatch(t *testing.T) {
	s := NewScaler()
	require.NoError(t, s.Fit(Matrix{{1, 2}, {3, 4}}))
	_, err := s.Transform(Matrix{{1, 2, 3}})
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
}

func TestRestoreScaler(t *testing.T) {
	s := NewScaler()
	require.NoError(t, s.Fit(Matrix{{1, 2}, {3, 6}}))
	state, err := s.State()
	require.NoError(t, err)

	restored, err := RestoreScaler(state)
	require.NoError(t, err)
	a, _ := s.Transform(Matrix{{5, 5}})
	b, _ := restored.Transform(Matrix{{5, 5}})
	assert.Equal(t, a, b)

	_, err = RestoreScaler(ScalerState{Mean: []float64{0}, Scale: []float64{0}})
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
}

func TestWindows(t *testing.T) {
	tests := []struct {
		rows, length, want int
	}{
		{30, 24, 6},
		{24, 24, 0},
		{10, 24, 0},
		{25, 24, 1},
		{5, 1, 4},
	}
	for _, tt := range tests {
		X := NewMatrix(tt.rows, 2)
		Y := NewMatrix(tt.rows, 4)
		for i := 0; i < tt.rows; i++ {
			X[i][0] = float64(i)
			Y[i][0] = float64(i)
		}
		examples, err := Windows(X, Y, tt.length)
		require.NoError(t, err)
		require.Len(t, examples, tt.want)

		for i, ex := range examples {
			require.Len(t, ex.Window, tt.length)
			assert.Equal(t, float64(i), ex.Window[0][0])
			assert.Equal(t, float64(i+tt.length-1), ex.Window[tt.length-1][0])
			assert.Equal(t, float64(i+tt.length), ex.Label[0])
		}

		windows, err := WindowsOnly(X, tt.length)
		require.NoError(t, err)
		assert.Len(t, windows, tt.want)
	}
}

func TestWindowsRejectsBadInput(t *testing.T) {
	_, err := Windows(NewMatrix(5, 1), NewMatrix(5, 4), 0)
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))

	_, err = Windows(NewMatrix(5, 1), NewMatrix(4, 4), 2)
	assert.True(t, apperrors.Is(err, apperrors.Misaligned))
}

func TestStack(t *testing.T) {
	X := NewMatrix(30, 12)
	Y := NewMatrix(30, 4)
	examples, err := Windows(X, Y, 24)
	require.NoError(t, err)

	windows, labels := Stack(examples)
	assert.Len(t, windows, 6)
	assert.Equal(t, 6, labels.Rows())
	assert.Equal(t, 4, labels.Cols())
	assert.Equal(t, 12, windows[0].Cols())
}
