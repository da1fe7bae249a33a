package artifact

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/internal/predictor"
)

func testArch() predictor.Architecture {
	return predictor.Architecture{
		InputSize:      12,
		SequenceLength: 6,
		Hidden1:        8,
		Hidden2:        6,
		Dense:          4,
		Outputs:        4,
		Dropout:        0.2,
	}
}

func randomMatrix(seed uint64, rows, cols int) features.Matrix {
	rng := rand.New(rand.NewPCG(seed, 0))
	X := features.NewMatrix(rows, cols)
	for i := range X {
		for j := range X[i] {
			X[i][j] = rng.Float64() * float64(j+1) * 10
		}
	}
	return X
}

func trainedArtifact(t *testing.T) (*Artifact, features.Matrix) {
	t.Helper()
	X := randomMatrix(1, 20, 12)
	Y := randomMatrix(2, 20, 4)
	for i := range Y {
		for j := range Y[i] {
			Y[i][j] /= 40
		}
	}

	scaler := features.NewScaler()
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)
	examples, err := features.Windows(scaled, Y, testArch().SequenceLength)
	require.NoError(t, err)
	windows, labels := features.Stack(examples)

	model, err := predictor.NewModel(testArch(), 42, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	cfg := predictor.DefaultTrainConfig()
	cfg.Epochs = 2
	_, err = model.Fit(context.Background(), windows, labels, cfg)
	require.NoError(t, err)

	return New(features.DefaultSchema(), scaler, model), X
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a, X := trainedArtifact(t)
	dir := filepath.Join(t.TempDir(), "model")

	require.NoError(t, Save(context.Background(), a, dir))
	for _, f := range []string{ManifestFile, WeightsFile, ScalerFile} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	loaded, err := Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, a.ID, loaded.ID)
	assert.True(t, a.CreatedAt.Equal(loaded.CreatedAt))
	assert.True(t, a.Schema.Equal(loaded.Schema))
	assert.Equal(t, a.Targets, loaded.Targets)
	assert.Equal(t, 6, loaded.SequenceLength())

	want, err := a.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	require.Len(t, got, 14)
	for i := range want {
		for j := range want[i] {
			assert.InDelta(t, want[i][j], got[i][j], 1e-5)
		}
	}
}

func TestSaveUntrained(t *testing.T) {
	model, err := predictor.NewModel(testArch(), 1, nil)
	require.NoError(t, err)
	scaler := features.NewScaler()
	require.NoError(t, scaler.Fit(randomMatrix(1, 5, 12)))

	dir := filepath.Join(t.TempDir(), "model")
	err = Save(context.Background(), New(features.DefaultSchema(), scaler, model), dir)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.NothingToSave))
	assert.NoDirExists(t, dir)

	err = Save(context.Background(), nil, dir)
	assert.True(t, apperrors.Is(err, apperrors.NothingToSave))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ArtifactNotFound))
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, dir string)
	}{
		{"weights digest", func(t *testing.T, dir string) {
			path := filepath.Join(dir, WeightsFile)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			data[0] ^= 0xff
			require.NoError(t, os.WriteFile(path, data, 0o644))
		}},
		{"missing scaler", func(t *testing.T, dir string) {
			require.NoError(t, os.Remove(filepath.Join(dir, ScalerFile)))
		}},
		{"garbage manifest", func(t *testing.T, dir string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{{{"), 0o644))
		}},
		{"format version", func(t *testing.T, dir string) {
			rewriteManifest(t, dir, "format_version: 1", "format_version: 99")
		}},
		{"sequence length", func(t *testing.T, dir string) {
			rewriteManifest(t, dir, "sequence_length: 6\nschema", "sequence_length: 7\nschema")
		}},
		{"duplicate feature column", func(t *testing.T, dir string) {
			rewriteManifest(t, dir, "column: movement_level", "column: steps")
		}},
		{"label category as feature", func(t *testing.T, dir string) {
			rewriteManifest(t, dir, "category: social", "category: mindset")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := trainedArtifact(t)
			dir := t.TempDir()
			require.NoError(t, Save(context.Background(), a, dir))
			tt.corrupt(t, dir)

			_, err := Load(context.Background(), dir)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ArtifactNotFound), err.Error())
		})
	}
}

func rewriteManifest(t *testing.T, dir, old, new string) {
	t.Helper()
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), old)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), old, new, 1)), 0o644))
}

func TestPredictErrors(t *testing.T) {
	model, err := predictor.NewModel(testArch(), 1, nil)
	require.NoError(t, err)
	scaler := features.NewScaler()
	require.NoError(t, scaler.Fit(randomMatrix(1, 5, 12)))
	untrained := New(features.DefaultSchema(), scaler, model)

	_, err = untrained.Predict(randomMatrix(1, 10, 12))
	assert.True(t, apperrors.Is(err, apperrors.ModelNotTrained))

	a, _ := trainedArtifact(t)
	_, err = a.Predict(randomMatrix(1, 6, 12))
	assert.True(t, apperrors.Is(err, apperrors.InsufficientData))

	_, err = a.Predict(randomMatrix(1, 10, 11))
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
}

func TestPublishKeepsEveryVersion(t *testing.T) {
	root := filepath.Join(t.TempDir(), "models")
	first, _ := trainedArtifact(t)
	second, _ := trainedArtifact(t)
	require.NotEqual(t, first.ID, second.ID)

	firstDir, err := Publish(context.Background(), first, root)
	require.NoError(t, err)
	assert.Equal(t, VersionDir(root, first.ID), firstDir)

	current, err := LoadCurrent(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)

	secondDir, err := Publish(context.Background(), second, root)
	require.NoError(t, err)
	assert.NotEqual(t, firstDir, secondDir)

	current, err = LoadCurrent(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	old, err := LoadVersion(context.Background(), firstDir, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, old.ID)
}

func TestLoadVersionRejectsOtherArtifact(t *testing.T) {
	a, _ := trainedArtifact(t)
	dir := t.TempDir()
	require.NoError(t, Save(context.Background(), a, dir))

	_, err := LoadVersion(context.Background(), dir, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ArtifactNotFound))
}

func TestLoadCurrentErrors(t *testing.T) {
	root := t.TempDir()
	_, err := LoadCurrent(context.Background(), root)
	assert.True(t, apperrors.Is(err, apperrors.ArtifactNotFound))

	require.NoError(t, os.WriteFile(filepath.Join(root, CurrentFile), []byte("not-a-uuid\n"), 0o644))
	_, err = LoadCurrent(context.Background(), root)
	assert.True(t, apperrors.Is(err, apperrors.ArtifactNotFound))

	require.NoError(t, os.WriteFile(filepath.Join(root, CurrentFile), []byte(uuid.NewString()), 0o644))
	_, err = LoadCurrent(context.Background(), root)
	assert.True(t, apperrors.Is(err, apperrors.ArtifactNotFound))
}
