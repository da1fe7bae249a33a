package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/internal/predictor"
	"github.com/Aidin1998/mindset_analyzer/pkg/metrics"
	"github.com/Aidin1998/mindset_analyzer/pkg/tracing"
	"github.com/Aidin1998/mindset_analyzer/pkg/validation"
)

// Save writes a into dir. Payload files are written atomically before the
// manifest, so a reader never sees a manifest pointing at partial data.
func Save(ctx context.Context, a *Artifact, dir string) (err error) {
	_, span := tracing.Tracer().Start(ctx, "artifact.Save")
	defer func() {
		metrics.ArtifactOperations.WithLabelValues("save", metrics.Outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if a == nil || a.Model == nil || !a.Model.Trained() {
		return apperrors.NothingToSave.Explain("model has not been trained")
	}
	state, err := a.Scaler.State()
	if err != nil {
		return apperrors.NothingToSave.Explain("scaler has not been fitted").Wrap(err)
	}
	span.SetAttributes(
		attribute.String("artifact.id", a.ID.String()),
		attribute.String("artifact.dir", dir),
	)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	weights := encodeWeights(a.Model.Weights())
	scaler, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}

	arch := a.Model.Architecture()
	manifest := Manifest{
		FormatVersion:  FormatVersion,
		ID:             a.ID.String(),
		CreatedAt:      a.CreatedAt,
		SequenceLength: arch.SequenceLength,
		Schema:         a.Schema,
		Targets:        a.Targets,
		Architecture:   arch,
		ParameterCount: arch.ParamCount(),
		Weights:        Blob{File: WeightsFile, SHA256: digest(weights)},
		Scaler:         Blob{File: ScalerFile, SHA256: digest(scaler)},
	}
	manifestData, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := writeFileAtomic(filepath.Join(dir, WeightsFile), weights, 0o644); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ScalerFile), scaler, 0o644); err != nil {
		return fmt.Errorf("write scaler: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ManifestFile), manifestData, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads the artifact stored in dir. Any missing, unreadable or
// inconsistent file yields ArtifactNotFound.
func Load(ctx context.Context, dir string) (a *Artifact, err error) {
	_, span := tracing.Tracer().Start(ctx, "artifact.Load",
		trace.WithAttributes(attribute.String("artifact.dir", dir)))
	defer func() {
		metrics.ArtifactOperations.WithLabelValues("load", metrics.Outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	notFound := func(format string, args ...any) *apperrors.Error {
		return apperrors.ArtifactNotFound.Explain("%s: %s", dir, fmt.Sprintf(format, args...))
	}

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, notFound("read manifest").Wrap(err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, notFound("parse manifest").Wrap(err)
	}
	if err := validation.Struct(&m); err != nil {
		return nil, notFound("invalid manifest").Wrap(err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, notFound("unsupported format version %d", m.FormatVersion)
	}
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, notFound("invalid artifact id").Wrap(err)
	}
	span.SetAttributes(attribute.String("artifact.id", id.String()))

	if err := checkShape(&m); err != nil {
		return nil, notFound("%v", err)
	}

	weightsData, err := readBlob(dir, m.Weights)
	if err != nil {
		return nil, notFound("weights").Wrap(err)
	}
	weights, err := decodeWeights(weightsData)
	if err != nil {
		return nil, notFound("weights").Wrap(err)
	}
	if len(weights) != m.ParameterCount {
		return nil, notFound("weights file holds %d parameters, manifest says %d", len(weights), m.ParameterCount)
	}

	scalerData, err := readBlob(dir, m.Scaler)
	if err != nil {
		return nil, notFound("scaler").Wrap(err)
	}
	var state features.ScalerState
	if err := json.Unmarshal(scalerData, &state); err != nil {
		return nil, notFound("parse scaler").Wrap(err)
	}
	if len(state.Mean) != len(m.Schema) {
		return nil, notFound("scaler has %d columns, schema has %d", len(state.Mean), len(m.Schema))
	}
	scaler, err := features.RestoreScaler(state)
	if err != nil {
		return nil, notFound("restore scaler").Wrap(err)
	}

	model, err := predictor.NewModel(m.Architecture, 0, nil)
	if err != nil {
		return nil, notFound("build model").Wrap(err)
	}
	if err := model.SetWeights(weights); err != nil {
		return nil, notFound("restore weights").Wrap(err)
	}

	return &Artifact{
		ID:        id,
		CreatedAt: m.CreatedAt,
		Schema:    m.Schema,
		Targets:   m.Targets,
		Scaler:    scaler,
		Model:     model,
	}, nil
}

func checkShape(m *Manifest) error {
	arch := m.Architecture
	if err := arch.Validate(); err != nil {
		return err
	}
	if err := m.Schema.Validate(); err != nil {
		return err
	}
	if arch.SequenceLength != m.SequenceLength {
		return fmt.Errorf("architecture sequence length %d, manifest says %d", arch.SequenceLength, m.SequenceLength)
	}
	if arch.InputSize != len(m.Schema) {
		return fmt.Errorf("architecture takes %d inputs, schema has %d features", arch.InputSize, len(m.Schema))
	}
	if arch.Outputs != len(m.Targets) {
		return fmt.Errorf("architecture emits %d outputs, manifest lists %d targets", arch.Outputs, len(m.Targets))
	}
	if arch.ParamCount() != m.ParameterCount {
		return fmt.Errorf("architecture has %d parameters, manifest says %d", arch.ParamCount(), m.ParameterCount)
	}
	return nil
}

func readBlob(dir string, b Blob) ([]byte, error) {
	if filepath.Base(b.File) != b.File {
		return nil, fmt.Errorf("blob file %q escapes artifact dir", b.File)
	}
	data, err := os.ReadFile(filepath.Join(dir, b.File))
	if err != nil {
		return nil, err
	}
	if got := digest(data); got != b.SHA256 {
		return nil, fmt.Errorf("%s digest mismatch: got %s, want %s", b.File, got, b.SHA256)
	}
	return data, nil
}

func encodeWeights(w []float64) []byte {
	buf := make([]byte, 0, 8*len(w))
	for _, v := range w {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

func decodeWeights(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("weights file length %d is not a multiple of 8", len(data))
	}
	w := make([]float64, len(data)/8)
	for i := range w {
		w[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return w, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
