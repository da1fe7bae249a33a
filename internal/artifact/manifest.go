package artifact

import (
	"time"

	"github.com/Aidin1998/mindset_analyzer/internal/features"
	"github.com/Aidin1998/mindset_analyzer/internal/predictor"
)

// FormatVersion is bumped whenever the on-disk layout changes.
const FormatVersion = 1

const (
	ManifestFile = "manifest.yaml"
	WeightsFile  = "weights.bin"
	ScalerFile   = "scaler.json"
)

// Manifest describes an artifact directory. It is written last, so a
// directory without a manifest is an incomplete save.
type Manifest struct {
	FormatVersion  int                    `yaml:"format_version" validate:"min=1"`
	ID             string                 `yaml:"id" validate:"required,uuid"`
	CreatedAt      time.Time              `yaml:"created_at" validate:"required"`
	SequenceLength int                    `yaml:"sequence_length" validate:"min=1"`
	Schema         features.Schema        `yaml:"schema" validate:"min=1"`
	Targets        []string               `yaml:"targets" validate:"min=1,dive,required"`
	Architecture   predictor.Architecture `yaml:"architecture"`
	ParameterCount int                    `yaml:"parameter_count" validate:"min=1"`
	Weights        Blob                   `yaml:"weights"`
	Scaler         Blob                   `yaml:"scaler"`
}

// Blob names a payload file and its SHA-256 digest.
type Blob struct {
	File   string `yaml:"file" validate:"required"`
	SHA256 string `yaml:"sha256" validate:"len=64,hexadecimal"`
}
