// Package config loads analyzer settings from YAML files and MINDSET_*
// environment variables.
package config

import (
	"github.com/Aidin1998/mindset_analyzer/internal/predictor"
)

// Config is the root configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Data       DataConfig       `mapstructure:"data"`
	Model      ModelConfig      `mapstructure:"model"`
	Training   TrainingConfig   `mapstructure:"training"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// DataConfig controls collection and alignment.
type DataConfig struct {
	Dir              string `mapstructure:"dir" validate:"required"`
	Seed             uint64 `mapstructure:"seed"`
	StrictTimestamps bool   `mapstructure:"strict_timestamps"`
	// Schema is "default" for the fixed collector columns or "discover" to
	// derive columns from the loaded tables.
	Schema string `mapstructure:"schema" validate:"oneof=default discover"`
}

type ModelConfig struct {
	Dir            string  `mapstructure:"dir" validate:"required"`
	SequenceLength int     `mapstructure:"sequence_length" validate:"min=1"`
	Hidden1        int     `mapstructure:"hidden1" validate:"min=1"`
	Hidden2        int     `mapstructure:"hidden2" validate:"min=1"`
	Dense          int     `mapstructure:"dense" validate:"min=1"`
	Dropout        float64 `mapstructure:"dropout" validate:"gte=0,lt=1"`
	Seed           uint64  `mapstructure:"seed"`
}

// Architecture returns the network shape for inputSize features.
func (m ModelConfig) Architecture(inputSize, outputs int) predictor.Architecture {
	return predictor.Architecture{
		InputSize:      inputSize,
		SequenceLength: m.SequenceLength,
		Hidden1:        m.Hidden1,
		Hidden2:        m.Hidden2,
		Dense:          m.Dense,
		Outputs:        outputs,
		Dropout:        m.Dropout,
	}
}

type TrainingConfig struct {
	Epochs          int     `mapstructure:"epochs" validate:"min=1"`
	BatchSize       int     `mapstructure:"batch_size" validate:"min=1"`
	LearningRate    float64 `mapstructure:"learning_rate" validate:"gt=0"`
	ValidationSplit float64 `mapstructure:"validation_split" validate:"gte=0,lt=1"`
	Seed            uint64  `mapstructure:"seed"`
}

// TrainConfig converts to the predictor's settings, keeping the fixed Adam
// moment parameters.
func (t TrainingConfig) TrainConfig() predictor.TrainConfig {
	cfg := predictor.DefaultTrainConfig()
	cfg.Epochs = t.Epochs
	cfg.BatchSize = t.BatchSize
	cfg.LearningRate = t.LearningRate
	cfg.ValidationSplit = t.ValidationSplit
	cfg.Seed = t.Seed
	return cfg
}

type RegistryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

type MonitoringConfig struct {
	// MetricsAddr serves /metrics when non-empty, e.g. ":9090".
	MetricsAddr    string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
}
