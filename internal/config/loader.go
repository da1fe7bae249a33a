package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Aidin1998/mindset_analyzer/pkg/validation"
)

// EnvPrefix prefixes every environment override, e.g. MINDSET_MODEL_DIR.
const EnvPrefix = "MINDSET"

// DefaultPaths are searched when Load is given no explicit paths.
var DefaultPaths = []string{
	"./config.yaml",
	"./configs/config.yaml",
	"/etc/mindset/config.yaml",
}

// Load merges defaults, every existing file in paths (in order) and
// environment overrides, then validates the result.
func Load(logger *zap.Logger, paths ...string) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := viper.New()
	setupViper(v)
	setDefaults(v)

	if err := loadConfigFiles(v, logger, paths...); err != nil {
		return nil, fmt.Errorf("failed to load config files: %w", err)
	}
	loadEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no files or overrides exist.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	return validation.Struct(cfg)
}

func setupViper(v *viper.Viper) {
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(EnvPrefix)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.seed", 1)
	v.SetDefault("data.strict_timestamps", true)
	v.SetDefault("data.schema", "default")

	v.SetDefault("model.dir", "models/mindset")
	v.SetDefault("model.sequence_length", 24)
	v.SetDefault("model.hidden1", 128)
	v.SetDefault("model.hidden2", 64)
	v.SetDefault("model.dense", 32)
	v.SetDefault("model.dropout", 0.2)
	v.SetDefault("model.seed", 42)

	v.SetDefault("training.epochs", 50)
	v.SetDefault("training.batch_size", 32)
	v.SetDefault("training.learning_rate", 0.001)
	v.SetDefault("training.validation_split", 0.2)
	v.SetDefault("training.seed", 42)

	v.SetDefault("registry.enabled", false)
	v.SetDefault("registry.driver", "sqlite")
	v.SetDefault("registry.dsn", "mindset_runs.db")

	v.SetDefault("monitoring.metrics_addr", "")
	v.SetDefault("monitoring.tracing_enabled", false)
}

func loadConfigFiles(v *viper.Viper, logger *zap.Logger, paths ...string) error {
	explicit := len(paths) > 0
	if !explicit {
		paths = DefaultPaths
	}

	var loaded []string
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if explicit {
				return fmt.Errorf("config file %s not found", path)
			}
			logger.Debug("Config file not found, skipping", zap.String("path", path))
			continue
		}

		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}

	if len(loaded) == 0 {
		logger.Info("No configuration files found, using defaults and environment variables")
	} else {
		logger.Info("Loaded configuration files", zap.Strings("files", loaded))
	}
	return nil
}

// loadEnvironmentVariables applies MINDSET_<SECTION>_<KEY> overrides.
func loadEnvironmentVariables(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"logging.format",

		"data.dir",
		"data.seed",
		"data.strict_timestamps",
		"data.schema",

		"model.dir",
		"model.sequence_length",
		"model.hidden1",
		"model.hidden2",
		"model.dense",
		"model.dropout",
		"model.seed",

		"training.epochs",
		"training.batch_size",
		"training.learning_rate",
		"training.validation_split",
		"training.seed",

		"registry.enabled",
		"registry.driver",
		"registry.dsn",

		"monitoring.metrics_addr",
		"monitoring.tracing_enabled",
	}
	replacer := strings.NewReplacer(".", "_")
	for _, key := range keys {
		envVar := EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if value, ok := os.LookupEnv(envVar); ok {
			v.Set(key, value)
		}
	}
}
