package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.level, "json")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestComponentNilBase(t *testing.T) {
	s := Component(nil, "training")
	require.NotNil(t, s)
	s.Infow("discarded", "k", 1)
}
