package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

type sample struct {
	Name    string  `yaml:"name" validate:"required"`
	Epochs  int     `mapstructure:"epochs" validate:"gte=1"`
	Dropout float64 `json:"dropout,omitempty" validate:"gte=0,lt=1"`
	Format  string  `validate:"omitempty,oneof=json console"`
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "a", Epochs: 1, Dropout: 0.2, Format: "json"}))
}

func TestStructReportsEveryField(t *testing.T) {
	err := Struct(sample{Epochs: 0, Dropout: 1, Format: "xml"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))

	var appErr *apperrors.Error
	require.True(t, apperrors.As(err, &appErr))
	require.Len(t, appErr.Fields, 4)
	assert.Equal(t, "required", appErr.Fields[0].Kind)
	assert.Equal(t, "sample.name", appErr.Fields[0].Field)
	assert.Equal(t, "name is required", appErr.Fields[0].Message)
	assert.Equal(t, "sample.epochs", appErr.Fields[1].Field)
	assert.Equal(t, "epochs must be at least 1", appErr.Fields[1].Message)
	assert.Equal(t, "dropout must be less than 1", appErr.Fields[2].Message)
	assert.Equal(t, "Format must be one of [json console]", appErr.Fields[3].Message)
	assert.Contains(t, err.Error(), "validation failed: name is required")
}

func TestStructRejectsNonStruct(t *testing.T) {
	err := Struct(42)
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
}
