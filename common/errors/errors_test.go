package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := NoData.Explain("no measurements for %s", "2024-01-02")
	wrapped := fmt.Errorf("load: %w", err)

	assert.True(t, Is(wrapped, NoData))
	assert.False(t, Is(wrapped, InsufficientData))
	assert.Equal(t, KindNoData, KindOf(wrapped))
	assert.Contains(t, err.Error(), "2024-01-02")

	// Explain must not mutate the shared sentinel.
	assert.Empty(t, NoData.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := ArtifactNotFound.Explain("reading manifest").Wrap(cause)

	assert.True(t, Is(err, ArtifactNotFound))
	assert.True(t, Is(err, cause))
	assert.Nil(t, ArtifactNotFound.Unwrap())
}

func TestWithFieldDoesNotAlias(t *testing.T) {
	base := InvalidInput.WithField("missing", "mood_score", "column absent")
	a := base.WithField("missing", "energy_level", "column absent")
	b := base.WithField("missing", "focus_level", "column absent")

	require.Len(t, a.Fields, 2)
	require.Len(t, b.Fields, 2)
	assert.Equal(t, "energy_level", a.Fields[1].Field)
	assert.Equal(t, "focus_level", b.Fields[1].Field)
}

func TestProblemFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no data", NoData.Explain("x"), http.StatusNotFound},
		{"insufficient", fmt.Errorf("train: %w", InsufficientData.Explain("y")), http.StatusUnprocessableEntity},
		{"not trained", ModelNotTrained, http.StatusConflict},
		{"misaligned", Misaligned.WithField("rows", "social", "24 != 25"), http.StatusBadRequest},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd := ProblemFor(tt.err, "/analysis")
			assert.Equal(t, tt.status, pd.Status)
			assert.Equal(t, "/analysis", pd.Instance)
			assert.NotEmpty(t, pd.Detail)
		})
	}

	pd := ProblemFor(Misaligned.WithField("rows", "social", "24 != 25"), "")
	require.Len(t, pd.Errors, 1)
	assert.Equal(t, "social", pd.Errors[0].Field)
}
