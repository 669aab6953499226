package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewAppError(ErrTypeMalformedInput, "table is empty", nil)
		assert.Equal(t, "[MALFORMED_INPUT] table is empty", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("unexpected EOF")
		err := NewAppError(ErrTypeStorage, "cannot read file", cause)
		assert.Equal(t, "[STORAGE] cannot read file: unexpected EOF", err.Error())
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("write failed", cause)

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("exporting results: %w", err)
	var appErr *AppError
	require.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestIsType(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{
			name:    "matching type",
			err:     NewMalformedInputError("bad table", nil),
			errType: ErrTypeMalformedInput,
			want:    true,
		},
		{
			name:    "non-matching type",
			err:     NewMalformedInputError("bad table", nil),
			errType: ErrTypeFitNotConverged,
			want:    false,
		},
		{
			name:    "wrapped app error",
			err:     fmt.Errorf("group wt: %w", NewInvalidConfigurationError("bad kd")),
			errType: ErrTypeInvalidConfiguration,
			want:    true,
		},
		{
			name:    "plain error",
			err:     errors.New("something"),
			errType: ErrTypeMalformedInput,
			want:    false,
		},
		{
			name:    "nil error",
			err:     nil,
			errType: ErrTypeMalformedInput,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.errType))
		})
	}
}

func TestWithContext(t *testing.T) {
	err := NewMalformedInputError("missing columns", nil).
		WithContext("table", "rep1.csv").
		WithContext("missing_columns", []string{"Ligand Concentration [M]"})

	assert.Equal(t, "rep1.csv", err.Context["table"])
	assert.Len(t, err.Context["missing_columns"], 1)
}

func TestNewInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError(3, 4)

	assert.Equal(t, ErrTypeInsufficientData, err.Type)
	assert.Equal(t, 3, err.Context["points"])
	assert.Equal(t, 4, err.Context["free_parameters"])
	assert.Contains(t, err.Message, "3 points")
}

func TestNewFitNotConvergedError(t *testing.T) {
	params := []float64{0.1, 0.9, 1e-7}
	err := NewFitNotConvergedError("budget exhausted", params, 500)

	assert.Equal(t, ErrTypeFitNotConverged, err.Type)
	assert.Equal(t, 500, err.Context["iterations"])

	// The stored estimate is a copy, not an alias.
	params[2] = 0
	stored := err.Context["last_parameters"].([]float64)
	assert.Equal(t, 1e-7, stored[2])
}
