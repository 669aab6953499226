package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline failures. Every fatal condition in the core
// carries one of these kinds so the caller can surface it distinctly.
type ErrorType string

const (
	// ErrTypeMalformedInput covers missing columns and unusable rows in a
	// raw table. Row-level instances are recovered into warnings; the kind
	// is only returned when a whole table is unusable.
	ErrTypeMalformedInput ErrorType = "MALFORMED_INPUT"
	// ErrTypeInsufficientData means a series has fewer points than the
	// model's free parameters. Raised before any optimization work.
	ErrTypeInsufficientData ErrorType = "INSUFFICIENT_DATA"
	// ErrTypeInvalidConfiguration covers bad caller configuration such as a
	// non-positive target concentration for the quadratic model or a
	// non-positive initial Kd guess.
	ErrTypeInvalidConfiguration ErrorType = "INVALID_CONFIGURATION"
	// ErrTypeFitNotConverged means the optimizer exhausted its iteration
	// budget or produced non-finite values. The error context carries the
	// last parameter estimate and the iteration count.
	ErrTypeFitNotConverged ErrorType = "FIT_NOT_CONVERGED"
	// ErrTypeStorage covers export-layer filesystem failures.
	ErrTypeStorage ErrorType = "STORAGE"
	// ErrTypeValidation covers malformed API requests.
	ErrTypeValidation ErrorType = "VALIDATION"
)

// AppError is the application error carried across the pipeline.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error and returns it.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error of the given kind.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err (or anything it wraps) is an AppError of the
// given kind.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// NewMalformedInputError creates a malformed-input error.
func NewMalformedInputError(message string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedInput, message, cause)
}

// NewInsufficientDataError creates an insufficient-data error carrying the
// observed point count and the model's free-parameter count.
func NewInsufficientDataError(points, freeParams int) *AppError {
	return NewAppError(ErrTypeInsufficientData,
		fmt.Sprintf("series has %d points but the model has %d free parameters", points, freeParams), nil).
		WithContext("points", points).
		WithContext("free_parameters", freeParams)
}

// NewInvalidConfigurationError creates a configuration error.
func NewInvalidConfigurationError(message string) *AppError {
	return NewAppError(ErrTypeInvalidConfiguration, message, nil)
}

// NewFitNotConvergedError creates a convergence failure carrying the last
// parameter estimate and the number of iterations performed.
func NewFitNotConvergedError(message string, lastParams []float64, iterations int) *AppError {
	last := make([]float64, len(lastParams))
	copy(last, lastParams)
	return NewAppError(ErrTypeFitNotConverged, message, nil).
		WithContext("last_parameters", last).
		WithContext("iterations", iterations)
}

// NewStorageError creates a storage-related error.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewValidationError creates a request validation error.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}
