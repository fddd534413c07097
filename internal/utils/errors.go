package utils

import "fmt"

// DataUnavailableError indicates that the historical data source could not be
// reached or its response could not be parsed. An empty history is valid data
// and is never reported through this type.
type DataUnavailableError struct {
	Source  string
	Message string
}

// Error returns the error message string.
func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable from %s: %s", e.Source, e.Message)
}

// NewDataUnavailableError creates a DataUnavailableError for the given source.
//
// Parameters:
//   - source: The data source identifier (e.g. "erp", "postgres").
//   - format: The format string.
//   - args: Arguments for the format string.
//
// Returns:
//   - An error interface wrapping the DataUnavailableError.
func NewDataUnavailableError(source, format string, args ...interface{}) error {
	return &DataUnavailableError{
		Source:  source,
		Message: fmt.Sprintf(format, args...),
	}
}

// InsufficientDataError indicates fewer historical rows than the minimum
// training threshold. Recovered locally by the fallback model tier.
type InsufficientDataError struct {
	Rows     int
	Required int
}

// Error returns the error message string.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d rows, need at least %d", e.Rows, e.Required)
}

// FeatureMismatchError indicates an expected target or feature column is
// absent after feature engineering.
type FeatureMismatchError struct {
	Column string
}

// Error returns the error message string.
func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("feature mismatch: column %q not present in frame", e.Column)
}

// ModelFailureError indicates training or prediction failed for numerical
// reasons, such as a singular design matrix.
type ModelFailureError struct {
	Stage   string
	Message string
}

// Error returns the error message string.
func (e *ModelFailureError) Error() string {
	return fmt.Sprintf("model failure during %s: %s", e.Stage, e.Message)
}

// NewModelFailureError creates a ModelFailureError for the given stage.
func NewModelFailureError(stage, format string, args ...interface{}) error {
	return &ModelFailureError{
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// InsightServiceError indicates the external insight augmentation call
// failed, timed out, or returned unusable content. Always recovered silently
// by the rule-based insight pipeline.
type InsightServiceError struct {
	Message string
}

// Error returns the error message string.
func (e *InsightServiceError) Error() string {
	return fmt.Sprintf("insight service: %s", e.Message)
}

// NewInsightServiceError creates an InsightServiceError.
func NewInsightServiceError(format string, args ...interface{}) error {
	return &InsightServiceError{Message: fmt.Sprintf(format, args...)}
}

// PipelineError wraps any error not caught by the inner recovery tiers.
// The orchestrator converts it into the flat fallback response.
type PipelineError struct {
	State string
	Err   error
}

// Error returns the error message string.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed in state %s: %v", e.State, e.Err)
}

// Unwrap returns the wrapped error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}
