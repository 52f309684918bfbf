package errors

import (
	"fmt"
)

// ErrorCode represents a specific failure class of the analysis pipeline.
type ErrorCode string

const (
	// ErrCodeInvalidInput indicates the request itself was malformed.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeTimeExtractionFailed indicates no usable time signal was extracted.
	ErrCodeTimeExtractionFailed ErrorCode = "TIME_EXTRACTION_FAILED"
	// ErrCodeAIAnalysisFailed indicates the semantic classifier was unreachable
	// or returned a malformed response. Always recovered locally, never surfaced.
	ErrCodeAIAnalysisFailed ErrorCode = "AI_ANALYSIS_FAILED"
	// ErrCodeContextLoadFailed indicates the recent-history snapshot could not be loaded.
	ErrCodeContextLoadFailed ErrorCode = "CONTEXT_LOAD_FAILED"
	// ErrCodeTimezoneConversionFailed indicates an unparseable IANA timezone.
	ErrCodeTimezoneConversionFailed ErrorCode = "TIMEZONE_CONVERSION_FAILED"
	// ErrCodeValidationFailed indicates the consistency validator itself failed.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// AnalysisError represents a structured error for analysis operations.
type AnalysisError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AnalysisError) WithContext(key string, value interface{}) *AnalysisError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *AnalysisError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidInput creates an invalid input error.
func InvalidInput(msg string) *AnalysisError {
	return &AnalysisError{Code: ErrCodeInvalidInput, Message: msg}
}

// TimeExtractionFailed creates a time extraction failure error.
func TimeExtractionFailed(msg string) *AnalysisError {
	return &AnalysisError{Code: ErrCodeTimeExtractionFailed, Message: msg}
}

// AIAnalysisFailed creates a classifier failure error.
func AIAnalysisFailed(msg string, cause error) *AnalysisError {
	return &AnalysisError{Code: ErrCodeAIAnalysisFailed, Message: msg, Cause: cause}
}

// ContextLoadFailed creates a history load failure error.
func ContextLoadFailed(msg string, cause error) *AnalysisError {
	return &AnalysisError{Code: ErrCodeContextLoadFailed, Message: msg, Cause: cause}
}

// TimezoneConversionFailed creates a timezone conversion error.
func TimezoneConversionFailed(tz string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:    ErrCodeTimezoneConversionFailed,
		Message: fmt.Sprintf("invalid timezone: %s", tz),
		Cause:   cause,
	}
}

// ValidationFailed creates a validation failure error.
func ValidationFailed(msg string) *AnalysisError {
	return &AnalysisError{Code: ErrCodeValidationFailed, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AnalysisError {
	return &AnalysisError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if analysisErr, ok := err.(*AnalysisError); ok {
		return analysisErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AnalysisError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if analysisErr, ok := err.(*AnalysisError); ok {
		return analysisErr.Code
	}
	return defaultCode
}
