package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeProvision  ErrorType = "provision"
	ErrorTypeInstall    ErrorType = "install"
	ErrorTypeExec       ErrorType = "exec"
	ErrorTypeTest       ErrorType = "test"
	ErrorTypeCoverage   ErrorType = "coverage"
	ErrorTypeUpload     ErrorType = "upload"
	ErrorTypeInternal   ErrorType = "internal"
)

// PipelineError is a structured error type with pipeline context.
type PipelineError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Step      string
	Command   string
	Context   map[string]interface{}
	Tolerated bool
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Step != "" {
		parts = append(parts, "step:"+e.Step)
	}

	if e.Command != "" {
		parts = append(parts, "command:"+e.Command)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithStep adds pipeline step context.
func (e *PipelineError) WithStep(step string) *PipelineError {
	e.Step = step

	return e
}

// WithCommand records the external command that produced the error.
func (e *PipelineError) WithCommand(command string) *PipelineError {
	e.Command = command

	return e
}

// WithCause attaches the underlying error.
func (e *PipelineError) WithCause(cause error) *PipelineError {
	e.Cause = cause

	return e
}

// Error creation functions

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewProvisionError creates an environment provisioning error.
func NewProvisionError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeProvision,
		Code:    code,
		Message: message,
	}
}

// NewInstallError creates a dependency installation error.
func NewInstallError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeInstall,
		Code:    code,
		Message: message,
	}
}

// NewExecError creates an external command error.
func NewExecError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeExec,
		Code:    code,
		Message: message,
	}
}

// NewTestError creates a test-run error.
func NewTestError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeTest,
		Code:    code,
		Message: message,
	}
}

// NewCoverageError creates a coverage-processing error.
func NewCoverageError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeCoverage,
		Code:    code,
		Message: message,
	}
}

// NewUploadError creates a coverage-upload error.
func NewUploadError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeUpload,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
	}
}

// IsType reports whether err (or anything it wraps) is a PipelineError of
// the given type.
func IsType(err error, errorType ErrorType) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Type == errorType
	}

	return false
}
