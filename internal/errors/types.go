// Package errors defines the structured error type shared by the binserve
// packages.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeRender   ErrorType = "render"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeHeader   ErrorType = "header"
	ErrorTypeSecurity ErrorType = "security"
	ErrorTypeInternal ErrorType = "internal"
)

// BinserveError is a structured error type with context.
type BinserveError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
	Path    string
}

// Error implements the error interface.
func (e *BinserveError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BinserveError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BinserveError) Is(target error) bool {
	var t *BinserveError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BinserveError) WithContext(key string, value interface{}) *BinserveError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file the error relates to.
func (e *BinserveError) WithPath(path string) *BinserveError {
	e.Path = path

	return e
}

// Error creation functions

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BinserveError {
	return &BinserveError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewRenderError creates a template rendering error.
func NewRenderError(code, message string, cause error) *BinserveError {
	return &BinserveError{
		Type:    ErrorTypeRender,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BinserveError {
	return &BinserveError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewHeaderError creates an error for a value that cannot be sent as an
// HTTP header.
func NewHeaderError(code, message string) *BinserveError {
	return &BinserveError{
		Type:    ErrorTypeHeader,
		Code:    code,
		Message: message,
	}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *BinserveError {
	return &BinserveError{
		Type:    ErrorTypeSecurity,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BinserveError {
	return &BinserveError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err, or any error it wraps, is a BinserveError of
// type t.
func IsType(err error, t ErrorType) bool {
	var be *BinserveError
	if errors.As(err, &be) {
		return be.Type == t
	}

	return false
}

// IsSecurityError checks if an error is security-related.
func IsSecurityError(err error) bool {
	return IsType(err, ErrorTypeSecurity)
}

// Common error codes.
const (
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeFileRead         = "ERR_FILE_READ"
	ErrCodeFileStat         = "ERR_FILE_STAT"
	ErrCodePermissionDenied = "ERR_PERMISSION_DENIED"
	ErrCodeTemplateParse    = "ERR_TEMPLATE_PARSE"
	ErrCodeTemplateExec     = "ERR_TEMPLATE_EXEC"
	ErrCodePartial          = "ERR_TEMPLATE_PARTIAL"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeConfigMissing    = "ERR_CONFIG_MISSING"
	ErrCodeInvalidHeader    = "ERR_INVALID_HEADER"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// Helper functions for common errors

// ErrFileRead wraps a failure to read or stat a source file, picking the
// code from the cause.
func ErrFileRead(path string, cause error) *BinserveError {
	code := ErrCodeFileRead
	switch {
	case errors.Is(cause, fs.ErrNotExist):
		code = ErrCodeFileNotFound
	case errors.Is(cause, fs.ErrPermission):
		code = ErrCodePermissionDenied
	}

	return NewIOError(code, "cannot read file", cause).WithPath(path)
}

// ErrPathTraversal creates a path traversal security error.
func ErrPathTraversal(path string) *BinserveError {
	return NewSecurityError(ErrCodePathTraversal, "path traversal attempt: "+path)
}

// ErrInvalidHeader creates a header encoding error for the named header.
func ErrInvalidHeader(name, value string) *BinserveError {
	return NewHeaderError(ErrCodeInvalidHeader, "invalid value for header "+name).
		WithContext("header", name).
		WithContext("value", value)
}
