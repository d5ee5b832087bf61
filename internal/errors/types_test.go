package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinserveErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *BinserveError
		expected string
	}{
		{
			name:     "message only",
			err:      &BinserveError{Message: "boom"},
			expected: "boom",
		},
		{
			name:     "code and path",
			err:      NewRenderError(ErrCodeTemplateExec, "render failed", nil).WithPath("public/usage.hbs"),
			expected: "[ERR_TEMPLATE_EXEC] public/usage.hbs render failed",
		},
		{
			name:     "with cause",
			err:      NewIOError(ErrCodeFileRead, "cannot read file", errors.New("disk gone")),
			expected: "[ERR_FILE_READ] cannot read file: disk gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestBinserveErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("root cause")
	err := NewIOError(ErrCodeFileRead, "cannot read", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("building route: %w", err)
	assert.ErrorIs(t, wrapped, &BinserveError{Type: ErrorTypeIO, Code: ErrCodeFileRead})
	assert.NotErrorIs(t, wrapped, &BinserveError{Type: ErrorTypeIO, Code: ErrCodeFileNotFound})
}

func TestErrFileReadCodes(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		code  string
	}{
		{"not exist", fs.ErrNotExist, ErrCodeFileNotFound},
		{"permission", fs.ErrPermission, ErrCodePermissionDenied},
		{"other", errors.New("eio"), ErrCodeFileRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ErrFileRead("a.txt", &fs.PathError{Op: "open", Path: "a.txt", Err: tt.cause})
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, "a.txt", err.Path)
			assert.True(t, IsType(err, ErrorTypeIO))
		})
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("load: %w", ErrPathTraversal("../etc/passwd"))

	assert.True(t, IsSecurityError(err))
	assert.True(t, IsType(err, ErrorTypeSecurity))
	assert.False(t, IsType(err, ErrorTypeConfig))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeIO))
}

func TestErrInvalidHeader(t *testing.T) {
	err := ErrInvalidHeader("ETag", "bad\nvalue")

	require.NotNil(t, err.Context)
	assert.Equal(t, ErrorTypeHeader, err.Type)
	assert.Equal(t, "ETag", err.Context["header"])
	assert.Equal(t, "bad\nvalue", err.Context["value"])
}
