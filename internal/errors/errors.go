package errors

import (
	"fmt"
	"time"
)

// Error types for the requirements traceability index
type ErrorType string

const (
	// Scanning errors
	ErrorTypeScan ErrorType = "scan"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Marker write errors
	ErrorTypeWrite      ErrorType = "write"
	ErrorTypeUnresolved ErrorType = "unresolved_target"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ScanError represents an error while scanning a file or tree for markers
type ScanError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a new scan error with context
func NewScanError(op string, err error) *ScanError {
	return &ScanError{
		Type:       ErrorTypeScan,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithPath adds file information to the error
func (e *ScanError) WithPath(path string) *ScanError {
	e.Path = path
	return e
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Path, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ScanError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// isPermissionError checks if the error is a permission error
func isPermissionError(err error) bool {
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// WriteError represents a failed marker write. The index is guaranteed
// untouched when one of these is returned.
type WriteError struct {
	Type        ErrorType
	Path        string
	Requirement string
	Underlying  error
	Timestamp   time.Time
}

// NewWriteError creates a new marker write error
func NewWriteError(requirement, path string, err error) *WriteError {
	return &WriteError{
		Type:        ErrorTypeWrite,
		Path:        path,
		Requirement: requirement,
		Underlying:  err,
		Timestamp:   time.Now(),
	}
}

// NewUnresolvedTargetError reports that no definition could be found to
// attach the marker to.
func NewUnresolvedTargetError(requirement, path string) *WriteError {
	return &WriteError{
		Type:        ErrorTypeUnresolved,
		Path:        path,
		Requirement: requirement,
		Timestamp:   time.Now(),
	}
}

// Error implements the error interface
func (e *WriteError) Error() string {
	if e.Type == ErrorTypeUnresolved {
		return fmt.Sprintf("no definition found to attach %s in %s", e.Requirement, e.Path)
	}
	return fmt.Sprintf("marker write for %s in %s failed: %v", e.Requirement, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *WriteError) Unwrap() error {
	return e.Underlying
}

// IsUnresolved reports whether the write failed because no target definition
// could be located.
func (e *WriteError) IsUnresolved() bool {
	return e.Type == ErrorTypeUnresolved
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}
