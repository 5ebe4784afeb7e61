// Package errors provides custom error types for distroclone.
// These errors enable programmatic error checking and identify which
// phase of a reconciliation run failed.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for distroclone
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMergeConflict indicates that a deep merge found the same key
	// holding incompatible types in base and override
	ErrMergeConflict = errors.New("merge conflict")

	// ErrUnsupportedVCS indicates a repository location whose VCS kind
	// the clone collaborator cannot handle
	ErrUnsupportedVCS = errors.New("unsupported vcs type")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// ConfigError represents a failure to load or parse an explicitly
// requested configuration or override file. It is always fatal: when the
// caller asked for an override, a missing or malformed file must not be
// silently ignored.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config error for %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(path, message string, err error) *ConfigError {
	return &ConfigError{Path: path, Message: message, Err: err}
}

// MergeConflictError reports a type conflict at a key during a deep
// merge, raised only when no diagnostic sink was supplied to downgrade
// the conflict to a warning.
type MergeConflictError struct {
	Path     string // dotted key path, e.g. "repo.source.version"
	Base     any
	Override any
}

// Error implements the error interface
func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict at %s: %v vs %v", e.Path, e.Base, e.Override)
}

// Is implements errors.Is support
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// FetchError represents a failure to fetch or decode data from the
// distribution index or its cache.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch error from %s (status %d): %s", e.URL, e.StatusCode, e.Message)
	}
	if e.URL != "" {
		return fmt.Sprintf("fetch error from %s: %s", e.URL, e.Message)
	}
	return fmt.Sprintf("fetch error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, message string) *FetchError {
	return &FetchError{URL: url, StatusCode: statusCode, Message: message}
}

// IOError represents an error during filesystem operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "scan"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// CloneError represents a failure surfaced from the batch clone
// collaborator for a named repository.
type CloneError struct {
	Name string
	URL  string
	Err  error
}

// Error implements the error interface
func (e *CloneError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("clone error for %s (%s): %v", e.Name, e.URL, e.Err)
	}
	return fmt.Sprintf("clone error for %s: %v", e.Name, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *CloneError) Unwrap() error {
	return e.Err
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMergeConflict checks if an error is a merge conflict
func IsMergeConflict(err error) bool {
	return errors.Is(err, ErrMergeConflict)
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsFetch checks if an error is a fetch error
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsClone checks if an error came from the clone collaborator
func IsClone(err error) bool {
	var ce *CloneError
	return errors.As(err, &ce)
}

// Wrap helpers

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapFetch wraps an error as a FetchError
func WrapFetch(url, message string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{URL: url, Message: message, Err: err}
}

// WrapClone wraps an error as a CloneError
func WrapClone(name, url string, err error) error {
	if err == nil {
		return nil
	}
	return &CloneError{Name: name, URL: url, Err: err}
}
