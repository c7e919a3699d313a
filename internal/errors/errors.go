//nolint:revive // Package name intentionally matches stdlib for domain clarity
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// NotInitializedError indicates the data directory doesn't exist.
type NotInitializedError struct {
	Path string
}

func (e NotInitializedError) Error() string {
	return fmt.Sprintf("taskflow not initialized at %s: run 'taskflow init' first", e.Path)
}

// AlreadyInitializedError indicates the data directory already exists.
type AlreadyInitializedError struct {
	Path string
}

func (e AlreadyInitializedError) Error() string {
	return fmt.Sprintf("taskflow already initialized at %s", e.Path)
}

// ValidationError indicates a missing or invalid field on the input of an operation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidPriorityError indicates an invalid priority value.
type InvalidPriorityError struct {
	Value string
}

func (e InvalidPriorityError) Error() string {
	return fmt.Sprintf("invalid priority: %s (valid: high, medium, low)", e.Value)
}

// TaskNotFoundError indicates the task ID doesn't match any task.
type TaskNotFoundError struct {
	ID string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

// AmbiguousIDError indicates a short ID matches more than one task.
type AmbiguousIDError struct {
	Prefix  string
	Matches []string
}

func (e AmbiguousIDError) Error() string {
	return fmt.Sprintf("task id %s is ambiguous: matches %s", e.Prefix, strings.Join(e.Matches, ", "))
}

// BackendError indicates the remote store failed or was unreachable.
type BackendError struct {
	Op    string
	Table string
	Err   error
}

func (e BackendError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Table, e.Err)
}

func (e BackendError) Unwrap() error {
	return e.Err
}

// StorageError indicates a local read or write failed, or stored content was corrupt.
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("local storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e StorageError) Unwrap() error {
	return e.Err
}

// NotConfiguredError indicates the remote store lacks required settings.
type NotConfiguredError struct {
	Missing []string
}

func (e NotConfiguredError) Error() string {
	return fmt.Sprintf("remote store not configured: missing %s", strings.Join(e.Missing, ", "))
}

// IsNotFound reports whether err is a TaskNotFoundError.
func IsNotFound(err error) bool {
	var target TaskNotFoundError
	return stderrors.As(err, &target)
}

// IsValidation reports whether err signals caller misuse of an operation's input.
func IsValidation(err error) bool {
	var ve ValidationError
	var pe InvalidPriorityError
	var ae AmbiguousIDError
	return stderrors.As(err, &ve) || stderrors.As(err, &pe) || stderrors.As(err, &ae)
}

