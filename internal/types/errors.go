package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEntryNotFound      = errors.New("storage: entry not found")
	ErrBackendUnavailable = errors.New("storage: backend unavailable")
	ErrQuotaExceeded      = errors.New("storage: quota exceeded")
	ErrClosed             = errors.New("storage: manager closed")
	ErrInvalidRule        = errors.New("rules: invalid rule")
)

// BackendError wraps a failure from a single backend. It is non-fatal to the
// storage manager: the fallback chain continues with the next backend.
type BackendError struct {
	Op      string
	Key     string
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s on %s [%s]: %v", e.Op, e.Backend, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s on %s: %v", e.Op, e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func NewBackendError(op, key, backend string, err error) *BackendError {
	return &BackendError{
		Op:      op,
		Key:     key,
		Backend: backend,
		Err:     err,
	}
}

// BackendFailure pairs a backend name with the error it produced, for
// aggregated diagnostics.
type BackendFailure struct {
	Backend string
	Err     error
}

// UnavailableError reports that every backend in the fallback chain rejected
// an operation. It carries one failure per backend.
type UnavailableError struct {
	Op       string
	Key      string
	Failures []BackendFailure
}

func (e *UnavailableError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Backend, f.Err))
	}
	return fmt.Sprintf("storage %s [%s]: all backends failed: %s", e.Op, e.Key, strings.Join(parts, "; "))
}

// Unwrap exposes every backend failure to errors.Is/errors.As.
func (e *UnavailableError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// IsNotFound reports whether err is the normal "no such key" result.
// Absence is not a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}

// IsStorageUnavailable reports whether err means every backend failed.
func IsStorageUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

func IsInvalidRule(err error) bool {
	return errors.Is(err, ErrInvalidRule)
}
