package packrat

import (
	"github.com/packrat-cache/packrat/internal/types"
)

type (
	// BackendError wraps a failure from a single storage backend.
	BackendError = types.BackendError
	// BackendFailure pairs a backend name with the error it produced.
	BackendFailure = types.BackendFailure
	// UnavailableError reports that every backend rejected an operation,
	// with one diagnostic per backend.
	UnavailableError = types.UnavailableError
)

var (
	// ErrEntryNotFound indicates that a requested key is not cached.
	ErrEntryNotFound = types.ErrEntryNotFound
	// ErrBackendUnavailable indicates that a backend cannot serve requests.
	ErrBackendUnavailable = types.ErrBackendUnavailable
	// ErrQuotaExceeded indicates that a backend's own capacity is exhausted.
	ErrQuotaExceeded = types.ErrQuotaExceeded
	// ErrClosed indicates that the engine has been closed.
	ErrClosed = types.ErrClosed
	// ErrInvalidRule indicates a structurally invalid rule.
	ErrInvalidRule = types.ErrInvalidRule
)

// IsNotFound returns true if the error is the normal "no such key" result.
func IsNotFound(err error) bool {
	return types.IsNotFound(err)
}

// IsStorageUnavailable returns true if every backend failed an operation.
func IsStorageUnavailable(err error) bool {
	return types.IsStorageUnavailable(err)
}

// IsQuotaExceeded returns true if a backend rejected a write for capacity.
func IsQuotaExceeded(err error) bool {
	return types.IsQuotaExceeded(err)
}

// IsInvalidRule returns true if a rule set was rejected as invalid.
func IsInvalidRule(err error) bool {
	return types.IsInvalidRule(err)
}
