package errors

import (
	"errors"
	"fmt"
)

// Orchestrator errors.
var (
	ErrSyncDisabled   = errors.New("sync is disabled")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrAllDomains     = errors.New("all domains failed to sync")
)

// NetworkError wraps a failure talking to the remote store: a transport
// error, or a non-success HTTP status. It is transient by nature; the
// call that raised it is skipped for the current cycle and retried on
// the next one.
type NetworkError struct {
	Endpoint string
	Status   int // 0 when the request never produced a response
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("network: %s returned status %d: %v", e.Endpoint, e.Status, e.Err)
	}

	return fmt.Sprintf("network: %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err (or any error in its chain) is a
// NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// ValidationError marks a single record whose shape does not match the
// domain contract. The record is dropped with a warning; the rest of
// its collection is processed normally.
type ValidationError struct {
	Domain string
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s record %q: %s", e.Domain, e.ID, e.Reason)
}

// StorageError wraps a failure of the local store. Readers treat it as
// an empty collection (fail-open); writers surface it to the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConfigError rejects an invalid configuration value. The previous
// valid configuration remains in effect.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}
