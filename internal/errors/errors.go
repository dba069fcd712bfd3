// Package errors provides the error taxonomy for the backup and recovery subsystem.
package errors

import (
	"errors"
	"fmt"
)

// Record store errors
var (
	// ErrConnectivity is returned when the record store cannot be reached.
	ErrConnectivity = errors.New("record store unreachable")

	// ErrUnknownCollection is returned for a collection outside the protected catalog.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrRecordNotFound is returned by natural-key lookups that match nothing.
	ErrRecordNotFound = errors.New("record not found")

	// ErrMissingNaturalKey is returned when a record carries none of its collection's key fields.
	ErrMissingNaturalKey = errors.New("record has no natural key")
)

// Backup file errors
var (
	// ErrNotFound is returned when a stored snapshot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrChecksumMismatch is returned when a stored checksum does not match its collections.
	ErrChecksumMismatch = errors.New("checksum mismatch — backup may be corrupted")

	// ErrTotalRecordsMismatch is returned when totalRecords disagrees with the stored collections.
	ErrTotalRecordsMismatch = errors.New("totalRecords does not match the stored collections")

	// ErrOutsideBackupRoots is returned for paths outside every configured backup location.
	ErrOutsideBackupRoots = errors.New("path is outside the configured backup locations")

	// ErrNoLocations is returned when a writer has no locations configured.
	ErrNoLocations = errors.New("no backup locations configured")

	// ErrIdentityRequired is returned when decoding an encrypted copy without an identity.
	ErrIdentityRequired = errors.New("encrypted backup requires an age identity")
)

// Restore errors
var (
	// ErrRestoreInProgress is returned when another restore holds the restore lock.
	ErrRestoreInProgress = errors.New("a restore is already in progress")

	// ErrInvalidSnapshot is returned when restore is attempted with an unvalidated snapshot.
	ErrInvalidSnapshot = errors.New("snapshot has not passed validation")
)

// CollectionReadError reports a failed read of a single protected collection.
type CollectionReadError struct {
	Collection string
	Err        error
}

func (e *CollectionReadError) Error() string {
	return fmt.Sprintf("reading collection %s: %v", e.Collection, e.Err)
}

func (e *CollectionReadError) Unwrap() error {
	return e.Err
}

// ValidationError describes why a stored snapshot was rejected.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "missing field " + e.Field
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MissingField builds the validation error for an absent top-level field.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// PreRestoreBackupError aborts a restore when the safety-net snapshot could not be taken.
type PreRestoreBackupError struct {
	Err error
}

func (e *PreRestoreBackupError) Error() string {
	return fmt.Sprintf("pre-recovery backup failed: %v", e.Err)
}

func (e *PreRestoreBackupError) Unwrap() error {
	return e.Err
}

// RecordRestoreError reports a single record that could not be applied.
type RecordRestoreError struct {
	Collection string
	Key        string
	Err        error
}

func (e *RecordRestoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("restoring record in %s: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("restoring %s record %s: %v", e.Collection, e.Key, e.Err)
}

func (e *RecordRestoreError) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err means the record store is unreachable.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}
