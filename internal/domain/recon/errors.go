package recon

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable aborts a run before any mutation: if the engine cannot
// read its starting snapshot, no decision it could make is trustworthy.
var ErrStoreUnavailable = errors.New("store unavailable")

// NotFoundError marks an expected target record or case that is missing.
// Logged and skipped, never fatal.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// WriteConflictError marks a single rejected write during a bulk pass. The
// batch records it and continues.
type WriteConflictError struct {
	RecordID string
	Err      error
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("write rejected for %s: %v", e.RecordID, e.Err)
}

func (e *WriteConflictError) Unwrap() error { return e.Err }

// MalformedInputError marks an unparseable mapping entry or input file. The
// entry is skipped with a recorded reason.
type MalformedInputError struct {
	Detail string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed input: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("malformed input: %s", e.Detail)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// BackupWriteError is fatal: destructive passes refuse to run without the
// pre-state safety net on disk.
type BackupWriteError struct {
	Path string
	Err  error
}

func (e *BackupWriteError) Error() string {
	return fmt.Sprintf("write backup %s: %v", e.Path, e.Err)
}

func (e *BackupWriteError) Unwrap() error { return e.Err }
