package subprocess

import "errors"

// Sentinel errors for subject process failures. Callers detect them with
// errors.Is; the messages the harness reports are built by the conformance
// layer, not here.

var (
	// ErrTimeout is returned when a line read, line write or wait did not
	// complete within the configured bound. The subject process is killed
	// and reaped before this error propagates, so a caller observing it can
	// rely on the process being gone.
	ErrTimeout = errors.New("subprocess: operation timed out")

	// ErrStdinUnavailable is returned by WriteLine when the subject reads
	// its stdin from a file instead of a pipe.
	ErrStdinUnavailable = errors.New("subprocess: stdin is not piped")

	// ErrBinaryNotFound is returned when the subject binary path does not
	// exist.
	ErrBinaryNotFound = errors.New("subprocess: binary not found")

	// ErrBinaryNotExecutable is returned when the subject binary exists but
	// has no execute permission.
	ErrBinaryNotExecutable = errors.New("subprocess: binary not executable")
)
