package runner

import (
	stderrors "errors"
	"fmt"
)

// ErrKilled is returned by Process.Wait when the process was stopped with Kill.
var ErrKilled = stderrors.New("process killed")

// SpawnError reports an executable that could not be started at all.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not start %q (%v); check the configured executable path", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a process that exited non-zero without writing anything
// to stdout.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("process exited with code %d", e.Code)
}
