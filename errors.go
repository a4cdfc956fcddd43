package warden

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkerDead is returned by Send under RestartManual when the worker
	// process is gone and no automatic replacement is allowed.
	ErrWorkerDead = errors.New("worker process is dead")

	// ErrSupervisorClosed is returned by every operation after Close.
	ErrSupervisorClosed = errors.New("supervisor is closed")

	// ErrRestartThrottled is returned by Send when the restart rate limiter
	// refuses another automatic respawn. A worker crash-looping faster than
	// the configured budget surfaces here instead of spinning silently.
	ErrRestartThrottled = errors.New("worker restart throttled")

	// ErrInterrupted is the worker-side analogue of a keyboard interrupt.
	// A Processor returning (or panicking with) an error wrapping it makes
	// the worker loop exit immediately without emitting a result.
	ErrInterrupted = errors.New("worker interrupted")

	// ErrUnknownWorker is returned by NewSupervisor when the entry point was
	// never registered in this binary. The worker is this same executable
	// re-run, so an unregistered name could never start.
	ErrUnknownWorker = errors.New("worker entry point not registered")
)

// TaskError is a failure that happened inside the worker while processing a
// task. It travels back over the result pipe as a plain string, so only the
// message survives the process boundary.
type TaskError struct {
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("worker task error: %s", e.Message)
}
