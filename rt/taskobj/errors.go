package taskobj

import "errors"

var (
	// ErrNilScheduler is returned by New when the scheduler is nil.
	ErrNilScheduler = errors.New("taskobj: nil scheduler")
	// ErrNilRunner is returned by New when the task body is nil.
	ErrNilRunner = errors.New("taskobj: nil runner")
	// ErrInvalidPriority is returned by New for a negative priority.
	ErrInvalidPriority = errors.New("taskobj: invalid priority")
	// ErrInvalidStackDepth is returned by New for a negative stack depth.
	ErrInvalidStackDepth = errors.New("taskobj: invalid stack depth")

	// ErrCreateFailed wraps the scheduler error when Start could not create the task.
	ErrCreateFailed = errors.New("taskobj: task creation failed")
	// ErrAlreadyStarted is returned by Start when the task is already scheduled.
	ErrAlreadyStarted = errors.New("taskobj: already started")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("taskobj: closed")
)
