package kernel

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when called more than once.
	ErrAlreadyStarted = errors.New("kernel: already started")
	// ErrNotStarted is returned when an operation requires a started kernel.
	ErrNotStarted = errors.New("kernel: not started")
	// ErrClosed is returned when the kernel is shutting down or already stopped.
	ErrClosed = errors.New("kernel: closed")

	// ErrNilEntry is returned by CreateTask when entry is nil.
	ErrNilEntry = errors.New("kernel: nil entry function")
	// ErrInvalidStackDepth is returned by CreateTask when stackDepth <= 0.
	ErrInvalidStackDepth = errors.New("kernel: invalid stack depth")
	// ErrNoMemory is returned by CreateTask when the stack does not fit the remaining heap.
	ErrNoMemory = errors.New("kernel: could not allocate required memory")
	// ErrTooManyTasks is returned by CreateTask when every task slot is in use.
	ErrTooManyTasks = errors.New("kernel: too many tasks")

	// ErrUnknownHandle is returned by DeleteTask for a handle the kernel does not know.
	ErrUnknownHandle = errors.New("kernel: unknown task handle")
	// ErrDeleteUnsupported is returned by DeleteTask when the kernel was built without deletion.
	ErrDeleteUnsupported = errors.New("kernel: task deletion not supported")
)
