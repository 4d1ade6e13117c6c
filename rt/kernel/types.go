package kernel

import (
	"context"
	"fmt"
)

// Handle identifies a task known to a scheduler.
type Handle uint64

// NoHandle is the zero Handle. Schedulers never issue it.
const NoHandle Handle = 0

// Valid reports whether h is not NoHandle.
func (h Handle) Valid() bool { return h != NoHandle }

func (h Handle) String() string {
	if h == NoHandle {
		return "none"
	}
	return fmt.Sprintf("#%d", uint64(h))
}

// Priority orders ready tasks. Higher values run first.
type Priority int

const (
	// IdlePriority is the lowest priority.
	IdlePriority Priority = 0
	// DefaultPriority is the lowest priority above idle.
	DefaultPriority Priority = 1
	// DefaultMaxPriorities is the number of priority levels when WithMaxPriorities is not used.
	DefaultMaxPriorities = 5
)

const (
	// MinimalStackSize is the smallest stack depth a task is expected to run with, in words.
	MinimalStackSize = 128
	// MaxTaskNameLen is the maximum stored length of a task name, in bytes.
	MaxTaskNameLen = 16
)

// EntryFunc is a task entry point. arg is the value given to CreateTask.
//
// ctx identifies the task to the kernel (see Delay, Yield, Exit, Current) and is canceled when the task
// is deleted.
type EntryFunc func(ctx context.Context, arg any)

// Scheduler is the task API consumed by the object layer.
type Scheduler interface {
	// CreateTask registers a task that will run entry(ctx, arg) on the scheduler's execution context.
	// The task may start running before CreateTask returns.
	CreateTask(entry EntryFunc, name string, stackDepth int, arg any, priority Priority) (Handle, error)

	// DeleteTask removes a task. It does not wait for the task to stop.
	DeleteTask(h Handle) error

	// CanDelete reports whether DeleteTask is supported.
	CanDelete() bool
}

// State is the scheduling state of a task.
type State int

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateExited
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateExited:
		return "exited"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a task state snapshot.
type Status struct {
	Handle     Handle
	Name       string
	Priority   Priority
	StackDepth int
	State      State

	// Runs counts how many times the task was dispatched.
	Runs uint64
	// WakeTick is the tick a blocked task becomes ready at. Zero otherwise.
	WakeTick uint64
	// LastPanic is the formatted value of the panic that ended the task, if any.
	LastPanic string
}

// Snapshot is a point-in-time view of a Kernel.
type Snapshot struct {
	Tick    uint64
	Running Handle

	Created uint64
	Deleted uint64

	HeapUsed int
	// HeapSize is zero when the heap is unbounded.
	HeapSize int

	Tasks []Status
}

// Get finds a task status by handle.
func (s Snapshot) Get(h Handle) (Status, bool) {
	for _, st := range s.Tasks {
		if st.Handle == h {
			return st, true
		}
	}
	return Status{}, false
}

// PanicInfo describes a panic recovered from a task.
type PanicInfo struct {
	Handle Handle
	Name   string
	Value  any
	Stack  []byte
}

// PanicHandler is called after a task panicked. It runs on the task's goroutine after the task has
// given up the core.
type PanicHandler func(info PanicInfo)
