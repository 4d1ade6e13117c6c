package taskobj

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evan-idocoding/rtobj/rt/kernel"
)

// ReleaseResult reports what Release did with the owned handle.
type ReleaseResult int

const (
	// ReleaseNone means no handle was held.
	ReleaseNone ReleaseResult = iota
	// ReleaseDeleted means the scheduler deleted the task.
	ReleaseDeleted
	// ReleaseAbandoned means the scheduler cannot delete tasks; the task keeps running unowned.
	ReleaseAbandoned
)

func (r ReleaseResult) String() string {
	switch r {
	case ReleaseNone:
		return "none"
	case ReleaseDeleted:
		return "deleted"
	case ReleaseAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("ReleaseResult(%d)", int(r))
	}
}

// Owner holds at most one scheduler handle and releases it at most once.
//
// The zero value holds nothing; Release on it is a no-op. An Owner must not be copied.
type Owner struct {
	mu     sync.Mutex
	sched  kernel.Scheduler
	handle kernel.Handle
	log    *slog.Logger
}

// Handle returns the owned handle, or kernel.NoHandle.
func (o *Owner) Handle() kernel.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle
}

// Owned reports whether a handle is held.
func (o *Owner) Owned() bool {
	return o.Handle().Valid()
}

// acquire stores the handle returned by create. The owner stays locked while create runs, so a task
// that releases itself early waits for the handle to be recorded.
func (o *Owner) acquire(sched kernel.Scheduler, create func() (kernel.Handle, error)) (kernel.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.handle.Valid() {
		panic(fmt.Sprintf("taskobj: owner already holds handle %s", o.handle))
	}
	h, err := create()
	if err != nil {
		return kernel.NoHandle, err
	}
	if !h.Valid() {
		return kernel.NoHandle, errors.New("scheduler returned no handle")
	}
	o.sched = sched
	o.handle = h
	return h, nil
}

// Release gives up the owned handle.
//
// If no handle is held it does nothing. If the scheduler can delete tasks, the task is deleted.
// Otherwise the handle is abandoned: the task keeps running and is no longer owned by anyone.
//
// A task the scheduler no longer knows (it exited on its own or the scheduler shut down) is already
// gone: the handle is cleared and ReleaseNone returned. If the scheduler fails to delete a task it still
// knows, the handle is kept and the error returned.
func (o *Owner) Release() (ReleaseResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := o.handle
	if !h.Valid() {
		return ReleaseNone, nil
	}
	if !o.sched.CanDelete() {
		o.handle = kernel.NoHandle
		o.logger().Warn("task deletion not supported, handle abandoned", "handle", h)
		return ReleaseAbandoned, nil
	}
	if err := o.sched.DeleteTask(h); err != nil {
		if errors.Is(err, kernel.ErrUnknownHandle) {
			o.handle = kernel.NoHandle
			o.logger().Debug("task already gone, handle cleared", "handle", h)
			return ReleaseNone, nil
		}
		return ReleaseNone, fmt.Errorf("taskobj: delete task %s: %w", h, err)
	}
	o.handle = kernel.NoHandle
	return ReleaseDeleted, nil
}

// handleLookup is implemented by schedulers that can report whether a handle is still live.
type handleLookup interface {
	Lookup(h kernel.Handle) (kernel.Status, bool)
}

// forgetIfGone clears the handle when the scheduler no longer knows the task.
// Schedulers without Lookup are trusted to still hold it.
func (o *Owner) forgetIfGone() {
	o.mu.Lock()
	defer o.mu.Unlock()
	h := o.handle
	if !h.Valid() {
		return
	}
	q, ok := o.sched.(handleLookup)
	if !ok {
		return
	}
	if _, known := q.Lookup(h); !known {
		o.handle = kernel.NoHandle
		o.logger().Debug("task left the scheduler, handle cleared", "handle", h)
	}
}

func (o *Owner) logger() *slog.Logger {
	if o.log != nil {
		return o.log
	}
	return slog.Default()
}
