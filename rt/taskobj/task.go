package taskobj

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evan-idocoding/rtobj/rt/kernel"
)

// Runner is a task body.
//
// ctx identifies the running task to the scheduler (kernel.Delay, kernel.Yield, ...), carries the
// owning *Task (see Self) and is canceled when the task is deleted. A body that wants to end itself
// calls Exit(ctx), which releases the handle before leaving the scheduler.
type Runner interface {
	Task(ctx context.Context)
}

// State is the lifecycle state of a Task.
type State int

const (
	// StateUnscheduled: constructed, no scheduler task yet (or creation failed).
	StateUnscheduled State = iota
	// StateScheduled: the scheduler knows the task and this object owns its handle.
	StateScheduled
	// StateTerminated: the handle was released.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnscheduled:
		return "unscheduled"
	case StateScheduled:
		return "scheduled"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Task ties one Runner to one scheduler task. Use it by pointer only.
type Task struct {
	Owner

	sched  kernel.Scheduler
	runner Runner

	name       string
	priority   kernel.Priority
	stackDepth int
	onReturn   ReturnPolicy
	log        *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

// New validates the configuration and returns an unscheduled Task. It does not contact the scheduler.
func New(sched kernel.Scheduler, name string, r Runner, opts ...Option) (*Task, error) {
	if sched == nil {
		return nil, ErrNilScheduler
	}
	if r == nil {
		return nil, ErrNilRunner
	}
	c := defaultTaskConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.priority < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, c.priority)
	}
	if c.stackDepth < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStackDepth, c.stackDepth)
	}
	log := c.logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("task", name)

	t := &Task{
		sched:      sched,
		runner:     r,
		name:       name,
		priority:   c.priority,
		stackDepth: c.stackDepth,
		onReturn:   c.onReturn,
		log:        log,
	}
	t.Owner.log = log
	return t, nil
}

// Spawn is New followed by Start.
func Spawn(sched kernel.Scheduler, name string, r Runner, opts ...Option) (*Task, error) {
	t, err := New(sched, name, r, opts...)
	if err != nil {
		return nil, err
	}
	if err := t.Start(); err != nil {
		return nil, err
	}
	return t, nil
}

// Start asks the scheduler to create the task. The body may run before Start returns.
//
// Errors:
//   - ErrCreateFailed (wrapping the scheduler error): the task stays unscheduled; Start may be retried.
//   - ErrAlreadyStarted: the task is scheduled.
//   - ErrClosed: the handle was already released.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if t.started {
		if t.Owned() {
			return ErrAlreadyStarted
		}
		return ErrClosed
	}

	h, err := t.acquire(t.sched, func() (kernel.Handle, error) {
		return t.sched.CreateTask(trampoline, t.name, t.stackDepth, t, t.priority)
	})
	if err != nil {
		t.log.Warn("task creation failed", "error", err)
		return fmt.Errorf("%w: %q: %w", ErrCreateFailed, t.name, err)
	}
	t.started = true
	t.log.Debug("task scheduled", "handle", h, "priority", int(t.priority), "stack_depth", t.stackDepth)
	return nil
}

// Close releases the task. It is safe to call more than once and on a task that was never scheduled.
func (t *Task) Close() error {
	_, err := t.Terminate()
	return err
}

// Terminate is Close that also reports what happened to the handle.
func (t *Task) Terminate() (ReleaseResult, error) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	res, err := t.Release()
	if err != nil {
		t.log.Error("task release failed", "error", err)
		return res, err
	}
	if res != ReleaseNone {
		t.log.Debug("task released", "result", res.String())
	}
	return res, nil
}

// State returns the lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	started, closed := t.started, t.closed
	t.mu.Unlock()
	switch {
	case t.Owned():
		return StateScheduled
	case started || closed:
		return StateTerminated
	default:
		return StateUnscheduled
	}
}

// Name returns the configured name.
func (t *Task) Name() string { return t.name }

// Priority returns the requested priority. The scheduler may clamp it; kernel.Status.Priority holds
// the effective value.
func (t *Task) Priority() kernel.Priority { return t.priority }

// StackDepth returns the configured stack depth.
func (t *Task) StackDepth() int { return t.stackDepth }

// Runner returns the task body.
func (t *Task) Runner() Runner { return t.runner }

type selfKey struct{}

// Self returns the Task whose body is running with ctx.
func Self(ctx context.Context) (*Task, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(selfKey{}).(*Task)
	return t, ok
}

// Exit ends the calling task from inside its body: the owning Task releases its handle, then the
// task leaves the scheduler. Exit does not return.
func Exit(ctx context.Context) {
	if t, ok := Self(ctx); ok {
		_, _ = t.Terminate()
	}
	kernel.Exit(ctx)
}

// trampoline is the entry function of every Task.
func trampoline(ctx context.Context, arg any) {
	t := arg.(*Task)
	// The body may leave through kernel.Exit or a scheduler shutdown without telling the owner.
	defer t.forgetIfGone()

	ctx = context.WithValue(ctx, selfKey{}, t)
	t.runner.Task(ctx)
	t.bodyReturned(ctx)
}

func (t *Task) bodyReturned(ctx context.Context) {
	t.log.Debug("task body returned", "policy", t.onReturn.String())
	if t.onReturn == ReturnExit {
		if res, _ := t.Terminate(); res == ReleaseDeleted {
			return
		}
	}
	park(ctx)
}

// park never returns while the task is alive.
func park(ctx context.Context) {
	if _, ok := kernel.Current(ctx); !ok {
		<-ctx.Done()
		return
	}
	for {
		kernel.Delay(ctx, ParkTicks)
	}
}
