package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type kernelState int

const (
	kernelNotStarted kernelState = iota
	kernelRunning
	kernelStopping
	kernelStopped
)

var _ Scheduler = (*Kernel)(nil)

// Kernel is the reference Scheduler. It is safe for concurrent use.
type Kernel struct {
	cfg config
	log *slog.Logger

	// baseCtx is the parent of every task context; canceled by Shutdown.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	state   kernelState
	tick    uint64
	tasks   map[Handle]*tcb
	ready   [][]*tcb // FIFO per priority
	delayed []*tcb   // blocked tasks, in the order they blocked
	current *tcb

	lastHandle uint64
	created    uint64
	deleted    uint64
	heapUsed   int

	// idle is closed while no task is running or ready. Replaced when the kernel becomes busy.
	idle chan struct{}

	stopTicker context.CancelFunc

	wg sync.WaitGroup // task goroutines + tick source
}

// New creates a Kernel. No task runs until Start.
func New(opts ...Option) *Kernel {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.maxPriorities <= 0 {
		panic(fmt.Sprintf("kernel: WithMaxPriorities(%d) is invalid (must be > 0)", cfg.maxPriorities))
	}
	if cfg.maxTasks < 0 {
		panic(fmt.Sprintf("kernel: WithMaxTasks(%d) is invalid (must be >= 0)", cfg.maxTasks))
	}
	if cfg.heapSize < 0 {
		panic(fmt.Sprintf("kernel: WithHeapSize(%d) is invalid (must be >= 0)", cfg.heapSize))
	}
	log := cfg.logger
	if log == nil {
		log = slog.Default()
	}

	k := &Kernel{
		cfg:   cfg,
		log:   log.With("component", "kernel"),
		tasks: make(map[Handle]*tcb),
		ready: make([][]*tcb, cfg.maxPriorities),
		idle:  make(chan struct{}),
	}
	k.baseCtx, k.baseCancel = context.WithCancel(context.Background())
	return k
}

// CanDelete reports whether DeleteTask is supported.
func (k *Kernel) CanDelete() bool { return k.cfg.deleteSupported }

// MaxPriorities returns the number of priority levels.
func (k *Kernel) MaxPriorities() int { return k.cfg.maxPriorities }

// CreateTask registers a new task in the ready state.
//
// The name is trimmed and cut to MaxTaskNameLen bytes. Priorities outside [0, MaxPriorities) are clamped.
// If the kernel is started and idle, the new task is dispatched before CreateTask returns.
func (k *Kernel) CreateTask(entry EntryFunc, name string, stackDepth int, arg any, priority Priority) (Handle, error) {
	if entry == nil {
		return NoHandle, ErrNilEntry
	}
	if stackDepth <= 0 {
		return NoHandle, fmt.Errorf("%w: %d", ErrInvalidStackDepth, stackDepth)
	}
	name = normalizeName(name)
	priority = k.clampPriority(priority)

	k.mu.Lock()
	if k.state >= kernelStopping {
		k.mu.Unlock()
		return NoHandle, ErrClosed
	}
	if k.cfg.maxTasks > 0 && len(k.tasks) >= k.cfg.maxTasks {
		k.mu.Unlock()
		return NoHandle, fmt.Errorf("%w: limit %d", ErrTooManyTasks, k.cfg.maxTasks)
	}
	if k.cfg.heapSize > 0 && k.heapUsed+stackDepth > k.cfg.heapSize {
		free := k.cfg.heapSize - k.heapUsed
		k.mu.Unlock()
		return NoHandle, fmt.Errorf("%w: stack %d, free %d", ErrNoMemory, stackDepth, free)
	}

	k.lastHandle++
	t := &tcb{
		k:          k,
		handle:     Handle(k.lastHandle),
		name:       name,
		priority:   priority,
		stackDepth: stackDepth,
		entry:      entry,
		arg:        arg,
		resume:     make(chan struct{}, 1),
		state:      StateReady,
	}
	t.ctx, t.cancel = context.WithCancel(context.WithValue(k.baseCtx, taskKey{}, t))

	k.tasks[t.handle] = t
	k.heapUsed += stackDepth
	k.created++
	k.pushReadyLocked(t)

	k.wg.Add(1)
	go k.run(t)

	k.dispatchLocked()
	k.mu.Unlock()

	k.log.Debug("task created", "handle", t.handle, "name", name, "priority", int(priority), "stack_depth", stackDepth)
	return t.handle, nil
}

// DeleteTask removes a task from the kernel. It does not wait for the task's goroutine to unwind.
func (k *Kernel) DeleteTask(h Handle) error {
	if !k.cfg.deleteSupported {
		return ErrDeleteUnsupported
	}
	k.mu.Lock()
	t, ok := k.tasks[h]
	if !ok {
		k.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	k.removeLocked(t)
	k.mu.Unlock()

	k.log.Debug("task deleted", "handle", h, "name", t.name)
	return nil
}

// Start begins dispatching tasks, and starts the tick source if WithTickPeriod was set.
// The tick source stops when ctx is done or on Shutdown.
//
// If ctx is nil, it is treated as context.Background().
func (k *Kernel) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	k.mu.Lock()
	switch k.state {
	case kernelNotStarted:
	case kernelRunning:
		k.mu.Unlock()
		return ErrAlreadyStarted
	default:
		k.mu.Unlock()
		return ErrClosed
	}
	k.state = kernelRunning
	if k.cfg.tickPeriod > 0 {
		tickCtx, cancel := context.WithCancel(ctx)
		k.stopTicker = cancel
		k.wg.Add(1)
		go k.tickLoop(tickCtx, k.cfg.tickPeriod)
	}
	k.dispatchLocked()
	n := len(k.tasks)
	k.mu.Unlock()

	k.log.Info("kernel started", "tasks", n, "tick_period", k.cfg.tickPeriod, "delete_supported", k.cfg.deleteSupported)
	return nil
}

// Shutdown deletes every task, stops the tick source and waits for all kernel goroutines to exit.
// Tasks are torn down even when deletion is not supported.
//
// A running task is unwound at its next kernel call; if it never makes one, Shutdown returns
// ctx.Err() when ctx is done. Shutdown is safe to call multiple times and without Start.
//
// If ctx is nil, it is treated as context.Background().
func (k *Kernel) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	k.mu.Lock()
	switch k.state {
	case kernelNotStarted, kernelRunning:
		k.state = kernelStopping
		for _, t := range k.sortedTasksLocked() {
			k.removeLocked(t)
		}
		if k.stopTicker != nil {
			k.stopTicker()
		}
		k.markIdleLocked()
	case kernelStopping:
		// A previous Shutdown timed out; wait again.
	case kernelStopped:
		k.mu.Unlock()
		return nil
	}
	k.mu.Unlock()
	k.baseCancel()

	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		k.mu.Lock()
		k.state = kernelStopped
		k.mu.Unlock()
		k.log.Info("kernel stopped", "tick", k.TickCount())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait waits until all kernel goroutines (tasks + tick source) have exited.
func (k *Kernel) Wait() {
	k.wg.Wait()
}

// Tick advances the tick count by one and readies every task whose delay has expired.
// It does not wait for the readied tasks to run. Tick is a no-op unless the kernel is running.
func (k *Kernel) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.state != kernelRunning {
		return
	}
	k.tick++
	k.wakeDueLocked()
	k.dispatchLocked()
}

// Advance performs n ticks, waiting after each one until the kernel is idle.
func (k *Kernel) Advance(ctx context.Context, n uint64) error {
	if err := k.WaitIdle(ctx); err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		k.Tick()
		if err := k.WaitIdle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// WaitIdle blocks until no task is running or ready.
//
// It returns ErrNotStarted before Start and ErrClosed once Shutdown began.
// If ctx is nil, it is treated as context.Background().
func (k *Kernel) WaitIdle(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	k.mu.Lock()
	switch k.state {
	case kernelNotStarted:
		k.mu.Unlock()
		return ErrNotStarted
	case kernelStopping, kernelStopped:
		k.mu.Unlock()
		return ErrClosed
	}
	idle := k.idle
	k.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TickCount returns the number of ticks since Start.
func (k *Kernel) TickCount() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tick
}

// Lookup returns the status of a live task.
func (k *Kernel) Lookup(h Handle) (Status, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t, ok := k.tasks[h]
	if !ok {
		return Status{}, false
	}
	return t.statusLocked(), true
}

// Snapshot returns a point-in-time view of all live tasks, ordered by handle.
func (k *Kernel) Snapshot() Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	snap := Snapshot{
		Tick:     k.tick,
		Created:  k.created,
		Deleted:  k.deleted,
		HeapUsed: k.heapUsed,
		HeapSize: k.cfg.heapSize,
	}
	if k.current != nil {
		snap.Running = k.current.handle
	}
	tasks := k.sortedTasksLocked()
	snap.Tasks = make([]Status, 0, len(tasks))
	for _, t := range tasks {
		snap.Tasks = append(snap.Tasks, t.statusLocked())
	}
	return snap
}

func (k *Kernel) clampPriority(p Priority) Priority {
	if p < IdlePriority {
		return IdlePriority
	}
	if top := Priority(k.cfg.maxPriorities - 1); p > top {
		return top
	}
	return p
}

func (k *Kernel) sortedTasksLocked() []*tcb {
	out := make([]*tcb, 0, len(k.tasks))
	for _, t := range k.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}

func (k *Kernel) tickLoop(ctx context.Context, period time.Duration) {
	defer k.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Tick()
		}
	}
}
