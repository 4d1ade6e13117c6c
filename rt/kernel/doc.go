// Package kernel defines the scheduler capability consumed by package taskobj and provides a small,
// deterministic reference scheduler that implements it.
//
// # The capability
//
// Scheduler is the narrow task API the object layer depends on:
//
//	CreateTask(entry, name, stackDepth, arg, priority) (Handle, error)
//	DeleteTask(handle) error
//	CanDelete() bool
//
// The entry function receives the opaque arg it was created with, on the scheduler's own execution
// context. A Handle is never reused by a scheduler; NoHandle is the "unset" value.
//
// # The reference kernel
//
// Kernel is a single-core, priority-based scheduler. Every task runs on its own goroutine, but exactly
// one task executes at a time. The running task gives up the core only at kernel calls:
//
//   - Delay blocks the task for a number of ticks (Delay(ctx, 0) is a yield).
//   - Yield lets ready tasks of the same or higher priority run.
//   - Exit ends the task.
//
// or when its entry function returns. The highest-priority ready task is dispatched next; tasks of equal
// priority rotate round-robin. Tasks created while another task is running wait for that task's next
// kernel call.
//
// Nothing runs before Start:
//
//	k := kernel.New(kernel.WithTickPeriod(10 * time.Millisecond))
//	h, _ := k.CreateTask(entry, "blink", kernel.MinimalStackSize, arg, kernel.DefaultPriority)
//	_ = k.Start(ctx)
//	defer k.Shutdown(context.Background())
//
// Start is not idempotent: calling it more than once returns ErrAlreadyStarted.
//
// # Ticks
//
// With WithTickPeriod the kernel ticks itself. Without it, the caller drives time with Tick, and
// Advance/WaitIdle make runs deterministic:
//
//	_ = k.Start(ctx)
//	_ = k.Advance(ctx, 10) // ten ticks, each followed by running until every task is blocked
//
// # Deletion
//
// DeleteTask removes the task from the kernel immediately and does not wait for it. A task that is
// blocked or waiting to be dispatched is unwound with runtime.Goexit (its deferred calls run). The
// running task is unwound at its next kernel call. Resources the task body holds are not released
// by the kernel.
//
// WithDeleteSupported(false) models a build without task deletion: DeleteTask returns
// ErrDeleteUnsupported and CanDelete reports false. Shutdown always tears every task down.
//
// # Resources
//
// Stack depth is accounted against WithHeapSize; WithMaxTasks caps the number of task slots.
// Exhaustion makes CreateTask fail with ErrNoMemory or ErrTooManyTasks.
//
// A task whose entry function returns or panics keeps its slot (state exited) until it is deleted.
// Panics are recovered and reported via WithPanicHandler (stderr by default).
package kernel
