package kernel

import (
	"context"
	"runtime"
)

type taskKey struct{}

func taskFrom(ctx context.Context) *tcb {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(taskKey{}).(*tcb)
	return t
}

func mustTask(ctx context.Context, op string) *tcb {
	t := taskFrom(ctx)
	if t == nil {
		panic("kernel: " + op + " called outside a kernel task")
	}
	return t
}

// Current reports the handle of the kernel task ctx belongs to.
func Current(ctx context.Context) (Handle, bool) {
	t := taskFrom(ctx)
	if t == nil {
		return NoHandle, false
	}
	return t.handle, true
}

// Delay blocks the calling task for ticks kernel ticks and gives the core to the next ready task.
// Delay(ctx, 0) is equivalent to Yield.
//
// ctx must be the context the task's entry function received; Delay panics otherwise.
// If the task is deleted while blocked, Delay does not return (the goroutine is unwound).
func Delay(ctx context.Context, ticks uint64) {
	t := mustTask(ctx, "Delay")
	if ticks == 0 {
		Yield(ctx)
		return
	}
	k := t.k
	k.mu.Lock()
	k.enterLocked(t, "Delay")
	t.state = StateBlocked
	t.wakeTick = k.tick + ticks
	k.delayed = append(k.delayed, t)
	k.current = nil
	k.dispatchLocked()
	k.mu.Unlock()

	t.await()
}

// Yield gives the core to the next ready task of the same or higher priority, if there is one.
// Otherwise it returns immediately.
func Yield(ctx context.Context) {
	t := mustTask(ctx, "Yield")
	k := t.k
	k.mu.Lock()
	k.enterLocked(t, "Yield")
	if !k.hasReadyAtLeastLocked(t.priority) {
		k.mu.Unlock()
		return
	}
	t.state = StateReady
	k.pushReadyLocked(t)
	k.current = nil
	k.dispatchLocked()
	k.mu.Unlock()

	t.await()
}

// Exit ends the calling task and never returns.
//
// When deletion is supported the task is removed from the kernel. Otherwise it keeps its slot in
// the exited state.
func Exit(ctx context.Context) {
	t := mustTask(ctx, "Exit")
	k := t.k
	k.mu.Lock()
	k.enterLocked(t, "Exit")
	if k.cfg.deleteSupported {
		k.removeLocked(t)
	}
	k.mu.Unlock()

	k.log.Debug("task exited", "handle", t.handle, "name", t.name, "deleted", k.cfg.deleteSupported)
	runtime.Goexit()
}
