package kernel

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
)

// tcb is the kernel's per-task record. Fields below resume are guarded by k.mu.
type tcb struct {
	k *Kernel

	handle     Handle
	name       string
	priority   Priority
	stackDepth int

	entry EntryFunc
	arg   any

	ctx    context.Context
	cancel context.CancelFunc

	// resume wakes the task goroutine: either it was dispatched or it was deleted.
	resume chan struct{}

	state     State
	wakeTick  uint64
	runs      uint64
	lastPanic string
}

func (t *tcb) statusLocked() Status {
	return Status{
		Handle:     t.handle,
		Name:       t.name,
		Priority:   t.priority,
		StackDepth: t.stackDepth,
		State:      t.state,
		Runs:       t.runs,
		WakeTick:   t.wakeTick,
		LastPanic:  t.lastPanic,
	}
}

func (t *tcb) signal() {
	select {
	case t.resume <- struct{}{}:
	default:
	}
}

// await parks the task goroutine until it is dispatched. A deleted task never returns from await.
func (t *tcb) await() {
	<-t.resume
	t.k.mu.Lock()
	deleted := t.state == StateDeleted
	t.k.mu.Unlock()
	if deleted {
		runtime.Goexit()
	}
}

// run is the goroutine body of every task.
func (k *Kernel) run(t *tcb) {
	defer k.wg.Done()
	defer k.finish(t)

	t.await()
	t.entry(t.ctx, t.arg)
}

// finish releases the core held by t (if any) after its entry returned, panicked or was unwound.
func (k *Kernel) finish(t *tcb) {
	r := recover()
	var stack []byte
	if r != nil {
		stack = debug.Stack()
	}

	k.mu.Lock()
	exited := t.state != StateDeleted
	if exited {
		t.state = StateExited
		t.wakeTick = 0
		if r != nil {
			t.lastPanic = fmt.Sprint(r)
		}
	}
	if k.current == t {
		k.current = nil
		k.dispatchLocked()
	}
	k.mu.Unlock()

	if r != nil {
		k.log.Warn("task panicked", "handle", t.handle, "name", t.name, "value", r)
		info := PanicInfo{Handle: t.handle, Name: t.name, Value: r, Stack: stack}
		if k.cfg.onPanic != nil {
			callPanicHandlerNoPanic(k.cfg.onPanic, info)
		} else {
			reportPanicToStderr(info)
		}
		return
	}
	if exited {
		k.log.Debug("task returned", "handle", t.handle, "name", t.name)
	}
}

// dispatchLocked gives the core to the highest-priority ready task if the core is free.
func (k *Kernel) dispatchLocked() {
	if k.current != nil || k.state != kernelRunning {
		return
	}
	t := k.popReadyLocked()
	if t == nil {
		k.markIdleLocked()
		return
	}
	k.markBusyLocked()
	k.current = t
	t.state = StateRunning
	t.runs++
	t.signal()
}

// enterLocked validates a kernel call made by t. It returns with k.mu held, or releases k.mu and
// does not return (t was deleted, or t is not the running task).
func (k *Kernel) enterLocked(t *tcb, op string) {
	if t.state == StateDeleted {
		k.mu.Unlock()
		runtime.Goexit()
	}
	if k.current != t {
		k.mu.Unlock()
		panic(fmt.Sprintf("kernel: %s called by task %s while it is not running", op, t.handle))
	}
}

// removeLocked takes t out of the kernel. The running task keeps the core until its next kernel call.
func (k *Kernel) removeLocked(t *tcb) {
	switch t.state {
	case StateDeleted:
		return
	case StateReady:
		k.removeReadyLocked(t)
	case StateBlocked:
		k.removeDelayedLocked(t)
	}
	t.state = StateDeleted
	t.wakeTick = 0
	delete(k.tasks, t.handle)
	k.heapUsed -= t.stackDepth
	k.deleted++
	t.cancel()
	if k.current != t {
		t.signal()
	}
}

func (k *Kernel) pushReadyLocked(t *tcb) {
	k.ready[t.priority] = append(k.ready[t.priority], t)
}

func (k *Kernel) popReadyLocked() *tcb {
	for p := len(k.ready) - 1; p >= 0; p-- {
		q := k.ready[p]
		if len(q) == 0 {
			continue
		}
		t := q[0]
		q[0] = nil
		k.ready[p] = q[1:]
		return t
	}
	return nil
}

func (k *Kernel) hasReadyAtLeastLocked(p Priority) bool {
	for i := len(k.ready) - 1; i >= int(p); i-- {
		if len(k.ready[i]) > 0 {
			return true
		}
	}
	return false
}

func (k *Kernel) removeReadyLocked(t *tcb) {
	k.ready[t.priority] = removeTCB(k.ready[t.priority], t)
}

func (k *Kernel) removeDelayedLocked(t *tcb) {
	k.delayed = removeTCB(k.delayed, t)
}

func removeTCB(list []*tcb, t *tcb) []*tcb {
	for i, x := range list {
		if x == t {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

// wakeDueLocked readies blocked tasks whose wake tick has been reached, in the order they blocked.
func (k *Kernel) wakeDueLocked() {
	kept := k.delayed[:0]
	for _, t := range k.delayed {
		if t.wakeTick <= k.tick {
			t.state = StateReady
			t.wakeTick = 0
			k.pushReadyLocked(t)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(k.delayed); i++ {
		k.delayed[i] = nil
	}
	k.delayed = kept
}

func (k *Kernel) markIdleLocked() {
	select {
	case <-k.idle:
	default:
		close(k.idle)
	}
}

func (k *Kernel) markBusyLocked() {
	select {
	case <-k.idle:
		k.idle = make(chan struct{})
	default:
	}
}
