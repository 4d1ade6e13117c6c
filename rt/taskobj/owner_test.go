package taskobj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/evan-idocoding/rtobj/rt/kernel"
)

// fakeScheduler runs every entry on its own goroutine until the task is deleted.
type fakeScheduler struct {
	mu        sync.Mutex
	canDelete bool
	createErr error
	deleteErr error

	last    kernel.Handle
	live    map[kernel.Handle]context.CancelFunc
	created []createCall
	deleted []kernel.Handle
}

type createCall struct {
	name       string
	stackDepth int
	arg        any
	priority   kernel.Priority
}

func newFakeScheduler(canDelete bool) *fakeScheduler {
	return &fakeScheduler{canDelete: canDelete, live: make(map[kernel.Handle]context.CancelFunc)}
}

func (f *fakeScheduler) CreateTask(entry kernel.EntryFunc, name string, stackDepth int, arg any, priority kernel.Priority) (kernel.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return kernel.NoHandle, f.createErr
	}
	f.last++
	ctx, cancel := context.WithCancel(context.Background())
	f.live[f.last] = cancel
	f.created = append(f.created, createCall{name: name, stackDepth: stackDepth, arg: arg, priority: priority})
	go entry(ctx, arg)
	return f.last, nil
}

func (f *fakeScheduler) DeleteTask(h kernel.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.canDelete {
		return kernel.ErrDeleteUnsupported
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	cancel, ok := f.live[h]
	if !ok {
		return fmt.Errorf("%w: %s", kernel.ErrUnknownHandle, h)
	}
	cancel()
	delete(f.live, h)
	f.deleted = append(f.deleted, h)
	return nil
}

func (f *fakeScheduler) CanDelete() bool { return f.canDelete }

func (f *fakeScheduler) forget(h kernel.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cancel, ok := f.live[h]; ok {
		cancel()
		delete(f.live, h)
	}
}

func (f *fakeScheduler) setDeleteErr(err error) {
	f.mu.Lock()
	f.deleteErr = err
	f.mu.Unlock()
}

func (f *fakeScheduler) setCreateErr(err error) {
	f.mu.Lock()
	f.createErr = err
	f.mu.Unlock()
}

func (f *fakeScheduler) deletedHandles() []kernel.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kernel.Handle(nil), f.deleted...)
}

func (f *fakeScheduler) createCalls() []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createCall(nil), f.created...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func acquireFake(t *testing.T, o *Owner, f *fakeScheduler) kernel.Handle {
	t.Helper()
	h, err := o.acquire(f, func() (kernel.Handle, error) {
		return f.CreateTask(func(ctx context.Context, _ any) { <-ctx.Done() }, "x", kernel.MinimalStackSize, nil, kernel.DefaultPriority)
	})
	if err != nil {
		t.Fatalf("acquire err=%v", err)
	}
	return h
}

func TestOwner_ZeroValueReleaseIsNoOp(t *testing.T) {
	t.Parallel()

	var o Owner
	o.log = quietLogger()
	res, err := o.Release()
	if err != nil || res != ReleaseNone {
		t.Fatalf("Release=(%v, %v), want (none, nil)", res, err)
	}
	if o.Owned() {
		t.Fatalf("Owned=true, want false")
	}
}

func TestOwner_ReleaseDeletesExactlyOnce(t *testing.T) {
	t.Parallel()

	f := newFakeScheduler(true)
	var o Owner
	o.log = quietLogger()
	h := acquireFake(t, &o, f)
	if got := o.Handle(); got != h {
		t.Fatalf("Handle=%s, want %s", got, h)
	}

	res, err := o.Release()
	if err != nil || res != ReleaseDeleted {
		t.Fatalf("Release=(%v, %v), want (deleted, nil)", res, err)
	}
	res, err = o.Release()
	if err != nil || res != ReleaseNone {
		t.Fatalf("second Release=(%v, %v), want (none, nil)", res, err)
	}
	if got := f.deletedHandles(); len(got) != 1 || got[0] != h {
		t.Fatalf("deleted=%v, want [%s]", got, h)
	}
}

func TestOwner_ReleaseAbandonsWhenDeletionUnsupported(t *testing.T) {
	t.Parallel()

	f := newFakeScheduler(false)
	var o Owner
	o.log = quietLogger()
	acquireFake(t, &o, f)

	res, err := o.Release()
	if err != nil || res != ReleaseAbandoned {
		t.Fatalf("Release=(%v, %v), want (abandoned, nil)", res, err)
	}
	if o.Owned() {
		t.Fatalf("Owned=true after abandon, want false")
	}
	if got := f.deletedHandles(); len(got) != 0 {
		t.Fatalf("deleted=%v, want none", got)
	}
	if res, _ := o.Release(); res != ReleaseNone {
		t.Fatalf("second Release=%v, want none", res)
	}
}

func TestOwner_DeleteErrorKeepsHandle(t *testing.T) {
	t.Parallel()

	f := newFakeScheduler(true)
	var o Owner
	o.log = quietLogger()
	h := acquireFake(t, &o, f)

	busy := errors.New("busy")
	f.setDeleteErr(busy)
	if _, err := o.Release(); !errors.Is(err, busy) {
		t.Fatalf("Release err=%v, want busy", err)
	}
	if got := o.Handle(); got != h {
		t.Fatalf("Handle=%s after failed release, want %s", got, h)
	}

	f.setDeleteErr(nil)
	if res, err := o.Release(); err != nil || res != ReleaseDeleted {
		t.Fatalf("Release retry=(%v, %v), want (deleted, nil)", res, err)
	}
}

func TestOwner_UnknownHandleIsCleared(t *testing.T) {
	t.Parallel()

	f := newFakeScheduler(true)
	var o Owner
	o.log = quietLogger()
	h := acquireFake(t, &o, f)
	f.forget(h)

	if res, err := o.Release(); err != nil || res != ReleaseNone {
		t.Fatalf("Release=(%v, %v), want (none, nil)", res, err)
	}
	if o.Owned() {
		t.Fatalf("Owned=true, want false")
	}
}

func TestOwner_AcquireFailureHoldsNothing(t *testing.T) {
	t.Parallel()

	f := newFakeScheduler(true)
	f.setCreateErr(kernel.ErrNoMemory)
	var o Owner
	_, err := o.acquire(f, func() (kernel.Handle, error) {
		return f.CreateTask(func(context.Context, any) {}, "x", 1, nil, 1)
	})
	if !errors.Is(err, kernel.ErrNoMemory) {
		t.Fatalf("acquire err=%v, want ErrNoMemory", err)
	}
	if o.Owned() {
		t.Fatalf("Owned=true after failed acquire")
	}
	if _, err := o.acquire(f, func() (kernel.Handle, error) { return kernel.NoHandle, nil }); err == nil {
		t.Fatalf("acquire(NoHandle) err=nil, want error")
	}
}

func TestOwner_AcquireTwicePanics(t *testing.T) {
	t.Parallel()

	f := newFakeScheduler(true)
	var o Owner
	o.log = quietLogger()
	acquireFake(t, &o, f)
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("second acquire did not panic")
		}
	}()
	acquireFake(t, &o, f)
}
