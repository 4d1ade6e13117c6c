package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evan-idocoding/rtobj/rt/kernel"
	"github.com/evan-idocoding/rtobj/rt/taskobj"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sleeper struct{}

func (sleeper) Task(ctx context.Context) {
	for {
		kernel.Delay(ctx, 1)
	}
}

type fixture struct {
	k   *kernel.Kernel
	reg *Registry
	srv *gin.Engine
}

func newFixture(t *testing.T, kopts []kernel.Option, sopts ...Option) *fixture {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	k := kernel.New(append([]kernel.Option{kernel.WithLogger(quietLogger())}, kopts...)...)
	t.Cleanup(func() { _ = k.Shutdown(context.Background()) })

	reg := NewRegistry()
	for _, name := range []string{"alpha", "beta"} {
		tk, err := taskobj.Spawn(k, name, sleeper{}, taskobj.WithPriority(2), taskobj.WithLogger(quietLogger()))
		if err != nil {
			t.Fatalf("Spawn(%q) err=%v", name, err)
		}
		if err := reg.Add(tk); err != nil {
			t.Fatalf("Add(%q) err=%v", name, err)
		}
	}
	if err := k.Start(ctx); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	if err := k.Advance(ctx, 3); err != nil {
		t.Fatalf("Advance err=%v", err)
	}

	opts := append([]Option{WithLogger(quietLogger())}, sopts...)
	return &fixture{k: k, reg: reg, srv: NewServer(k, reg, opts...)}
}

func (f *fixture) do(t *testing.T, method, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	var got healthResponse
	if code := f.do(t, http.MethodGet, "/health", &got); code != http.StatusOK {
		t.Fatalf("code=%d, want 200", code)
	}
	if got.Status != "ok" || got.Tick != 3 {
		t.Fatalf("health=%+v, want ok at tick 3", got)
	}
}

func TestListTasks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	var got snapshotResponse
	if code := f.do(t, http.MethodGet, "/tasks", &got); code != http.StatusOK {
		t.Fatalf("code=%d, want 200", code)
	}
	if got.Created != 2 || len(got.Tasks) != 2 {
		t.Fatalf("created=%d tasks=%d, want 2 2", got.Created, len(got.Tasks))
	}
	for _, st := range got.Tasks {
		if st.State != "blocked" || st.Priority != 2 || st.StackDepth != kernel.MinimalStackSize {
			t.Fatalf("task=%+v, want blocked priority 2 minimal stack", st)
		}
	}
}

func TestGetTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	var got objectStatus
	if code := f.do(t, http.MethodGet, "/tasks/alpha", &got); code != http.StatusOK {
		t.Fatalf("code=%d, want 200", code)
	}
	if got.Name != "alpha" || got.State != "scheduled" {
		t.Fatalf("status=%+v, want alpha scheduled", got)
	}
	if got.Kernel == nil || got.Kernel.Name != "alpha" || got.Kernel.Runs != 4 {
		t.Fatalf("kernel=%+v, want alpha with 4 runs", got.Kernel)
	}

	var miss errorResponse
	if code := f.do(t, http.MethodGet, "/tasks/nope", &miss); code != http.StatusNotFound {
		t.Fatalf("code=%d, want 404", code)
	}
	if miss.Name != "nope" {
		t.Fatalf("error name=%q, want nope", miss.Name)
	}
}

func TestCloseTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	var got closeResponse
	if code := f.do(t, http.MethodDelete, "/tasks/alpha", &got); code != http.StatusOK {
		t.Fatalf("code=%d, want 200", code)
	}
	if !got.Closed || !got.Deleted || got.Result != "deleted" {
		t.Fatalf("close=%+v, want closed and deleted", got)
	}

	// A second close releases nothing.
	got = closeResponse{}
	if code := f.do(t, http.MethodDelete, "/tasks/alpha", &got); code != http.StatusOK {
		t.Fatalf("code=%d, want 200", code)
	}
	if got.Deleted || got.Result != "none" {
		t.Fatalf("second close=%+v, want nothing deleted", got)
	}

	var st objectStatus
	f.do(t, http.MethodGet, "/tasks/alpha", &st)
	if st.State != "terminated" || st.Kernel != nil {
		t.Fatalf("status=%+v, want terminated without kernel entry", st)
	}

	var snap snapshotResponse
	f.do(t, http.MethodGet, "/tasks", &snap)
	if len(snap.Tasks) != 1 || snap.Tasks[0].Name != "beta" || snap.Deleted != 1 {
		t.Fatalf("snapshot=%+v, want only beta left", snap)
	}

	if code := f.do(t, http.MethodDelete, "/tasks/nope", nil); code != http.StatusNotFound {
		t.Fatalf("code=%d, want 404", code)
	}
}

func TestCloseTask_DeleteUnsupported(t *testing.T) {
	t.Parallel()
	f := newFixture(t, []kernel.Option{kernel.WithDeleteSupported(false)})

	var got closeResponse
	if code := f.do(t, http.MethodDelete, "/tasks/beta", &got); code != http.StatusOK {
		t.Fatalf("code=%d, want 200", code)
	}
	if !got.Closed || got.Deleted || got.Result != "abandoned" {
		t.Fatalf("close=%+v, want closed and abandoned", got)
	}
	if snap := f.k.Snapshot(); len(snap.Tasks) != 2 {
		t.Fatalf("tasks=%d, want 2", len(snap.Tasks))
	}
}

func TestReadOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil, WithReadOnly())

	if code := f.do(t, http.MethodDelete, "/tasks/alpha", nil); code != http.StatusNotFound {
		t.Fatalf("code=%d, want 404", code)
	}
	tk, _ := f.reg.Get("alpha")
	if tk.State() != taskobj.StateScheduled {
		t.Fatalf("state=%v, want scheduled", tk.State())
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	k := kernel.New(kernel.WithLogger(quietLogger()))
	t.Cleanup(func() { _ = k.Shutdown(context.Background()) })

	reg := NewRegistry()
	a, _ := taskobj.Spawn(k, "a", sleeper{}, taskobj.WithLogger(quietLogger()))
	b, _ := taskobj.Spawn(k, "b", sleeper{}, taskobj.WithLogger(quietLogger()))
	dup, _ := taskobj.New(k, "a", sleeper{}, taskobj.WithLogger(quietLogger()))

	if err := reg.Add(b); err != nil {
		t.Fatalf("Add(b) err=%v", err)
	}
	if err := reg.Add(a); err != nil {
		t.Fatalf("Add(a) err=%v", err)
	}
	if err := reg.Add(dup); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("Add(dup) err=%v, want ErrDuplicateName", err)
	}
	if names := reg.Names(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Names=%v, want [a b]", names)
	}

	if err := reg.CloseAll(); err != nil {
		t.Fatalf("CloseAll err=%v", err)
	}
	if a.State() != taskobj.StateTerminated || b.State() != taskobj.StateTerminated {
		t.Fatalf("states=%v/%v, want terminated", a.State(), b.State())
	}
	if snap := k.Snapshot(); len(snap.Tasks) != 0 {
		t.Fatalf("tasks=%d, want 0", len(snap.Tasks))
	}
}

func TestGetTask_RequestedAndEffectivePriority(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	k := kernel.New(kernel.WithLogger(quietLogger()))
	t.Cleanup(func() { _ = k.Shutdown(context.Background()) })
	reg := NewRegistry()
	tk, err := taskobj.Spawn(k, "eager", sleeper{}, taskobj.WithPriority(9), taskobj.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Spawn err=%v", err)
	}
	if err := reg.Add(tk); err != nil {
		t.Fatalf("Add err=%v", err)
	}
	if err := k.Start(ctx); err != nil {
		t.Fatalf("Start err=%v", err)
	}
	f := &fixture{k: k, reg: reg, srv: NewServer(k, reg, WithLogger(quietLogger()))}

	var got objectStatus
	if code := f.do(t, http.MethodGet, "/tasks/eager", &got); code != http.StatusOK {
		t.Fatalf("code=%d, want 200", code)
	}
	if got.Priority != 9 {
		t.Fatalf("requested priority=%d, want 9", got.Priority)
	}
	if want := kernel.DefaultMaxPriorities - 1; got.Kernel == nil || got.Kernel.Priority != want {
		t.Fatalf("kernel=%+v, want effective priority %d", got.Kernel, want)
	}
}
