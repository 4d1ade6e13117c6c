// Package adminapi exposes the kernel and the demo's task objects over HTTP.
package adminapi

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/evan-idocoding/rtobj/rt/taskobj"
)

// ErrDuplicateName is returned by Registry.Add when the name is taken.
var ErrDuplicateName = errors.New("adminapi: duplicate task name")

// Registry maps names to task objects.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*taskobj.Task
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*taskobj.Task)}
}

// Add registers t under its name.
func (r *Registry) Add(t *taskobj.Task) error {
	if t == nil {
		panic("adminapi: nil task")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, t.Name())
	}
	r.tasks[t.Name()] = t
	return nil
}

// Get returns the task registered under name.
func (r *Registry) Get(name string) (*taskobj.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// CloseAll closes every registered task and joins the errors.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, n := range r.Names() {
		t, ok := r.Get(n)
		if !ok {
			continue
		}
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
