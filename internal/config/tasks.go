package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/evan-idocoding/rtobj/rt/kernel"
)

// Task kinds understood by the demo binary.
const (
	KindCounter   = "counter"
	KindHeartbeat = "heartbeat"
)

// TaskSpec describes one task object to create.
type TaskSpec struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Priority   *int   `yaml:"priority"`
	StackDepth int    `yaml:"stack_depth"`
	Every      uint64 `yaml:"every"`
}

// PriorityOrDefault returns the configured priority, or kernel.DefaultPriority when unset.
func (s TaskSpec) PriorityOrDefault() kernel.Priority {
	if s.Priority == nil {
		return kernel.DefaultPriority
	}
	return kernel.Priority(*s.Priority)
}

type tasksFile struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// LoadTasks reads and validates a tasks file. A missing file yields no tasks.
func LoadTasks(path string) ([]TaskSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("Tasks file not found, starting without tasks", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}

	var f tasksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range f.Tasks {
		setDefaults(&f.Tasks[i])
	}
	if err := validateTasks(f.Tasks); err != nil {
		return nil, fmt.Errorf("invalid tasks file %s: %w", path, err)
	}

	slog.Debug("Loaded tasks file", "path", path, "tasks", len(f.Tasks))
	return f.Tasks, nil
}

func setDefaults(s *TaskSpec) {
	if s.Kind == "" {
		s.Kind = KindCounter
	}
	if s.StackDepth == 0 {
		s.StackDepth = kernel.MinimalStackSize
	}
	if s.Every == 0 {
		s.Every = 1
	}
}

func validateTasks(specs []TaskSpec) error {
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("task at index %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("task at index %d: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true

		switch s.Kind {
		case KindCounter, KindHeartbeat:
		default:
			return fmt.Errorf("task %q: unknown kind %q", s.Name, s.Kind)
		}
		if s.Priority != nil && *s.Priority < 0 {
			return fmt.Errorf("task %q: priority must be non-negative", s.Name)
		}
		if s.StackDepth < 0 {
			return fmt.Errorf("task %q: stack depth must be non-negative", s.Name)
		}
	}
	return nil
}
