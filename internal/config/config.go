// Package config loads the demo binary's settings from flags, environment and a YAML tasks file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

type rawCfg struct {
	TasksFile string `long:"tasks-file" env:"RTOBJ_TASKS_FILE" default:"./tasks.yaml" description:"YAML file describing the tasks to run"`
	Listen    string `long:"listen" env:"RTOBJ_LISTEN" default:":8080" description:"Admin API listen address (empty disables the API)"`
	Token     string `long:"admin-token" env:"RTOBJ_ADMIN_TOKEN" description:"Token required by the admin API (empty disables the check)"`
	LogLevel  string `long:"log-level" env:"RTOBJ_LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	// Kernel configuration
	Tick          time.Duration `long:"tick" env:"RTOBJ_TICK" default:"10ms" description:"Kernel tick period"`
	Heap          int           `long:"heap" env:"RTOBJ_HEAP" default:"0" description:"Stack heap size in words (0 = unbounded)"`
	MaxTasks      int           `long:"max-tasks" env:"RTOBJ_MAX_TASKS" default:"0" description:"Maximum number of tasks (0 = unlimited)"`
	MaxPriorities int           `long:"max-priorities" env:"RTOBJ_MAX_PRIORITIES" default:"5" description:"Number of priority levels"`
	NoDelete      bool          `long:"no-delete" env:"RTOBJ_NO_DELETE" description:"Run the kernel without task deletion support"`
}

// Cfg is the demo binary's configuration.
type Cfg struct {
	TasksFile string
	Listen    string
	Token     string
	LogLevel  slog.Level

	Tick            time.Duration
	Heap            int
	MaxTasks        int
	MaxPriorities   int
	DeleteSupported bool
}

// Load parses args (without the program name) and the environment.
// It returns (nil, nil) when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		TasksFile:       raw.TasksFile,
		Listen:          raw.Listen,
		Token:           raw.Token,
		LogLevel:        parseLevel(raw.LogLevel),
		Tick:            raw.Tick,
		Heap:            raw.Heap,
		MaxTasks:        raw.MaxTasks,
		MaxPriorities:   raw.MaxPriorities,
		DeleteSupported: !raw.NoDelete,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Cfg) validate() error {
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	if c.Heap < 0 {
		return fmt.Errorf("heap must be non-negative, got %d", c.Heap)
	}
	if c.MaxTasks < 0 {
		return fmt.Errorf("max tasks must be non-negative, got %d", c.MaxTasks)
	}
	if c.MaxPriorities <= 0 {
		return fmt.Errorf("max priorities must be positive, got %d", c.MaxPriorities)
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
