package taskobj

import (
	"fmt"
	"log/slog"

	"github.com/evan-idocoding/rtobj/rt/kernel"
)

// ParkTicks is the delay a parked task sleeps for between wake-ups.
const ParkTicks = 10000

// ReturnPolicy controls what happens when a body's Task method returns.
type ReturnPolicy int

const (
	// ReturnPark keeps the task in its slot, sleeping forever.
	ReturnPark ReturnPolicy = iota
	// ReturnExit releases the task's own handle, then parks if the task could not be deleted.
	ReturnExit
)

func (p ReturnPolicy) String() string {
	switch p {
	case ReturnPark:
		return "park"
	case ReturnExit:
		return "exit"
	default:
		return fmt.Sprintf("ReturnPolicy(%d)", int(p))
	}
}

type taskConfig struct {
	priority   kernel.Priority
	stackDepth int
	onReturn   ReturnPolicy
	logger     *slog.Logger
}

func defaultTaskConfig() taskConfig {
	return taskConfig{
		priority:   kernel.DefaultPriority,
		stackDepth: kernel.MinimalStackSize,
		onReturn:   ReturnPark,
	}
}

// Option configures a Task.
type Option func(*taskConfig)

// WithPriority sets the task priority. Default is kernel.DefaultPriority.
func WithPriority(p kernel.Priority) Option {
	return func(c *taskConfig) { c.priority = p }
}

// WithStackDepth sets the stack depth in scheduler units. Zero means kernel.MinimalStackSize.
func WithStackDepth(n int) Option {
	return func(c *taskConfig) {
		if n == 0 {
			n = kernel.MinimalStackSize
		}
		c.stackDepth = n
	}
}

// WithReturnPolicy sets what happens when the body returns. Default is ReturnPark.
func WithReturnPolicy(p ReturnPolicy) Option {
	return func(c *taskConfig) { c.onReturn = p }
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *taskConfig) { c.logger = l }
}
