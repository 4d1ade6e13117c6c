package kernel

import (
	"log/slog"
	"time"
)

type config struct {
	deleteSupported bool
	maxPriorities   int
	maxTasks        int
	heapSize        int
	tickPeriod      time.Duration

	onPanic PanicHandler
	logger  *slog.Logger
}

func defaultConfig() config {
	return config{
		deleteSupported: true,
		maxPriorities:   DefaultMaxPriorities,
	}
}

// Option configures a Kernel.
type Option func(*config)

// WithDeleteSupported controls whether DeleteTask is available. Default is true.
func WithDeleteSupported(v bool) Option {
	return func(c *config) { c.deleteSupported = v }
}

// WithMaxPriorities sets the number of priority levels (valid priorities are [0, n)).
// Priorities at or above n are clamped to n-1.
//
// If n <= 0, New panics (configuration error).
func WithMaxPriorities(n int) Option {
	return func(c *config) { c.maxPriorities = n }
}

// WithMaxTasks caps the number of tasks alive at once. Zero (default) means no cap.
func WithMaxTasks(n int) Option {
	return func(c *config) { c.maxTasks = n }
}

// WithHeapSize sets the budget, in words, that task stacks are allocated from.
// Zero (default) means unbounded.
func WithHeapSize(words int) Option {
	return func(c *config) { c.heapSize = words }
}

// WithTickPeriod makes Start run an internal tick source with the given period.
// Zero (default) means ticks are driven by the caller via Tick/Advance.
func WithTickPeriod(d time.Duration) Option {
	return func(c *config) { c.tickPeriod = d }
}

// WithPanicHandler sets the panic handler. If not set, panics are reported to stderr.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *config) { c.onPanic = h }
}

// WithLogger sets the logger for lifecycle events. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}
