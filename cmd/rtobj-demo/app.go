package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evan-idocoding/rtobj/internal/adminapi"
	"github.com/evan-idocoding/rtobj/internal/config"
	"github.com/evan-idocoding/rtobj/internal/demo"
	"github.com/evan-idocoding/rtobj/rt/kernel"
	"github.com/evan-idocoding/rtobj/rt/taskobj"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
)

type app struct {
	cfg   *config.Cfg
	log   *slog.Logger
	k     *kernel.Kernel
	reg   *adminapi.Registry
	tasks []*taskobj.Task
	srv   *http.Server
}

// newApp builds the kernel and every task object. Nothing is scheduled yet.
// level, when non-nil, backs the admin API's log level endpoints. extra kernel options are applied after
// the ones derived from cfg.
func newApp(cfg *config.Cfg, specs []config.TaskSpec, log *slog.Logger, level *slog.LevelVar, extra ...kernel.Option) (*app, error) {
	kopts := []kernel.Option{
		kernel.WithLogger(log),
		kernel.WithDeleteSupported(cfg.DeleteSupported),
		kernel.WithMaxPriorities(cfg.MaxPriorities),
		kernel.WithMaxTasks(cfg.MaxTasks),
		kernel.WithHeapSize(cfg.Heap),
		kernel.WithTickPeriod(cfg.Tick),
	}
	a := &app{
		cfg: cfg,
		log: log,
		k:   kernel.New(append(kopts, extra...)...),
		reg: adminapi.NewRegistry(),
	}

	for _, s := range specs {
		t, err := taskobj.New(a.k, s.Name, newRunner(s, log),
			taskobj.WithPriority(s.PriorityOrDefault()),
			taskobj.WithStackDepth(s.StackDepth),
			taskobj.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", s.Name, err)
		}
		if err := a.reg.Add(t); err != nil {
			return nil, err
		}
		a.tasks = append(a.tasks, t)
	}

	if cfg.Listen != "" {
		a.srv = &http.Server{
			Addr: cfg.Listen,
			Handler: adminapi.NewServer(a.k, a.reg,
				adminapi.WithLogger(log),
				adminapi.WithLevelVar(level),
				adminapi.WithToken(cfg.Token),
			),
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
		}
	}
	return a, nil
}

func newRunner(s config.TaskSpec, log *slog.Logger) taskobj.Runner {
	switch s.Kind {
	case config.KindHeartbeat:
		return demo.NewHeartbeat(s.Every, log)
	default:
		return demo.NewCounter(s.Every)
	}
}

// start schedules every task, then starts the kernel. A task that cannot be created is logged and
// left unscheduled.
func (a *app) start(ctx context.Context) error {
	scheduled := 0
	for _, t := range a.tasks {
		if err := t.Start(); err != nil {
			a.log.Error("Failed to schedule task", "task", t.Name(), "error", err)
			continue
		}
		scheduled++
	}
	a.log.Info("Tasks scheduled", "scheduled", scheduled, "configured", len(a.tasks))

	if err := a.k.Start(ctx); err != nil {
		return fmt.Errorf("failed to start kernel: %w", err)
	}
	a.log.Info("Kernel started", "tick", a.cfg.Tick, "delete_supported", a.k.CanDelete())
	return nil
}

// serve starts the admin API in the background. Serve errors go to errCh.
func (a *app) serve(errCh chan<- error) {
	if a.srv == nil {
		a.log.Info("Admin API disabled")
		return
	}
	go func() {
		a.log.Info("Starting admin API", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin API error: %w", err)
		}
	}()
}

// shutdown stops the admin API, closes every task object, then stops the kernel.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error
	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin API shutdown: %w", err))
		} else {
			a.log.Info("Admin API stopped")
		}
	}
	if err := a.reg.CloseAll(); err != nil {
		errs = append(errs, fmt.Errorf("close tasks: %w", err))
	}
	if err := a.k.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("kernel shutdown: %w", err))
	} else {
		a.log.Info("Kernel stopped", "tick", a.k.TickCount())
	}
	return errors.Join(errs...)
}
