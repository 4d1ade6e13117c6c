// Command rtobj-demo runs task objects from a YAML file on the reference kernel and serves an admin API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/evan-idocoding/rtobj/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg == nil {
		// Help was shown.
		return
	}

	level := new(slog.LevelVar)
	level.Set(cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := run(cfg, log, level); err != nil {
		log.Error("rtobj-demo failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Cfg, log *slog.Logger, level *slog.LevelVar) error {
	specs, err := config.LoadTasks(cfg.TasksFile)
	if err != nil {
		return err
	}
	log.Info("Loaded tasks", "file", cfg.TasksFile, "count", len(specs))

	a, err := newApp(cfg, specs, log, level)
	if err != nil {
		return err
	}
	if err := a.start(context.Background()); err != nil {
		_ = a.shutdown(context.Background())
		return err
	}

	errCh := make(chan error, 1)
	a.serve(errCh)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals()...)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("Received signal", "signal", sig.String())
	case runErr = <-errCh:
		log.Error("Admin API failed", "error", runErr)
	}

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		if runErr != nil {
			return fmt.Errorf("%w; %w", runErr, err)
		}
		return err
	}
	return runErr
}
