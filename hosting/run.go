package hosting

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

// DefaultShutdownTimeout bounds Stop when RunOptions leaves it zero.
const DefaultShutdownTimeout = 30 * time.Second

// Orchestrator is the part of servreg.Orchestrator Run drives.
type Orchestrator interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RunOptions configures Run.
type RunOptions struct {
	// ShutdownTimeout bounds the Stop call. Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Run starts orch, notifies lt started and blocks until ctx is done. It then
// notifies lt stopping and stops orch within the shutdown timeout.
//
// A Start failure notifies stopping, stops orch and is returned.
func Run(ctx context.Context, orch Orchestrator, lt *Lifetime, opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	if err := orch.Start(ctx); err != nil {
		logger.Error("host failed to start", "error", err)
		lt.NotifyStopping()
		return errors.Join(err, stop(orch, timeout))
	}

	lt.NotifyStarted()
	logger.Info("host started")

	<-ctx.Done()

	logger.Info("host stopping")
	lt.NotifyStopping()

	if err := stop(orch, timeout); err != nil {
		logger.Error("host failed to stop", "error", err)
		return err
	}

	logger.Info("host stopped")
	return nil
}

// RunWithSignals is Run with ctx also cancelled on SIGINT or SIGTERM.
func RunWithSignals(ctx context.Context, orch Orchestrator, lt *Lifetime, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return Run(ctx, orch, lt, opts)
}

func stop(orch Orchestrator, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return orch.Stop(ctx)
}
