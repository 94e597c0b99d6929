package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"provenant/internal/platform/config"
	"provenant/internal/platform/httpserver"
	"provenant/internal/platform/logger"
	"provenant/internal/platform/tracing"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main wires dependencies and runs the HTTP API, the outbox relay and the
// scheduled jobs until SIGINT or SIGTERM. Business logic lives in internal.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, errs := config.Load(os.Getenv("PROVENANT_CONFIG"))
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	log := logger.New(cfg.LogFormat, cfg.SlogLevel())
	slog.SetDefault(log)
	log.Info("starting provenant", "version", version, "config", cfg.LogSummary())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(ctx, cfg.Tracing, cfg.Env, version, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg, log, tp)
	if err != nil {
		return err
	}
	defer a.Close()

	a.scheduler.Start()
	defer a.scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, httpserver.New(cfg.Server, a.router), cfg.Server.ShutdownTimeout, log)
	})
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("provenant stopped")
	return nil
}
