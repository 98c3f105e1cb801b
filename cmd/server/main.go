package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/echorelay/internal/config"
	"github.com/Tyrowin/echorelay/internal/logging"
	"github.com/Tyrowin/echorelay/internal/metrics"
	"github.com/Tyrowin/echorelay/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Echo relay stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting echo relay...")

	reg := metrics.NewRegistry()
	relay := server.New(cfg,
		server.WithLogger(logger),
		server.WithMetrics(metrics.NewRelayMetrics(reg), reg),
	)

	httpServer := server.CreateServer(cfg.Addr(), relay.Handler())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, logger)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	httpErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return errors.Join(httpErr, relay.Shutdown(shutdownCtx))
}
