package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"portfolio-api/internal/app"
	"portfolio-api/internal/config"
)

var cli struct {
	config.Flags `embed:""`

	Addr            string        `name:"addr" env:"ADDR" default:":8080" help:"Listen address."`
	RequestTimeout  time.Duration `name:"request-timeout" env:"REQUEST_TIMEOUT" default:"30s" help:"Per-request deadline."`
	ShutdownTimeout time.Duration `name:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" default:"5s" help:"Grace period for in-flight requests."`
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found or could not be loaded", "err", err)
	}
	kong.Parse(&cli,
		kong.Name("portfolio-devserver"),
		kong.Description("Local HTTP server for the portfolio API."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cli.Flags, os.Stdout)
	if err != nil {
		slog.Error("failed to start", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(a.Logger)

	srv := &http.Server{
		Addr:              cli.Addr,
		Handler:           a.Handler.Router(cli.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cli.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cli.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
