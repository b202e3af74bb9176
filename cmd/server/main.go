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

	"github.com/labring/sunmi-print-server/internal/server"
	"github.com/labring/sunmi-print-server/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func runGracefulShutdown(httpSrv *http.Server, srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", slog.String("error", err.Error()))
		}

		if err := srv.Cleanup(); err != nil {
			slog.Error("Server cleanup error", slog.String("error", err.Error()))
		}

		close(done)
	}()

	return done
}

func main() {
	cfg := config.ParseCfg()
	slog.SetDefault(cfg.NewLogger())

	if cfg.TokenAutoGenerated {
		slog.Warn("No token configured, generated one for this run", slog.String("token", cfg.Token))
	}

	srv, err := server.New(cfg)
	if err != nil {
		slog.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := runGracefulShutdown(httpSrv, srv)

	slog.Info("Server starting",
		slog.String("addr", cfg.Addr),
		slog.String("driver", cfg.Driver),
	)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	<-done
	slog.Info("Server stopped")
}
