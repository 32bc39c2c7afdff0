package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carbon_market/internal/app"
	"carbon_market/internal/server"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	if cfg.Server.PprofAddr != "" {
		go func() {
			slog.Info("pprof server started", slog.String("addr", cfg.Server.PprofAddr))
			if err := http.ListenAndServe(cfg.Server.PprofAddr, nil); err != nil {
				slog.Error("pprof server failed", slog.Any("error", err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(bootstrap.Market, []byte(cfg.Server.JWTSecret), slog.Default(), bootstrap.Metrics)

	// Every successful mutation persists state and pushes a fresh snapshot.
	bootstrap.Market.SetOnChange(func() {
		bootstrap.PersistState()
		srv.BroadcastSnapshot()
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("market server listening", slog.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", slog.Any("error", err))
	}

	bootstrap.PersistState()
}
