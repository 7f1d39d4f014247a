package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/uifuse/internal/adb"
	"github.com/dgallion1/uifuse/internal/api"
	"github.com/dgallion1/uifuse/internal/config"
	"github.com/dgallion1/uifuse/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Error("invalid rules file", "error", err, "path", cfg.RulesFile)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	device := adb.NewClient(cfg.ADBPath, cfg.ADBTimeout)
	if version, err := device.Version(ctx); err != nil {
		log.Warn("adb not reachable, device captures will fail", "error", err)
	} else {
		log.Info("adb available", "version", version)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, rules, device, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, device, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting uifuse", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
