// SPDX-License-Identifier: Apache-2.0

// Command tracelens runs the TraceLens control-plane server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tracelens/tracelens/pkg/config"
	"github.com/tracelens/tracelens/pkg/httpapi"
	"github.com/tracelens/tracelens/pkg/session"
	"github.com/tracelens/tracelens/pkg/store"
	"github.com/tracelens/tracelens/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "tracelens: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init("tracelens", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Error("telemetry shutdown", slog.Any("error", err))
		}
	}()

	metrics, err := telemetry.NewAPIMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	agents, err := store.NewAgentStore(db)
	if err != nil {
		return err
	}
	dbconfigs, err := store.NewDBConfigStore(db)
	if err != nil {
		return err
	}
	secrets, err := store.NewSecretStore(db)
	if err != nil {
		return err
	}
	usage, err := store.NewUsageStore(db)
	if err != nil {
		return err
	}

	if cfg.Agents.SeedFile != "" {
		created, err := agents.SeedFromFile(ctx, cfg.Agents.SeedFile)
		if err != nil {
			return fmt.Errorf("seed agents: %w", err)
		}
		logger.Info("agents seeded", slog.String("file", cfg.Agents.SeedFile), slog.Int("created", created))
	}

	sessions := session.NewRegistry(cfg.Session.TTL)
	sessions.StartSweeper(ctx, time.Minute)

	api := httpapi.New(agents, dbconfigs, secrets, usage, sessions, httpapi.Options{
		AdminToken:    cfg.Session.AdminToken,
		RevealEnabled: cfg.Vault.RevealEnabled,
		RateLimit:     cfg.Server.RateLimit,
		RateBurst:     cfg.Server.RateBurst,
		Metrics:       metrics,
		Logger:        logger,
	})

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, config.WithWatchLogger(logger))
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		watcher.OnReload(func(next *config.Config) {
			api.SetRateLimit(next.Server.RateLimit, next.Server.RateBurst)
		})
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening", slog.String("addr", cfg.Server.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
