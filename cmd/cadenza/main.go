package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	corecfg "github.com/cadenza-lab/project-cadenza/internal/core/config"
	"github.com/cadenza-lab/project-cadenza/internal/core/storage/postgres"
	"github.com/cadenza-lab/project-cadenza/internal/migrations"
	"github.com/cadenza-lab/project-cadenza/internal/processor"
	"github.com/cadenza-lab/project-cadenza/internal/reporting"
	"github.com/cadenza-lab/project-cadenza/internal/rules"
	"github.com/cadenza-lab/project-cadenza/internal/seed"
	"github.com/cadenza-lab/project-cadenza/internal/server"
)

func main() {
	configPath := flag.String("config", "cadenza.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Optional .env for local development; ignored when absent.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"addr", cfg.Server.Addr(),
		"auto_migrate", cfg.Database.AutoMigrate,
		"processor_enabled", cfg.Processor.Enabled,
		"cron_interval", cfg.Processor.CronInterval)

	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	if err := migrations.Run(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := dbAdapter.ValidateSchema(); err != nil {
		slog.Error("Schema validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.Seed.Dir != "" {
		res, err := seed.Load(context.Background(), cfg.Seed.Dir, dbAdapter, time.Now().UTC())
		if err != nil {
			slog.Error("Failed to seed rules", "error", err)
			os.Exit(1)
		}
		slog.Info("Seeded rules", "created", res.Created, "skipped", res.Skipped)
	}

	proc := processor.New(dbAdapter, processor.Options{
		BatchSize:   cfg.Processor.BatchSize,
		WorkerCount: cfg.Processor.WorkerCount,
	})
	scheduler := processor.NewScheduler(cfg.Processor.Interval(), proc)

	rulesSvc := rules.NewService(dbAdapter, proc)
	reportingSvc := reporting.NewService(dbAdapter, dbAdapter)

	srv := server.New(cfg.Server.Addr(), dbAdapter.DB(), cfg.Server.Mode)
	rulesSvc.RegisterRoutes(srv.Engine)
	reportingSvc.RegisterRoutes(srv.Engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Processor.Enabled {
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Processing scheduler disabled by config")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}
