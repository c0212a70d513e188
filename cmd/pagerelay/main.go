// Package main contains the entrypoint for the fanpage webhook relay.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kmtrend/pagerelay/internal/config"
	"github.com/kmtrend/pagerelay/internal/database"
	"github.com/kmtrend/pagerelay/internal/logger"
	"github.com/kmtrend/pagerelay/internal/messenger"
	"github.com/kmtrend/pagerelay/internal/registry"
	"github.com/kmtrend/pagerelay/internal/relay"
	"github.com/kmtrend/pagerelay/internal/scheduler"
	"github.com/kmtrend/pagerelay/internal/server"
	"github.com/kmtrend/pagerelay/internal/tasks"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components (config, logger, db, registry, messenger
// client, server, scheduler), serves until ctx is cancelled, and returns an
// exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	reg := registry.New(cfg.Pages)
	log.Info("Credential registry loaded", "pages", reg.Len())

	client, err := messenger.NewClient(messenger.Config{
		BaseURL:    cfg.Messenger.BaseURL,
		APIVersion: cfg.Messenger.APIVersion,
		Timeout:    cfg.Messenger.Timeout,
	}, log)
	if err != nil {
		log.Error("Failed to create messenger client", "error", err)
		return 1
	}

	dispatcher := relay.NewDispatcher(store, reg, client, cfg.Reply.Template, log)
	ingestor := relay.NewIngestor(store, dispatcher, log)
	srv := server.New(cfg, store, ingestor, log)

	sched, err := scheduler.New(log, &cfg.Scheduler, tasks.RegisterAll(tasks.Deps{Logger: log, Store: store}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	if err := sched.Start(); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	log.Info("Relay started")
	runErr := g.Wait()

	if stopErr := sched.Stop(); stopErr != nil {
		log.Error("Failed to stop scheduler", "error", stopErr)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Relay stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Relay stopped gracefully.")
	return 0
}
