package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	coreconfig "orderbot/core/config"
	"orderbot/core/database"
	"orderbot/core/logger"
	coretelegram "orderbot/core/telegram"

	"orderbot/internal/bot"
	"orderbot/internal/catalog"
	"orderbot/internal/flow"
	"orderbot/internal/orders"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("orderbot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return err
		}
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := flow.NewEngine(cat, store)
	app := bot.New(cfg, engine)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.Int("categories", len(cat.Categories())),
	)

	return coretelegram.Run(ctx, app.RunOptions())
}

func buildStore(cfg *coreconfig.Config) (orders.Store, func(), error) {
	switch cfg.Storage.Backend {
	case coreconfig.StoragePostgres:
		if err := database.RunMigrations(cfg.Database); err != nil {
			return nil, nil, fmt.Errorf("migrations failed: %w", err)
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return orders.NewPostgresStore(db), func() { _ = db.Close() }, nil
	default:
		return orders.NewCSVStore(cfg.Storage.CSVPath), func() {}, nil
	}
}
