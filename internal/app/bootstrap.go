package app

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/infra"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	Store     storage.RateStore
	Fetcher   *infra.PriceClient
	Refresher *Refresher
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up logging, opens the store, and wires the
// refresher. A storage backend that cannot be opened is downgraded to the
// in-memory store: conversion must keep working without persistence.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	b.Store = b.openStore(ctx, cfg)
	b.Fetcher = infra.NewPriceClient(cfg)
	b.Refresher = NewRefresher(b.Fetcher, b.Store, cfg.RefreshInterval())

	slog.Info("Bootstrap complete",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("storage", cfg.Storage.Backend),
	)
	return nil
}

func (b *Bootstrap) openStore(ctx context.Context, cfg *infra.Config) storage.RateStore {
	switch cfg.Storage.Backend {
	case "redis":
		store, err := storage.NewRedisStore(ctx, cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB)
		if err == nil {
			slog.Info("RateStore ready (redis)", slog.String("addr", cfg.Storage.Redis.Addr))
			return store
		}
		slog.Warn("Redis store unavailable, running without persistence", slog.Any("error", err))
	default:
		dataDir := filepath.Join(infra.GetWorkspaceDir(), "data")
		if err := infra.EnsureDir(dataDir); err != nil {
			slog.Warn("Cannot create data dir, running without persistence", slog.Any("error", err))
			break
		}
		dbPath := filepath.Join(dataDir, "state.db")
		store, err := storage.NewSQLiteStore(dbPath)
		if err == nil {
			slog.Info("RateStore ready (sqlite)", slog.String("path", dbPath))
			return store
		}
		slog.Warn("SQLite store unavailable, running without persistence", slog.Any("error", err))
	}
	return storage.NewMemoryStore()
}

// Close releases the store.
func (b *Bootstrap) Close() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("Failed to close store", slog.Any("error", err))
		}
	}
}
