// Package backend assembles the observation pipeline for the configured
// data backend: live FRED, seeded memory data, or snapshot-only.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cpiview/internal/amqp"
	"cpiview/internal/cache"
	"cpiview/internal/config"
	"cpiview/internal/core"
	"cpiview/internal/services"
	"cpiview/internal/source"
	"cpiview/internal/source/fred"
	"cpiview/internal/source/memory"
	"cpiview/internal/storage"
)

// CleanupFunc releases resources owned by the assembled pipeline.
type CleanupFunc func() error

// Result bundles the assembled service with its cleanup. Cache is exposed so
// the caller can register it with a cleanup janitor.
type Result struct {
	Service *services.SeriesService
	Cache   *cache.LRUCache[[]core.Observation]
	Cleanup CleanupFunc
}

// Build assembles the series service for cfg. The returned cleanup is always
// non-nil and safe to call once.
func Build(ctx context.Context, cfg *config.Config, catalog *core.Catalog, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	seriesCache := cache.NewLRUCache[[]core.Observation](cfg.CacheSize, cfg.CacheTTL)

	var cleanups []func() error
	cleanup := func() error {
		var firstErr error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	switch cfg.DataBackend {
	case "fred":
		reader := fred.New(cfg.FREDBaseURL, cfg.FREDAPIKey, cfg.FREDTimeout)

		var fallback source.ObservationReader
		if cfg.SQLiteDBPath != "" {
			repo, err := storage.NewSnapshotRepository(cfg.SQLiteDBPath)
			if err != nil {
				// The snapshot store is a resilience layer, not a
				// requirement for serving live data.
				logger.Warn("Snapshot store unavailable, continuing without fallback",
					"error", err, "db_path", cfg.SQLiteDBPath)
			} else {
				fallback = repo
				cleanups = append(cleanups, repo.Close)
			}
		}

		var publisher services.RefreshPublisher
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Warn("AMQP unavailable, refresh events disabled", "error", err)
			} else {
				publisher = client
				cleanups = append(cleanups, client.Close)
				logger.Info("Initialized AMQP refresh publisher",
					"exchange", cfg.AMQPExchange,
					"queue", cfg.AMQPQueue)
			}
		}

		logger.Info("Initialized FRED backend",
			"base_url", cfg.FREDBaseURL,
			"snapshot_fallback", fallback != nil,
			"amqp_enabled", publisher != nil)
		return &Result{
			Service: services.NewSeriesService(catalog, reader, fallback, seriesCache, publisher, cfg.FetchTimeout),
			Cache:   seriesCache,
			Cleanup: cleanup,
		}, nil

	case "memory":
		store := memory.NewSeeded(catalog, time.Now())
		logger.Info("Initialized memory backend with seeded observations")
		return &Result{
			Service: services.NewSeriesService(catalog, store, nil, seriesCache, nil, cfg.FetchTimeout),
			Cache:   seriesCache,
			Cleanup: cleanup,
		}, nil

	case "snapshot":
		repo, err := storage.NewSnapshotRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize snapshot repository: %w", err)
		}
		cleanups = append(cleanups, repo.Close)
		logger.Info("Initialized snapshot-only backend", "db_path", cfg.SQLiteDBPath)
		return &Result{
			Service: services.NewSeriesService(catalog, repo, nil, seriesCache, nil, cfg.FetchTimeout),
			Cache:   seriesCache,
			Cleanup: cleanup,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
