package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"xirr-service/config"
	"xirr-service/database"
)

// SeedableRepository is a store that can create its schema and import a seed.
type SeedableRepository interface {
	CashflowRepository
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, rows []SeedRow) error
}

// OpenCashflowStore opens the configured store. The caller owns the returned
// handle and must Close it at shutdown.
func OpenCashflowStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (CashflowRepository, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		repo := NewCashflowRepositoryMemory()
		if cfg.SeedFile != "" {
			rows, err := ReadSeedFile(cfg.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("seed memory store: %w", err)
			}
			repo.Seed(rows)
			logger.Info("memory store seeded", "rows", len(rows), "file", cfg.SeedFile)
		}
		return repo, nil

	case config.StoreSQLite:
		repo, err := NewCashflowRepositorySQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := prepare(ctx, repo, cfg.SeedFile, logger); err != nil {
			repo.Close()
			return nil, err
		}
		logger.Info("sqlite store opened", "path", cfg.SQLite.Path)
		return repo, nil

	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := NewCashflowRepositoryPostgres(pool)
		if err := prepare(ctx, repo, cfg.SeedFile, logger); err != nil {
			repo.Close()
			return nil, err
		}
		logger.Info("postgres store opened", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func prepare(ctx context.Context, repo SeedableRepository, seedFile string, logger *slog.Logger) error {
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if seedFile == "" {
		return nil
	}
	// Solo se siembra una base vacía; reiniciar no duplica cuotas.
	existing, err := repo.MemberIDs(ctx)
	if err != nil {
		return fmt.Errorf("check store contents: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("store already populated, skipping seed", "members", len(existing))
		return nil
	}
	rows, err := ReadSeedFile(seedFile)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	if err := repo.Insert(ctx, rows); err != nil {
		return fmt.Errorf("insert seed: %w", err)
	}
	logger.Info("store seeded", "rows", len(rows), "file", seedFile)
	return nil
}

// OpenCache opens the configured result cache. The returned closer is never nil.
func OpenCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (CacheRepository, io.Closer, error) {
	switch cfg.Driver {
	case config.CacheNone:
		return NoCache{}, nopCloser{}, nil
	case config.CacheMemory:
		return NewMemoryCache(), nopCloser{}, nil
	case config.CacheRedis:
		cache, err := NewRedisCache(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis cache connected", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		return cache, cache, nil
	}
	return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
