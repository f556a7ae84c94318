package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is required"))
		}
	case StorePostgres:
		pg := c.Store.Postgres
		if pg.Host == "" || pg.Name == "" || pg.User == "" {
			errs = append(errs, errors.New("store.postgres host, name and user are required"))
		}
		if pg.MinConns > pg.MaxConns {
			errs = append(errs, fmt.Errorf("store.postgres.min_conns (%d) exceeds max_conns (%d)", pg.MinConns, pg.MaxConns))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite, postgres", c.Store.Driver))
	}

	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required"))
		}
		if c.Cache.Redis.TTL < 0 {
			errs = append(errs, errors.New("cache.redis.ttl must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q is not one of none, memory, redis", c.Cache.Driver))
	}

	if c.RateLimit.Capacity <= 0 {
		errs = append(errs, errors.New("rate_limit.capacity must be positive"))
	}
	if c.RateLimit.Refill <= 0 {
		errs = append(errs, errors.New("rate_limit.refill must be positive"))
	}
	if c.Batch.Workers <= 0 {
		errs = append(errs, errors.New("batch.workers must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}
