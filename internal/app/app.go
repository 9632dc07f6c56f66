// Package app assembles the repository, caches and service from config. The
// HTTP server and the posctl command share it.
package app

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"latiafanny/backend/internal/cache"
	"latiafanny/backend/internal/config"
	"latiafanny/backend/internal/report"
	"latiafanny/backend/internal/service"
	"latiafanny/backend/internal/store"
	"latiafanny/backend/internal/store/memory"
	pgstore "latiafanny/backend/internal/store/postgres"
)

const connectTimeout = 10 * time.Second

type App struct {
	Config   config.Config
	Location *time.Location
	Repo     store.Repository
	Service  *service.Service
	Denylist cache.TokenDenylist

	logger  zerolog.Logger
	closers []func() error
}

// Open connects to postgres when DATABASE_URL is set and to redis when
// REDIS_ADDR is set. Without a database it serves the seeded in-memory store.
// An unreachable redis degrades to the in-process caches; an unreachable
// database is fatal.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	a := &App{Config: cfg, Location: loc, logger: logger}

	if cfg.Database.URL != "" {
		pg, err := pgstore.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, errors.Wrap(err, "DATABASE_URL is set but postgres is unavailable")
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Repo = pg
		logger.Info().Str("repository", "postgres").Msg("repository ready")
	} else {
		a.Repo = memory.NewSeeded()
		logger.Info().Str("repository", "memory").Msg("repository ready")
	}

	var snapshots cache.SnapshotCache = cache.NewMemorySnapshotCache()
	a.Denylist = cache.NewMemoryTokenDenylist()
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using in-process caches")
			_ = client.Close()
		} else {
			snapshots = cache.NewRedisSnapshotCache(client)
			a.Denylist = cache.NewRedisTokenDenylist(client)
			a.closers = append(a.closers, client.Close)
			logger.Info().Str("cache", "redis").Msg("cache ready")
		}
	}

	a.Service = service.New(a.Repo, snapshots, report.SystemClock{Location: loc}, cfg.Report.SnapshotTTL)
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close")
		}
	}
	a.closers = nil
}
