package kvstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/radpa/radpa/internal/config"
	"github.com/radpa/radpa/internal/platform/db"
	"github.com/radpa/radpa/migrations"
)

// Opened is a connected backend. Pool is set only for the postgres backend.
type Opened struct {
	Store   Store
	Backend string
	Pool    *pgxpool.Pool
}

// Open connects the backend selected by cfg.StateBackend. The postgres
// backend applies pending migrations before returning.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Opened, error) {
	switch cfg.StateBackend {
	case config.BackendMemory, "":
		return &Opened{Store: NewMemory(), Backend: config.BackendMemory}, nil

	case config.BackendRedis:
		r, err := NewRedis(ctx, cfg.RedisURL, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("prefix", cfg.RedisKeyPrefix).Msg("connected to redis state backend")
		return &Opened{Store: r, Backend: config.BackendRedis}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		n, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate order_state: %w", err)
		}
		logger.Info().Int("applied", n).Msg("connected to postgres state backend")
		return &Opened{Store: NewPostgres(pool), Backend: config.BackendPostgres, Pool: pool}, nil
	}
	return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
}
