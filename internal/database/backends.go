package database

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/config"
)

// Backends holds the connections the configuration asked for; unused ones
// stay nil.
type Backends struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	SQLite *sql.DB
}

// Close releases every open connection.
func (b *Backends) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
	if b.Redis != nil {
		b.Redis.Close()
	}
	if b.SQLite != nil {
		b.SQLite.Close()
	}
}

// Connect opens only what the store driver needs, plus PostgreSQL and Redis
// when withResults is set.
func Connect(ctx context.Context, cfg *config.Config, withResults bool, log zerolog.Logger) (*Backends, error) {
	b := &Backends{}
	needPostgres := cfg.StoreDriver == config.StorePostgres || withResults
	needRedis := cfg.StoreDriver == config.StoreRedis || withResults

	var err error
	if needPostgres {
		if b.Pool, err = NewPostgresPool(ctx, cfg, log); err != nil {
			b.Close()
			return nil, err
		}
	}
	if needRedis {
		if b.Redis, err = NewRedisClient(ctx, cfg, log); err != nil {
			b.Close()
			return nil, err
		}
	}
	if cfg.StoreDriver == config.StoreSQLite {
		if b.SQLite, err = OpenSQLite(ctx, cfg, log); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}
