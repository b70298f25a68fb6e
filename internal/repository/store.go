package repository

import (
	"context"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
)

// Store is the key/value persistence collaborator. Get reports absence with
// ok=false and a nil error; errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// OpenStore picks the Store for driver out of the already connected backends.
// Unknown drivers fall back to memory.
func OpenStore(driver string, b *database.Backends) Store {
	switch driver {
	case config.StoreRedis:
		return NewRedisStore(b.Redis)
	case config.StorePostgres:
		return NewPostgresStore(b.Pool)
	case config.StoreSQLite:
		return NewSQLiteStore(b.SQLite)
	default:
		return NewMemoryStore()
	}
}
