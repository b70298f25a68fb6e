package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{SQLitePath: filepath.Join(t.TempDir(), "quiz.db")}
	db, err := database.OpenSQLite(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return NewSQLiteStore(openSQLite(t)) },
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			_, ok, err := s.Get(ctx, "darkMode")
			require.NoError(t, err)
			assert.False(t, ok, "absent key")

			require.NoError(t, s.Set(ctx, "darkMode", "true"))
			v, ok, err := s.Get(ctx, "darkMode")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "true", v)

			require.NoError(t, s.Set(ctx, "darkMode", "false"))
			v, _, _ = s.Get(ctx, "darkMode")
			assert.Equal(t, "false", v, "set overwrites")

			require.NoError(t, s.Delete(ctx, "darkMode"))
			_, ok, err = s.Get(ctx, "darkMode")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, s.Delete(ctx, "missing"), "deleting an absent key is fine")
		})
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{SQLitePath: filepath.Join(t.TempDir(), "quiz.db")}

	db, err := database.OpenSQLite(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, NewSQLiteStore(db).Set(ctx, "savedQuestions", `{"questions":[]}`))
	require.NoError(t, db.Close())

	db, err = database.OpenSQLite(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := NewSQLiteStore(db).Get(ctx, "savedQuestions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"questions":[]}`, v)
}

func TestOpenStore(t *testing.T) {
	assert.IsType(t, &MemoryStore{}, OpenStore(config.StoreMemory, &database.Backends{}))
	assert.IsType(t, &SQLiteStore{}, OpenStore(config.StoreSQLite, &database.Backends{SQLite: openSQLite(t)}))
	assert.IsType(t, &MemoryStore{}, OpenStore("bogus", &database.Backends{}))
}
