// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/starford/redisnotes/internal/storage"
)

// TestSQLite creates a temporary SQLite store that is automatically cleaned up.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "redisnotes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	s, err := storage.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestRedis starts an in-process Redis server and returns a store bound to it.
func TestRedis(t *testing.T) (*storage.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := storage.OpenRedis(context.Background(), &redis.Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

// Stores returns one fresh store per backend, keyed by backend name.
func Stores(t *testing.T) map[string]func(t *testing.T) storage.Store {
	t.Helper()
	return map[string]func(t *testing.T) storage.Store{
		"sqlite": func(t *testing.T) storage.Store { return TestSQLite(t) },
		"redis": func(t *testing.T) storage.Store {
			s, _ := TestRedis(t)
			return s
		},
	}
}

// Logger returns a logger that discards everything below error level.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
