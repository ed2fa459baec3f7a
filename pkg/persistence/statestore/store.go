// Package statestore persists the small string-keyed state of a chat widget
// session (session id, conversation history, theme).
package statestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store is a string-keyed key/value store. Get reports ok=false for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open selects a backend from a DSN:
//
//	memory://
//	file:///path/state.json, or a bare path
//	sqlite:///path/state.db
//	redis://[:password@]host:port/db
func Open(dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("statestore: empty dsn")
	}

	scheme, rest, found := strings.Cut(dsn, "://")
	if !found {
		return NewFileStore(expandHome(dsn))
	}

	switch scheme {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(expandHome(rest))
	case "sqlite", "sqlite3":
		path := expandHome(rest)
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		sqliteDSN, err := SQLiteDSNForFile(path)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(sqliteDSN)
	case "redis", "rediss":
		return NewRedisStoreFromURL(dsn, DefaultRedisPrefix)
	default:
		return nil, errors.Errorf("statestore: unknown scheme %q", scheme)
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "statestore: create directory %s", dir)
	}
	return nil
}
