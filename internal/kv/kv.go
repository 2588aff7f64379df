// Package kv is the persistent key/value layer behind the ticker cache
// and the runtime settings.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	Backend  string // memory | file | badger | sqlite | redis
	Path     string // file path, badger directory or sqlite database
	RedisURL string
}

// Open returns the backend named in opts.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "file":
		if opts.Path == "" {
			return nil, errors.New("kv: file backend needs a path")
		}
		return NewFileStore(opts.Path)
	case "memory":
		return NewMemoryStore(), nil
	case "badger":
		if opts.Path == "" {
			return nil, errors.New("kv: badger backend needs a path")
		}
		return OpenBadger(opts.Path)
	case "sqlite":
		if opts.Path == "" {
			return nil, errors.New("kv: sqlite backend needs a path")
		}
		return OpenSQLite(opts.Path)
	case "redis":
		return OpenRedis(opts.RedisURL)
	}
	return nil, fmt.Errorf("kv: unknown backend %q (valid: memory, file, badger, sqlite, redis)", opts.Backend)
}
