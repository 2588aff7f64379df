package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"
)

type badgerEntry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

type BadgerStore struct {
	store *badgerhold.Store
}

func OpenBadger(dir string) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating badger dir: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &BadgerStore{store: store}, nil
}

func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var e badgerEntry
	err := b.store.Get(key, &e)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	return e.Value, nil
}

func (b *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	e := badgerEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := b.store.Upsert(key, &e); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

func (b *BadgerStore) Delete(_ context.Context, key string) error {
	err := b.store.Delete(key, badgerEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (b *BadgerStore) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
