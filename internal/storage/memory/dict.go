package memory

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/yndnr/tokvault-go/internal/storage"
	"github.com/yndnr/tokvault-go/pkg/cmap"
)

// Dict implements storage.Dict in memory.
type Dict struct {
	items  *cmap.Map[[]byte]
	closed atomic.Bool
}

var _ storage.Dict = (*Dict)(nil)

// New creates an empty in-memory dictionary.
func New() *Dict {
	return &Dict{items: cmap.New[[]byte]()}
}

// Get retrieves a copy of the value stored under key.
func (d *Dict) Get(_ context.Context, key string) ([]byte, error) {
	if d.closed.Load() {
		return nil, storage.ErrClosed
	}
	v, ok := d.items.Get(key)
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores a copy of value under key.
func (d *Dict) Set(_ context.Context, key string, value []byte) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	d.items.Set(key, bytes.Clone(value))
	return nil
}

// Delete removes key.
func (d *Dict) Delete(_ context.Context, key string) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}
	d.items.Pop(key)
	return nil
}

// DeleteIf removes key if pred accepts its current value.
func (d *Dict) DeleteIf(_ context.Context, key string, pred func(current []byte) bool) (bool, error) {
	if d.closed.Load() {
		return false, storage.ErrClosed
	}
	return d.items.DeleteIf(key, func(v []byte) bool {
		return pred(bytes.Clone(v))
	}), nil
}

// Scan iterates over keys with prefix in key order.
func (d *Dict) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) bool) error {
	if d.closed.Load() {
		return storage.ErrClosed
	}

	for _, k := range d.items.KeysWithPrefix(prefix) {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok := d.items.Get(k)
		if !ok {
			continue // Deleted since the key snapshot
		}
		if !fn(k, bytes.Clone(v)) {
			break
		}
	}
	return nil
}

// DeletePrefix removes every key with prefix.
func (d *Dict) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if d.closed.Load() {
		return 0, storage.ErrClosed
	}

	deleted := 0
	for _, k := range d.items.KeysWithPrefix(prefix) {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if _, ok := d.items.Pop(k); ok {
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored keys.
func (d *Dict) Len() int {
	return d.items.Len()
}

// Close marks the dictionary closed and drops its contents.
func (d *Dict) Close() error {
	if d.closed.CompareAndSwap(false, true) {
		d.items.Clear()
	}
	return nil
}
