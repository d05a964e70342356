// Package kvstore provides the string key-value backends that hold per-order
// workflow state. Values are opaque strings; callers own the encoding.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a flat string key-value store. Writes overwrite wholesale and the
// last write wins; there is no compare-and-swap.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}
