// Package store provides the durable key/value engines backing local
// client state.
package store

import "context"

// Store is a durable string-keyed byte store. Get reports presence
// explicitly so callers can distinguish "never written" from an empty
// value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
