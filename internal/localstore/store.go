// Package localstore provides durable key/value persistence for cart
// snapshots, keyed by ownership scope.
package localstore

import "context"

// Store is the durable snapshot store consumed by the sync engine. A missing
// key is reported as absent, never as an error.
type Store interface {
	Get(ctx context.Context, key string) (payload []byte, found bool, err error)
	Set(ctx context.Context, key string, payload []byte) error
	Remove(ctx context.Context, key string) error
}
