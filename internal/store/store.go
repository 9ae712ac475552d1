// internal/store/store.go
package store

import "context"

// CancelFunc detaches a subscription. Safe to call more than once.
type CancelFunc func()

// Store is the replicated key-value contract the session layer runs
// against. Values are JSON objects addressed by slash-separated paths
// ("sessions/ABC123", "sessions/ABC123/participants/<id>").
//
// Semantics the session layer depends on:
//   - Write replaces the whole value at a path.
//   - Merge is a shallow field update; it is not atomic for counters,
//     which is why Increment exists.
//   - Subscribe fires once immediately with the current value and again
//     on every change to the path or any of its descendants. Each delivery
//     is the full current value, never a delta; consumers recompute
//     derived state from scratch.
//   - Increment atomically adds delta to an integer field.
//   - SetIfAbsent claims a path only if nothing was ever written there,
//     which is what keeps session codes unique under concurrent creates.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, bool, error)
	Write(ctx context.Context, path string, value []byte) error
	Merge(ctx context.Context, path string, fields map[string]any) error
	Remove(ctx context.Context, path string) error

	// CreateChild mints a unique child key under path without writing it.
	CreateChild(ctx context.Context, path string) (string, error)
	// ReadChildren returns the direct children of path, keyed by child key.
	ReadChildren(ctx context.Context, path string) (map[string][]byte, error)

	Subscribe(ctx context.Context, path string, onValue func(value []byte, ok bool)) (CancelFunc, error)

	Increment(ctx context.Context, path, field string, delta int64) (int64, error)
	SetIfAbsent(ctx context.Context, path string, value []byte) (bool, error)
}
