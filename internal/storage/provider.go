// Package storage defines the namespace-scoped snapshot store and its engines.
package storage

import (
	"context"
	"errors"
)

// Engine names accepted by Open.
const (
	EngineSQLite = "sqlite"
	EngineBadger = "badger"
	EngineBolt   = "bolt"
	EngineFS     = "fs"
)

var (
	ErrEmptyNamespace = errors.New("storage: namespace is required")
	ErrClosed         = errors.New("storage: closed")
)

// Provider is the durable key-value contract used by the preview cache,
// the surface registry and the lifecycle flag.
//
// Implementations must be safe for concurrent use. A failed Put leaves the
// previous value intact. Writes to one key are serialized (last writer wins);
// there are no cross-key transactions.
type Provider interface {
	// Put stores value under (namespace, key), replacing any previous value.
	Put(ctx context.Context, namespace, key, value string) error
	// Get returns the value and whether it exists.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error
	// List returns every entry of the namespace.
	List(ctx context.Context, namespace string) (map[string]string, error)
	// Close releases the engine.
	Close() error
}
