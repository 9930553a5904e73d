// Package testutil provides shared test helpers for setting up snapshot stores.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/starford/glance/internal/storage"
)

// ErrStoreDown is returned by every FailingStore operation.
var ErrStoreDown = errors.New("testutil: store unavailable")

// TestStore creates a temporary SQLite-backed store that is closed on cleanup.
func TestStore(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "glance-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// FailingStore fails every operation with ErrStoreDown.
type FailingStore struct{}

func (FailingStore) Put(context.Context, string, string, string) error { return ErrStoreDown }

func (FailingStore) Get(context.Context, string, string) (string, bool, error) {
	return "", false, ErrStoreDown
}

func (FailingStore) Delete(context.Context, string, string) error { return ErrStoreDown }

func (FailingStore) List(context.Context, string) (map[string]string, error) {
	return nil, ErrStoreDown
}

func (FailingStore) Close() error { return nil }

var _ storage.Provider = FailingStore{}

// FailNthPut wraps a store and fails its Nth Put (counting from 1) with
// ErrStoreDown. Every other call goes to the wrapped store.
type FailNthPut struct {
	storage.Provider
	N    int64
	puts atomic.Int64
}

func (f *FailNthPut) Put(ctx context.Context, ns, key, value string) error {
	if f.puts.Add(1) == f.N {
		return ErrStoreDown
	}
	return f.Provider.Put(ctx, ns, key, value)
}

var _ storage.Provider = (*FailNthPut)(nil)
