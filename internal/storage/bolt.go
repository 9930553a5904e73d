package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt implements Provider on bbolt with one bucket per namespace.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage: create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Put writes the value inside a read-write transaction.
func (b *Bolt) Put(_ context.Context, namespace, key, value string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get copies the value out of the read transaction.
func (b *Bolt) Get(_ context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, ErrEmptyNamespace
	}
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		if raw := bucket.Get([]byte(key)); raw != nil {
			value, found = string(raw), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("storage: get %s/%s: %w", namespace, key, err)
	}
	return value, found, nil
}

// Delete removes the key if its bucket exists.
func (b *Bolt) Delete(_ context.Context, namespace, key string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List walks the namespace bucket.
func (b *Bolt) List(_ context.Context, namespace string) (map[string]string, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	out := make(map[string]string)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
	}
	return out, nil
}

// Close closes the bolt file.
func (b *Bolt) Close() error {
	return b.db.Close()
}
