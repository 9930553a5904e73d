package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v3"
)

// nsSep separates namespace and key in the flat badger keyspace.
const nsSep = 0x00

// Badger implements Provider on dgraph-io/badger. Namespaces become key
// prefixes so List is a prefix scan.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens a badger database in dir. An empty dir opens an
// in-memory instance.
func OpenBadger(dir string, logger *slog.Logger) (*Badger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return &Badger{db: db, logger: logger}, nil
}

func badgerPrefix(namespace string) []byte {
	return append([]byte(namespace), nsSep)
}

func badgerKey(namespace, key string) []byte {
	return append(badgerPrefix(namespace), key...)
}

// Put stores a value in its own transaction.
func (b *Badger) Put(_ context.Context, namespace, key, value string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(namespace, key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get retrieves a value.
func (b *Badger) Get(_ context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, ErrEmptyNamespace
	}
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(namespace, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: get %s/%s: %w", namespace, key, err)
	}
	return string(value), true, nil
}

// Delete removes a key.
func (b *Badger) Delete(_ context.Context, namespace, key string) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(namespace, key))
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List scans the namespace prefix.
func (b *Badger) List(_ context.Context, namespace string) (map[string]string, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	prefix := badgerPrefix(namespace)
	out := make(map[string]string)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.Key()[len(prefix):])] = string(value)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
	}
	return out, nil
}

// Close closes the badger database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger adapts slog.Logger to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
