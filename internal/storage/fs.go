package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const fsTempPrefix = ".glance-tmp-"

// FS implements Provider with one file per key under root/<namespace>/.
// Names are path-escaped so keys can never leave their namespace directory.
type FS struct {
	root string // absolute path to the store directory
}

// NewFS creates an FS store rooted at dir, creating it if needed.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

func (f *FS) namespaceDir(namespace string) (string, error) {
	if namespace == "" {
		return "", ErrEmptyNamespace
	}
	return filepath.Join(f.root, escapeName(namespace)), nil
}

func (f *FS) keyPath(namespace, key string) (string, error) {
	dir, err := f.namespaceDir(namespace)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, escapeName(key)), nil
}

// escapeName maps an arbitrary string onto a single safe file name.
// "." and ".." are escaped too, and the empty key gets a marker.
func escapeName(s string) string {
	switch s {
	case "":
		return "%00"
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(s)
}

func unescapeName(s string) (string, bool) {
	if s == "%00" {
		return "", true
	}
	v, err := url.PathUnescape(s)
	return v, err == nil
}

// Put writes value atomically: tmp file, fsync, rename.
func (f *FS) Put(_ context.Context, namespace, key, value string) error {
	abs, err := f.keyPath(namespace, key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fsTempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Get reads the key file.
func (f *FS) Get(_ context.Context, namespace, key string) (string, bool, error) {
	abs, err := f.keyPath(namespace, key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read %s/%s: %w", namespace, key, err)
	}
	return string(data), true, nil
}

// Delete removes the key file.
func (f *FS) Delete(_ context.Context, namespace, key string) error {
	abs, err := f.keyPath(namespace, key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List reads every key file of the namespace, skipping in-flight temp files.
func (f *FS) List(_ context.Context, namespace string) (map[string]string, error) {
	dir, err := f.namespaceDir(namespace)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), fsTempPrefix) {
			continue
		}
		key, ok := unescapeName(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue // deleted while listing
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
		}
		out[key] = string(data)
	}
	return out, nil
}

// Close is a no-op for the file engine.
func (f *FS) Close() error { return nil }
