package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Open opens the named engine at path. For sqlite and bolt path is a file;
// for badger and fs it is a directory.
func Open(engine, path string, logger *slog.Logger) (Provider, error) {
	switch engine {
	case EngineSQLite, "":
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("storage: create sqlite dir: %w", err)
		}
		return OpenSQLite(path)
	case EngineBadger:
		return OpenBadger(path, logger)
	case EngineBolt:
		return OpenBolt(path)
	case EngineFS:
		return NewFS(path)
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", engine)
	}
}

// Verify engines satisfy Provider at compile time.
var (
	_ Provider = (*SQLite)(nil)
	_ Provider = (*Badger)(nil)
	_ Provider = (*Bolt)(nil)
	_ Provider = (*FS)(nil)
)
