package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
)

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// ErrNotFound is returned by Get and Delete for absent keys.
var ErrNotFound = annotation.ErrKeyNotFound

// KV is a durable key-value store holding one serialized annotation store per
// storage key. Implementations are safe for concurrent use.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	// Keys returns every stored key in ascending order.
	Keys() ([]string, error)
	Close() error
}

// Open opens the archive for driver at path. The memory driver ignores path.
func Open(driver, path string) (KV, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverMemory && driver != "" {
		if path == "" {
			return nil, fmt.Errorf("archive %s: empty path", driver)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	switch driver {
	case DriverMemory:
		return NewMemoryKV(), nil
	case DriverBolt, "":
		return OpenBolt(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown archive driver %q (want %s, %s or %s)",
			driver, DriverBolt, DriverSQLite, DriverMemory)
	}
}

// DefaultPath returns ~/.go-claude-transcripts/annotations.<ext> for driver.
func DefaultPath(driver string) string {
	ext := "db"
	if driver == DriverSQLite {
		ext = "sqlite"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".go-claude-transcripts", "annotations."+ext)
}
