package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tferrors "github.com/abatilo/taskflow/internal/errors"
)

const fileExt = ".json"

// KV is durable key-value storage holding one serialized collection per key.
type KV interface {
	// Get returns the stored value. ok is false when the key was never written.
	Get(key string) (value []byte, ok bool, err error)
	// Put replaces the value of key in a single atomic write.
	Put(key string, value []byte) error
	Close() error
}

// FileKV stores each key as a JSON file under a base directory.
type FileKV struct {
	basePath string
}

// NewFileKV creates a FileKV rooted at path.
func NewFileKV(path string) *FileKV {
	return &FileKV{basePath: path}
}

// BasePath returns the base path of the store.
func (s *FileKV) BasePath() string {
	return s.basePath
}

// IsInitialized checks if the data directory exists.
func (s *FileKV) IsInitialized() bool {
	info, err := os.Stat(s.basePath)
	return err == nil && info.IsDir()
}

// Init creates the data directory.
func (s *FileKV) Init(force bool) error {
	if s.IsInitialized() && !force {
		return tferrors.AlreadyInitializedError{Path: s.basePath}
	}
	//nolint:gosec // G301: 0755 is appropriate for user-accessible data directory
	return os.MkdirAll(s.basePath, 0o755)
}

// keyPath returns the full path for a key file.
func (s *FileKV) keyPath(key string) string {
	return filepath.Join(s.basePath, key+fileExt)
}

// Get reads a key file. A missing file is reported as ok=false.
func (s *FileKV) Get(key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	content, err := os.ReadFile(s.keyPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

// Put writes a key file atomically.
func (s *FileKV) Put(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if !s.IsInitialized() {
		return tferrors.NotInitializedError{Path: s.basePath}
	}
	return atomicWriteFile(s.keyPath(key), value, 0o644)
}

// Close is a no-op for files.
func (s *FileKV) Close() error {
	return nil
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
