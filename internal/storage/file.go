package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps every key in a single JSON document on disk. The whole
// document is rewritten on each Put through a temp file and rename, so a
// crash leaves either the old or the new document.
type FileBackend struct {
	path string

	mu     sync.Mutex
	values map[string]json.RawMessage
	loaded bool
}

// NewFileBackend creates a backend persisting to path. The file is read
// lazily on first use.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create storage directory: %v", ErrStorageUnavailable, err)
	}

	return &FileBackend{path: path}, nil
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return nil, err
	}

	data, ok := f.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (f *FileBackend) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(); err != nil {
		return err
	}

	if !json.Valid(data) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	prev, existed := f.values[key]
	f.values[key] = append(json.RawMessage(nil), data...)

	if err := f.save(); err != nil {
		// keep memory consistent with disk
		if existed {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *FileBackend) Close() error {
	return nil
}

// load reads the document once; a missing file is an empty store.
func (f *FileBackend) load() error {
	if f.loaded {
		return nil
	}

	values := make(map[string]json.RawMessage)

	data, err := os.ReadFile(f.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", f.path, err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to decode %s: %w", f.path, err)
		}
	}

	f.values = values
	f.loaded = true
	return nil
}

func (f *FileBackend) save() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
