package storage

import (
	"fmt"

	"studentdesk/internal/config"
)

type BackendType string

const (
	BackendTypeMemory BackendType = "memory"
	BackendTypeFile   BackendType = "file"
	BackendTypeSQLite BackendType = "sqlite"
	BackendTypeNATS   BackendType = "nats"
)

func (b BackendType) String() string {
	return string(b)
}

// NewBackend creates the backend named by cfg.Type.
func NewBackend(cfg config.StorageConfig) (Backend, error) {
	switch BackendType(cfg.Type) {
	case BackendTypeMemory, "":
		return NewMemoryBackend(), nil

	case BackendTypeFile:
		return NewFileBackend(cfg.Path)

	case BackendTypeSQLite:
		return NewSQLiteBackend(cfg.Path)

	case BackendTypeNATS:
		return DialNatsKV(cfg.NATS.URL, cfg.NATS.Bucket)

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Type)
	}
}
