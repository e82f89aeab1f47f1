package backend

import (
	"context"

	"txreport/internal/ports"
)

// Store is everything the service needs from a backend.
type Store interface {
	ports.ReportStore
	ports.DatasetReplacer
	ports.Pinger
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the backend instance and its cleanup function.
type BackendResult struct {
	Store   Store
	Type    BackendType
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// memory
	MemorySeedFile string

	// sqlite
	SQLiteDBPath string

	// postgres
	PostgresURL string

	// mongo
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MongoBackend    BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend:
		return true
	default:
		return false
	}
}

// Durable reports whether the backend is shared between processes and
// survives restarts.
func (bt BackendType) Durable() bool {
	return bt != MemoryBackend && bt.IsValid()
}
