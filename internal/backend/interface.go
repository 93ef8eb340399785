package backend

import (
	"context"
	"time"

	"timesplit/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired service and a cleanup function that
// releases the repository and the event publisher.
type BackendResult struct {
	Service *services.EntryService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Starting base amount of the settings singleton
	BaseAmount float64

	// SQLite specific
	SQLiteDBName string

	// Change events; empty URL disables publishing
	AMQPURL           string
	AMQPExchange      string
	AMQPRoutingPrefix string

	SummaryCacheTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
