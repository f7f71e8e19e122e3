package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one persisted, serialized copy of a world's state.
// Seq is assigned by the store on save and increases per world.
type Snapshot struct {
	ID      string
	WorldID string
	Seq     int64
	TakenAt time.Time
	Payload []byte
}

// NewSnapshot builds an unsaved snapshot with a fresh ID.
func NewSnapshot(worldID string, payload []byte) *Snapshot {
	return &Snapshot{
		ID:      uuid.New().String(),
		WorldID: worldID,
		TakenAt: time.Now().UTC(),
		Payload: payload,
	}
}

// Store defines the interface for snapshot persistence
// Memory, SQLite and PostgreSQL implement this interface
type Store interface {
	// Snapshot operations
	SaveSnapshot(snap *Snapshot) error
	GetSnapshot(id string) (*Snapshot, error)
	LatestSnapshot(worldID string) (*Snapshot, error)
	ListSnapshots(worldID string, limit int) ([]*Snapshot, error)
	PruneSnapshots(worldID string, keep int) (int, error)

	// Lifecycle
	Close() error
	HealthCheck() error
}

// Config holds database configuration
type Config struct {
	Type string // "memory", "sqlite" or "postgres"
	DSN  string // Connection string

	// PostgreSQL specific
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// SQLite specific
	Path string
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "postgres", "postgresql":
		return NewPostgresStore(config)
	case "sqlite", "":
		path := config.Path
		if path == "" {
			path = config.DSN
		}
		if path == "" {
			path = "appworld.db"
		}
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, ErrUnsupportedDatabase
	}
}

var (
	ErrUnsupportedDatabase = errors.New("unsupported database type")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
)
