package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
	mu sync.Mutex // serializes sequence number assignment
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(config Config) (*PostgresStore, error) {
	dsn := config.DSN
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	} else {
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables if they don't exist
func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		taken_at TIMESTAMP NOT NULL,
		payload BYTEA NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_world_seq ON snapshots(world_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot persists a snapshot and assigns its sequence number
func (s *PostgresStore) SaveSnapshot(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxSeq int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM snapshots WHERE world_id = $1`, snap.WorldID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}
	snap.Seq = maxSeq + 1

	_, err = tx.Exec(`
		INSERT INTO snapshots (id, world_id, seq, taken_at, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, snap.ID, snap.WorldID, snap.Seq, snap.TakenAt, snap.Payload)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return tx.Commit()
}

// GetSnapshot retrieves a snapshot by ID
func (s *PostgresStore) GetSnapshot(id string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, world_id, seq, taken_at, payload FROM snapshots WHERE id = $1
	`, id)
	return scanSnapshot(row)
}

// LatestSnapshot returns the newest snapshot for a world
func (s *PostgresStore) LatestSnapshot(worldID string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, world_id, seq, taken_at, payload FROM snapshots
		WHERE world_id = $1 ORDER BY seq DESC LIMIT 1
	`, worldID)
	return scanSnapshot(row)
}

// ListSnapshots returns snapshots for a world, newest first.
// limit <= 0 means no limit.
func (s *PostgresStore) ListSnapshots(worldID string, limit int) ([]*Snapshot, error) {
	query := `
		SELECT id, world_id, seq, taken_at, payload FROM snapshots
		WHERE world_id = $1 ORDER BY seq DESC
	`
	args := []interface{}{worldID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.WorldID, &snap.Seq, &snap.TakenAt, &snap.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

// PruneSnapshots deletes all but the newest keep snapshots of a world
func (s *PostgresStore) PruneSnapshots(worldID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM snapshots WHERE world_id = $1 AND id NOT IN (
			SELECT id FROM snapshots WHERE world_id = $1 ORDER BY seq DESC LIMIT $2
		)
	`, worldID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the underlying database
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *PostgresStore) HealthCheck() error {
	return s.db.Ping()
}
