package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite-based implementation of the snapshot store
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes sequence number assignment
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite connection string with parameters for concurrent access
	// - _journal_mode=WAL: Enable Write-Ahead Logging for better concurrency
	// - _busy_timeout=10000: Wait up to 10 seconds when database is locked
	// - _synchronous=NORMAL: Balance between safety and performance
	// - _cache_size=-8000: 8MB memory cache for better performance
	// - _txlock=immediate: Acquire write lock at transaction start to reduce conflicts
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL&_cache_size=-8000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer for SQLite to avoid lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		taken_at DATETIME NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_world_seq ON snapshots(world_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot persists a snapshot and assigns its sequence number
func (s *SQLiteStore) SaveSnapshot(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxSeq int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM snapshots WHERE world_id = ?`, snap.WorldID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}
	snap.Seq = maxSeq + 1

	_, err = tx.Exec(`
		INSERT INTO snapshots (id, world_id, seq, taken_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, snap.ID, snap.WorldID, snap.Seq, snap.TakenAt, snap.Payload)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return tx.Commit()
}

// GetSnapshot retrieves a snapshot by ID
func (s *SQLiteStore) GetSnapshot(id string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, world_id, seq, taken_at, payload FROM snapshots WHERE id = ?
	`, id)
	return scanSnapshot(row)
}

// LatestSnapshot returns the newest snapshot for a world
func (s *SQLiteStore) LatestSnapshot(worldID string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, world_id, seq, taken_at, payload FROM snapshots
		WHERE world_id = ? ORDER BY seq DESC LIMIT 1
	`, worldID)
	return scanSnapshot(row)
}

// ListSnapshots returns snapshots for a world, newest first.
// limit <= 0 means no limit.
func (s *SQLiteStore) ListSnapshots(worldID string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 disables the limit
	}
	rows, err := s.db.Query(`
		SELECT id, world_id, seq, taken_at, payload FROM snapshots
		WHERE world_id = ? ORDER BY seq DESC LIMIT ?
	`, worldID, limit)
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
func (s *SQLiteStore) PruneSnapshots(worldID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM snapshots WHERE world_id = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE world_id = ? ORDER BY seq DESC LIMIT ?
		)
	`, worldID, worldID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}

// scanSnapshot reads one snapshot row, mapping no-rows to the
// package sentinel.
func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.WorldID, &snap.Seq, &snap.TakenAt, &snap.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return &snap, nil
}
