package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/event"
)

// SQLiteStore persists status change events to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite report store.
// The path should be a file path (e.g., "./reports.db") or ":memory:"
// for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS status_changes (
			event_id TEXT PRIMARY KEY,
			entity_kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			payload BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_status_changes_entity
		ON status_changes(entity_kind, entity_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// HandleStatusChange implements Store.
func (s *SQLiteStore) HandleStatusChange(ctx context.Context, evt *event.StatusChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO status_changes (event_id, entity_kind, entity_id, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			occurred_at = excluded.occurred_at,
			payload = excluded.payload
	`, evt.EventID, string(evt.EntityKind), evt.EntityID,
		evt.OccurredAt.UTC().Format(time.RFC3339Nano), payload)

	if err != nil {
		return fmt.Errorf("save status change: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, kind entity.Kind, entityID string) ([]*event.StatusChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM status_changes
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY occurred_at
	`, string(kind), entityID)
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	events := make([]*event.StatusChangeEvent, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		var evt event.StatusChangeEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, fmt.Errorf("deserialize event: %w", err)
		}
		events = append(events, &evt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}
	return events, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM status_changes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count status changes: %w", err)
	}
	return count, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
