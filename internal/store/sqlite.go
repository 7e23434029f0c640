package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/agentbus/internal/bus"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	bus_id   TEXT    NOT NULL,
	position INTEGER NOT NULL,
	kind     TEXT    NOT NULL,
	body     BLOB    NOT NULL,
	PRIMARY KEY (bus_id, position)
);
`

// SQLStore is the durable Store backend. Payloads are stored as their CBOR
// wire envelopes; the kind column is denormalized for inspection with the
// sqlite shell, filtering still happens against the decoded entries so the
// complete flag keeps its unfiltered-tail meaning.
type SQLStore struct {
	db *sql.DB
	mu sync.Mutex // serializes position assignment across appenders
}

// OpenSQL opens (or creates) the database at path.
func OpenSQL(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Append implements Store.
func (s *SQLStore) Append(ctx context.Context, busID string, p bus.Payload) (bus.Position, error) {
	body, err := bus.EncodePayload(p)
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback()

	var pos uint64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position)+1, 0) FROM entries WHERE bus_id = ?`, busID)
	if err := row.Scan(&pos); err != nil {
		return 0, fmt.Errorf("append: next position: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (bus_id, position, kind, body) VALUES (?, ?, ?, ?)`,
		busID, pos, string(p.Kind()), body); err != nil {
		return 0, fmt.Errorf("append: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append: commit: %w", err)
	}
	return bus.Position(pos), nil
}

// Read implements Store.
func (s *SQLStore) Read(ctx context.Context, busID string, start bus.Position, max int, kinds []bus.Kind) ([]bus.LogEntry, bool, error) {
	// Stored positions fit in sqlite's signed INTEGER, so any start past
	// MaxInt64 is past the end of every log. Short-circuit rather than
	// bind a uint64 the sql layer rejects.
	if uint64(start) > math.MaxInt64 {
		entries, complete := window(nil, max, kinds)
		return entries, complete, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, body FROM entries WHERE bus_id = ? AND position >= ? ORDER BY position`,
		busID, int64(start))
	if err != nil {
		return nil, false, fmt.Errorf("read: %w", err)
	}
	defer rows.Close()

	var tail []bus.LogEntry
	for rows.Next() {
		var pos uint64
		var body []byte
		if err := rows.Scan(&pos, &body); err != nil {
			return nil, false, fmt.Errorf("read: scan: %w", err)
		}
		p, err := bus.DecodePayload(body)
		if err != nil {
			return nil, false, fmt.Errorf("read: entry %d: %w", pos, err)
		}
		tail = append(tail, bus.LogEntry{Position: bus.Position(pos), Payload: p})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("read: %w", err)
	}

	entries, complete := window(tail, max, kinds)
	return entries, complete, nil
}

// Close implements Store.
func (s *SQLStore) Close() error { return s.db.Close() }
