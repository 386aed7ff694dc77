package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver" // SQLite driver (pure Go)
	_ "github.com/ncruces/go-sqlite3/embed"  // Embed SQLite WASM binary
	"github.com/segmentio/encoding/json"
)

const schema = `
CREATE TABLE IF NOT EXISTS heartbeat_queue (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	bucket     TEXT    NOT NULL,
	pulse_ms   INTEGER NOT NULL,
	event      BLOB    NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLiteStore is a Store persisted in a SQLite database, so heartbeats
// recorded while the server is unreachable survive a restart.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens or creates the queue database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	const dbDirPerm = 0o750

	if path == "" {
		return nil, fmt.Errorf("queue path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), dbDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue: %w", err)
	}
	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to prepare queue: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Push(ctx context.Context, req Request) error {
	body, err := json.Marshal(req.Event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO heartbeat_queue (id, bucket, pulse_ms, event, created_at) VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.Bucket, req.Pulse.Milliseconds(), body, req.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to queue heartbeat: %w", err)
	}
	return nil
}

// Peek skips and deletes rows whose event can no longer be decoded.
func (s *SQLiteStore) Peek(ctx context.Context) (Request, bool, error) {
	for {
		var (
			req       Request
			pulseMS   int64
			body      []byte
			createdAt int64
		)
		err := s.db.QueryRowContext(ctx,
			`SELECT id, bucket, pulse_ms, event, created_at FROM heartbeat_queue ORDER BY seq LIMIT 1`,
		).Scan(&req.ID, &req.Bucket, &pulseMS, &body, &createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, false, nil
		}
		if err != nil {
			return Request{}, false, fmt.Errorf("failed to read queue: %w", err)
		}
		if err := json.Unmarshal(body, &req.Event); err != nil {
			if err := s.Remove(ctx, req.ID); err != nil {
				return Request{}, false, err
			}
			continue
		}
		req.Pulse = time.Duration(pulseMS) * time.Millisecond
		req.CreatedAt = time.UnixMilli(createdAt)
		return req, true, nil
	}
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM heartbeat_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove heartbeat %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM heartbeat_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
