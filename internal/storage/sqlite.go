package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/elhs-robotics/krunchbot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

// SQLiteStore keeps the calendar in a local SQLite file. Row order is
// preserved through the position column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps :memory: databases shared across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			summary TEXT NOT NULL,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at)`,
		`ALTER TABLE events ADD COLUMN updated_at DATETIME`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, summary, start_at, end_at, status FROM events ORDER BY position`)
	if err != nil {
		return nil, domain.StoreError("load sqlite", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			e          domain.Event
			start, end string
			status     string
		)
		if err := rows.Scan(&e.ID, &e.Summary, &start, &end, &status); err != nil {
			return nil, domain.StoreError("load sqlite", err)
		}
		if e.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, domain.StoreError("load sqlite", fmt.Errorf("event %s start: %w", e.ID, err))
		}
		if e.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
			return nil, domain.StoreError("load sqlite", fmt.Errorf("event %s end: %w", e.ID, err))
		}
		e.Status = domain.EventStatus(status)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("load sqlite", err)
	}
	return events, nil
}

// SaveAll replaces the table content in a single transaction
func (s *SQLiteStore) SaveAll(ctx context.Context, events []domain.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("save sqlite", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return domain.StoreError("save sqlite", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (position, id, summary, start_at, end_at, status, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return domain.StoreError("save sqlite", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, e := range events {
		if _, err := stmt.ExecContext(ctx, i, e.ID, e.Summary,
			e.Start.UTC().Format(sqliteTimeLayout),
			e.End.UTC().Format(sqliteTimeLayout),
			string(e.Status), now,
		); err != nil {
			return domain.StoreError("save sqlite", fmt.Errorf("insert %s: %w", e.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("save sqlite", err)
	}
	return nil
}
