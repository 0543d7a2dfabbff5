package sessions

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump it when schema.sql
// changes; users clear the database to adopt the new schema.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// stereocap version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// End reasons recorded when a burst finishes.
const (
	EndStop       = "stop"
	EndClose      = "close"
	EndDeadline   = "deadline"
	EndDisconnect = "disconnect"
)

// Session is one capture burst.
type Session struct {
	ID         string
	Resolution string
	ExposureUS uint64
	Frames     uint64
	StartedAt  time.Time
	EndedAt    *time.Time
	EndReason  string
}

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session database in dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Begin records the start of a capture burst and returns the new session.
func (s *Store) Begin(ctx context.Context, resolution string, exposureUS uint64) (*Session, error) {
	session := &Session{
		ID:         uuid.NewString(),
		Resolution: resolution,
		ExposureUS: exposureUS,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, resolution, exposure_us, started_at) VALUES (?, ?, ?, ?)",
		session.ID, session.Resolution, session.ExposureUS, session.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// Finish records the end of a burst: how many frames were delivered and why
// it stopped.
func (s *Store) Finish(ctx context.Context, id string, frames uint64, reason string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET frames = ?, ended_at = ?, end_reason = ? WHERE id = ?",
		frames, time.Now().UTC().Format(time.RFC3339Nano), reason, id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// List returns sessions most recent first, at most limit rows (0 means all).
func (s *Store) List(ctx context.Context, limit int) ([]*Session, error) {
	query := "SELECT id, resolution, exposure_us, frames, started_at, ended_at, end_reason FROM sessions ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Get returns one session by ID, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, resolution, exposure_us, frames, started_at, ended_at, end_reason FROM sessions WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSession(rows)
}

func scanSession(rows *sql.Rows) (*Session, error) {
	var (
		session  Session
		started  string
		ended    sql.NullString
		reason   sql.NullString
		frames   int64
		exposure int64
	)
	if err := rows.Scan(&session.ID, &session.Resolution, &exposure, &frames, &started, &ended, &reason); err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	session.ExposureUS = uint64(exposure)
	session.Frames = uint64(frames)

	startedAt, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	session.StartedAt = startedAt

	if ended.Valid && ended.String != "" {
		endedAt, err := time.Parse(time.RFC3339Nano, ended.String)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		session.EndedAt = &endedAt
	}
	if reason.Valid {
		session.EndReason = reason.String
	}
	return &session, nil
}
