// Package archive keeps finished interviews in a SQLite database.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS interviews (
	id              TEXT PRIMARY KEY,
	role            TEXT NOT NULL,
	mode            TEXT NOT NULL,
	adjusted_rating REAL NOT NULL,
	answered        INTEGER NOT NULL,
	total           INTEGER NOT NULL,
	session_json    TEXT NOT NULL,
	report_json     TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS interviews_finished_at ON interviews (finished_at);
`

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// ErrNotFound is returned when no interview has the requested id.
var ErrNotFound = errors.New("interview not found")

// Record is an archived interview.
type Record struct {
	Session    interview.Session `json:"session"`
	Report     report.Report     `json:"report"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Entry is the listing view of a Record.
type Entry struct {
	ID             string         `json:"id"`
	Role           string         `json:"role"`
	Mode           interview.Mode `json:"mode"`
	AdjustedRating float64        `json:"adjusted_rating"`
	Answered       int            `json:"answered"`
	Total          int            `json:"total"`
	FinishedAt     time.Time      `json:"finished_at"`
}

// Store manages archived interviews in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a finished interview, replacing an earlier copy with the same id.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.Session.ID == "" {
		return errors.New("archive record has no session id")
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}

	sessionJSON, err := json.Marshal(rec.Session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interviews (id, role, mode, adjusted_rating, answered, total, session_json, report_json, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			adjusted_rating = excluded.adjusted_rating,
			answered = excluded.answered,
			total = excluded.total,
			session_json = excluded.session_json,
			report_json = excluded.report_json,
			finished_at = excluded.finished_at`,
		rec.Session.ID,
		rec.Session.Role,
		string(rec.Session.Mode),
		rec.Report.AdjustedRating,
		rec.Report.Answered,
		rec.Report.Total,
		string(sessionJSON),
		string(reportJSON),
		rec.Session.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

// Get loads an archived interview by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var sessionJSON, reportJSON, finishedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_json, report_json, finished_at FROM interviews WHERE id = ?`, id,
	).Scan(&sessionJSON, &reportJSON, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("query interview: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(sessionJSON), &rec.Session); err != nil {
		return Record{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := json.Unmarshal([]byte(reportJSON), &rec.Report); err != nil {
		return Record{}, fmt.Errorf("unmarshal report: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return Record{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return rec, nil
}

// List returns the most recently finished interviews first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, mode, adjusted_rating, answered, total, finished_at
		 FROM interviews ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query interviews: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			mode       string
			finishedAt string
		)
		if err := rows.Scan(&e.ID, &e.Role, &mode, &e.AdjustedRating, &e.Answered, &e.Total, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		e.Mode = interview.Mode(mode)
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
