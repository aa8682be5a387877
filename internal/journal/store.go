package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Added index on entries.kind
const currentSchemaVersion = 1

// Store provides durable storage for render journals.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes entries by kind for trace filtering.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(run_id, kind)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// Run is one recorded render run.
type Run struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Root  string `json:"root,omitempty"`
}

// Entry is one journal row. Target and Event are set for dispatch entries;
// Window, Tasks and Failed for window entries.
type Entry struct {
	RunID      string `json:"run_id"`
	Seq        int64  `json:"seq"`
	Kind       string `json:"kind"`
	Component  string `json:"component,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Ref        string `json:"ref,omitempty"`
	Target     string `json:"target,omitempty"`
	Event      string `json:"event,omitempty"`
	Window     int    `json:"window,omitempty"`
	Tasks      int    `json:"tasks,omitempty"`
	Failed     int    `json:"failed,omitempty"`
}

// Snapshot is a named rendering of the app root.
type Snapshot struct {
	RunID  string `json:"run_id"`
	Seq    int64  `json:"seq"`
	Name   string `json:"name"`
	HTML   string `json:"html"`
	Digest string `json:"digest"`
}

// WriteRun inserts a run. Writing the same id twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, label, root)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Label, run.Root)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return nil
}

// WriteEntry inserts an entry. Entries are keyed by (run, seq).
func (s *Store) WriteEntry(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (run_id, seq, kind, component, template_id, ref, target, event, window_no, tasks, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, e.RunID, e.Seq, e.Kind, e.Component, e.TemplateID, e.Ref, e.Target, e.Event, e.Window, e.Tasks, e.Failed)
	if err != nil {
		return fmt.Errorf("write entry %s/%d: %w", e.RunID, e.Seq, err)
	}
	return nil
}

// WriteSnapshot inserts a snapshot.
func (s *Store) WriteSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, seq, name, html, digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, snap.RunID, snap.Seq, snap.Name, snap.HTML, snap.Digest)
	if err != nil {
		return fmt.Errorf("write snapshot %s/%d: %w", snap.RunID, snap.Seq, err)
	}
	return nil
}
