package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/ansuz/internal/note"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	links      TEXT NOT NULL DEFAULT '[]',
	color      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	id         TEXT PRIMARY KEY,
	note_id    TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	color      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_versions_note ON versions(note_id);
`

// SQLite implements Provider on a local SQLite database.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// LoadNotes returns all notes ordered by identifier. Identifiers are
// time-ordered ULIDs, so this is creation order.
func (s *SQLite) LoadNotes() ([]note.Note, error) {
	rows, err := s.conn.Query(`
		SELECT id, title, body, tags, links, color, created_at, updated_at
		FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: load notes: %w", err)
	}
	defer rows.Close()

	var out []note.Note
	for rows.Next() {
		var n note.Note
		var tagsJSON, linksJSON string
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &tagsJSON, &linksJSON,
			&n.Color, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
		_ = json.Unmarshal([]byte(linksJSON), &n.Links)
		out = append(out, n)
	}
	return out, rows.Err()
}

// SaveNote inserts or replaces a note row.
func (s *SQLite) SaveNote(n note.Note) error {
	tagsJSON, _ := json.Marshal(emptyIfNil(n.Tags))
	linksJSON, _ := json.Marshal(emptyIfNil(n.Links))
	_, err := s.conn.Exec(`
		INSERT INTO notes (id, title, body, tags, links, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			body       = excluded.body,
			tags       = excluded.tags,
			links      = excluded.links,
			color      = excluded.color,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, n.Body, string(tagsJSON), string(linksJSON), n.Color, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save note: %w", err)
	}
	return nil
}

// DeleteNote removes a note and its versions.
func (s *SQLite) DeleteNote(id string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, _ = tx.Exec(`DELETE FROM versions WHERE note_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	return tx.Commit()
}

// ReplaceAll swaps the entire collection in one transaction.
func (s *SQLite) ReplaceAll(notes []note.Note) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM versions`); err != nil {
		return fmt.Errorf("store: clear versions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes`); err != nil {
		return fmt.Errorf("store: clear notes: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO notes (id, title, body, tags, links, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range notes {
		tagsJSON, _ := json.Marshal(emptyIfNil(n.Tags))
		linksJSON, _ := json.Marshal(emptyIfNil(n.Links))
		if _, err := stmt.Exec(n.ID, n.Title, n.Body, string(tagsJSON),
			string(linksJSON), n.Color, n.CreatedAt, n.UpdatedAt); err != nil {
			return fmt.Errorf("store: insert note %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// LoadVersions returns a note's versions, newest first.
func (s *SQLite) LoadVersions(noteID string) ([]note.Version, error) {
	rows, err := s.conn.Query(`
		SELECT id, note_id, title, body, tags, color, created_at
		FROM versions WHERE note_id = ? ORDER BY created_at DESC, id DESC`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: load versions: %w", err)
	}
	defer rows.Close()

	var out []note.Version
	for rows.Next() {
		var v note.Version
		var tagsJSON string
		if err := rows.Scan(&v.ID, &v.NoteID, &v.Title, &v.Body, &tagsJSON,
			&v.Color, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan version: %w", err)
		}
		_ = json.Unmarshal([]byte(tagsJSON), &v.Tags)
		out = append(out, v)
	}
	return out, rows.Err()
}

// SaveVersions replaces a note's retained versions in one transaction.
func (s *SQLite) SaveVersions(noteID string, versions []note.Version) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM versions WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("store: clear note versions: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO versions (id, note_id, title, body, tags, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare version insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range versions {
		tagsJSON, _ := json.Marshal(emptyIfNil(v.Tags))
		if _, err := stmt.Exec(v.ID, v.NoteID, v.Title, v.Body,
			string(tagsJSON), v.Color, v.CreatedAt); err != nil {
			return fmt.Errorf("store: insert version %s: %w", v.ID, err)
		}
	}
	return tx.Commit()
}

// Wipe removes every note and version.
func (s *SQLite) Wipe() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM versions`)
	_, _ = tx.Exec(`DELETE FROM notes`)
	return tx.Commit()
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
