package store

import (
	"context"
	"database/sql"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const headlineLen = 120

const noteColumns = `id, title, body, delta, locked, color, notebook, topic, tags, date_created, date_edited`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*models.Note, error) {
	var (
		n      models.Note
		delta  sql.NullString
		locked bool
		tags   string
	)
	err := row.Scan(&n.ID, &n.Title, &n.Content.Text, &delta, &locked, &n.Color,
		&n.Notebook, &n.Topic, &tags, &n.DateCreated, &n.DateEdited)
	if err != nil {
		return nil, err
	}
	n.Locked = locked
	if delta.Valid {
		n.Content.Delta = stdjson.RawMessage(delta.String)
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return &n, nil
}

// NoteByID returns the note with the given id. Locked notes come back with
// an empty body.
func (db *DB) NoteByID(ctx context.Context, id string) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: note %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: note %s: %w", id, err)
	}
	return n, nil
}

// AddOrUpdate writes title and content. An empty in.ID creates a note with a
// fresh identity; an unknown non-empty ID returns apperr.ErrNotFound, so a
// deleted note is never recreated by a late save. Locked notes are refused
// with apperr.ErrLocked.
func (db *DB) AddOrUpdate(ctx context.Context, in models.NoteInput) (string, error) {
	id, create := in.ID, in.ID == ""
	if create {
		id = uuid.NewString()
	}
	var delta any
	if in.Content.Delta != nil {
		delta = string(in.Content.Delta)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var locked bool
	err = tx.QueryRowContext(ctx, `SELECT locked FROM notes WHERE id = ?`, id).Scan(&locked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !create {
			return "", fmt.Errorf("store: write %s: %w", id, apperr.ErrNotFound)
		}
	case err != nil:
		return "", fmt.Errorf("store: lock state: %w", err)
	case locked:
		return "", fmt.Errorf("store: write %s: %w", id, apperr.ErrLocked)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, title, body, delta, date_created, date_edited)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			body        = excluded.body,
			delta       = excluded.delta,
			date_edited = excluded.date_edited
	`, id, in.Title, in.Content.Text, delta, now, now)
	if err != nil {
		return "", fmt.Errorf("store: upsert note: %w", err)
	}
	if err := ftsUpsert(tx, id, in.Title, in.Content.Text); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

// Move files the note under a notebook topic.
func (db *DB) Move(ctx context.Context, dest models.Destination, id string) error {
	return db.update(ctx, id, `UPDATE notes SET notebook = ?, topic = ? WHERE id = ?`, dest.Notebook, dest.Topic, id)
}

// Color sets the note color.
func (db *DB) Color(ctx context.Context, id, color string) error {
	return db.update(ctx, id, `UPDATE notes SET color = ? WHERE id = ?`, color, id)
}

// Tag adds tag to the note. Adding an existing tag is a no-op.
func (db *DB) Tag(ctx context.Context, id, tag string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT tags FROM notes WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: tag %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: tag %s: %w", id, err)
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return fmt.Errorf("store: decode tags: %w", err)
	}
	if slices.Contains(tags, tag) {
		return nil
	}
	tagsJSON, err := json.Marshal(append(tags, tag))
	if err != nil {
		return fmt.Errorf("store: encode tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE notes SET tags = ? WHERE id = ?`, string(tagsJSON), id); err != nil {
		return fmt.Errorf("store: tag %s: %w", id, err)
	}
	return tx.Commit()
}

// Delta returns the structured body of a note, nil when it has none.
func (db *DB) Delta(ctx context.Context, id string) (stdjson.RawMessage, error) {
	var delta sql.NullString
	err := db.conn.QueryRowContext(ctx, `SELECT delta FROM notes WHERE id = ?`, id).Scan(&delta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: delta %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: delta %s: %w", id, err)
	}
	if !delta.Valid {
		return nil, nil
	}
	return stdjson.RawMessage(delta.String), nil
}

// Delete removes a note.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: delete %s: %w", id, apperr.ErrNotFound)
	}
	return tx.Commit()
}

// List returns a page of note summaries, most recently edited first, and the
// total number of matching notes. A non-empty tag filters by tag.
func (db *DB) List(ctx context.Context, limit, offset int, tag string) ([]models.NoteSummary, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where, args := "", []any{}
	if tag != "" {
		where = `WHERE EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, substr(body, 1, ?), locked, color, tags, date_edited
		FROM notes `+where+`
		ORDER BY date_edited DESC, id
		LIMIT ? OFFSET ?
	`, append(append([]any{headlineLen}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.NoteSummary{}
	for rows.Next() {
		var (
			s    models.NoteSummary
			tags string
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.Headline, &s.Locked, &s.Color, &tags, &s.DateEdited); err != nil {
			return nil, 0, fmt.Errorf("store: scan summary: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
			return nil, 0, fmt.Errorf("store: decode tags: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (db *DB) update(ctx context.Context, id, query string, args ...any) error {
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: update %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
