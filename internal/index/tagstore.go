package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/liminal-notes/vaultcore/internal/apperr"
	"github.com/liminal-notes/vaultcore/internal/tags"
)

// UpsertTag inserts or replaces a tag definition row.
func (db *DB) UpsertTag(ctx context.Context, tag tags.Tag) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO tags (id, display_name, color, created_at, ai_auto_approve)
		VALUES (?, ?, ?, ?, ?)
	`, tag.ID, tag.DisplayName, nullString(tag.Color), tag.CreatedAt, boolInt(tag.AIAutoApprove))
	if err != nil {
		return fmt.Errorf("index: upsert tag: %w", err)
	}
	return nil
}

// GetTag returns a tag definition, or ErrNotFound.
func (db *DB) GetTag(ctx context.Context, id string) (tags.Tag, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, display_name, color, created_at, ai_auto_approve
		FROM tags WHERE id = ?
	`, id)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tags.Tag{}, fmt.Errorf("index: tag %s: %w", id, apperr.ErrNotFound)
	}
	return t, err
}

// AllTags returns every tag definition sorted by display name.
func (db *DB) AllTags(ctx context.Context) ([]tags.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, display_name, color, created_at, ai_auto_approve
		FROM tags ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("index: all tags: %w", err)
	}
	defer rows.Close()

	var out []tags.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTag removes a tag definition row. note_tags rows referencing it
// are left in place.
func (db *DB) DeleteTag(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete tag: %w", err)
	}
	return nil
}

// SetNoteTags atomically replaces the tag association set for a note.
func (db *DB) SetNoteTags(ctx context.Context, noteID string, tagIDs []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM note_tags WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("index: clear note tags: %w", err)
	}
	if len(tagIDs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare note tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tagID := range tagIDs {
			if _, err := stmt.Exec(noteID, tagID); err != nil {
				return fmt.Errorf("index: insert note tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// TagsForNote returns the tag ids attached to a note.
func (db *DB) TagsForNote(ctx context.Context, noteID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT tag_id FROM note_tags WHERE note_id = ?`, noteID)
	if err != nil {
		return nil, fmt.Errorf("index: tags for note: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// NotesForTag returns the note ids carrying a tag.
func (db *DB) NotesForTag(ctx context.Context, tagID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT note_id FROM note_tags WHERE tag_id = ?`, tagID)
	if err != nil {
		return nil, fmt.Errorf("index: notes for tag: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (tags.Tag, error) {
	var t tags.Tag
	var color sql.NullString
	var auto int
	if err := row.Scan(&t.ID, &t.DisplayName, &color, &t.CreatedAt, &auto); err != nil {
		return tags.Tag{}, err
	}
	t.Color = color.String
	t.AIAutoApprove = auto != 0
	return t, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
