package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// NoteEntry is the unit of upsert into the search store.
type NoteEntry struct {
	ID      string
	Title   string
	Content string
	MtimeMs int64
}

// FolderActivity is a derived per-folder aggregate. It is recomputed on
// demand and never persisted.
type FolderActivity struct {
	Path       string `json:"path"`
	NoteCount  int    `json:"noteCount"`
	LastActive int64  `json:"lastActive"`
}

// UpsertNote replaces the notes row and the FTS row for entry within a
// transaction. Entries with empty content get no FTS row: title-only
// notes are listed but excluded from full-text ranking.
func (db *DB) UpsertNote(ctx context.Context, entry NoteEntry) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`INSERT OR REPLACE INTO notes (id, title, updated_at) VALUES (?, ?, ?)`,
		entry.ID, entry.Title, entry.MtimeMs)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// The FTS table requires delete-then-reinsert rather than update.
	if err := ftsUpsert(tx, entry.ID, entry.Title, entry.Content); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveNote deletes a note from the metadata and FTS tables.
func (db *DB) RemoveNote(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	ftsDelete(tx, id)

	return tx.Commit()
}

// AllNotes returns every indexed note id mapped to its stored mtime.
// The coordinator uses it to compute the new-file backlog.
func (db *DB) AllNotes(ctx context.Context) (map[string]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, updated_at FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all notes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var mtime int64
		if err := rows.Scan(&id, &mtime); err != nil {
			return nil, err
		}
		out[id] = mtime
	}
	return out, rows.Err()
}

// FolderActivity buckets notes by their first path segment and returns
// per-folder counts and most recent activity, most recently active
// first. Notes at the vault root are skipped.
func (db *DB) FolderActivity(ctx context.Context) ([]FolderActivity, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, updated_at FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: folder activity: %w", err)
	}
	defer rows.Close()

	buckets := make(map[string]*FolderActivity)
	for rows.Next() {
		var id string
		var mtime int64
		if err := rows.Scan(&id, &mtime); err != nil {
			return nil, err
		}
		slash := strings.Index(id, "/")
		if slash < 0 {
			continue
		}
		folder := id[:slash]
		b, ok := buckets[folder]
		if !ok {
			b = &FolderActivity{Path: folder}
			buckets[folder] = b
		}
		b.NoteCount++
		if mtime > b.LastActive {
			b.LastActive = mtime
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]FolderActivity, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActive != out[j].LastActive {
			return out[i].LastActive > out[j].LastActive
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}
