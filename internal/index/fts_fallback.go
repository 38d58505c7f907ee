//go:build !sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
)

// Without the sqlite_fts5 tag, search_fts is a plain table and queries
// fall back to LIKE matching.

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS search_fts (
			id      TEXT NOT NULL,
			title   TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_search_fts_id ON search_fts(id);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, content string) error {
	_, _ = tx.Exec(`DELETE FROM search_fts WHERE id = ?`, id)
	if content == "" {
		return nil
	}
	_, err := tx.Exec(`INSERT INTO search_fts (id, title, content) VALUES (?, ?, ?)`,
		id, title, content)
	if err != nil {
		return fmt.Errorf("index: upsert search row: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM search_fts WHERE id = ?`, id)
}

// Search performs LIKE-based substring matching (fallback when FTS5 is
// not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title
		FROM search_fts
		WHERE title LIKE ? OR content LIKE ?
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, err
		}
		r.Score = titleBoost(r.Title, query)
		out = append(out, r)
	}
	return out, rows.Err()
}
