//go:build sqlite_fts5

package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS search_fts USING fts5(
			id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
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
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM search_fts WHERE id = ?`, id)
}

// Search runs a phrase-prefix FTS5 query ordered by the engine's rank.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	ftsQuery := `"` + strings.ReplaceAll(query, `"`, `""`) + `"*`
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title
		FROM search_fts
		WHERE search_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
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
