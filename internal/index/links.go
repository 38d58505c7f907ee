package index

import (
	"context"
	"fmt"
)

// Link is one wikilink edge. TargetPath may be unresolved (dangling);
// that is tolerated throughout.
type Link struct {
	Source     string `json:"source"`
	TargetRaw  string `json:"targetRaw"`
	TargetPath string `json:"targetPath"`
}

// UpsertLinks atomically replaces the outbound link set for source:
// delete-all then insert, never a partial merge, so the stored set
// always matches the note's last-indexed content exactly.
func (db *DB) UpsertLinks(ctx context.Context, source string, links []Link) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, source); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO links (source, target, target_id) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if l.TargetRaw == "" {
				continue
			}
			if _, err := stmt.Exec(source, l.TargetRaw, l.TargetPath); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Outbound returns the current outbound link set for source.
func (db *DB) Outbound(ctx context.Context, source string) ([]Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT target, target_id FROM links WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("index: outbound: %w", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		l := Link{Source: source}
		if err := rows.Scan(&l.TargetRaw, &l.TargetPath); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns every link whose resolved target is the given note.
func (db *DB) Backlinks(ctx context.Context, target string) ([]Link, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT source, target, target_id FROM links WHERE target_id = ?`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Source, &l.TargetRaw, &l.TargetPath); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RemoveSource deletes all outbound links for source. Rows where the
// note appears only as a target are left dangling.
func (db *DB) RemoveSource(ctx context.Context, source string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM links WHERE source = ?`, source); err != nil {
		return fmt.Errorf("index: remove source: %w", err)
	}
	return nil
}
