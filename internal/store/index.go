package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// RebuildSearchIndex clears and repopulates the full-text shadow table with
// one row per food: name, brand (null-coalesced), and the space-joined,
// position-ordered ingredient text. The shadow table is a rebuildable cache,
// never the source of truth; the ranked search path stays correct while it is
// empty or stale.
func (s *SQLite) RebuildSearchIndex(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin index rebuild")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM food_search`); err != nil {
		return eris.Wrap(err, "store: clear search index")
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO food_search (food_id, name, brand, ingredients)
		SELECT
			f.id,
			f.name,
			COALESCE(f.brand, ''),
			COALESCE((SELECT group_concat(i.text, ' ' ORDER BY i.position)
				FROM food_ingredients i WHERE i.food_id = f.id), '')
		FROM foods f`); err != nil {
		return eris.Wrap(err, "store: populate search index")
	}

	return eris.Wrap(tx.Commit(), "store: commit index rebuild")
}

// SearchIndexSize reports the shadow-table row count, a staleness diagnostic
// for the stats surface.
func (s *SQLite) SearchIndexSize(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM food_search`).Scan(&n)
	return n, eris.Wrap(err, "store: search index size")
}

// MatchSearchIndex runs an FTS match against the shadow table and returns the
// matching food identifiers. Callers must tolerate an empty result from a
// never-built or stale index; the canonical ranked path does not depend on it.
func (s *SQLite) MatchSearchIndex(ctx context.Context, query string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT food_id FROM food_search WHERE food_search MATCH ? LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: match search index")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ids, eris.Wrap(err, "store: scan search index match")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "store: match iterate")
}
