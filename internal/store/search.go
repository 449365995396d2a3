package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/model"
)

const defaultOverfetch = 2

// GetFood looks up a single record by identifier. Returns nil when absent.
func (s *SQLite) GetFood(ctx context.Context, id string) (*model.FoodSearchResult, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM foods WHERE id = ?`, resultColumns), id)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get food %s", id)
	}
	return r, nil
}

// GetFoodByBarcode looks up a single record by exact barcode. The barcode
// column is not unique; on duplicates the lowest identifier wins so repeated
// scans of the same code always resolve to the same record.
func (s *SQLite) GetFoodByBarcode(ctx context.Context, code string) (*model.FoodSearchResult, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM foods WHERE barcode = ? ORDER BY id LIMIT 1`, resultColumns), code)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get food by barcode %s", code)
	}
	return r, nil
}

// Search runs the ranked free-text search. Candidates match the query as a
// case-insensitive substring of name or brand, or exactly as a barcode; they
// are then ordered by ranking tier, with generic-brand rows, shorter names,
// and alphabetical name as tie-breaks, and finally by identifier so ordering
// is fully deterministic. More rows than requested are fetched before
// truncation so poorly ranked pre-filter matches cannot starve the result
// window.
func (s *SQLite) Search(ctx context.Context, query string, limit int) ([]model.FoodSearchResult, error) {
	raw := query
	query = normalizeQuery(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	overfetch := s.overfetch
	if overfetch <= 0 {
		overfetch = defaultOverfetch
	}

	tier, tierArgs := s.rank.tierExpr(query, raw)
	contains := "%" + escapeLike(query) + "%"

	sqlText := fmt.Sprintf(`SELECT %s FROM foods
	WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(brand, '')) LIKE ? ESCAPE '\' OR barcode = ?
	ORDER BY
		%s,
		CASE WHEN LOWER(COALESCE(brand, '')) = ? THEN 0 ELSE 1 END,
		LENGTH(name),
		LOWER(name),
		id
	LIMIT ?`, resultColumns, tier)

	args := make([]any, 0, len(tierArgs)+5)
	args = append(args, contains, contains, raw)
	args = append(args, tierArgs...)
	args = append(args, s.rank.genericLower(), limit*overfetch)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: search")
	}
	defer rows.Close()

	log := zap.L().Named("store")
	results := make([]model.FoodSearchResult, 0, limit)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			// One malformed row must not abort the batch.
			log.Warn("skipping undecodable row", zap.Error(err))
			continue
		}
		if r == nil {
			continue
		}
		results = append(results, *r)
		if len(results) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return results, eris.Wrap(err, "store: search iterate")
	}
	return results, nil
}
