// Package store implements the embedded food dataset: schema management, the
// ranked free-text query path, barcode and identifier lookups, and the
// lazily rebuilt full-text shadow index.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/model"
)

// SQLite is the food store backed by modernc.org/sqlite. It is not safe for
// concurrent use; callers serialize access through the engine actor, which is
// the sole owner of the handle.
type SQLite struct {
	db        *sql.DB
	rank      RankConfig
	overfetch int
}

// Open opens the dataset at the given path and configures pragmas. An open
// failure here is the one hard initialization error the engine surfaces.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &SQLite{db: db, rank: DefaultRankConfig()}, nil
}

// SetRankConfig replaces the ranking heuristics. Intended for datasets whose
// canonical-naming conventions differ from the default UK/generic ones.
func (s *SQLite) SetRankConfig(rc RankConfig) {
	s.rank = rc
}

// SetOverfetch tunes how many times the requested limit is fetched before
// truncation during ranked search.
func (s *SQLite) SetOverfetch(factor int) {
	s.overfetch = factor
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// schemaStatements lists the DDL in dependency order. Every statement is
// additive and idempotent; EnsureSchema never drops anything.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS foods (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		brand               TEXT,
		barcode             TEXT,
		calories            REAL NOT NULL DEFAULT 0,
		protein             REAL NOT NULL DEFAULT 0,
		carbs               REAL NOT NULL DEFAULT 0,
		fat                 REAL NOT NULL DEFAULT 0,
		fiber               REAL NOT NULL DEFAULT 0,
		sugar               REAL NOT NULL DEFAULT 0,
		sodium              REAL NOT NULL DEFAULT 0,
		serving_description TEXT,
		serving_size        REAL,
		vitamin_a           REAL NOT NULL DEFAULT 0,
		vitamin_c           REAL NOT NULL DEFAULT 0,
		vitamin_d           REAL NOT NULL DEFAULT 0,
		vitamin_e           REAL NOT NULL DEFAULT 0,
		vitamin_k           REAL NOT NULL DEFAULT 0,
		thiamin             REAL NOT NULL DEFAULT 0,
		riboflavin          REAL NOT NULL DEFAULT 0,
		niacin              REAL NOT NULL DEFAULT 0,
		pantothenic_acid    REAL NOT NULL DEFAULT 0,
		vitamin_b6          REAL NOT NULL DEFAULT 0,
		biotin              REAL NOT NULL DEFAULT 0,
		folate              REAL NOT NULL DEFAULT 0,
		vitamin_b12         REAL NOT NULL DEFAULT 0,
		choline             REAL NOT NULL DEFAULT 0,
		calcium             REAL NOT NULL DEFAULT 0,
		chloride            REAL NOT NULL DEFAULT 0,
		chromium            REAL NOT NULL DEFAULT 0,
		copper              REAL NOT NULL DEFAULT 0,
		iodine              REAL NOT NULL DEFAULT 0,
		iron                REAL NOT NULL DEFAULT 0,
		magnesium           REAL NOT NULL DEFAULT 0,
		manganese           REAL NOT NULL DEFAULT 0,
		molybdenum          REAL NOT NULL DEFAULT 0,
		phosphorus          REAL NOT NULL DEFAULT 0,
		potassium           REAL NOT NULL DEFAULT 0,
		selenium            REAL NOT NULL DEFAULT 0,
		zinc                REAL NOT NULL DEFAULT 0,
		ingredients         TEXT,
		processing_score    REAL,
		processing_grade    TEXT,
		processing_label    TEXT,
		verified            INTEGER NOT NULL DEFAULT 0,
		verified_by         TEXT,
		verified_at         DATETIME,
		created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
		updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_foods_barcode ON foods(barcode)`,
	`CREATE INDEX IF NOT EXISTS idx_foods_name ON foods(name COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_foods_brand ON foods(brand COLLATE NOCASE)`,
	`CREATE TABLE IF NOT EXISTS food_ingredients (
		food_id  TEXT NOT NULL REFERENCES foods(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		text     TEXT NOT NULL,
		PRIMARY KEY (food_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_food_ingredients_food_id ON food_ingredients(food_id)`,
	`CREATE INDEX IF NOT EXISTS idx_food_ingredients_text ON food_ingredients(text COLLATE NOCASE)`,
	`CREATE TABLE IF NOT EXISTS food_additives (
		food_id       TEXT NOT NULL REFERENCES foods(id) ON DELETE CASCADE,
		code          TEXT NOT NULL,
		name          TEXT,
		safety_rating TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_food_additives_food_id ON food_additives(food_id)`,
	`CREATE VIRTUAL TABLE IF NOT EXISTS food_search USING fts5(
		food_id UNINDEXED,
		name,
		brand,
		ingredients
	)`,
}

// EnsureSchema creates the relational schema. Each statement is best-effort:
// a failure is logged and the remaining statements still run, so a partially
// broken dataset degrades instead of taking the search feature down.
func (s *SQLite) EnsureSchema(ctx context.Context) {
	log := zap.L().Named("store")
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			log.Error("schema statement failed", zap.Error(err))
		}
	}
}

// InsertFood writes a canonical food record plus its ingredient and additive
// rows. Records arriving without an identifier get a generated one. This is
// the write path used by the import producer; the live query engine never
// mutates food rows.
func (s *SQLite) InsertFood(ctx context.Context, f model.Food) (string, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.IngredientsText == "" && len(f.Ingredients) > 0 {
		f.IngredientsText = model.EncodeIngredients(f.Ingredients)
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "store: begin insert")
	}
	defer tx.Rollback() //nolint:errcheck

	m := f.Micronutrients
	_, err = tx.ExecContext(ctx, `INSERT INTO foods (
		id, name, brand, barcode,
		calories, protein, carbs, fat, fiber, sugar, sodium,
		serving_description, serving_size,
		vitamin_a, vitamin_c, vitamin_d, vitamin_e, vitamin_k,
		thiamin, riboflavin, niacin, pantothenic_acid, vitamin_b6,
		biotin, folate, vitamin_b12, choline,
		calcium, chloride, chromium, copper, iodine, iron,
		magnesium, manganese, molybdenum, phosphorus, potassium, selenium, zinc,
		ingredients, processing_score, processing_grade, processing_label,
		verified, verified_by, verified_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, nullString(f.Brand), nullString(f.Barcode),
		f.Calories, f.Protein, f.Carbs, f.Fat, f.Fiber, f.Sugar, f.Sodium,
		nullString(f.ServingDescription), f.ServingSize,
		m.VitaminA, m.VitaminC, m.VitaminD, m.VitaminE, m.VitaminK,
		m.Thiamin, m.Riboflavin, m.Niacin, m.PantothenicAcid, m.VitaminB6,
		m.Biotin, m.Folate, m.VitaminB12, m.Choline,
		m.Calcium, m.Chloride, m.Chromium, m.Copper, m.Iodine, m.Iron,
		m.Magnesium, m.Manganese, m.Molybdenum, m.Phosphorus, m.Potassium, m.Selenium, m.Zinc,
		nullString(f.IngredientsText), f.ProcessingScore, nullString(f.ProcessingGrade), nullString(f.ProcessingLabel),
		f.Verified, nullString(f.VerifiedBy), f.VerifiedAt, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return "", eris.Wrapf(err, "store: insert food %s", f.ID)
	}

	ingredients := f.Ingredients
	if len(ingredients) == 0 && f.IngredientsText != "" {
		ingredients = model.ParseIngredients(f.IngredientsText)
	}
	for i, text := range ingredients {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO food_ingredients (food_id, position, text) VALUES (?, ?, ?)`,
			f.ID, i, text,
		); err != nil {
			return "", eris.Wrapf(err, "store: insert ingredient %d for %s", i, f.ID)
		}
	}

	for _, a := range f.Additives {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO food_additives (food_id, code, name, safety_rating) VALUES (?, ?, ?, ?)`,
			f.ID, a.Code, nullString(a.Name), nullString(a.SafetyRating),
		); err != nil {
			return "", eris.Wrapf(err, "store: insert additive %s for %s", a.Code, f.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrapf(err, "store: commit insert %s", f.ID)
	}
	return f.ID, nil
}

// DeleteFood removes a food record. Ingredient and additive rows cascade
// through the schema's foreign keys.
func (s *SQLite) DeleteFood(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM foods WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "store: delete food %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("food not found: %s", id)
	}
	return nil
}

// CountFoods returns the canonical record count, used for the empty-dataset
// startup diagnostic.
func (s *SQLite) CountFoods(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM foods`).Scan(&n)
	return n, eris.Wrap(err, "store: count foods")
}

// Stats returns the operational aggregates (total, with-barcode, verified).
func (s *SQLite) Stats(ctx context.Context) (model.FoodStats, error) {
	var st model.FoodStats
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN barcode IS NOT NULL AND barcode != '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN verified != 0 THEN 1 ELSE 0 END), 0)
	FROM foods`).Scan(&st.Total, &st.WithBarcodes, &st.Verified)
	return st, eris.Wrap(err, "store: stats")
}

// IngredientCount and AdditiveCount are direct child-row counts, exposed so
// cascade behavior can be verified without widening the public query API.

func (s *SQLite) IngredientCount(ctx context.Context, foodID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM food_ingredients WHERE food_id = ?`, foodID).Scan(&n)
	return n, eris.Wrap(err, "store: count ingredients")
}

func (s *SQLite) AdditiveCount(ctx context.Context, foodID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM food_additives WHERE food_id = ?`, foodID).Scan(&n)
	return n, eris.Wrap(err, "store: count additives")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
