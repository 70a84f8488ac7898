package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/matsen/skinrec/internal/allergen"
	"github.com/matsen/skinrec/internal/embedding"
	"github.com/matsen/skinrec/internal/semantic"
	"modernc.org/sqlite"
)

// ErrUserNotFound is returned when a user id has no record.
var ErrUserNotFound = errors.New("user not found")

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions installs the custom SQL functions for all connections,
// once per process. A registration failure is remembered and returned to
// every later caller.
//
// cosine_distance(a, b) takes two little-endian float32 blobs; NULL in gives
// NULL out. fold_text(s) applies the allergen matcher's text folding so LIKE
// filters see the same text as allergen.Predicate.IsSafe.
func registerFunctions() error {
	registerOnce.Do(func() {
		if err := sqlite.RegisterDeterministicScalarFunction("cosine_distance", 2, cosineDistance); err != nil {
			registerErr = fmt.Errorf("cosine_distance: %w", err)
			return
		}
		if err := sqlite.RegisterDeterministicScalarFunction("fold_text", 1, foldText); err != nil {
			registerErr = fmt.Errorf("fold_text: %w", err)
		}
	})
	return registerErr
}

func foldText(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return allergen.Fold(v), nil
	case []byte:
		return allergen.Fold(string(v)), nil
	default:
		return nil, fmt.Errorf("fold_text: unsupported argument type %T", v)
	}
}

func cosineDistance(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	a, aok := args[0].([]byte)
	b, bok := args[1].([]byte)
	if !aok || !bok {
		return nil, nil
	}
	va, err := embedding.Decode(a)
	if err != nil {
		return nil, err
	}
	vb, err := embedding.Decode(b)
	if err != nil {
		return nil, err
	}
	return semantic.CosineDistance(va, vb), nil
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("registering sql functions: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist. Vectors live
// in the embeddings table, which survives rebuilds of the entity tables.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT,
			category TEXT,
			description TEXT,
			key_benefits TEXT,
			active_content TEXT,
			ingredients_text TEXT,
			how_to_use TEXT,
			price REAL NOT NULL DEFAULT 0,
			stock_status INTEGER NOT NULL DEFAULT 0,
			skin_types_json TEXT,
			concerns_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);

		CREATE TABLE IF NOT EXISTS concepts (
			id INTEGER PRIMARY KEY,
			concept_type TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT
		);

		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			preferences_json TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			analysis_type TEXT NOT NULL,
			confidence REAL NOT NULL,
			created_at TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_analyses_user ON analyses(user_id);

		CREATE TABLE IF NOT EXISTS embeddings (
			kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			vector BLOB NOT NULL,
			model_name TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			PRIMARY KEY (kind, entity_id)
		);
	`

	_, err := db.Exec(schema)
	return err
}

// Sources names the JSONL files a rebuild reads.
type Sources struct {
	Products string
	Concepts string
	Users    string
	Analyses string
}

// RebuildStats counts the rows loaded by a rebuild.
type RebuildStats struct {
	Products int `json:"products"`
	Concepts int `json:"concepts"`
	Users    int `json:"users"`
	Analyses int `json:"analyses"`
	Vectors  int `json:"vectors"`
}

// RebuildFromJSONL clears the entity tables and reloads them from JSONL in
// one transaction. Embeddings carried in the JSONL replace stored vectors;
// all other stored vectors are kept.
func (d *DB) RebuildFromJSONL(ctx context.Context, src Sources) (RebuildStats, error) {
	var stats RebuildStats

	products, err := ReadProducts(src.Products)
	if err != nil {
		return stats, fmt.Errorf("reading products: %w", err)
	}
	concepts, err := ReadConcepts(src.Concepts)
	if err != nil {
		return stats, fmt.Errorf("reading concepts: %w", err)
	}
	users, err := ReadUsers(src.Users)
	if err != nil {
		return stats, fmt.Errorf("reading users: %w", err)
	}
	analyses, err := ReadAnalyses(src.Analyses)
	if err != nil {
		return stats, fmt.Errorf("reading analyses: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("beginning rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"products", "concepts", "users", "analyses"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return stats, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	productStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (
			id, name, brand, category, description, key_benefits,
			active_content, ingredients_text, how_to_use,
			price, stock_status, skin_types_json, concerns_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return stats, fmt.Errorf("preparing products insert: %w", err)
	}
	defer productStmt.Close()

	vectorStmt, err := tx.PrepareContext(ctx, upsertEmbeddingSQL)
	if err != nil {
		return stats, fmt.Errorf("preparing embeddings upsert: %w", err)
	}
	defer vectorStmt.Close()

	putVector := func(kind semantic.Kind, id string, v []float32) error {
		if len(v) == 0 {
			return nil
		}
		if _, err := vectorStmt.ExecContext(ctx, string(kind), id, embedding.Encode(v), "", "", 0); err != nil {
			return fmt.Errorf("storing %s %s vector: %w", kind, id, err)
		}
		stats.Vectors++
		return nil
	}

	for _, p := range products {
		skinTypes, err := json.Marshal(p.SkinTypes)
		if err != nil {
			return stats, fmt.Errorf("marshaling skin types for %s: %w", p.ID, err)
		}
		concerns, err := json.Marshal(p.Concerns)
		if err != nil {
			return stats, fmt.Errorf("marshaling concerns for %s: %w", p.ID, err)
		}
		_, err = productStmt.ExecContext(ctx,
			p.ID, p.Name, nullableStringValue(p.Brand), nullableStringValue(p.Category),
			nullableStringValue(p.Description), nullableStringValue(p.KeyBenefits),
			nullableStringValue(p.ActiveContent), nullableStringValue(p.IngredientsText),
			nullableStringValue(p.HowToUse), p.Price, p.StockStatus,
			string(skinTypes), string(concerns),
		)
		if err != nil {
			return stats, fmt.Errorf("inserting product %s: %w", p.ID, err)
		}
		if err := putVector(semantic.KindProduct, p.ID, p.Embedding); err != nil {
			return stats, err
		}
	}
	stats.Products = len(products)

	for _, c := range concepts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO concepts (id, concept_type, name, description) VALUES (?, ?, ?, ?)`,
			c.ID, c.Type, c.Name, nullableStringValue(c.Description))
		if err != nil {
			return stats, fmt.Errorf("inserting concept %d: %w", c.ID, err)
		}
		if err := putVector(semantic.KindConcept, conceptKey(c.ID), c.Embedding); err != nil {
			return stats, err
		}
	}
	stats.Concepts = len(concepts)

	for _, u := range users {
		prefs, err := json.Marshal(u.Preferences)
		if err != nil {
			return stats, fmt.Errorf("marshaling preferences for user %d: %w", u.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, preferences_json) VALUES (?, ?)`, u.ID, string(prefs)); err != nil {
			return stats, fmt.Errorf("inserting user %d: %w", u.ID, err)
		}
		if err := putVector(semantic.KindUser, userKey(u.ID), u.Embedding); err != nil {
			return stats, err
		}
	}
	stats.Users = len(users)

	for _, a := range analyses {
		var created sql.NullTime
		if !a.CreatedAt.IsZero() {
			created = sql.NullTime{Time: a.CreatedAt, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO analyses (user_id, analysis_type, confidence, created_at) VALUES (?, ?, ?, ?)`,
			a.UserID, a.Type, a.Confidence, created)
		if err != nil {
			return stats, fmt.Errorf("inserting analysis for user %d: %w", a.UserID, err)
		}
	}
	stats.Analyses = len(analyses)

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("committing rebuild: %w", err)
	}
	return stats, nil
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func decodeVector(b []byte) ([]float32, error) {
	v, err := embedding.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decoding vector: %w", err)
	}
	return v, nil
}
