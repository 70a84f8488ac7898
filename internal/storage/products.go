package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/matsen/skinrec/internal/candidate"
	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/embedding"
)

// selectProductFields is the column list scanProduct expects. e is the
// product's row in the embeddings table.
const selectProductFields = `p.id, p.name, p.brand, p.category, p.description,
	p.key_benefits, p.active_content, p.ingredients_text, p.how_to_use,
	p.price, p.stock_status, p.skin_types_json, p.concerns_json, e.vector`

const productJoin = `FROM products p
	LEFT JOIN embeddings e ON e.kind = 'product' AND e.entity_id = p.id`

// safetyText is the text allergen filters match against, folded the same
// way allergen.Predicate folds it. NULL columns read as empty.
const safetyText = `fold_text(COALESCE(p.ingredients_text, '') || ' ' || COALESCE(p.active_content, ''))`

func scanProduct(s scanner, extra ...any) (catalog.Product, error) {
	var (
		p                                    catalog.Product
		brand, category, description         sql.NullString
		benefits, active, ingredients, howTo sql.NullString
		skinTypesJSON, concernsJSON          sql.NullString
		vector                               []byte
	)

	dest := []any{
		&p.ID, &p.Name, &brand, &category, &description,
		&benefits, &active, &ingredients, &howTo,
		&p.Price, &p.StockStatus, &skinTypesJSON, &concernsJSON, &vector,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return p, err
	}

	p.Brand = brand.String
	p.Category = category.String
	p.Description = description.String
	p.KeyBenefits = benefits.String
	p.ActiveContent = active.String
	p.IngredientsText = ingredients.String
	p.HowToUse = howTo.String

	if skinTypesJSON.Valid {
		if err := json.Unmarshal([]byte(skinTypesJSON.String), &p.SkinTypes); err != nil {
			return p, fmt.Errorf("unmarshaling skin types for %s: %w", p.ID, err)
		}
	}
	if concernsJSON.Valid {
		if err := json.Unmarshal([]byte(concernsJSON.String), &p.Concerns); err != nil {
			return p, fmt.Errorf("unmarshaling concerns for %s: %w", p.ID, err)
		}
	}

	v, err := decodeVector(vector)
	if err != nil {
		return p, fmt.Errorf("product %s: %w", p.ID, err)
	}
	p.Embedding = v
	return p, nil
}

// Products returns every product in id order.
func (d *DB) Products(ctx context.Context) ([]catalog.Product, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectProductFields+` `+productJoin+` ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ProductByID returns one product.
func (d *DB) ProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectProductFields+` `+productJoin+` WHERE p.id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		return nil, fmt.Errorf("getting product %s: %w", id, err)
	}
	return &p, nil
}

// CountProducts returns the number of products.
func (d *DB) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// buildCandidateQuery renders q as a single SELECT. Placeholders appear in
// the order score expression, allergen clause, price, limit.
func buildCandidateQuery(q candidate.Query) (string, []any) {
	score, args := q.Expression.SQL("e.vector", func(t candidate.Term) []any {
		return []any{t.Weight, embedding.Encode(t.Embedding)}
	})

	where := []string{"e.vector IS NOT NULL"}
	if clause, safetyArgs := q.Safety.SQL(safetyText); clause != "" {
		where = append(where, clause)
		args = append(args, safetyArgs...)
	}
	if q.MaxPrice != nil {
		where = append(where, "p.price <= ?")
		args = append(args, *q.MaxPrice)
	}
	if !q.IncludeOutOfStock {
		where = append(where, "p.stock_status = 0")
	}
	args = append(args, q.Limit)

	query := `SELECT ` + selectProductFields + `, (` + score + `) AS score
	` + productJoin + `
	WHERE ` + strings.Join(where, "\n\t  AND ") + `
	ORDER BY score DESC, p.id
	LIMIT ?`
	return query, args
}

// Candidates implements candidate.Store.
func (d *DB) Candidates(ctx context.Context, q candidate.Query) ([]candidate.Candidate, error) {
	if q.Expression.Empty() {
		return nil, nil
	}

	query, args := buildCandidateQuery(q)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var out []candidate.Candidate
	for rows.Next() {
		var score sql.NullFloat64
		p, err := scanProduct(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		out = append(out, candidate.Candidate{Product: p, ConcernScore: score.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}
	return out, nil
}
