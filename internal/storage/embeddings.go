package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matsen/skinrec/internal/embedding"
	"github.com/matsen/skinrec/internal/semantic"
)

const upsertEmbeddingSQL = `
	INSERT INTO embeddings (kind, entity_id, vector, model_name, text_hash, indexed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (kind, entity_id) DO UPDATE SET
		vector = excluded.vector,
		model_name = excluded.model_name,
		text_hash = excluded.text_hash,
		indexed_at = excluded.indexed_at`

// TextHash implements semantic.Store.
func (d *DB) TextHash(ctx context.Context, kind semantic.Kind, id string) (string, error) {
	var hash string
	err := d.db.QueryRowContext(ctx,
		`SELECT text_hash FROM embeddings WHERE kind = ? AND entity_id = ?`, string(kind), id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting text hash for %s %s: %w", kind, id, err)
	}
	return hash, nil
}

// SaveEmbedding implements semantic.Store.
func (d *DB) SaveEmbedding(ctx context.Context, rec semantic.Record) error {
	_, err := d.db.ExecContext(ctx, upsertEmbeddingSQL,
		string(rec.Kind), rec.ID, embedding.Encode(rec.Vector), rec.ModelName, rec.TextHash, rec.IndexedAt.Unix())
	if err != nil {
		return fmt.Errorf("saving embedding for %s %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

// CountEmbeddings returns the number of stored vectors per kind.
func (d *DB) CountEmbeddings(ctx context.Context) (map[semantic.Kind]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM embeddings GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("counting embeddings: %w", err)
	}
	defer rows.Close()

	counts := make(map[semantic.Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning embedding count: %w", err)
		}
		counts[semantic.Kind(kind)] = n
	}
	return counts, rows.Err()
}
