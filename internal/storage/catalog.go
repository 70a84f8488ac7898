package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/concern"
	"github.com/matsen/skinrec/internal/preference"
)

func conceptKey(id int) string { return strconv.Itoa(id) }
func userKey(id int64) string { return strconv.FormatInt(id, 10) }

// Concepts returns the concept catalog in id order, with vectors where
// embedded.
func (d *DB) Concepts(ctx context.Context) ([]concept.Concept, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT c.id, c.concept_type, c.name, c.description, e.vector
		FROM concepts c
		LEFT JOIN embeddings e ON e.kind = 'concept' AND e.entity_id = CAST(c.id AS TEXT)
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("listing concepts: %w", err)
	}
	defer rows.Close()

	var concepts []concept.Concept
	for rows.Next() {
		var (
			c      concept.Concept
			desc   sql.NullString
			vector []byte
		)
		if err := rows.Scan(&c.ID, &c.Type, &c.Name, &desc, &vector); err != nil {
			return nil, fmt.Errorf("scanning concept: %w", err)
		}
		c.Description = desc.String
		if c.Embedding, err = decodeVector(vector); err != nil {
			return nil, fmt.Errorf("concept %d: %w", c.ID, err)
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

// Preferences returns a user's raw preference record.
func (d *DB) Preferences(ctx context.Context, userID int64) (preference.Preferences, error) {
	var raw string
	err := d.db.QueryRowContext(ctx, `SELECT preferences_json FROM users WHERE id = ?`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return preference.Preferences{}, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return preference.Preferences{}, fmt.Errorf("getting preferences for user %d: %w", userID, err)
	}

	var prefs preference.Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return preference.Preferences{}, fmt.Errorf("unmarshaling preferences for user %d: %w", userID, err)
	}
	return prefs, nil
}

// UserEmbedding returns the user's stored profile vector, or nil.
func (d *DB) UserEmbedding(ctx context.Context, userID int64) ([]float32, error) {
	var vector []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE kind = 'user' AND entity_id = ?`, userKey(userID)).Scan(&vector)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting embedding for user %d: %w", userID, err)
	}
	return decodeVector(vector)
}

// Users returns every user in id order, with stored vectors.
func (d *DB) Users(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT u.id, u.preferences_json, e.vector
		FROM users u
		LEFT JOIN embeddings e ON e.kind = 'user' AND e.entity_id = CAST(u.id AS TEXT)
		ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u      User
			raw    string
			vector []byte
		)
		if err := rows.Scan(&u.ID, &raw, &vector); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &u.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshaling preferences for user %d: %w", u.ID, err)
		}
		if u.Embedding, err = decodeVector(vector); err != nil {
			return nil, fmt.Errorf("user %d: %w", u.ID, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Detections returns a user's analysis detections, oldest first.
func (d *DB) Detections(ctx context.Context, userID int64) ([]concern.Detection, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT analysis_type, confidence, created_at
		FROM analyses
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing analyses for user %d: %w", userID, err)
	}
	defer rows.Close()

	var dets []concern.Detection
	for rows.Next() {
		var (
			det     concern.Detection
			created sql.NullTime
		)
		if err := rows.Scan(&det.Type, &det.Confidence, &created); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		det.CreatedAt = created.Time
		dets = append(dets, det)
	}
	return dets, rows.Err()
}
