package semantic

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/skinrec/internal/catalog"
	"github.com/matsen/skinrec/internal/concept"
	"github.com/matsen/skinrec/internal/embedding"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

// MinTextLength is the shortest text, in characters, worth embedding.
const MinTextLength = 3

// ProgressReporter receives progress updates during a build.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// Store persists embeddings and remembers the hash of the text each one was
// built from.
type Store interface {
	// TextHash returns the stored hash for an entity, or "" when none.
	TextHash(ctx context.Context, kind Kind, id string) (string, error)
	SaveEmbedding(ctx context.Context, rec Record) error
}

// Item is one piece of text to embed. Current carries the vector already on
// record, reused when the text is unchanged.
type Item struct {
	Kind    Kind
	ID      string
	Text    string
	Current []float32
}

// ProductItems converts products into build items.
func ProductItems(products []catalog.Product) []Item {
	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, Item{Kind: KindProduct, ID: p.ID, Text: p.EmbeddingText(), Current: p.Embedding})
	}
	return items
}

// ConceptItems converts concepts into build items. The text is the concept
// name followed by its description.
func ConceptItems(concepts []concept.Concept) []Item {
	items := make([]Item, 0, len(concepts))
	for _, c := range concepts {
		text := c.Name
		if d := strings.TrimSpace(c.Description); d != "" {
			text += ". " + d
		}
		items = append(items, Item{Kind: KindConcept, ID: strconv.Itoa(c.ID), Text: text, Current: c.Embedding})
	}
	return items
}

// Builder embeds catalog text and assembles the product index.
type Builder struct {
	provider embedding.Provider
	store    Store
	progress ProgressReporter
	force    bool
}

// NewBuilder creates a new builder. A nil store embeds everything and
// persists nothing.
func NewBuilder(provider embedding.Provider, store Store) *Builder {
	return &Builder{
		provider: provider,
		store:    store,
	}
}

// SetProgressReporter sets the progress reporter for the builder.
func (b *Builder) SetProgressReporter(reporter ProgressReporter) {
	b.progress = reporter
}

// SetForce re-embeds every item regardless of stored hashes.
func (b *Builder) SetForce(force bool) {
	b.force = force
}

// Build embeds every item whose text changed since the last run and returns
// an index of all product vectors, new and reused.
func (b *Builder) Build(ctx context.Context, items []Item) (*ProductIndex, *BuildStats, error) {
	startTime := time.Now()
	model := b.provider.ModelName()

	idx := NewProductIndex(model, b.provider.Dimensions())
	stats := &BuildStats{Embedded: make(map[Kind]int)}

	total := len(items)
	for i, item := range items {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		if b.progress != nil {
			b.progress.OnProgress(i+1, total)
		}

		text := strings.TrimSpace(item.Text)
		if len([]rune(text)) < MinTextLength {
			log.Debug().Str("kind", string(item.Kind)).Str("id", item.ID).Msg("skipping item with no text")
			stats.Skipped++
			continue
		}

		hash := HashText(model, text)
		vector, err := b.reuse(ctx, item, hash)
		if err != nil {
			return nil, nil, err
		}

		if vector != nil {
			stats.Unchanged++
		} else {
			emb, err := b.provider.Embed(ctx, text)
			if err != nil {
				return nil, nil, fmt.Errorf("embedding %s %s: %w", item.Kind, item.ID, err)
			}
			vector = emb.Vector
			stats.Embedded[item.Kind]++

			if b.store != nil {
				rec := Record{
					Kind:      item.Kind,
					ID:        item.ID,
					Vector:    vector,
					ModelName: model,
					TextHash:  hash,
					IndexedAt: time.Now(),
				}
				if err := b.store.SaveEmbedding(ctx, rec); err != nil {
					return nil, nil, fmt.Errorf("saving embedding for %s %s: %w", item.Kind, item.ID, err)
				}
			}
		}

		if item.Kind == KindProduct {
			if err := idx.Add(item.ID, vector); err != nil {
				return nil, nil, err
			}
		}
	}

	idx.BuildDurationMs = time.Since(startTime).Milliseconds()
	stats.Duration = time.Since(startTime)

	log.Info().
		Int("unchanged", stats.Unchanged).
		Int("skipped", stats.Skipped).
		Int("products", stats.Embedded[KindProduct]).
		Int("concepts", stats.Embedded[KindConcept]).
		Int("users", stats.Embedded[KindUser]).
		Dur("duration", stats.Duration).
		Msg("embedding build finished")

	return idx, stats, nil
}

// reuse returns the item's current vector when its stored hash matches.
func (b *Builder) reuse(ctx context.Context, item Item, hash string) ([]float32, error) {
	if b.force || b.store == nil || len(item.Current) != b.provider.Dimensions() {
		return nil, nil
	}
	stored, err := b.store.TextHash(ctx, item.Kind, item.ID)
	if err != nil {
		return nil, fmt.Errorf("reading hash for %s %s: %w", item.Kind, item.ID, err)
	}
	if stored != hash {
		return nil, nil
	}
	return item.Current, nil
}

// HashText computes a BLAKE2b-256 digest of the model name and text, so a
// model change invalidates every stored vector.
func HashText(model, text string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
