package semantic

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1. Mismatched, empty or zero vectors
// yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}

	return dot / denominator
}

// CosineDistance is 1 - CosineSimilarity, in [0, 2].
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Rescale maps a cosine similarity from [-1, 1] onto [0, 1].
func Rescale(cos float64) float64 {
	return 0.5 + 0.5*cos
}

// MeanPool averages vectors element-wise. Vectors whose length differs from
// the first are ignored. Returns nil when there is nothing to pool.
func MeanPool(vectors [][]float32) []float32 {
	var dims int
	for _, v := range vectors {
		if len(v) > 0 {
			dims = len(v)
			break
		}
	}
	if dims == 0 {
		return nil
	}

	sum := make([]float64, dims)
	n := 0
	for _, v := range vectors {
		if len(v) != dims {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}

	out := make([]float32, dims)
	for i := range sum {
		out[i] = float32(sum[i] / float64(n))
	}
	return out
}

// Search finds products similar to a query embedding.
// Results are sorted by similarity (highest first, ties by id) and filtered
// by threshold.
func (idx *ProductIndex) Search(query []float32, limit int, threshold float64) []SearchResult {
	if idx.Embeddings == nil || len(query) != idx.Dimensions {
		return nil
	}

	results := make([]SearchResult, 0, len(idx.Embeddings))
	for id, emb := range idx.Embeddings {
		sim := CosineSimilarity(query, emb)
		if sim >= threshold {
			results = append(results, SearchResult{ProductID: id, Similarity: sim})
		}
	}
	return rank(results, limit)
}

// FindSimilar finds products similar to a given product. The source product
// is excluded from results.
func (idx *ProductIndex) FindSimilar(productID string, limit int) ([]SearchResult, error) {
	source, exists := idx.Embeddings[productID]
	if !exists {
		return nil, ErrProductNotIndexed
	}

	results := make([]SearchResult, 0, len(idx.Embeddings))
	for id, emb := range idx.Embeddings {
		if id == productID {
			continue
		}
		results = append(results, SearchResult{ProductID: id, Similarity: CosineSimilarity(source, emb)})
	}
	return rank(results, limit), nil
}

func rank(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ProductID < results[j].ProductID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Has checks if a product is in the index.
func (idx *ProductIndex) Has(productID string) bool {
	_, exists := idx.Embeddings[productID]
	return exists
}
