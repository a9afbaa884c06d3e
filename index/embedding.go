package index

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// Embedder produces a dense vector for a text. Implementations typically
// front a model service; they must return vectors of a consistent
// dimension.
type Embedder interface {
	Embed(text string) ([]float64, error)
}

// EmbeddingRanker scores documents by cosine similarity between the query
// embedding and each document embedding, mapped from [-1, 1] into [0, 1]
// so thresholds behave like the lexical ranker's. Document embeddings are
// cached by document text.
type EmbeddingRanker struct {
	embedder Embedder

	mu    sync.Mutex
	cache map[string][]float64
}

// NewEmbeddingRanker wraps an embedder as a ranking strategy.
func NewEmbeddingRanker(e Embedder) *EmbeddingRanker {
	return &EmbeddingRanker{embedder: e, cache: make(map[string][]float64)}
}

var _ Ranker = (*EmbeddingRanker)(nil)

// Rank implements Ranker.
func (r *EmbeddingRanker) Rank(query string, docs []Document) ([]Hit, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	qv, err := r.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits := make([]Hit, 0, len(docs))
	for _, d := range docs {
		dv, err := r.embed(docText(d))
		if err != nil {
			return nil, fmt.Errorf("embedding %q: %w", d.Name, err)
		}
		cos, err := cosine(qv, dv)
		if err != nil {
			return nil, fmt.Errorf("scoring %q: %w", d.Name, err)
		}
		hits = append(hits, Hit{Name: d.Name, AppID: d.AppID, Score: (1 + cos) / 2})
	}
	return hits, nil
}

func (r *EmbeddingRanker) embed(text string) ([]float64, error) {
	r.mu.Lock()
	cached, ok := r.cache[text]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err := r.embedder.Embed(text)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[text] = v
	r.mu.Unlock()
	return v, nil
}

func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.New("embedding dimensions differ")
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
