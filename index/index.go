// Package index maintains an in-memory search index over tool descriptors
// with a pluggable ranking strategy.
//
// The default ranker is lexical TF-IDF; an embedding-backed ranker is
// available when a caller supplies an Embedder. All rankers report
// relevance in [0, 1] so threshold semantics are strategy-independent.
//
// Contract:
//   - Concurrency: an Index is safe for concurrent use. Initialize and
//     Clear take the write lock; queries take the read lock. Serializing a
//     Clear-then-Initialize refresh against in-flight refreshes is the
//     caller's responsibility.
//   - Errors: Search fails only when the ranker fails (embedding backends);
//     the lexical ranker never errors.
package index

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// ErrIndex indicates an index operation failed.
var ErrIndex = errors.New("index error")

// DefaultTopK is the result ceiling applied when a search does not set one.
const DefaultTopK = 8

// Document is one indexed tool.
type Document struct {
	// Name is the tool's unique full name, e.g. "users:getById".
	Name string

	// AppID groups tools by their originating application.
	AppID string

	// Description is the prose the ranker matches against.
	Description string

	// Tags are additional match terms.
	Tags []string
}

// Hit is one search result. Score is normalized to [0, 1] with the best
// hit of a query at 1.0.
type Hit struct {
	Name  string
	AppID string
	Score float64
}

// Ranker scores documents against a query. Implementations must return
// scores in [0, 1] and may omit documents that do not match at all.
type Ranker interface {
	Rank(query string, docs []Document) ([]Hit, error)
}

// Options narrows one search.
type Options struct {
	// TopK caps the number of hits. Zero means DefaultTopK.
	TopK int

	// AppIDs, when non-empty, restricts hits to the named applications.
	AppIDs []string

	// ExcludeNames removes specific tools from the results.
	ExcludeNames []string
}

// Index holds the indexed documents and delegates scoring to its ranker.
type Index struct {
	mu     sync.RWMutex
	ranker Ranker
	docs   []Document
	byName map[string]int
	ready  bool
}

// New creates an empty index. A nil ranker selects the lexical TF-IDF
// ranker.
func New(ranker Ranker) *Index {
	if ranker == nil {
		ranker = NewLexicalRanker()
	}
	return &Index{ranker: ranker, byName: make(map[string]int)}
}

// Initialize loads the documents. It is idempotent: once the index is
// ready, further calls are no-ops until Clear. Documents sharing a name
// keep the first occurrence.
func (ix *Index) Initialize(docs []Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.ready {
		return
	}
	for _, d := range docs {
		if _, dup := ix.byName[d.Name]; dup {
			continue
		}
		ix.byName[d.Name] = len(ix.docs)
		ix.docs = append(ix.docs, d)
	}
	ix.ready = true
}

// Ready reports whether Initialize has run since creation or the last
// Clear.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// HasTool reports whether a tool with the exact name is indexed.
func (ix *Index) HasTool(name string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.byName[name]
	return ok
}

// TotalCount returns the number of indexed tools.
func (ix *Index) TotalCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Clear empties the index and makes it eligible for re-initialization.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs = nil
	ix.byName = make(map[string]int)
	ix.ready = false
}

// Search ranks the indexed documents against the query and returns up to
// TopK hits in descending score order. Ties preserve document insertion
// order. Filters apply before the TopK cut.
func (ix *Index) Search(query string, opts Options) ([]Hit, error) {
	ix.mu.RLock()
	docs := ix.docs
	ix.mu.RUnlock()

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	hits, err := ix.ranker.Rank(query, docs)
	if err != nil {
		return nil, fmt.Errorf("%w: ranking %q: %v", ErrIndex, query, err)
	}

	filtered := hits[:0:0]
	for _, h := range hits {
		if len(opts.AppIDs) > 0 && !slices.Contains(opts.AppIDs, h.AppID) {
			continue
		}
		if slices.Contains(opts.ExcludeNames, h.Name) {
			continue
		}
		filtered = append(filtered, h)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, nil
}
