package index

import (
	"errors"
	"testing"
)

func sampleDocs() []Document {
	return []Document{
		{Name: "users:getById", AppID: "users", Description: "Fetch a single user by its identifier"},
		{Name: "users:list", AppID: "users", Description: "List all users with pagination"},
		{Name: "orders:create", AppID: "orders", Description: "Create a new order for a user"},
		{Name: "orders:cancel", AppID: "orders", Description: "Cancel an existing order", Tags: []string{"refund"}},
		{Name: "billing:invoice", AppID: "billing", Description: "Generate an invoice document"},
	}
}

func initialized(t *testing.T) *Index {
	t.Helper()
	ix := New(nil)
	ix.Initialize(sampleDocs())
	return ix
}

func TestInitialize_Idempotent(t *testing.T) {
	ix := New(nil)
	ix.Initialize(sampleDocs())
	if !ix.Ready() {
		t.Fatal("expected the index to be ready")
	}
	if ix.TotalCount() != 5 {
		t.Fatalf("expected 5 documents, got %d", ix.TotalCount())
	}

	ix.Initialize([]Document{{Name: "extra:tool", AppID: "extra"}})
	if ix.TotalCount() != 5 {
		t.Errorf("repeat initialization must be a no-op, got %d documents", ix.TotalCount())
	}
	if ix.HasTool("extra:tool") {
		t.Error("documents from a repeat initialization must not appear")
	}
}

func TestInitialize_DeduplicatesByName(t *testing.T) {
	ix := New(nil)
	ix.Initialize([]Document{
		{Name: "users:list", AppID: "users", Description: "first"},
		{Name: "users:list", AppID: "users", Description: "second"},
	})
	if ix.TotalCount() != 1 {
		t.Errorf("expected duplicates to collapse, got %d", ix.TotalCount())
	}
}

func TestClear_AllowsReinitialization(t *testing.T) {
	ix := initialized(t)
	ix.Clear()
	if ix.Ready() || ix.TotalCount() != 0 || ix.HasTool("users:list") {
		t.Fatal("expected an empty, not-ready index after Clear")
	}

	ix.Initialize([]Document{{Name: "fresh:tool", AppID: "fresh"}})
	if !ix.HasTool("fresh:tool") || ix.TotalCount() != 1 {
		t.Error("expected re-initialization after Clear to load new documents")
	}
}

func TestSearch_RelevantFirstAndNormalized(t *testing.T) {
	ix := initialized(t)
	hits, err := ix.Search("fetch user by id", Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].Name != "users:getById" {
		t.Errorf("expected users:getById first, got %q", hits[0].Name)
	}
	if hits[0].Score != 1.0 {
		t.Errorf("expected the top hit to score 1.0, got %f", hits[0].Score)
	}
	for i, h := range hits {
		if h.Score < 0 || h.Score > 1 {
			t.Errorf("hit %d score %f outside [0,1]", i, h.Score)
		}
		if i > 0 && h.Score > hits[i-1].Score {
			t.Errorf("hits not in descending order at %d", i)
		}
	}
}

func TestSearch_NoMatches(t *testing.T) {
	ix := initialized(t)
	hits, err := ix.Search("quantum entanglement", Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestSearch_TopK(t *testing.T) {
	ix := initialized(t)
	hits, err := ix.Search("user order invoice", Options{TopK: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) > 2 {
		t.Errorf("expected at most 2 hits, got %d", len(hits))
	}
}

func TestSearch_AppIDFilter(t *testing.T) {
	ix := initialized(t)
	hits, err := ix.Search("user", Options{AppIDs: []string{"orders"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		if h.AppID != "orders" {
			t.Errorf("expected only orders hits, got %q from %q", h.Name, h.AppID)
		}
	}
}

func TestSearch_ExcludeNames(t *testing.T) {
	ix := initialized(t)
	hits, err := ix.Search("user", Options{ExcludeNames: []string{"users:getById"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		if h.Name == "users:getById" {
			t.Error("excluded tool must not appear in results")
		}
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	ix := New(nil)
	ix.Initialize([]Document{
		{Name: "a:first", AppID: "a", Description: "widget"},
		{Name: "a:second", AppID: "a", Description: "widget"},
	})
	hits, err := ix.Search("widget", Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Name != "a:first" || hits[1].Name != "a:second" {
		t.Errorf("equal scores must keep insertion order, got %q then %q", hits[0].Name, hits[1].Name)
	}
}

func TestLexicalRanker_TokenizesCamelAndSeparators(t *testing.T) {
	r := NewLexicalRanker()
	got := r.tokenize("users:getById")
	want := []string{"users", "get", "by", "id"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// stubEmbedder returns fixed vectors by exact text, and an error for
// unknown texts.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) Embed(text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

func TestEmbeddingRanker_CosineMappedToUnitInterval(t *testing.T) {
	docs := []Document{
		{Name: "aligned", AppID: "a", Description: "same direction"},
		{Name: "opposed", AppID: "a", Description: "opposite direction"},
	}
	emb := &stubEmbedder{vectors: map[string][]float64{
		"query":                    {1, 0, 0},
		docText(docs[0]):           {1, 0, 0},
		docText(docs[1]):           {-1, 0, 0},
	}}
	ix := New(NewEmbeddingRanker(emb))
	ix.Initialize(docs)

	hits, err := ix.Search("query", Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Name != "aligned" || hits[0].Score != 1.0 {
		t.Errorf("expected aligned at 1.0, got %+v", hits[0])
	}
	if hits[1].Name != "opposed" || hits[1].Score != 0.0 {
		t.Errorf("expected opposed at 0.0, got %+v", hits[1])
	}
}

func TestEmbeddingRanker_ErrorSurfaces(t *testing.T) {
	ix := New(NewEmbeddingRanker(&stubEmbedder{err: errors.New("backend down")}))
	ix.Initialize(sampleDocs())

	if _, err := ix.Search("anything", Options{}); !errors.Is(err, ErrIndex) {
		t.Errorf("expected ErrIndex, got %v", err)
	}
}
