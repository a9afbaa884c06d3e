package index

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// LexicalRanker scores documents with TF-IDF over a folded token stream.
// It is deterministic, needs no external service, and is the default
// strategy. Scores are normalized by the query's best raw score, so the
// top hit of any non-empty result set scores 1.0.
type LexicalRanker struct {
	folder cases.Caser
}

// NewLexicalRanker creates the default TF-IDF ranker.
func NewLexicalRanker() *LexicalRanker {
	return &LexicalRanker{folder: cases.Fold()}
}

var _ Ranker = (*LexicalRanker)(nil)

// Rank implements Ranker. Documents with no term overlap are omitted.
func (r *LexicalRanker) Rank(query string, docs []Document) ([]Hit, error) {
	queryTokens := r.tokenize(query)
	if len(queryTokens) == 0 || len(docs) == 0 {
		return nil, nil
	}

	// Term frequencies per document and document frequencies per term.
	termFreqs := make([]map[string]int, len(docs))
	docFreq := make(map[string]int)
	for i, d := range docs {
		tf := make(map[string]int)
		for _, tok := range r.tokenize(docText(d)) {
			tf[tok]++
		}
		termFreqs[i] = tf
		for tok := range tf {
			docFreq[tok]++
		}
	}

	n := float64(len(docs))
	var raw []Hit
	var maxScore float64
	for i, d := range docs {
		var score float64
		for _, tok := range queryTokens {
			tf := termFreqs[i][tok]
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + n/float64(1+docFreq[tok]))
			score += float64(tf) * idf
		}
		if score <= 0 {
			continue
		}
		raw = append(raw, Hit{Name: d.Name, AppID: d.AppID, Score: score})
		if score > maxScore {
			maxScore = score
		}
	}

	for i := range raw {
		raw[i].Score /= maxScore
	}
	return raw, nil
}

// docText concatenates the searchable fields of a document.
func docText(d Document) string {
	parts := make([]string, 0, 3+len(d.Tags))
	parts = append(parts, d.Name, d.AppID, d.Description)
	parts = append(parts, d.Tags...)
	return strings.Join(parts, " ")
}

// tokenize splits text on non-alphanumeric boundaries and camelCase humps,
// then case-folds each token. "users:getById" yields users, get, by, id.
func (r *LexicalRanker) tokenize(text string) []string {
	var tokens []string
	for _, field := range strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	}) {
		for _, tok := range splitCamel(field) {
			tokens = append(tokens, r.folder.String(tok))
		}
	}
	return tokens
}

// splitCamel breaks a word at lower-to-upper transitions.
func splitCamel(word string) []string {
	runes := []rune(word)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
