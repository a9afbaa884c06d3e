package metatool

import (
	"fmt"
	"sort"

	"github.com/jonwraymond/codecall/index"
)

// Search input bounds.
const (
	maxQueries           = 10
	maxExcludedToolNames = 50
	maxTopK              = 50

	// DefaultMinRelevanceScore is the inclusive relevance floor applied
	// when the caller does not set one.
	DefaultMinRelevanceScore = 0.3
)

// Warning types surfaced on search output.
const (
	WarningLowRelevance         = "low_relevance"
	WarningNoResults            = "no_results"
	WarningExcludedToolNotFound = "excluded_tool_not_found"
)

// SearchInput is the search tool's request.
type SearchInput struct {
	// Queries are 1 to 10 natural-language queries, each searched
	// independently and merged.
	Queries []string `json:"queries"`

	// Filter optionally narrows results.
	Filter *SearchFilter `json:"filter,omitempty"`

	// ExcludeToolNames removes up to 50 specific tools from the results.
	ExcludeToolNames []string `json:"excludeToolNames,omitempty"`

	// MinRelevanceScore is the inclusive relevance floor in [0, 1].
	// Nil means DefaultMinRelevanceScore.
	MinRelevanceScore *float64 `json:"minRelevanceScore,omitempty"`

	// TopK caps the result count, 1 to 50. Zero means the index default.
	TopK int `json:"topK,omitempty"`
}

// SearchFilter narrows search results.
type SearchFilter struct {
	// AppIDs restricts results to tools owned by the named applications.
	AppIDs []string `json:"appIds,omitempty"`
}

// SearchResult is one merged search hit.
type SearchResult struct {
	ToolName       string  `json:"toolName"`
	AppID          string  `json:"appId,omitempty"`
	Description    string  `json:"description"`
	RelevanceScore float64 `json:"relevanceScore"`

	// MatchedQueries lists the queries that matched this tool, in order of
	// first occurrence.
	MatchedQueries []string `json:"matchedQueries"`
}

// Warning is a non-fatal advisory on search output.
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SearchOutput is the search tool's response.
type SearchOutput struct {
	Results             []SearchResult `json:"results"`
	Warnings            []Warning      `json:"warnings,omitempty"`
	TotalAvailableTools int            `json:"totalAvailableTools"`
}

// Search runs the index once per query, merges hits by tool name keeping
// the maximum score and accumulating matched queries, applies the
// relevance floor inclusively, and caps the merged list at TopK.
func (t *Tools) Search(input SearchInput) (SearchOutput, error) {
	if len(input.Queries) < 1 || len(input.Queries) > maxQueries {
		return SearchOutput{}, fmt.Errorf("%w: queries must contain 1 to %d entries, got %d", ErrInput, maxQueries, len(input.Queries))
	}
	if len(input.ExcludeToolNames) > maxExcludedToolNames {
		return SearchOutput{}, fmt.Errorf("%w: excludeToolNames allows at most %d entries, got %d", ErrInput, maxExcludedToolNames, len(input.ExcludeToolNames))
	}
	if input.TopK < 0 || input.TopK > maxTopK {
		return SearchOutput{}, fmt.Errorf("%w: topK must be between 1 and %d, got %d", ErrInput, maxTopK, input.TopK)
	}

	minScore := DefaultMinRelevanceScore
	if input.MinRelevanceScore != nil {
		minScore = *input.MinRelevanceScore
		if minScore < 0 || minScore > 1 {
			return SearchOutput{}, fmt.Errorf("%w: minRelevanceScore must be in [0,1], got %v", ErrInput, minScore)
		}
	}

	t.ensureIndex()
	out := SearchOutput{TotalAvailableTools: t.idx.TotalCount()}

	for _, name := range input.ExcludeToolNames {
		if !t.idx.HasTool(name) {
			out.Warnings = append(out.Warnings, Warning{
				Type:    WarningExcludedToolNotFound,
				Message: fmt.Sprintf("excluded tool %q is not in the index", name),
			})
		}
	}

	opts := index.Options{TopK: input.TopK, ExcludeNames: input.ExcludeToolNames}
	if input.Filter != nil {
		opts.AppIDs = input.Filter.AppIDs
	}

	merged := make(map[string]*SearchResult)
	var order []string
	for _, query := range input.Queries {
		hits, err := t.idx.Search(query, opts)
		if err != nil {
			return SearchOutput{}, err
		}
		for _, h := range hits {
			r, ok := merged[h.Name]
			if !ok {
				r = &SearchResult{ToolName: h.Name, AppID: h.AppID}
				if desc, found := t.lookup(h.Name); found {
					r.Description = desc.Description
				}
				merged[h.Name] = r
				order = append(order, h.Name)
			}
			if h.Score > r.RelevanceScore {
				r.RelevanceScore = h.Score
			}
			r.MatchedQueries = appendUnique(r.MatchedQueries, query)
		}
	}

	dropped := 0
	results := make([]SearchResult, 0, len(order))
	for _, name := range order {
		r := merged[name]
		if r.RelevanceScore < minScore {
			dropped++
			continue
		}
		results = append(results, *r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if topK := effectiveTopK(input.TopK); len(results) > topK {
		results = results[:topK]
	}
	out.Results = results

	if dropped > 0 {
		out.Warnings = append(out.Warnings, Warning{
			Type:    WarningLowRelevance,
			Message: fmt.Sprintf("%d result(s) below the relevance floor of %v were dropped", dropped, minScore),
		})
	}
	if len(results) == 0 {
		out.Warnings = append(out.Warnings, Warning{
			Type:    WarningNoResults,
			Message: "no tools matched the given queries",
		})
	}
	return out, nil
}

func effectiveTopK(topK int) int {
	if topK <= 0 {
		return index.DefaultTopK
	}
	return topK
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
