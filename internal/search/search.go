// Package search ranks catalog entries against a free-text query.
package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/Shadcn-Component-Manager/web/internal/registry"
)

// DefaultLimit caps the number of results when the caller does not.
const DefaultLimit = 20

// Result is one ranked match. Higher scores are better.
type Result struct {
	Component registry.CatalogEntry `json:"component"`
	Score     int                   `json:"score"`
}

// catalogSource exposes catalog entries to the fuzzy matcher.
type catalogSource []registry.CatalogEntry

// String returns the searchable text for an entry.
func (s catalogSource) String(i int) string {
	e := s[i]
	parts := []string{e.Name, e.Title, e.Author}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	parts = append(parts, e.Categories...)
	return strings.ToLower(strings.Join(parts, " "))
}

func (s catalogSource) Len() int {
	return len(s)
}

// Search returns the entries matching query, best first. A limit below 1
// uses DefaultLimit. An empty query matches nothing.
func Search(entries []registry.CatalogEntry, query string, limit int) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	results := make([]Result, 0)
	if query == "" {
		return results
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	for _, m := range fuzzy.FindFrom(query, catalogSource(entries)) {
		results = append(results, Result{
			Component: entries[m.Index],
			Score:     m.Score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Component.Name < results[j].Component.Name
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
