package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a catalog search.
type Params struct {
	Query    string
	Tags     []string // Exact tag filters, OR across values
	Language string

	Limit  int
	Offset int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{Limit: 20}
}

// Hit is a single search result. IDs are decimal BookIDs; the caller
// loads full records from the store and applies access control.
type Hit struct {
	BookID string  `json:"bookId"`
	Score  float64 `json:"score"`
	Title  string  `json:"title,omitempty"`
	Author string  `json:"author,omitempty"`
}

// Result holds search hits and totals.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"tookMs"`
	Hits   []Hit  `json:"hits"`
}

// Search executes a catalog search.
func (b *BookIndex) Search(ctx context.Context, params Params) (*Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{"title", "author"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := Hit{BookID: hit.ID, Score: hit.Score}
		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		if a, ok := hit.Fields["author"].(string); ok {
			h.Author = a
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildQuery constructs the Bleve query from params. Text queries match
// title and author, with fuzzy and prefix variants for typo tolerance and
// autocomplete.
func buildQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		var textQueries []query.Query

		titleMatch := bleve.NewMatchQuery(params.Query)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)
		textQueries = append(textQueries, titleMatch)

		authorMatch := bleve.NewMatchQuery(params.Query)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)
		textQueries = append(textQueries, authorMatch)

		// Fuzzy terms are not analyzed, so lowercase to match the index and
		// allow distance 2: a transposed typo is already two edits away from
		// the stemmed form ("physcis" vs "physic").
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(params.Query))
		fuzzy.SetFuzziness(2)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)
		textQueries = append(textQueries, fuzzy)

		if len(params.Query) >= 2 {
			prefix := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			textQueries = append(textQueries, prefix)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Tags) > 0 {
		tagQueries := make([]query.Query, len(params.Tags))
		for i, tag := range params.Tags {
			tq := bleve.NewTermQuery(tag)
			tq.SetField("tags")
			tagQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(tagQueries...))
	}

	if params.Language != "" {
		lq := bleve.NewTermQuery(params.Language)
		lq.SetField("language")
		queries = append(queries, lq)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}

	return bleve.NewConjunctionQuery(queries...)
}
