package search

import "context"

// Result is one normalized hit from the search backend. It is immutable once
// constructed; field lengths are capped during normalization.
type Result struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Description    string  `json:"description"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Options tune a single search call.
type Options struct {
	// MaxResults caps the number of hits requested from the backend.
	MaxResults int
	// NewsOnly restricts the search to the news category.
	NewsOnly bool
	// DaysBack bounds the publication window when NewsOnly is set.
	DaysBack int
}

// DefaultOptions returns the options used for topic searches when the caller
// does not override them.
func DefaultOptions() Options {
	return Options{
		MaxResults: 10,
		NewsOnly:   true,
		DaysBack:   7,
	}
}

// Provider abstracts a search capability that returns normalized results for
// a query. Implementations may use remote APIs, scraping, or fixtures.
type Provider interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}
