package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Manager wraps a Provider with topic-search defaults and display formatting.
// It is acquired around a batch of searches and released with Close, though
// release is a no-op: there is no connection state beyond HTTP keep-alive.
type Manager struct {
	provider Provider
	defaults Options
	logger   *slog.Logger
}

// NewManager creates a Manager around the given provider. A zero MaxResults
// falls back to the package default.
func NewManager(provider Provider, maxResults int, logger *slog.Logger) *Manager {
	defaults := DefaultOptions()
	if maxResults > 0 {
		defaults.MaxResults = maxResults
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: provider, defaults: defaults, logger: logger}
}

// SearchTopic searches for web content on the given topic. Zero-valued option
// fields are substituted with the manager defaults. It never fails: provider
// errors are logged and yield an empty result set.
func (m *Manager) SearchTopic(ctx context.Context, topic string, opts Options) []Result {
	if opts.MaxResults <= 0 {
		opts.MaxResults = m.defaults.MaxResults
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = m.defaults.DaysBack
	}

	m.logger.Info("searching", "topic", topic, "max_results", opts.MaxResults,
		"news_only", opts.NewsOnly, "days_back", opts.DaysBack)

	results, err := m.provider.Search(ctx, topic, opts)
	if err != nil {
		m.logger.Warn("topic search failed", "topic", topic, "err", err)
		return nil
	}

	m.logger.Info("search finished", "topic", topic, "results", len(results))
	return results
}

// FormatResults renders results as a numbered human-readable listing.
func (m *Manager) FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No relevant links found."
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", r.URL)
		}
		if r.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", r.Description)
		}
		if r.RelevanceScore > 0 {
			fmt.Fprintf(&b, "   Relevance: %.2f\n", r.RelevanceScore)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Close releases the manager. No-op today; kept so call sites already pair
// acquisition with release.
func (m *Manager) Close() error {
	return nil
}
