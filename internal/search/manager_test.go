package search

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	results  []Result
	err      error
	lastOpts Options
	calls    int
}

func (f *fakeProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	f.calls++
	f.lastOpts = opts
	return f.results, f.err
}

func TestManager_AppliesDefaults(t *testing.T) {
	fp := &fakeProvider{}
	m := NewManager(fp, 0, nil)
	defer m.Close()

	m.SearchTopic(context.Background(), "topic", Options{NewsOnly: true})

	if fp.lastOpts.MaxResults != 10 {
		t.Errorf("expected default max results 10, got %d", fp.lastOpts.MaxResults)
	}
	if fp.lastOpts.DaysBack != 7 {
		t.Errorf("expected default days back 7, got %d", fp.lastOpts.DaysBack)
	}
}

func TestManager_ExplicitOptionsWin(t *testing.T) {
	fp := &fakeProvider{}
	m := NewManager(fp, 25, nil)

	m.SearchTopic(context.Background(), "topic", Options{MaxResults: 3, DaysBack: 30})

	if fp.lastOpts.MaxResults != 3 || fp.lastOpts.DaysBack != 30 {
		t.Errorf("explicit options overridden: %+v", fp.lastOpts)
	}
}

func TestManager_NeverFails(t *testing.T) {
	fp := &fakeProvider{err: errors.New("backend melted")}
	m := NewManager(fp, 0, nil)

	results := m.SearchTopic(context.Background(), "topic", Options{})
	if results != nil {
		t.Errorf("expected nil results on provider error, got %+v", results)
	}
}

func TestManager_FormatResults(t *testing.T) {
	m := NewManager(&fakeProvider{}, 0, nil)

	out := m.FormatResults([]Result{{
		Title:          "A Title",
		URL:            "https://a.example",
		Description:    "A description",
		RelevanceScore: 0.75,
	}})

	// Field order: title, URL, description, relevance
	idxTitle := strings.Index(out, "1. A Title")
	idxURL := strings.Index(out, "URL: https://a.example")
	idxDesc := strings.Index(out, "Description: A description")
	idxRel := strings.Index(out, "Relevance: 0.75")
	if idxTitle < 0 || idxURL < idxTitle || idxDesc < idxURL || idxRel < idxDesc {
		t.Errorf("unexpected field order in:\n%s", out)
	}
}

func TestManager_FormatResults_OmitsEmptyFields(t *testing.T) {
	m := NewManager(&fakeProvider{}, 0, nil)

	out := m.FormatResults([]Result{{Title: "Bare", URL: "https://b.example"}})
	if strings.Contains(out, "Description:") || strings.Contains(out, "Relevance:") {
		t.Errorf("empty fields should be omitted:\n%s", out)
	}

	if got := m.FormatResults(nil); got != "No relevant links found." {
		t.Errorf("unexpected empty formatting: %q", got)
	}
}
