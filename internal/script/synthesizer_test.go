package script

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/podforge/podforge/internal/llm"
	"github.com/podforge/podforge/internal/webpage"
)

// fakeFetcher serves canned pages, optionally with per-URL delays so that
// completion order differs from request order.
type fakeFetcher struct {
	pages  map[string]*webpage.Page
	delays map[string]time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) *webpage.Page {
	if d, ok := f.delays[url]; ok {
		time.Sleep(d)
	}
	if p, ok := f.pages[url]; ok {
		return p
	}
	return &webpage.Page{URL: url, Error: "not found", Success: false}
}

type fakeCompleter struct {
	calls   int
	lastReq llm.Request
	out     string
	err     error
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.lastReq = req
	return f.out, f.err
}

func okPage(url, title, content string) *webpage.Page {
	return &webpage.Page{URL: url, Title: title, Content: content, Success: true}
}

func TestGenerate_PartialFailuresKeepOrder(t *testing.T) {
	// The first URL is the slowest; ordering in the prompt must still follow
	// the original URL order, not completion order.
	ff := &fakeFetcher{
		pages: map[string]*webpage.Page{
			"https://one.example":   okPage("https://one.example", "One", "content one"),
			"https://two.example":   {URL: "https://two.example", Error: "connection refused"},
			"https://three.example": okPage("https://three.example", "Three", "content three"),
		},
		delays: map[string]time.Duration{
			"https://one.example": 30 * time.Millisecond,
		},
	}
	fc := &fakeCompleter{out: "SCRIPT_BODY"}
	s := NewSynthesizer(ff, fc, Config{})

	out, err := s.Generate(context.Background(), Request{
		URLs: []string{"https://one.example", "https://two.example", "https://three.example"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.calls != 1 {
		t.Fatalf("expected exactly 1 completion call, got %d", fc.calls)
	}

	prompt := fc.lastReq.Prompt
	idx1 := strings.Index(prompt, "## Source 1: One")
	idx2 := strings.Index(prompt, "## Source 2: FAILED")
	idx3 := strings.Index(prompt, "## Source 3: Three")
	if idx1 < 0 || idx2 < idx1 || idx3 < idx2 {
		t.Errorf("source numbering does not follow original URL order:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Error: connection refused") {
		t.Errorf("failed fetch not recorded in context:\n%s", prompt)
	}

	if !strings.Contains(out.Text, "SCRIPT_BODY") {
		t.Errorf("generated text missing from output:\n%s", out.Text)
	}
	if !strings.Contains(out.Text, "**Sources Analyzed:** 2/3") {
		t.Errorf("fetch ratio missing from output:\n%s", out.Text)
	}
	if out.SourcesFetched != 2 || out.SourcesTotal != 3 {
		t.Errorf("expected 2/3 sources, got %d/%d", out.SourcesFetched, out.SourcesTotal)
	}
}

func TestGenerate_RefusesWithoutSuccessfulFetch(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]*webpage.Page{
		"https://down.example": {URL: "https://down.example", Error: "timeout"},
	}}
	fc := &fakeCompleter{out: "SHOULD NOT APPEAR"}
	s := NewSynthesizer(ff, fc, Config{})

	out, err := s.Generate(context.Background(), Request{URLs: []string{"https://down.example"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != RefusalMessage {
		t.Errorf("expected refusal message, got %q", out.Text)
	}
	if !out.Refused {
		t.Error("expected Refused to be set")
	}
	if fc.calls != 0 {
		t.Errorf("completion must not be called on refusal, got %d calls", fc.calls)
	}
}

func TestGenerate_RejectsEmptyURLs(t *testing.T) {
	s := NewSynthesizer(&fakeFetcher{}, &fakeCompleter{}, Config{})
	if _, err := s.Generate(context.Background(), Request{}); err == nil {
		t.Error("expected error for empty URL list")
	}
}

func TestGenerate_EpisodeWrapping(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]*webpage.Page{
		"https://a.example": okPage("https://a.example", "Title A", "text a"),
		"https://b.example": okPage("https://b.example", "Title B", "text b"),
	}}
	fc := &fakeCompleter{out: "SCRIPT_BODY"}
	s := NewSynthesizer(ff, fc, Config{})

	out, err := s.Generate(context.Background(), Request{
		URLs:     []string{"https://a.example", "https://b.example"},
		Style:    StyleNewsCommentary,
		Length:   LengthShort,
		Tone:     ToneProfessional,
		Audience: "engineers",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# PODCAST SCRIPT GENERATED",
		"**Episode Type:** News Commentary",
		"**Length:** short 5 10 min",
		"**Tone:** Professional",
		"**Target Audience:** engineers",
		"**Sources Analyzed:** 2/2",
		"SCRIPT_BODY",
		"- Title A (https://a.example)",
		"- Title B (https://b.example)",
	} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("output missing %q:\n%s", want, out.Text)
		}
	}
}

func TestGenerate_CompletionParamsByMode(t *testing.T) {
	cases := []struct {
		mode        Mode
		maxTokens   int
		temperature float32
	}{
		{ModeEpisode, 8000, 0.7},
		{ModeStorytelling, 8000, 0.8},
		{ModeAnalysis, 4096, 0},
		{ModeComparison, 8000, 0.7},
	}

	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			ff := &fakeFetcher{pages: map[string]*webpage.Page{
				"https://a.example": okPage("https://a.example", "A", "text"),
			}}
			fc := &fakeCompleter{out: "BODY"}
			s := NewSynthesizer(ff, fc, Config{Model: "m"})

			if _, err := s.Generate(context.Background(), Request{
				URLs: []string{"https://a.example"},
				Mode: tc.mode,
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if fc.lastReq.MaxTokens != tc.maxTokens {
				t.Errorf("expected max tokens %d, got %d", tc.maxTokens, fc.lastReq.MaxTokens)
			}
			if fc.lastReq.Temperature != tc.temperature {
				t.Errorf("expected temperature %v, got %v", tc.temperature, fc.lastReq.Temperature)
			}
			if fc.lastReq.Model != "m" {
				t.Errorf("expected model override, got %q", fc.lastReq.Model)
			}
		})
	}
}

func TestGenerate_AnalysisPreviewTruncation(t *testing.T) {
	long := strings.Repeat("x", analysisPreviewLen+500)
	ff := &fakeFetcher{pages: map[string]*webpage.Page{
		"https://a.example": okPage("https://a.example", "A", long),
	}}
	fc := &fakeCompleter{out: "ANALYSIS"}
	s := NewSynthesizer(ff, fc, Config{})

	if _, err := s.Generate(context.Background(), Request{
		URLs: []string{"https://a.example"},
		Mode: ModeAnalysis,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(fc.lastReq.Prompt, long) {
		t.Error("analysis prompt should not contain the full source text")
	}
	if !strings.Contains(fc.lastReq.Prompt, strings.Repeat("x", analysisPreviewLen)+"...") {
		t.Error("analysis prompt missing truncated preview marker")
	}
}

func TestGenerate_CompletionFailurePropagates(t *testing.T) {
	ff := &fakeFetcher{pages: map[string]*webpage.Page{
		"https://a.example": okPage("https://a.example", "A", "text"),
	}}
	fc := &fakeCompleter{err: errors.New("auth rejected")}
	s := NewSynthesizer(ff, fc, Config{})

	if _, err := s.Generate(context.Background(), Request{URLs: []string{"https://a.example"}}); err == nil {
		t.Error("expected completion failure to propagate")
	}
}

func TestGenerate_ModeWrappers(t *testing.T) {
	newSynth := func(out string) (*Synthesizer, *fakeCompleter) {
		ff := &fakeFetcher{pages: map[string]*webpage.Page{
			"https://a.example": okPage("https://a.example", "A", "text"),
		}}
		fc := &fakeCompleter{out: out}
		return NewSynthesizer(ff, fc, Config{}), fc
	}

	cases := []struct {
		mode   Mode
		header string
	}{
		{ModeStorytelling, "# NARRATIVE PODCAST SCRIPT"},
		{ModeAnalysis, "# PODCAST SOURCE ANALYSIS"},
		{ModeComparison, "# COMPARATIVE ANALYSIS PODCAST"},
	}
	for _, tc := range cases {
		s, _ := newSynth("BODY")
		out, err := s.Generate(context.Background(), Request{
			URLs: []string{"https://a.example"},
			Mode: tc.mode,
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.mode, err)
		}
		if !strings.HasPrefix(out.Text, tc.header) {
			t.Errorf("%s: expected header %q, got:\n%s", tc.mode, tc.header, out.Text)
		}
		if !strings.Contains(out.Text, "- A (https://a.example)") {
			t.Errorf("%s: missing source line:\n%s", tc.mode, out.Text)
		}
	}
}

func TestTitleWords(t *testing.T) {
	cases := map[string]string{
		"solo_narrative":           "Solo Narrative",
		"third_person_omniscient":  "Third Person Omniscient",
		"casual":                   "Casual",
		"investigative_journalism": "Investigative Journalism",
	}
	for in, want := range cases {
		if got := titleWords(in); got != want {
			t.Errorf("titleWords(%q) = %q, want %q", in, got, want)
		}
	}
	if got := spaceWords("medium_15_25_min"); got != "medium 15 25 min" {
		t.Errorf("spaceWords = %q", got)
	}
}

func TestBuildContext_Headers(t *testing.T) {
	pages := []*webpage.Page{okPage("https://a.example", "A", "text")}
	for mode, want := range map[Mode]string{
		ModeEpisode:      "# Source Material from Webpages:",
		ModeStorytelling: "# Story Source Material:",
		ModeAnalysis:     "# Content to Analyze:",
		ModeComparison:   "# Sources to Compare:",
	} {
		doc, _, fetched := buildContext(pages, mode)
		if !strings.HasPrefix(doc, want) {
			t.Errorf("%s: expected header %q, got %q", mode, want, doc[:min(len(doc), 60)])
		}
		if fetched != 1 {
			t.Errorf("%s: expected 1 fetched, got %d", mode, fetched)
		}
	}
}
