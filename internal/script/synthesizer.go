package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/podforge/podforge/internal/llm"
	"github.com/podforge/podforge/internal/metrics"
	"github.com/podforge/podforge/internal/webpage"
)

// RefusalMessage is returned verbatim when no source page could be fetched.
// The completion backend is not called in that case.
const RefusalMessage = "Error: Failed to fetch any webpages successfully. Please check the URLs."

// PageFetcher retrieves one source page. Satisfied by *webpage.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) *webpage.Page
}

// Config configures a Synthesizer.
type Config struct {
	// Model overrides the completer's default model when non-empty.
	Model  string
	Logger *slog.Logger
}

// Synthesizer generates scripts from source URLs: concurrent fetch fan-out,
// context assembly, one completion call, metadata wrapping.
type Synthesizer struct {
	fetcher   PageFetcher
	completer llm.Completer
	model     string
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer over the given fetcher and completer.
func NewSynthesizer(fetcher PageFetcher, completer llm.Completer, cfg Config) *Synthesizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		fetcher:   fetcher,
		completer: completer,
		model:     cfg.Model,
		logger:    logger,
	}
}

// Output is the result of one synthesis call.
type Output struct {
	// Text is the wrapped script, or RefusalMessage when Refused.
	Text string
	// SourcesTotal is the number of requested source URLs.
	SourcesTotal int
	// SourcesFetched is how many of them were fetched successfully.
	SourcesFetched int
	// Refused is true when no source could be fetched and no completion ran.
	Refused bool
}

// Generate runs one synthesis call. It returns an error only when the request
// is invalid or the completion call itself fails; fetch failures degrade into
// the context document, and zero successful fetches yields a refused Output.
func (s *Synthesizer) Generate(ctx context.Context, req Request) (*Output, error) {
	req.applyDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	s.logger.Info("fetching sources", "count", len(req.URLs), "mode", req.Mode)
	pages := s.fetchAll(ctx, req.URLs)

	contextDoc, sourceLines, fetched := buildContext(pages, req.Mode)
	out := &Output{SourcesTotal: len(req.URLs), SourcesFetched: fetched}
	if fetched == 0 {
		s.logger.Warn("no sources fetched, refusing synthesis", "urls", len(req.URLs))
		out.Text = RefusalMessage
		out.Refused = true
		return out, nil
	}
	s.logger.Info("sources fetched", "ok", fetched, "total", len(req.URLs))

	prompt, err := buildPrompt(req, contextDoc, sourceLines, fetched)
	if err != nil {
		return nil, err
	}

	maxTokens, temperature := completionParams(req.Mode)

	start := time.Now()
	generated, err := s.completer.Complete(ctx, llm.Request{
		Model:       s.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Prompt:      prompt,
	})
	metrics.RecordCompletion(string(req.Mode), err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("generate script: %w", err)
	}

	out.Text = wrapOutput(req, generated, sourceLines, fetched, len(req.URLs))
	return out, nil
}

// fetchAll launches every fetch at once and waits for all of them: a join
// barrier, not a race. Individual failures never cancel siblings, and results
// keep the original URL order regardless of completion order.
func (s *Synthesizer) fetchAll(ctx context.Context, urls []string) []*webpage.Page {
	pages := make([]*webpage.Page, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			pages[i] = s.fetcher.Fetch(gctx, u)
			return nil
		})
	}
	_ = g.Wait() // fetches capture their own failures, Wait only joins

	return pages
}

func completionParams(mode Mode) (maxTokens int, temperature float32) {
	switch mode {
	case ModeStorytelling:
		return 8000, 0.8
	case ModeAnalysis:
		return 4096, 0 // backend default temperature
	default:
		return 8000, 0.7
	}
}

func wrapOutput(req Request, generated string, sourceLines []string, fetched, total int) string {
	sources := strings.Join(sourceLines, "\n")

	switch req.Mode {
	case ModeStorytelling:
		return fmt.Sprintf(`# NARRATIVE PODCAST SCRIPT

**Style:** %s
**Voice:** %s
**Sources Analyzed:** %d/%d

---

%s

---

**Sources:**
%s
`, titleWords(req.NarrativeStyle), titleWords(req.NarratorVoice), fetched, total, generated, sources)

	case ModeAnalysis:
		return fmt.Sprintf(`# PODCAST SOURCE ANALYSIS

%s

---

**Sources Analyzed:**
%s
`, generated, sources)

	case ModeComparison:
		return fmt.Sprintf(`# COMPARATIVE ANALYSIS PODCAST

**Comparison Focus:** %s
**Sources Analyzed:** %d/%d

---

%s

---

**Sources Compared:**
%s
`, req.ComparisonAngle, fetched, total, generated, sources)

	default:
		return fmt.Sprintf(`# PODCAST SCRIPT GENERATED

**Episode Type:** %s
**Length:** %s
**Tone:** %s
**Target Audience:** %s
**Sources Analyzed:** %d/%d

---

%s

---

**Sources Referenced:**
%s
`, titleWords(string(req.Style)), spaceWords(string(req.Length)), titleWords(string(req.Tone)),
			req.Audience, fetched, total, generated, sources)
	}
}
