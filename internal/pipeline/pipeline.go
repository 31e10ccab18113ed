// Package pipeline orchestrates the three stages of a script run: topic
// search, script synthesis, and writing the result to disk, with optional
// episode archiving.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/podforge/podforge/internal/script"
	"github.com/podforge/podforge/internal/search"
	"github.com/podforge/podforge/internal/storage"
)

// DefaultOutputDir is where script files land unless configured otherwise.
const DefaultOutputDir = "script"

// topicSlugLen bounds the topic portion of generated filenames.
const topicSlugLen = 30

// TopicSearcher finds source URLs for a topic. Satisfied by *search.Manager.
type TopicSearcher interface {
	SearchTopic(ctx context.Context, topic string, opts search.Options) []search.Result
}

// ScriptGenerator produces the script text. Satisfied by *script.Synthesizer.
type ScriptGenerator interface {
	Generate(ctx context.Context, req script.Request) (*script.Output, error)
}

// Config configures a Runner.
type Config struct {
	// OutputDir receives generated script files. Defaults to DefaultOutputDir.
	OutputDir string
	// Archive, when non-nil, records every run as a storage.Episode.
	Archive storage.Backend
	Logger  *slog.Logger
}

// Runner wires search, synthesis, and persistence into one topic-to-file run.
type Runner struct {
	searcher  TopicSearcher
	generator ScriptGenerator
	archive   storage.Backend
	outputDir string
	logger    *slog.Logger
}

// Options carries the per-run knobs for both stages.
type Options struct {
	Search search.Options
	// Script configures synthesis. The URLs field is ignored; the runner
	// fills it from search results (or the caller-provided source list).
	Script script.Request
}

// Result reports what a run produced.
type Result struct {
	// Path is the written script file, empty when the run was refused.
	Path string
	// Script is the full generated text, or the refusal message.
	Script string
	// Sources are the URLs handed to the synthesizer, in citation order.
	Sources []string
	// Refused is true when no source page could be fetched.
	Refused bool
}

// ErrNoSources is returned when search yields no usable URLs for the topic.
var ErrNoSources = errors.New("no sources found for topic")

// NewRunner creates a Runner over the given searcher and generator.
func NewRunner(searcher TopicSearcher, generator ScriptGenerator, cfg Config) *Runner {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		searcher:  searcher,
		generator: generator,
		archive:   cfg.Archive,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Run searches the topic, synthesizes a script from the found sources, and
// writes it to disk. It returns ErrNoSources when the search produced no
// usable URLs.
func (r *Runner) Run(ctx context.Context, topic string, opts Options) (*Result, error) {
	results := r.searcher.SearchTopic(ctx, topic, opts.Search)

	urls := make([]string, 0, len(results))
	for _, res := range results {
		if res.URL != "" {
			urls = append(urls, res.URL)
		}
	}
	if len(urls) == 0 {
		r.logger.Warn("search returned no usable sources", "topic", topic)
		return nil, fmt.Errorf("%w: %q", ErrNoSources, topic)
	}

	return r.RunURLs(ctx, topic, urls, opts)
}

// RunURLs synthesizes a script directly from the given source URLs, skipping
// the search stage. Used when the caller already has a source list, e.g. from
// sitemap discovery.
func (r *Runner) RunURLs(ctx context.Context, topic string, urls []string, opts Options) (*Result, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoSources, topic)
	}

	req := opts.Script
	req.URLs = urls

	start := time.Now()
	out, err := r.generator.Generate(ctx, req)
	if err != nil {
		r.recordEpisode(ctx, topic, req, nil, "", time.Since(start), err.Error())
		return nil, err
	}

	res := &Result{Script: out.Text, Sources: urls}

	if out.Refused {
		res.Refused = true
		r.logger.Warn("synthesis refused, no script written", "topic", topic)
		r.recordEpisode(ctx, topic, req, out, "", time.Since(start), out.Text)
		return res, nil
	}

	path, err := r.writeScript(topic, out.Text)
	if err != nil {
		return nil, err
	}
	res.Path = path

	r.logger.Info("script written", "topic", topic, "path", path,
		"sources", out.SourcesFetched, "requested", out.SourcesTotal)
	r.recordEpisode(ctx, topic, req, out, path, time.Since(start), "")
	return res, nil
}

// writeScript persists the script under the output directory as
// podcast_<topic-slug>_<timestamp>.md.
func (r *Runner) writeScript(topic, text string) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("podcast_%s_%s.md", slugify(topic), time.Now().Format("20060102_150405"))
	path := filepath.Join(r.outputDir, name)

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write script file: %w", err)
	}
	return path, nil
}

// recordEpisode archives the run when a backend is configured. Archive
// failures are logged, never fatal: the script file is the primary output.
// out may be nil when generation itself errored.
func (r *Runner) recordEpisode(ctx context.Context, topic string, req script.Request, out *script.Output, path string, elapsed time.Duration, runErr string) {
	if r.archive == nil {
		return
	}

	ep := &storage.Episode{
		ID:           uuid.New().String(),
		Topic:        topic,
		Mode:         string(req.Mode),
		Style:        string(req.Style),
		Length:       string(req.Length),
		Tone:         string(req.Tone),
		Audience:     req.Audience,
		SourcesTotal: len(req.URLs),
		Path:         path,
		Duration:     elapsed,
		CreatedAt:    time.Now().UTC(),
		Error:        runErr,
	}
	if out != nil {
		ep.SourcesTotal = out.SourcesTotal
		ep.SourcesFetched = out.SourcesFetched
	}

	if err := r.archive.Save(ctx, ep); err != nil {
		r.logger.Warn("episode archive failed", "topic", topic, "err", err)
	}
}

// slugify turns a topic into a filename-safe fragment: lowercase, spaces to
// underscores, capped at topicSlugLen runes.
func slugify(topic string) string {
	slug := strings.ToLower(strings.TrimSpace(topic))
	slug = strings.ReplaceAll(slug, " ", "_")
	if runes := []rune(slug); len(runes) > topicSlugLen {
		slug = string(runes[:topicSlugLen])
	}
	return slug
}
