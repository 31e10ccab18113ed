// Command podforge turns a topic into a podcast script: it searches the web
// for recent sources, fetches and cleans them, and asks a completion backend
// for the script, writing the result as a markdown file.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/podforge/podforge/internal/fingerprint"
	"github.com/podforge/podforge/internal/llm"
	"github.com/podforge/podforge/internal/metrics"
	"github.com/podforge/podforge/internal/pipeline"
	"github.com/podforge/podforge/internal/script"
	"github.com/podforge/podforge/internal/search"
	"github.com/podforge/podforge/internal/storage"
	"github.com/podforge/podforge/internal/storage/postgres"
	"github.com/podforge/podforge/internal/storage/sqlite"
	"github.com/podforge/podforge/internal/webpage"
	"github.com/podforge/podforge/pkg/ratelimit"
)

const defaultResultCount = 8

func main() {
	if err := run(); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	interactive := flag.Bool("interactive", false, "prompt for topic, style, length, tone, and audience")
	mode := flag.String("mode", string(script.ModeEpisode), "synthesis mode: episode, storytelling, analysis, or comparison")
	results := flag.Int("results", defaultResultCount, "number of search results to use as sources")
	site := flag.String("site", "", "skip web search and discover sources from this site's sitemap")
	archivePath := flag.String("archive", "", "archive episodes to this SQLite file (POSTGRES_DSN overrides with Postgres)")
	metricsPort := flag.Int("metrics-port", 0, "expose Prometheus metrics on this port (0 disables)")
	output := flag.String("output", pipeline.DefaultOutputDir, "directory for generated script files")
	respectRobots := flag.Bool("robots", false, "honor robots.txt when fetching sources")
	rps := flag.Float64("rps", 0, "max fetch requests per second (0 = unlimited)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "err", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsPort > 0 {
		srv := metrics.Start(*metricsPort)
		defer func() { _ = srv.Stop(context.Background()) }()
	}

	req := script.Request{Mode: script.Mode(*mode)}
	switch req.Mode {
	case script.ModeEpisode, script.ModeStorytelling, script.ModeAnalysis, script.ModeComparison:
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	topic := strings.TrimSpace(strings.Join(flag.Args(), " "))
	stdin := bufio.NewScanner(os.Stdin)

	maxResults := *results
	if *interactive {
		var err error
		topic, maxResults, err = promptRun(stdin, topic, &req)
		if err != nil {
			return err
		}
	} else if topic == "" {
		topic = promptLine(stdin, "Enter podcast topic: ")
	}
	if topic == "" {
		return errors.New("no topic given")
	}

	runner, cleanup, err := buildRunner(ctx, logger, *output, *archivePath, *respectRobots, *rps)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := pipeline.Options{
		Search: search.Options{MaxResults: maxResults, NewsOnly: true},
		Script: req,
	}

	var res *pipeline.Result
	if *site != "" {
		res, err = runSite(ctx, runner, logger, topic, *site, maxResults, opts)
	} else {
		res, err = runner.Run(ctx, topic, opts)
	}
	if err != nil {
		return err
	}

	if res.Refused {
		fmt.Fprintln(os.Stderr, res.Script)
		return errors.New("no sources could be fetched")
	}

	fmt.Printf("Script written to %s\n", res.Path)
	fmt.Printf("Sources used (%d):\n", len(res.Sources))
	for i, u := range res.Sources {
		fmt.Printf("  %d. %s\n", i+1, u)
	}
	return nil
}

// buildRunner wires the search, fetch, completion, and archive components.
// The returned cleanup closes whatever was opened.
func buildRunner(ctx context.Context, logger *slog.Logger, output, archivePath string, respectRobots bool, rps float64) (*pipeline.Runner, func(), error) {
	searchClient, err := search.NewClient(search.ClientConfig{
		Endpoint:  os.Getenv("SEARCH_MCP_ENDPOINT"),
		AuthToken: os.Getenv("SEARCH_MCP_TOKEN"),
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create search client: %w", err)
	}
	manager := search.NewManager(searchClient, 0, logger)

	completer, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("OPENAI_MODEL"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create completion client: %w", err)
	}

	var limiter *ratelimit.Limiter
	if rps > 0 {
		limiter = ratelimit.NewLimiter(rps, 0.1)
	}

	fetcher, err := webpage.NewFetcher(webpage.FetchConfig{
		Fingerprint:   fingerprint.ProfileChrome,
		Limiter:       limiter,
		RespectRobots: respectRobots,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}

	synth := script.NewSynthesizer(fetcher, completer, script.Config{Logger: logger})

	var archive storage.Backend
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		archive, err = postgres.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres archive: %w", err)
		}
	} else if archivePath != "" {
		archive, err = sqlite.New(archivePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite archive: %w", err)
		}
	}

	runner := pipeline.NewRunner(manager, synth, pipeline.Config{
		OutputDir: output,
		Archive:   archive,
		Logger:    logger,
	})

	cleanup := func() {
		_ = manager.Close()
		if limiter != nil {
			limiter.Stop()
		}
		if archive != nil {
			_ = archive.Close()
		}
	}
	return runner, cleanup, nil
}

// runSite discovers source URLs from the site's sitemap instead of searching.
func runSite(ctx context.Context, runner *pipeline.Runner, logger *slog.Logger, topic, site string, limit int, opts pipeline.Options) (*pipeline.Result, error) {
	fetcher, err := webpage.NewFetcher(webpage.FetchConfig{
		Fingerprint: fingerprint.ProfileGo,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create discovery fetcher: %w", err)
	}

	urls, err := fetcher.DiscoverSources(ctx, site, limit)
	if err != nil {
		return nil, fmt.Errorf("discover sources from %s: %w", site, err)
	}
	logger.Info("discovered sources from sitemap", "site", site, "count", len(urls))

	return runner.RunURLs(ctx, topic, urls, opts)
}

// promptRun walks the interactive setup: topic, result count, style, length,
// tone, and audience. Enter accepts the shown default.
func promptRun(stdin *bufio.Scanner, topic string, req *script.Request) (string, int, error) {
	fmt.Println("=== Podcast Script Setup ===")

	if topic == "" {
		topic = promptLine(stdin, "Topic: ")
		if topic == "" {
			return "", 0, errors.New("no topic given")
		}
	}

	maxResults := promptInt(stdin, fmt.Sprintf("Number of sources [%d]: ", defaultResultCount), defaultResultCount)

	styles := []script.Style{
		script.StyleSoloNarrative,
		script.StyleEducationalDeepDive,
		script.StyleNewsCommentary,
		script.StyleStorytelling,
	}
	fmt.Println("Style:")
	for i, s := range styles {
		fmt.Printf("  %d. %s\n", i+1, s)
	}
	req.Style = styles[promptChoice(stdin, "Choose style [1]: ", len(styles))-1]

	lengths := []script.Length{
		script.LengthShort,
		script.LengthMedium,
		script.LengthLong,
		script.LengthExtended,
	}
	fmt.Println("Length:")
	for i, l := range lengths {
		fmt.Printf("  %d. %s\n", i+1, l)
	}
	req.Length = lengths[promptChoice(stdin, "Choose length [1]: ", len(lengths))-1]

	tones := []script.Tone{
		script.ToneCasual,
		script.ToneProfessional,
		script.ToneHumorous,
		script.ToneDramatic,
		script.ToneEducational,
		script.ToneInvestigative,
	}
	fmt.Println("Tone:")
	for i, t := range tones {
		fmt.Printf("  %d. %s\n", i+1, t)
	}
	req.Tone = tones[promptChoice(stdin, "Choose tone [1]: ", len(tones))-1]

	req.Audience = promptLine(stdin, "Target audience [general audience]: ")
	if req.Audience == "" {
		req.Audience = "general audience"
	}

	return topic, maxResults, nil
}

func promptLine(stdin *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !stdin.Scan() {
		return ""
	}
	return strings.TrimSpace(stdin.Text())
}

func promptInt(stdin *bufio.Scanner, label string, fallback int) int {
	line := promptLine(stdin, label)
	if line == "" {
		return fallback
	}
	n, err := strconv.Atoi(line)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// promptChoice reads a 1-based menu selection, falling back to 1 on empty or
// out-of-range input.
func promptChoice(stdin *bufio.Scanner, label string, max int) int {
	n := promptInt(stdin, label, 1)
	if n < 1 || n > max {
		return 1
	}
	return n
}
