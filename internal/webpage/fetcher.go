package webpage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/podforge/podforge/internal/fingerprint"
	"github.com/podforge/podforge/internal/metrics"
	"github.com/podforge/podforge/pkg/httpclient"
	"github.com/podforge/podforge/pkg/ratelimit"
	"github.com/podforge/podforge/pkg/useragent"
)

// Page is the outcome of fetching and cleaning one source URL. Failures are
// captured in Error/Success; Fetch never reports them as Go errors.
type Page struct {
	URL        string
	Title      string
	Content    string
	Success    bool
	Error      string
	StatusCode int
	Duration   time.Duration
	// Challenge names the bot-protection vendor when the response was a
	// block page rather than real content.
	Challenge string
	FetchedAt time.Time
}

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout       time.Duration
	MaxRedirects  int
	MaxContentLen int
	Fingerprint   fingerprint.Profile
	UAPool        *useragent.Pool
	Limiter       *ratelimit.Limiter
	RespectRobots bool
	Logger        *slog.Logger
}

// Fetcher downloads pages and extracts bounded plain-text excerpts for the
// synthesis context. A single underlying client is held across requests so
// connections are pooled over a fan-out batch.
type Fetcher struct {
	cfg    FetchConfig
	client *httpclient.Client
	logger *slog.Logger
	robots *robotsAuditor
}

// NewFetcher initializes a Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.MaxContentLen == 0 {
		cfg.MaxContentLen = 15000
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	f := &Fetcher{
		cfg:    cfg,
		client: client,
		logger: cfg.Logger,
	}
	if cfg.RespectRobots {
		f.robots = newRobotsAuditor(client, cfg.Logger)
	}
	return f, nil
}

// Fetch retrieves the URL and extracts a cleaned text excerpt. It never
// returns an error: network failures, bad statuses, robots denials, and
// challenge pages all land in the Page's Error/Challenge fields.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *Page {
	start := time.Now()
	page := &Page{URL: targetURL, FetchedAt: start.UTC()}

	fail := func(msg string) *Page {
		page.Error = msg
		page.Duration = time.Since(start)
		f.record(page)
		return page
	}

	if f.cfg.Limiter != nil {
		if err := f.cfg.Limiter.Wait(ctx); err != nil {
			return fail(fmt.Sprintf("rate limiter: %v", err))
		}
	}

	userAgent := f.cfg.UAPool.Next()

	if f.robots != nil {
		allowed, err := f.robots.isAllowed(ctx, targetURL, userAgent)
		if err != nil {
			f.logger.Debug("robots check errored, failing open", "url", targetURL, "err", err)
		} else if !allowed {
			return fail("disallowed by robots.txt")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return fail(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return fail(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	page.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fail(fmt.Sprintf("read body: %v", err))
	}

	// A challenge page parses fine as HTML but would pollute the synthesis
	// context with vendor boilerplate, so it counts as a failed fetch.
	if src := detectChallenge(resp.StatusCode, resp.Header, body); src != "" {
		page.Challenge = src
		return fail(fmt.Sprintf("blocked by %s challenge", src))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fail(fmt.Sprintf("parse html: %v", err))
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "No title"
	}

	// Strip non-content elements before text extraction
	doc.Find("script, style, nav, footer, header, aside, iframe, noscript").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	content := collapseWhitespace(text)
	if runes := []rune(content); len(runes) > f.cfg.MaxContentLen {
		content = string(runes[:f.cfg.MaxContentLen])
	}

	page.Title = title
	page.Content = content
	page.Success = true
	page.Duration = time.Since(start)
	f.record(page)
	return page
}

func (f *Fetcher) record(page *Page) {
	host := ""
	if u, err := url.Parse(page.URL); err == nil {
		host = u.Hostname()
	}
	metrics.RecordFetch(host, page.Success, page.Challenge, page.Duration)
	if page.Success {
		f.logger.Debug("fetched", "url", page.URL, "chars", len(page.Content), "took", page.Duration)
	} else {
		f.logger.Debug("fetch failed", "url", page.URL, "err", page.Error)
	}
}

// collapseWhitespace flattens extracted text: lines are split, then split
// again on double-space boundaries, and the non-empty chunks are re-joined
// with single spaces. Cheap normalization, not DOM-aware extraction.
func collapseWhitespace(text string) string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, " ")
}
