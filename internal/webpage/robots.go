package webpage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/podforge/podforge/pkg/httpclient"
	"github.com/temoto/robotstxt"
)

// robotsAuditor fetches and caches per-host robots.txt rules so a fan-out of
// source fetches checks each host at most once.
type robotsAuditor struct {
	client *httpclient.Client
	logger *slog.Logger
	mu     sync.RWMutex
	cache  map[string]*robotstxt.RobotsData
}

func newRobotsAuditor(client *httpclient.Client, logger *slog.Logger) *robotsAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &robotsAuditor{
		client: client,
		logger: logger,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// isAllowed reports whether the target URL may be fetched under the host's
// robots.txt for the given User-Agent. Unreachable or unparseable robots.txt
// fails open.
func (r *robotsAuditor) isAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	host := u.Scheme + "://" + u.Host

	data, err := r.getOrFetch(ctx, host)
	if err != nil {
		r.logger.Debug("robots.txt fetch failed, defaulting to allow", "host", host, "err", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}

	return data.FindGroup(userAgent).Test(u.Path), nil
}

// sitemaps returns the sitemap URLs declared in the host's robots.txt.
func (r *robotsAuditor) sitemaps(ctx context.Context, host string) []string {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	data, err := r.getOrFetch(ctx, host)
	if err != nil || data == nil {
		return nil
	}
	return data.Sitemaps
}

func (r *robotsAuditor) getOrFetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, exists := r.cache[host]
	r.mu.RUnlock()
	if exists {
		return data, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if data, exists = r.cache[host]; exists {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		r.cache[host] = nil
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		r.cache[host] = nil
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// Missing robots.txt means everything is allowed
	if resp.StatusCode >= 400 {
		r.cache[host] = nil
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		r.cache[host] = nil
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	parsed, err := robotstxt.FromBytes(body)
	if err != nil {
		r.cache[host] = nil
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.cache[host] = parsed
	return parsed, nil
}
