package webpage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

// DiscoverSources expands a site URL into up to limit page URLs by reading
// the site's sitemap: sitemap declarations from robots.txt when present,
// falling back to the conventional /sitemap.xml. Sitemap indexes are followed
// one nesting level down.
func (f *Fetcher) DiscoverSources(ctx context.Context, siteURL string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid site url %q", siteURL)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	base := u.Scheme + "://" + u.Host

	auditor := f.robots
	if auditor == nil {
		auditor = newRobotsAuditor(f.client, f.logger)
	}

	sitemapURLs := auditor.sitemaps(ctx, base)
	if len(sitemapURLs) == 0 {
		sitemapURLs = []string{base + "/sitemap.xml"}
	}

	var pages []string
	for _, sm := range sitemapURLs {
		if len(pages) >= limit {
			break
		}
		found, err := f.fetchSitemap(ctx, sm, 2)
		if err != nil {
			f.logger.Warn("sitemap fetch failed", "url", sm, "err", err)
			continue
		}
		for _, p := range found {
			if len(pages) >= limit {
				break
			}
			pages = append(pages, p)
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no page urls discovered for %s", base)
	}
	return pages, nil
}

// fetchSitemap fetches one sitemap XML document and extracts its page URLs.
// When the document turns out to be a sitemap index, the nested sitemaps are
// fetched recursively up to the given depth.
func (f *Fetcher) fetchSitemap(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	f.logger.Debug("fetching sitemap", "url", sitemapURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UAPool.Next())

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read sitemap: %w", err)
	}

	var urls []string
	err = sitemap.Parse(bytes.NewReader(body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})

	if err != nil || len(urls) == 0 {
		// Might be a sitemap index rather than a plain sitemap
		var nested []string
		indexErr := sitemap.ParseIndex(bytes.NewReader(body), func(e sitemap.IndexEntry) error {
			nested = append(nested, e.GetLocation())
			return nil
		})
		if indexErr != nil || len(nested) == 0 {
			return nil, fmt.Errorf("parse as sitemap or index failed")
		}
		if depth <= 0 {
			return nil, fmt.Errorf("sitemap index nesting too deep")
		}
		for _, nestedURL := range nested {
			nestedURLs, fetchErr := f.fetchSitemap(ctx, nestedURL, depth-1)
			if fetchErr != nil {
				f.logger.Warn("failed to fetch nested sitemap", "url", nestedURL, "err", fetchErr)
				continue
			}
			urls = append(urls, nestedURLs...)
		}
	}

	return urls, nil
}
