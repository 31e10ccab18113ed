package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/podforge/podforge/internal/metrics"
	"github.com/podforge/podforge/pkg/httpclient"
)

// DefaultEndpoint is the web_search_exa MCP endpoint used when no override is
// configured.
const DefaultEndpoint = "https://mcp-blaxel-search-vzjx7r.bl.run/mcp"

const searchToolName = "web_search_exa"

// ClientConfig configures the MCP search client.
type ClientConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Client talks JSON-RPC 2.0 over HTTPS POST to an MCP search server and
// normalizes whatever shape comes back into []Result.
type Client struct {
	cfg    ClientConfig
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient creates a search client with the given configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hc, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	return &Client{cfg: cfg, http: hc, logger: cfg.Logger}, nil
}

type rpcRequest struct {
	Jsonrpc string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip. Unlike Search, it reports failures:
// non-200 status, malformed envelopes, and error members are all hard errors.
func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(raw))
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if rr.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rr.Error.Code, rr.Error.Message)
	}

	return rr.Result, nil
}

// Search queries the web_search_exa tool. It never fails past this boundary:
// any internal error is logged and converted to an empty result set, so a
// flaky search backend degrades the pipeline instead of aborting it.
func (c *Client) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	results, err := c.search(ctx, query, opts)
	metrics.RecordSearch(len(results), err != nil)
	if err != nil {
		c.logger.Warn("search failed", "query", query, "err", err)
		return nil, nil
	}
	return results, nil
}

func (c *Client) search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultOptions().MaxResults
	}

	arguments := map[string]any{
		"query":      query,
		"numResults": opts.MaxResults,
	}
	if opts.NewsOnly {
		arguments["category"] = "news"
		if opts.DaysBack > 0 {
			start := time.Now().UTC().Add(-time.Duration(opts.DaysBack) * 24 * time.Hour)
			arguments["startPublishedDate"] = start.Format("2006-01-02T15:04:05.000Z")
		}
	}

	raw, err := c.call(ctx, "tools/call", map[string]any{
		"name":      searchToolName,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}

	payload, degraded := extractPayload(raw, query)
	if degraded != nil {
		return degraded, nil
	}
	return normalize(payload, opts.MaxResults), nil
}

// ToolDescriptor describes one tool exposed by the MCP server.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ListTools introspects the remote capability set. Diagnostic only.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	raw, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Tools []ToolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}
	return out.Tools, nil
}

// extractPayload unwraps the tool-call result envelope. The payload of
// interest may live under result.content[0].text (JSON- or plain-text
// encoded), under result.content directly, or be the result itself. A
// plain-text payload produces a single degraded Result instead of failing.
func extractPayload(raw json.RawMessage, query string) (payload any, degraded []Result) {
	var result any
	if len(raw) == 0 || json.Unmarshal(raw, &result) != nil {
		return nil, nil
	}

	m, ok := result.(map[string]any)
	if !ok {
		return result, nil
	}
	content, ok := m["content"]
	if !ok {
		return result, nil
	}

	switch v := content.(type) {
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				if text, ok := first["text"].(string); ok {
					var parsed any
					if err := json.Unmarshal([]byte(text), &parsed); err == nil {
						return parsed, nil
					}
					return nil, []Result{degradedResult(text, query)}
				}
			}
		}
		return content, nil
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed, nil
		}
		return nil, []Result{degradedResult(v, query)}
	default:
		return content, nil
	}
}

// payloadShape tags the recognized structured-data layouts. Branching happens
// on the tag, not on ad hoc field probing at each call site.
type payloadShape int

const (
	shapeUnknown    payloadShape = iota
	shapeResultsMap              // {"results": [...]}
	shapeLinksMap                // {"links": [...]}
	shapeSingleHit               // {"url": ...}
	shapeHitList                 // [...]
)

func classifyPayload(data any) payloadShape {
	switch v := data.(type) {
	case map[string]any:
		if _, ok := v["results"].([]any); ok {
			return shapeResultsMap
		}
		if _, ok := v["links"].([]any); ok {
			return shapeLinksMap
		}
		if _, ok := v["url"]; ok {
			return shapeSingleHit
		}
	case []any:
		return shapeHitList
	}
	return shapeUnknown
}

func normalize(data any, max int) []Result {
	switch classifyPayload(data) {
	case shapeResultsMap:
		return fromHitList(data.(map[string]any)["results"].([]any), max)
	case shapeLinksMap:
		return fromHitList(data.(map[string]any)["links"].([]any), max)
	case shapeSingleHit:
		if r, ok := fromHit(data.(map[string]any)); ok {
			return []Result{r}
		}
		return nil
	case shapeHitList:
		return fromHitList(data.([]any), max)
	default:
		return nil
	}
}

func fromHitList(items []any, max int) []Result {
	var results []Result
	for _, item := range items {
		if len(results) >= max {
			break
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if r, ok := fromHit(m); ok {
			results = append(results, r)
		}
	}
	return results
}

// fromHit extracts one Result with field-synonym fallback. A hit is kept only
// if both title and URL end up non-empty.
func fromHit(item map[string]any) (Result, bool) {
	title := firstString(item, "title", "name", "heading")
	if title == "" {
		title = "Search Result"
	}

	url := firstString(item, "url", "link", "href")
	if url == "" {
		return Result{}, false
	}

	description := firstString(item, "description", "snippet", "summary", "content")

	// relevance_score and score are treated as interchangeable with falsy-OR
	// fallback; a legitimate 0.0 relevance_score yields to a nonzero score.
	// See DESIGN.md.
	score := numberField(item, "relevance_score")
	if score == 0 {
		score = numberField(item, "score")
	}

	return Result{
		Title:          truncate(title, 200),
		URL:            url,
		Description:    truncate(description, 300),
		RelevanceScore: score,
	}, true
}

func degradedResult(text, query string) Result {
	description := truncate(text, 300)
	if len([]rune(text)) > 300 {
		description += "..."
	}
	return Result{
		Title:          "Search results for: " + query,
		URL:            "",
		Description:    description,
		RelevanceScore: 0.5,
	}
}

func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func numberField(item map[string]any, key string) float64 {
	switch v := item[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
