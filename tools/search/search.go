// Package search implements foreman.Searcher against the Brave web search
// API. Results feed the prompts of research-oriented agent roles; a failed
// search degrades to a prompt without web results and never fails a step.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	foreman "github.com/nevindra/foreman"
)

const (
	defaultCount     = 8
	defaultFreshness = "pw" // past week; research roles want recent coverage
	fetchTimeout     = 8 * time.Second
	fetchLimit       = 512 << 10 // 512KB per page
	maxExtractChars  = 1200
	maxFetchPages    = 3
)

// Client performs Brave web searches with optional readable-content
// extraction for the top results.
type Client struct {
	apiKey       string
	http         *http.Client
	logger       *slog.Logger
	fetchContent bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithContentFetch enables fetching the top result pages and replacing their
// snippets with extracted readable text.
func WithContentFetch(enabled bool) Option {
	return func(c *Client) { c.fetchContent = enabled }
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a search client. Requires a Brave API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: slog.New(discardHandler{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to 8 recent results for query.
func (c *Client) Search(ctx context.Context, query string) ([]foreman.SearchResult, error) {
	results, err := c.braveSearch(ctx, query, defaultCount)
	if err != nil {
		c.logger.Warn("brave search failed", "query", query, "error", err)
		return nil, err
	}
	if c.fetchContent {
		c.enrich(ctx, results)
	}
	return results, nil
}

func (c *Client) braveSearch(ctx context.Context, query string, count int) ([]foreman.SearchResult, error) {
	u := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d&freshness=%s",
		url.QueryEscape(query), count, defaultFreshness)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("brave API %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("brave parse error: %w", err)
	}

	var results []foreman.SearchResult
	for _, r := range data.Web.Results {
		results = append(results, foreman.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return results, nil
}

// enrich fetches the top result pages concurrently and swaps in extracted
// readable text where it beats the search snippet. Fetch failures leave the
// snippet in place.
func (c *Client) enrich(ctx context.Context, results []foreman.SearchResult) {
	n := len(results)
	if n > maxFetchPages {
		n = maxFetchPages
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if text := c.fetchReadable(ctx, results[idx].URL); len(text) > len(results[idx].Description) {
				results[idx].Description = text
			}
		}(i)
	}
	wg.Wait()
}

func (c *Client) fetchReadable(ctx context.Context, pageURL string) string {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ForemanBot/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ""
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(io.LimitReader(resp.Body, fetchLimit), parsed)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(strings.Join(strings.Fields(article.TextContent), " "))
	if len(text) > maxExtractChars {
		text = text[:maxExtractChars]
	}
	return text
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

var _ foreman.Searcher = (*Client)(nil)
