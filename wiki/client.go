/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package wiki provides link graphs for the navigator: a client for the
// MediaWiki action API, and a static graph loaded from YAML.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Seednode/wikirace/navigator"
)

const (
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

	defaultTimeout   = 10 * time.Second
	defaultCacheTTL  = 30 * time.Minute
	defaultCacheSize = 4096
	maxLinkPages     = 4
	maxResponseBytes = 4 << 20
	searchLimit      = 10
)

var ErrNotFound = errors.New("wiki: article not found")

// Source is a link graph that can also suggest articles.
type Source interface {
	navigator.Graph
	Random(ctx context.Context) (string, error)
	Search(ctx context.Context, query string) ([]string, error)
}

// Client queries a MediaWiki action API endpoint. Responses are cached,
// identical concurrent requests are collapsed into one, and outgoing requests
// are rate limited.
type Client struct {
	endpoint  string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter

	group    singleflight.Group
	links    *cache[[]string]
	extracts *cache[string]
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit allows rps requests per second with the given burst. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) {
		if rps <= 0 {
			cl.limiter = rate.NewLimiter(rate.Inf, 0)

			return
		}
		cl.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithCacheTTL sets how long responses are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(cl *Client) {
		cl.links = newCache[[]string](ttl, defaultCacheSize)
		cl.extracts = newCache[string](ttl, defaultCacheSize)
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// NewClient returns a client for the API at endpoint, or DefaultEndpoint if
// endpoint is empty.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		endpoint:  endpoint,
		userAgent: "wikirace (https://github.com/Seednode/wikirace)",
		http:      &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(rate.Every(time.Second/10), 20),
		links:     newCache[[]string](defaultCacheTTL, defaultCacheSize),
		extracts:  newCache[string](defaultCacheTTL, defaultCacheSize),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiPage struct {
	Title   string `json:"title"`
	Missing bool   `json:"missing"`
	Invalid bool   `json:"invalid"`
	Extract string `json:"extract"`
	Links   []struct {
		Title string `json:"title"`
	} `json:"links"`
}

type apiResponse struct {
	Error    *apiError         `json:"error"`
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages  []apiPage `json:"pages"`
		Random []struct {
			Title string `json:"title"`
		} `json:"random"`
	} `json:"query"`
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wiki: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("wiki: decode %s response: %w", params.Get("action"), err)
	}

	return nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*apiResponse, error) {
	params.Set("action", "query")

	var resp apiResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("wiki: %s: %s", resp.Error.Code, resp.Error.Info)
	}

	return &resp, nil
}

func firstPage(resp *apiResponse) (*apiPage, error) {
	if len(resp.Query.Pages) == 0 {
		return nil, ErrNotFound
	}

	page := &resp.Query.Pages[0]
	if page.Missing || page.Invalid {
		return nil, ErrNotFound
	}

	return page, nil
}

// Links returns the titles of the articles that title links to.
func (c *Client) Links(ctx context.Context, title string) ([]string, error) {
	key := strings.ToLower(title)

	if links, ok := c.links.get(key); ok {
		return slices.Clone(links), nil
	}

	v, err, _ := c.group.Do("links:"+key, func() (any, error) {
		links, err := c.fetchLinks(ctx, title)
		if err != nil {
			return nil, err
		}
		c.links.put(key, links)

		return links, nil
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(v.([]string)), nil
}

func (c *Client) fetchLinks(ctx context.Context, title string) ([]string, error) {
	var (
		links []string
		cont  map[string]string
	)

	for range maxLinkPages {
		params := url.Values{
			"titles":      {title},
			"prop":        {"links"},
			"plnamespace": {"0"},
			"pllimit":     {"max"},
			"redirects":   {"1"},
		}
		for k, v := range cont {
			params.Set(k, v)
		}

		resp, err := c.query(ctx, params)
		if err != nil {
			return nil, err
		}

		page, err := firstPage(resp)
		if err != nil {
			return nil, err
		}

		for _, link := range page.Links {
			links = append(links, link.Title)
		}

		if resp.Continue == nil {
			break
		}
		cont = resp.Continue
	}

	return links, nil
}

// Extract returns the plain text of the introduction of title.
func (c *Client) Extract(ctx context.Context, title string) (string, error) {
	key := strings.ToLower(title)

	if text, ok := c.extracts.get(key); ok {
		return text, nil
	}

	v, err, _ := c.group.Do("extract:"+key, func() (any, error) {
		resp, err := c.query(ctx, url.Values{
			"titles":    {title},
			"prop":      {"extracts"},
			"exintro":   {"1"},
			"redirects": {"1"},
		})
		if err != nil {
			return nil, err
		}

		page, err := firstPage(resp)
		if err != nil {
			return nil, err
		}

		text := PlainText(page.Extract)
		c.extracts.put(key, text)

		return text, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

// Random returns the title of a random article.
func (c *Client) Random(ctx context.Context) (string, error) {
	resp, err := c.query(ctx, url.Values{
		"list":        {"random"},
		"rnnamespace": {"0"},
		"rnlimit":     {"1"},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Query.Random) == 0 || resp.Query.Random[0].Title == "" {
		return "", ErrNotFound
	}

	return resp.Query.Random[0].Title, nil
}

// Search returns article titles matching query, best match first.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var raw []json.RawMessage
	err := c.get(ctx, url.Values{
		"action":    {"opensearch"},
		"search":    {query},
		"limit":     {fmt.Sprint(searchLimit)},
		"namespace": {"0"},
	}, &raw)
	if err != nil {
		return nil, err
	}

	if len(raw) < 2 {
		return nil, fmt.Errorf("wiki: malformed opensearch response")
	}

	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, fmt.Errorf("wiki: decode opensearch titles: %w", err)
	}

	return titles, nil
}

// RandomPair picks two distinct random articles from src concurrently.
func RandomPair(ctx context.Context, src Source) (start, goal string, err error) {
	for range 3 {
		group, gctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			var err error
			start, err = src.Random(gctx)

			return err
		})
		group.Go(func() error {
			var err error
			goal, err = src.Random(gctx)

			return err
		})

		if err := group.Wait(); err != nil {
			return "", "", err
		}

		if !navigator.SameTitle(start, goal) {
			return start, goal, nil
		}
	}

	return "", "", errors.New("wiki: could not find two distinct articles")
}
