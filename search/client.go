// ABOUTME: Google Custom Search client for the search phase: web, news, image, and
// ABOUTME: video verticals with rate limiting, retry with backoff, and result caching.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/time/rate"
	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lantern-research/lantern/cache"
	"github.com/lantern-research/lantern/pipeline"
)

// newsSites restricts the news vertical to established outlets, mirroring the
// primary query shape used for general news coverage.
const newsSites = "site:news.google.com OR site:reuters.com OR site:apnews.com OR site:bbc.com OR site:cnn.com"

const (
	imageCacheTTL = time.Hour
	videoCacheTTL = time.Hour
)

// Options configures a Client.
type Options struct {
	APIKey     string
	CSEID      string
	QPS        float64      // sustained query rate (default 5/s)
	MaxRetries uint64       // retry attempts after the first try (default 3)
	Endpoint   string       // override for tests
	Cache      *cache.Store // optional; image and video results are cached when set
}

// Client performs searches against the Google Custom Search JSON API. All
// verticals share one rate limiter so burst traffic from concurrent phases
// stays within quota.
type Client struct {
	svc        *customsearch.Service
	cseID      string
	limiter    *rate.Limiter
	maxRetries uint64
	store      *cache.Store
}

// NewClient builds a search client. APIKey and CSEID are required.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("search: API key must not be empty")
	}
	if opts.CSEID == "" {
		return nil, fmt.Errorf("search: CSE id must not be empty")
	}
	if opts.QPS <= 0 {
		opts.QPS = 5
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	svcOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("search: create service: %w", err)
	}

	return &Client{
		svc:        svc,
		cseID:      opts.CSEID,
		limiter:    rate.NewLimiter(rate.Limit(opts.QPS), 1),
		maxRetries: opts.MaxRetries,
		store:      opts.Cache,
	}, nil
}

// SearchWeb returns general web results for the query.
func (c *Client) SearchWeb(ctx context.Context, query string, n int) ([]pipeline.SearchResult, error) {
	res, err := c.search(ctx, query, "", n)
	if err != nil {
		return nil, err
	}
	return toSearchResults(res), nil
}

// SearchNews returns results restricted to news outlets.
func (c *Client) SearchNews(ctx context.Context, query string, n int) ([]pipeline.SearchResult, error) {
	res, err := c.search(ctx, query+" "+newsSites, "", n)
	if err != nil {
		return nil, err
	}
	results := toSearchResults(res)
	log.Printf("component=search vertical=news query=%q results=%d", query, len(results))
	return results, nil
}

// SearchImages returns image results, cached for an hour per query when a
// cache store is configured.
func (c *Client) SearchImages(ctx context.Context, query string, n int) ([]pipeline.ImageResult, error) {
	fetch := func(ctx context.Context) ([]pipeline.ImageResult, error) {
		res, err := c.search(ctx, query, "image", n)
		if err != nil {
			return nil, err
		}
		return toImageResults(res), nil
	}
	if c.store == nil {
		return fetch(ctx)
	}
	return cache.Aside(ctx, c.store, cache.Key("search", "images", query), imageCacheTTL, fetch)
}

// SearchVideos returns YouTube video results, cached like image results.
func (c *Client) SearchVideos(ctx context.Context, query string, n int) ([]pipeline.VideoResult, error) {
	fetch := func(ctx context.Context) ([]pipeline.VideoResult, error) {
		res, err := c.search(ctx, query+" video site:youtube.com", "", n)
		if err != nil {
			return nil, err
		}
		return toVideoResults(res), nil
	}
	if c.store == nil {
		return fetch(ctx)
	}
	return cache.Aside(ctx, c.store, cache.Key("search", "videos", query), videoCacheTTL, fetch)
}

// search issues one rate-limited CSE call, retrying transient API errors with
// exponential backoff. Client errors other than rate limiting are permanent.
func (c *Client) search(ctx context.Context, query, searchType string, n int) (*customsearch.Search, error) {
	if n <= 0 {
		n = 5
	}
	if n > 10 {
		// JSON API page-size ceiling.
		n = 10
	}

	var out *customsearch.Search
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		call := c.svc.Cse.List().Q(query).Cx(c.cseID).Num(int64(n)).Context(ctx)
		if searchType != "" {
			call = call.SearchType(searchType)
		}
		res, err := call.Do()
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return out, nil
}

// retryable reports whether the API error is worth retrying: rate limiting
// and server-side failures, nothing else.
func retryable(err error) bool {
	if gerr, ok := err.(*googleapi.Error); ok {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}
	// Transport-level errors are retried.
	return true
}

func toSearchResults(res *customsearch.Search) []pipeline.SearchResult {
	var out []pipeline.SearchResult
	for _, item := range res.Items {
		if item.Link == "" {
			continue
		}
		out = append(out, pipeline.SearchResult{
			Title:   orDefault(item.Title, "No Title"),
			Snippet: orDefault(item.Snippet, "No Description"),
			Link:    item.Link,
			Source:  orDefault(item.DisplayLink, "Unknown Source"),
		})
	}
	return out
}

func toImageResults(res *customsearch.Search) []pipeline.ImageResult {
	var out []pipeline.ImageResult
	for _, item := range res.Items {
		if item.Link == "" {
			continue
		}
		img := pipeline.ImageResult{
			Title:  orDefault(item.Title, "No Title"),
			Link:   item.Link,
			Source: orDefault(item.DisplayLink, "Unknown Source"),
		}
		if item.Image != nil {
			img.Thumbnail = item.Image.ThumbnailLink
		}
		out = append(out, img)
	}
	return out
}

func toVideoResults(res *customsearch.Search) []pipeline.VideoResult {
	var out []pipeline.VideoResult
	for _, item := range res.Items {
		if !strings.Contains(item.Link, "youtube.com") {
			continue
		}
		out = append(out, pipeline.VideoResult{
			Title:     orDefault(item.Title, "No Title"),
			Link:      item.Link,
			Thumbnail: pagemapThumbnail(item.Pagemap),
			Snippet:   orDefault(item.Snippet, "No Description"),
			Source:    orDefault(item.DisplayLink, "Unknown Source"),
		})
	}
	return out
}

// pagemapThumbnail digs the first videoobject thumbnail out of a result's
// pagemap, tolerating any missing level of the structure.
func pagemapThumbnail(raw googleapi.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var pagemap struct {
		VideoObject []struct {
			ThumbnailURL string `json:"thumbnailurl"`
		} `json:"videoobject"`
	}
	if err := json.Unmarshal(raw, &pagemap); err != nil {
		return ""
	}
	if len(pagemap.VideoObject) == 0 {
		return ""
	}
	return pagemap.VideoObject[0].ThumbnailURL
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
