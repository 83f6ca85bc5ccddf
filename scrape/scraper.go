// ABOUTME: HTTP content scraper for the scrape phase: fetches a page, classifies
// ABOUTME: its content type, extracts readable text, and caches results by URL.
package scrape

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lantern-research/lantern/cache"
	"github.com/lantern-research/lantern/pipeline"
)

const (
	defaultTimeout = 30 * time.Second
	scrapeCacheTTL = 2 * time.Hour
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"

	// maxBodyBytes caps how much of a response we read; pages beyond this
	// are truncated rather than rejected.
	maxBodyBytes = 4 << 20
)

// Options configures a Scraper.
type Options struct {
	Timeout time.Duration
	Cache   *cache.Store // optional; scraped pages are cached by URL when set
	Client  *http.Client // override for tests
}

// Scraper fetches URLs and turns them into scraped content records. Fetch
// failures are reported as error-typed content with a nil error so one bad
// page never aborts a batch.
type Scraper struct {
	client *http.Client
	store  *cache.Store
	now    func() time.Time
}

// NewScraper builds a scraper with a bounded request timeout.
func NewScraper(opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Scraper{client: client, store: opts.Cache, now: time.Now}
}

// Scrape fetches one URL. The returned error is only non-nil for caller
// mistakes (empty URL); network and HTTP failures come back as ContentError
// records instead.
func (s *Scraper) Scrape(ctx context.Context, url string) (pipeline.ScrapedContent, error) {
	if url == "" {
		return pipeline.ScrapedContent{}, fmt.Errorf("scrape: url must not be empty")
	}
	content := s.fetchCached(ctx, url)
	return content, nil
}

// fetchCached consults the URL cache before fetching. Failure records are
// never cached so a transiently bad page gets another chance next run.
func (s *Scraper) fetchCached(ctx context.Context, url string) pipeline.ScrapedContent {
	if s.store == nil {
		return s.fetch(ctx, url)
	}
	content, err := cache.Aside(ctx, s.store, cache.Key("scrape", url), scrapeCacheTTL, func(ctx context.Context) (pipeline.ScrapedContent, error) {
		got := s.fetch(ctx, url)
		if got.Failed() {
			return got, fmt.Errorf("scrape %s: %s", url, got.ErrorMessage)
		}
		return got, nil
	})
	if err != nil {
		// Already logged as it happened; rebuild the failure record.
		return pipeline.ScrapedContent{
			Type:         pipeline.ContentError,
			URL:          url,
			ErrorMessage: err.Error(),
			ScrapedAt:    s.now(),
		}
	}
	return content
}

func (s *Scraper) fetch(ctx context.Context, url string) pipeline.ScrapedContent {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return s.failure(url, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.failure(url, fmt.Sprintf("fetch: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.failure(url, fmt.Sprintf("fetch: status %d", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	switch classify(contentType, url) {
	case pipeline.ContentImage:
		return pipeline.ScrapedContent{Type: pipeline.ContentImage, URL: url, RawText: url, ScrapedAt: s.now()}
	case pipeline.ContentVideo:
		return pipeline.ScrapedContent{Type: pipeline.ContentVideo, URL: url, RawText: url, ScrapedAt: s.now()}
	case pipeline.ContentPDF:
		return s.failure(url, "fetch: pdf extraction not supported")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return s.failure(url, fmt.Sprintf("read body: %v", err))
	}

	text := ExtractText(string(body))
	if strings.TrimSpace(text) == "" {
		return s.failure(url, "extract: no readable text")
	}

	return pipeline.ScrapedContent{
		Type:      pipeline.ContentText,
		URL:       url,
		RawText:   text,
		ScrapedAt: s.now(),
	}
}

func (s *Scraper) failure(url, msg string) pipeline.ScrapedContent {
	log.Printf("component=scrape action=failed url=%s reason=%q", url, msg)
	return pipeline.ScrapedContent{
		Type:         pipeline.ContentError,
		URL:          url,
		ErrorMessage: msg,
		ScrapedAt:    s.now(),
	}
}

// classify maps a response content type (falling back to the URL extension)
// onto our content kinds.
func classify(contentType, url string) pipeline.ContentType {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return pipeline.ContentImage
	case strings.HasPrefix(ct, "video/"):
		return pipeline.ContentVideo
	case strings.Contains(ct, "pdf"):
		return pipeline.ContentPDF
	}
	lower := strings.ToLower(url)
	switch {
	case hasAnySuffix(lower, ".png", ".jpg", ".jpeg", ".gif", ".webp"):
		return pipeline.ContentImage
	case hasAnySuffix(lower, ".mp4", ".webm", ".mov"):
		return pipeline.ContentVideo
	case strings.HasSuffix(lower, ".pdf"):
		return pipeline.ContentPDF
	}
	return pipeline.ContentText
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
