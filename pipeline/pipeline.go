// ABOUTME: Top-level pipeline orchestrator: sequences the search, scrape, store,
// ABOUTME: analyze, visualize, and report phases and always returns a usable result.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Searcher is the search collaborator. Each method returns the hits for one
// search vertical; implementations handle their own retries and caching.
type Searcher interface {
	SearchWeb(ctx context.Context, query string, n int) ([]SearchResult, error)
	SearchNews(ctx context.Context, query string, n int) ([]SearchResult, error)
	SearchImages(ctx context.Context, query string, n int) ([]ImageResult, error)
	SearchVideos(ctx context.Context, query string, n int) ([]VideoResult, error)
}

// Scraper fetches and extracts one URL. Handled fetch/extract failures come
// back as ContentError documents with a nil error; a non-nil error means the
// unit itself could not run.
type Scraper interface {
	Scrape(ctx context.Context, url string) (ScrapedContent, error)
}

// Persister stores scraped documents durably. Fire-and-forget from the
// orchestrator's perspective: failure is logged, never fatal.
type Persister interface {
	AddDocuments(ctx context.Context, query string, docs []ScrapedContent) error
}

// Analyzer produces the analysis union from scraped documents and scores the
// credibility of individual search results.
type Analyzer interface {
	Analyze(ctx context.Context, query string, docs []ScrapedContent) (Analysis, error)
	ScoreCredibility(ctx context.Context, results []SearchResult) []SearchResult
}

// Visualizer projects an analysis into chart-ready data.
type Visualizer interface {
	Visualize(ctx context.Context, analysis Analysis) (VisualizationData, error)
}

// Renderer produces the final report bytes, or nil when no report could be
// rendered.
type Renderer interface {
	Render(ctx context.Context, state *PipelineState, viz VisualizationData, elapsed time.Duration) ([]byte, error)
}

// Options configures a Pipeline.
type Options struct {
	MaxSearchResults  int    // per-vertical search result cap (default 5)
	ScrapeConcurrency int    // fan-out ceiling for scraping (default DefaultFanOutLimit)
	ReportsDir        string // directory for per-job report files (default "reports")
}

func (o *Options) withDefaults() {
	if o.MaxSearchResults <= 0 {
		o.MaxSearchResults = 5
	}
	if o.ScrapeConcurrency <= 0 {
		o.ScrapeConcurrency = DefaultFanOutLimit
	}
	if o.ReportsDir == "" {
		o.ReportsDir = "reports"
	}
}

// RunOptions configures a single run.
type RunOptions struct {
	IncludeNews   bool
	IncludeImages bool
	IncludeVideos bool
	MaxResults    int    // overrides Options.MaxSearchResults when > 0
	JobID         string // when set, the rendered report is saved to ReportsDir/<JobID>.html
}

// DefaultRunOptions enables every search vertical.
func DefaultRunOptions() RunOptions {
	return RunOptions{IncludeNews: true, IncludeImages: true, IncludeVideos: true}
}

// Pipeline orchestrates one research run at a time over its collaborators.
// A Pipeline is safe for concurrent Run calls; each run owns its own state.
type Pipeline struct {
	searcher   Searcher
	scraper    Scraper
	persister  Persister
	analyzer   Analyzer
	visualizer Visualizer
	renderer   Renderer
	opts       Options
}

// New assembles a pipeline from its collaborators.
func New(searcher Searcher, scraper Scraper, persister Persister, analyzer Analyzer, visualizer Visualizer, renderer Renderer, opts Options) *Pipeline {
	opts.withDefaults()
	return &Pipeline{
		searcher:   searcher,
		scraper:    scraper,
		persister:  persister,
		analyzer:   analyzer,
		visualizer: visualizer,
		renderer:   renderer,
		opts:       opts,
	}
}

// Run executes the full pipeline for query. It never returns an error and
// never panics: a failure that escapes phase logic is caught once here, the
// status becomes StatusFailed, and the partial state is returned with an
// empty visualization and no report. Elapsed time is measured on every path.
func (p *Pipeline) Run(ctx context.Context, query string, runOpts RunOptions) (result *PipelineResult) {
	start := time.Now()
	log.Printf("component=pipeline action=start query=%q", query)

	state := NewPipelineState(query)

	// Phase-fatal failures surface here exactly once. Phases tolerate
	// individual collaborator failures themselves; anything that still
	// escapes marks the run failed but keeps the result structurally valid.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("component=pipeline action=failed query=%q err=%v", query, r)
			state.UpdateStatus(StatusFailed)
			state.Error = fmt.Sprintf("pipeline run failed: %v", r)
			result = &PipelineResult{
				State:          state,
				Visualization:  VisualizationData{},
				Report:         nil,
				ProcessingTime: time.Since(start),
			}
		}
	}()

	state.UpdateStatus(StatusSearching)
	p.searchPhase(ctx, state, runOpts)

	state.UpdateStatus(StatusScraping)
	p.scrapePhase(ctx, state)

	state.UpdateStatus(StatusStoring)
	p.storagePhase(ctx, state)

	state.UpdateStatus(StatusAnalyzing)
	p.analysisPhase(ctx, state)

	state.UpdateStatus(StatusVisualizing)
	viz := p.visualizationPhase(ctx, state)

	state.UpdateStatus(StatusGeneratingReport)
	report := p.reportPhase(ctx, state, viz, runOpts.JobID)

	state.UpdateStatus(StatusCompleted)
	elapsed := time.Since(start)
	log.Printf("component=pipeline action=completed query=%q duration=%s", query, elapsed.Round(time.Millisecond))

	return &PipelineResult{
		State:          state,
		Visualization:  viz,
		Report:         report,
		ProcessingTime: elapsed,
	}
}

// searchPhase runs the primary web search, then the optional news, image,
// and video searches concurrently. A failed vertical contributes its empty
// default; the phase itself only errors when no verticals are enabled at all,
// which cannot happen here since web search is unconditional.
func (p *Pipeline) searchPhase(ctx context.Context, state *PipelineState, runOpts RunOptions) {
	n := p.opts.MaxSearchResults
	if runOpts.MaxResults > 0 {
		n = runOpts.MaxResults
	}

	web, err := p.searcher.SearchWeb(ctx, state.Query, n)
	if err != nil {
		log.Printf("component=pipeline phase=search vertical=web err=%v", err)
		web = nil
	}
	state.SearchResults = web

	var ops []Op
	var news []SearchResult
	if runOpts.IncludeNews {
		ops = append(ops, Op{Name: "search news", Run: func(ctx context.Context) error {
			r, err := p.searcher.SearchNews(ctx, state.Query, n)
			if err != nil {
				return err
			}
			news = r
			return nil
		}})
	}
	if runOpts.IncludeImages {
		ops = append(ops, Op{Name: "search images", Run: func(ctx context.Context) error {
			r, err := p.searcher.SearchImages(ctx, state.Query, n)
			if err != nil {
				return err
			}
			state.Images = r
			return nil
		}})
	}
	if runOpts.IncludeVideos {
		ops = append(ops, Op{Name: "search videos", Run: func(ctx context.Context) error {
			r, err := p.searcher.SearchVideos(ctx, state.Query, n)
			if err != nil {
				return err
			}
			state.Videos = r
			return nil
		}})
	}

	if len(ops) > 0 {
		errs, err := Settle(ctx, ops...)
		if err == nil {
			for _, e := range errs {
				if e != nil {
					log.Printf("component=pipeline phase=search err=%v", e)
				}
			}
		}
		state.SearchResults = append(state.SearchResults, news...)
	}

	log.Printf("component=pipeline phase=search results=%d images=%d videos=%d",
		len(state.SearchResults), len(state.Images), len(state.Videos))
}

// scrapePhase fans out over the search result links under the concurrency
// ceiling. Every failed unit becomes a ContentError document so the output
// keeps one entry per input URL, in input order.
func (p *Pipeline) scrapePhase(ctx context.Context, state *PipelineState) {
	var urls []string
	for _, r := range state.SearchResults {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	if len(urls) == 0 {
		log.Printf("component=pipeline phase=scrape action=skip reason=no_urls")
		return
	}
	if max := p.opts.MaxSearchResults * 2; len(urls) > max {
		urls = urls[:max]
	}

	units := make([]func(context.Context) (ScrapedContent, error), len(urls))
	for i, u := range urls {
		u := u
		units[i] = func(ctx context.Context) (ScrapedContent, error) {
			return p.scraper.Scrape(ctx, u)
		}
	}

	outcomes := FanOut(ctx, p.opts.ScrapeConcurrency, units)

	scraped := make([]ScrapedContent, len(outcomes))
	successful := 0
	for i, out := range outcomes {
		if out.Failed() {
			log.Printf("component=pipeline phase=scrape url=%s err=%v", urls[i], out.Err)
			scraped[i] = ScrapedContent{
				Type:         ContentError,
				URL:          urls[i],
				ErrorMessage: out.Err.Error(),
				ScrapedAt:    time.Now(),
			}
			continue
		}
		scraped[i] = out.Value
		if !out.Value.Failed() {
			successful++
		}
	}
	state.ScrapedContent = scraped
	log.Printf("component=pipeline phase=scrape successful=%d total=%d", successful, len(scraped))
}

// storagePhase persists the scraped corpus. Failures are logged only.
func (p *Pipeline) storagePhase(ctx context.Context, state *PipelineState) {
	if len(state.ScrapedContent) == 0 {
		return
	}
	if err := p.persister.AddDocuments(ctx, state.Query, state.ScrapedContent); err != nil {
		log.Printf("component=pipeline phase=store err=%v", err)
		return
	}
	log.Printf("component=pipeline phase=store action=documents_persisted count=%d", len(state.ScrapedContent))
}

// analysisPhase scores result credibility and runs the full analysis. With no
// scraped content, the run still completes with an EmptyAnalysis.
func (p *Pipeline) analysisPhase(ctx context.Context, state *PipelineState) {
	state.SearchResults = p.analyzer.ScoreCredibility(ctx, state.SearchResults)

	if len(state.ScrapedContent) == 0 {
		log.Printf("component=pipeline phase=analyze action=skip reason=no_content")
		state.Analysis = EmptyAnalysis{Query: state.Query, Reason: "no scraped content available for analysis"}
		return
	}

	analysis, err := p.analyzer.Analyze(ctx, state.Query, state.ScrapedContent)
	if err != nil {
		log.Printf("component=pipeline phase=analyze err=%v", err)
		state.Analysis = EmptyAnalysis{Query: state.Query, Reason: err.Error()}
		return
	}
	state.Analysis = analysis
	log.Printf("component=pipeline phase=analyze action=completed")
}

// visualizationPhase projects the analysis into chart data; the zero value is
// the valid fallback on any failure or when there is nothing to visualize.
func (p *Pipeline) visualizationPhase(ctx context.Context, state *PipelineState) VisualizationData {
	switch a := state.Analysis.(type) {
	case SuccessAnalysis:
		viz, err := p.visualizer.Visualize(ctx, a)
		if err != nil {
			log.Printf("component=pipeline phase=visualize err=%v", err)
			return VisualizationData{}
		}
		return viz
	case EmptyAnalysis:
		log.Printf("component=pipeline phase=visualize action=skip reason=%q", a.Reason)
		return VisualizationData{}
	default:
		return VisualizationData{}
	}
}

// reportPhase renders the report and, when a job id is present, writes it to
// the reports directory. A render failure yields a nil report, not a failed run.
func (p *Pipeline) reportPhase(ctx context.Context, state *PipelineState, viz VisualizationData, jobID string) []byte {
	report, err := p.renderer.Render(ctx, state, viz, time.Since(state.CreatedAt))
	if err != nil {
		log.Printf("component=pipeline phase=report err=%v", err)
		return nil
	}
	if jobID != "" && len(report) > 0 {
		if err := os.MkdirAll(p.opts.ReportsDir, 0o755); err != nil {
			log.Printf("component=pipeline phase=report action=mkdir_failed err=%v", err)
			return report
		}
		path := filepath.Join(p.opts.ReportsDir, jobID+".html")
		if err := os.WriteFile(path, report, 0o644); err != nil {
			log.Printf("component=pipeline phase=report action=save_failed path=%s err=%v", path, err)
		} else {
			log.Printf("component=pipeline phase=report action=saved path=%s", path)
		}
	}
	return report
}
