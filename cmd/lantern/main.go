// ABOUTME: CLI entrypoint for the lantern research pipeline with one-shot and server modes.
// ABOUTME: Wires together search, scraping, analysis, storage, caching, and the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lantern-research/lantern/analyze"
	"github.com/lantern-research/lantern/cache"
	"github.com/lantern-research/lantern/config"
	"github.com/lantern-research/lantern/docstore"
	"github.com/lantern-research/lantern/jobs"
	"github.com/lantern-research/lantern/pipeline"
	"github.com/lantern-research/lantern/report"
	"github.com/lantern-research/lantern/scrape"
	"github.com/lantern-research/lantern/search"
	"github.com/lantern-research/lantern/web"
)

var version = "dev"

// cliConfig holds CLI configuration parsed from flags and positional arguments.
type cliConfig struct {
	serverMode  bool
	bind        string
	configFile  string
	reportsDir  string
	maxResults  int
	noNews      bool
	noImages    bool
	noVideos    bool
	showVersion bool
	query       string
}

func main() {
	if err := config.ApplyDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("lantern %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() cliConfig {
	var cfg cliConfig

	fs := flag.NewFlagSet("lantern", flag.ContinueOnError)
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.StringVar(&cfg.bind, "bind", "", "Server bind address (default: 127.0.0.1:8090)")
	fs.StringVar(&cfg.configFile, "config", "lantern.yaml", "Path to optional YAML config file")
	fs.StringVar(&cfg.reportsDir, "reports-dir", "", "Directory for generated HTML reports")
	fs.IntVar(&cfg.maxResults, "max-results", 0, "Search results per vertical")
	fs.BoolVar(&cfg.noNews, "no-news", false, "Skip the news search vertical")
	fs.BoolVar(&cfg.noImages, "no-images", false, "Skip the image search vertical")
	fs.BoolVar(&cfg.noVideos, "no-videos", false, "Skip the video search vertical")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() { printHelp(version) }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.query = strings.Join(fs.Args(), " ")
	}

	return cfg
}

func printHelp(version string) {
	fmt.Fprintf(os.Stderr, `lantern %s - research pipeline

Usage:
  lantern [flags] "research query"    run one research query and save the report
  lantern -server [flags]             start the job API server

Flags:
  -server            start HTTP server mode
  -bind ADDR         server bind address (default 127.0.0.1:8090)
  -config PATH       optional YAML config file (default lantern.yaml)
  -reports-dir DIR   directory for generated HTML reports
  -max-results N     search results per vertical
  -no-news           skip the news search vertical
  -no-images         skip the image search vertical
  -no-videos         skip the video search vertical
  -version           print version and exit

Environment:
  LANTERN_GOOGLE_API_KEY, LANTERN_GOOGLE_CSE_ID   Google Custom Search credentials
  LANTERN_OPENAI_API_KEY                          OpenAI-compatible API key
  LANTERN_REDIS_ADDR                              optional Redis address for shared caching
`, version)
}

// run dispatches to server or one-shot mode. Returns an exit code.
func run(cli cliConfig) int {
	if !cli.serverMode && cli.query == "" {
		printHelp(version)
		return 0
	}

	cfg, err := config.Load(cli.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if cli.bind != "" {
		cfg.Bind = cli.bind
	}
	if cli.reportsDir != "" {
		cfg.ReportsDir = cli.reportsDir
	}
	if cli.maxResults > 0 {
		cfg.MaxSearchResults = cli.maxResults
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer store.Close()
	go store.RunSweeper(ctx, time.Hour)

	docs, err := docstore.Open(cfg.DocstorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer docs.Close()

	searcher, err := search.NewClient(ctx, search.Options{
		APIKey: cfg.GoogleAPIKey,
		CSEID:  cfg.GoogleCSEID,
		Cache:  store,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	analyzer, err := analyze.NewAnalyzer(analyze.Options{
		APIKey:  cfg.OpenAIKey,
		Model:   cfg.Model,
		BaseURL: cfg.OpenAIBase,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	pipe := pipeline.New(
		searcher,
		scrape.NewScraper(scrape.Options{Cache: store}),
		docs,
		analyzer,
		report.NewBuilder(),
		renderer,
		pipeline.Options{
			MaxSearchResults:  cfg.MaxSearchResults,
			ScrapeConcurrency: cfg.ScrapeConcurrency,
			ReportsDir:        cfg.ReportsDir,
		},
	)

	if cli.serverMode {
		return runServer(ctx, cfg, store, docs, pipe)
	}
	return runOnce(ctx, cli, cfg, pipe)
}

// runOnce executes one pipeline run and saves the report locally.
func runOnce(ctx context.Context, cli cliConfig, cfg *config.Config, pipe *pipeline.Pipeline) int {
	opts := pipeline.DefaultRunOptions()
	opts.IncludeNews = !cli.noNews
	opts.IncludeImages = !cli.noImages
	opts.IncludeVideos = !cli.noVideos
	opts.JobID = fmt.Sprintf("cli-%d", time.Now().Unix())

	result := pipe.Run(ctx, cli.query, opts)

	fmt.Printf("status: %s\n", result.State.Status)
	fmt.Printf("results: %d search, %d scraped\n",
		len(result.State.SearchResults), len(result.State.ScrapedContent))
	fmt.Printf("elapsed: %s\n", result.ProcessingTime.Round(time.Millisecond))
	if len(result.Report) > 0 {
		fmt.Printf("report: %s\n", filepath.Join(cfg.ReportsDir, opts.JobID+".html"))
	}

	if result.State.Status == pipeline.StatusFailed {
		return 1
	}
	return 0
}

// runServer starts the job API and blocks until the context is cancelled or
// the listener fails.
func runServer(ctx context.Context, cfg *config.Config, store *cache.Store, docs *docstore.Store, pipe *pipeline.Pipeline) int {
	srv, err := web.NewServer(web.ServerConfig{
		Addr:       cfg.Bind,
		Registry:   jobs.NewRegistry(store),
		Runner:     pipe,
		ReportsDir: cfg.ReportsDir,
		Documents:  docs,
		Cache:      store,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down")
		return 0
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
}
