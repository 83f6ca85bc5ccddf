// ABOUTME: Tests for HTML report rendering: markdown conversion, section
// ABOUTME: presence, the empty-analysis fallback, and HTML escaping.
package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lantern-research/lantern/pipeline"
)

func TestRenderSuccessReport(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	cred := 0.8
	state := pipeline.NewPipelineState("asteroid mining")
	state.SearchResults = []pipeline.SearchResult{
		{Title: "Psyche mission", Snippet: "metal asteroid", Link: "https://a.example", Source: "a.example", Credibility: &cred},
	}
	a := successAnalysis()
	a.Summary = "## Findings\n\nMetal asteroids are **valuable**."
	a.Sentiment = pipeline.Sentiment{Classification: "positive", Polarity: 0.4, Subjectivity: 0.5, Confidence: 0.8}
	state.Analysis = a
	state.UpdateStatus(pipeline.StatusCompleted)

	html, err := r.Render(context.Background(), state, pipeline.VisualizationData{}, 3*time.Second)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(html)

	for _, want := range []string{
		"asteroid mining",
		"<h2>Findings</h2>",
		"<strong>valuable</strong>",
		"Psyche mission",
		"credibility 0.80",
		"2024-01-05",
		"positive",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderEmptyAnalysisReport(t *testing.T) {
	r, _ := NewRenderer()

	state := pipeline.NewPipelineState("q")
	state.Analysis = pipeline.EmptyAnalysis{Query: "q", Reason: "no scraped content"}

	html, err := r.Render(context.Background(), state, pipeline.VisualizationData{}, time.Second)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(html), "no scraped content") {
		t.Error("report should surface the empty-analysis reason")
	}
}

func TestRenderEscapesUntrustedText(t *testing.T) {
	r, _ := NewRenderer()

	state := pipeline.NewPipelineState("q")
	state.SearchResults = []pipeline.SearchResult{
		{Title: "<script>alert(1)</script>", Snippet: "s", Link: "https://a.example", Source: "a.example"},
	}

	html, err := r.Render(context.Background(), state, pipeline.VisualizationData{}, time.Second)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(html), "<script>alert(1)</script>") {
		t.Error("search result titles must be escaped")
	}
}

func TestRenderNilState(t *testing.T) {
	r, _ := NewRenderer()
	if _, err := r.Render(context.Background(), nil, pipeline.VisualizationData{}, 0); err == nil {
		t.Error("nil state should error")
	}
}
