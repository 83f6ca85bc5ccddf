// ABOUTME: HTML report rendering: converts the markdown summary with goldmark
// ABOUTME: and assembles the full report page from an embedded template.
package report

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"

	"github.com/lantern-research/lantern/pipeline"
)

//go:embed report.html.tmpl
var reportTemplate string

// Renderer produces the final HTML research report.
type Renderer struct {
	tmpl *template.Template
	md   goldmark.Markdown
}

// NewRenderer parses the embedded report template.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"score": func(p *float64) string {
			if p == nil {
				return ""
			}
			return fmt.Sprintf("%.2f", *p)
		},
	}
	tmpl, err := template.New("report").Funcs(funcs).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &Renderer{tmpl: tmpl, md: goldmark.New()}, nil
}

// reportData is the template context for one rendered report.
type reportData struct {
	Query          string
	GeneratedAt    string
	ProcessingTime string
	Status         pipeline.Status
	SummaryHTML    template.HTML
	EmptyReason    string
	Results        []pipeline.SearchResult
	Images         []pipeline.ImageResult
	Videos         []pipeline.VideoResult
	Sources        []pipeline.ScrapedContent
	Entities       []pipeline.Entity
	Topics         []pipeline.Topic
	Sentiment      *pipeline.Sentiment
	Timeline       []pipeline.TimelineEvent
	RelatedQueries []pipeline.RelatedQuery
	Viz            pipeline.VisualizationData
}

// Render produces the report HTML for a finished (or failed) run.
func (r *Renderer) Render(ctx context.Context, state *pipeline.PipelineState, viz pipeline.VisualizationData, elapsed time.Duration) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("report: state must not be nil")
	}

	data := reportData{
		Query:          state.Query,
		GeneratedAt:    time.Now().Format("2006-01-02 15:04 MST"),
		ProcessingTime: elapsed.Round(time.Millisecond).String(),
		Status:         state.Status,
		Results:        state.SearchResults,
		Images:         state.Images,
		Videos:         state.Videos,
		Sources:        state.ScrapedContent,
		Viz:            viz,
	}

	switch a := state.Analysis.(type) {
	case pipeline.SuccessAnalysis:
		summary, err := r.renderMarkdown(a.Summary)
		if err != nil {
			return nil, err
		}
		data.SummaryHTML = summary
		data.Entities = a.Entities
		data.Topics = a.Topics
		data.Sentiment = &a.Sentiment
		data.Timeline = a.Timeline
		data.RelatedQueries = a.RelatedQueries
	case pipeline.EmptyAnalysis:
		data.EmptyReason = a.Reason
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("report: execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("report: convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}
