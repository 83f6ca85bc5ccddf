// ABOUTME: Projects an analysis into chart-ready visualization data: entity
// ABOUTME: graph, timeline arrays, weighted word list, and topic treemap.
package report

import (
	"context"
	"fmt"

	"github.com/lantern-research/lantern/pipeline"
)

const maxGraphNodes = 30

// Builder produces visualization data from analysis results. It is stateless;
// the zero value is ready to use.
type Builder struct{}

// NewBuilder returns a visualization builder.
func NewBuilder() *Builder { return &Builder{} }

// Visualize projects the analysis into chart-ready arrays. An empty analysis
// yields the zero value, which renders as a report with no charts.
func (b *Builder) Visualize(ctx context.Context, analysis pipeline.Analysis) (pipeline.VisualizationData, error) {
	switch a := analysis.(type) {
	case pipeline.SuccessAnalysis:
		return buildFromSuccess(a), nil
	case pipeline.EmptyAnalysis, nil:
		return pipeline.VisualizationData{}, nil
	default:
		return pipeline.VisualizationData{}, fmt.Errorf("report: unknown analysis variant %T", analysis)
	}
}

func buildFromSuccess(a pipeline.SuccessAnalysis) pipeline.VisualizationData {
	var viz pipeline.VisualizationData

	seen := make(map[string]bool)
	for _, e := range a.Entities {
		if len(viz.Nodes) >= maxGraphNodes {
			break
		}
		if seen[e.Text] {
			continue
		}
		seen[e.Text] = true
		viz.Nodes = append(viz.Nodes, pipeline.GraphNode{
			ID:     e.Text,
			Label:  e.Text,
			Type:   e.Label,
			Weight: e.Confidence,
		})
	}
	for _, r := range a.Relationships {
		// Edges only between nodes that made the cut.
		if !seen[r.From] || !seen[r.To] {
			continue
		}
		viz.Edges = append(viz.Edges, pipeline.GraphEdge{From: r.From, To: r.To, Label: r.Type})
	}

	for _, ev := range a.Timeline {
		viz.TimelineDates = append(viz.TimelineDates, ev.Date)
		viz.TimelineEvents = append(viz.TimelineEvents, ev.Event)
	}

	viz.TopWords = topWords(a.Topics)

	for _, t := range a.Topics {
		viz.TreemapLabels = append(viz.TreemapLabels, t.Label)
		viz.TreemapParents = append(viz.TreemapParents, "")
		viz.TreemapValues = append(viz.TreemapValues, t.Weight)
	}

	return viz
}

// topWords flattens topic words into a weighted list, letting a word's first
// (highest-weighted) topic win when it appears in several.
func topWords(topics []pipeline.Topic) []pipeline.WordCount {
	seen := make(map[string]bool)
	var out []pipeline.WordCount
	for _, t := range topics {
		for i, w := range t.Words {
			if seen[w] {
				continue
			}
			seen[w] = true
			// Words earlier in a topic's list weigh more.
			weight := t.Weight * (1.0 - 0.1*float64(i))
			if weight < 0.05 {
				weight = 0.05
			}
			out = append(out, pipeline.WordCount{Word: w, Weight: weight})
		}
	}
	return out
}
