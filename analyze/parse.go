// ABOUTME: Parsers for the line-oriented formats the analysis prompts ask the
// ABOUTME: model to produce: entities, sentiment, topics, queries, and scores.
package analyze

import (
	"strconv"
	"strings"

	"github.com/lantern-research/lantern/pipeline"
)

// parseEntities reads "Entity Text | TYPE" lines. Lines that don't split into
// exactly two parts are skipped rather than failing the whole response.
func parseEntities(raw string) []pipeline.Entity {
	var out []pipeline.Entity
	for _, line := range strings.Split(raw, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 2 {
			continue
		}
		text := strings.TrimSpace(parts[0])
		label := strings.ToUpper(strings.TrimSpace(parts[1]))
		if text == "" || label == "" {
			continue
		}
		out = append(out, pipeline.Entity{Text: text, Label: label, Confidence: 0.8})
	}
	return out
}

// parseSentiment reads a single "SENTIMENT | POLARITY | CONFIDENCE" line,
// e.g. "positive | 0.6 | 0.8". A malformed response yields a neutral default.
func parseSentiment(raw string) pipeline.Sentiment {
	neutral := pipeline.Sentiment{Classification: "neutral", Polarity: 0, Subjectivity: 0.5, Confidence: 0.5}

	line := strings.TrimSpace(raw)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	parts := strings.Split(line, "|")
	if len(parts) != 3 {
		return neutral
	}

	classification := strings.ToLower(strings.TrimSpace(parts[0]))
	switch classification {
	case "positive", "negative", "neutral", "mixed":
	default:
		return neutral
	}

	polarity, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return neutral
	}
	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return neutral
	}

	return pipeline.Sentiment{
		Classification: classification,
		Polarity:       clamp(polarity, -1, 1),
		Subjectivity:   0.5,
		Confidence:     clamp(confidence, 0, 1),
	}
}

// parseTopics reads "Topic Label | word1, word2, word3" lines. Topics are
// weighted by position so earlier topics rank higher.
func parseTopics(raw string, max int) []pipeline.Topic {
	var out []pipeline.Topic
	for _, line := range strings.Split(raw, "\n") {
		if max > 0 && len(out) >= max {
			break
		}
		parts := strings.Split(line, "|")
		if len(parts) != 2 {
			continue
		}
		label := strings.TrimSpace(parts[0])
		if label == "" {
			continue
		}
		var words []string
		for _, w := range strings.Split(parts[1], ",") {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
		weight := 1.0 - 0.15*float64(len(out))
		if weight < 0.1 {
			weight = 0.1
		}
		out = append(out, pipeline.Topic{ID: len(out), Label: label, Words: words, Weight: weight})
	}
	return out
}

// parseQueries reads one suggested query per line, dropping list markers the
// model sometimes adds despite instructions.
func parseQueries(raw string, max int) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if max > 0 && len(out) >= max {
			break
		}
		q := strings.TrimSpace(line)
		q = strings.TrimLeft(q, "-*0123456789. ")
		q = strings.Trim(q, `"`)
		if q == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}

// parseScore reads a bare float in [0, 1]. Anything unparseable falls back to
// the midpoint so one garbled response doesn't sink a result's ranking.
func parseScore(raw string) float64 {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0.5
	}
	v, err := strconv.ParseFloat(strings.Trim(fields[0], "."), 64)
	if err != nil {
		return 0.5
	}
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
