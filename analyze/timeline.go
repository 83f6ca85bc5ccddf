// ABOUTME: Regex-based timeline extraction: finds dated mentions in scraped
// ABOUTME: text and keeps a short window of surrounding context per event.
package analyze

import (
	"regexp"
	"strings"

	"github.com/lantern-research/lantern/pipeline"
)

const (
	maxTimelineEvents = 10
	contextWindow     = 100
)

// datePatterns match the common written-date shapes: "January 5, 2024",
// "5 January 2024", and "2024-01-05" / "01/05/2024".
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(January|February|March|April|May|June|July|August|September|October|November|December),?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{4}\b`),
}

// extractTimeline scans each document for dated mentions and returns up to
// maxTimelineEvents events, each with the date, nearby context, and source URL.
// Dates already seen are skipped so repeated mentions don't crowd the timeline.
func extractTimeline(docs []pipeline.ScrapedContent) []pipeline.TimelineEvent {
	var events []pipeline.TimelineEvent
	seen := make(map[string]bool)

	for _, doc := range docs {
		if doc.Failed() || doc.RawText == "" {
			continue
		}
		for _, pat := range datePatterns {
			for _, loc := range pat.FindAllStringIndex(doc.RawText, -1) {
				if len(events) >= maxTimelineEvents {
					return events
				}
				date := doc.RawText[loc[0]:loc[1]]
				if seen[date] {
					continue
				}
				seen[date] = true
				events = append(events, pipeline.TimelineEvent{
					Date:       date,
					Event:      contextAround(doc.RawText, loc[0], loc[1]),
					Source:     doc.URL,
					Confidence: 0.6,
				})
			}
		}
	}
	return events
}

// contextAround returns up to contextWindow characters on each side of a
// match, trimmed to whole words where possible.
func contextAround(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}
