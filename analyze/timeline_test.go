// ABOUTME: Tests for regex timeline extraction: date pattern coverage,
// ABOUTME: context windows, deduplication, and the event cap.
package analyze

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lantern-research/lantern/pipeline"
)

func textDoc(url, text string) pipeline.ScrapedContent {
	return pipeline.ScrapedContent{
		Type:      pipeline.ContentText,
		URL:       url,
		RawText:   text,
		ScrapedAt: time.Now(),
	}
}

func TestExtractTimelineDateShapes(t *testing.T) {
	docs := []pipeline.ScrapedContent{
		textDoc("https://a.example",
			"The mission launched on January 5, 2024 after delays. "+
				"A review on 12 March 2025 cleared the next phase. "+
				"Data release is scheduled for 2026-07-01 at the earliest."),
	}

	events := extractTimeline(docs)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}

	wantDates := []string{"January 5, 2024", "12 March 2025", "2026-07-01"}
	for i, want := range wantDates {
		if events[i].Date != want {
			t.Errorf("events[%d].Date = %q, want %q", i, events[i].Date, want)
		}
		if events[i].Source != "https://a.example" {
			t.Errorf("events[%d].Source = %q", i, events[i].Source)
		}
	}
	if !strings.Contains(events[0].Event, "mission launched") {
		t.Errorf("events[0].Event = %q, want surrounding context", events[0].Event)
	}
}

func TestExtractTimelineDeduplicatesDates(t *testing.T) {
	docs := []pipeline.ScrapedContent{
		textDoc("https://a.example", "Announced on January 5, 2024. Confirmed again on January 5, 2024."),
	}
	events := extractTimeline(docs)
	if len(events) != 1 {
		t.Errorf("got %d events, want repeated date collapsed to 1", len(events))
	}
}

func TestExtractTimelineCapsEvents(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 15; i++ {
		fmt.Fprintf(&b, "Milestone reached on 2024-01-%02d with more work ahead. ", i)
	}
	events := extractTimeline([]pipeline.ScrapedContent{textDoc("https://a.example", b.String())})
	if len(events) != maxTimelineEvents {
		t.Errorf("got %d events, want cap of %d", len(events), maxTimelineEvents)
	}
}

func TestExtractTimelineSkipsFailedDocs(t *testing.T) {
	docs := []pipeline.ScrapedContent{
		{Type: pipeline.ContentError, URL: "https://down.example", ErrorMessage: "timeout"},
	}
	if events := extractTimeline(docs); len(events) != 0 {
		t.Errorf("got %d events from a failed doc, want 0", len(events))
	}
}
