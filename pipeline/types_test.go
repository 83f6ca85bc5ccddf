// ABOUTME: Tests for the run data model: status progression rules, the analysis
// ABOUTME: union's JSON envelope, and state/result serialization.
package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUpdateStatusForwardOnly(t *testing.T) {
	s := NewPipelineState("quantum computing")
	if s.Status != StatusInitialized {
		t.Fatalf("initial status = %s", s.Status)
	}

	s.UpdateStatus(StatusSearching)
	s.UpdateStatus(StatusScraping)
	if s.Status != StatusScraping {
		t.Errorf("status = %s, want %s", s.Status, StatusScraping)
	}

	// Backward transition is ignored.
	s.UpdateStatus(StatusSearching)
	if s.Status != StatusScraping {
		t.Errorf("status = %s after backward transition, want %s", s.Status, StatusScraping)
	}

	// Skipping ahead is allowed; the order only forbids going back.
	s.UpdateStatus(StatusCompleted)
	if s.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", s.Status, StatusCompleted)
	}
}

func TestUpdateStatusFailedFromAnywhere(t *testing.T) {
	for _, from := range []Status{StatusInitialized, StatusAnalyzing, StatusCompleted} {
		s := NewPipelineState("q")
		s.Status = from
		s.UpdateStatus(StatusFailed)
		if s.Status != StatusFailed {
			t.Errorf("from %s: status = %s, want failed", from, s.Status)
		}
	}
}

func TestUpdateStatusFailedIsTerminal(t *testing.T) {
	s := NewPipelineState("q")
	s.UpdateStatus(StatusFailed)
	s.UpdateStatus(StatusCompleted)
	if s.Status != StatusFailed {
		t.Errorf("status = %s, failed must be terminal", s.Status)
	}
}

func TestAnalysisEnvelopeRoundTrip(t *testing.T) {
	success := SuccessAnalysis{
		Query:   "fusion energy",
		Summary: "Progress continues.",
		Entities: []Entity{
			{Text: "ITER", Label: "ORG", Confidence: 0.9},
		},
		Sentiment:  Sentiment{Classification: "positive", Polarity: 0.4, Subjectivity: 0.5, Confidence: 0.8},
		AnalyzedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}

	data, err := MarshalAnalysis(success)
	if err != nil {
		t.Fatalf("MarshalAnalysis: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"success"`) {
		t.Errorf("envelope = %s, want a success kind tag", data)
	}

	decoded, err := UnmarshalAnalysis(data)
	if err != nil {
		t.Fatalf("UnmarshalAnalysis: %v", err)
	}
	got, ok := decoded.(SuccessAnalysis)
	if !ok {
		t.Fatalf("decoded %T, want SuccessAnalysis", decoded)
	}
	if got.Query != success.Query || got.Summary != success.Summary || len(got.Entities) != 1 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestAnalysisEnvelopeEmpty(t *testing.T) {
	data, err := MarshalAnalysis(EmptyAnalysis{Query: "q", Reason: "no content"})
	if err != nil {
		t.Fatalf("MarshalAnalysis: %v", err)
	}

	decoded, err := UnmarshalAnalysis(data)
	if err != nil {
		t.Fatalf("UnmarshalAnalysis: %v", err)
	}
	got, ok := decoded.(EmptyAnalysis)
	if !ok {
		t.Fatalf("decoded %T, want EmptyAnalysis", decoded)
	}
	if got.Reason != "no content" {
		t.Errorf("reason = %q", got.Reason)
	}
}

func TestAnalysisEnvelopeNilAndUnknown(t *testing.T) {
	data, err := MarshalAnalysis(nil)
	if err != nil {
		t.Fatalf("MarshalAnalysis(nil): %v", err)
	}
	decoded, err := UnmarshalAnalysis(data)
	if err != nil || decoded != nil {
		t.Errorf("round trip of nil = (%v, %v), want (nil, nil)", decoded, err)
	}

	if _, err := UnmarshalAnalysis([]byte(`{"kind":"mystery","payload":{}}`)); err == nil {
		t.Error("unknown kind should fail to decode")
	}
}

func TestPipelineStateJSONRoundTrip(t *testing.T) {
	s := NewPipelineState("solar storms")
	s.SearchResults = []SearchResult{{Title: "t", Snippet: "s", Link: "https://example.com", Source: "example.com"}}
	s.Analysis = EmptyAnalysis{Query: "solar storms", Reason: "thin corpus"}
	s.UpdateStatus(StatusCompleted)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got PipelineState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Query != s.Query || got.Status != StatusCompleted {
		t.Errorf("got query=%q status=%s", got.Query, got.Status)
	}
	if _, ok := got.Analysis.(EmptyAnalysis); !ok {
		t.Errorf("analysis decoded as %T, want EmptyAnalysis", got.Analysis)
	}
}

func TestPipelineResultJSONOmitsReport(t *testing.T) {
	result := &PipelineResult{
		State:          NewPipelineState("q"),
		Report:         []byte("<html>big</html>"),
		ProcessingTime: 1500 * time.Millisecond,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "big") {
		t.Error("report body must not be embedded in the result JSON")
	}
	if !strings.Contains(string(data), `"processing_time":1.5`) {
		t.Errorf("result JSON = %s, want processing_time in seconds", data)
	}
}
