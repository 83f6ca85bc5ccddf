// ABOUTME: Tests for the response parsers: entity lines, sentiment triples,
// ABOUTME: weighted topics, suggested queries, and credibility scores.
package analyze

import (
	"testing"
)

func TestParseEntities(t *testing.T) {
	raw := `Marie Curie | PERSON
CERN | ORG

malformed line without pipe
 | EMPTY-TEXT
Geneva | GPE`

	got := parseEntities(raw)
	if len(got) != 3 {
		t.Fatalf("got %d entities, want 3: %+v", len(got), got)
	}
	if got[0].Text != "Marie Curie" || got[0].Label != "PERSON" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[2].Text != "Geneva" || got[2].Label != "GPE" {
		t.Errorf("got[2] = %+v", got[2])
	}
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		classification string
		polarity       float64
	}{
		{"well formed", "positive | 0.6 | 0.9", "positive", 0.6},
		{"extra whitespace", "  negative |  -0.4 | 0.7  ", "negative", -0.4},
		{"clamped polarity", "positive | 3.5 | 0.9", "positive", 1.0},
		{"unknown label", "ecstatic | 0.9 | 0.9", "neutral", 0},
		{"garbage", "no idea", "neutral", 0},
		{"multiline keeps first", "mixed | 0.1 | 0.5\nignored", "mixed", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSentiment(tt.raw)
			if got.Classification != tt.classification {
				t.Errorf("classification = %q, want %q", got.Classification, tt.classification)
			}
			if got.Polarity != tt.polarity {
				t.Errorf("polarity = %v, want %v", got.Polarity, tt.polarity)
			}
		})
	}
}

func TestParseTopics(t *testing.T) {
	raw := `Climate Policy | emissions, carbon, treaty
Renewables | solar, wind
not a topic line
Grid Storage | batteries`

	got := parseTopics(raw, 5)
	if len(got) != 3 {
		t.Fatalf("got %d topics, want 3", len(got))
	}
	if got[0].Label != "Climate Policy" || len(got[0].Words) != 3 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[0].Weight != 1.0 {
		t.Errorf("got[0].Weight = %v, want 1.0", got[0].Weight)
	}
	if got[1].Weight != 0.85 {
		t.Errorf("got[1].Weight = %v, want 0.85", got[1].Weight)
	}
	if got[2].ID != 2 {
		t.Errorf("got[2].ID = %d, want positional id", got[2].ID)
	}
}

func TestParseTopicsHonorsMax(t *testing.T) {
	raw := "A | a\nB | b\nC | c"
	if got := parseTopics(raw, 2); len(got) != 2 {
		t.Errorf("got %d topics, want max 2", len(got))
	}
}

func TestParseQueries(t *testing.T) {
	raw := `1. history of fusion funding
- tokamak vs stellarator
"private fusion startups"

plain query line`

	got := parseQueries(raw, 10)
	want := []string{
		"history of fusion funding",
		"tokamak vs stellarator",
		"private fusion startups",
		"plain query line",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d queries %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"0.85", 0.85},
		{"0.85.", 0.85},
		{"1.7", 1.0},
		{"-0.3", 0.0},
		{"0.6 because the source is reputable", 0.6},
		{"pretty credible", 0.5},
		{"", 0.5},
	}
	for _, tt := range tests {
		if got := parseScore(tt.raw); got != tt.want {
			t.Errorf("parseScore(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
