// ABOUTME: Tests for corpus assembly and co-occurrence relationship extraction,
// ABOUTME: the analyzer logic that runs without a model call.
package analyze

import (
	"strings"
	"testing"

	"github.com/lantern-research/lantern/pipeline"
)

func TestCombineTextsSkipsShortAndFailedDocs(t *testing.T) {
	long := strings.Repeat("substantial research text ", 10)
	docs := []pipeline.ScrapedContent{
		textDoc("https://a.example", long),
		textDoc("https://b.example", "too short"),
		{Type: pipeline.ContentError, URL: "https://c.example", ErrorMessage: "refused"},
		textDoc("https://d.example", long),
	}

	got := combineTexts(docs)
	if !strings.Contains(got, "substantial research") {
		t.Error("usable docs should be included")
	}
	if strings.Contains(got, "too short") {
		t.Error("docs under the length floor should be dropped")
	}
	if n := strings.Count(got, "\n\n"); n != 1 {
		t.Errorf("separators = %d, want docs joined once", n)
	}
}

func TestCombineTextsCapsLength(t *testing.T) {
	huge := strings.Repeat("x", maxCorpusChars)
	docs := []pipeline.ScrapedContent{
		textDoc("https://a.example", huge),
		textDoc("https://b.example", huge),
	}
	if got := combineTexts(docs); len(got) != maxCorpusChars {
		t.Errorf("len = %d, want cap %d", len(got), maxCorpusChars)
	}
}

func TestRelationshipsFrom(t *testing.T) {
	corpus := "OpenAI and DeepMind both published results. Nature covered the work."
	entities := []pipeline.Entity{
		{Text: "OpenAI", Label: "ORG"},
		{Text: "DeepMind", Label: "ORG"},
		{Text: "Absent Corp", Label: "ORG"},
	}

	got := relationshipsFrom(entities, corpus)
	if len(got) != 1 {
		t.Fatalf("got %d relationships, want 1: %+v", len(got), got)
	}
	if got[0].From != "OpenAI" || got[0].To != "DeepMind" || got[0].Type != "co_occurrence" {
		t.Errorf("got[0] = %+v", got[0])
	}
}

func TestRelationshipsFromCapped(t *testing.T) {
	var entities []pipeline.Entity
	var words []string
	for i := 0; i < 12; i++ {
		name := "entity" + string(rune('a'+i))
		entities = append(entities, pipeline.Entity{Text: name, Label: "ORG"})
		words = append(words, name)
	}
	corpus := strings.Join(words, " ")

	got := relationshipsFrom(entities, corpus)
	if len(got) != maxRelationships {
		t.Errorf("got %d relationships, want cap of %d", len(got), maxRelationships)
	}
}
