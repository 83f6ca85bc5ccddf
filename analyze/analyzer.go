// ABOUTME: LLM-backed content analysis: summary, entities, sentiment, topics,
// ABOUTME: related queries, plus local timeline and relationship extraction.
package analyze

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lantern-research/lantern/pipeline"
)

const (
	// minDocChars is the floor below which a single document contributes
	// nothing useful to the combined corpus.
	minDocChars = 50
	// minCorpusChars is the floor below which analysis is skipped entirely.
	minCorpusChars = 100
	// maxCorpusChars caps the combined text handed to the model.
	maxCorpusChars = 50_000

	maxRelationships = 20
	maxRelated       = 5

	defaultModel     = "gpt-4o-mini"
	defaultMaxTopics = 5
)

// Options configures an Analyzer.
type Options struct {
	APIKey    string
	Model     string
	BaseURL   string // override for compatible providers and tests
	MaxTopics int
}

// Analyzer runs the analysis phase: it combines scraped text into one corpus
// and fans six sub-analyses out over it, each one degrading to a sensible
// default when its model call fails.
type Analyzer struct {
	client    openai.Client
	model     string
	maxTopics int
	now       func() time.Time
}

// NewAnalyzer builds an analyzer. APIKey is required.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("analyze: API key must not be empty")
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTopics <= 0 {
		opts.MaxTopics = defaultMaxTopics
	}
	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Analyzer{
		client:    openai.NewClient(clientOpts...),
		model:     opts.Model,
		maxTopics: opts.MaxTopics,
		now:       time.Now,
	}, nil
}

// Analyze turns scraped documents into a structured analysis. When the corpus
// is too thin to analyze it returns an EmptyAnalysis rather than an error; an
// error return means the analyzer itself could not run at all.
func (a *Analyzer) Analyze(ctx context.Context, query string, docs []pipeline.ScrapedContent) (pipeline.Analysis, error) {
	corpus := combineTexts(docs)
	if len(corpus) < minCorpusChars {
		log.Printf("component=analyze action=skip query=%q corpus_len=%d", query, len(corpus))
		return pipeline.EmptyAnalysis{Query: query, Reason: "insufficient text content to analyze"}, nil
	}

	result := pipeline.SuccessAnalysis{
		Query:      query,
		Sentiment:  pipeline.Sentiment{Classification: "neutral", Subjectivity: 0.5, Confidence: 0.5},
		AnalyzedAt: a.now(),
	}

	ops := []pipeline.Op{
		{Name: "summary", Run: func(ctx context.Context) error {
			summary, err := a.summarize(ctx, query, corpus)
			if err != nil {
				return err
			}
			result.Summary = summary
			return nil
		}},
		{Name: "entities", Run: func(ctx context.Context) error {
			entities, err := a.extractEntities(ctx, corpus)
			if err != nil {
				return err
			}
			result.Entities = entities
			return nil
		}},
		{Name: "sentiment", Run: func(ctx context.Context) error {
			sentiment, err := a.assessSentiment(ctx, corpus)
			if err != nil {
				return err
			}
			result.Sentiment = sentiment
			return nil
		}},
		{Name: "topics", Run: func(ctx context.Context) error {
			topics, err := a.extractTopics(ctx, corpus)
			if err != nil {
				return err
			}
			result.Topics = topics
			return nil
		}},
		{Name: "timeline", Run: func(ctx context.Context) error {
			result.Timeline = extractTimeline(docs)
			return nil
		}},
		{Name: "related", Run: func(ctx context.Context) error {
			related, err := a.suggestQueries(ctx, query, corpus)
			if err != nil {
				return err
			}
			result.RelatedQueries = related
			return nil
		}},
	}

	errs, err := pipeline.Settle(ctx, ops...)
	if err != nil {
		return pipeline.EmptyAnalysis{Query: query, Reason: err.Error()}, nil
	}
	for i, opErr := range errs {
		if opErr != nil {
			log.Printf("component=analyze op=%s action=degraded err=%v", ops[i].Name, opErr)
		}
	}

	result.Relationships = relationshipsFrom(result.Entities, corpus)

	if result.Summary == "" {
		result.Summary = "No summary could be generated for this query."
	}
	return result, nil
}

// ScoreCredibility attaches a 0-1 credibility score to each search result,
// assessed concurrently. A failed assessment scores the midpoint.
func (a *Analyzer) ScoreCredibility(ctx context.Context, results []pipeline.SearchResult) []pipeline.SearchResult {
	units := make([]func(context.Context) (float64, error), len(results))
	for i := range results {
		r := results[i]
		units[i] = func(ctx context.Context) (float64, error) {
			return a.scoreOne(ctx, r)
		}
	}

	scored := pipeline.FanOut(ctx, pipeline.DefaultFanOutLimit, units)
	out := make([]pipeline.SearchResult, len(results))
	for i, res := range scored {
		out[i] = results[i]
		score := 0.5
		if !res.Failed() {
			score = res.Value
		} else {
			log.Printf("component=analyze action=score_default link=%s err=%v", results[i].Link, res.Err)
		}
		out[i].Credibility = &score
	}
	return out
}

func (a *Analyzer) scoreOne(ctx context.Context, r pipeline.SearchResult) (float64, error) {
	prompt := fmt.Sprintf("Source: %s\nTitle: %s\nSnippet: %s", r.Source, r.Title, r.Snippet)
	raw, err := a.complete(ctx,
		"Rate the credibility of this search result from 0.0 to 1.0 based on the source reputation and content quality. Respond with only the number.",
		prompt)
	if err != nil {
		return 0, err
	}
	return parseScore(raw), nil
}

func (a *Analyzer) summarize(ctx context.Context, query, corpus string) (string, error) {
	return a.complete(ctx,
		fmt.Sprintf("Write a concise research summary (3-5 paragraphs, markdown) of the following material as it relates to %q. Stick to what the material supports.", query),
		corpus)
}

func (a *Analyzer) extractEntities(ctx context.Context, corpus string) ([]pipeline.Entity, error) {
	raw, err := a.complete(ctx,
		"Extract the notable named entities from the text. Respond with one entity per line in the exact format: Entity Text | TYPE. TYPE is one of PERSON, ORG, GPE, PRODUCT, EVENT, DATE, OTHER. No other output.",
		corpus)
	if err != nil {
		return nil, err
	}
	return parseEntities(raw), nil
}

func (a *Analyzer) assessSentiment(ctx context.Context, corpus string) (pipeline.Sentiment, error) {
	raw, err := a.complete(ctx,
		"Assess the overall sentiment of the text. Respond with exactly one line in the format: SENTIMENT | POLARITY | CONFIDENCE, where SENTIMENT is positive, negative, neutral, or mixed, POLARITY is -1.0 to 1.0, and CONFIDENCE is 0.0 to 1.0.",
		corpus)
	if err != nil {
		return pipeline.Sentiment{}, err
	}
	return parseSentiment(raw), nil
}

func (a *Analyzer) extractTopics(ctx context.Context, corpus string) ([]pipeline.Topic, error) {
	raw, err := a.complete(ctx,
		fmt.Sprintf("Identify up to %d key topics in the text. Respond with one topic per line in the exact format: Topic Label | word1, word2, word3. Order from most to least prominent. No other output.", a.maxTopics),
		corpus)
	if err != nil {
		return nil, err
	}
	return parseTopics(raw, a.maxTopics), nil
}

func (a *Analyzer) suggestQueries(ctx context.Context, query, corpus string) ([]pipeline.RelatedQuery, error) {
	raw, err := a.complete(ctx,
		fmt.Sprintf("Based on the text, suggest up to %d follow-up research queries related to %q. Respond with one query per line, no numbering.", maxRelated, query),
		corpus)
	if err != nil {
		return nil, err
	}
	var out []pipeline.RelatedQuery
	for i, q := range parseQueries(raw, maxRelated) {
		out = append(out, pipeline.RelatedQuery{
			Query:     q,
			Source:    "llm",
			Relevance: 1.0 - 0.1*float64(i),
		})
	}
	return out, nil
}

// complete issues one chat completion and returns the first choice's text.
func (a *Analyzer) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// combineTexts joins the usable documents into one corpus, capped so prompt
// size stays bounded.
func combineTexts(docs []pipeline.ScrapedContent) string {
	var b strings.Builder
	for _, doc := range docs {
		if doc.Failed() || doc.Type != pipeline.ContentText {
			continue
		}
		text := strings.TrimSpace(doc.RawText)
		if len(text) <= minDocChars {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
		if b.Len() >= maxCorpusChars {
			return b.String()[:maxCorpusChars]
		}
	}
	return b.String()
}

// relationshipsFrom links entities that co-occur within the corpus. This is a
// cheap structural pass over entities the model already found, capped so the
// graph stays readable.
func relationshipsFrom(entities []pipeline.Entity, corpus string) []pipeline.Relationship {
	lower := strings.ToLower(corpus)
	var out []pipeline.Relationship
	for i := 0; i < len(entities) && len(out) < maxRelationships; i++ {
		for j := i + 1; j < len(entities) && len(out) < maxRelationships; j++ {
			if entities[i].Text == entities[j].Text {
				continue
			}
			if strings.Contains(lower, strings.ToLower(entities[i].Text)) &&
				strings.Contains(lower, strings.ToLower(entities[j].Text)) {
				out = append(out, pipeline.Relationship{
					From:       entities[i].Text,
					To:         entities[j].Text,
					Type:       "co_occurrence",
					Confidence: 0.5,
				})
			}
		}
	}
	return out
}
