// ABOUTME: Core data model for a research pipeline run: state, statuses, search/scrape
// ABOUTME: results, the analysis result union, visualization data, and the final result.
package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status identifies one stage of a pipeline run. A run's status only moves
// forward through the declared order, or jumps directly to StatusFailed.
type Status string

const (
	StatusInitialized      Status = "initialized"
	StatusSearching        Status = "searching"
	StatusScraping         Status = "scraping"
	StatusStoring          Status = "storing"
	StatusAnalyzing        Status = "analyzing"
	StatusVisualizing      Status = "visualizing"
	StatusGeneratingReport Status = "generating_report"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// statusRank orders the forward-only progression. StatusFailed is reachable
// from any state and is not part of the ordering.
var statusRank = map[Status]int{
	StatusInitialized:      0,
	StatusSearching:        1,
	StatusScraping:         2,
	StatusStoring:          3,
	StatusAnalyzing:        4,
	StatusVisualizing:      5,
	StatusGeneratingReport: 6,
	StatusCompleted:        7,
}

// ContentType classifies a scraped document.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentPDF   ContentType = "pdf"
	ContentError ContentType = "error"
)

// SearchResult is one web or news search hit.
type SearchResult struct {
	Title       string   `json:"title"`
	Snippet     string   `json:"snippet"`
	Link        string   `json:"link"`
	Source      string   `json:"source"`
	Credibility *float64 `json:"credibility,omitempty"`
}

// ImageResult is one image search hit.
type ImageResult struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Source    string `json:"source"`
	AltText   string `json:"alt_text,omitempty"`
}

// VideoResult is one video search hit.
type VideoResult struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Snippet   string `json:"snippet"`
	Source    string `json:"source"`
	Duration  string `json:"duration,omitempty"`
}

// ScrapedContent is the outcome of scraping a single URL. When Type is
// ContentError, ErrorMessage is set and RawText may be empty; for every other
// type RawText is non-empty.
type ScrapedContent struct {
	Type         ContentType `json:"type"`
	URL          string      `json:"url"`
	RawText      string      `json:"raw_text"`
	ErrorMessage string      `json:"error_message,omitempty"`
	ScrapedAt    time.Time   `json:"scraped_at"`
}

// Failed reports whether this content represents a scrape failure.
func (c ScrapedContent) Failed() bool { return c.Type == ContentError }

// Entity is a named entity extracted from scraped text.
type Entity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Relationship links two entities that co-occur in the analyzed text.
type Relationship struct {
	From       string  `json:"from_entity"`
	To         string  `json:"to_entity"`
	Type       string  `json:"relationship_type"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Topic is one theme identified in the analyzed text.
type Topic struct {
	ID     int      `json:"id"`
	Label  string   `json:"label"`
	Words  []string `json:"words"`
	Weight float64  `json:"weight"`
}

// Sentiment is the aggregate sentiment of the analyzed text.
type Sentiment struct {
	Polarity       float64 `json:"polarity"`
	Subjectivity   float64 `json:"subjectivity"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

// TimelineEvent is a dated event mentioned in the analyzed text.
type TimelineEvent struct {
	Date       string  `json:"date"`
	Event      string  `json:"event"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence,omitempty"`
}

// RelatedQuery is a follow-up query suggested by the analysis.
type RelatedQuery struct {
	Query     string  `json:"query"`
	Source    string  `json:"source"`
	Relevance float64 `json:"relevance,omitempty"`
}

// Analysis is the closed set of analysis outcomes. Downstream consumers
// switch exhaustively on the two variants rather than probing optional
// fields: SuccessAnalysis carries real results, EmptyAnalysis records why
// none could be produced.
type Analysis interface {
	isAnalysis()
}

// SuccessAnalysis is a completed analysis of the scraped corpus.
type SuccessAnalysis struct {
	Query          string          `json:"query"`
	Summary        string          `json:"summary"`
	Entities       []Entity        `json:"entities"`
	Relationships  []Relationship  `json:"relationships"`
	Topics         []Topic         `json:"topics"`
	Sentiment      Sentiment       `json:"sentiment"`
	Timeline       []TimelineEvent `json:"timeline"`
	RelatedQueries []RelatedQuery  `json:"related_queries"`
	AnalyzedAt     time.Time       `json:"analyzed_at"`
}

// EmptyAnalysis records that analysis could not run (no usable text, or the
// analyzer itself failed). It is a valid terminal analysis, not an error.
type EmptyAnalysis struct {
	Query  string `json:"query"`
	Reason string `json:"reason"`
}

func (SuccessAnalysis) isAnalysis() {}
func (EmptyAnalysis) isAnalysis()   {}

// analysisEnvelope tags the analysis union for JSON round-tripping.
type analysisEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalAnalysis encodes either analysis variant with a kind tag.
func MarshalAnalysis(a Analysis) ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	var kind string
	switch a.(type) {
	case SuccessAnalysis:
		kind = "success"
	case EmptyAnalysis:
		kind = "empty"
	default:
		return nil, fmt.Errorf("unknown analysis variant %T", a)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return json.Marshal(analysisEnvelope{Kind: kind, Payload: payload})
}

// UnmarshalAnalysis decodes a tagged analysis envelope back into its variant.
func UnmarshalAnalysis(data []byte) (Analysis, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env analysisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "success":
		var a SuccessAnalysis
		if err := json.Unmarshal(env.Payload, &a); err != nil {
			return nil, err
		}
		return a, nil
	case "empty":
		var a EmptyAnalysis
		if err := json.Unmarshal(env.Payload, &a); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown analysis kind %q", env.Kind)
	}
}

// GraphNode is one node of the entity relationship graph.
type GraphNode struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight,omitempty"`
}

// GraphEdge is one edge of the entity relationship graph.
type GraphEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// WordCount is one term of the word frequency summary.
type WordCount struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// VisualizationData is the chart-ready projection of an analysis. The zero
// value is the valid "nothing to visualize" result.
type VisualizationData struct {
	Nodes          []GraphNode `json:"nodes"`
	Edges          []GraphEdge `json:"edges"`
	TimelineDates  []string    `json:"timeline_dates"`
	TimelineEvents []string    `json:"timeline_events"`
	TopWords       []WordCount `json:"top_words"`
	TreemapLabels  []string    `json:"treemap_labels"`
	TreemapParents []string    `json:"treemap_parents"`
	TreemapValues  []float64   `json:"treemap_values"`
}

// PipelineState is the working state of a single pipeline run. It is owned
// exclusively by that run; phases mutate only their own slice of fields.
type PipelineState struct {
	Query          string           `json:"query"`
	SearchResults  []SearchResult   `json:"search_results"`
	Images         []ImageResult    `json:"images"`
	Videos         []VideoResult    `json:"videos"`
	ScrapedContent []ScrapedContent `json:"scraped_content"`
	Analysis       Analysis         `json:"-"`
	Status         Status           `json:"status"`
	// Error holds the failure reason when Status is StatusFailed.
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPipelineState returns an initialized state for the given query.
func NewPipelineState(query string) *PipelineState {
	now := time.Now()
	return &PipelineState{
		Query:     query,
		Status:    StatusInitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateStatus advances the run status and stamps UpdatedAt. Transitions are
// forward-only; any state may jump to StatusFailed, and failed is terminal.
// Backward transitions are ignored rather than applied, keeping the invariant
// even on misuse.
func (s *PipelineState) UpdateStatus(next Status) {
	if s.Status == StatusFailed {
		return
	}
	if next != StatusFailed {
		cur, curOK := statusRank[s.Status]
		nxt, nxtOK := statusRank[next]
		if curOK && nxtOK && nxt < cur {
			return
		}
	}
	s.Status = next
	s.UpdatedAt = time.Now()
}

// stateJSON mirrors PipelineState with the analysis union in envelope form.
type stateJSON struct {
	Query          string           `json:"query"`
	SearchResults  []SearchResult   `json:"search_results"`
	Images         []ImageResult    `json:"images"`
	Videos         []VideoResult    `json:"videos"`
	ScrapedContent []ScrapedContent `json:"scraped_content"`
	Analysis       json.RawMessage  `json:"analysis,omitempty"`
	Status         Status           `json:"status"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// MarshalJSON encodes the state including the tagged analysis union.
func (s *PipelineState) MarshalJSON() ([]byte, error) {
	var analysisRaw json.RawMessage
	if s.Analysis != nil {
		raw, err := MarshalAnalysis(s.Analysis)
		if err != nil {
			return nil, fmt.Errorf("marshal analysis: %w", err)
		}
		analysisRaw = raw
	}
	return json.Marshal(stateJSON{
		Query:          s.Query,
		SearchResults:  s.SearchResults,
		Images:         s.Images,
		Videos:         s.Videos,
		ScrapedContent: s.ScrapedContent,
		Analysis:       analysisRaw,
		Status:         s.Status,
		Error:          s.Error,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	})
}

// UnmarshalJSON decodes the state including the tagged analysis union.
func (s *PipelineState) UnmarshalJSON(data []byte) error {
	var aux stateJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	analysis, err := UnmarshalAnalysis(aux.Analysis)
	if err != nil {
		return fmt.Errorf("unmarshal analysis: %w", err)
	}
	*s = PipelineState{
		Query:          aux.Query,
		SearchResults:  aux.SearchResults,
		Images:         aux.Images,
		Videos:         aux.Videos,
		ScrapedContent: aux.ScrapedContent,
		Analysis:       analysis,
		Status:         aux.Status,
		Error:          aux.Error,
		CreatedAt:      aux.CreatedAt,
		UpdatedAt:      aux.UpdatedAt,
	}
	return nil
}

// PipelineResult is the always-returned outcome of a run. On failure it
// carries the partial state, an empty visualization, and no report.
type PipelineResult struct {
	State          *PipelineState    `json:"state"`
	Visualization  VisualizationData `json:"visualization"`
	Report         []byte            `json:"-"`
	ProcessingTime time.Duration     `json:"-"`
}

// resultJSON exposes processing time in seconds, matching the wire shape
// consumers of the job API expect.
type resultJSON struct {
	State             *PipelineState    `json:"state"`
	Visualization     VisualizationData `json:"visualization"`
	ProcessingSeconds float64           `json:"processing_time"`
}

// MarshalJSON encodes the result without the report body; reports are large
// and served from disk, not embedded in job records.
func (r *PipelineResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		State:             r.State,
		Visualization:     r.Visualization,
		ProcessingSeconds: r.ProcessingTime.Seconds(),
	})
}

// UnmarshalJSON decodes a result previously stored in a job record.
func (r *PipelineResult) UnmarshalJSON(data []byte) error {
	var aux resultJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.State = aux.State
	r.Visualization = aux.Visualization
	r.ProcessingTime = time.Duration(aux.ProcessingSeconds * float64(time.Second))
	r.Report = nil
	return nil
}
