package store

// DefaultPageLimit is the page size applied when a query does not set one.
const DefaultPageLimit = 10

// Page selects one page of a list result. Page numbers start at 1.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps p to sane values: page >= 1 and 1 <= limit <= 100,
// defaulting the limit to [DefaultPageLimit].
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Sort selects the sort column and direction of a list result. Field names
// are validated by the implementation; an empty field means newest-first by
// creation (or generation) timestamp.
type Sort struct {
	Field string
	Asc   bool
}

// AudioFileQuery filters and pages the audio file list.
type AudioFileQuery struct {
	Page
	Sort
	Status   AudioStatus // empty = any
	MimeType string      // empty = any
}

// TranscriptQuery filters and pages the transcript list.
type TranscriptQuery struct {
	Page
	Sort
	Language      string  // empty = any
	MinConfidence float64 // 0 = any
}

// AnalysisQuery filters and pages the analysis list.
type AnalysisQuery struct {
	Page
	Sort
	Sentiment       string  // empty = any
	MinSatisfaction float64 // 0 = any
	Resolved        *bool   // nil = any
}

// PlanQuery filters and pages the coaching plan list.
type PlanQuery struct {
	Page
	Sort
	AgentID          string  // empty = any
	PerformanceLevel string  // empty = any
	MinScore         float64 // 0 = any
}
