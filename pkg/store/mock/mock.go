// Package mock provides in-memory implementations of the store interfaces
// for tests. All stores are safe for concurrent use and enforce the same
// uniqueness semantics as the PostgreSQL implementation.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.AudioFiles    = (*AudioFiles)(nil)
	_ store.Transcripts   = (*Transcripts)(nil)
	_ store.Analyses      = (*Analyses)(nil)
	_ store.CoachingPlans = (*CoachingPlans)(nil)
)

// AudioFiles is an in-memory [store.AudioFiles].
type AudioFiles struct {
	mu    sync.Mutex
	files map[string]store.AudioFile

	// FailCreate, when non-nil, is returned by Create. Lets tests exercise
	// the upload compensation path.
	FailCreate error
}

// NewAudioFiles returns an empty in-memory audio file store.
func NewAudioFiles() *AudioFiles {
	return &AudioFiles{files: map[string]store.AudioFile{}}
}

func (s *AudioFiles) Create(_ context.Context, f *store.AudioFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return s.FailCreate
	}
	if f.ID == "" {
		f.ID = store.NewID()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	if f.Status == "" {
		f.Status = store.StatusUploaded
	}
	s.files[f.ID] = *f
	return nil
}

func (s *AudioFiles) Get(_ context.Context, id string) (*store.AudioFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (s *AudioFiles) List(_ context.Context, q store.AudioFileQuery) ([]store.AudioFile, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []store.AudioFile
	for _, f := range s.files {
		if q.Status != "" && f.Status != q.Status {
			continue
		}
		if q.MimeType != "" && f.MimeType != q.MimeType {
			continue
		}
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UploadedAt.After(all[j].UploadedAt) })
	items, total := paginate(all, q.Page)
	return items, total, nil
}

func (s *AudioFiles) UpdateStatus(_ context.Context, id string, status store.AudioStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return store.ErrNotFound
	}
	f.Status = status
	s.files[id] = f
	return nil
}

func (s *AudioFiles) Complete(_ context.Context, id string, durationSec float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return store.ErrNotFound
	}
	f.Status = store.StatusCompleted
	f.Duration = &durationSec
	s.files[id] = f
	return nil
}

func (s *AudioFiles) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.files, id)
	return nil
}

func (s *AudioFiles) Stats(_ context.Context) (*store.AudioFileStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &store.AudioFileStats{ByStatus: map[string]int{}, ByMimeType: map[string]int{}}
	var durSum float64
	var durCount int
	for _, f := range s.files {
		stats.Total++
		stats.TotalBytes += f.Size
		stats.ByStatus[string(f.Status)]++
		stats.ByMimeType[f.MimeType]++
		if f.Duration != nil {
			durSum += *f.Duration
			durCount++
		}
	}
	if durCount > 0 {
		stats.AvgDuration = durSum / float64(durCount)
	}
	return stats, nil
}

// Transcripts is an in-memory [store.Transcripts].
type Transcripts struct {
	mu          sync.Mutex
	transcripts map[string]store.Transcript
}

// NewTranscripts returns an empty in-memory transcript store.
func NewTranscripts() *Transcripts {
	return &Transcripts{transcripts: map[string]store.Transcript{}}
}

func (s *Transcripts) Create(_ context.Context, t *store.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transcripts {
		if existing.AudioFileID == t.AudioFileID {
			return store.ErrConflict
		}
	}
	if t.ID == "" {
		t.ID = store.NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.transcripts[t.ID] = *t
	return nil
}

func (s *Transcripts) Get(_ context.Context, id string) (*store.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Transcripts) GetByAudioFile(_ context.Context, audioFileID string) (*store.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transcripts {
		if t.AudioFileID == audioFileID {
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Transcripts) List(_ context.Context, q store.TranscriptQuery) ([]store.Transcript, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []store.Transcript
	for _, t := range s.transcripts {
		if q.Language != "" && t.Language != q.Language {
			continue
		}
		if q.MinConfidence > 0 && t.Confidence < q.MinConfidence {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	items, total := paginate(all, q.Page)
	return items, total, nil
}

func (s *Transcripts) Update(_ context.Context, id string, text string, segments []store.Segment) (*store.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcripts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Text = text
	t.Segments = segments
	s.transcripts[id] = t
	return &t, nil
}

func (s *Transcripts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transcripts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.transcripts, id)
	return nil
}

func (s *Transcripts) Stats(_ context.Context) (*store.TranscriptStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &store.TranscriptStats{ByLanguage: map[string]int{}}
	var confSum, msSum float64
	for _, t := range s.transcripts {
		stats.Total++
		stats.ByLanguage[t.Language]++
		confSum += t.Confidence
		msSum += float64(t.ProcessingMS)
	}
	if stats.Total > 0 {
		stats.AvgConfidence = confSum / float64(stats.Total)
		stats.AvgProcessingMS = msSum / float64(stats.Total)
	}
	return stats, nil
}

// Analyses is an in-memory [store.Analyses].
type Analyses struct {
	mu       sync.Mutex
	analyses map[string]store.Analysis
}

// NewAnalyses returns an empty in-memory analysis store.
func NewAnalyses() *Analyses {
	return &Analyses{analyses: map[string]store.Analysis{}}
}

func (s *Analyses) Create(_ context.Context, a *store.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.analyses {
		if existing.TranscriptID == a.TranscriptID {
			return store.ErrConflict
		}
	}
	if a.ID == "" {
		a.ID = store.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.analyses[a.ID] = *a
	return nil
}

func (s *Analyses) Get(_ context.Context, id string) (*store.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Analyses) GetByTranscript(_ context.Context, transcriptID string) (*store.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.analyses {
		if a.TranscriptID == transcriptID {
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Analyses) List(_ context.Context, q store.AnalysisQuery) ([]store.Analysis, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []store.Analysis
	for _, a := range s.analyses {
		if q.Sentiment != "" && a.Sentiment.Overall != q.Sentiment {
			continue
		}
		if q.MinSatisfaction > 0 && a.Satisfaction.Score < q.MinSatisfaction {
			continue
		}
		if q.Resolved != nil && a.Resolution.Resolved != *q.Resolved {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	items, total := paginate(all, q.Page)
	return items, total, nil
}

func (s *Analyses) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.analyses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.analyses, id)
	return nil
}

func (s *Analyses) Stats(_ context.Context) (*store.AnalysisStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &store.AnalysisStats{BySentiment: map[string]int{}}
	var satSum, scoreSum float64
	for _, a := range s.analyses {
		stats.Total++
		stats.BySentiment[a.Sentiment.Overall]++
		satSum += a.Satisfaction.Score
		scoreSum += a.Sentiment.Score
		if a.Resolution.Resolved {
			stats.ResolvedCount++
		}
		if a.Resolution.EscalationRequired {
			stats.EscalatedCount++
		}
	}
	if stats.Total > 0 {
		stats.AvgSatisfaction = satSum / float64(stats.Total)
		stats.AvgSentiment = scoreSum / float64(stats.Total)
	}
	return stats, nil
}

func (s *Analyses) SentimentSummary(_ context.Context) (*store.SentimentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := &store.SentimentSummary{Counts: map[string]int{}}
	var scoreSum, confSum float64
	var n int
	for _, a := range s.analyses {
		summary.Counts[a.Sentiment.Overall]++
		scoreSum += a.Sentiment.Score
		confSum += a.Sentiment.Confidence
		n++
	}
	if n > 0 {
		summary.AvgScore = scoreSum / float64(n)
		summary.AvgConfidence = confSum / float64(n)
	}
	return summary, nil
}

// CoachingPlans is an in-memory [store.CoachingPlans].
type CoachingPlans struct {
	mu    sync.Mutex
	plans map[string]store.CoachingPlan
}

// NewCoachingPlans returns an empty in-memory coaching plan store.
func NewCoachingPlans() *CoachingPlans {
	return &CoachingPlans{plans: map[string]store.CoachingPlan{}}
}

func (s *CoachingPlans) Create(_ context.Context, p *store.CoachingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.plans {
		if existing.AnalysisID == p.AnalysisID {
			return store.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = store.NewID()
	}
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now().UTC()
	}
	s.plans[p.ID] = *p
	return nil
}

func (s *CoachingPlans) Get(_ context.Context, id string) (*store.CoachingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *CoachingPlans) GetByAnalysis(_ context.Context, analysisID string) (*store.CoachingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.AnalysisID == analysisID {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *CoachingPlans) List(_ context.Context, q store.PlanQuery) ([]store.CoachingPlan, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []store.CoachingPlan
	for _, p := range s.plans {
		if q.AgentID != "" && p.AgentID != q.AgentID {
			continue
		}
		if q.PerformanceLevel != "" && string(p.Performance.Level) != q.PerformanceLevel {
			continue
		}
		if q.MinScore > 0 && p.Performance.Score < q.MinScore {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].GeneratedAt.After(all[j].GeneratedAt) })
	items, total := paginate(all, q.Page)
	return items, total, nil
}

func (s *CoachingPlans) Update(_ context.Context, id string, u store.PlanUpdate) (*store.CoachingPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	if u.FollowUp != nil {
		p.FollowUp = *u.FollowUp
	}
	if u.ActionItems != nil {
		p.ActionItems = u.ActionItems
	}
	s.plans[id] = p
	return &p, nil
}

func (s *CoachingPlans) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

func (s *CoachingPlans) Stats(_ context.Context) (*store.PlanStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &store.PlanStats{ByLevel: map[string]int{}}
	var scoreSum float64
	areaCounts := map[string]int{}
	agentCounts := map[string]*store.AgentPlanCount{}
	for _, p := range s.plans {
		stats.Total++
		stats.ByLevel[string(p.Performance.Level)]++
		scoreSum += p.Performance.Score
		for _, area := range p.ImprovementAreas {
			areaCounts[area.Area]++
		}
		ac, ok := agentCounts[p.AgentID]
		if !ok {
			ac = &store.AgentPlanCount{AgentID: p.AgentID}
			agentCounts[p.AgentID] = ac
		}
		ac.Plans++
		ac.AvgScore += p.Performance.Score
	}
	if stats.Total > 0 {
		stats.AvgScore = scoreSum / float64(stats.Total)
	}
	for _, ac := range agentCounts {
		ac.AvgScore /= float64(ac.Plans)
		stats.TopAgents = append(stats.TopAgents, *ac)
	}
	sort.Slice(stats.TopAgents, func(i, j int) bool {
		if stats.TopAgents[i].Plans != stats.TopAgents[j].Plans {
			return stats.TopAgents[i].Plans > stats.TopAgents[j].Plans
		}
		return stats.TopAgents[i].AgentID < stats.TopAgents[j].AgentID
	})
	for area, count := range areaCounts {
		stats.FrequentAreas = append(stats.FrequentAreas, store.ImprovementAreaCount{Area: area, Count: count})
	}
	sort.Slice(stats.FrequentAreas, func(i, j int) bool {
		if stats.FrequentAreas[i].Count != stats.FrequentAreas[j].Count {
			return stats.FrequentAreas[i].Count > stats.FrequentAreas[j].Count
		}
		return stats.FrequentAreas[i].Area < stats.FrequentAreas[j].Area
	})
	return stats, nil
}

func (s *CoachingPlans) AgentSummary(_ context.Context, agentID string) (*store.AgentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := &store.AgentSummary{AgentID: agentID, ByLevel: map[string]int{}}
	var scoreSum float64
	for _, p := range s.plans {
		if p.AgentID != agentID {
			continue
		}
		summary.Plans++
		summary.ByLevel[string(p.Performance.Level)]++
		scoreSum += p.Performance.Score
		if summary.LastPlanAt == nil || p.GeneratedAt.After(*summary.LastPlanAt) {
			t := p.GeneratedAt
			summary.LastPlanAt = &t
		}
	}
	if summary.Plans == 0 {
		return nil, store.ErrNotFound
	}
	summary.AvgScore = scoreSum / float64(summary.Plans)
	return summary, nil
}

// paginate slices one normalized page out of items, returning the page and
// the total item count.
func paginate[T any](items []T, p store.Page) ([]T, int) {
	total := len(items)
	n := p.Normalize()
	start := n.Offset()
	if start >= total {
		return []T{}, total
	}
	end := start + n.Limit
	if end > total {
		end = total
	}
	return items[start:end], total
}
