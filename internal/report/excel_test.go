package report

import (
	"slices"
	"testing"

	"github.com/voxmetrics/callcoach/pkg/store"
)

func TestAnalysisWorkbook(t *testing.T) {
	stats := &store.AnalysisStats{
		Total:           4,
		BySentiment:     map[string]int{"positive": 2, "neutral": 1, "negative": 1},
		AvgSatisfaction: 7.25,
		AvgSentiment:    0.3,
		ResolvedCount:   3,
		EscalatedCount:  1,
	}
	summary := &store.SentimentSummary{
		Counts:        map[string]int{"positive": 2, "neutral": 1, "negative": 1},
		AvgScore:      0.3,
		AvgConfidence: 0.88,
	}

	f, err := AnalysisWorkbook(stats, summary)
	if err != nil {
		t.Fatalf("AnalysisWorkbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if !slices.Contains(sheets, "Overview") || !slices.Contains(sheets, "Sentiment") {
		t.Fatalf("sheets = %v, want Overview and Sentiment", sheets)
	}
	if slices.Contains(sheets, "Sheet1") {
		t.Error("default Sheet1 still present")
	}

	got, err := f.GetCellValue("Overview", "A2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "Total analyses" {
		t.Errorf("Overview!A2 = %q, want Total analyses", got)
	}
	got, err = f.GetCellValue("Overview", "B2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "4" {
		t.Errorf("Overview!B2 = %q, want 4", got)
	}

	// Sentiment labels come out in stable alphabetical order.
	got, err = f.GetCellValue("Sentiment", "A2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if got != "negative" {
		t.Errorf("Sentiment!A2 = %q, want negative", got)
	}
}
