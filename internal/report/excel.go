// Package report renders aggregate statistics as Excel workbooks for offline
// review by coaching leads.
package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// AnalysisWorkbook builds a workbook with one sheet of analysis aggregates
// and one sheet of the per-label sentiment breakdown. The caller owns the
// returned file and must Close it.
func AnalysisWorkbook(stats *store.AnalysisStats, sentiments *store.SentimentSummary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeOverviewSheet(f, stats); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSentimentSheet(f, sentiments); err != nil {
		f.Close()
		return nil, err
	}

	// The default sheet is replaced by the two we added.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: remove default sheet: %w", err)
	}
	return f, nil
}

func writeOverviewSheet(f *excelize.File, stats *store.AnalysisStats) error {
	const sheet = "Overview"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("report: create sheet %s: %w", sheet, err)
	}

	rows := [][]any{
		{"Metric", "Value"},
		{"Total analyses", stats.Total},
		{"Average satisfaction", stats.AvgSatisfaction},
		{"Average sentiment score", stats.AvgSentiment},
		{"Resolved calls", stats.ResolvedCount},
		{"Escalated calls", stats.EscalatedCount},
	}
	for _, lc := range sortedCounts(stats.BySentiment) {
		rows = append(rows, []any{"Sentiment: " + lc.label, lc.count})
	}

	return writeRows(f, sheet, rows)
}

func writeSentimentSheet(f *excelize.File, s *store.SentimentSummary) error {
	const sheet = "Sentiment"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("report: create sheet %s: %w", sheet, err)
	}

	rows := [][]any{{"Label", "Count"}}
	for _, lc := range sortedCounts(s.Counts) {
		rows = append(rows, []any{lc.label, lc.count})
	}
	rows = append(rows,
		[]any{"Average score", s.AvgScore},
		[]any{"Average confidence", s.AvgConfidence},
	)

	return writeRows(f, sheet, rows)
}

// writeRows writes rows starting at A1, one slice per spreadsheet row.
func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("report: cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: write row %d: %w", i+1, err)
		}
	}
	return nil
}

type labelCount struct {
	label string
	count int
}

// sortedCounts returns map entries in stable label order so exported
// workbooks are reproducible.
func sortedCounts(m map[string]int) []labelCount {
	out := make([]labelCount, 0, len(m))
	for label, count := range m {
		out = append(out, labelCount{label: label, count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}
