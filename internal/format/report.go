package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"recondiag/internal/discovery"
	"recondiag/internal/recon"
	"recondiag/internal/store"
	"recondiag/internal/vocab"
)

// FmtRate renders a fraction as a percentage with one decimal.
func FmtRate(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// SummaryTable renders the reconciliation digest of one analysis pass.
func SummaryTable(s recon.Summary, m Mode) string {
	t := NewTable(m)
	t.Header("Metric", "Value")
	t.Row("Trades", s.Total)
	t.Row("PV mismatches", s.PVMismatches)
	t.Row("Delta mismatches", s.DeltaMismatches)
	t.Row("Any mismatch", s.AnyMismatches)
	t.Row("Mismatch rate", FmtRate(s.MismatchRate))
	t.Columns(ColumnConfig{Number: 2, Align: AlignRight})
	return t.String()
}

// DiagnosisTable renders one dimension's diagnosis distribution,
// count-descending.
func DiagnosisTable(title string, counts map[string]int, m Mode) string {
	t := NewTable(m)
	t.Header(title, "Trades")
	for _, lc := range recon.DiagnosisCounts(counts) {
		t.Row(lc.Label, lc.Count)
	}
	t.Columns(
		ColumnConfig{Number: 1, MaxWidth: 70},
		ColumnConfig{Number: 2, Align: AlignRight},
	)
	return t.String()
}

// PatternsSection renders discovered patterns grouped by category.
// Categories come out in sorted order.
func PatternsSection(patterns map[string][]discovery.Pattern, m Mode) string {
	if len(patterns) == 0 {
		return "No patterns discovered."
	}
	cats := make([]string, 0, len(patterns))
	for c := range patterns {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	t := NewTable(m)
	t.Header("Category", "Pattern", "Support")
	for _, c := range cats {
		for _, p := range patterns[c] {
			t.Row(c, p.Description, p.Support)
		}
	}
	t.Columns(
		ColumnConfig{Number: 2, MaxWidth: 70},
		ColumnConfig{Number: 3, Align: AlignRight},
	)
	return t.String()
}

// RunsTable renders the run history, newest first.
func RunsTable(runs []*store.RunRecord, m Mode) string {
	t := NewTable(m)
	t.Header("Run", "Started (UTC)", "Dataset", "Trades", "Mismatches", "Rate")
	for _, r := range runs {
		t.Row(
			r.ID,
			r.StartedAt.UTC().Format(time.DateTime),
			Truncate(r.Dataset, 40),
			r.Summary.Total,
			r.Summary.AnyMismatches,
			FmtRate(r.Summary.MismatchRate),
		)
	}
	t.Columns(
		ColumnConfig{Number: 1, Align: AlignRight},
		ColumnConfig{Number: 4, Align: AlignRight},
		ColumnConfig{Number: 5, Align: AlignRight},
		ColumnConfig{Number: 6, Align: AlignRight},
	)
	return t.String()
}

// VocabStatsTable renders vocabulary usage statistics.
func VocabStatsTable(s vocab.Stats, m Mode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Unique labels: %d\n", s.TotalUniqueLabels)
	if !s.LastUpdate.IsZero() {
		fmt.Fprintf(&b, "Last update:   %s\n", s.LastUpdate.UTC().Format(time.DateTime))
	}
	if len(s.PatternCategories) > 0 {
		fmt.Fprintf(&b, "Pattern categories: %s\n", strings.Join(s.PatternCategories, ", "))
	}
	if len(s.MostFrequentLabels) > 0 {
		t := NewTable(m)
		t.Header("Label", "Count")
		for _, lc := range s.MostFrequentLabels {
			t.Row(lc.Label, lc.Count)
		}
		t.Columns(
			ColumnConfig{Number: 1, MaxWidth: 70},
			ColumnConfig{Number: 2, Align: AlignRight},
		)
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return b.String()
}

// MarkdownReport assembles the full analysis report written by --report.
func MarkdownReport(s recon.Summary, patterns map[string][]discovery.Pattern) string {
	var b strings.Builder
	b.WriteString("# Valuation Mismatch Report\n\n")
	b.WriteString("## Summary\n\n")
	b.WriteString(SummaryTable(s, Markdown))
	b.WriteString("\n\n## PV Diagnoses\n\n")
	b.WriteString(DiagnosisTable("PV diagnosis", s.PVDiagnoses, Markdown))
	b.WriteString("\n\n## Delta Diagnoses\n\n")
	b.WriteString(DiagnosisTable("Delta diagnosis", s.DeltaDiagnoses, Markdown))
	b.WriteString("\n\n## Discovered Patterns\n\n")
	b.WriteString(PatternsSection(patterns, Markdown))
	b.WriteString("\n")
	return b.String()
}
