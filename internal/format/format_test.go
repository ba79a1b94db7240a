package format_test

import (
	"strings"
	"testing"
	"time"

	"recondiag/internal/format"
	"recondiag/internal/recon"
	"recondiag/internal/store"
)

func TestASCIIBasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("TradeID", "PV_Diff")
	tb.Row("T1", 1500.0)
	tb.Row("T2", -200.0)
	out := tb.String()

	if !strings.Contains(out, "TradeID") {
		t.Errorf("expected header in output:\n%s", out)
	}
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdownBasicTable(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Label", "Count")
	tb.Row("Within tolerance", 42)
	out := tb.String()

	if !strings.Contains(out, "| Label") {
		t.Errorf("expected markdown header:\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator:\n%s", out)
	}
}

func sampleSummary() recon.Summary {
	return recon.Summary{
		Total:           100,
		PVMismatches:    12,
		DeltaMismatches: 4,
		AnyMismatches:   14,
		MismatchRate:    0.14,
		PVDiagnoses: map[string]int{
			"Within tolerance":    86,
			"Funding curve shift": 12,
			"Unclassified":        2,
		},
		DeltaDiagnoses: map[string]int{"Within tolerance": 96},
	}
}

func TestSummaryTable(t *testing.T) {
	out := format.SummaryTable(sampleSummary(), format.ASCII)
	for _, want := range []string{"Trades", "100", "Mismatch rate", "14.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestDiagnosisTableOrder(t *testing.T) {
	out := format.DiagnosisTable("PV diagnosis", sampleSummary().PVDiagnoses, format.ASCII)
	top := strings.Index(out, "Within tolerance")
	mid := strings.Index(out, "Funding curve shift")
	low := strings.Index(out, "Unclassified")
	if top == -1 || mid == -1 || low == -1 || !(top < mid && mid < low) {
		t.Errorf("rows not count-descending:\n%s", out)
	}
}

func TestRunsTable(t *testing.T) {
	runs := []*store.RunRecord{
		{
			ID:        2,
			StartedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			Dataset:   "eod_extract.csv",
			Summary:   sampleSummary(),
		},
	}
	out := format.RunsTable(runs, format.ASCII)
	for _, want := range []string{"eod_extract.csv", "2026-03-14 09:30:00", "14.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("runs table missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownReportSections(t *testing.T) {
	out := format.MarkdownReport(sampleSummary(), nil)
	for _, want := range []string{
		"# Valuation Mismatch Report",
		"## Summary",
		"## PV Diagnoses",
		"## Discovered Patterns",
		"No patterns discovered.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := format.Truncate("abcdefghij", 8); got != "abcde..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := format.Truncate("short", 8); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}
