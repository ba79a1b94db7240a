package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestAnalyzeCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "extract.csv")
	outPath := filepath.Join(dir, "diagnosed.csv")
	vocabPath := filepath.Join(dir, "vocab.json")
	reportPath := filepath.Join(dir, "report.md")

	csv := strings.Join([]string{
		"TradeID,PV_old,PV_new,Delta_old,Delta_new,ProductType,FundingCurve,CSA_Type,ModelVersion,TradeDate",
		"T1,100000,100200,0.5,0.51,Swap,SOFR,Bilateral,v2024.3,2026-03-02",
		"T2,100000,95000,0.5,0.51,Swap,USD-LIBOR,Cleared,v2023.1,2026-03-02",
		"T3,,250000,0.4,0.4,Swap,SOFR,Bilateral,v2024.3,2026-03-03",
		"",
	}, "\n")
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t,
		"analyze", csvPath,
		"--vocab", vocabPath,
		"--no-history",
		"--output", outPath,
		"--report", reportPath,
	)
	if err != nil {
		t.Fatalf("analyze failed: %v\noutput:\n%s", err, out)
	}
	if !strings.Contains(out, "Trades") || !strings.Contains(out, "3") {
		t.Errorf("summary not printed:\n%s", out)
	}

	diagnosed, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("diagnosed dataset not written: %v", err)
	}
	for _, want := range []string{
		"PV_Diagnosis",
		"Legacy LIBOR curve with outdated model – PV likely shifted",
		"New trade – no prior valuation",
	} {
		if !strings.Contains(string(diagnosed), want) {
			t.Errorf("diagnosed output missing %q", want)
		}
	}
	if _, err := os.Stat(vocabPath); err != nil {
		t.Errorf("vocabulary snapshot not written: %v", err)
	}
	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(report), "# Valuation Mismatch Report") {
		t.Errorf("report missing title:\n%s", report)
	}
}

func TestVocabLabelsIncludesRuleLabels(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "pv.yaml")

	// A ruleset label no dataset has produced yet must still be listed.
	doc := `version: 1
dimension: pv
flag_column: PV_Mismatch
rules:
  - condition: "CSA_Type == 'Tri-party'"
    label: "Tri-party CSA repapered – discounting curve switched"
    priority: 1
`
	if err := os.WriteFile(rulesPath, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t,
		"vocab", "labels",
		"--vocab", filepath.Join(dir, "vocab.json"),
		"--rules-pv", rulesPath,
	)
	if err != nil {
		t.Fatalf("vocab labels failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Tri-party CSA repapered – discounting curve switched",
		"Unclassified",
		"Within tolerance",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("label listing missing %q:\n%s", want, out)
		}
	}
}

func TestRulesCheckCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")

	goodDoc := `version: 1
dimension: pv
flag_column: PV_Mismatch
rules:
  - condition: "PV_old is None"
    label: "New trade"
    priority: 1
`
	badDoc := `version: 1
dimension: pv
flag_column: PV_Mismatch
rules:
  - condition: "__import__('os').system('id')"
    label: "nope"
    priority: 1
`
	if err := os.WriteFile(good, []byte(goodDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(badDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "rules", "check", good)
	if err != nil {
		t.Fatalf("good ruleset rejected: %v\n%s", err, out)
	}
	if !strings.Contains(out, "All conditions compile.") {
		t.Errorf("missing pass message:\n%s", out)
	}

	out, err = execute(t, "rules", "check", bad)
	if err == nil {
		t.Fatalf("malformed ruleset accepted:\n%s", out)
	}
	if !strings.Contains(out, "BAD:") {
		t.Errorf("missing failure detail:\n%s", out)
	}
}
