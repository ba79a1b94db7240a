package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pv.yaml")

	orig := DefaultPVRuleSet()
	if err := orig.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Dimension != "pv" || got.FlagColumn != "PV_Mismatch" {
		t.Errorf("header mismatch: %+v", got)
	}
	if len(got.Rules) != len(orig.Rules) {
		t.Fatalf("rule count = %d, want %d", len(got.Rules), len(orig.Rules))
	}
	for i := range got.Rules {
		if got.Rules[i].Condition != orig.Rules[i].Condition ||
			got.Rules[i].Label != orig.Rules[i].Label ||
			got.Rules[i].Priority != orig.Rules[i].Priority {
			t.Errorf("rule %d changed: got %+v want %+v", i, got.Rules[i], orig.Rules[i])
		}
	}
}

func TestLoadFileRejectsWrongVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	doc := "version: 99\ndimension: pv\nflag_column: PV_Mismatch\nrules: []\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile should reject unknown schema version")
	}
}

func TestLoadFileRequiresFlagColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noflag.yaml")
	doc := "version: 1\ndimension: pv\nrules: []\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile should require flag_column")
	}
}

func TestRuleSetLabels(t *testing.T) {
	set := &RuleSet{Rules: []Rule{
		{Label: "b"},
		{Label: "a"},
		{Label: "b"},
	}}
	got := set.Labels()
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("Labels mismatch (-want +got):\n%s", diff)
	}
}
