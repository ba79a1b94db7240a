// Package rules evaluates authored business rules against trade rows.
// Conditions are restricted expressions compiled by Parse; the engine is
// a pure function of row + ruleset and is safe to fan out across workers.
package rules

import (
	"fmt"
	"os"
	"sort"

	yaml "gopkg.in/yaml.v3"
)

// Fallback labels when no rule matches a row.
const (
	// LabelWithinTolerance is returned for rows whose dimension flag is unset.
	LabelWithinTolerance = "Within tolerance"
	// LabelUnclassified is returned for flagged rows no rule explains.
	LabelUnclassified = "Unclassified"
)

// rulesetSchemaVersion is the ruleset document version this build reads.
const rulesetSchemaVersion = 1

// Rule is one business-logic judgment: when the condition holds, the row
// gets the label. Higher priority wins; declaration order breaks ties.
type Rule struct {
	Condition string `yaml:"condition" json:"condition"`
	Label     string `yaml:"label" json:"label"`
	Priority  int    `yaml:"priority" json:"priority"`
	Category  string `yaml:"category" json:"category"`

	expr       *Expr
	compileErr error
	compiled   bool
}

// Compile parses the condition once and caches the outcome. It returns a
// *ConditionError for a malformed condition, on every call.
func (r *Rule) Compile() error {
	if !r.compiled {
		r.expr, r.compileErr = Parse(r.Condition)
		r.compiled = true
	}
	return r.compileErr
}

// RuleSet is the ordered rule list for one diagnosis dimension.
type RuleSet struct {
	Version   int    `yaml:"version" json:"version"`
	Dimension string `yaml:"dimension" json:"dimension"`
	// FlagColumn is the boolean mismatch column that gates the
	// within-tolerance fallback for this dimension.
	FlagColumn string `yaml:"flag_column" json:"flag_column"`
	Rules      []Rule `yaml:"rules" json:"rules"`
}

// Labels returns the distinct labels of the set, sorted.
func (s *RuleSet) Labels() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range s.Rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	sort.Strings(out)
	return out
}

// Validate compiles every rule and returns one error per bad condition.
// A set with bad rules is still usable; the engine skips them.
func (s *RuleSet) Validate() []error {
	var errs []error
	for i := range s.Rules {
		if err := s.Rules[i].Compile(); err != nil {
			errs = append(errs, fmt.Errorf("rule %d (%q): %w", i, s.Rules[i].Label, err))
		}
	}
	return errs
}

// LoadFile reads a ruleset document (YAML; JSON is a YAML subset) and
// checks its schema version. Rules are not compiled here — Validate or the
// engine handles per-rule failures.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	var s RuleSet
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}
	if s.Version != rulesetSchemaVersion {
		return nil, fmt.Errorf("rules: %s: unsupported ruleset version %d (want %d)", path, s.Version, rulesetSchemaVersion)
	}
	if s.FlagColumn == "" {
		return nil, fmt.Errorf("rules: %s: flag_column is required", path)
	}
	return &s, nil
}

// SaveFile writes the ruleset as YAML.
func (s *RuleSet) SaveFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("rules: marshal ruleset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("rules: write %s: %w", path, err)
	}
	return nil
}
