package main

import (
	"fmt"
	"os"
	"path/filepath"

	"recondiag/internal/diagnose"
	"recondiag/internal/rules"
)

// Default artifact locations, overridable per flag or environment.
const (
	defaultVocabPath      = ".recondiag/vocab.json"
	defaultPVModelPath    = ".recondiag/model-pv.json"
	defaultDeltaModelPath = ".recondiag/model-delta.json"
)

// resolvePath returns the first non-empty of flag value, $envVar, fallback,
// creating the parent directory of the result.
func resolvePath(flagValue, envVar, fallback string) (string, error) {
	p := flagValue
	if p == "" {
		p = os.Getenv(envVar)
	}
	if p == "" {
		p = fallback
	}
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create dir for %s: %w", p, err)
		}
	}
	return p, nil
}

// loadRuleSet reads a ruleset file, or returns the built-in default when
// path is empty.
func loadRuleSet(path string, def func() *rules.RuleSet) (*rules.RuleSet, error) {
	if path == "" {
		return def(), nil
	}
	return rules.LoadFile(path)
}

// ruleSetLabels loads the configured rulesets (or the built-in defaults)
// and returns the union of their labels with the engine fallbacks, so the
// vocabulary covers every label the rule engine can emit.
func ruleSetLabels(pvPath, deltaPath string) ([]string, error) {
	pvSet, err := loadRuleSet(pvPath, rules.DefaultPVRuleSet)
	if err != nil {
		return nil, err
	}
	deltaSet, err := loadRuleSet(deltaPath, rules.DefaultDeltaRuleSet)
	if err != nil {
		return nil, err
	}
	labels := append(pvSet.Labels(), deltaSet.Labels()...)
	return append(labels, rules.LabelWithinTolerance, rules.LabelUnclassified), nil
}

// loadEngineConfig reads the engine config file, or returns defaults when
// path is empty.
func loadEngineConfig(path string) (diagnose.Config, error) {
	if path == "" {
		return diagnose.DefaultConfig(), nil
	}
	return diagnose.LoadConfig(path)
}
