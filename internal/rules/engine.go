package rules

import (
	"log/slog"

	"recondiag/internal/dataset"
	"recondiag/internal/logging"
)

// Engine evaluates rulesets against rows. It holds no per-row state and a
// single Engine may be shared by concurrent workers.
type Engine struct {
	log *slog.Logger
}

// NewEngine returns an Engine logging through the shared slog default.
func NewEngine() *Engine {
	return &Engine{log: logging.New("rules")}
}

// Evaluate returns the diagnosis label for one row. All matching rules are
// collected; the highest priority wins and declaration order breaks ties.
// A malformed condition is logged and the rule skipped — a bad rule never
// aborts a batch. When no rule matches, rows whose flag column is unset get
// LabelWithinTolerance, flagged rows LabelUnclassified.
//
// Callers fanning Evaluate out across workers must compile the set first
// (RuleSet.Validate) so the per-rule compile cache is read-only here.
func (e *Engine) Evaluate(row dataset.Row, set *RuleSet) string {
	bestIdx := -1
	bestPriority := 0
	for i := range set.Rules {
		r := &set.Rules[i]
		if err := r.Compile(); err != nil {
			e.log.Warn("skipping malformed rule",
				"dimension", set.Dimension,
				"label", r.Label,
				"err", err)
			continue
		}
		if !r.expr.Eval(row) {
			continue
		}
		if bestIdx == -1 || r.Priority > bestPriority {
			bestIdx = i
			bestPriority = r.Priority
		}
	}
	if bestIdx >= 0 {
		return set.Rules[bestIdx].Label
	}
	if !row.Flag(set.FlagColumn) {
		return LabelWithinTolerance
	}
	return LabelUnclassified
}
