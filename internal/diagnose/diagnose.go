// Package diagnose runs the full analysis pass over a two-run valuation
// extract: tolerance flags, per-dimension rule evaluation, pattern
// discovery, vocabulary update, and run-history recording.
package diagnose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"recondiag/internal/dataset"
	"recondiag/internal/discovery"
	"recondiag/internal/logging"
	"recondiag/internal/recon"
	"recondiag/internal/rules"
	"recondiag/internal/store"
	"recondiag/internal/vocab"
)

// Pipeline wires the analysis stages together. The vocabulary manager and
// the store are optional; a Pipeline without them still diagnoses.
type Pipeline struct {
	cfg   Config
	eng   *rules.Engine
	pv    *rules.RuleSet
	delta *rules.RuleSet
	disc  *discovery.Discoverer
	vocab *vocab.Manager
	store store.Store
	log   *slog.Logger
}

// New builds a Pipeline for the given rulesets.
func New(cfg Config, pvSet, deltaSet *rules.RuleSet) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		eng:   rules.NewEngine(),
		pv:    pvSet,
		delta: deltaSet,
		disc:  discovery.New(cfg.Discovery),
		log:   logging.New("diagnose"),
	}
}

// AttachVocabulary enables the vocabulary-update stage.
func (p *Pipeline) AttachVocabulary(m *vocab.Manager) { p.vocab = m }

// AttachStore enables run-history recording.
func (p *Pipeline) AttachStore(s store.Store) { p.store = s }

// Result is the outcome of one analysis pass. The input frame itself
// carries the appended diff, flag, and diagnosis columns.
type Result struct {
	Summary  recon.Summary
	Patterns map[string][]discovery.Pattern
	RunID    int64
}

// Run executes the pass in place on f. Recoverable stage failures
// (vocabulary persistence, history recording) are logged and skipped;
// anything touching the diagnosis columns themselves is fatal.
func (p *Pipeline) Run(ctx context.Context, f *dataset.Frame, sourceName string) (*Result, error) {
	started := time.Now().UTC()
	if err := recon.AddDiffFlags(f, p.cfg.Tolerances); err != nil {
		return nil, err
	}

	outputs := map[string][]string{}
	for _, dim := range []struct {
		set *rules.RuleSet
		col string
	}{
		{p.pv, dataset.ColPVDiagnosis},
		{p.delta, dataset.ColDeltaDiagnosis},
	} {
		if dim.set == nil {
			continue
		}
		for _, verr := range dim.set.Validate() {
			p.log.Warn("ruleset has a malformed rule", "dimension", dim.set.Dimension, "err", verr)
		}
		labels, err := p.evaluate(ctx, f, dim.set)
		if err != nil {
			return nil, err
		}
		vals := make([]dataset.Value, len(labels))
		for i, l := range labels {
			vals[i] = dataset.String(l)
		}
		if err := f.SetColumn(dim.col, vals); err != nil {
			return nil, err
		}
		outputs[dim.col] = labels
	}
	if len(outputs) == 0 {
		return nil, errors.New("diagnose: no rulesets configured")
	}

	res := &Result{Patterns: p.disc.Discover(f)}

	if p.vocab != nil {
		if err := p.vocab.UpdateFromAnalysis(f, outputs); err != nil {
			var pe *vocab.PersistenceError
			if !errors.As(err, &pe) {
				return nil, err
			}
			p.log.Warn("vocabulary update skipped", "err", err)
		}
	}

	res.Summary = recon.Summarize(f)

	if p.store != nil {
		rec := &store.RunRecord{
			StartedAt: started,
			Dataset:   sourceName,
			Summary:   res.Summary,
		}
		id, err := p.store.SaveRun(rec)
		if err != nil {
			p.log.Warn("run history not recorded", "err", err)
		} else {
			res.RunID = id
		}
	}

	p.log.Info("analysis complete",
		"rows", res.Summary.Total,
		"mismatches", res.Summary.AnyMismatches,
		"elapsed", time.Since(started))
	return res, nil
}

// evaluate fans rule evaluation out across the worker bound. Workers write
// into disjoint slots of a preallocated slice; the ruleset is validated
// beforehand so its compile cache is read-only here.
func (p *Pipeline) evaluate(ctx context.Context, f *dataset.Frame, set *rules.RuleSet) ([]string, error) {
	labels := make([]string, f.Len())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i := 0; i < f.Len(); i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			labels[i] = p.eng.Evaluate(f.Row(i), set)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("diagnose: %s evaluation: %w", set.Dimension, err)
	}
	return labels, nil
}

func (p *Pipeline) workers() int {
	if p.cfg.Workers > 0 {
		return p.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}
