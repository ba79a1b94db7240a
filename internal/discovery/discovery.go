// Package discovery scans a diagnosed dataset for statistical regularities
// no explicit rule captures: per-group mismatch-rate outliers, sensitivity
// dispersion, and temporal clustering. Its output is descriptive — it feeds
// the label vocabulary, never the rule engine.
package discovery

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"recondiag/internal/dataset"
	"recondiag/internal/logging"
)

// Pattern categories, keyed the way the vocabulary stores them.
const (
	CategoryPV       = "pv_patterns"
	CategoryDelta    = "delta_patterns"
	CategoryTemporal = "temporal_patterns"
	CategoryProduct  = "product_patterns"
)

// Config holds the discovery thresholds. All of them are configuration,
// not code: analysts tune these per desk.
type Config struct {
	// MismatchRateThreshold flags a group whose mismatch rate meets or
	// exceeds this fraction.
	MismatchRateThreshold float64 `yaml:"mismatch_rate_threshold"`
	// DispersionThreshold flags delta-diff standard deviation above this.
	DispersionThreshold float64 `yaml:"dispersion_threshold"`
	// TemporalStdDev flags date buckets whose mismatch-count standard
	// deviation exceeds this.
	TemporalStdDev float64 `yaml:"temporal_std_dev"`
	// MinSupport is the minimum group size before a group can be flagged.
	MinSupport int `yaml:"min_support"`
}

// DefaultConfig returns the thresholds used when no engine config is given.
func DefaultConfig() Config {
	return Config{
		MismatchRateThreshold: 0.5,
		DispersionThreshold:   0.1,
		TemporalStdDev:        2.0,
		MinSupport:            3,
	}
}

// Pattern is one discovered regularity: descriptive text plus the number
// of rows supporting it.
type Pattern struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Support     int    `json:"support"`
}

// Discoverer runs the configured scans over a Frame.
type Discoverer struct {
	cfg Config
	log *slog.Logger
}

// New returns a Discoverer with the given thresholds.
func New(cfg Config) *Discoverer {
	if cfg.MinSupport <= 0 {
		cfg.MinSupport = 1
	}
	return &Discoverer{cfg: cfg, log: logging.New("discovery")}
}

// Discover returns discovered patterns keyed by category. A missing column
// degrades that scan to nothing with a logged warning; Discover itself
// never fails.
func (d *Discoverer) Discover(f *dataset.Frame) map[string][]Pattern {
	out := map[string][]Pattern{}

	put := func(cat string, ps []Pattern) {
		if len(ps) > 0 {
			out[cat] = ps
		}
	}

	put(CategoryPV, d.pvPatterns(f))
	put(CategoryDelta, d.deltaPatterns(f))
	put(CategoryTemporal, d.temporalPatterns(f))
	put(CategoryProduct, d.productPatterns(f))
	return out
}

// pvPatterns flags categorical groups with elevated PV mismatch rates.
func (d *Discoverer) pvPatterns(f *dataset.Frame) []Pattern {
	if !f.HasColumn(dataset.ColPVMismatch) {
		d.log.Warn("pv scan skipped: column missing", "column", dataset.ColPVMismatch)
		return nil
	}
	dims := []struct{ col, noun string }{
		{dataset.ColFundingCurve, "funding curve"},
		{dataset.ColModelVersion, "model version"},
		{dataset.ColCSAType, "CSA type"},
	}
	var out []Pattern
	for _, dim := range dims {
		if !f.HasColumn(dim.col) {
			d.log.Warn("pv scan dimension skipped: column missing", "column", dim.col)
			continue
		}
		out = append(out, d.rateOutliers(f, dim.col, dataset.ColPVMismatch,
			CategoryPV, "Elevated PV mismatch rate for "+dim.noun)...)
	}
	return out
}

// deltaPatterns flags product groups with elevated delta mismatch rates and
// overall delta-diff dispersion among mismatched rows.
func (d *Discoverer) deltaPatterns(f *dataset.Frame) []Pattern {
	if !f.HasColumn(dataset.ColDeltaMismatch) {
		d.log.Warn("delta scan skipped: column missing", "column", dataset.ColDeltaMismatch)
		return nil
	}
	var out []Pattern
	if f.HasColumn(dataset.ColProductType) {
		out = append(out, d.rateOutliers(f, dataset.ColProductType, dataset.ColDeltaMismatch,
			CategoryDelta, "Elevated delta mismatch rate for product type")...)
	}
	if f.HasColumn(dataset.ColDeltaDiff) {
		var diffs []float64
		for i := 0; i < f.Len(); i++ {
			row := f.Row(i)
			if !row.Flag(dataset.ColDeltaMismatch) {
				continue
			}
			if v, ok := row.Number(dataset.ColDeltaDiff); ok {
				diffs = append(diffs, math.Abs(v))
			}
		}
		if len(diffs) >= d.cfg.MinSupport {
			if sd := stddev(diffs); sd > d.cfg.DispersionThreshold {
				out = append(out, Pattern{
					Description: fmt.Sprintf("High delta dispersion among mismatched trades (stddev %.3f) – vol surface issues", sd),
					Category:    CategoryDelta,
					Support:     len(diffs),
				})
			}
		}
	}
	return out
}

// temporalPatterns flags clustering of mismatches in trade-date buckets.
func (d *Discoverer) temporalPatterns(f *dataset.Frame) []Pattern {
	if !f.HasColumn(dataset.ColTradeDate) || !f.HasColumn(dataset.ColAnyMismatch) {
		return nil
	}
	counts := map[string]float64{}
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		day, ok := row.String(dataset.ColTradeDate)
		if !ok {
			continue
		}
		if len(day) > 10 {
			day = day[:10] // date bucket of an RFC 3339 timestamp
		}
		if _, seen := counts[day]; !seen {
			counts[day] = 0
		}
		if row.Flag(dataset.ColAnyMismatch) {
			counts[day]++
		}
	}
	if len(counts) < 2 {
		return nil
	}
	perDay := make([]float64, 0, len(counts))
	total := 0
	for _, c := range counts {
		perDay = append(perDay, c)
		total += int(c)
	}
	if sd := stddev(perDay); sd > d.cfg.TemporalStdDev {
		return []Pattern{{
			Description: fmt.Sprintf("Temporal clustering of mismatches across %d trade dates (stddev %.2f)", len(counts), sd),
			Category:    CategoryTemporal,
			Support:     total,
		}}
	}
	return nil
}

// productPatterns flags products whose overall mismatch rate is an outlier.
func (d *Discoverer) productPatterns(f *dataset.Frame) []Pattern {
	if !f.HasColumn(dataset.ColProductType) || !f.HasColumn(dataset.ColAnyMismatch) {
		d.log.Warn("product scan skipped: column missing")
		return nil
	}
	return d.rateOutliers(f, dataset.ColProductType, dataset.ColAnyMismatch,
		CategoryProduct, "High mismatch rate for product type")
}

type groupStat struct {
	n       int
	flagged int
}

// rateOutliers groups rows by byCol and flags groups meeting the configured
// rate threshold with at least MinSupport rows. Group keys are visited in
// sorted order so repeated runs describe patterns identically.
func (d *Discoverer) rateOutliers(f *dataset.Frame, byCol, flagCol, category, prefix string) []Pattern {
	groups := map[string]*groupStat{}
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		key, ok := row.String(byCol)
		if !ok {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &groupStat{}
			groups[key] = g
		}
		g.n++
		if row.Flag(flagCol) {
			g.flagged++
		}
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Pattern
	for _, k := range keys {
		g := groups[k]
		if g.n < d.cfg.MinSupport {
			continue
		}
		rate := float64(g.flagged) / float64(g.n)
		if rate >= d.cfg.MismatchRateThreshold {
			out = append(out, Pattern{
				Description: fmt.Sprintf("%s %s (%.0f%% of %d trades)", prefix, k, rate*100, g.n),
				Category:    category,
				Support:     g.n,
			})
		}
	}
	return out
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
