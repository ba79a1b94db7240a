// Package recon prepares a two-run valuation extract for diagnosis: it
// computes per-dimension diffs, applies desk tolerances to flag mismatches,
// and summarizes the result.
package recon

import (
	"fmt"
	"math"
	"sort"

	"recondiag/internal/dataset"
)

// Tolerances are the absolute thresholds above which a valuation diff
// counts as a mismatch.
type Tolerances struct {
	PV    float64 `yaml:"pv"`
	Delta float64 `yaml:"delta"`
}

// DefaultTolerances returns the desk defaults.
func DefaultTolerances() Tolerances {
	return Tolerances{PV: 1000, Delta: 0.05}
}

// dimension couples the column names of one diff dimension with its
// tolerance.
type dimension struct {
	oldCol, newCol, diffCol, flagCol string
	tol                              float64
}

func dimensions(tol Tolerances) []dimension {
	return []dimension{
		{dataset.ColPVOld, dataset.ColPVNew, dataset.ColPVDiff, dataset.ColPVMismatch, tol.PV},
		{dataset.ColDeltaOld, dataset.ColDeltaNew, dataset.ColDeltaDiff, dataset.ColDeltaMismatch, tol.Delta},
	}
}

// AddDiffFlags computes PV_Diff/Delta_Diff (new minus old) and the
// corresponding mismatch flags, then Any_Mismatch, in place. A diff with a
// null side stays null and its flag is false; rules that key on the null
// side handle those rows. A dimension whose source columns are absent is
// skipped; at least one dimension must be present.
func AddDiffFlags(f *dataset.Frame, tol Tolerances) error {
	applied := 0
	var flagCols []string
	for _, dim := range dimensions(tol) {
		if !f.HasColumn(dim.oldCol) && !f.HasColumn(dim.newCol) {
			continue
		}
		applied++
		f.EnsureColumn(dim.diffCol)
		f.EnsureColumn(dim.flagCol)
		flagCols = append(flagCols, dim.flagCol)
		for i := 0; i < f.Len(); i++ {
			row := f.Row(i)
			oldV, okOld := row.Number(dim.oldCol)
			newV, okNew := row.Number(dim.newCol)
			if !okOld || !okNew {
				row[dim.diffCol] = dataset.Null()
				row[dim.flagCol] = dataset.Bool(false)
				continue
			}
			diff := newV - oldV
			row[dim.diffCol] = dataset.Number(diff)
			row[dim.flagCol] = dataset.Bool(math.Abs(diff) > dim.tol)
		}
	}
	if applied == 0 {
		return fmt.Errorf("recon: no valuation columns found (need %s/%s or %s/%s)",
			dataset.ColPVOld, dataset.ColPVNew, dataset.ColDeltaOld, dataset.ColDeltaNew)
	}

	f.EnsureColumn(dataset.ColAnyMismatch)
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		any := false
		for _, c := range flagCols {
			any = any || row.Flag(c)
		}
		row[dataset.ColAnyMismatch] = dataset.Bool(any)
	}
	return nil
}

// Summary is the reconciliation digest of one analyzed dataset.
type Summary struct {
	Total           int            `json:"total"`
	PVMismatches    int            `json:"pv_mismatches"`
	DeltaMismatches int            `json:"delta_mismatches"`
	AnyMismatches   int            `json:"any_mismatches"`
	MismatchRate    float64        `json:"mismatch_rate"`
	PVDiagnoses     map[string]int `json:"pv_diagnoses,omitempty"`
	DeltaDiagnoses  map[string]int `json:"delta_diagnoses,omitempty"`
}

// Summarize counts mismatches and tallies the diagnosis distribution of a
// frame that has been through AddDiffFlags (and, if diagnosed, the rule
// engine).
func Summarize(f *dataset.Frame) Summary {
	s := Summary{
		Total:          f.Len(),
		PVDiagnoses:    map[string]int{},
		DeltaDiagnoses: map[string]int{},
	}
	for i := 0; i < f.Len(); i++ {
		row := f.Row(i)
		if row.Flag(dataset.ColPVMismatch) {
			s.PVMismatches++
		}
		if row.Flag(dataset.ColDeltaMismatch) {
			s.DeltaMismatches++
		}
		if row.Flag(dataset.ColAnyMismatch) {
			s.AnyMismatches++
		}
		if d, ok := row.String(dataset.ColPVDiagnosis); ok && d != "" {
			s.PVDiagnoses[d]++
		}
		if d, ok := row.String(dataset.ColDeltaDiagnosis); ok && d != "" {
			s.DeltaDiagnoses[d]++
		}
	}
	if s.Total > 0 {
		s.MismatchRate = float64(s.AnyMismatches) / float64(s.Total)
	}
	return s
}

// DiagnosisCounts flattens a diagnosis tally into deterministic order:
// count descending, label ascending.
func DiagnosisCounts(m map[string]int) []LabelCount {
	out := make([]LabelCount, 0, len(m))
	for label, n := range m {
		out = append(out, LabelCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// LabelCount is one diagnosis label with its row count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}
