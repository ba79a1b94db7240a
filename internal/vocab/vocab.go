// Package vocab maintains the authoritative diagnosis-label vocabulary:
// the union of the static taxonomy, live rule labels, discovered patterns,
// and historical frequency counts, versioned as immutable snapshots.
package vocab

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"recondiag/internal/dataset"
	"recondiag/internal/discovery"
	"recondiag/internal/lockfile"
	"recondiag/internal/logging"
)

// historicalFrequencyMin is the count past which a historical label is
// considered established enough to offer as a candidate.
const historicalFrequencyMin = 5

// lockWait bounds how long an updater waits for a competing writer.
const lockWait = 10 * time.Second

// PersistenceError reports a snapshot read or write failure. Reads are
// recoverable: the manager falls back to a fresh static-only snapshot.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("vocabulary %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Manager owns the current snapshot and its persistence path.
// Reads are lock-free (snapshots are immutable); updates take an exclusive
// file lock spanning the read-modify-write of the persisted document.
type Manager struct {
	path string
	disc *discovery.Discoverer
	snap *Snapshot
	log  *slog.Logger
}

// NewManager returns a Manager over path. If a snapshot document exists it
// is loaded; a missing or unreadable document degrades to a fresh
// static-taxonomy-only snapshot with a logged warning.
func NewManager(path string, disc *discovery.Discoverer) *Manager {
	m := &Manager{
		path: path,
		disc: disc,
		log:  logging.New("vocab"),
	}
	snap, err := readSnapshot(path)
	if err != nil {
		if !os.IsNotExist(underlying(err)) {
			m.log.Warn("snapshot unreadable, starting from static taxonomy", "path", path, "err", err)
		}
		snap = NewSnapshot()
	}
	m.snap = snap
	return m
}

func underlying(err error) error {
	if pe, ok := err.(*PersistenceError); ok {
		return pe.Err
	}
	return err
}

// Snapshot returns the current immutable snapshot.
func (m *Manager) Snapshot() *Snapshot { return m.snap }

// GenerateLabels returns the ordered, deduplicated candidate label set:
// static taxonomy plus live rule labels, optionally live discovered
// patterns, optionally established historical labels and patterns. Output
// is sorted, so two calls on the same frame and snapshot are identical.
func (m *Manager) GenerateLabels(f *dataset.Frame, ruleLabels []string, includeDiscovered, includeHistorical bool) []string {
	set := map[string]bool{}
	add := func(labels ...string) {
		for _, l := range labels {
			if l != "" {
				set[l] = true
			}
		}
	}

	add(m.snap.staticLabels()...)
	add(ruleLabels...)

	if includeDiscovered && f != nil {
		for _, patterns := range m.disc.Discover(f) {
			for _, p := range patterns {
				add(p.Description)
			}
		}
	}
	if includeHistorical {
		for _, descs := range m.snap.DiscoveredPatterns {
			add(descs...)
		}
		for label, freq := range m.snap.LabelFrequency {
			if freq > historicalFrequencyMin {
				add(label)
			}
		}
	}

	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// UpdateFromAnalysis folds one analysis batch into the vocabulary: label
// frequencies from the rule-engine outputs, newly discovered patterns, and
// a fresh LastUpdate stamp. The new snapshot is persisted atomically under
// the writer lock; on success it replaces the manager's current snapshot.
//
// outputs maps a diagnosis column name to its per-row labels.
func (m *Manager) UpdateFromAnalysis(f *dataset.Frame, outputs map[string][]string) error {
	lock, err := lockfile.Acquire(m.path, lockWait)
	if err != nil {
		return &PersistenceError{Op: "save", Path: m.path, Err: err}
	}
	defer lock.Release()

	// Re-read under the lock: another run may have persisted since this
	// manager loaded its snapshot.
	base, err := readSnapshot(m.path)
	if err != nil {
		if !os.IsNotExist(underlying(err)) {
			m.log.Warn("snapshot unreadable during update, rebuilding", "path", m.path, "err", err)
		}
		base = m.snap
	}

	next := base.clone()
	for _, labels := range outputs {
		for _, label := range labels {
			if label != "" {
				next.LabelFrequency[label]++
			}
		}
	}
	if f != nil {
		for cat, patterns := range m.disc.Discover(f) {
			next.DiscoveredPatterns[cat] = mergePatterns(next.DiscoveredPatterns[cat], patterns)
		}
	}
	next.LastUpdate = time.Now().UTC()

	if err := writeSnapshot(m.path, next); err != nil {
		return err
	}
	m.snap = next
	m.log.Info("vocabulary updated",
		"labels", len(next.LabelFrequency),
		"pattern_categories", len(next.DiscoveredPatterns))
	return nil
}

func mergePatterns(existing []string, found []discovery.Pattern) []string {
	seen := map[string]bool{}
	for _, d := range existing {
		seen[d] = true
	}
	out := existing
	for _, p := range found {
		if !seen[p.Description] {
			seen[p.Description] = true
			out = append(out, p.Description)
		}
	}
	sort.Strings(out)
	return out
}

// LabelCount pairs a label with its observed frequency.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats summarizes vocabulary usage.
type Stats struct {
	TotalUniqueLabels  int            `json:"total_unique_labels"`
	MostFrequentLabels []LabelCount   `json:"most_frequent_labels"`
	LabelFrequency     map[string]int `json:"label_frequency"`
	PatternCategories  []string       `json:"pattern_categories"`
	LastUpdate         time.Time      `json:"last_update"`
}

// Statistics returns usage statistics for the current snapshot. The
// most-frequent list holds at most ten entries, count-descending with
// label order breaking ties.
func (m *Manager) Statistics() Stats {
	s := m.snap
	counts := make([]LabelCount, 0, len(s.LabelFrequency))
	for label, n := range s.LabelFrequency {
		counts = append(counts, LabelCount{label, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	top := counts
	if len(top) > 10 {
		top = top[:10]
	}
	freq := make(map[string]int, len(s.LabelFrequency))
	for k, v := range s.LabelFrequency {
		freq[k] = v
	}
	return Stats{
		TotalUniqueLabels:  len(s.LabelFrequency),
		MostFrequentLabels: top,
		LabelFrequency:     freq,
		PatternCategories:  s.patternCategories(),
		LastUpdate:         s.LastUpdate,
	}
}

func readSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	if s.Version != snapshotSchemaVersion {
		return nil, &PersistenceError{Op: "load", Path: path,
			Err: fmt.Errorf("unsupported snapshot version %d (want %d)", s.Version, snapshotSchemaVersion)}
	}
	if s.StaticTaxonomy == nil {
		s.StaticTaxonomy = StaticTaxonomy()
	}
	if s.LabelFrequency == nil {
		s.LabelFrequency = map[string]int{}
	}
	if s.DiscoveredPatterns == nil {
		s.DiscoveredPatterns = map[string][]string{}
	}
	return &s, nil
}

// writeSnapshot persists atomically: write to a temp sibling, fsync, then
// rename over the target so a crash never leaves a half-written document.
func writeSnapshot(path string, s *Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Op: "save", Path: path, Err: err}
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vocab-*.tmp")
	if err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}
	return nil
}
