package vocab

import (
	"sort"
	"time"
)

// snapshotSchemaVersion is the snapshot document version this build reads
// and writes. Loads of any other version fall back to a fresh snapshot.
const snapshotSchemaVersion = 1

// Snapshot is one immutable state of the label vocabulary. Consumers hold
// a reference and never mutate it; updates build a new snapshot and swap.
type Snapshot struct {
	Version            int                 `json:"version"`
	StaticTaxonomy     map[string][]string `json:"static_taxonomy"`
	LabelFrequency     map[string]int      `json:"label_frequency"`
	DiscoveredPatterns map[string][]string `json:"discovered_patterns"`
	LastUpdate         time.Time           `json:"last_update"`
}

// NewSnapshot returns a fresh snapshot holding only the static taxonomy.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:            snapshotSchemaVersion,
		StaticTaxonomy:     StaticTaxonomy(),
		LabelFrequency:     map[string]int{},
		DiscoveredPatterns: map[string][]string{},
	}
}

// clone deep-copies the snapshot so an update never aliases the state a
// concurrent reader already holds.
func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		Version:            s.Version,
		StaticTaxonomy:     make(map[string][]string, len(s.StaticTaxonomy)),
		LabelFrequency:     make(map[string]int, len(s.LabelFrequency)),
		DiscoveredPatterns: make(map[string][]string, len(s.DiscoveredPatterns)),
		LastUpdate:         s.LastUpdate,
	}
	for k, v := range s.StaticTaxonomy {
		c.StaticTaxonomy[k] = append([]string(nil), v...)
	}
	for k, v := range s.LabelFrequency {
		c.LabelFrequency[k] = v
	}
	for k, v := range s.DiscoveredPatterns {
		c.DiscoveredPatterns[k] = append([]string(nil), v...)
	}
	return c
}

// staticLabels returns every taxonomy label once.
func (s *Snapshot) staticLabels() []string {
	var out []string
	for _, labels := range s.StaticTaxonomy {
		out = append(out, labels...)
	}
	return out
}

// patternCategories returns the discovered-pattern categories, sorted.
func (s *Snapshot) patternCategories() []string {
	out := make([]string, 0, len(s.DiscoveredPatterns))
	for cat := range s.DiscoveredPatterns {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
