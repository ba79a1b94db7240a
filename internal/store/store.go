// Package store persists the run history: one record per analysis pass plus
// its diagnosis distribution. Domain and CLI code use only the Store
// interface; the implementation is SQLite or in-memory.
package store

import (
	"time"

	"recondiag/internal/recon"
)

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent directory.
const DefaultDBPath = ".recondiag/history.db"

// RunRecord is one analysis pass: when it ran, what it read, and what the
// reconciliation summary was. The diagnosis distributions inside Summary
// are stored as per-label rows so they can be aggregated across runs.
type RunRecord struct {
	ID        int64
	StartedAt time.Time
	Dataset   string
	Summary   recon.Summary
}

// Store is the run-history persistence facade.
type Store interface {
	// SaveRun inserts a run and its diagnosis distribution, returning the
	// new run id.
	SaveRun(rec *RunRecord) (int64, error)
	// GetRun returns the run by id with its distributions populated.
	GetRun(id int64) (*RunRecord, error)
	// RecentRuns returns up to limit runs, newest first.
	RecentRuns(limit int) ([]*RunRecord, error)
	// LabelTotals aggregates diagnosis counts across all recorded runs.
	LabelTotals() (map[string]int, error)
	Close() error
}
