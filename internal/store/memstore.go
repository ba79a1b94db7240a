package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests and --db-less runs.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*RunRecord
}

// NewMemStore returns a new in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, runs: map[int64]*RunRecord{}}
}

// SaveRun implements Store.
func (s *MemStore) SaveRun(rec *RunRecord) (int64, error) {
	if rec == nil {
		return 0, errors.New("run record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	cp := cloneRecord(rec)
	cp.ID = id
	s.runs[id] = cp
	rec.ID = id
	return id, nil
}

// GetRun implements Store.
func (s *MemStore) GetRun(id int64) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %d not found", id)
	}
	return cloneRecord(rec), nil
}

// RecentRuns implements Store.
func (s *MemStore) RecentRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var out []*RunRecord
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		out = append(out, cloneRecord(s.runs[id]))
	}
	return out, nil
}

// LabelTotals implements Store.
func (s *MemStore) LabelTotals() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, rec := range s.runs {
		for label, n := range rec.Summary.PVDiagnoses {
			out[label] += n
		}
		for label, n := range rec.Summary.DeltaDiagnoses {
			out[label] += n
		}
	}
	return out, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }

func cloneRecord(rec *RunRecord) *RunRecord {
	cp := *rec
	cp.Summary.PVDiagnoses = map[string]int{}
	for k, v := range rec.Summary.PVDiagnoses {
		cp.Summary.PVDiagnoses[k] = v
	}
	cp.Summary.DeltaDiagnoses = map[string]int{}
	for k, v := range rec.Summary.DeltaDiagnoses {
		cp.Summary.DeltaDiagnoses[k] = v
	}
	return &cp
}
