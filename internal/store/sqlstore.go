package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"recondiag/internal/recon"

	_ "modernc.org/sqlite"
)

// Dimension keys used in run_labels rows.
const (
	dimensionPV    = "pv"
	dimensionDelta = "delta"
)

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory if it does not exist.
func Open(path string) (*SqlStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d (want %d)", v, currentSchemaVersion)
	}
	return nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

// SaveRun implements Store. The run row and its distribution rows are
// written in one transaction.
func (s *SqlStore) SaveRun(rec *RunRecord) (int64, error) {
	if rec == nil {
		return 0, errors.New("run record is nil")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO runs(started_at, dataset, total, pv_mismatches, delta_mismatches, any_mismatches, mismatch_rate)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.Dataset,
		rec.Summary.Total,
		rec.Summary.PVMismatches,
		rec.Summary.DeltaMismatches,
		rec.Summary.AnyMismatches,
		rec.Summary.MismatchRate,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, dim := range []struct {
		name   string
		counts map[string]int
	}{
		{dimensionPV, rec.Summary.PVDiagnoses},
		{dimensionDelta, rec.Summary.DeltaDiagnoses},
	} {
		for _, lc := range recon.DiagnosisCounts(dim.counts) {
			if _, err := tx.Exec(
				"INSERT INTO run_labels(run_id, dimension, label, count) VALUES(?, ?, ?, ?)",
				id, dim.name, lc.Label, lc.Count,
			); err != nil {
				return 0, fmt.Errorf("insert run label: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	rec.ID = id
	return id, nil
}

// GetRun implements Store.
func (s *SqlStore) GetRun(id int64) (*RunRecord, error) {
	rec, err := s.scanRun(s.db.QueryRow(
		"SELECT id, started_at, dataset, total, pv_mismatches, delta_mismatches, any_mismatches, mismatch_rate FROM runs WHERE id = ?",
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadLabels(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecentRuns implements Store.
func (s *SqlStore) RecentRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		"SELECT id, started_at, dataset, total, pv_mismatches, delta_mismatches, any_mismatches, mismatch_rate FROM runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		rec, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	for _, rec := range out {
		if err := s.loadLabels(rec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LabelTotals implements Store.
func (s *SqlStore) LabelTotals() (map[string]int, error) {
	rows, err := s.db.Query("SELECT label, SUM(count) FROM run_labels GROUP BY label")
	if err != nil {
		return nil, fmt.Errorf("aggregate labels: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan label total: %w", err)
		}
		out[label] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SqlStore) scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	var started string
	err := row.Scan(
		&rec.ID, &started, &rec.Dataset,
		&rec.Summary.Total,
		&rec.Summary.PVMismatches,
		&rec.Summary.DeltaMismatches,
		&rec.Summary.AnyMismatches,
		&rec.Summary.MismatchRate,
	)
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	rec.StartedAt = t
	return &rec, nil
}

func (s *SqlStore) loadLabels(rec *RunRecord) error {
	rows, err := s.db.Query(
		"SELECT dimension, label, count FROM run_labels WHERE run_id = ?", rec.ID,
	)
	if err != nil {
		return fmt.Errorf("load run labels: %w", err)
	}
	defer rows.Close()

	rec.Summary.PVDiagnoses = map[string]int{}
	rec.Summary.DeltaDiagnoses = map[string]int{}
	for rows.Next() {
		var dim, label string
		var n int
		if err := rows.Scan(&dim, &label, &n); err != nil {
			return fmt.Errorf("scan run label: %w", err)
		}
		switch dim {
		case dimensionPV:
			rec.Summary.PVDiagnoses[label] = n
		case dimensionDelta:
			rec.Summary.DeltaDiagnoses[label] = n
		}
	}
	return rows.Err()
}
