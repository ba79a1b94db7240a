package store

// schemaVersion1 is the initial run-history schema.
const schemaVersion1 = 1

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersion1

var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at      TEXT NOT NULL,
	dataset         TEXT NOT NULL,
	total           INTEGER NOT NULL,
	pv_mismatches   INTEGER NOT NULL,
	delta_mismatches INTEGER NOT NULL,
	any_mismatches  INTEGER NOT NULL,
	mismatch_rate   REAL NOT NULL
);

-- One row per (run, dimension, label): the append-only audit trail behind
-- the vocabulary's frequency counters.
CREATE TABLE IF NOT EXISTS run_labels (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    INTEGER NOT NULL REFERENCES runs(id),
	dimension TEXT NOT NULL,
	label     TEXT NOT NULL,
	count     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_labels_run ON run_labels(run_id);
CREATE INDEX IF NOT EXISTS idx_run_labels_label ON run_labels(label);
`
