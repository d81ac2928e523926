package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "nodes: memory units",
		SQL: `
CREATE TABLE nodes (
    id           TEXT PRIMARY KEY,
    node_type    TEXT NOT NULL,
    label        TEXT NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    activation   REAL NOT NULL DEFAULT 0 CHECK (activation BETWEEN 0 AND 1),
    salience     REAL NOT NULL DEFAULT 0 CHECK (salience BETWEEN 0 AND 1),
    threshold    REAL,
    archived     INTEGER NOT NULL DEFAULT 0,
    last_active  INTEGER,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

CREATE INDEX idx_nodes_type     ON nodes(node_type);
CREATE INDEX idx_nodes_archived ON nodes(archived);
`,
	},
	{
		Version:     2,
		Description: "synapses: weighted typed links",
		SQL: `
CREATE TABLE synapses (
    id             INTEGER PRIMARY KEY,
    source         TEXT NOT NULL,
    target         TEXT NOT NULL,
    weight         REAL NOT NULL,
    synapse_type   TEXT NOT NULL DEFAULT 'association',
    co_activation  INTEGER NOT NULL DEFAULT 0,
    metadata       TEXT,
    created_at     INTEGER NOT NULL
);

CREATE INDEX idx_synapses_source ON synapses(source);
CREATE INDEX idx_synapses_target ON synapses(target);
`,
	},
	{
		Version:     3,
		Description: "hyperedges: higher-order groupings",
		SQL: `
CREATE TABLE hyperedges (
    id          TEXT PRIMARY KEY,
    members     TEXT NOT NULL,
    weight      REAL NOT NULL,
    salience    REAL NOT NULL,
    label       TEXT NOT NULL DEFAULT '',
    he_type     TEXT NOT NULL DEFAULT '',
    source      TEXT NOT NULL,
    context     TEXT NOT NULL DEFAULT '',
    position    INTEGER NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE INDEX idx_hyperedges_context ON hyperedges(context);
`,
	},
	{
		Version:     4,
		Description: "snapshots: save history",
		SQL: `
CREATE TABLE snapshots (
    id          INTEGER PRIMARY KEY,
    phase       TEXT NOT NULL,
    nodes       INTEGER NOT NULL,
    synapses    INTEGER NOT NULL,
    hyperedges  INTEGER NOT NULL,
    created_at  INTEGER NOT NULL
);

CREATE INDEX idx_snapshots_created ON snapshots(created_at DESC);
`,
	},
	{
		Version:     5,
		Description: "snapshots: query count for the consolidation cadence",
		SQL: `
ALTER TABLE snapshots ADD COLUMN queries INTEGER NOT NULL DEFAULT 0;
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.apply(m); err != nil {
			return err
		}
	}
	return nil
}

// apply runs one migration and records it in the same transaction.
func (db *DB) apply(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
