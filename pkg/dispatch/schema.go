package dispatch

// SchemaDDL defines the SQLite schema for the workflow runtime database.
// Tables: events (lifecycle log, consumed by KPI reporting) and instances
// (one row per workflow instance).
// Execute against a SQLite database with: db.Exec(SchemaDDL)
const SchemaDDL = `
-- Runtime event log: every routing and phase transition
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY,
    type TEXT NOT NULL,
    source TEXT NOT NULL,
    instance_id TEXT,
    command TEXT,
    payload TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Workflow instance tracking
CREATE TABLE IF NOT EXISTS instances (
    id INTEGER PRIMARY KEY,
    instance_id TEXT NOT NULL,
    workflow_type TEXT NOT NULL,
    command TEXT NOT NULL,
    worktree TEXT,
    status TEXT NOT NULL DEFAULT 'active',
    started_at TEXT NOT NULL DEFAULT (datetime('now')),
    finished_at TEXT
);
`
