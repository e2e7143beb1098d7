package store

// Schema definitions for the ICTServe configuration store.
// Compatible with both SQLite and PostgreSQL.

const schemaRules = `
CREATE TABLE IF NOT EXISTS rules (
    id TEXT NOT NULL,
    module TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    priority INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    conditions TEXT NOT NULL,
    actions TEXT NOT NULL,
    expression TEXT,
    seq BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (module, id)
);

CREATE INDEX IF NOT EXISTS idx_rules_module ON rules(module);
CREATE INDEX IF NOT EXISTS idx_rules_enabled ON rules(module, enabled);
`

const schemaApprovalRules = `
CREATE TABLE IF NOT EXISTS approval_rules (
    id TEXT NOT NULL,
    module TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    priority INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    asset_value_min REAL,
    asset_value_max REAL,
    asset_categories TEXT,
    applicant_grade_min INTEGER,
    applicant_grade_max INTEGER,
    duration_days_min INTEGER,
    duration_days_max INTEGER,
    approver_roles TEXT NOT NULL,
    approver_grades TEXT,
    approval_level INTEGER NOT NULL DEFAULT 1,
    required INTEGER NOT NULL DEFAULT 1,
    auto_approve INTEGER NOT NULL DEFAULT 0,
    seq BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (module, id)
);

CREATE INDEX IF NOT EXISTS idx_approval_rules_module ON approval_rules(module);
CREATE INDEX IF NOT EXISTS idx_approval_rules_enabled ON approval_rules(module, enabled);
`

// sla_configs holds the whole per-module SLA aggregate as one JSON
// document: a save replaces the configuration atomically, which is the
// admin surface's no-partial-save contract.
const schemaSLAConfigs = `
CREATE TABLE IF NOT EXISTS sla_configs (
    module TEXT PRIMARY KEY,
    config TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaTargets = `
CREATE TABLE IF NOT EXISTS targets (
    id TEXT NOT NULL,
    module TEXT NOT NULL,
    title TEXT,
    status TEXT NOT NULL,
    priority TEXT,
    category TEXT,
    assignee_id TEXT,
    requester_email TEXT,
    attributes TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (module, id)
);

CREATE INDEX IF NOT EXISTS idx_targets_module ON targets(module);
CREATE INDEX IF NOT EXISTS idx_targets_status ON targets(module, status);
`

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    module TEXT NOT NULL,
    target_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    matches TEXT NOT NULL,
    outcomes TEXT,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_module ON evaluations(module);
CREATE INDEX IF NOT EXISTS idx_evaluations_target ON evaluations(module, target_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(module, timestamp);
`

const schemaNotifications = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    module TEXT NOT NULL,
    target_id TEXT NOT NULL,
    recipient TEXT,
    message TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_target ON notifications(module, target_id);
`

const schemaDeliveries = `
CREATE TABLE IF NOT EXISTS deliveries (
    id TEXT PRIMARY KEY,
    module TEXT NOT NULL,
    target_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    recipient TEXT,
    payload TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_module ON deliveries(module, kind);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRules,
		schemaApprovalRules,
		schemaSLAConfigs,
		schemaTargets,
		schemaEvaluations,
		schemaNotifications,
		schemaDeliveries,
	}
}
