// Package store provides SQL-backed persistence for rule sets,
// approval matrices, SLA configuration and evaluation records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ictserve/ictserve/internal/domain"
)

// SQLStore implements domain.Store using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLStore struct {
	db     *sql.DB
	driver string

	// validateRule augments Rule.Validate with engine-level checks
	// (CEL expression compilation). Optional.
	validateRule func(*domain.Rule) error
}

// New creates a new store based on configuration.
func New(cfg domain.StoreConfig) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &SQLStore{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// SetRuleValidator installs an additional validation hook applied on
// every rule save and import, before any write.
func (s *SQLStore) SetRuleValidator(fn func(*domain.Rule) error) {
	s.validateRule = fn
}

func (s *SQLStore) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// ---- rule set ----

// GetRules retrieves all rules of a module, enabled and disabled,
// ordered by priority descending then insertion sequence.
func (s *SQLStore) GetRules(ctx context.Context, module domain.Module) ([]*domain.Rule, error) {
	if !module.Valid() {
		return nil, fmt.Errorf("%w: module %q", domain.ErrInvalidInput, module)
	}

	query := `
		SELECT id, module, name, description, priority, enabled,
		       conditions, actions, expression, seq, created_at, updated_at
		FROM rules
		WHERE module = ?
		ORDER BY priority DESC, seq ASC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// GetRule retrieves one rule by id.
func (s *SQLStore) GetRule(ctx context.Context, module domain.Module, ruleID string) (*domain.Rule, error) {
	query := `
		SELECT id, module, name, description, priority, enabled,
		       conditions, actions, expression, seq, created_at, updated_at
		FROM rules
		WHERE module = ? AND id = ?
	`

	row := s.db.QueryRowContext(ctx, s.rebind(query), module, ruleID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// SaveRule creates or updates a rule by id. Validation runs before any
// write; the insertion sequence and creation time are preserved on
// update.
func (s *SQLStore) SaveRule(ctx context.Context, rule *domain.Rule) (*domain.Rule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if s.validateRule != nil {
		if err := s.validateRule(rule); err != nil {
			return nil, err
		}
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rule.UpdatedAt = now
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.Seq == 0 {
		rule.Seq = now.UnixNano()
	}

	conditions, _ := json.Marshal(rule.Conditions)
	actions, _ := json.Marshal(rule.Actions)

	query := `
		INSERT INTO rules (
			id, module, name, description, priority, enabled,
			conditions, actions, expression, seq, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(module, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			priority = excluded.priority,
			enabled = excluded.enabled,
			conditions = excluded.conditions,
			actions = excluded.actions,
			expression = excluded.expression,
			seq = rules.seq,
			created_at = rules.created_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		rule.ID, rule.Module, rule.Name, rule.Description,
		rule.Priority, boolToInt(rule.Enabled),
		string(conditions), string(actions), rule.Expression,
		rule.Seq, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// On update the conflict clause keeps the row's original seq and
	// created_at; read them back so the returned rule matches the row.
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT seq, created_at FROM rules WHERE module = ? AND id = ?`),
		rule.Module, rule.ID,
	)
	if err := row.Scan(&rule.Seq, &rule.CreatedAt); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule. A missing id reports ErrNotFound so a
// delete/update race surfaces as a named error, not a silent no-op.
func (s *SQLStore) DeleteRule(ctx context.Context, module domain.Module, ruleID string) error {
	query := `DELETE FROM rules WHERE module = ? AND id = ?`
	result, err := s.db.ExecContext(ctx, s.rebind(query), module, ruleID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RuleSetDocument is the pretty-printed export format for a module's
// full rule set.
type RuleSetDocument struct {
	Module     domain.Module  `json:"module"`
	ExportedAt time.Time      `json:"exportedAt"`
	Rules      []*domain.Rule `json:"rules"`
}

// ExportRules serializes the module's rule set as a pretty-printed
// JSON document.
func (s *SQLStore) ExportRules(ctx context.Context, module domain.Module) ([]byte, error) {
	rules, err := s.GetRules(ctx, module)
	if err != nil {
		return nil, err
	}
	doc := RuleSetDocument{
		Module:     module,
		ExportedAt: time.Now().UTC(),
		Rules:      rules,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ImportRules replaces the module's rule set with the document's
// contents. The document is strictly parsed and fully validated before
// the store is touched; the replace happens in one transaction.
func (s *SQLStore) ImportRules(ctx context.Context, module domain.Module, doc []byte) error {
	var parsed RuleSetDocument
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	if parsed.Module != "" && parsed.Module != module {
		return domain.NewValidationError("module",
			"document is for module %q, import targets %q", parsed.Module, module)
	}

	base := time.Now().UTC()
	for i, rule := range parsed.Rules {
		rule.Module = module
		if rule.ID == "" {
			rule.ID = uuid.New().String()
		}
		// Document order becomes insertion order for tie-breaking.
		rule.Seq = base.UnixNano() + int64(i)
		if err := rule.Validate(); err != nil {
			return err
		}
		if s.validateRule != nil {
			if err := s.validateRule(rule); err != nil {
				return err
			}
		}
	}

	return s.replaceRules(ctx, module, parsed.Rules, base)
}

// ResetRules replaces the module's rule set with the compiled-in
// defaults.
func (s *SQLStore) ResetRules(ctx context.Context, module domain.Module) error {
	return s.replaceRules(ctx, module, DefaultRules(module), time.Now().UTC())
}

func (s *SQLStore) replaceRules(ctx context.Context, module domain.Module, rules []*domain.Rule, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM rules WHERE module = ?`), module); err != nil {
		return err
	}

	insert := s.rebind(`
		INSERT INTO rules (
			id, module, name, description, priority, enabled,
			conditions, actions, expression, seq, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for i, rule := range rules {
		if rule.Seq == 0 {
			rule.Seq = now.UnixNano() + int64(i)
		}
		createdAt := rule.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		conditions, _ := json.Marshal(rule.Conditions)
		actions, _ := json.Marshal(rule.Actions)
		if _, err := tx.ExecContext(ctx, insert,
			rule.ID, module, rule.Name, rule.Description,
			rule.Priority, boolToInt(rule.Enabled),
			string(conditions), string(actions), rule.Expression,
			rule.Seq, createdAt, now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ---- approval matrix ----

// GetApprovalRules retrieves a module's approval rules in priority order.
func (s *SQLStore) GetApprovalRules(ctx context.Context, module domain.Module) ([]*domain.ApprovalRule, error) {
	query := `
		SELECT id, module, name, description, priority, enabled,
		       asset_value_min, asset_value_max, asset_categories,
		       applicant_grade_min, applicant_grade_max,
		       duration_days_min, duration_days_max,
		       approver_roles, approver_grades, approval_level,
		       required, auto_approve, seq, created_at, updated_at
		FROM approval_rules
		WHERE module = ?
		ORDER BY priority DESC, seq ASC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ApprovalRule
	for rows.Next() {
		rule, err := scanApprovalRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// GetApprovalRule retrieves one approval rule by id.
func (s *SQLStore) GetApprovalRule(ctx context.Context, module domain.Module, ruleID string) (*domain.ApprovalRule, error) {
	query := `
		SELECT id, module, name, description, priority, enabled,
		       asset_value_min, asset_value_max, asset_categories,
		       applicant_grade_min, applicant_grade_max,
		       duration_days_min, duration_days_max,
		       approver_roles, approver_grades, approval_level,
		       required, auto_approve, seq, created_at, updated_at
		FROM approval_rules
		WHERE module = ? AND id = ?
	`

	row := s.db.QueryRowContext(ctx, s.rebind(query), module, ruleID)
	rule, err := scanApprovalRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// SaveApprovalRule creates or updates an approval rule by id.
func (s *SQLStore) SaveApprovalRule(ctx context.Context, rule *domain.ApprovalRule) (*domain.ApprovalRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rule.UpdatedAt = now
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	if rule.Seq == 0 {
		rule.Seq = now.UnixNano()
	}

	categories, _ := json.Marshal(rule.AssetCategories)
	roles, _ := json.Marshal(rule.ApproverRoles)
	grades, _ := json.Marshal(rule.ApproverGrades)

	query := `
		INSERT INTO approval_rules (
			id, module, name, description, priority, enabled,
			asset_value_min, asset_value_max, asset_categories,
			applicant_grade_min, applicant_grade_max,
			duration_days_min, duration_days_max,
			approver_roles, approver_grades, approval_level,
			required, auto_approve, seq, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(module, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			priority = excluded.priority,
			enabled = excluded.enabled,
			asset_value_min = excluded.asset_value_min,
			asset_value_max = excluded.asset_value_max,
			asset_categories = excluded.asset_categories,
			applicant_grade_min = excluded.applicant_grade_min,
			applicant_grade_max = excluded.applicant_grade_max,
			duration_days_min = excluded.duration_days_min,
			duration_days_max = excluded.duration_days_max,
			approver_roles = excluded.approver_roles,
			approver_grades = excluded.approver_grades,
			approval_level = excluded.approval_level,
			required = excluded.required,
			auto_approve = excluded.auto_approve,
			seq = approval_rules.seq,
			created_at = approval_rules.created_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, s.rebind(query),
		rule.ID, rule.Module, rule.Name, rule.Description,
		rule.Priority, boolToInt(rule.Enabled),
		nullFloat(rule.AssetValueMin), nullFloat(rule.AssetValueMax), string(categories),
		nullInt(rule.ApplicantGradeMin), nullInt(rule.ApplicantGradeMax),
		nullInt(rule.DurationDaysMin), nullInt(rule.DurationDaysMax),
		string(roles), string(grades), rule.ApprovalLevel,
		boolToInt(rule.Required), boolToInt(rule.AutoApprove),
		rule.Seq, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT seq, created_at FROM approval_rules WHERE module = ? AND id = ?`),
		rule.Module, rule.ID,
	)
	if err := row.Scan(&rule.Seq, &rule.CreatedAt); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteApprovalRule removes an approval rule.
func (s *SQLStore) DeleteApprovalRule(ctx context.Context, module domain.Module, ruleID string) error {
	query := `DELETE FROM approval_rules WHERE module = ? AND id = ?`
	result, err := s.db.ExecContext(ctx, s.rebind(query), module, ruleID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApprovalSetDocument is the export format for a module's approval matrix.
type ApprovalSetDocument struct {
	Module     domain.Module          `json:"module"`
	ExportedAt time.Time              `json:"exportedAt"`
	Rules      []*domain.ApprovalRule `json:"rules"`
}

// ExportApprovalRules serializes the module's approval matrix.
func (s *SQLStore) ExportApprovalRules(ctx context.Context, module domain.Module) ([]byte, error) {
	rules, err := s.GetApprovalRules(ctx, module)
	if err != nil {
		return nil, err
	}
	doc := ApprovalSetDocument{
		Module:     module,
		ExportedAt: time.Now().UTC(),
		Rules:      rules,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ImportApprovalRules replaces the module's approval matrix from a
// document, validating everything before any write.
func (s *SQLStore) ImportApprovalRules(ctx context.Context, module domain.Module, doc []byte) error {
	var parsed ApprovalSetDocument
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	if parsed.Module != "" && parsed.Module != module {
		return domain.NewValidationError("module",
			"document is for module %q, import targets %q", parsed.Module, module)
	}

	base := time.Now().UTC()
	for i, rule := range parsed.Rules {
		rule.Module = module
		if rule.ID == "" {
			rule.ID = uuid.New().String()
		}
		rule.Seq = base.UnixNano() + int64(i)
		if err := rule.Validate(); err != nil {
			return err
		}
	}

	return s.replaceApprovalRules(ctx, module, parsed.Rules, base)
}

// ResetApprovalRules restores the compiled-in default matrix.
func (s *SQLStore) ResetApprovalRules(ctx context.Context, module domain.Module) error {
	return s.replaceApprovalRules(ctx, module, DefaultApprovalRules(module), time.Now().UTC())
}

func (s *SQLStore) replaceApprovalRules(ctx context.Context, module domain.Module, rules []*domain.ApprovalRule, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM approval_rules WHERE module = ?`), module); err != nil {
		return err
	}

	insert := s.rebind(`
		INSERT INTO approval_rules (
			id, module, name, description, priority, enabled,
			asset_value_min, asset_value_max, asset_categories,
			applicant_grade_min, applicant_grade_max,
			duration_days_min, duration_days_max,
			approver_roles, approver_grades, approval_level,
			required, auto_approve, seq, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for i, rule := range rules {
		if rule.Seq == 0 {
			rule.Seq = now.UnixNano() + int64(i)
		}
		createdAt := rule.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		categories, _ := json.Marshal(rule.AssetCategories)
		roles, _ := json.Marshal(rule.ApproverRoles)
		grades, _ := json.Marshal(rule.ApproverGrades)
		if _, err := tx.ExecContext(ctx, insert,
			rule.ID, module, rule.Name, rule.Description,
			rule.Priority, boolToInt(rule.Enabled),
			nullFloat(rule.AssetValueMin), nullFloat(rule.AssetValueMax), string(categories),
			nullInt(rule.ApplicantGradeMin), nullInt(rule.ApplicantGradeMax),
			nullInt(rule.DurationDaysMin), nullInt(rule.DurationDaysMax),
			string(roles), string(grades), rule.ApprovalLevel,
			boolToInt(rule.Required), boolToInt(rule.AutoApprove),
			rule.Seq, createdAt, now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ---- SLA configuration ----

// GetSLAConfig retrieves the module's SLA aggregate.
func (s *SQLStore) GetSLAConfig(ctx context.Context, module domain.Module) (*domain.SLAConfig, error) {
	query := `SELECT config FROM sla_configs WHERE module = ?`

	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(query), module).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg domain.SLAConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse SLA config for %s: %w", module, err)
	}
	return &cfg, nil
}

// SaveSLAConfig validates and atomically replaces the module's SLA
// aggregate.
func (s *SQLStore) SaveSLAConfig(ctx context.Context, cfg *domain.SLAConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sla_configs (module, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(module) DO UPDATE SET
			config = excluded.config,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query), cfg.Module, string(raw), time.Now().UTC())
	return err
}

// ExportSLAConfig serializes the module's SLA aggregate.
func (s *SQLStore) ExportSLAConfig(ctx context.Context, module domain.Module) ([]byte, error) {
	cfg, err := s.GetSLAConfig(ctx, module)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// ImportSLAConfig replaces the module's SLA aggregate from a document.
func (s *SQLStore) ImportSLAConfig(ctx context.Context, module domain.Module, doc []byte) error {
	var cfg domain.SLAConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	if cfg.Module == "" {
		cfg.Module = module
	}
	if cfg.Module != module {
		return domain.NewValidationError("module",
			"document is for module %q, import targets %q", cfg.Module, module)
	}
	return s.SaveSLAConfig(ctx, &cfg)
}

// ResetSLAConfig restores the compiled-in default SLA configuration.
func (s *SQLStore) ResetSLAConfig(ctx context.Context, module domain.Module) error {
	return s.SaveSLAConfig(ctx, DefaultSLAConfig(module))
}

// ---- targets, evaluations, notifications, deliveries ----

// SaveTarget creates or updates a target record.
func (s *SQLStore) SaveTarget(ctx context.Context, target *domain.Target) error {
	if target.ID == "" {
		return fmt.Errorf("%w: target id is required", domain.ErrInvalidInput)
	}
	attributes, _ := json.Marshal(target.Attributes)
	now := time.Now().UTC()
	if target.CreatedAt.IsZero() {
		target.CreatedAt = now
	}
	if target.UpdatedAt.IsZero() {
		target.UpdatedAt = now
	}

	query := `
		INSERT INTO targets (
			id, module, title, status, priority, category,
			assignee_id, requester_email, attributes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(module, id) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			priority = excluded.priority,
			category = excluded.category,
			assignee_id = excluded.assignee_id,
			requester_email = excluded.requester_email,
			attributes = excluded.attributes,
			created_at = targets.created_at,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		target.ID, target.Module, target.Title, target.Status,
		string(target.Priority), target.Category,
		target.AssigneeID, target.RequesterEmail,
		string(attributes), target.CreatedAt, target.UpdatedAt,
	)
	return err
}

// GetTarget retrieves a target by id.
func (s *SQLStore) GetTarget(ctx context.Context, module domain.Module, targetID string) (*domain.Target, error) {
	query := `
		SELECT id, module, title, status, priority, category,
		       assignee_id, requester_email, attributes, created_at, updated_at
		FROM targets
		WHERE module = ? AND id = ?
	`

	var t domain.Target
	var priority, attributes string

	err := s.db.QueryRowContext(ctx, s.rebind(query), module, targetID).Scan(
		&t.ID, &t.Module, &t.Title, &t.Status, &priority, &t.Category,
		&t.AssigneeID, &t.RequesterEmail, &attributes, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	t.Priority = domain.TicketPriority(priority)
	if attributes != "" {
		json.Unmarshal([]byte(attributes), &t.Attributes)
	}
	return &t, nil
}

// ListOpenTargets returns targets not yet in a terminal status, oldest
// first so the escalation sweeper sees the most overdue work first.
func (s *SQLStore) ListOpenTargets(ctx context.Context, module domain.Module) ([]*domain.Target, error) {
	query := `
		SELECT id, module, title, status, priority, category,
		       assignee_id, requester_email, attributes, created_at, updated_at
		FROM targets
		WHERE module = ? AND status NOT IN ('closed', 'resolved', 'returned', 'rejected')
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*domain.Target
	for rows.Next() {
		var t domain.Target
		var priority, attributes string
		if err := rows.Scan(
			&t.ID, &t.Module, &t.Title, &t.Status, &priority, &t.Category,
			&t.AssigneeID, &t.RequesterEmail, &attributes, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		t.Priority = domain.TicketPriority(priority)
		if attributes != "" {
			json.Unmarshal([]byte(attributes), &t.Attributes)
		}
		targets = append(targets, &t)
	}
	return targets, rows.Err()
}

// SaveEvaluation stores an evaluation record.
func (s *SQLStore) SaveEvaluation(ctx context.Context, eval *domain.Evaluation) error {
	matches, _ := json.Marshal(eval.Matches)
	outcomes, _ := json.Marshal(eval.Outcomes)
	metadata, _ := json.Marshal(eval.Metadata)

	query := `
		INSERT INTO evaluations (
			id, module, target_id, timestamp, matches, outcomes, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		eval.ID, eval.Module, eval.TargetID, eval.Timestamp,
		string(matches), string(outcomes), string(metadata),
	)
	return err
}

// GetEvaluation retrieves an evaluation record by id.
func (s *SQLStore) GetEvaluation(ctx context.Context, module domain.Module, evalID string) (*domain.Evaluation, error) {
	query := `
		SELECT id, module, target_id, timestamp, matches, outcomes, metadata
		FROM evaluations
		WHERE module = ? AND id = ?
	`

	var eval domain.Evaluation
	var matches, outcomes, metadata string

	err := s.db.QueryRowContext(ctx, s.rebind(query), module, evalID).Scan(
		&eval.ID, &eval.Module, &eval.TargetID, &eval.Timestamp,
		&matches, &outcomes, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(matches), &eval.Matches)
	json.Unmarshal([]byte(outcomes), &eval.Outcomes)
	json.Unmarshal([]byte(metadata), &eval.Metadata)
	return &eval, nil
}

// SaveNotification stores a notification created by the dispatcher.
func (s *SQLStore) SaveNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, module, target_id, recipient, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		n.ID, n.Module, n.TargetID, n.Recipient, n.Message, n.CreatedAt,
	)
	return err
}

// ListNotifications retrieves notifications for a target, newest first.
func (s *SQLStore) ListNotifications(ctx context.Context, module domain.Module, targetID string) ([]*domain.Notification, error) {
	query := `
		SELECT id, module, target_id, recipient, message, created_at
		FROM notifications
		WHERE module = ? AND target_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), module, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Module, &n.TargetID, &n.Recipient, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// RecordDelivery appends to the async delivery log.
func (s *SQLStore) RecordDelivery(ctx context.Context, d *domain.Delivery) error {
	query := `
		INSERT INTO deliveries (id, module, target_id, kind, recipient, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		d.ID, d.Module, d.TargetID, d.Kind, d.Recipient, d.Payload, d.CreatedAt,
	)
	return err
}

// ClearCache is a no-op on the SQL layer; the caching decorator in
// this package overrides it.
func (s *SQLStore) ClearCache(ctx context.Context, module domain.Module) error {
	return nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ---- scan helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var rule domain.Rule
	var conditions, actions string
	var expression sql.NullString
	var enabled int

	err := row.Scan(
		&rule.ID, &rule.Module, &rule.Name, &rule.Description,
		&rule.Priority, &enabled, &conditions, &actions,
		&expression, &rule.Seq, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	rule.Expression = expression.String
	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to parse conditions for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(actions), &rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to parse actions for rule %s: %w", rule.ID, err)
	}
	return &rule, nil
}

func scanApprovalRule(row rowScanner) (*domain.ApprovalRule, error) {
	var rule domain.ApprovalRule
	var categories, roles, grades sql.NullString
	var valueMin, valueMax sql.NullFloat64
	var gradeMin, gradeMax, durMin, durMax sql.NullInt64
	var enabled, required, autoApprove int

	err := row.Scan(
		&rule.ID, &rule.Module, &rule.Name, &rule.Description,
		&rule.Priority, &enabled,
		&valueMin, &valueMax, &categories,
		&gradeMin, &gradeMax, &durMin, &durMax,
		&roles, &grades, &rule.ApprovalLevel,
		&required, &autoApprove, &rule.Seq, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	rule.Required = required == 1
	rule.AutoApprove = autoApprove == 1
	rule.AssetValueMin = floatPtr(valueMin)
	rule.AssetValueMax = floatPtr(valueMax)
	rule.ApplicantGradeMin = intPtr(gradeMin)
	rule.ApplicantGradeMax = intPtr(gradeMax)
	rule.DurationDaysMin = intPtr(durMin)
	rule.DurationDaysMax = intPtr(durMax)

	if categories.Valid && categories.String != "" {
		json.Unmarshal([]byte(categories.String), &rule.AssetCategories)
	}
	if roles.Valid && roles.String != "" {
		json.Unmarshal([]byte(roles.String), &rule.ApproverRoles)
	}
	if grades.Valid && grades.String != "" {
		json.Unmarshal([]byte(grades.String), &rule.ApproverGrades)
	}
	return &rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
