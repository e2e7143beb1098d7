package domain

import (
	"context"
	"time"
)

// Store defines the interface for configuration and record persistence.
// Each module owns one configuration aggregate; saves replace whole
// records, imports replace the whole set atomically. Reads may be
// served from a cache in front of the store; ClearCache drops that
// view and must complete before the reload that follows it.
type Store interface {
	// Rule set, ordered by priority desc then insertion sequence.
	GetRules(ctx context.Context, module Module) ([]*Rule, error)
	GetRule(ctx context.Context, module Module, ruleID string) (*Rule, error)
	SaveRule(ctx context.Context, rule *Rule) (*Rule, error)
	DeleteRule(ctx context.Context, module Module, ruleID string) error
	ExportRules(ctx context.Context, module Module) ([]byte, error)
	ImportRules(ctx context.Context, module Module, doc []byte) error
	ResetRules(ctx context.Context, module Module) error

	// Approval matrix.
	GetApprovalRules(ctx context.Context, module Module) ([]*ApprovalRule, error)
	GetApprovalRule(ctx context.Context, module Module, ruleID string) (*ApprovalRule, error)
	SaveApprovalRule(ctx context.Context, rule *ApprovalRule) (*ApprovalRule, error)
	DeleteApprovalRule(ctx context.Context, module Module, ruleID string) error
	ExportApprovalRules(ctx context.Context, module Module) ([]byte, error)
	ImportApprovalRules(ctx context.Context, module Module, doc []byte) error
	ResetApprovalRules(ctx context.Context, module Module) error

	// SLA aggregate (categories + escalation + business hours + alerts).
	GetSLAConfig(ctx context.Context, module Module) (*SLAConfig, error)
	SaveSLAConfig(ctx context.Context, cfg *SLAConfig) error
	ExportSLAConfig(ctx context.Context, module Module) ([]byte, error)
	ImportSLAConfig(ctx context.Context, module Module, doc []byte) error
	ResetSLAConfig(ctx context.Context, module Module) error

	// Targets and evaluation records.
	SaveTarget(ctx context.Context, target *Target) error
	GetTarget(ctx context.Context, module Module, targetID string) (*Target, error)
	// ListOpenTargets returns targets still awaiting resolution,
	// oldest first. Used by the SLA escalation sweeper.
	ListOpenTargets(ctx context.Context, module Module) ([]*Target, error)
	SaveEvaluation(ctx context.Context, eval *Evaluation) error
	GetEvaluation(ctx context.Context, module Module, evalID string) (*Evaluation, error)

	// Notifications created synchronously by the dispatcher.
	SaveNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, module Module, targetID string) ([]*Notification, error)

	// Async delivery log written by the worker.
	RecordDelivery(ctx context.Context, d *Delivery) error

	// ClearCache invalidates any cached read-through view for a module.
	ClearCache(ctx context.Context, module Module) error

	Ping(ctx context.Context) error
	Close() error
}

// StoreConfig holds configuration for store initialization.
type StoreConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
