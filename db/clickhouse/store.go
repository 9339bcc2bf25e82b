// Package clickhouse provides ClickHouse implementation of AuditStore
// Optimized for append-only decision logs and per-run analytics
package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"scope-quote/decision/estimation"
)

// AuditRun is one estimation run's summary row
type AuditRun struct {
	ID                string    `ch:"id"`
	RequestID         string    `ch:"request_id"`
	CreatedAt         time.Time `ch:"created_at"`
	ItemCount         uint32    `ch:"item_count"`
	QuestionCount     uint32    `ch:"question_count"`
	HighCount         uint32    `ch:"high_count"`
	MediumCount       uint32    `ch:"medium_count"`
	LowCount          uint32    `ch:"low_count"`
	NeedsReviewCount  uint32    `ch:"needs_review_count"`
	OverallConfidence float64   `ch:"overall_confidence"`
	ShouldProceed     bool      `ch:"should_proceed"`
	Degraded          bool      `ch:"degraded"`
	Assumptions       []string  `ch:"assumptions"`
	Payload           string    `ch:"payload"`
}

// AuditAction is one decision row, keyed by trail and position
type AuditAction struct {
	TrailID           string    `ch:"trail_id" json:"trail_id"`
	Seq               uint32    `ch:"seq" json:"seq"`
	ID                string    `ch:"id" json:"id"`
	Step              string    `ch:"step" json:"step"`
	Action            string    `ch:"action" json:"action"`
	Reasoning         string    `ch:"reasoning" json:"reasoning"`
	Alternatives      []string  `ch:"alternatives" json:"alternatives"`
	ConfidenceFactors []string  `ch:"confidence_factors" json:"confidence_factors"`
	RiskAssessment    string    `ch:"risk_assessment" json:"risk_assessment"`
	ScopeItemID       string    `ch:"scope_item_id" json:"scope_item_id,omitempty"`
	Timestamp         time.Time `ch:"timestamp" json:"timestamp"`
}

// RunStats aggregates runs since a point in time
type RunStats struct {
	Runs          uint64  `json:"runs"`
	Proceeded     uint64  `json:"proceeded"`
	Degraded      uint64  `json:"degraded"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Config holds ClickHouse connection configuration
type Config struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Debug    bool   `koanf:"debug"`
}

// DefaultConfig returns default development configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:  false,
		Host:     "localhost",
		Port:     9000,
		Database: "scopequote",
		Username: "default",
		Password: "",
		Debug:    false,
	}
}

// Store implements AuditStore using ClickHouse
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore creates a new ClickHouse audit store
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// =============================================================================
// SCHEMA
// =============================================================================

// Schema is the DDL for the audit tables, in creation order.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS audit_runs (
		id String,
		request_id String,
		created_at DateTime64(3),
		item_count UInt32,
		question_count UInt32,
		high_count UInt32,
		medium_count UInt32,
		low_count UInt32,
		needs_review_count UInt32,
		overall_confidence Float64,
		should_proceed UInt8,
		degraded UInt8,
		assumptions Array(String),
		payload String
	) ENGINE = MergeTree()
	ORDER BY (created_at, id)`,
	`CREATE TABLE IF NOT EXISTS audit_actions (
		trail_id String,
		seq UInt32,
		id String,
		step LowCardinality(String),
		action String,
		reasoning String,
		alternatives Array(String),
		confidence_factors Array(String),
		risk_assessment String,
		scope_item_id String,
		timestamp DateTime64(3)
	) ENGINE = MergeTree()
	ORDER BY (trail_id, seq)`,
}

// EnsureSchema creates the audit tables if missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range Schema {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create audit schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// AUDIT OPERATIONS
// =============================================================================

// Records flattens a result into its run row and action rows.
func Records(res *estimation.Result) (AuditRun, []AuditAction, error) {
	trail := res.AuditTrail
	payload, err := json.Marshal(trail)
	if err != nil {
		return AuditRun{}, nil, fmt.Errorf("failed to encode audit trail: %w", err)
	}

	run := AuditRun{
		ID:                trail.ID,
		RequestID:         res.RequestID,
		CreatedAt:         trail.CreatedAt,
		ItemCount:         uint32(len(res.QuoteItems)),
		QuestionCount:     uint32(len(res.Questions)),
		HighCount:         uint32(res.Summary.High),
		MediumCount:       uint32(res.Summary.Medium),
		LowCount:          uint32(res.Summary.Low),
		NeedsReviewCount:  uint32(res.Summary.NeedsReview),
		OverallConfidence: res.Summary.Overall,
		ShouldProceed:     res.ShouldProceed,
		Degraded:          res.Degraded,
		Assumptions:       nonNil(trail.Assumptions),
		Payload:           string(payload),
	}

	actions := make([]AuditAction, len(trail.Actions))
	for i, d := range trail.Actions {
		actions[i] = AuditAction{
			TrailID:           trail.ID,
			Seq:               uint32(i + 1),
			ID:                d.ID,
			Step:              d.Step,
			Action:            d.Action,
			Reasoning:         d.Reasoning,
			Alternatives:      nonNil(d.Alternatives),
			ConfidenceFactors: nonNil(d.ConfidenceFactors),
			RiskAssessment:    d.RiskAssessment,
			ScopeItemID:       d.ScopeItemID,
			Timestamp:         d.Timestamp,
		}
	}
	return run, actions, nil
}

// SaveResult persists a run's audit trail
func (s *Store) SaveResult(ctx context.Context, res *estimation.Result) error {
	run, actions, err := Records(res)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_runs (
			id, request_id, created_at, item_count, question_count,
			high_count, medium_count, low_count, needs_review_count,
			overall_confidence, should_proceed, degraded, assumptions, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if err := s.conn.Exec(ctx, query,
		run.ID,
		run.RequestID,
		run.CreatedAt,
		run.ItemCount,
		run.QuestionCount,
		run.HighCount,
		run.MediumCount,
		run.LowCount,
		run.NeedsReviewCount,
		run.OverallConfidence,
		boolToUInt8(run.ShouldProceed),
		boolToUInt8(run.Degraded),
		run.Assumptions,
		run.Payload,
	); err != nil {
		return fmt.Errorf("failed to insert audit run: %w", err)
	}

	return s.bulkInsertActions(ctx, actions)
}

func (s *Store) bulkInsertActions(ctx context.Context, actions []AuditAction) error {
	if len(actions) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_actions (
			trail_id, seq, id, step, action, reasoning, alternatives,
			confidence_factors, risk_assessment, scope_item_id, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, a := range actions {
		if err := batch.Append(
			a.TrailID, a.Seq, a.ID, a.Step, a.Action, a.Reasoning, a.Alternatives,
			a.ConfidenceFactors, a.RiskAssessment, a.ScopeItemID, a.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to append action: %w", err)
		}
	}

	return batch.Send()
}

// ListActions returns a trail's decisions in recorded order
func (s *Store) ListActions(ctx context.Context, trailID string) ([]AuditAction, error) {
	query := `
		SELECT trail_id, seq, id, step, action, reasoning, alternatives,
			   confidence_factors, risk_assessment, scope_item_id, timestamp
		FROM audit_actions
		WHERE trail_id = ?
		ORDER BY seq
	`
	rows, err := s.conn.Query(ctx, query, trailID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []AuditAction
	for rows.Next() {
		var a AuditAction
		if err := rows.Scan(
			&a.TrailID, &a.Seq, &a.ID, &a.Step, &a.Action, &a.Reasoning, &a.Alternatives,
			&a.ConfidenceFactors, &a.RiskAssessment, &a.ScopeItemID, &a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Stats aggregates runs created at or after since
func (s *Store) Stats(ctx context.Context, since time.Time) (*RunStats, error) {
	query := `
		SELECT count(), countIf(should_proceed = 1), countIf(degraded = 1),
			   ifNotFinite(avg(overall_confidence), 0)
		FROM audit_runs
		WHERE created_at >= ?
	`
	var stats RunStats
	if err := s.conn.QueryRow(ctx, query, since).Scan(
		&stats.Runs, &stats.Proceeded, &stats.Degraded, &stats.AvgConfidence,
	); err != nil {
		return nil, fmt.Errorf("failed to read run stats: %w", err)
	}
	return &stats, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
