// Package audit provides an optional, append-only Postgres sink for
// governance results and performance alerts. It is non-authoritative: the
// blackboard remains the system of record for in-flight coordination state,
// and a coordinatord instance runs fully functional with this disabled
// (ACGS_AUDIT_DATABASE_URL unset).
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CA-git-com-co/ACGS-sub011/internal/model"
	"github.com/CA-git-com-co/ACGS-sub011/internal/monitor"
)

// Sink archives completed governance results and raised performance alerts
// to Postgres for long-term retention and offline analysis.
type Sink struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to Postgres and returns a ready Sink. It pings once to fail
// fast on misconfiguration, mirroring the teacher's storage.New.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Sink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping pool: %w", err)
	}
	return &Sink{pool: pool, logger: logger}, nil
}

// Close shuts down the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}

// RunMigrations creates the audit tables if they don't already exist. This
// is a two-table, forward-only schema — simple enough that a full
// migrations directory would be overkill for an optional archival sink.
func (s *Sink) RunMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("audit: run migrations: %w", err)
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS governance_result_audit (
    id                  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    request_id          TEXT NOT NULL,
    success             BOOLEAN NOT NULL,
    deployment_approved BOOLEAN NOT NULL,
    confidence_score    DOUBLE PRECISION NOT NULL,
    conflict_count      INT NOT NULL,
    failing_component   TEXT NOT NULL DEFAULT '',
    reason              TEXT NOT NULL DEFAULT '',
    constitutional_hash TEXT NOT NULL,
    result              JSONB NOT NULL,
    recorded_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS governance_result_audit_request_id_idx ON governance_result_audit (request_id);

CREATE TABLE IF NOT EXISTS performance_alert_audit (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    kind        TEXT NOT NULL,
    severity    TEXT NOT NULL,
    description TEXT NOT NULL,
    remediation TEXT NOT NULL,
    alert       JSONB NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS performance_alert_audit_kind_idx ON performance_alert_audit (kind);
`

// RecordGovernanceResult archives one fused GovernanceResult.
func (s *Sink) RecordGovernanceResult(ctx context.Context, result model.GovernanceResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("audit: marshal governance result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO governance_result_audit (
		     request_id, success, deployment_approved, confidence_score,
		     conflict_count, failing_component, reason, constitutional_hash, result
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)`,
		result.RequestID, result.Success, result.DeploymentApproved, result.ConfidenceScore,
		len(result.Conflicts), result.FailingComponent, result.Reason, result.ConstitutionalHash, payload,
	)
	if err != nil {
		return fmt.Errorf("audit: insert governance result: %w", err)
	}
	return nil
}

// RecordAlert archives one performance alert raised by the monitor.
func (s *Sink) RecordAlert(ctx context.Context, alert monitor.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("audit: marshal alert: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO performance_alert_audit (kind, severity, description, remediation, alert)
		 VALUES ($1, $2, $3, $4, $5::jsonb)`,
		alert.Kind, alert.Severity, alert.Description, alert.Remediation, payload,
	)
	if err != nil {
		return fmt.Errorf("audit: insert alert: %w", err)
	}
	return nil
}
