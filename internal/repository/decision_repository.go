package repository

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"signal-gateway/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// createDecisionsTable is the idempotent baseline schema applied at server
// start. Later versions are applied with the migrate command.
//
//go:embed migrations/0001_create_signal_decisions.up.sql
var createDecisionsTable string

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DecisionRepository is the audit log of completed pipeline runs.
type DecisionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewDecisionRepository(pool PgxPool, tracer trace.Tracer) *DecisionRepository {
	return &DecisionRepository{pool: pool, tracer: tracer}
}

func (r *DecisionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "decision-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createDecisionsTable)
	return err
}

func (r *DecisionRepository) InsertDecision(ctx context.Context, d domain.Decision) error {
	ctx, span := r.tracer.Start(ctx, "decision-repo.insert-decision")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", d.Symbol), attribute.String("source", string(d.Source)))

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO signal_decisions (symbol, timeframe, signal, confidence, explanation, source, rule, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.Symbol, d.Timeframe, string(d.Action), string(d.Confidence), d.Explanation, string(d.Source), d.Rule, createdAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ListDecisions returns recent decisions, newest first. Limit is clamped to
// 1..200 with a default of 50.
func (r *DecisionRepository) ListDecisions(ctx context.Context, filter domain.DecisionFilter) ([]domain.Decision, error) {
	ctx, span := r.tracer.Start(ctx, "decision-repo.list-decisions")
	defer span.End()

	args := make([]any, 0, 2)
	var sb strings.Builder
	sb.WriteString(`SELECT symbol, timeframe, signal, confidence, explanation, source, rule, created_at
		FROM signal_decisions
		WHERE 1=1`)

	if filter.Symbol != "" {
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.Symbol)))
		sb.WriteString(fmt.Sprintf(" AND upper(symbol) = $%d", len(args)))
	}

	limit := ClampLimit(filter.Limit)
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	decisions := make([]domain.Decision, 0, limit)
	for rows.Next() {
		var d domain.Decision
		var action, confidence, source string
		if err := rows.Scan(&d.Symbol, &d.Timeframe, &action, &confidence, &d.Explanation, &source, &d.Rule, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Action = domain.Action(action)
		d.Confidence = domain.Confidence(confidence)
		d.Source = domain.Source(source)
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// DeleteOlderThan removes audit rows created before cutoff.
func (r *DecisionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "decision-repo.delete-older-than")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM signal_decisions WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("delete old decisions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
