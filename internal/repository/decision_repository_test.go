package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"signal-gateway/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

func newTestRepo(pool PgxPool) *DecisionRepository {
	return NewDecisionRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))
}

func TestDecisionRunMigrationsExecutesSchema(t *testing.T) {
	pool := &stubPool{}
	if err := newTestRepo(pool).RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "signal_decisions") {
		t.Fatalf("expected schema exec, got %v", pool.execSQL)
	}
}

func TestInsertDecisionPassesColumns(t *testing.T) {
	pool := &stubPool{}
	created := time.Unix(1700000000, 0).UTC()
	err := newTestRepo(pool).InsertDecision(context.Background(), domain.Decision{
		Symbol:      "BTCUSDT",
		Timeframe:   "1h",
		Action:      domain.ActionHold,
		Confidence:  domain.ConfidenceLow,
		Explanation: "x | filter: momentum_volume: y",
		Source:      domain.SourceModel,
		Rule:        "momentum_volume",
		CreatedAt:   created,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execArgs) != 1 {
		t.Fatalf("expected one insert, got %d", len(pool.execArgs))
	}
	args := pool.execArgs[0]
	if args[0] != "BTCUSDT" || args[2] != "hold" || args[5] != "model" || args[6] != "momentum_volume" || args[7] != created {
		t.Fatalf("unexpected insert args: %v", args)
	}
}

func TestInsertDecisionWrapsError(t *testing.T) {
	pool := &stubPool{execErr: errors.New("db down")}
	err := newTestRepo(pool).InsertDecision(context.Background(), domain.Decision{Symbol: "BTC"})
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestListDecisionsReturnsRows(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	pool := &stubPool{rowsData: [][]any{
		{"BTCUSDT", "1h", "buy", "", "trend up", "model", "", now},
		{"BTCUSDT", "1h", "hold", "low", "fallback", "fallback", "", now.Add(-time.Minute)},
	}}

	decisions, err := newTestRepo(pool).ListDecisions(context.Background(), domain.DecisionFilter{Symbol: "btcusdt", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}
	if decisions[0].Action != domain.ActionBuy || decisions[1].Source != domain.SourceFallback {
		t.Fatalf("unexpected decisions: %+v", decisions)
	}
	if pool.queryArgs[0] != "BTCUSDT" || pool.queryArgs[1] != 10 {
		t.Fatalf("unexpected query args: %v", pool.queryArgs)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-1: 50, 0: 50, 1: 1, 200: 200, 500: 200}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

type stubPool struct {
	execSQL   []string
	execArgs  [][]any
	execErr   error
	queryArgs []any
	rowsData  [][]any
}

func (s *stubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	if len(args) > 0 {
		s.execArgs = append(s.execArgs, args)
	}
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.queryArgs = args
	return &stubRows{data: s.rowsData}, nil
}

type stubRows struct {
	data [][]any
	idx  int
}

func (r *stubRows) Close() {}

func (r *stubRows) Err() error { return nil }

func (r *stubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return fmt.Errorf("invalid scan index")
	}
	row := r.data[r.idx-1]
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = row[i].(string)
		case *time.Time:
			*ptr = row[i].(time.Time)
		case *int64:
			*ptr = row[i].(int64)
		default:
			return fmt.Errorf("unsupported dest type %T", d)
		}
	}
	return nil
}

func (r *stubRows) Values() ([]any, error) { return nil, nil }

func (r *stubRows) RawValues() [][]byte { return nil }

func (r *stubRows) Conn() *pgx.Conn { return nil }

func TestDeleteOlderThan(t *testing.T) {
	pool := &stubPool{}
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := newTestRepo(pool).DeleteOlderThan(context.Background(), cutoff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(pool.execSQL[0], "DELETE FROM signal_decisions") {
		t.Fatalf("unexpected sql: %s", pool.execSQL[0])
	}
	if got := pool.execArgs[0][0].(time.Time); !got.Equal(cutoff) {
		t.Fatalf("expected cutoff %s, got %s", cutoff, got)
	}

	pool.execErr = errors.New("db down")
	if _, err := newTestRepo(pool).DeleteOlderThan(context.Background(), cutoff); err == nil {
		t.Fatal("expected error")
	}
}
