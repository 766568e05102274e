package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrationFile = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

type Migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationPool is the subset of *pgxpool.Pool the migrator needs.
type MigrationPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Migrator applies the embedded, versioned schema migrations and records
// them in schema_migrations.
type Migrator struct {
	pool       MigrationPool
	migrations []Migration
}

func NewMigrator(pool MigrationPool) (*Migrator, error) {
	migrations, err := LoadMigrations(migrationsFS)
	if err != nil {
		return nil, err
	}
	return &Migrator{pool: pool, migrations: migrations}, nil
}

func (m *Migrator) Migrations() []Migration {
	return m.migrations
}

// LoadMigrations reads NNNN_name.up.sql / NNNN_name.down.sql pairs from
// fsys and returns them ordered by version.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*Migration)
	for _, p := range paths {
		parts := migrationFile.FindStringSubmatch(p)
		if parts == nil {
			return nil, fmt.Errorf("invalid migration filename: %s", p)
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}

		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		sql := strings.TrimSpace(string(raw))
		if sql == "" {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: parts[2]}
			byVersion[version] = mig
		} else if mig.Name != parts[2] {
			return nil, fmt.Errorf("conflicting names for version %d: %s vs %s", version, mig.Name, parts[2])
		}

		target := &mig.UpSQL
		if parts[3] == "down" {
			target = &mig.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", parts[3], version)
		}
		*target = sql
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.UpSQL == "" || mig.DownSQL == "" {
			return nil, fmt.Errorf("migration version %d must include both up and down files", mig.Version)
		}
		out = append(out, *mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

// applied returns the recorded versions, newest first.
func (m *Migrator) applied(ctx context.Context) ([]int64, error) {
	rows, err := m.pool.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Up applies every migration not yet recorded and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	versions, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	done := make(map[int64]bool, len(versions))
	for _, v := range versions {
		done[v] = true
	}

	n := 0
	for _, mig := range m.migrations {
		if done[mig.Version] {
			continue
		}
		if err := m.inTx(ctx, mig.UpSQL,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
			return n, fmt.Errorf("version %d up: %w", mig.Version, err)
		}
		n++
	}
	return n, nil
}

// Down rolls back the newest steps applied migrations.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, errors.New("steps must be > 0")
	}
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	versions, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	if len(versions) > steps {
		versions = versions[:steps]
	}

	byVersion := make(map[int64]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		byVersion[mig.Version] = mig
	}

	n := 0
	for _, v := range versions {
		mig, ok := byVersion[v]
		if !ok {
			return n, fmt.Errorf("no migration source for applied version %d", v)
		}
		if err := m.inTx(ctx, mig.DownSQL,
			`DELETE FROM schema_migrations WHERE version = $1`, mig.Version); err != nil {
			return n, fmt.Errorf("version %d down: %w", mig.Version, err)
		}
		n++
	}
	return n, nil
}

// Version returns the newest applied version, or 0 when none is recorded.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	versions, err := m.applied(ctx)
	if err != nil || len(versions) == 0 {
		return 0, err
	}
	return versions[0], nil
}

func (m *Migrator) inTx(ctx context.Context, schemaSQL, bookkeepingSQL string, args ...any) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if _, err := tx.Exec(ctx, bookkeepingSQL, args...); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
