package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/resilience"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	connect := resilience.DefaultRetryConfig()
	connect.OnRetry = resilience.RetryLogger("store", "connect")
	if err := resilience.Do(ctx, connect, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	org_id          TEXT NOT NULL DEFAULT '',
	deal_id         TEXT NOT NULL DEFAULT '',
	posture         TEXT NOT NULL DEFAULT 'base',
	input_hash      TEXT NOT NULL,
	output_hash     TEXT NOT NULL DEFAULT '',
	policy_hash     TEXT NOT NULL DEFAULT '',
	input           JSONB NOT NULL,
	output          JSONB NOT NULL,
	trace           JSONB,
	policy_snapshot JSONB,
	engine_version  TEXT NOT NULL DEFAULT '',
	policy_version  TEXT NOT NULL DEFAULT '',
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_org_input_hash ON runs(org_id, input_hash);
CREATE INDEX IF NOT EXISTS idx_runs_deal_id ON runs(deal_id);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

const pgRunColumns = `id, org_id, deal_id, posture, input_hash, output_hash, policy_hash, input, output, trace, policy_snapshot, engine_version, policy_version, duration_ms, created_at`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun inserts the run unless (org_id, input_hash) already exists, in
// which case the stored run is returned with Deduped set. The unique index
// settles concurrent saves of the same input.
func (s *PostgresStore) SaveRun(ctx context.Context, in model.RunInput) (*model.SaveResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	run := newRun(in)
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO runs (`+pgRunColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (org_id, input_hash) DO NOTHING
		 RETURNING id`,
		run.ID, run.OrgID, run.DealID, run.Posture,
		run.Hashes.Input, run.Hashes.Output, run.Hashes.Policy,
		[]byte(run.Input), []byte(run.Output), nullJSON(run.Trace), nullJSON(run.PolicySnapshot),
		run.Meta.EngineVersion, run.Meta.PolicyVersion, run.Meta.DurationMs, run.CreatedAt,
	).Scan(&id)
	if err == nil {
		return &model.SaveResult{OK: true, Run: run}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	existing, err := pgScanRun(s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM runs WHERE org_id = $1 AND input_hash = $2`,
		in.OrgID, in.Hashes.Input,
	))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup run by hash")
	}
	return &model.SaveResult{OK: true, Run: *existing, Deduped: true}, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r, err := pgScanRun(s.pool.QueryRow(ctx, `SELECT `+pgRunColumns+` FROM runs WHERE id = $1`, id))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.OrgID != "" {
		query += fmt.Sprintf(` AND org_id = $%d`, argIdx)
		args = append(args, filter.OrgID)
		argIdx++
	}
	if filter.DealID != "" {
		query += fmt.Sprintf(` AND deal_id = $%d`, argIdx)
		args = append(args, filter.DealID)
		argIdx++
	}
	if filter.Posture != "" {
		query += fmt.Sprintf(` AND posture = $%d`, argIdx)
		args = append(args, filter.Posture)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		r, err := pgScanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func pgScanRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var input, output, trace, snapshot []byte

	err := row.Scan(&r.ID, &r.OrgID, &r.DealID, &r.Posture,
		&r.Hashes.Input, &r.Hashes.Output, &r.Hashes.Policy,
		&input, &output, &trace, &snapshot,
		&r.Meta.EngineVersion, &r.Meta.PolicyVersion, &r.Meta.DurationMs, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Input, r.Output, r.Trace, r.PolicySnapshot = input, output, trace, snapshot
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
