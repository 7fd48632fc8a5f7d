package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	org_id          TEXT NOT NULL DEFAULT '',
	deal_id         TEXT NOT NULL DEFAULT '',
	posture         TEXT NOT NULL DEFAULT 'base',
	input_hash      TEXT NOT NULL,
	output_hash     TEXT NOT NULL DEFAULT '',
	policy_hash     TEXT NOT NULL DEFAULT '',
	input           TEXT NOT NULL,
	output          TEXT NOT NULL,
	trace           TEXT,
	policy_snapshot TEXT,
	engine_version  TEXT NOT NULL DEFAULT '',
	policy_version  TEXT NOT NULL DEFAULT '',
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_org_input_hash ON runs(org_id, input_hash);
CREATE INDEX IF NOT EXISTS idx_runs_deal_id ON runs(deal_id);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

const sqliteRunColumns = `id, org_id, deal_id, posture, input_hash, output_hash, policy_hash,
	input, output, trace, policy_snapshot, engine_version, policy_version, duration_ms, created_at`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run unless (org_id, input_hash) already exists, in
// which case the stored run is returned with Deduped set.
func (s *SQLiteStore) SaveRun(ctx context.Context, in model.RunInput) (*model.SaveResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	run := newRun(in)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+sqliteRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (org_id, input_hash) DO NOTHING`,
		run.ID, run.OrgID, run.DealID, run.Posture,
		run.Hashes.Input, run.Hashes.Output, run.Hashes.Policy,
		string(run.Input), string(run.Output), nullText(run.Trace), nullText(run.PolicySnapshot),
		run.Meta.EngineVersion, run.Meta.PolicyVersion, run.Meta.DurationMs, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		return &model.SaveResult{OK: true, Run: run}, nil
	}

	existing, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE org_id = ? AND input_hash = ?`,
		in.OrgID, in.Hashes.Input,
	))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup run by hash")
	}
	return &model.SaveResult{OK: true, Run: *existing, Deduped: true}, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.OrgID != "" {
		query += ` AND org_id = ?`
		args = append(args, filter.OrgID)
	}
	if filter.DealID != "" {
		query += ` AND deal_id = ?`
		args = append(args, filter.DealID)
	}
	if filter.Posture != "" {
		query += ` AND posture = ?`
		args = append(args, filter.Posture)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func newRun(in model.RunInput) model.Run {
	posture := in.Posture
	if posture == "" {
		posture = "base"
	}
	return model.Run{
		ID:             uuid.New().String(),
		OrgID:          in.OrgID,
		DealID:         in.DealID,
		Posture:        posture,
		Hashes:         in.Hashes,
		Input:          in.Input,
		Output:         in.Output,
		Trace:          in.Trace,
		PolicySnapshot: in.PolicySnapshot,
		Meta:           in.Meta,
		CreatedAt:      time.Now().UTC(),
	}
}

func nullText(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var input, output string
	var trace, snapshot sql.NullString

	err := row.Scan(&r.ID, &r.OrgID, &r.DealID, &r.Posture,
		&r.Hashes.Input, &r.Hashes.Output, &r.Hashes.Policy,
		&input, &output, &trace, &snapshot,
		&r.Meta.EngineVersion, &r.Meta.PolicyVersion, &r.Meta.DurationMs, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.Input = []byte(input)
	r.Output = []byte(output)
	if trace.Valid {
		r.Trace = []byte(trace.String)
	}
	if snapshot.Valid {
		r.PolicySnapshot = []byte(snapshot.String)
	}
	return &r, nil
}
