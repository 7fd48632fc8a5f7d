package store

import (
	"context"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/resilience"
)

// retryStore retries reads and saves on transient errors. Saves are safe to
// repeat because a second insert of the same (org, input hash) dedupes.
type retryStore struct {
	Store
	cfg resilience.RetryConfig
}

// WithRetry wraps s so SaveRun, GetRun and ListRuns retry transient
// failures. attempts <= 1 returns s unchanged.
func WithRetry(s Store, attempts int) Store {
	if attempts <= 1 {
		return s
	}
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	return &retryStore{Store: s, cfg: cfg}
}

func (r *retryStore) with(op string) resilience.RetryConfig {
	cfg := r.cfg
	cfg.OnRetry = resilience.RetryLogger("store", op)
	return cfg
}

func (r *retryStore) SaveRun(ctx context.Context, in model.RunInput) (*model.SaveResult, error) {
	return resilience.DoVal(ctx, r.with("save_run"), func(ctx context.Context) (*model.SaveResult, error) {
		return r.Store.SaveRun(ctx, in)
	})
}

func (r *retryStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	return resilience.DoVal(ctx, r.with("get_run"), func(ctx context.Context) (*model.Run, error) {
		return r.Store.GetRun(ctx, id)
	})
}

func (r *retryStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	return resilience.DoVal(ctx, r.with("list_runs"), func(ctx context.Context) ([]model.Run, error) {
		return r.Store.ListRuns(ctx, filter)
	})
}
