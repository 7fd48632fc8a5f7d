package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// Mutation edits a scenario's copy of the deal.
type Mutation func(d *model.Deal)

// Scenario runs env with mutations applied to a deep copy of its deal. The
// caller's envelope is never observably changed.
func (e *Engine) Scenario(env model.Envelope, mutations ...Mutation) (*Output, error) {
	scenario := env.Clone()
	for _, m := range mutations {
		if m != nil {
			m(&scenario.Deal)
		}
	}
	out, err := e.Run(scenario)
	if err != nil {
		return nil, eris.Wrap(err, "engine: scenario")
	}
	return out, nil
}

// BatchResult pairs one envelope's output with its error.
type BatchResult struct {
	DealID string  `json:"deal_id"`
	Output *Output `json:"output,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// RunBatch runs every envelope with bounded concurrency. Results are in
// input order. A failed envelope is reported in its result and does not
// stop the batch; only context cancellation does.
func (e *Engine) RunBatch(ctx context.Context, envs []model.Envelope) ([]BatchResult, error) {
	log := zap.L().With(zap.Int("envelopes", len(envs)), zap.Int("concurrency", e.concurrency))
	start := time.Now()

	results := make([]BatchResult, len(envs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, env := range envs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].DealID = env.DealID
			out, err := e.Run(env)
			if err != nil {
				log.Warn("engine: batch item failed", zap.String("deal_id", env.DealID), zap.Error(err))
				results[i].Error = err.Error()
				return nil
			}
			results[i].Output = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "engine: batch")
	}
	log.Info("engine: batch complete", zap.Duration("elapsed", time.Since(start)))
	return results, nil
}
