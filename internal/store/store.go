package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = eris.New("store: run not found")

// DefaultListLimit caps ListRuns when the filter leaves Limit unset.
const DefaultListLimit = 100

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	OrgID   string `json:"org_id,omitempty"`
	DealID  string `json:"deal_id,omitempty"`
	Posture string `json:"posture,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store persists engine runs. SaveRun is idempotent per (org, input hash):
// saving the same input twice returns the first run with Deduped set.
type Store interface {
	SaveRun(ctx context.Context, in model.RunInput) (*model.SaveResult, error)
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func validateInput(in model.RunInput) error {
	if in.Hashes.Input == "" {
		return eris.New("store: input hash is required")
	}
	if len(in.Input) == 0 || len(in.Output) == 0 {
		return eris.New("store: input and output are required")
	}
	return nil
}

// nullJSON maps an empty document to SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
