package model

import (
	"encoding/json"
	"time"
)

// RunHashes identifies the content of a persisted run.
type RunHashes struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Policy string `json:"policy"`
}

// Run is one persisted engine computation.
type Run struct {
	ID             string          `json:"id"`
	OrgID          string          `json:"org_id"`
	DealID         string          `json:"deal_id"`
	Posture        string          `json:"posture"`
	Hashes         RunHashes       `json:"hashes"`
	Input          json.RawMessage `json:"input,omitempty"`
	Output         json.RawMessage `json:"output,omitempty"`
	Trace          json.RawMessage `json:"trace,omitempty"`
	PolicySnapshot json.RawMessage `json:"policy_snapshot,omitempty"`
	Meta           RunMeta         `json:"meta"`
	CreatedAt      time.Time       `json:"created_at"`
}

// RunMeta mirrors the engine's output meta.
type RunMeta struct {
	EngineVersion string `json:"engine_version"`
	PolicyVersion string `json:"policy_version"`
	DurationMs    int64  `json:"duration_ms"`
}

// RunInput is what a caller hands the store to persist a computation.
type RunInput struct {
	OrgID          string          `json:"org_id"`
	DealID         string          `json:"deal_id"`
	Posture        string          `json:"posture"`
	Hashes         RunHashes       `json:"hashes"`
	Input          json.RawMessage `json:"input"`
	Output         json.RawMessage `json:"output"`
	Trace          json.RawMessage `json:"trace,omitempty"`
	PolicySnapshot json.RawMessage `json:"policy_snapshot,omitempty"`
	Meta           RunMeta         `json:"meta"`
}

// SaveResult reports the stored run and whether an identical run already existed.
type SaveResult struct {
	OK      bool `json:"ok"`
	Run     Run  `json:"run"`
	Deduped bool `json:"deduped"`
}
