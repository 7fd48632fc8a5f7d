package model

import (
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// Envelope is the canonical engine input. Its content hash is the
// idempotency key for persisted runs.
type Envelope struct {
	DealID        string         `json:"dealId"`
	Posture       string         `json:"posture"`
	Deal          Deal           `json:"deal"`
	SandboxConfig policy.Config  `json:"sandboxConfig,omitempty"`
	RepairProfile *RepairProfile `json:"repairProfile,omitempty"`
	Meta          EnvelopeMeta   `json:"meta"`
}

// RepairProfile carries the repair estimate context selected for the deal.
type RepairProfile struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	RepairClass string `json:"repairClass,omitempty"`
	BidsPresent *bool  `json:"bidsPresent,omitempty"`
}

// EnvelopeMeta carries caller context. AsOf is the reference date
// (YYYY-MM-DD) for every date-relative calculation.
type EnvelopeMeta struct {
	OrgID         string `json:"orgId,omitempty"`
	AsOf          string `json:"asOf,omitempty"`
	PolicyVersion string `json:"policyVersion,omitempty"`
	Source        string `json:"source,omitempty"`
}

// Clone returns a deep copy of e.
func (e Envelope) Clone() Envelope {
	out := e
	out.Deal = e.Deal.Clone()
	out.SandboxConfig = e.SandboxConfig.Clone()
	if e.RepairProfile != nil {
		rp := *e.RepairProfile
		rp.BidsPresent = cloneBool(e.RepairProfile.BidsPresent)
		out.RepairProfile = &rp
	}
	return out
}
