package model

import "github.com/sells-group/underwrite-cli/internal/numeric"

// Carry bases for the double-close carry amount.
const (
	CarryBasisDay   = "day"
	CarryBasisMonth = "month"
)

// DoubleCloseRecord is the A→B / B→C transaction sub-record. PAB is the
// A→B (buy leg) price and PBC the B→C (sell leg) price.
type DoubleCloseRecord struct {
	County       string `json:"county,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
	Type         string `json:"type,omitempty"`

	PAB numeric.Number `json:"pab"`
	PBC numeric.Number `json:"pbc"`

	TitleAB numeric.Number `json:"title_ab"`
	TitleBC numeric.Number `json:"title_bc"`
	OtherAB numeric.Number `json:"other_ab"`
	OtherBC numeric.Number `json:"other_bc"`
	PagesAB numeric.Number `json:"pages_ab"`
	PagesBC numeric.Number `json:"pages_bc"`

	AssociationPresent bool           `json:"association_present,omitempty"`
	EstoppelFee        numeric.Number `json:"estoppel_fee"`
	RushEstoppel       bool           `json:"rush_estoppel,omitempty"`

	UsingTF                bool           `json:"using_tf,omitempty"`
	TFPrincipal            numeric.Number `json:"tf_principal"`
	TFPointsRate           numeric.Number `json:"tf_points_rate"`
	TFExtraFees            numeric.Number `json:"tf_extra_fees"`
	TFNoteInState          *bool          `json:"tf_note_executed_in_state,omitempty"`
	TFSecuredByInStateProp *bool          `json:"tf_secured_by_in_state_property,omitempty"`

	HoldDays    numeric.Number `json:"hold_days"`
	CarryBasis  string         `json:"carry_basis,omitempty"`
	CarryAmount numeric.Number `json:"carry_amount"`

	AssignmentFee      numeric.Number `json:"assignment_fee"`
	FeeTargetThreshold numeric.Number `json:"fee_target_threshold"`
}

// Clone returns a deep copy of r.
func (r DoubleCloseRecord) Clone() DoubleCloseRecord {
	out := r
	out.TFNoteInState = cloneBool(r.TFNoteInState)
	out.TFSecuredByInStateProp = cloneBool(r.TFSecuredByInStateProp)
	return out
}
