package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/model"
)

func TestParseAssignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		check   func(t *testing.T, d model.Deal)
		wantErr string
	}{
		{
			name: "number",
			in:   "market.arv=320000",
			check: func(t *testing.T, d model.Deal) {
				assert.InDelta(t, 320000, d.Market.ARV.Float(), 0.001)
			},
		},
		{
			name: "money string",
			in:   "market.as_is_value=$210,000",
			check: func(t *testing.T, d model.Deal) {
				assert.InDelta(t, 210000, d.Market.AsIsValue.Float(), 0.001)
			},
		},
		{
			name: "plain string",
			in:   "foreclosure.foreclosure_status=sale_scheduled",
			check: func(t *testing.T, d model.Deal) {
				assert.Equal(t, "sale_scheduled", d.Foreclosure.Status)
			},
		},
		{
			name: "bool",
			in:   "legal.bankruptcy_stay=true",
			check: func(t *testing.T, d model.Deal) {
				assert.True(t, d.Legal.BankruptcyStay)
			},
		},
		{
			name: "null clears",
			in:   "debt.senior_principal=null",
			check: func(t *testing.T, d model.Deal) {
				assert.False(t, d.Debt.SeniorPrincipal.Valid())
			},
		},
		{name: "missing equals", in: "market.arv", wantErr: "must be path=value"},
		{name: "empty segment", in: "market..arv=1", wantErr: "invalid field path"},
		{name: "unknown field", in: "market.bogus=1", wantErr: "engine: set market.bogus"},
		{name: "wrong type", in: "legal.bankruptcy_stay=[1]", wantErr: "engine: set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := ParseAssignment(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			var env model.Envelope
			require.NoError(t, json.Unmarshal([]byte(fixtureEnvelope), &env))
			m(&env.Deal)
			tt.check(t, env.Deal)
		})
	}
}

func TestSetField_KeepsOtherFields(t *testing.T) {
	t.Parallel()
	env := fixture(t)

	m, err := SetField("market.arv", "350000")
	require.NoError(t, err)
	m(&env.Deal)

	assert.InDelta(t, 350000, env.Deal.Market.ARV.Float(), 0.001)
	assert.InDelta(t, 200000, env.Deal.Market.AsIsValue.Float(), 0.001)
	assert.Equal(t, "judgment_entered", env.Deal.Foreclosure.Status)
}

func TestScenario_WithAssignment(t *testing.T) {
	t.Parallel()
	e := newEngine()
	env := fixture(t)

	base, err := e.Run(env)
	require.NoError(t, err)

	m, err := ParseAssignment("market.arv=360000")
	require.NoError(t, err)
	scen, err := e.Scenario(env, m)
	require.NoError(t, err)

	assert.NotEqual(t, base.Meta.InputHash, scen.Meta.InputHash)
	assert.InDelta(t, 300000, env.Deal.Market.ARV.Float(), 0.001)
}

func TestOutput_RunInput(t *testing.T) {
	t.Parallel()
	e := newEngine()
	env := fixture(t)
	env.Meta.AsOf = ""

	out, err := e.Run(env)
	require.NoError(t, err)

	in, err := out.RunInput(env)
	require.NoError(t, err)
	assert.Equal(t, "org-1", in.OrgID)
	assert.Equal(t, "deal-1", in.DealID)
	assert.Equal(t, "base", in.Posture)
	assert.Equal(t, out.Meta.InputHash, in.Hashes.Input)
	assert.Equal(t, out.Meta.PolicyHash, in.Hashes.Policy)
	assert.NotEmpty(t, in.Hashes.Output)
	assert.NotEmpty(t, in.Trace)
	assert.NotEmpty(t, in.PolicySnapshot)

	// The stored input pins the reference date, so replaying it hashes the same.
	var stored model.Envelope
	require.NoError(t, json.Unmarshal(in.Input, &stored))
	assert.Equal(t, "2026-10-16", stored.Meta.AsOf)
	replay, err := newEngine().Run(stored)
	require.NoError(t, err)
	assert.Equal(t, out.Meta.InputHash, replay.Meta.InputHash)

	outHash, err := Hash(replay.Outputs)
	require.NoError(t, err)
	assert.Equal(t, in.Hashes.Output, outHash)
}

func TestResolvePolicy_MatchesRun(t *testing.T) {
	t.Parallel()
	e := newEngine()
	env := fixture(t)

	out, err := e.Run(env)
	require.NoError(t, err)

	resolved, u := e.ResolvePolicy(env.Posture, env.SandboxConfig)
	h, err := Hash(resolved)
	require.NoError(t, err)
	assert.Equal(t, out.Meta.PolicyHash, h)
	assert.InDelta(t, 12000, u.AssignmentFeeTarget, 0.001)

	_, bogus := e.ResolvePolicy("nonsense", nil)
	_, base := e.ResolvePolicy("base", nil)
	assert.Equal(t, base, bogus)
}
