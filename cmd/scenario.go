package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <envelope.json>",
	Short: "Compare a what-if variant of a deal against its base run",
	Long:  "Runs the envelope as-is and again with --set path=value edits applied to a copy of the deal, then prints both calculations and the changes in the headline numbers.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envs, err := readEnvelopeFiles(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if len(envs) != 1 {
			return eris.Errorf("scenario takes exactly one envelope, got %d", len(envs))
		}
		env := envs[0]
		applyDefaultPosture(&env)

		sets, _ := cmd.Flags().GetStringArray("set")
		if len(sets) == 0 {
			return eris.New("at least one --set path=value is required")
		}
		mutations := make([]engine.Mutation, 0, len(sets))
		for _, s := range sets {
			m, err := engine.ParseAssignment(s)
			if err != nil {
				return err
			}
			mutations = append(mutations, m)
		}

		eng, err := initEngine()
		if err != nil {
			return err
		}
		base, err := eng.Run(env)
		if err != nil {
			return eris.Wrap(err, "scenario base run")
		}
		variant, err := eng.Scenario(env, mutations...)
		if err != nil {
			return err
		}

		return writeJSON(cmd.OutOrStdout(), compareScenario(base, variant, sets))
	},
}

// scenarioReport pairs a base run with its variant.
type scenarioReport struct {
	Changes            []string            `json:"changes"`
	Base               engine.Calculations `json:"base"`
	Scenario           engine.Calculations `json:"scenario"`
	Deltas             map[string]*float64 `json:"deltas"`
	BaseGuardrails     scenarioGuardrails  `json:"base_guardrails"`
	ScenarioGuardrails scenarioGuardrails  `json:"scenario_guardrails"`
}

type scenarioGuardrails struct {
	Status   string `json:"status"`
	Health   string `json:"health"`
	Workflow string `json:"workflow"`
}

func compareScenario(base, variant *engine.Output, changes []string) scenarioReport {
	b, v := base.Outputs.Calculations, variant.Outputs.Calculations
	delta := func(x, y numeric.Number) *float64 {
		xv, xok := x.Value()
		yv, yok := y.Value()
		if !xok || !yok {
			return nil
		}
		return numeric.Ptr(numeric.Money(yv - xv))
	}
	return scenarioReport{
		Changes:  changes,
		Base:     b,
		Scenario: v,
		Deltas: map[string]*float64{
			"instantCashOffer":  delta(b.InstantCashOffer, v.InstantCashOffer),
			"buyerCeiling":      delta(b.BuyerCeiling, v.BuyerCeiling),
			"respectFloorPrice": delta(b.RespectFloorPrice, v.RespectFloorPrice),
			"dealSpread":        delta(b.DealSpread, v.DealSpread),
			"netToSeller":       delta(b.NetToSeller, v.NetToSeller),
			"minSpread":         delta(numeric.Of(b.MinSpread), numeric.Of(v.MinSpread)),
		},
		BaseGuardrails:     guardrailSummary(base),
		ScenarioGuardrails: guardrailSummary(variant),
	}
}

func guardrailSummary(o *engine.Output) scenarioGuardrails {
	g := o.Outputs.Guardrails
	return scenarioGuardrails{Status: string(g.Status), Health: g.Health.Label, Workflow: string(g.Workflow)}
}

func init() {
	scenarioCmd.Flags().StringArray("set", nil, "deal field assignment path=value (repeatable), e.g. market.arv=320000")
	rootCmd.AddCommand(scenarioCmd)
}
