package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [envelope.json ...]",
	Short: "Run the underwriting engine on one or more deal envelopes",
	Long:  "Reads envelopes from files (or stdin with \"-\"). A file may hold one envelope or a JSON array. More than one envelope runs as a bounded-concurrency batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) == 0 {
			args = []string{"-"}
		}
		envs, err := readEnvelopeFiles(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		eng, err := initEngine()
		if err != nil {
			return err
		}

		posture, _ := cmd.Flags().GetString("posture")
		asOf, _ := cmd.Flags().GetString("as-of")
		for i := range envs {
			if posture != "" {
				envs[i].Posture = posture
			}
			if asOf != "" {
				envs[i].Meta.AsOf = asOf
			}
			applyDefaultPosture(&envs[i])
		}

		var st store.Store
		if save, _ := cmd.Flags().GetBool("save"); save {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		summary, _ := cmd.Flags().GetBool("summary")
		out := cmd.OutOrStdout()

		if len(envs) == 1 {
			res, err := analyzeOne(ctx, eng, st, envs[0])
			if err != nil {
				return err
			}
			if summary {
				formatSummary(out, envs[0].DealID, res.Output)
				return nil
			}
			return writeJSON(out, res)
		}

		results, err := eng.RunBatch(ctx, envs)
		if err != nil {
			return err
		}
		batch := make([]analyzeResult, len(results))
		failed := 0
		for i, r := range results {
			batch[i] = analyzeResult{DealID: r.DealID, Output: r.Output, Error: r.Error}
			if r.Error != "" {
				failed++
				continue
			}
			if st != nil {
				saved, err := saveOutput(ctx, st, envs[i], r.Output)
				if err != nil {
					return err
				}
				batch[i].Saved = saved
			}
		}
		zap.L().Info("analyze batch complete", zap.Int("envelopes", len(envs)), zap.Int("failed", failed))

		if summary {
			for _, r := range batch {
				if r.Output != nil {
					formatSummary(out, r.DealID, r.Output)
				}
			}
			return nil
		}
		return writeJSON(out, batch)
	},
}

// analyzeResult is one envelope's output plus its persistence outcome.
type analyzeResult struct {
	DealID string            `json:"deal_id,omitempty"`
	Output *engine.Output    `json:"output,omitempty"`
	Error  string            `json:"error,omitempty"`
	Saved  *model.SaveResult `json:"saved,omitempty"`
}

func analyzeOne(ctx context.Context, eng *engine.Engine, st store.Store, env model.Envelope) (*analyzeResult, error) {
	out, err := eng.Run(env)
	if err != nil {
		return nil, eris.Wrap(err, "analyze")
	}
	res := &analyzeResult{DealID: env.DealID, Output: out}
	if st != nil {
		saved, err := saveOutput(ctx, st, env, out)
		if err != nil {
			return nil, err
		}
		res.Saved = saved
	}
	return res, nil
}

func saveOutput(ctx context.Context, st store.Store, env model.Envelope, out *engine.Output) (*model.SaveResult, error) {
	in, err := out.RunInput(env)
	if err != nil {
		return nil, err
	}
	saved, err := st.SaveRun(ctx, in)
	if err != nil {
		return nil, eris.Wrap(err, "save run")
	}
	zap.L().Info("run saved",
		zap.String("run_id", saved.Run.ID),
		zap.String("deal_id", env.DealID),
		zap.Bool("deduped", saved.Deduped),
	)
	return saved, nil
}

// formatSummary writes the headline numbers of a run to w.
func formatSummary(out io.Writer, dealID string, o *engine.Output) {
	c := o.Outputs.Calculations
	g := o.Outputs.Guardrails
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Deal:\t%s\n", orDash(dealID))
	_, _ = fmt.Fprintf(w, "Posture:\t%s\n", o.Meta.Posture)
	_, _ = fmt.Fprintf(w, "As of:\t%s\n", o.Meta.AsOf)
	_, _ = fmt.Fprintf(w, "Respect floor:\t%s\n", money(c.RespectFloorPrice.Ptr()))
	_, _ = fmt.Fprintf(w, "Buyer ceiling:\t%s\n", money(c.BuyerCeiling.Ptr()))
	_, _ = fmt.Fprintf(w, "Instant cash offer:\t%s\n", money(c.InstantCashOffer.Ptr()))
	_, _ = fmt.Fprintf(w, "Deal spread:\t%s\n", money(c.DealSpread.Ptr()))
	_, _ = fmt.Fprintf(w, "Min spread:\t%s\n", money(&c.MinSpread))
	_, _ = fmt.Fprintf(w, "Urgency:\t%s\n", c.UrgencyBand)
	_, _ = fmt.Fprintf(w, "Guardrails:\t%s (%s)\n", g.Status, g.Health.Label)
	_, _ = fmt.Fprintf(w, "Workflow:\t%s\n", g.Workflow)
	_, _ = fmt.Fprintf(w, "Listing allowed:\t%t\n", c.ListingAllowed)
	for _, f := range o.Outputs.Compliance {
		_, _ = fmt.Fprintf(w, "Flag:\t%s [%s] %s\n", f.Code, f.Severity, f.Message)
	}
	for _, warn := range g.Warnings {
		_, _ = fmt.Fprintf(w, "Warning:\t%s\n", warn)
	}
	_ = w.Flush()
}

var printer = message.NewPrinter(language.AmericanEnglish)

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("$%.2f", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	analyzeCmd.Flags().Bool("save", false, "persist each run to the configured store")
	analyzeCmd.Flags().Bool("summary", false, "print a short table instead of JSON")
	analyzeCmd.Flags().String("posture", "", "override the envelope posture (conservative, base, aggressive)")
	analyzeCmd.Flags().String("as-of", "", "override the reference date (YYYY-MM-DD)")
	rootCmd.AddCommand(analyzeCmd)
}
