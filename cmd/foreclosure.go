package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwrite-cli/internal/foreclosure"
)

var foreclosureCmd = &cobra.Command{
	Use:   "foreclosure <details.json>",
	Short: "Validate foreclosure details and preview the sale timeline",
	Long:  "Evaluates a foreclosure form: visible fields for the status, date and days-delinquent validation, completion count, and the timeline preview with urgency and motivation boost.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return eris.Wrapf(err, "open %s", args[0])
			}
			defer f.Close() //nolint:errcheck
			r = f
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return eris.Wrap(err, "read foreclosure details")
		}

		asOf, err := parseAsOf(cmd)
		if err != nil {
			return err
		}
		state, err := foreclosure.DecodeForm(data, asOf)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), state)
	},
}

// parseAsOf reads --as-of, defaulting to today in UTC.
func parseAsOf(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("as-of")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, ok := foreclosure.ParseDate(raw)
	if !ok {
		return time.Time{}, eris.Errorf("invalid --as-of %q, want YYYY-MM-DD", raw)
	}
	return t, nil
}

func init() {
	foreclosureCmd.Flags().String("as-of", "", "reference date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(foreclosureCmd)
}
