package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwrite-cli/internal/model"
)

var doubleCloseCmd = &cobra.Command{
	Use:   "double-close <record.json>",
	Short: "Compute a stand-alone double-close worksheet",
	Long:  "Reads a double-close record (A->B and B->C prices, county, funding and carry inputs) and prints the closing cost stack, spreads and fee-target check under the resolved policy.",
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

		var rec model.DoubleCloseRecord
		if err := json.NewDecoder(r).Decode(&rec); err != nil {
			return eris.Wrap(err, "decode double-close record")
		}
		if county, _ := cmd.Flags().GetString("county"); county != "" {
			rec.County = county
		}

		eng, err := initEngine()
		if err != nil {
			return err
		}
		posture, _ := cmd.Flags().GetString("posture")
		if posture == "" {
			posture = cfg.Engine.Posture
		}
		return writeJSON(cmd.OutOrStdout(), eng.DoubleClose(rec, posture, nil))
	},
}

func init() {
	doubleCloseCmd.Flags().String("county", "", "override the record's county")
	doubleCloseCmd.Flags().String("posture", "", "policy posture (default from config)")
	rootCmd.AddCommand(doubleCloseCmd)
}
