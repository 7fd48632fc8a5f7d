package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/underwrite-cli/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and validate underwriting policy",
}

var policyDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the global defaults (built-in plus the configured policy file)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		defaults, err := loadDefaults()
		if err != nil {
			return err
		}
		return writePolicy(cmd, defaults)
	},
}

var policyResolveCmd = &cobra.Command{
	Use:   "resolve [sandbox.yaml]",
	Short: "Print the effective policy for a posture",
	Long:  "Resolves global defaults, the configured org overrides and an optional sandbox file for the posture. With --typed the derived underwriting view (percentages as fractions) is printed instead.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := initEngine()
		if err != nil {
			return err
		}
		var sandbox policy.Config
		if len(args) == 1 {
			sandbox, err = policy.LoadFile(args[0])
			if err != nil {
				return err
			}
		}
		posture, _ := cmd.Flags().GetString("posture")
		if posture == "" {
			posture = cfg.Engine.Posture
		}
		if _, err := policy.ParsePosture(posture); err != nil {
			return err
		}

		resolved, u := eng.ResolvePolicy(posture, sandbox)
		if typed, _ := cmd.Flags().GetBool("typed"); typed {
			return writeJSON(cmd.OutOrStdout(), u)
		}
		return writePolicy(cmd, resolved)
	},
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate <policy.yaml>",
	Short: "Validate a policy file layered over the global defaults",
	Long:  "Resolves the file over the global defaults for every posture and reports every problem found.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := policy.LoadFile(args[0])
		if err != nil {
			return err
		}
		defaults, err := loadDefaults()
		if err != nil {
			return err
		}
		if err := validateAllPostures(defaults, file); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
		return nil
	},
}

func validateAllPostures(defaults, file policy.Config) error {
	for _, p := range policy.Postures {
		if err := policy.Validate(policy.Resolve(defaults, file, p)); err != nil {
			return eris.Wrapf(err, "posture %s", p)
		}
	}
	return nil
}

func writePolicy(cmd *cobra.Command, cfg policy.Config) error {
	format, _ := cmd.Flags().GetString("format")
	return encodePolicy(cmd.OutOrStdout(), cfg, format)
}

func encodePolicy(w io.Writer, cfg policy.Config, format string) error {
	switch format {
	case "", "yaml":
		data, err := policy.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return eris.Wrap(err, "write policy")
	case "json":
		return writeJSON(w, cfg)
	default:
		return eris.Errorf("unknown format %q, want yaml or json", format)
	}
}

func init() {
	policyCmd.PersistentFlags().String("format", "yaml", "output format: yaml or json")
	policyResolveCmd.Flags().String("posture", "", "posture to resolve (default from config)")
	policyResolveCmd.Flags().Bool("typed", false, "print the derived underwriting view as JSON")

	policyCmd.AddCommand(policyDefaultsCmd)
	policyCmd.AddCommand(policyResolveCmd)
	policyCmd.AddCommand(policyValidateCmd)
	rootCmd.AddCommand(policyCmd)
}
