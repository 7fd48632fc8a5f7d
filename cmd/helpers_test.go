package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/config"
)

const testEnvelope = `{
  "dealId": "deal-1",
  "posture": "base",
  "deal": {
    "market": {"arv": 300000, "as_is_value": "$200,000", "dom_zip": 45, "moi_zip": 2.5},
    "costs": {
      "repairs_base": 25000,
      "repair_class": "Medium",
      "monthly": {"taxes": 300, "insurance": 120, "hoa": "", "utilities": 150}
    },
    "debt": {"senior_principal": 120000, "senior_per_diem": 20},
    "property": {"county": "Orange", "occupancy": "owner"},
    "foreclosure": {
      "foreclosure_status": "judgment_entered",
      "lis_pendens_date": "2026-03-01",
      "judgment_date": "2026-09-01"
    },
    "seller": {"reason_for_selling": "foreclosure", "seller_timeline": "urgent", "decision_maker_status": "sole_owner"},
    "liens": {"title_search_completed": true, "hoa_balance": 3000, "property_tax_balance": 1200},
    "systems": {"roof_year_installed": 1998, "hvac_year_installed": 2020}
  },
  "sandboxConfig": {"assignmentFeeTarget": 12000},
  "repairProfile": {"id": "rp-1", "bidsPresent": true},
  "meta": {"orgId": "org-1", "asOf": "2026-10-01"}
}`

// withTestConfig installs a config backed by a temp-dir SQLite store for
// the duration of the test.
func withTestConfig(t *testing.T) *config.Config {
	t.Helper()
	old := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:        "sqlite",
			DatabaseURL:   filepath.Join(t.TempDir(), "runs.db"),
			RetryAttempts: 3,
		},
		Server: config.ServerConfig{Port: 8080, CORSOrigins: []string{"*"}},
		Log:    config.LogConfig{Level: "info", Format: "json"},
		Engine: config.EngineConfig{Posture: "base", BatchConcurrency: 2, EngineVersion: "test"},
	}
	t.Cleanup(func() { cfg = old })
	return cfg
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs c's RunE with the given flags and captures stdout. Flags are
// reset afterwards because commands are package globals.
func execute(t *testing.T, c *cobra.Command, args []string, flags ...string) (string, error) {
	t.Helper()
	require.Zero(t, len(flags)%2, "flags must be name/value pairs")

	c.InheritedFlags()
	for i := 0; i < len(flags); i += 2 {
		require.NoError(t, c.Flags().Set(flags[i], flags[i+1]))
	}
	t.Cleanup(func() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	})

	var out bytes.Buffer
	c.SetOut(&out)
	c.SetIn(strings.NewReader(""))
	c.SetContext(context.Background())
	t.Cleanup(func() {
		c.SetOut(nil)
		c.SetIn(nil)
	})

	err := c.RunE(c, args)
	return out.String(), err
}
