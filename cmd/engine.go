package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// loadDefaults returns the built-in global defaults with the configured
// policy file layered on top.
func loadDefaults() (policy.Config, error) {
	defaults := policy.Defaults()
	if cfg.Engine.PolicyFile == "" {
		return defaults, nil
	}
	file, err := policy.LoadFile(cfg.Engine.PolicyFile)
	if err != nil {
		return nil, err
	}
	return policy.Merge(defaults, file), nil
}

// initEngine builds the engine from configuration.
func initEngine() (*engine.Engine, error) {
	if err := cfg.Validate("engine"); err != nil {
		return nil, err
	}
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithVersion(cfg.Engine.EngineVersion),
		engine.WithConcurrency(cfg.Engine.BatchConcurrency),
	}
	if cfg.Engine.OrgPolicyFile != "" {
		org, err := policy.LoadFile(cfg.Engine.OrgPolicyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithOrgOverrides(org))
	}

	zap.L().Debug("engine ready",
		zap.String("policy_file", cfg.Engine.PolicyFile),
		zap.String("org_policy_file", cfg.Engine.OrgPolicyFile),
	)
	return engine.New(defaults, opts...), nil
}

// readEnvelopes decodes one envelope or a JSON array of envelopes from r.
func readEnvelopes(r io.Reader) ([]model.Envelope, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read envelope")
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, eris.New("envelope input is empty")
	}
	if strings.HasPrefix(trimmed, "[") {
		var envs []model.Envelope
		if err := json.Unmarshal(data, &envs); err != nil {
			return nil, eris.Wrap(err, "decode envelope list")
		}
		return envs, nil
	}
	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "decode envelope")
	}
	return []model.Envelope{env}, nil
}

// readEnvelopeFiles reads every path, "-" meaning stdin.
func readEnvelopeFiles(paths []string, stdin io.Reader) ([]model.Envelope, error) {
	var all []model.Envelope
	for _, p := range paths {
		var r io.Reader
		if p == "-" {
			r = stdin
		} else {
			f, err := os.Open(filepath.Clean(p))
			if err != nil {
				return nil, eris.Wrapf(err, "open %s", p)
			}
			defer f.Close() //nolint:errcheck
			r = f
		}
		envs, err := readEnvelopes(r)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", p)
		}
		all = append(all, envs...)
	}
	return all, nil
}

// applyDefaultPosture fills a blank envelope posture from configuration.
func applyDefaultPosture(env *model.Envelope) {
	if strings.TrimSpace(env.Posture) == "" {
		env.Posture = cfg.Engine.Posture
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
