package policy

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns a fresh copy of the built-in global defaults.
func Defaults() Config {
	cfg, err := Parse(defaultsYAML)
	if err != nil {
		panic(eris.Wrap(err, "policy: embedded defaults"))
	}
	return cfg
}

// Parse decodes a policy document. YAML and JSON are both accepted.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "policy: parse")
	}
	if raw == nil {
		return Config{}, nil
	}
	return Config(cloneValue(raw).(map[string]any)), nil
}

// LoadFile reads a policy document from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: read %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: load %s", path)
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	out, err := yaml.Marshal(map[string]any(cfg))
	if err != nil {
		return nil, eris.Wrap(err, "policy: marshal")
	}
	return out, nil
}

// Merge layers file-level overrides on top of base, key by key. It is used
// to apply a deployment's replacement defaults before org resolution.
func Merge(base, layer Config) Config {
	out := base.Clone()
	if out == nil {
		out = Config{}
	}
	for k, v := range layer {
		if v == nil {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}
