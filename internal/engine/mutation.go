package engine

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/model"
)

// SetField returns a Mutation that assigns value at a dotted JSON path of the
// deal, e.g. "market.arv" or "foreclosure.foreclosure_status". The value is
// decoded as JSON when it parses and used as a string otherwise. Missing
// intermediate objects are created.
func SetField(path, value string) (Mutation, error) {
	keys := strings.Split(strings.TrimSpace(path), ".")
	for _, k := range keys {
		if k == "" {
			return nil, eris.Errorf("engine: invalid field path %q", path)
		}
	}
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		v = value
	}
	// Validate against an empty deal so bad paths fail before the run.
	if err := setPath(&model.Deal{}, keys, v); err != nil {
		return nil, eris.Wrapf(err, "engine: set %s", path)
	}
	return func(d *model.Deal) {
		// Validated above; a value that decodes on an empty deal decodes
		// on any deal.
		_ = setPath(d, keys, v)
	}, nil
}

// ParseAssignment parses "path=value" into a Mutation.
func ParseAssignment(s string) (Mutation, error) {
	path, value, ok := strings.Cut(s, "=")
	if !ok {
		return nil, eris.Errorf("engine: assignment %q must be path=value", s)
	}
	return SetField(path, value)
}

func setPath(d *model.Deal, keys []string, v any) error {
	data, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "encode deal")
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return eris.Wrap(err, "decode deal")
	}

	node := doc
	for _, k := range keys[:len(keys)-1] {
		next, ok := node[k].(map[string]any)
		if !ok {
			if node[k] != nil {
				return eris.Errorf("%s is not an object", k)
			}
			next = map[string]any{}
			node[k] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = v

	data, err = json.Marshal(doc)
	if err != nil {
		return eris.Wrap(err, "encode mutated deal")
	}
	var out model.Deal
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return eris.Wrap(err, "decode mutated deal")
	}
	*d = out
	return nil
}
