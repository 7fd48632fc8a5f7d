package engine

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// RunInput packages env and its output for the run store. The stored
// input carries the reference date the run used, so re-running it
// reproduces the output.
func (o *Output) RunInput(env model.Envelope) (model.RunInput, error) {
	env = env.Clone()
	env.Meta.AsOf = o.Meta.AsOf
	env.Posture = o.Meta.Posture

	input, err := json.Marshal(env)
	if err != nil {
		return model.RunInput{}, eris.Wrap(err, "engine: marshal run input")
	}
	outputs, err := json.Marshal(o.Outputs)
	if err != nil {
		return model.RunInput{}, eris.Wrap(err, "engine: marshal run output")
	}
	trace, err := json.Marshal(o.Trace)
	if err != nil {
		return model.RunInput{}, eris.Wrap(err, "engine: marshal run trace")
	}
	snapshot, err := json.Marshal(policy.PrepareForSave(o.Policy))
	if err != nil {
		return model.RunInput{}, eris.Wrap(err, "engine: marshal policy snapshot")
	}
	outputHash, err := Hash(o.Outputs)
	if err != nil {
		return model.RunInput{}, eris.Wrap(err, "engine: hash output")
	}

	return model.RunInput{
		OrgID:   env.Meta.OrgID,
		DealID:  env.DealID,
		Posture: o.Meta.Posture,
		Hashes: model.RunHashes{
			Input:  o.Meta.InputHash,
			Output: outputHash,
			Policy: o.Meta.PolicyHash,
		},
		Input:          input,
		Output:         outputs,
		Trace:          trace,
		PolicySnapshot: snapshot,
		Meta: model.RunMeta{
			EngineVersion: o.Meta.EngineVersion,
			PolicyVersion: o.Meta.PolicyVersion,
			DurationMs:    o.Meta.DurationMs,
		},
	}, nil
}
