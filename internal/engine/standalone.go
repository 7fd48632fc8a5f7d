package engine

import (
	"github.com/sells-group/underwrite-cli/internal/doubleclose"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// ResolvePolicy returns the effective configuration and its typed view for
// a posture and sandbox layer, exactly as Run would resolve them.
func (e *Engine) ResolvePolicy(posture string, sandbox policy.Config) (policy.Config, policy.Underwriting) {
	p, err := policy.ParsePosture(posture)
	if err != nil {
		p = policy.Base
	}
	resolved := policy.Resolve(e.defaults, policy.Merge(e.org, sandbox), p)
	return resolved, policy.Derive(resolved, p)
}

// DoubleClose computes a stand-alone double-close worksheet under the
// resolved policy. Unlike Run, the purchase prices are never autofilled:
// there is no deal to take them from.
func (e *Engine) DoubleClose(rec model.DoubleCloseRecord, posture string, sandbox policy.Config) doubleclose.Calcs {
	_, u := e.ResolvePolicy(posture, sandbox)
	rec = doubleclose.Autofill(rec, doubleclose.AutofillContext{
		County:            rec.County,
		PropertyType:      rec.PropertyType,
		FundingPointsRate: u.DoubleClose.FundingPointsRate,
	})
	return doubleclose.Compute(rec, doubleclose.RatesFromPolicy(u))
}
