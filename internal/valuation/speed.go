package valuation

import (
	"math"

	"github.com/sells-group/underwrite-cli/internal/numeric"
	"github.com/sells-group/underwrite-cli/internal/policy"
)

// Speed is a ZIP market-speed band.
type Speed string

// Speed bands, fastest first.
const (
	SpeedFast    Speed = "fast"
	SpeedNeutral Speed = "neutral"
	SpeedSlow    Speed = "slow"
)

var speedOrder = []Speed{SpeedFast, SpeedNeutral, SpeedSlow}

func speedOrdinal(s Speed) int {
	for i, v := range speedOrder {
		if v == s {
			return i
		}
	}
	return 1
}

func bandFor(v, fastMax, balancedMax float64) Speed {
	switch {
	case v <= fastMax:
		return SpeedFast
	case v <= balancedMax:
		return SpeedNeutral
	default:
		return SpeedSlow
	}
}

// SpeedBand derives the ZIP speed band from days-on-market and months of
// inventory. When both signals exist and disagree, the policy method
// decides. A single signal is used as is; no signal yields neutral.
func SpeedBand(dom, moi numeric.Number, bands policy.SpeedBands) Speed {
	var signals []Speed
	if v, ok := dom.Value(); ok && v >= 0 {
		signals = append(signals, bandFor(v, bands.FastMaxDOM, bands.BalancedMaxDOM))
	}
	if v, ok := moi.Value(); ok && v >= 0 {
		signals = append(signals, bandFor(v, bands.FastMaxMOI, bands.BalancedMaxMOI))
	}

	switch len(signals) {
	case 0:
		return SpeedNeutral
	case 1:
		return signals[0]
	}

	a, b := speedOrdinal(signals[0]), speedOrdinal(signals[1])
	switch bands.Method {
	case policy.SpeedMethodAggressive:
		return speedOrder[min(a, b)]
	case policy.SpeedMethodBlended:
		return speedOrder[int(math.Round(float64(a+b)/2))]
	default:
		return speedOrder[max(a, b)]
	}
}
