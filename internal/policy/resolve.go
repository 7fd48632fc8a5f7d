package policy

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Posture is a named risk stance that selects among posture-aware values.
type Posture string

// Supported postures.
const (
	Conservative Posture = "conservative"
	Base         Posture = "base"
	Aggressive   Posture = "aggressive"
)

// Postures lists every posture in display order.
var Postures = []Posture{Conservative, Base, Aggressive}

// ParsePosture validates a posture name. Empty input means Base.
func ParsePosture(s string) (Posture, error) {
	switch p := Posture(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Base, nil
	case Conservative, Base, Aggressive:
		return p, nil
	default:
		return "", eris.Errorf("policy: unknown posture %q", s)
	}
}

// PostureAwareKeys is the fixed set of settings that may differ by posture.
var PostureAwareKeys = []string{
	"aivSafetyCapPercentage",
	"initialOfferSpreadMultiplier",
	"carryMonthsMaximumCap",
	"buyerTargetMarginFlipBaselinePolicy",
	"floorInvestorAivDiscountTypicalZip",
	"floorInvestorAivDiscountP20Zip",
	"assignmentFeeTarget",
	"dispositionRecommendationUrgentCashMaxDtm",
	"offerValidityPeriodDaysPolicy",
}

var postureAware = func() map[string]bool {
	m := make(map[string]bool, len(PostureAwareKeys))
	for _, k := range PostureAwareKeys {
		m[k] = true
	}
	return m
}()

// IsPostureAware reports whether key may carry per-posture values.
func IsPostureAware(key string) bool { return postureAware[key] }

// Resolve merges global defaults, organization overrides and posture into
// one effective configuration containing every key known to defaults.
//
// Posture-aware keys resolve as: org override for the posture, then the
// org's un-postured override, then the default for the posture, then the
// default. Other keys resolve as org override, then default. Keys absent
// from defaults are ignored, and null overrides count as absent. The result
// shares no memory with its inputs.
func Resolve(defaults, overrides Config, posture Posture) Config {
	posture, err := ParsePosture(string(posture))
	if err != nil {
		posture = Base
	}

	orgPosture := overrides.PostureValues(posture)
	defPosture := defaults.PostureValues(posture)

	out := make(Config, len(defaults)+1)
	for key, def := range defaults {
		if key == PostureConfigsKey {
			continue
		}
		var v any
		if IsPostureAware(key) {
			v = firstPresent(
				lookup(orgPosture, key),
				lookup(overrides, key),
				lookup(defPosture, key),
				def,
			)
		} else {
			v = firstPresent(lookup(overrides, key), def)
		}
		out[key] = cloneValue(v)
	}

	merged := make(map[string]any, len(Postures))
	for _, p := range Postures {
		org, def := overrides.PostureValues(p), defaults.PostureValues(p)
		values := map[string]any{}
		for _, key := range PostureAwareKeys {
			if _, known := defaults[key]; !known {
				continue
			}
			if v := firstPresent(lookup(org, key), lookup(def, key)); v != nil {
				values[key] = cloneValue(v)
			}
		}
		if len(values) > 0 {
			merged[string(p)] = values
		}
	}
	out[PostureConfigsKey] = merged
	return out
}

// PrepareForSave mirrors the base posture's values onto the root keys so a
// consumer unaware of postures reads one flat view. The input is not
// modified.
func PrepareForSave(cfg Config) Config {
	out := cfg.Clone()
	if out == nil {
		out = Config{}
	}
	base := out.PostureValues(Base)
	for _, key := range PostureAwareKeys {
		if v := lookup(base, key); v != nil {
			out[key] = cloneValue(v)
		}
	}
	return out
}

// PickPostureValue returns the value of key for posture p, falling back to
// the root value.
func PickPostureValue(cfg Config, p Posture, key string) any {
	return firstPresent(lookup(cfg.PostureValues(p), key), cfg[key])
}

func lookup(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
