// Package motivation scores how motivated a seller is from their stated
// situation and any foreclosure urgency.
package motivation

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/numeric"
)

// Level is a motivation level.
type Level string

// Motivation levels.
const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Confidence is how much of the seller situation was supplied.
type Confidence string

// Confidence tiers.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Score thresholds.
const (
	MediumMin   = 40
	HighMin     = 65
	CriticalMin = 85

	DefaultBaseScore    = 50
	DistressBonus       = 10
	MaxForeclosureBoost = 25
)

// ReasonWeights is the base score per reason for selling.
var ReasonWeights = map[string]float64{
	"foreclosure":        100,
	"pre_foreclosure":    90,
	"financial_distress": 85,
	"tax_lien":           85,
	"divorce":            80,
	"job_loss":           80,
	"code_violations":    75,
	"probate":            70,
	"health_issues":      70,
	"tired_landlord":     60,
	"inherited":          55,
	"relocation":         50,
	"downsizing":         40,
	"other":              30,
}

// TimelineMultipliers scale the base score by seller timeline.
var TimelineMultipliers = map[string]float64{
	"immediate":      1.5,
	"urgent":         1.3,
	"flexible":       1.0,
	"no_rush":        0.7,
	"testing_market": 0.3,
}

// DecisionMakerFactors scale the base score by decision-maker clarity.
var DecisionMakerFactors = map[string]float64{
	"sole_owner":        1.0,
	"joint_decision":    0.9,
	"power_of_attorney": 0.85,
	"estate_executor":   0.8,
	"multiple_parties":  0.6,
	"unknown":           0.7,
}

// Input is the motivation scoring input. ForeclosureBoost comes from the
// foreclosure timeline and is clamped to [0, 25].
type Input struct {
	ReasonForSelling    string  `json:"reason_for_selling,omitempty"`
	SellerTimeline      string  `json:"seller_timeline,omitempty"`
	DecisionMakerStatus string  `json:"decision_maker_status,omitempty"`
	MortgageDelinquent  *bool   `json:"mortgage_delinquent,omitempty"`
	ForeclosureBoost    float64 `json:"foreclosure_boost"`
}

// InputFrom builds an Input from a deal's seller situation.
func InputFrom(s model.SellerSituation, foreclosureBoost int) Input {
	return Input{
		ReasonForSelling:    s.ReasonForSelling,
		SellerTimeline:      s.Timeline,
		DecisionMakerStatus: s.DecisionMakerStatus,
		MortgageDelinquent:  s.MortgageDelinquent,
		ForeclosureBoost:    float64(foreclosureBoost),
	}
}

// Breakdown shows each score component.
type Breakdown struct {
	BaseScore           float64 `json:"base_score"`
	TimelineMultiplier  float64 `json:"timeline_multiplier"`
	DecisionMakerFactor float64 `json:"decision_maker_factor"`
	DistressBonus       float64 `json:"distress_bonus"`
	ForeclosureBoost    float64 `json:"foreclosure_boost"`
}

// Output is a motivation score.
type Output struct {
	Score      int        `json:"motivation_score"`
	Level      Level      `json:"motivation_level"`
	Confidence Confidence `json:"confidence"`
	RedFlags   []string   `json:"red_flags"`
	Breakdown  Breakdown  `json:"breakdown"`
}

// Score computes base × timeline × decision maker + distress + boost,
// clamped to 0..100 and rounded. Unknown or blank options use neutral
// values.
func Score(in Input) Output {
	reason := normalize(in.ReasonForSelling)
	timeline := normalize(in.SellerTimeline)
	dm := normalize(in.DecisionMakerStatus)

	b := Breakdown{
		BaseScore:           DefaultBaseScore,
		TimelineMultiplier:  1,
		DecisionMakerFactor: 1,
		ForeclosureBoost:    numeric.Clamp(in.ForeclosureBoost, 0, MaxForeclosureBoost),
	}
	if w, ok := ReasonWeights[reason]; ok {
		b.BaseScore = w
	}
	if m, ok := TimelineMultipliers[timeline]; ok {
		b.TimelineMultiplier = m
	}
	if f, ok := DecisionMakerFactors[dm]; ok {
		b.DecisionMakerFactor = f
	}
	if in.MortgageDelinquent != nil && *in.MortgageDelinquent {
		b.DistressBonus = DistressBonus
	}

	raw := b.BaseScore*b.TimelineMultiplier*b.DecisionMakerFactor + b.DistressBonus + b.ForeclosureBoost
	score := int(math.Round(numeric.Clamp(raw, 0, 100)))

	return Output{
		Score:      score,
		Level:      levelFor(score),
		Confidence: confidenceFor(reason, timeline, dm, in.MortgageDelinquent),
		RedFlags:   redFlags(timeline, dm),
		Breakdown:  b,
	}
}

// Preview scores in and recovers from any internal failure, returning nil
// so callers can show that no preview is available.
func Preview(in Input) (out *Output) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("motivation: preview failed", zap.String("panic", fmt.Sprint(r)))
			out = nil
		}
	}()
	o := Score(in)
	return &o
}

func levelFor(score int) Level {
	switch {
	case score >= CriticalMin:
		return LevelCritical
	case score >= HighMin:
		return LevelHigh
	case score >= MediumMin:
		return LevelMedium
	default:
		return LevelLow
	}
}

func confidenceFor(reason, timeline, dm string, delinquent *bool) Confidence {
	provided := 0
	for _, s := range []string{reason, timeline, dm} {
		if s != "" {
			provided++
		}
	}
	if delinquent != nil {
		provided++
	}
	ratio := float64(provided) / 4
	switch {
	case ratio >= 0.75:
		return ConfidenceHigh
	case ratio >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func redFlags(timeline, dm string) []string {
	flags := []string{}
	switch timeline {
	case "testing_market":
		flags = append(flags, "Seller may just be testing the market")
	case "no_rush":
		flags = append(flags, "No closing urgency - low motivation")
	}
	switch dm {
	case "multiple_parties":
		flags = append(flags, "Multiple decision makers - harder to close")
	case "unknown":
		flags = append(flags, "Decision maker status unknown - verify authority")
	}
	return flags
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
