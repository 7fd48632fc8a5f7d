// Package engine runs the underwriting pipeline for one input envelope:
// policy resolution, costs, valuation bounds, the double-close, foreclosure,
// motivation, lien and systems sub-engines, compliance flags and guardrails.
package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwrite-cli/internal/cost"
	"github.com/sells-group/underwrite-cli/internal/doubleclose"
	"github.com/sells-group/underwrite-cli/internal/foreclosure"
	"github.com/sells-group/underwrite-cli/internal/guardrail"
	"github.com/sells-group/underwrite-cli/internal/lien"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/motivation"
	"github.com/sells-group/underwrite-cli/internal/numeric"
	"github.com/sells-group/underwrite-cli/internal/policy"
	"github.com/sells-group/underwrite-cli/internal/systems"
	"github.com/sells-group/underwrite-cli/internal/valuation"
)

// DefaultVersion is reported in output meta when no version is configured.
const DefaultVersion = "1.0.0"

// FallbackUrgencyBand labels deals with no auction date or one beyond every
// threshold.
const FallbackUrgencyBand = "Low"

// Engine computes underwriting outputs. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	defaults    policy.Config
	org         policy.Config
	version     string
	now         func() time.Time
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithOrgOverrides sets organization-level overrides applied beneath every
// envelope's sandbox config.
func WithOrgOverrides(cfg policy.Config) Option {
	return func(e *Engine) { e.org = cfg.Clone() }
}

// WithVersion sets the engine version reported in meta.
func WithVersion(v string) Option {
	return func(e *Engine) {
		if v != "" {
			e.version = v
		}
	}
}

// WithClock replaces the wall clock used for durations and for the
// reference date of envelopes that carry none.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithConcurrency bounds the number of envelopes RunBatch computes at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New creates an Engine over the given global defaults.
func New(defaults policy.Config, opts ...Option) *Engine {
	e := &Engine{
		defaults:    defaults.Clone(),
		version:     DefaultVersion,
		now:         time.Now,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Version returns the engine version.
func (e *Engine) Version() string { return e.version }

// Calculations is the flat record of derived values.
type Calculations struct {
	InstantCashOffer     numeric.Number `json:"instantCashOffer"`
	BuyerCeiling         numeric.Number `json:"buyerCeiling"`
	RespectFloorPrice    numeric.Number `json:"respectFloorPrice"`
	WholesaleMAO         numeric.Number `json:"maoWholesale"`
	DealSpread           numeric.Number `json:"dealSpread"`
	NetToSeller          numeric.Number `json:"netToSeller"`
	MinSpread            float64        `json:"minSpread"`
	CapAIV               float64        `json:"capAIV"`
	UrgencyBand          string         `json:"urgencyBand"`
	UrgencyDays          numeric.Number `json:"urgencyDays"`
	DaysToMoney          numeric.Number `json:"daysToMoney"`
	ListingAllowed       bool           `json:"listingAllowed"`
	DisplayMargin        float64        `json:"displayMargin"`
	DisplayCont          float64        `json:"displayCont"`
	CarryMonths          float64        `json:"carryMonths"`
	TotalRepairs         float64        `json:"totalRepairs"`
	CarryCosts           float64        `json:"carryCosts"`
	ResaleCosts          float64        `json:"resaleCosts"`
	ProjectedPayoffClose numeric.Number `json:"projectedPayoffClose"`
	TenantBuffer         float64        `json:"tenantBuffer"`
	SpeedBand            string         `json:"speedBand"`
	OfferValidUntil      string         `json:"offerValidUntil,omitempty"`
}

// Outputs is everything a run derives.
type Outputs struct {
	Calculations      Calculations           `json:"calculations"`
	Valuation         valuation.Bounds       `json:"valuation"`
	Costs             cost.Rollup            `json:"costs"`
	DoubleClose       doubleclose.Calcs      `json:"double_close"`
	LienRisk          lien.Risk              `json:"lien_risk"`
	Systems           systems.Status         `json:"systems"`
	Timeline          *foreclosure.Timeline  `json:"foreclosure_timeline"`
	ForeclosureErrors foreclosure.Errors     `json:"foreclosure_errors,omitempty"`
	Motivation        *motivation.Output     `json:"motivation"`
	Guardrails        guardrail.View         `json:"guardrails"`
	WholesaleFee      guardrail.WholesaleFee `json:"wholesale_fee"`
	MarketTemp        guardrail.MarketTemp   `json:"market_temp"`
	Compliance        []Flag                 `json:"compliance_flags"`
	MissingInfo       []string               `json:"missing_info"`
}

// Meta describes how a run was produced.
type Meta struct {
	EngineVersion string `json:"engineVersion"`
	PolicyVersion string `json:"policyVersion"`
	Posture       string `json:"posture"`
	AsOf          string `json:"asOf"`
	DurationMs    int64  `json:"durationMs"`
	InputHash     string `json:"inputHash"`
	PolicyHash    string `json:"policyHash"`
}

// Output is the engine output envelope.
type Output struct {
	Outputs Outputs     `json:"outputs"`
	Trace   []TraceStep `json:"trace"`
	Meta    Meta        `json:"meta"`

	// Policy is the effective configuration the run used.
	Policy policy.Config `json:"-"`
}

// Run computes the output envelope for env. The envelope is never
// modified. Input defects are coerced, never returned; errors come only
// from hashing.
func (e *Engine) Run(env model.Envelope) (*Output, error) {
	start := e.now()
	env = env.Clone()

	posture, err := policy.ParsePosture(env.Posture)
	if err != nil {
		posture = policy.Base
	}
	env.Posture = string(posture)

	asOf, ok := foreclosure.ParseDate(env.Meta.AsOf)
	if !ok {
		asOf = dateOnly(start)
	}
	env.Meta.AsOf = asOf.Format(foreclosure.DateLayout)

	inputHash, err := Hash(env)
	if err != nil {
		return nil, eris.Wrap(err, "engine: hash input")
	}

	tr := &tracer{}
	resolved := policy.Resolve(e.defaults, policy.Merge(e.org, env.SandboxConfig), posture)
	policyHash, err := Hash(resolved)
	if err != nil {
		return nil, eris.Wrap(err, "engine: hash policy")
	}
	u := policy.Derive(resolved, posture)
	policyVersion := firstNonEmpty(env.Meta.PolicyVersion, resolved.StringOr("policyVersion", ""), "default")
	tr.add("POLICY_RESOLVE", []string{"defaults", "org", "sandboxConfig", "posture"}, map[string]any{
		"posture":        string(posture),
		"policy_version": policyVersion,
		"policy_hash":    policyHash,
	}, "Resolved %d settings for the %s posture", len(resolved), posture)

	deal := applyRepairProfile(env.Deal, env.RepairProfile)
	out := &Output{Policy: resolved}
	o := &out.Outputs

	costs := cost.NewCalculator(u).Compute(deal)
	o.Costs = costs
	traceCosts(tr, costs)

	b := valuation.Compute(deal, costs, u)
	o.Valuation = b
	traceValuation(tr, b)

	o.Calculations = calculations(b, costs, u)
	urgency(tr, &o.Calculations, deal, u, asOf)
	if u.OfferValidityDays > 0 {
		o.Calculations.OfferValidUntil = asOf.AddDate(0, 0, int(math.Ceil(u.OfferValidityDays))).Format(foreclosure.DateLayout)
	}

	e.subEngines(tr, o, deal, u, resolved, asOf)

	o.WholesaleFee = guardrail.WholesaleFeeView(b.BuyerCeiling, b.RespectFloor, deal.Market.ARV,
		o.DoubleClose.ExtraClosing+o.DoubleClose.CarryTotal)
	o.MarketTemp = guardrail.MarketTempView(string(b.SpeedBand), o.Calculations.DaysToMoney)

	o.MissingInfo = missingInfo(deal)
	o.Compliance = complianceFlags(deal, u, o)
	o.Calculations.ListingAllowed = listingAllowed(o.Compliance, o.Calculations.UrgencyDays, u)
	tr.add("COMPLIANCE", []string{"property", "status", "legal", "gates"}, map[string]any{
		"flags":           flagCodes(o.Compliance),
		"listing_allowed": o.Calculations.ListingAllowed,
	}, "%d compliance flags", len(o.Compliance))

	o.Guardrails = guardrail.Build(guardrail.Input{
		HasRun:         true,
		Offer:          guardrail.BestOffer(b.InstantCashOffer, b.WholesaleMAO),
		Floor:          b.RespectFloor,
		Ceiling:        b.BuyerCeiling,
		Spread:         b.DealSpread,
		MinSpread:      numeric.Of(b.MinSpread),
		FeeTargetCheck: o.DoubleClose.FeeTargetCheck,
		LienBlocking:   o.LienRisk.BlockingGateTriggered,
	})
	tr.add("GUARDRAILS", []string{"respectFloorPrice", "buyerCeiling", "instantCashOffer", "dealSpread", "minSpread"}, map[string]any{
		"status":     string(o.Guardrails.Status),
		"risk":       string(o.Guardrails.Risk),
		"health":     o.Guardrails.Health.Label,
		"workflow":   string(o.Guardrails.Workflow),
		"confidence": o.Guardrails.Confidence,
	}, "Guardrails %s, health %s", o.Guardrails.Status, o.Guardrails.Health.Label)

	out.Trace = tr.steps
	out.Meta = Meta{
		EngineVersion: e.version,
		PolicyVersion: policyVersion,
		Posture:       string(posture),
		AsOf:          env.Meta.AsOf,
		DurationMs:    e.now().Sub(start).Milliseconds(),
		InputHash:     inputHash,
		PolicyHash:    policyHash,
	}
	return out, nil
}

// subEngines runs the independent sub-engines. A failure in one degrades
// that result only.
func (e *Engine) subEngines(tr *tracer, o *Outputs, deal model.Deal, u policy.Underwriting, cfg policy.Config, asOf time.Time) {
	guard(tr, "DOUBLE_CLOSE", func() {
		rec := doubleclose.Autofill(deal.Costs.DoubleClose, doubleclose.AutofillContext{
			County:            deal.Property.County,
			PropertyType:      deal.Property.PropertyType,
			InstantCashOffer:  o.Calculations.InstantCashOffer,
			ARV:               deal.Market.ARV,
			FundingPointsRate: u.DoubleClose.FundingPointsRate,
		})
		o.DoubleClose = doubleclose.Compute(rec, doubleclose.RatesFromPolicy(u))
		tr.add("DOUBLE_CLOSE", []string{"double_close", "instantCashOffer", "arv"}, map[string]any{
			"county":             o.DoubleClose.County,
			"extra_closing_load": o.DoubleClose.ExtraClosing,
			"net_after_carry":    o.DoubleClose.NetAfterCarry,
			"fee_target_check":   o.DoubleClose.FeeTargetCheck,
		}, "Double-close net after carry $%.2f (%s)", o.DoubleClose.NetAfterCarry, o.DoubleClose.FeeTargetCheck)
	})

	boost := 0
	guard(tr, "FORECLOSURE_TIMELINE", func() {
		fc := deal.Foreclosure
		if strings.TrimSpace(fc.Status) == "" {
			return
		}
		fc = foreclosure.ApplyStatus(fc, fc.Status)
		if errs := foreclosure.Validate(fc); len(errs) > 0 {
			o.ForeclosureErrors = errs
		}
		t := foreclosure.Estimate(fc, asOf)
		o.Timeline = &t
		boost = t.MotivationBoost
		tr.add("FORECLOSURE_TIMELINE", []string{"foreclosure"}, map[string]any{
			"status":              string(t.Status),
			"urgency":             string(t.Urgency),
			"auction_date_source": t.AuctionDateSource,
			"motivation_boost":    t.MotivationBoost,
		}, "Foreclosure %s, urgency %s", t.Status, t.Urgency)
	})

	o.Motivation = motivation.Preview(motivation.InputFrom(deal.Seller, boost))
	if o.Motivation != nil {
		tr.add("MOTIVATION", []string{"seller", "foreclosure_boost"}, map[string]any{
			"score":      o.Motivation.Score,
			"level":      string(o.Motivation.Level),
			"confidence": string(o.Motivation.Confidence),
		}, "Motivation %d (%s)", o.Motivation.Score, o.Motivation.Level)
	} else {
		tr.add("MOTIVATION", nil, nil, "No motivation preview available")
	}

	guard(tr, "LIEN_RISK", func() {
		o.LienRisk = lien.Compute(deal.Liens)
		tr.add("LIEN_RISK", []string{"liens"}, map[string]any{
			"total_surviving": o.LienRisk.TotalSurviving,
			"risk_level":      string(o.LienRisk.Level),
			"blocking":        o.LienRisk.BlockingGateTriggered,
		}, "Surviving liens $%.2f (%s)", o.LienRisk.TotalSurviving, o.LienRisk.Level)
	})

	guard(tr, "SYSTEMS_RUL", func() {
		o.Systems = systems.Compute(deal.Systems, systems.SpecsFromPolicy(cfg), asOf.Year())
		tr.add("SYSTEMS_RUL", []string{"systems"}, map[string]any{
			"urgent":                 o.Systems.UrgentReplacements,
			"total_replacement_cost": o.Systems.TotalReplacementCost,
		}, "%d urgent system replacements", len(o.Systems.UrgentReplacements))
	})
}

// guard runs fn and converts a panic into a warning trace step.
func guard(tr *tracer, rule string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("engine: sub-engine failed",
				zap.String("rule", rule),
				zap.String("panic", fmt.Sprint(r)),
			)
			tr.add(rule, nil, map[string]any{"error": "unavailable"}, "%s unavailable", rule)
		}
	}()
	fn()
}

func calculations(b valuation.Bounds, c cost.Rollup, u policy.Underwriting) Calculations {
	return Calculations{
		InstantCashOffer:     b.InstantCashOffer,
		BuyerCeiling:         b.BuyerCeiling,
		RespectFloorPrice:    b.RespectFloor,
		WholesaleMAO:         b.WholesaleMAO,
		DealSpread:           b.DealSpread,
		NetToSeller:          b.NetToSeller,
		MinSpread:            b.MinSpread,
		CapAIV:               b.CappedAsIs,
		UrgencyBand:          FallbackUrgencyBand,
		DisplayMargin:        u.FlipMargin,
		DisplayCont:          c.ContingencyPct,
		CarryMonths:          c.CarryMonths,
		TotalRepairs:         c.TotalRepairs,
		CarryCosts:           c.CarryCosts,
		ResaleCosts:          c.ResaleCosts,
		ProjectedPayoffClose: b.ProjectedPayoff,
		TenantBuffer:         c.TenantBuffer,
		SpeedBand:            string(b.SpeedBand),
	}
}

// urgency sets urgency days from the auction date and the band from the
// DTM thresholds. Days to money prefers the manual override, then the
// auction, then planned close days.
func urgency(tr *tracer, c *Calculations, d model.Deal, u policy.Underwriting, asOf time.Time) {
	auction := firstNonEmpty(d.Timeline.AuctionDate, d.Foreclosure.AuctionDate)
	if t, ok := foreclosure.ParseDate(auction); ok {
		c.UrgencyDays = numeric.Of(float64(max(0, foreclosure.DaysBetween(asOf, t))))
	}
	if days, ok := c.UrgencyDays.Value(); ok {
		c.UrgencyBand = UrgencyBand(days, u.DTMThresholds)
	}

	switch {
	case d.Policy.ManualDaysToMoney.Valid():
		c.DaysToMoney = numeric.Of(numeric.SafeNonNeg(d.Policy.ManualDaysToMoney.Float()))
	case c.UrgencyDays.Valid():
		c.DaysToMoney = c.UrgencyDays
	default:
		c.DaysToMoney = numeric.Of(numeric.SafeNonNeg(d.Policy.PlannedCloseDays.Or(u.DefaultDaysToClose)))
	}

	tr.add("URGENCY", []string{"auction_date", "manual_days_to_money", "dtm_thresholds"}, map[string]any{
		"urgency_days":  c.UrgencyDays,
		"urgency_band":  c.UrgencyBand,
		"days_to_money": c.DaysToMoney,
	}, "Urgency band %s", c.UrgencyBand)
}

// UrgencyBand returns the label of the first threshold whose MaxDTM is at
// least days.
func UrgencyBand(days float64, thresholds []policy.UrgencyThreshold) string {
	for _, t := range thresholds {
		if days <= t.MaxDTM {
			return t.Label
		}
	}
	return FallbackUrgencyBand
}

// applyRepairProfile fills the deal's blank repair class and bid evidence
// from the selected profile.
func applyRepairProfile(d model.Deal, rp *model.RepairProfile) model.Deal {
	if rp == nil {
		return d
	}
	if strings.TrimSpace(d.Costs.RepairClass) == "" {
		d.Costs.RepairClass = rp.RepairClass
	}
	if d.Costs.RepairBidsPresent == nil && rp.BidsPresent != nil {
		d.Costs.RepairBidsPresent = model.BoolPtr(*rp.BidsPresent)
	}
	return d
}

// missingInfo lists absent core inputs once any core input is present.
func missingInfo(d model.Deal) []string {
	missing := []string{}
	if !d.HasCoreInput() {
		return missing
	}
	if d.Market.ARV.Float() == 0 {
		missing = append(missing, "ARV")
	}
	if d.Debt.SeniorPrincipal.Float() == 0 {
		missing = append(missing, "Senior Principal")
	}
	if d.Market.AsIsValue.Float() == 0 {
		missing = append(missing, "As-Is Value")
	}
	return missing
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
