package doubleclose

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/underwrite-cli/internal/policy"
)

// DefaultCounty is used when neither the record nor the deal names a county.
const DefaultCounty = "Orange"

// CountyRate is a deed documentary stamp rate per $100 for a county that
// does not use the statewide rate.
type CountyRate struct {
	SFR   float64 `yaml:"sfr" mapstructure:"sfr"`
	Other float64 `yaml:"other" mapstructure:"other"`
}

// Rates holds the jurisdiction pricing used by Compute.
type Rates struct {
	DeedPer100       float64               `yaml:"deed_per_100" mapstructure:"deed_per_100"`
	HighRateCounties map[string]CountyRate `yaml:"high_rate_counties" mapstructure:"high_rate_counties"`

	TitleTierLimit       float64 `yaml:"title_tier_limit" mapstructure:"title_tier_limit"`
	TitleTierPerThousand float64 `yaml:"title_tier_per_thousand" mapstructure:"title_tier_per_thousand"`
	TitleExcessPerThou   float64 `yaml:"title_excess_per_thousand" mapstructure:"title_excess_per_thousand"`

	RecordingFirstPage float64 `yaml:"recording_first_page" mapstructure:"recording_first_page"`
	RecordingPerPage   float64 `yaml:"recording_per_page" mapstructure:"recording_per_page"`

	NoteStampPer100 float64 `yaml:"note_stamp_per_100" mapstructure:"note_stamp_per_100"`
	IntangibleRate  float64 `yaml:"intangible_rate" mapstructure:"intangible_rate"`

	EstoppelCap float64 `yaml:"estoppel_cap" mapstructure:"estoppel_cap"`
	RushFee     float64 `yaml:"rush_fee" mapstructure:"rush_fee"`

	FundingPointsRate float64 `yaml:"funding_points_rate" mapstructure:"funding_points_rate"`
	SeasoningDays     float64 `yaml:"seasoning_days" mapstructure:"seasoning_days"`
}

// DefaultRates returns Florida statutory rates.
func DefaultRates() Rates {
	return Rates{
		DeedPer100: 0.70,
		HighRateCounties: map[string]CountyRate{
			"miami-dade": {SFR: 0.60, Other: 1.05},
		},
		TitleTierLimit:       100000,
		TitleTierPerThousand: 5.75,
		TitleExcessPerThou:   5.00,
		RecordingFirstPage:   10,
		RecordingPerPage:     8.50,
		NoteStampPer100:      0.35,
		IntangibleRate:       0.002,
		EstoppelCap:          350,
		RushFee:              150,
		FundingPointsRate:    0.02,
		SeasoningDays:        90,
	}
}

// RatesFromPolicy overlays the policy's deed rate, estoppel cap, rush fee
// and funding points on the default rates.
func RatesFromPolicy(u policy.Underwriting) Rates {
	r := DefaultRates()
	dc := u.DoubleClose
	if dc.DeedStampRate > 0 {
		r.DeedPer100 = dc.DeedStampRate * 100
	}
	if dc.HOAEstoppelCap > 0 {
		r.EstoppelCap = dc.HOAEstoppelCap
	}
	if dc.HOARushFee > 0 {
		r.RushFee = dc.HOARushFee
	}
	if dc.FundingPointsRate > 0 {
		r.FundingPointsRate = dc.FundingPointsRate
	}
	return r
}

// DeedRate returns the per-$100 deed stamp rate for a county and property type.
func (r Rates) DeedRate(county, propertyType string) float64 {
	if cr, ok := r.HighRateCounties[CountyKey(county)]; ok {
		if IsSFR(propertyType) {
			return cr.SFR
		}
		return cr.Other
	}
	return r.DeedPer100
}

// CountyKey normalizes a county name for rate lookup: "Miami Dade County"
// and "miami-dade" both become "miami-dade".
func CountyKey(county string) string {
	k := strings.ToLower(strings.TrimSpace(county))
	k = strings.TrimSuffix(k, " county")
	return strings.Join(strings.Fields(strings.ReplaceAll(k, "-", " ")), "-")
}

// CountyName title-cases a county for display.
func CountyName(county string) string {
	county = strings.TrimSpace(county)
	if county == "" {
		return DefaultCounty
	}
	return cases.Title(language.English).String(strings.ToLower(county))
}

// IsSFR reports whether a property type label denotes a single-family residence.
func IsSFR(propertyType string) bool {
	p := strings.ToLower(strings.TrimSpace(propertyType))
	if p == "" {
		return true
	}
	return strings.Contains(p, "sfr") || strings.Contains(p, "single")
}
