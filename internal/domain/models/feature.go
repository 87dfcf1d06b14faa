package models

// FeatureVector is the fixed-order tuple of fraud indicators engineered for
// one tender. It is a pure function of the TenderRecord and the batch
// aggregate context: identical inputs always produce identical vectors.
// Boolean indicators are encoded as 0/1 so the whole vector feeds the
// anomaly detectors directly.
type FeatureVector struct {
	// Raw numerics
	ContractAmount float64 `json:"contract_amount"`
	BidderCount    float64 `json:"bidder_count"`
	DurationDays   float64 `json:"duration_days"`

	// Competition
	SingleBidderFlag   float64 `json:"single_bidder_flag"`
	LowCompetitionFlag float64 `json:"low_competition_flag"`
	ZeroBiddersFlag    float64 `json:"zero_bidders_flag"`
	BidderToValueRatio float64 `json:"bidder_to_value_ratio"`

	// Pricing
	AmountZScore      float64 `json:"amount_zscore"`
	PricePerDay       float64 `json:"price_per_day"`
	PricePerDayZScore float64 `json:"price_per_day_zscore"`
	RoundAmountFlag   float64 `json:"round_amount_flag"`
	NearThresholdFlag float64 `json:"near_threshold_flag"`

	// Timing
	ShortDurationFlag      float64 `json:"short_duration_flag"`
	WeekendPublicationFlag float64 `json:"weekend_publication_flag"`
	YearEndRushFlag        float64 `json:"year_end_rush_flag"`
	FiscalQ4Flag           float64 `json:"fiscal_q4_flag"`
	MissingDateFlag        float64 `json:"missing_date_flag"`

	// Procurement method and payment
	LimitedTenderFlag  float64 `json:"limited_tender_flag"`
	LumpSumFlag        float64 `json:"lump_sum_flag"`
	OfflinePaymentFlag float64 `json:"offline_payment_flag"`

	// Department aggregates
	DeptTenderFrequency  float64 `json:"dept_tender_frequency"`
	DeptSingleBidderRate float64 `json:"dept_single_bidder_rate"`

	// Derived composites
	RedFlagCount           float64 `json:"red_flag_count"`
	CompetitionHealthScore float64 `json:"competition_health_score"`
}

// featureNames lists vector components in their fixed order. Values() must
// stay aligned with this list.
var featureNames = []string{
	"contract_amount",
	"bidder_count",
	"duration_days",
	"single_bidder_flag",
	"low_competition_flag",
	"zero_bidders_flag",
	"bidder_to_value_ratio",
	"amount_zscore",
	"price_per_day",
	"price_per_day_zscore",
	"round_amount_flag",
	"near_threshold_flag",
	"short_duration_flag",
	"weekend_publication_flag",
	"year_end_rush_flag",
	"fiscal_q4_flag",
	"missing_date_flag",
	"limited_tender_flag",
	"lump_sum_flag",
	"offline_payment_flag",
	"dept_tender_frequency",
	"dept_single_bidder_rate",
	"red_flag_count",
	"competition_health_score",
}

// FeatureNames returns the component names in vector order.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// Values returns the vector as a fixed-order float slice for the anomaly
// detectors. Order matches FeatureNames().
func (v *FeatureVector) Values() []float64 {
	return []float64{
		v.ContractAmount,
		v.BidderCount,
		v.DurationDays,
		v.SingleBidderFlag,
		v.LowCompetitionFlag,
		v.ZeroBiddersFlag,
		v.BidderToValueRatio,
		v.AmountZScore,
		v.PricePerDay,
		v.PricePerDayZScore,
		v.RoundAmountFlag,
		v.NearThresholdFlag,
		v.ShortDurationFlag,
		v.WeekendPublicationFlag,
		v.YearEndRushFlag,
		v.FiscalQ4Flag,
		v.MissingDateFlag,
		v.LimitedTenderFlag,
		v.LumpSumFlag,
		v.OfflinePaymentFlag,
		v.DeptTenderFrequency,
		v.DeptSingleBidderRate,
		v.RedFlagCount,
		v.CompetitionHealthScore,
	}
}

// flagComponents maps indicator names to accessor funcs; used both for the
// red-flag count and for reporting which indicators fired.
var flagComponents = []struct {
	name string
	get  func(*FeatureVector) float64
}{
	{"single_bidder_flag", func(v *FeatureVector) float64 { return v.SingleBidderFlag }},
	{"low_competition_flag", func(v *FeatureVector) float64 { return v.LowCompetitionFlag }},
	{"zero_bidders_flag", func(v *FeatureVector) float64 { return v.ZeroBiddersFlag }},
	{"round_amount_flag", func(v *FeatureVector) float64 { return v.RoundAmountFlag }},
	{"near_threshold_flag", func(v *FeatureVector) float64 { return v.NearThresholdFlag }},
	{"short_duration_flag", func(v *FeatureVector) float64 { return v.ShortDurationFlag }},
	{"weekend_publication_flag", func(v *FeatureVector) float64 { return v.WeekendPublicationFlag }},
	{"year_end_rush_flag", func(v *FeatureVector) float64 { return v.YearEndRushFlag }},
	{"fiscal_q4_flag", func(v *FeatureVector) float64 { return v.FiscalQ4Flag }},
	{"missing_date_flag", func(v *FeatureVector) float64 { return v.MissingDateFlag }},
	{"limited_tender_flag", func(v *FeatureVector) float64 { return v.LimitedTenderFlag }},
	{"lump_sum_flag", func(v *FeatureVector) float64 { return v.LumpSumFlag }},
	{"offline_payment_flag", func(v *FeatureVector) float64 { return v.OfflinePaymentFlag }},
}

// CountRedFlags sums every boolean indicator. Callers set RedFlagCount from
// this after deriving the individual flags.
func (v *FeatureVector) CountRedFlags() float64 {
	var n float64
	for _, fc := range flagComponents {
		if fc.get(v) >= 1 {
			n++
		}
	}
	return n
}

// TriggeredFlags returns the names of the boolean indicators that fired, in
// declaration order. The explanation service receives this list verbatim.
func (v *FeatureVector) TriggeredFlags() []string {
	out := make([]string, 0, len(flagComponents))
	for _, fc := range flagComponents {
		if fc.get(v) >= 1 {
			out = append(out, fc.name)
		}
	}
	return out
}
