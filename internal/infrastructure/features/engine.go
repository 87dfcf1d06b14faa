// Package features derives fraud-indicator vectors from canonical tender
// records. Derivation is a pure function of one record plus read-only batch
// aggregates; aggregates are finalized in a pre-pass before any per-record
// work so sibling records can never influence each other through hidden
// state.
package features

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/logger"
	"github.com/openprocure/tenderisk/pkg/utils"
)

// varianceEpsilon keeps department z-scores finite on zero-variance groups.
const varianceEpsilon = 1e-8

// DefaultOversightThresholds are the regulatory cutoffs used for the
// near-threshold indicator: amounts within 5% below a cutoff suggest
// threshold gaming to dodge oversight.
var DefaultOversightThresholds = []float64{1_000_000, 10_000_000}

// Aggregates is the read-only batch context shared by every per-record
// derivation. All maps are keyed by department name.
type Aggregates struct {
	// AmountQ75 is the 75th percentile of contract amount across the batch,
	// substituted with 1 when zero or undefined.
	AmountQ75 float64

	DeptAmountMean      map[string]float64
	DeptAmountStd       map[string]float64
	DeptPricePerDayMean map[string]float64
	DeptPricePerDayStd  map[string]float64

	// DeptFrequency is the tender count per department.
	DeptFrequency map[string]float64

	// DeptSingleBidderRate is the share of single-bidder tenders per department.
	DeptSingleBidderRate map[string]float64

	// SmallBatch marks batches of fewer than 2 records, for which the
	// dispersion statistics are defined as 0 rather than computed.
	SmallBatch bool
}

// Engine derives FeatureVectors from resolved tender records.
type Engine struct {
	log                 logger.Logger
	oversightThresholds []float64
}

// Option configures the feature engine.
type Option func(*Engine)

// WithOversightThresholds overrides the regulatory cutoffs used for the
// near-threshold indicator.
func WithOversightThresholds(thresholds []float64) Option {
	return func(e *Engine) {
		if len(thresholds) > 0 {
			e.oversightThresholds = thresholds
		}
	}
}

// NewEngine creates a feature engine.
func NewEngine(log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:                 log.WithComponent("features"),
		oversightThresholds: DefaultOversightThresholds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pricePerDay spreads the amount over the duration. The +1 guards division
// for degenerate durations.
func pricePerDay(rec *models.TenderRecord) float64 {
	return rec.ContractAmount / float64(rec.DurationDays+1)
}

func isSingleBidder(rec *models.TenderRecord) bool {
	return rec.HasBidderCount && rec.BidderCount == 1
}

// ComputeAggregates runs the read-only pre-pass over the whole batch. The
// result must be finalized before any per-record derivation begins.
func (e *Engine) ComputeAggregates(records []models.TenderRecord) Aggregates {
	agg := Aggregates{
		AmountQ75:            1,
		DeptAmountMean:       make(map[string]float64),
		DeptAmountStd:        make(map[string]float64),
		DeptPricePerDayMean:  make(map[string]float64),
		DeptPricePerDayStd:   make(map[string]float64),
		DeptFrequency:        make(map[string]float64),
		DeptSingleBidderRate: make(map[string]float64),
		SmallBatch:           len(records) < 2,
	}
	if len(records) == 0 {
		return agg
	}

	amounts := make([]float64, len(records))
	deptAmounts := make(map[string][]float64)
	deptPerDay := make(map[string][]float64)
	deptSingle := make(map[string]float64)
	for i := range records {
		rec := &records[i]
		amounts[i] = rec.ContractAmount
		deptAmounts[rec.DeptName] = append(deptAmounts[rec.DeptName], rec.ContractAmount)
		deptPerDay[rec.DeptName] = append(deptPerDay[rec.DeptName], pricePerDay(rec))
		agg.DeptFrequency[rec.DeptName]++
		if isSingleBidder(rec) {
			deptSingle[rec.DeptName]++
		}
	}

	if q75 := quantile(amounts, 0.75); q75 > 0 {
		agg.AmountQ75 = q75
	}

	for dept, vals := range deptAmounts {
		mean, std := meanStd(vals)
		agg.DeptAmountMean[dept] = mean
		agg.DeptAmountStd[dept] = std
	}
	for dept, vals := range deptPerDay {
		mean, std := meanStd(vals)
		agg.DeptPricePerDayMean[dept] = mean
		agg.DeptPricePerDayStd[dept] = std
	}
	for dept, n := range agg.DeptFrequency {
		agg.DeptSingleBidderRate[dept] = deptSingle[dept] / n
	}
	return agg
}

// Derive engineers the feature vector for one record against the batch
// aggregate context. Pure: identical record + identical aggregates always
// yield the identical vector.
func (e *Engine) Derive(rec *models.TenderRecord, agg *Aggregates) models.FeatureVector {
	v := models.FeatureVector{
		ContractAmount: rec.ContractAmount,
		BidderCount:    float64(rec.BidderCount),
		DurationDays:   float64(rec.DurationDays),
		PricePerDay:    pricePerDay(rec),
	}

	// Competition
	if isSingleBidder(rec) {
		v.SingleBidderFlag = 1
	}
	if rec.BidderCount < 3 {
		v.LowCompetitionFlag = 1
	}
	if !rec.HasBidderCount || rec.BidderCount == 0 {
		v.ZeroBiddersFlag = 1
	}
	if rec.ContractAmount > 0 {
		v.BidderToValueRatio = float64(rec.BidderCount) / (rec.ContractAmount / agg.AmountQ75)
	}

	// Pricing
	if !agg.SmallBatch {
		v.AmountZScore = math.Abs(rec.ContractAmount-agg.DeptAmountMean[rec.DeptName]) /
			(agg.DeptAmountStd[rec.DeptName] + varianceEpsilon)
		v.PricePerDayZScore = math.Abs(v.PricePerDay-agg.DeptPricePerDayMean[rec.DeptName]) /
			(agg.DeptPricePerDayStd[rec.DeptName] + varianceEpsilon)
	}
	if rec.ContractAmount > 0 && math.Mod(rec.ContractAmount, 100_000) == 0 {
		v.RoundAmountFlag = 1
	}
	for _, cutoff := range e.oversightThresholds {
		if rec.ContractAmount >= cutoff*0.95 && rec.ContractAmount < cutoff {
			v.NearThresholdFlag = 1
			break
		}
	}

	// Timing
	if rec.DurationDays < 7 {
		v.ShortDurationFlag = 1
	}
	if rec.HasPubDate() {
		if wd := rec.PubDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			v.WeekendPublicationFlag = 1
		}
		month := rec.PubDate.Month()
		if month == 3 && rec.PubDate.Day() >= 15 {
			v.YearEndRushFlag = 1
		}
		// Jan-Mar is the closing fiscal quarter
		if month >= 1 && month <= 3 {
			v.FiscalQ4Flag = 1
		}
	} else {
		v.MissingDateFlag = 1
	}

	// Procurement method and payment
	if strings.Contains(strings.ToLower(rec.ProcMethod), "limited") {
		v.LimitedTenderFlag = 1
	}
	if strings.Contains(strings.ToLower(rec.ContractType), "lump") {
		v.LumpSumFlag = 1
	}
	if strings.EqualFold(rec.PaymentMode, "Offline") {
		v.OfflinePaymentFlag = 1
	}

	// Department aggregates
	v.DeptTenderFrequency = agg.DeptFrequency[rec.DeptName]
	v.DeptSingleBidderRate = agg.DeptSingleBidderRate[rec.DeptName]

	// Composites
	v.RedFlagCount = v.CountRedFlags()
	v.CompetitionHealthScore = utils.Clip(
		100-50*v.SingleBidderFlag+5*v.BidderCount-15*v.LimitedTenderFlag-10*v.OfflinePaymentFlag,
		0, 100)
	return v
}

// DeriveAll runs the aggregate pre-pass and derives every record's vector.
func (e *Engine) DeriveAll(ctx context.Context, records []models.TenderRecord) ([]models.FeatureVector, Aggregates) {
	agg := e.ComputeAggregates(records)
	vectors := make([]models.FeatureVector, len(records))
	for i := range records {
		vectors[i] = e.Derive(&records[i], &agg)
	}
	e.log.Debug(ctx, "features derived",
		logger.Int("records", len(records)),
		logger.Float64("amount_q75", agg.AmountQ75))
	return vectors, agg
}

// meanStd returns the mean and sample standard deviation; groups with fewer
// than 2 values get std 0.
func meanStd(vals []float64) (float64, float64) {
	n := float64(len(vals))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / n
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// quantile returns the q-th quantile with linear interpolation.
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
