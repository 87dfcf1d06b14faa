package features_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/internal/infrastructure/features"
	"github.com/openprocure/tenderisk/pkg/logger"
)

func newEngine(opts ...features.Option) *features.Engine {
	return features.NewEngine(logger.NewNop(), opts...)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(id string, amount float64, bidders int) models.TenderRecord {
	return models.TenderRecord{
		ContractID:     id,
		DeptName:       "Health",
		ContractAmount: amount,
		BidderCount:    bidders,
		HasBidderCount: true,
		PubDate:        date(2024, 6, 4), // a Tuesday
		ProcMethod:     "Open",
		ContractType:   "Works",
		PaymentMode:    "Online",
		DurationDays:   100,
	}
}

func TestCompetitionFlags(t *testing.T) {
	records := []models.TenderRecord{record("a", 1000, 1), record("b", 2000, 5)}
	vectors, _ := newEngine().DeriveAll(context.Background(), records)

	assert.Equal(t, 1.0, vectors[0].SingleBidderFlag)
	assert.Equal(t, 1.0, vectors[0].LowCompetitionFlag)
	assert.Equal(t, 0.0, vectors[0].ZeroBiddersFlag)

	assert.Equal(t, 0.0, vectors[1].SingleBidderFlag)
	assert.Equal(t, 0.0, vectors[1].LowCompetitionFlag)
}

func TestMissingBidderCountIsZeroBidders(t *testing.T) {
	rec := record("a", 1000, 0)
	rec.HasBidderCount = false
	vectors, _ := newEngine().DeriveAll(context.Background(), []models.TenderRecord{rec, record("b", 500, 3)})

	assert.Equal(t, 1.0, vectors[0].ZeroBiddersFlag)
	assert.Equal(t, 0.0, vectors[0].SingleBidderFlag)
}

func TestTimingFlags(t *testing.T) {
	tests := []struct {
		name     string
		pubDate  time.Time
		weekend  float64
		yearEnd  float64
		fiscalQ4 float64
		missing  float64
	}{
		{"saturday", date(2024, 6, 1), 1, 0, 0, 0},
		{"sunday", date(2024, 6, 2), 1, 0, 0, 0},
		{"weekday", date(2024, 6, 4), 0, 0, 0, 0},
		{"late march", date(2024, 3, 20), 0, 1, 1, 0},
		{"early march", date(2024, 3, 5), 0, 0, 1, 0},
		{"january", date(2024, 1, 10), 0, 0, 1, 0},
		{"missing", time.Time{}, 0, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record("a", 1000, 4)
			rec.PubDate = tt.pubDate
			vectors, _ := newEngine().DeriveAll(context.Background(), []models.TenderRecord{rec, record("b", 500, 3)})

			v := vectors[0]
			assert.Equal(t, tt.weekend, v.WeekendPublicationFlag, "weekend")
			assert.Equal(t, tt.yearEnd, v.YearEndRushFlag, "year end rush")
			assert.Equal(t, tt.fiscalQ4, v.FiscalQ4Flag, "fiscal q4")
			assert.Equal(t, tt.missing, v.MissingDateFlag, "missing date")
		})
	}
}

func TestAmountFlags(t *testing.T) {
	records := []models.TenderRecord{
		record("round", 500_000, 4),
		record("near_threshold", 995_000, 4),
		record("plain", 612_345, 4),
	}
	vectors, _ := newEngine().DeriveAll(context.Background(), records)

	assert.Equal(t, 1.0, vectors[0].RoundAmountFlag)
	assert.Equal(t, 0.0, vectors[0].NearThresholdFlag)

	// 995,000 sits within 5% below the 1,000,000 oversight cutoff.
	assert.Equal(t, 1.0, vectors[1].NearThresholdFlag)
	assert.Equal(t, 0.0, vectors[1].RoundAmountFlag)

	assert.Equal(t, 0.0, vectors[2].RoundAmountFlag)
	assert.Equal(t, 0.0, vectors[2].NearThresholdFlag)
}

func TestNearThresholdBoundaries(t *testing.T) {
	e := newEngine(features.WithOversightThresholds([]float64{1_000_000}))
	agg := e.ComputeAggregates([]models.TenderRecord{record("a", 1, 4), record("b", 2, 4)})

	cases := []struct {
		amount float64
		want   float64
	}{
		{949_999, 0},
		{950_000, 1}, // inclusive lower edge
		{999_999, 1},
		{1_000_000, 0}, // cutoff itself is not "near"
	}
	for _, c := range cases {
		rec := record("x", c.amount, 4)
		v := e.Derive(&rec, &agg)
		assert.Equal(t, c.want, v.NearThresholdFlag, "amount %v", c.amount)
	}
}

func TestMethodAndPaymentFlags(t *testing.T) {
	rec := record("a", 1000, 4)
	rec.ProcMethod = "Limited Tender"
	rec.ContractType = "Lump-sum"
	rec.PaymentMode = "offline"

	vectors, _ := newEngine().DeriveAll(context.Background(), []models.TenderRecord{rec, record("b", 500, 3)})
	v := vectors[0]
	assert.Equal(t, 1.0, v.LimitedTenderFlag)
	assert.Equal(t, 1.0, v.LumpSumFlag)
	assert.Equal(t, 1.0, v.OfflinePaymentFlag)
}

func TestDeptAggregates(t *testing.T) {
	records := []models.TenderRecord{
		record("a", 100, 1),
		record("b", 200, 5),
		record("c", 300, 1),
	}
	records[2].DeptName = "Roads"

	vectors, agg := newEngine().DeriveAll(context.Background(), records)

	assert.Equal(t, 2.0, vectors[0].DeptTenderFrequency)
	assert.Equal(t, 0.5, vectors[0].DeptSingleBidderRate)
	assert.Equal(t, 1.0, vectors[2].DeptTenderFrequency)
	assert.Equal(t, 1.0, vectors[2].DeptSingleBidderRate)
	assert.False(t, agg.SmallBatch)
}

func TestSmallBatchZeroesDispersionStats(t *testing.T) {
	vectors, agg := newEngine().DeriveAll(context.Background(), []models.TenderRecord{record("only", 999, 2)})

	assert.True(t, agg.SmallBatch)
	assert.Equal(t, 0.0, vectors[0].AmountZScore)
	assert.Equal(t, 0.0, vectors[0].PricePerDayZScore)
}

func TestAmountQ75ZeroGuard(t *testing.T) {
	records := []models.TenderRecord{record("a", 0, 2), record("b", 0, 3)}
	agg := newEngine().ComputeAggregates(records)
	assert.Equal(t, 1.0, agg.AmountQ75)
}

func TestPricePerDayDurationGuard(t *testing.T) {
	rec := record("a", 300, 4)
	rec.DurationDays = 2
	vectors, _ := newEngine().DeriveAll(context.Background(), []models.TenderRecord{rec, record("b", 500, 3)})
	assert.Equal(t, 100.0, vectors[0].PricePerDay)
}

func TestCompetitionHealthScoreBounds(t *testing.T) {
	healthy := record("a", 1000, 30)
	risky := record("b", 1000, 1)
	risky.ProcMethod = "Limited"
	risky.PaymentMode = "Offline"

	vectors, _ := newEngine().DeriveAll(context.Background(), []models.TenderRecord{healthy, risky})

	// 100 + 5*30 clips to 100.
	assert.Equal(t, 100.0, vectors[0].CompetitionHealthScore)
	// 100 - 50 + 5 - 15 - 10 = 30.
	assert.Equal(t, 30.0, vectors[1].CompetitionHealthScore)
}

func TestDeriveIsPure(t *testing.T) {
	records := []models.TenderRecord{record("a", 995_000, 1), record("b", 20_000, 4)}
	e := newEngine()

	first, _ := e.DeriveAll(context.Background(), records)
	second, _ := e.DeriveAll(context.Background(), records)
	require.Equal(t, first, second)
}

func TestRedFlagCountMatchesTriggered(t *testing.T) {
	rec := record("a", 995_000, 1)
	rec.PubDate = date(2024, 3, 23) // a Saturday in late March
	vectors, _ := newEngine().DeriveAll(context.Background(), []models.TenderRecord{rec, record("b", 500, 3)})

	v := vectors[0]
	assert.Equal(t, float64(len(v.TriggeredFlags())), v.RedFlagCount)
	assert.GreaterOrEqual(t, v.RedFlagCount, 5.0)
}
