// Package rules implements the deterministic rule-based risk score: a fixed
// weighted sum over hand-authored fraud heuristics, clipped to [0,100].
// Scoring one record is order-independent and side-effect free.
package rules

import (
	"strings"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/utils"
)

// SchemeVersion identifies the canonical weighting scheme. Earlier
// deployments carried two divergent schemes; v1 is the single scheme kept
// going forward.
const SchemeVersion = "v1"

// Canonical rule weights.
const (
	weightSingleBidder   = 40
	weightTwoBidders     = 20
	weightMissingBidders = 10
	weightLimitedTender  = 15
	weightUnknownMethod  = 10
	weightWeekendPub     = 15
	weightYearEndMonth   = 10
	weightMissingDate    = 5
	weightRoundAmount    = 5
	weightNearThreshold  = 10
)

// Scorer computes rule-based risk scores.
type Scorer struct{}

// NewScorer creates a rule scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the deterministic rule score for one record from its
// canonical fields and engineered flags. The result is an integer in [0,100].
func (s *Scorer) Score(rec *models.TenderRecord, v *models.FeatureVector) int {
	score := 0

	// Competition: single bidder is the strongest signal, two bidders is
	// still weak competition, a missing count is a data-quality red flag.
	switch {
	case !rec.HasBidderCount:
		score += weightMissingBidders
	case rec.BidderCount == 1:
		score += weightSingleBidder
	case rec.BidderCount == 2:
		score += weightTwoBidders
	}

	// Procurement method transparency.
	if v.LimitedTenderFlag >= 1 {
		score += weightLimitedTender
	} else if isOpaqueMethod(rec.ProcMethod) {
		score += weightUnknownMethod
	}

	// Timing: weekend publication hides the tender, a fiscal-year-end (March)
	// rush suggests budget dumping, a missing date is a data-quality flag.
	if v.WeekendPublicationFlag >= 1 {
		score += weightWeekendPub
	}
	if rec.HasPubDate() && rec.PubDate.Month() == 3 {
		score += weightYearEndMonth
	}
	if v.MissingDateFlag >= 1 {
		score += weightMissingDate
	}

	// Amount shape: suspiciously round values and threshold gaming.
	if v.RoundAmountFlag >= 1 {
		score += weightRoundAmount
	}
	if v.NearThresholdFlag >= 1 {
		score += weightNearThreshold
	}

	return utils.ClipInt(score, 0, 100)
}

// ScoreAll scores every record in a batch.
func (s *Scorer) ScoreAll(records []models.TenderRecord, vectors []models.FeatureVector) []int {
	scores := make([]int, len(records))
	for i := range records {
		scores[i] = s.Score(&records[i], &vectors[i])
	}
	return scores
}

// isOpaqueMethod reports whether the procurement method is unknown or an
// unclassifiable catch-all.
func isOpaqueMethod(method string) bool {
	lower := strings.ToLower(method)
	return strings.Contains(lower, "unknown") || strings.Contains(lower, "other")
}
