// Package service holds the domain services of the scoring pipeline. The
// reconciler joins the two independent scoring paths into final per-record
// risk profiles; it is pure domain logic with no infrastructure dependencies.
package service

import (
	"context"
	"math"
	"sort"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// Reconciler merges rule scores and anomaly scores into risk profiles. It is
// deterministic: the same inputs and thresholds always produce the same
// profiles, and profiles are built fresh on every call.
type Reconciler struct {
	log logger.Logger
}

// NewReconciler creates the reconciliation service.
func NewReconciler(log logger.Logger) *Reconciler {
	return &Reconciler{log: log.WithComponent("reconciler")}
}

// Reconcile classifies every record and promotes hidden risk. Classification
// uses the rule score alone; records the rules missed but whose combined
// anomaly score sits above the batch's promotion percentile are raised to
// High with an AI detection source.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	records []models.TenderRecord,
	vectors []models.FeatureVector,
	ruleScores []int,
	mlScores []float64,
	mlLabels []bool,
	th models.Thresholds,
) []models.RiskProfile {
	promoteAbove := percentile(mlScores, th.MLAnomalyPercentile)

	profiles := make([]models.RiskProfile, len(records))
	promoted := 0
	for i := range records {
		level := classify(ruleScores[i], th)
		ruleHigh := level == constants.RiskLevelHigh

		// Batch-relative promotion: strictly above the percentile, so a
		// uniformly scored batch promotes nothing.
		mlHigh := mlScores[i] > promoteAbove
		if mlHigh && !ruleHigh {
			level = constants.RiskLevelHigh
			promoted++
		}

		profiles[i] = models.RiskProfile{
			ContractID:      records[i].ContractID,
			RiskScore:       ruleScores[i],
			RiskLevel:       level,
			MLRiskScore:     mlScores[i],
			MLAnomalyLabel:  mlLabels[i] || mlHigh,
			DetectionSource: source(ruleHigh, mlHigh),
			TriggeredFlags:  vectors[i].TriggeredFlags(),
		}
	}

	r.log.Info(ctx, "batch reconciled",
		logger.Int("records", len(records)),
		logger.Int("promoted", promoted),
		logger.Int("high_risk_cutoff", th.HighRiskCutoff))
	return profiles
}

// classify maps a rule score onto a risk level under the given thresholds.
func classify(score int, th models.Thresholds) constants.RiskLevel {
	switch {
	case score >= th.HighRiskCutoff:
		return constants.RiskLevelHigh
	case score >= th.MediumRiskCutoff:
		return constants.RiskLevelMedium
	default:
		return constants.RiskLevelLow
	}
}

// source attributes a profile to the scoring path that raised it.
func source(ruleHigh, mlHigh bool) constants.DetectionSource {
	switch {
	case ruleHigh && mlHigh:
		return constants.DetectionSourceCritical
	case ruleHigh:
		return constants.DetectionSourcePolicyViolation
	case mlHigh:
		return constants.DetectionSourceAIAnomaly
	default:
		return constants.DetectionSourceNone
	}
}

// percentile returns the p-th quantile of values with linear interpolation.
// An empty slice yields +Inf so nothing can sit above it.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.Inf(1)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
