package service

import (
	"sort"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
)

// ComputeMetrics summarizes a reconciled batch for reviewers and exports.
func ComputeMetrics(records []models.TenderRecord, profiles []models.RiskProfile) models.RiskMetrics {
	m := models.RiskMetrics{TotalTenders: len(profiles)}
	if len(profiles) == 0 {
		return m
	}

	scores := make([]int, len(profiles))
	m.MinRiskScore = profiles[0].RiskScore
	var sum int
	for i := range profiles {
		p := &profiles[i]
		scores[i] = p.RiskScore
		sum += p.RiskScore
		if p.RiskScore > m.MaxRiskScore {
			m.MaxRiskScore = p.RiskScore
		}
		if p.RiskScore < m.MinRiskScore {
			m.MinRiskScore = p.RiskScore
		}
		switch p.RiskLevel {
		case constants.RiskLevelHigh:
			m.HighRiskCount++
		case constants.RiskLevelMedium:
			m.MediumRiskCount++
		default:
			m.LowRiskCount++
		}
		if p.DetectionSource == constants.DetectionSourceAIAnomaly {
			m.PromotedCount++
		}
	}
	for i := range records {
		m.TotalAmount += records[i].ContractAmount
	}

	n := float64(len(profiles))
	m.HighRiskPct = float64(m.HighRiskCount) / n * 100
	m.MediumRiskPct = float64(m.MediumRiskCount) / n * 100
	m.LowRiskPct = float64(m.LowRiskCount) / n * 100
	m.AvgRiskScore = float64(sum) / n

	sort.Ints(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 0 {
		m.MedianRiskScore = float64(scores[mid-1]+scores[mid]) / 2
	} else {
		m.MedianRiskScore = float64(scores[mid])
	}
	return m
}
