package models

import (
	"time"

	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
)

// Thresholds is the immutable scoring configuration passed by value into
// every pipeline invocation. It is owned by the caller and never read from
// global state.
type Thresholds struct {
	// HighRiskCutoff is the rule score at or above which a record is High.
	// Caller-settable within [50,90].
	HighRiskCutoff int `json:"high_risk_cutoff"`

	// MediumRiskCutoff is the fixed rule score at or above which a record is
	// Medium.
	MediumRiskCutoff int `json:"medium_risk_cutoff"`

	// MLAnomalyPercentile is the batch percentile of ml_risk_score above
	// which a record is promoted to High.
	MLAnomalyPercentile float64 `json:"ml_anomaly_percentile"`
}

// DefaultThresholds returns the default deployment thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighRiskCutoff:      constants.DefaultHighRiskCutoff,
		MediumRiskCutoff:    constants.MediumRiskCutoff,
		MLAnomalyPercentile: constants.MLAnomalyPercentile,
	}
}

// Validate checks the caller-settable cutoff range.
func (t Thresholds) Validate() error {
	if t.HighRiskCutoff < constants.MinHighRiskCutoff || t.HighRiskCutoff > constants.MaxHighRiskCutoff {
		return errors.ErrInvalidThreshold(t.HighRiskCutoff)
	}
	return nil
}

// RiskProfile is the final per-record output of the pipeline. Profiles are
// created fresh for every scoring run and never mutated in place; threshold
// changes regenerate the full set.
type RiskProfile struct {
	ContractID      string                    `json:"contract_id"`
	RiskScore       int                       `json:"risk_score"`
	RiskLevel       constants.RiskLevel       `json:"risk_level"`
	MLRiskScore     float64                   `json:"ml_risk_score"`
	MLAnomalyLabel  bool                      `json:"ml_anomaly_label"`
	DetectionSource constants.DetectionSource `json:"detection_source"`

	// TriggeredFlags lists the boolean indicators that fired; the explanation
	// service and reviewers consume it.
	TriggeredFlags []string `json:"triggered_flags,omitempty"`
}

// RiskMetrics summarizes one scored batch for reviewers and reports.
type RiskMetrics struct {
	TotalTenders    int     `json:"total_tenders"`
	HighRiskCount   int     `json:"high_risk_count"`
	MediumRiskCount int     `json:"medium_risk_count"`
	LowRiskCount    int     `json:"low_risk_count"`
	HighRiskPct     float64 `json:"high_risk_pct"`
	MediumRiskPct   float64 `json:"medium_risk_pct"`
	LowRiskPct      float64 `json:"low_risk_pct"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
	MedianRiskScore float64 `json:"median_risk_score"`
	MaxRiskScore    int     `json:"max_risk_score"`
	MinRiskScore    int     `json:"min_risk_score"`
	TotalAmount     float64 `json:"total_amount"`
	PromotedCount   int     `json:"promoted_count"`
}

// Analysis is one scored batch: the in-memory working set entry produced by a
// pipeline run and read by the presentation layer and exports.
type Analysis struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	Thresholds  Thresholds       `json:"thresholds"`
	Validation  ValidationResult `json:"validation"`
	Fingerprint string           `json:"fingerprint"`
	Records     []TenderRecord   `json:"records"`
	Profiles    []RiskProfile    `json:"profiles"`
	Metrics     RiskMetrics      `json:"metrics"`

	// ModelMode records whether the anomaly scores came from the pre-trained
	// bundle ("pretrained") or an on-demand fit ("fitted").
	ModelMode string `json:"model_mode"`
}

// RecordByID returns the first record and profile with the given contract ID.
func (a *Analysis) RecordByID(contractID string) (*TenderRecord, *RiskProfile, bool) {
	for i := range a.Records {
		if a.Records[i].ContractID == contractID {
			return &a.Records[i], &a.Profiles[i], true
		}
	}
	return nil, nil, false
}
