// Package dto defines the request and response shapes of the HTTP API.
package dto

import (
	"time"

	"github.com/openprocure/tenderisk/internal/domain/models"
)

// ValidationDTO reports schema resolution quality.
type ValidationDTO struct {
	Status           string   `json:"status"`
	Message          string   `json:"message,omitempty"`
	MissingCritical  []string `json:"missing_critical,omitempty"`
	MissingImportant []string `json:"missing_important,omitempty"`
}

// ProfileDTO is one scored record in an API response.
type ProfileDTO struct {
	ContractID      string   `json:"contract_id"`
	RiskScore       int      `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"`
	MLRiskScore     float64  `json:"ml_risk_score"`
	MLAnomalyLabel  bool     `json:"ml_anomaly_label"`
	DetectionSource string   `json:"detection_source"`
	TriggeredFlags  []string `json:"triggered_flags,omitempty"`
}

// AnalysisResponse is the full result of a batch analysis.
type AnalysisResponse struct {
	AnalysisID string             `json:"analysis_id"`
	CreatedAt  time.Time          `json:"created_at"`
	ModelMode  string             `json:"model_mode"`
	Thresholds models.Thresholds  `json:"thresholds"`
	Validation ValidationDTO      `json:"validation"`
	Metrics    models.RiskMetrics `json:"metrics"`
	Profiles   []ProfileDTO       `json:"profiles"`
}

// FromAnalysis maps a domain analysis onto the API response.
func FromAnalysis(a *models.Analysis) *AnalysisResponse {
	resp := &AnalysisResponse{
		AnalysisID: a.ID,
		CreatedAt:  a.CreatedAt,
		ModelMode:  a.ModelMode,
		Thresholds: a.Thresholds,
		Validation: ValidationDTO{
			Status:           string(a.Validation.Status),
			Message:          a.Validation.Message,
			MissingCritical:  a.Validation.MissingCritical,
			MissingImportant: a.Validation.MissingImportant,
		},
		Metrics:  a.Metrics,
		Profiles: make([]ProfileDTO, len(a.Profiles)),
	}
	for i := range a.Profiles {
		p := &a.Profiles[i]
		resp.Profiles[i] = ProfileDTO{
			ContractID:      p.ContractID,
			RiskScore:       p.RiskScore,
			RiskLevel:       string(p.RiskLevel),
			MLRiskScore:     p.MLRiskScore,
			MLAnomalyLabel:  p.MLAnomalyLabel,
			DetectionSource: string(p.DetectionSource),
			TriggeredFlags:  p.TriggeredFlags,
		}
	}
	return resp
}

// ErrorResponse is the uniform error body of the API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
