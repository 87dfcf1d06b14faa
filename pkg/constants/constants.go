// Package constants defines system-wide constants for the Tenderisk risk
// scoring service. This package provides type-safe constant definitions used
// across all modules.
package constants

import "time"

// ================================================================================
// Risk Level Constants
// ================================================================================

// RiskLevel represents the final classification of a scored tender.
type RiskLevel string

const (
	// RiskLevelLow indicates a rule score below the medium cutoff.
	RiskLevelLow RiskLevel = "Low"

	// RiskLevelMedium indicates a rule score between the medium and high cutoffs.
	RiskLevelMedium RiskLevel = "Medium"

	// RiskLevelHigh indicates a rule score at or above the high cutoff, or a
	// record promoted by the anomaly ensemble.
	RiskLevelHigh RiskLevel = "High"
)

// ================================================================================
// Detection Source Constants
// ================================================================================

// DetectionSource explains which scoring path flagged a record.
type DetectionSource string

const (
	// DetectionSourceNone indicates the record was not flagged by either path.
	DetectionSourceNone DetectionSource = "None"

	// DetectionSourcePolicyViolation indicates only the rule engine flagged the record.
	DetectionSourcePolicyViolation DetectionSource = "PolicyViolation"

	// DetectionSourceAIAnomaly indicates only the anomaly ensemble flagged the
	// record (a hidden risk).
	DetectionSourceAIAnomaly DetectionSource = "AIAnomaly"

	// DetectionSourceCritical indicates both paths flagged the record.
	DetectionSourceCritical DetectionSource = "Critical"
)

// ================================================================================
// Validation Status Constants
// ================================================================================

// ValidationStatus is the three-state result of schema sufficiency validation.
type ValidationStatus string

const (
	// ValidationSuccess means every important column resolved.
	ValidationSuccess ValidationStatus = "success"

	// ValidationWarning means analysis proceeds with reduced accuracy because
	// one or more of {date, bidder count, department} did not resolve.
	ValidationWarning ValidationStatus = "warning"

	// ValidationError means the amount column did not resolve and analysis
	// cannot proceed.
	ValidationError ValidationStatus = "error"
)

// ================================================================================
// Canonical Field Names
// ================================================================================

// Canonical column names every resolved table carries. The schema resolver
// maps arbitrary input headers onto this set.
const (
	FieldContractID     = "contract_id"
	FieldContractAmount = "contract_amount"
	FieldBidderCount    = "bidder_count"
	FieldDeptName       = "dept_name"
	FieldPubDate        = "pub_date"
	FieldProcMethod     = "proc_method"
	FieldContractType   = "contract_type"
	FieldPaymentMode    = "payment_mode"
	FieldDurationDays   = "duration_days"
)

// ================================================================================
// Field Defaults
// ================================================================================

const (
	// DefaultCategoryValue substitutes for an unresolvable categorical column.
	DefaultCategoryValue = "Unknown"

	// DefaultDurationDays substitutes for an unresolvable duration column.
	DefaultDurationDays = 30
)

// ================================================================================
// Scoring Threshold Constants
// ================================================================================

const (
	// DefaultHighRiskCutoff is the default rule-score cutoff for the High level.
	DefaultHighRiskCutoff = 70

	// MinHighRiskCutoff and MaxHighRiskCutoff bound caller-supplied cutoffs.
	MinHighRiskCutoff = 50
	MaxHighRiskCutoff = 90

	// MediumRiskCutoff is the fixed rule-score cutoff for the Medium level.
	MediumRiskCutoff = 40

	// MLAnomalyPercentile is the fixed batch percentile above which the
	// anomaly ensemble promotes a record to High.
	MLAnomalyPercentile = 0.98
)

// ================================================================================
// Ensemble Constants
// ================================================================================

// Canonical combination weights for the final ensemble score.
const (
	EnsembleIsolationWeight = 0.5
	EnsembleDensityWeight   = 0.2
	EnsembleRuleWeight      = 0.3
)

const (
	// IsolationTreeCount is the number of trees in the isolation ensemble.
	IsolationTreeCount = 100

	// IsolationSampleSize is the sub-sample size each isolation tree is built on.
	IsolationSampleSize = 256

	// DensityNeighborCount is k for the local-density detector, capped at the
	// batch size.
	DensityNeighborCount = 20
)

// ================================================================================
// Context Key Constants
// ================================================================================

// ContextKey is a typed key for context values.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request identifier.
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyAnalysisID carries the batch analysis identifier.
	ContextKeyAnalysisID ContextKey = "analysis_id"
)

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode identifies a structured error category.
type ErrorCode string

const (
	// ErrCodeSchema indicates a critical column could not be resolved.
	ErrCodeSchema ErrorCode = "schema_error"

	// ErrCodeDataQuality indicates an important column could not be resolved;
	// analysis proceeds with reduced accuracy.
	ErrCodeDataQuality ErrorCode = "data_quality_warning"

	// ErrCodeModelUnavailable indicates a pre-trained model bundle is missing
	// or incompatible; the on-demand fit path is used instead.
	ErrCodeModelUnavailable ErrorCode = "model_unavailable"

	// ErrCodeInvalidArgument indicates a malformed request or parameter.
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"

	// ErrCodeNotFound indicates a missing analysis or record.
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "internal_error"

	// ErrCodeUnavailable indicates a dependency is temporarily unavailable.
	ErrCodeUnavailable ErrorCode = "unavailable"
)

// ================================================================================
// Working Set Constants
// ================================================================================

const (
	// AnalysisRetention bounds how long a scored batch stays in the in-memory
	// working set.
	AnalysisRetention = 2 * time.Hour

	// AnalysisSweepInterval is how often expired batches are evicted.
	AnalysisSweepInterval = 10 * time.Minute
)
