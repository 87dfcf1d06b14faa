// Package models defines the domain model for the risk scoring pipeline:
// raw tables, canonical tender records, engineered features, and the scored
// risk profiles handed to the presentation layer.
package models

import (
	"time"

	"github.com/openprocure/tenderisk/pkg/constants"
)

// Table is a raw tabular input: one row per tender, arbitrary column headers.
// Cells are kept as strings; typed coercion happens during schema resolution.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// TenderRecord is one row of canonical fields. Every field is always present
// after schema resolution: unresolvable fields carry explicit sentinel
// defaults, so downstream feature derivation never branches on existence.
type TenderRecord struct {
	// ContractID identifies the tender. Not required unique; used for joins
	// and explanation requests.
	ContractID string `json:"contract_id"`

	// DeptName is the procuring department, "Unknown" when unresolved.
	DeptName string `json:"dept_name"`

	// ContractAmount is the contract value, non-negative; malformed cells
	// collapse to 0.
	ContractAmount float64 `json:"contract_amount"`

	// BidderCount is the number of bidders. Zero with HasBidderCount=false
	// means the value was missing rather than a genuine zero.
	BidderCount    int  `json:"bidder_count"`
	HasBidderCount bool `json:"has_bidder_count"`

	// PubDate is the publication date; the zero time means missing.
	PubDate time.Time `json:"pub_date"`

	// ProcMethod is the free-text procurement method, "Unknown" when unresolved.
	ProcMethod string `json:"proc_method"`

	// ContractType is the free-text contract type, "Unknown" when unresolved.
	ContractType string `json:"contract_type"`

	// PaymentMode is the free-text payment mode, "Unknown" when unresolved.
	PaymentMode string `json:"payment_mode"`

	// DurationDays is the contract duration, defaulted to 30 when absent.
	DurationDays int `json:"duration_days"`
}

// HasPubDate reports whether the publication date resolved to a real date.
func (r *TenderRecord) HasPubDate() bool {
	return !r.PubDate.IsZero()
}

// ValidationResult is the three-state outcome of schema sufficiency checks.
// It is returned to the caller alongside the resolved table; only the error
// state stops the analysis.
type ValidationResult struct {
	IsValid          bool                       `json:"is_valid"`
	Status           constants.ValidationStatus `json:"status"`
	Message          string                     `json:"message"`
	MissingCritical  []string                   `json:"missing_critical,omitempty"`
	MissingImportant []string                   `json:"missing_important,omitempty"`
}
