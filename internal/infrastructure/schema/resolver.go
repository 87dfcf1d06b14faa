// Package schema resolves arbitrary input column names onto the canonical
// tender field set. Resolution never mutates the input table; it produces
// typed TenderRecords with sentinel defaults for anything unresolvable, plus
// a three-state sufficiency verdict.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
	"github.com/openprocure/tenderisk/pkg/utils"
)

// synonyms maps each canonical field to its accepted aliases in declared
// priority order. Matching is case-insensitive; an exact canonical-name match
// always wins over any synonym.
var synonyms = map[string][]string{
	constants.FieldContractID:     {"tender_id", "id", "ref_no", "contract_no", "tender_no"},
	constants.FieldContractAmount: {"amount", "value", "tender_value", "estimated_cost", "price", "total_amount", "tender_value_amount"},
	constants.FieldBidderCount:    {"bidders_count", "bidders", "no_of_bidders", "tender_numberoftenderers", "participation_count"},
	constants.FieldDeptName:       {"department", "buyer", "buyer_name", "organization", "agency", "procuring_entity"},
	constants.FieldPubDate:        {"date", "publish_date", "tender_date", "tender_datepublished", "announcement_date", "start_date"},
	constants.FieldProcMethod:     {"method", "procurement_method", "tender_procurementmethod", "type_of_bidding"},
	constants.FieldContractType:   {"type", "tender_type", "tender_contracttype", "category"},
	constants.FieldPaymentMode:    {"payment", "mode", "payment_type"},
	constants.FieldDurationDays:   {"duration", "period", "days", "tender_period_durationindays"},
}

// Resolver maps heterogeneous input tables onto canonical TenderRecords.
type Resolver struct {
	log logger.Logger
}

// NewResolver creates a schema resolver.
func NewResolver(log logger.Logger) *Resolver {
	return &Resolver{log: log.WithComponent("schema")}
}

// columnMapping holds, per canonical field, the index of the source column in
// the input table, or -1 when the field must be synthesized from defaults.
type columnMapping map[string]int

// mapColumns resolves each canonical field to a source column index.
func mapColumns(table *models.Table) columnMapping {
	lower := make(map[string]int, len(table.Columns))
	for i, col := range table.Columns {
		key := strings.ToLower(strings.TrimSpace(col))
		if _, seen := lower[key]; !seen {
			lower[key] = i
		}
	}

	mapping := make(columnMapping, len(synonyms))
	for canonical, aliases := range synonyms {
		if idx, ok := lower[canonical]; ok {
			mapping[canonical] = idx
			continue
		}
		mapping[canonical] = -1
		for _, alias := range aliases {
			if idx, ok := lower[strings.ToLower(alias)]; ok {
				mapping[canonical] = idx
				break
			}
		}
	}
	return mapping
}

// Validate classifies the data sufficiency of a table without resolving it
// fully. The result is three-state: error when the amount column is
// unresolvable, warning when date, bidder count or department are missing,
// success otherwise.
func (r *Resolver) Validate(table *models.Table) models.ValidationResult {
	mapping := mapColumns(table)

	var missingCritical, missingImportant []string
	if mapping[constants.FieldContractAmount] < 0 {
		missingCritical = append(missingCritical, "Amount/Value")
	}
	if mapping[constants.FieldPubDate] < 0 {
		missingImportant = append(missingImportant, "Date")
	}
	if mapping[constants.FieldBidderCount] < 0 {
		missingImportant = append(missingImportant, "Bidder Count")
	}
	if mapping[constants.FieldDeptName] < 0 {
		missingImportant = append(missingImportant, "Department Name")
	}

	switch {
	case len(missingCritical) > 0:
		return models.ValidationResult{
			IsValid:          false,
			Status:           constants.ValidationError,
			Message:          fmt.Sprintf("critical columns missing: %s; analysis cannot proceed", strings.Join(missingCritical, ", ")),
			MissingCritical:  missingCritical,
			MissingImportant: missingImportant,
		}
	case len(missingImportant) > 0:
		return models.ValidationResult{
			IsValid:          true,
			Status:           constants.ValidationWarning,
			Message:          fmt.Sprintf("columns missing: %s; analysis will be less accurate, defaults used", strings.Join(missingImportant, ", ")),
			MissingImportant: missingImportant,
		}
	default:
		return models.ValidationResult{
			IsValid: true,
			Status:  constants.ValidationSuccess,
			Message: "all important columns resolved",
		}
	}
}

// Resolve maps a raw table onto canonical TenderRecords. The input table is
// not mutated. Unresolvable fields are synthesized with type-appropriate
// defaults; malformed cells collapse to the field default and never abort the
// batch. A table whose amount column cannot be resolved yields a schema
// error; an empty table is a hard failure.
func (r *Resolver) Resolve(ctx context.Context, table *models.Table) ([]models.TenderRecord, models.ValidationResult, error) {
	if table == nil || table.NumRows() == 0 {
		return nil, models.ValidationResult{}, errors.ErrEmptyTable()
	}

	validation := r.Validate(table)
	if !validation.IsValid {
		return nil, validation, errors.ErrSchema(validation.MissingCritical)
	}

	mapping := mapColumns(table)
	records := make([]models.TenderRecord, 0, table.NumRows())
	for rowIdx, row := range table.Rows {
		records = append(records, resolveRow(row, rowIdx, mapping))
	}

	r.log.Info(ctx, "schema resolved",
		logger.Int("rows", len(records)),
		logger.String("status", string(validation.Status)))
	return records, validation, nil
}

// cell returns the raw cell for a canonical field, or "" when the field has
// no source column or the row is ragged.
func cell(row []string, mapping columnMapping, field string) string {
	idx := mapping[field]
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func resolveRow(row []string, rowIdx int, mapping columnMapping) models.TenderRecord {
	rec := models.TenderRecord{
		ContractID:     strings.TrimSpace(cell(row, mapping, constants.FieldContractID)),
		DeptName:       strings.TrimSpace(cell(row, mapping, constants.FieldDeptName)),
		ContractAmount: utils.CoerceFloat(cell(row, mapping, constants.FieldContractAmount), 0),
		PubDate:        utils.CoerceDate(cell(row, mapping, constants.FieldPubDate)),
		ProcMethod:     strings.TrimSpace(cell(row, mapping, constants.FieldProcMethod)),
		ContractType:   strings.TrimSpace(cell(row, mapping, constants.FieldContractType)),
		PaymentMode:    strings.TrimSpace(cell(row, mapping, constants.FieldPaymentMode)),
		DurationDays:   utils.CoerceDuration(cell(row, mapping, constants.FieldDurationDays), constants.DefaultDurationDays),
	}

	if rec.ContractID == "" {
		rec.ContractID = fmt.Sprintf("row-%d", rowIdx+1)
	}
	if rec.DeptName == "" {
		rec.DeptName = constants.DefaultCategoryValue
	}
	if rec.ProcMethod == "" {
		rec.ProcMethod = constants.DefaultCategoryValue
	}
	if rec.ContractType == "" {
		rec.ContractType = constants.DefaultCategoryValue
	}
	if rec.PaymentMode == "" {
		rec.PaymentMode = constants.DefaultCategoryValue
	}

	if raw := strings.TrimSpace(cell(row, mapping, constants.FieldBidderCount)); raw != "" {
		count := utils.CoerceCount(raw, -1)
		if count >= 0 {
			rec.BidderCount = count
			rec.HasBidderCount = true
		}
	}
	return rec
}
