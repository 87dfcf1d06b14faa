// Package tabular reads uploaded tender tables and writes scored exports.
// CSV is the interchange format on both sides.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
)

// ReadTable parses a CSV stream into a raw table. The first row is the
// header; short rows are padded and long rows truncated to the header width
// so a ragged file degrades instead of failing.
func ReadTable(r io.Reader) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.ErrEmptyTable()
	}
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeInvalidArgument, "read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &models.Table{Columns: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, constants.ErrCodeInvalidArgument,
				fmt.Sprintf("read csv row %d", len(table.Rows)+2))
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		} else if len(row) > len(header) {
			row = row[:len(header)]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// WriteScored writes the records of an analysis with their risk columns
// appended, one row per record in input order.
func WriteScored(w io.Writer, analysis *models.Analysis) error {
	writer := csv.NewWriter(w)
	header := []string{
		constants.FieldContractID,
		constants.FieldDeptName,
		constants.FieldContractAmount,
		constants.FieldBidderCount,
		constants.FieldPubDate,
		constants.FieldProcMethod,
		constants.FieldContractType,
		constants.FieldPaymentMode,
		constants.FieldDurationDays,
		"risk_score",
		"risk_level",
		"ml_risk_score",
		"ml_anomaly_label",
		"detection_source",
		"triggered_flags",
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, constants.ErrCodeInternal, "write csv header")
	}

	for i := range analysis.Records {
		rec := &analysis.Records[i]
		prof := &analysis.Profiles[i]

		pubDate := ""
		if rec.HasPubDate() {
			pubDate = rec.PubDate.UTC().Format("2006-01-02")
		}
		bidders := ""
		if rec.HasBidderCount {
			bidders = strconv.Itoa(rec.BidderCount)
		}

		row := []string{
			rec.ContractID,
			rec.DeptName,
			strconv.FormatFloat(rec.ContractAmount, 'f', 2, 64),
			bidders,
			pubDate,
			rec.ProcMethod,
			rec.ContractType,
			rec.PaymentMode,
			strconv.Itoa(rec.DurationDays),
			strconv.Itoa(prof.RiskScore),
			string(prof.RiskLevel),
			strconv.FormatFloat(prof.MLRiskScore, 'f', 2, 64),
			strconv.FormatBool(prof.MLAnomalyLabel),
			string(prof.DetectionSource),
			strings.Join(prof.TriggeredFlags, ";"),
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, constants.ErrCodeInternal, "write csv row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, constants.ErrCodeInternal, "flush csv")
	}
	return nil
}
