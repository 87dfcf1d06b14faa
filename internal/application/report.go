package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openprocure/tenderisk/pkg/constants"
)

// topRiskLimit bounds how many flagged tenders the text report lists.
const topRiskLimit = 20

// Report renders a stored analysis as a plain-text audit summary.
func (s *AnalysisService) Report(ctx context.Context, id string) (string, error) {
	analysis, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	m := &analysis.Metrics

	var sb strings.Builder
	sb.WriteString("TENDER RISK ANALYSIS REPORT\n")
	sb.WriteString("===========================\n\n")
	fmt.Fprintf(&sb, "Analysis ID:    %s\n", analysis.ID)
	fmt.Fprintf(&sb, "Generated:      %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Scored:         %s\n", analysis.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Model mode:     %s\n", analysis.ModelMode)
	fmt.Fprintf(&sb, "Validation:     %s", analysis.Validation.Status)
	if analysis.Validation.Message != "" {
		fmt.Fprintf(&sb, " (%s)", analysis.Validation.Message)
	}
	sb.WriteString("\n\n")

	sb.WriteString("SUMMARY\n")
	sb.WriteString("-------\n")
	fmt.Fprintf(&sb, "Total tenders:  %d\n", m.TotalTenders)
	fmt.Fprintf(&sb, "Total amount:   %.2f\n", m.TotalAmount)
	fmt.Fprintf(&sb, "High risk:      %d (%.1f%%)\n", m.HighRiskCount, m.HighRiskPct)
	fmt.Fprintf(&sb, "Medium risk:    %d (%.1f%%)\n", m.MediumRiskCount, m.MediumRiskPct)
	fmt.Fprintf(&sb, "Low risk:       %d (%.1f%%)\n", m.LowRiskCount, m.LowRiskPct)
	fmt.Fprintf(&sb, "Promoted by AI: %d\n", m.PromotedCount)
	fmt.Fprintf(&sb, "Risk scores:    avg %.1f, median %.1f, range %d-%d\n\n",
		m.AvgRiskScore, m.MedianRiskScore, m.MinRiskScore, m.MaxRiskScore)

	type flagged struct {
		idx   int
		score float64
	}
	var high []flagged
	for i := range analysis.Profiles {
		p := &analysis.Profiles[i]
		if p.RiskLevel == constants.RiskLevelHigh {
			high = append(high, flagged{idx: i, score: p.MLRiskScore})
		}
	}
	sort.Slice(high, func(a, b int) bool {
		pa, pb := &analysis.Profiles[high[a].idx], &analysis.Profiles[high[b].idx]
		if pa.RiskScore != pb.RiskScore {
			return pa.RiskScore > pb.RiskScore
		}
		return high[a].score > high[b].score
	})

	sb.WriteString("TOP FLAGGED TENDERS\n")
	sb.WriteString("-------------------\n")
	if len(high) == 0 {
		sb.WriteString("none\n")
	}
	for rank, f := range high {
		if rank >= topRiskLimit {
			fmt.Fprintf(&sb, "... and %d more\n", len(high)-topRiskLimit)
			break
		}
		rec := &analysis.Records[f.idx]
		prof := &analysis.Profiles[f.idx]
		fmt.Fprintf(&sb, "%2d. %s  dept=%s amount=%.2f rule=%d ml=%.1f source=%s\n",
			rank+1, rec.ContractID, rec.DeptName, rec.ContractAmount,
			prof.RiskScore, prof.MLRiskScore, prof.DetectionSource)
		if len(prof.TriggeredFlags) > 0 {
			fmt.Fprintf(&sb, "    flags: %s\n", strings.Join(prof.TriggeredFlags, ", "))
		}
	}
	return sb.String(), nil
}
