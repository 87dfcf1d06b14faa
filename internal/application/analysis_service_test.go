package application_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocure/tenderisk/internal/application"
	"github.com/openprocure/tenderisk/internal/domain/models"
	domainservice "github.com/openprocure/tenderisk/internal/domain/service"
	"github.com/openprocure/tenderisk/internal/infrastructure/anomaly"
	"github.com/openprocure/tenderisk/internal/infrastructure/features"
	"github.com/openprocure/tenderisk/internal/infrastructure/monitoring"
	"github.com/openprocure/tenderisk/internal/infrastructure/rules"
	"github.com/openprocure/tenderisk/internal/infrastructure/schema"
	"github.com/openprocure/tenderisk/internal/infrastructure/workingset"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
)

var (
	metricsOnce sync.Once
	metrics     *monitoring.Metrics
)

// sharedMetrics avoids duplicate Prometheus registration across tests.
func sharedMetrics() *monitoring.Metrics {
	metricsOnce.Do(func() { metrics = monitoring.NewMetrics() })
	return metrics
}

func newService(t *testing.T) *application.AnalysisService {
	t.Helper()
	log := logger.NewNop()
	bundles := anomaly.NewBundleProvider(context.Background(), "", log)
	return application.NewAnalysisService(
		schema.NewResolver(log),
		features.NewEngine(log),
		rules.NewScorer(),
		anomaly.NewEnsemble(bundles, log),
		domainservice.NewReconciler(log),
		workingset.NewStore(time.Minute, log),
		nil,
		sharedMetrics(),
		models.DefaultThresholds(),
		log,
	)
}

// testTable builds a batch of mostly benign tenders plus one suspicious one:
// a single bidder at 995,000 on a Saturday in late March via limited tender.
func testTable() *models.Table {
	table := &models.Table{
		Columns: []string{"contract_id", "dept_name", "contract_amount", "bidder_count", "pub_date", "proc_method", "contract_type", "payment_mode", "duration_days"},
	}
	for i := 0; i < 29; i++ {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("OK-%02d", i),
			fmt.Sprintf("Dept-%d", i%3),
			fmt.Sprintf("%d", 210_001+i*7_013),
			fmt.Sprintf("%d", 4+i%3),
			"2024-06-04",
			"Open",
			"Works",
			"Online",
			fmt.Sprintf("%d", 60+i),
		})
	}
	table.Rows = append(table.Rows, []string{
		"BAD-01", "Dept-0", "995000", "1", "2024-03-23", "Limited", "Works", "Offline", "10",
	})
	return table
}

func TestAnalyzeEndToEnd(t *testing.T) {
	svc := newService(t)
	analysis, err := svc.Analyze(context.Background(), testTable(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, analysis.ID)
	assert.Equal(t, constants.ValidationSuccess, analysis.Validation.Status)
	assert.Equal(t, "fitted", analysis.ModelMode)
	require.Len(t, analysis.Profiles, 30)

	// Input order is preserved.
	assert.Equal(t, "OK-00", analysis.Profiles[0].ContractID)
	assert.Equal(t, "BAD-01", analysis.Profiles[29].ContractID)

	for _, p := range analysis.Profiles {
		assert.GreaterOrEqual(t, p.RiskScore, 0)
		assert.LessOrEqual(t, p.RiskScore, 100)
		assert.GreaterOrEqual(t, p.MLRiskScore, 0.0)
		assert.LessOrEqual(t, p.MLRiskScore, 100.0)
	}

	// Single bidder (40) + limited (15) + weekend (15) + March (10) +
	// near-threshold (10) = 90.
	bad := analysis.Profiles[29]
	assert.Equal(t, 90, bad.RiskScore)
	assert.Equal(t, constants.RiskLevelHigh, bad.RiskLevel)
	assert.Contains(t, bad.TriggeredFlags, "single_bidder_flag")
	assert.Contains(t, bad.TriggeredFlags, "near_threshold_flag")

	assert.Equal(t, 30, analysis.Metrics.TotalTenders)
	assert.GreaterOrEqual(t, analysis.Metrics.HighRiskCount, 1)

	// The analysis is retrievable from the working set.
	stored, err := svc.Get(context.Background(), analysis.ID)
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, stored.ID)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	svc := newService(t)

	first, err := svc.Analyze(context.Background(), testTable(), nil)
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), testTable(), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Profiles, second.Profiles)
	assert.Equal(t, first.Metrics, second.Metrics)
}

func TestAnalyzeRejectsInvalidCutoff(t *testing.T) {
	svc := newService(t)
	cutoff := 95
	_, err := svc.Analyze(context.Background(), testTable(), &cutoff)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeInvalidArgument))
}

func TestAnalyzeSchemaErrorPropagates(t *testing.T) {
	svc := newService(t)
	table := &models.Table{
		Columns: []string{"contract_id", "dept_name"},
		Rows:    [][]string{{"T-1", "Health"}},
	}
	_, err := svc.Analyze(context.Background(), table, nil)
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))
}

func TestRethresholdMonotonic(t *testing.T) {
	svc := newService(t)
	analysis, err := svc.Analyze(context.Background(), testTable(), nil)
	require.NoError(t, err)

	loose, err := svc.Rethreshold(context.Background(), analysis.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, analysis.ID, loose.ID)

	strict, err := svc.Rethreshold(context.Background(), analysis.ID, 90)
	require.NoError(t, err)

	assert.LessOrEqual(t, strict.Metrics.HighRiskCount, loose.Metrics.HighRiskCount)
	assert.Equal(t, 90, strict.Thresholds.HighRiskCutoff)

	// Rule scores are unchanged by rethresholding.
	for i := range analysis.Profiles {
		assert.Equal(t, analysis.Profiles[i].RiskScore, strict.Profiles[i].RiskScore)
	}
}

func TestRethresholdUnknownAnalysis(t *testing.T) {
	svc := newService(t)
	_, err := svc.Rethreshold(context.Background(), "missing", 80)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestExportCSV(t *testing.T) {
	svc := newService(t)
	analysis, err := svc.Analyze(context.Background(), testTable(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), analysis.ID, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 31) // header + 30 records
	assert.Contains(t, lines[0], "risk_level")
	assert.Contains(t, lines[30], "BAD-01")
}

func TestReport(t *testing.T) {
	svc := newService(t)
	analysis, err := svc.Analyze(context.Background(), testTable(), nil)
	require.NoError(t, err)

	report, err := svc.Report(context.Background(), analysis.ID)
	require.NoError(t, err)

	assert.Contains(t, report, "TENDER RISK ANALYSIS REPORT")
	assert.Contains(t, report, analysis.ID)
	assert.Contains(t, report, "BAD-01")
	assert.Contains(t, report, "Total tenders:  30")
}

func TestExplainDisabled(t *testing.T) {
	svc := newService(t)
	analysis, err := svc.Analyze(context.Background(), testTable(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = svc.Explain(context.Background(), analysis.ID, "BAD-01", &buf)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeUnavailable))
}
