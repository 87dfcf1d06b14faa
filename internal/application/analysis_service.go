// Package application orchestrates the scoring pipeline: schema resolution,
// feature derivation, the two scoring paths, reconciliation, and the working
// set the presentation layer reads from.
package application

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/internal/domain/service"
	"github.com/openprocure/tenderisk/internal/infrastructure/anomaly"
	"github.com/openprocure/tenderisk/internal/infrastructure/explain"
	"github.com/openprocure/tenderisk/internal/infrastructure/features"
	"github.com/openprocure/tenderisk/internal/infrastructure/monitoring"
	"github.com/openprocure/tenderisk/internal/infrastructure/rules"
	"github.com/openprocure/tenderisk/internal/infrastructure/schema"
	"github.com/openprocure/tenderisk/internal/infrastructure/tabular"
	"github.com/openprocure/tenderisk/internal/infrastructure/workingset"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/errors"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// AnalysisService runs batch analyses and serves their results.
type AnalysisService struct {
	resolver   *schema.Resolver
	engine     *features.Engine
	scorer     *rules.Scorer
	ensemble   *anomaly.Ensemble
	reconciler *service.Reconciler
	store      *workingset.Store
	explainer  *explain.Client
	metrics    *monitoring.Metrics
	defaults   models.Thresholds
	log        logger.Logger
}

// NewAnalysisService wires the pipeline components together. explainer may
// be nil when narrative explanations are disabled.
func NewAnalysisService(
	resolver *schema.Resolver,
	engine *features.Engine,
	scorer *rules.Scorer,
	ensemble *anomaly.Ensemble,
	reconciler *service.Reconciler,
	store *workingset.Store,
	explainer *explain.Client,
	metrics *monitoring.Metrics,
	defaults models.Thresholds,
	log logger.Logger,
) *AnalysisService {
	return &AnalysisService{
		resolver:   resolver,
		engine:     engine,
		scorer:     scorer,
		ensemble:   ensemble,
		reconciler: reconciler,
		store:      store,
		explainer:  explainer,
		metrics:    metrics,
		defaults:   defaults,
		log:        log.WithComponent("analysis"),
	}
}

// thresholds resolves the effective thresholds for a request.
func (s *AnalysisService) thresholds(highRiskCutoff *int) (models.Thresholds, error) {
	th := s.defaults
	if highRiskCutoff != nil {
		th.HighRiskCutoff = *highRiskCutoff
	}
	if err := th.Validate(); err != nil {
		return models.Thresholds{}, err
	}
	return th, nil
}

// Analyze scores one uploaded tender table end to end and stores the result.
func (s *AnalysisService) Analyze(ctx context.Context, table *models.Table, highRiskCutoff *int) (*models.Analysis, error) {
	started := time.Now()

	th, err := s.thresholds(highRiskCutoff)
	if err != nil {
		s.metrics.RecordAnalysis("invalid", "", 0, 0, 0, 0)
		return nil, err
	}

	records, validation, err := s.resolver.Resolve(ctx, table)
	if err != nil {
		s.metrics.RecordAnalysis("rejected", "", 0, 0, 0, 0)
		return nil, err
	}

	analysis, err := s.score(ctx, records, validation, th)
	if err != nil {
		s.metrics.RecordAnalysis("failed", "", 0, 0, 0, 0)
		return nil, err
	}

	s.store.Put(ctx, analysis)
	s.metrics.RecordAnalysis("success", analysis.ModelMode,
		analysis.Metrics.TotalTenders, analysis.Metrics.HighRiskCount,
		analysis.Metrics.PromotedCount, time.Since(started))
	s.log.Info(ctx, "analysis complete",
		logger.String("analysis_id", analysis.ID),
		logger.Int("records", analysis.Metrics.TotalTenders),
		logger.Int("high_risk", analysis.Metrics.HighRiskCount),
		logger.String("model_mode", analysis.ModelMode),
		logger.Duration("elapsed", time.Since(started)))
	return analysis, nil
}

// score runs the pipeline over resolved records. The rule path and the
// anomaly path are independent until reconciliation and run in parallel.
func (s *AnalysisService) score(ctx context.Context, records []models.TenderRecord, validation models.ValidationResult, th models.Thresholds) (*models.Analysis, error) {
	vectors, _ := s.engine.DeriveAll(ctx, records)
	fingerprint := anomaly.Fingerprint(records)

	var (
		ruleScores []int
		detector   *anomaly.DetectorScores
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ruleScores = s.scorer.ScoreAll(records, vectors)
		return nil
	})
	g.Go(func() error {
		var err error
		detector, err = s.ensemble.Score(gctx, vectors, fingerprint)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mlScores := s.ensemble.Combine(detector, ruleScores)
	profiles := s.reconciler.Reconcile(ctx, records, vectors, ruleScores, mlScores, detector.Labels, th)

	return &models.Analysis{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Thresholds:  th,
		Validation:  validation,
		Fingerprint: fingerprint,
		Records:     records,
		Profiles:    profiles,
		Metrics:     service.ComputeMetrics(records, profiles),
		ModelMode:   detector.Mode,
	}, nil
}

// Get returns a stored analysis.
func (s *AnalysisService) Get(ctx context.Context, id string) (*models.Analysis, error) {
	return s.store.Get(ctx, id)
}

// Rethreshold regenerates the profiles of a stored analysis under a new high
// risk cutoff. Detector scores are reused through the fingerprint cache, so
// only classification and promotion change; the stored analysis is replaced.
func (s *AnalysisService) Rethreshold(ctx context.Context, id string, highRiskCutoff int) (*models.Analysis, error) {
	prev, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	th, err := s.thresholds(&highRiskCutoff)
	if err != nil {
		return nil, err
	}

	next, err := s.score(ctx, prev.Records, prev.Validation, th)
	if err != nil {
		return nil, err
	}
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	s.store.Put(ctx, next)
	s.log.Info(ctx, "analysis rethresholded",
		logger.String("analysis_id", id),
		logger.Int("high_risk_cutoff", highRiskCutoff))
	return next, nil
}

// ExportCSV streams a stored analysis as scored CSV rows.
func (s *AnalysisService) ExportCSV(ctx context.Context, id string, w io.Writer) error {
	analysis, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return tabular.WriteScored(w, analysis)
}

// Explain streams a narrative explanation for one record of an analysis.
func (s *AnalysisService) Explain(ctx context.Context, id, contractID string, w io.Writer) error {
	if s.explainer == nil {
		s.metrics.RecordExplain("disabled")
		return errors.New(constants.ErrCodeUnavailable, "explanation service not configured")
	}
	analysis, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	rec, prof, ok := analysis.RecordByID(contractID)
	if !ok {
		return errors.ErrRecordNotFound(id, contractID)
	}
	if err := s.explainer.Stream(ctx, rec, prof, w); err != nil {
		s.metrics.RecordExplain("error")
		return err
	}
	s.metrics.RecordExplain("success")
	return nil
}
