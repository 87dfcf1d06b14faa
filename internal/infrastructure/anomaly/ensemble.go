package anomaly

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// labelThreshold is the raw isolation score above which a record is labeled
// an outlier. 0.5 is the theoretical neutral point; 0.6 trades recall for
// precision the way the training deployment did.
const labelThreshold = 0.6

// Model modes reported with every scored batch.
const (
	ModePretrained = "pretrained"
	ModeFitted     = "fitted"
)

// DetectorScores is the output of the two unsupervised detectors for one
// batch, each normalized to [0,100] where 100 is most anomalous.
type DetectorScores struct {
	Isolation []float64
	Density   []float64
	Labels    []bool
	Mode      string
}

// Ensemble runs the isolation and local-density detectors over a feature
// matrix and combines them with the rule score under the canonical weights.
// Scores for a batch are cached by content fingerprint, so re-scoring the
// same upload takes the fast path instead of refitting.
type Ensemble struct {
	provider *BundleProvider
	cache    *gocache.Cache
	log      logger.Logger
}

// NewEnsemble creates the anomaly ensemble.
func NewEnsemble(provider *BundleProvider, log logger.Logger) *Ensemble {
	return &Ensemble{
		provider: provider,
		cache:    gocache.New(constants.AnalysisRetention, constants.AnalysisSweepInterval),
		log:      log.WithComponent("anomaly"),
	}
}

// Score produces detector scores for the batch. The two detectors are
// independent and run in parallel; the pre-trained bundle, when loaded and
// compatible, scores the isolation path without refitting.
func (e *Ensemble) Score(ctx context.Context, vectors []models.FeatureVector, fingerprint string) (*DetectorScores, error) {
	if cached, ok := e.cache.Get(fingerprint); ok {
		e.log.Debug(ctx, "detector scores served from fingerprint cache",
			logger.String("fingerprint", shortFingerprint(fingerprint)))
		return cached.(*DetectorScores), nil
	}

	matrix := make([][]float64, len(vectors))
	for i := range vectors {
		matrix[i] = vectors[i].Values()
	}

	scores := &DetectorScores{Mode: ModeFitted}
	var rawIso []float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var scaled [][]float64
		if bundle := e.provider.Current(); bundle != nil && bundle.Compatible(models.FeatureNames()) {
			scaled = bundle.Scaler.Transform(matrix)
			rawIso = bundle.Forest.Scores(scaled)
			scores.Mode = ModePretrained
		} else {
			scaler := FitStandardizer(matrix)
			scaled = scaler.Transform(matrix)
			forest := NewIsolationForest(constants.IsolationTreeCount, constants.IsolationSampleSize)
			forest.Fit(scaled)
			rawIso = forest.Scores(scaled)
		}
		scores.Isolation = minMaxScale(rawIso)
		return gctx.Err()
	})
	g.Go(func() error {
		scaler := FitStandardizer(matrix)
		lof := NewLocalOutlierFactor(constants.DensityNeighborCount)
		scores.Density = minMaxScale(lof.FitScores(scaler.Transform(matrix)))
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores.Labels = make([]bool, len(rawIso))
	for i, s := range rawIso {
		scores.Labels[i] = s >= labelThreshold
	}

	// Cached scores keep the mode they were computed with until retention
	// expires; a bundle reload only affects fingerprints scored after it.
	e.cache.SetDefault(fingerprint, scores)
	e.log.Info(ctx, "batch scored",
		logger.Int("records", len(vectors)),
		logger.String("mode", scores.Mode))
	return scores, nil
}

// Combine folds the detector scores and the rule score into the final
// ml_risk_score per record: 0.5·isolation + 0.2·density + 0.3·rule.
func (e *Ensemble) Combine(scores *DetectorScores, ruleScores []int) []float64 {
	out := make([]float64, len(ruleScores))
	for i := range ruleScores {
		out[i] = constants.EnsembleIsolationWeight*scores.Isolation[i] +
			constants.EnsembleDensityWeight*scores.Density[i] +
			constants.EnsembleRuleWeight*float64(ruleScores[i])
	}
	return out
}

// shortFingerprint abbreviates a fingerprint for log lines. Fingerprints are
// normally 64 hex chars but callers may pass anything.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// FitBundle trains a fresh bundle on the given batch, for persisting as the
// pre-trained artifact.
func FitBundle(vectors []models.FeatureVector) *ModelBundle {
	matrix := make([][]float64, len(vectors))
	for i := range vectors {
		matrix[i] = vectors[i].Values()
	}
	scaler := FitStandardizer(matrix)
	forest := NewIsolationForest(constants.IsolationTreeCount, constants.IsolationSampleSize)
	forest.Fit(scaler.Transform(matrix))
	return &ModelBundle{
		Version:      BundleVersion,
		CreatedAt:    time.Now().UTC(),
		FeatureNames: models.FeatureNames(),
		Scaler:       scaler,
		Forest:       forest,
	}
}
