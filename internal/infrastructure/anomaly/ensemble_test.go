package anomaly

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocure/tenderisk/internal/domain/models"
	"github.com/openprocure/tenderisk/pkg/logger"
)

func syntheticVectors(n int, seed int64) []models.FeatureVector {
	rng := rand.New(rand.NewSource(seed))
	out := make([]models.FeatureVector, n)
	for i := range out {
		out[i] = models.FeatureVector{
			ContractAmount: 10_000 + rng.Float64()*5_000,
			BidderCount:    float64(3 + rng.Intn(5)),
			DurationDays:   float64(30 + rng.Intn(60)),
			PricePerDay:    100 + rng.Float64()*50,
		}
	}
	return out
}

func emptyProvider(t *testing.T) *BundleProvider {
	t.Helper()
	return NewBundleProvider(context.Background(), "", logger.NewNop())
}

func TestEnsembleScoreShapeAndBounds(t *testing.T) {
	vectors := syntheticVectors(50, 1)
	e := NewEnsemble(emptyProvider(t), logger.NewNop())

	scores, err := e.Score(context.Background(), vectors, "fp-1")
	require.NoError(t, err)

	assert.Equal(t, ModeFitted, scores.Mode)
	require.Len(t, scores.Isolation, 50)
	require.Len(t, scores.Density, 50)
	require.Len(t, scores.Labels, 50)
	for i := range scores.Isolation {
		assert.GreaterOrEqual(t, scores.Isolation[i], 0.0)
		assert.LessOrEqual(t, scores.Isolation[i], 100.0)
		assert.GreaterOrEqual(t, scores.Density[i], 0.0)
		assert.LessOrEqual(t, scores.Density[i], 100.0)
	}
}

func TestEnsembleFingerprintFastPath(t *testing.T) {
	vectors := syntheticVectors(30, 2)
	e := NewEnsemble(emptyProvider(t), logger.NewNop())

	first, err := e.Score(context.Background(), vectors, "same-fp")
	require.NoError(t, err)
	second, err := e.Score(context.Background(), vectors, "same-fp")
	require.NoError(t, err)
	assert.Same(t, first, second)

	third, err := e.Score(context.Background(), vectors, "other-fp")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first.Isolation, third.Isolation)
}

func TestEnsembleCacheHitWithShortFingerprint(t *testing.T) {
	vectors := syntheticVectors(12, 5)
	e := NewEnsemble(emptyProvider(t), logger.NewNop())

	first, err := e.Score(context.Background(), vectors, "fp")
	require.NoError(t, err)
	second, err := e.Score(context.Background(), vectors, "fp")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestShortFingerprint(t *testing.T) {
	assert.Equal(t, "fp", shortFingerprint("fp"))
	assert.Equal(t, "0123456789ab", shortFingerprint("0123456789abcdef"))
	assert.Equal(t, "exactly12chr", shortFingerprint("exactly12chr"))
}

func TestEnsembleUsesPretrainedBundle(t *testing.T) {
	vectors := syntheticVectors(40, 3)
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, SaveBundle(path, FitBundle(vectors)))

	p := NewBundleProvider(context.Background(), path, logger.NewNop())
	require.NotNil(t, p.Current())

	e := NewEnsemble(p, logger.NewNop())
	scores, err := e.Score(context.Background(), vectors, "fp-pre")
	require.NoError(t, err)
	assert.Equal(t, ModePretrained, scores.Mode)
}

func TestEnsembleOutlierGetsTopScore(t *testing.T) {
	vectors := syntheticVectors(60, 4)
	vectors = append(vectors, models.FeatureVector{
		ContractAmount: 5_000_000,
		BidderCount:    1,
		DurationDays:   2,
		PricePerDay:    2_500_000,
	})

	e := NewEnsemble(emptyProvider(t), logger.NewNop())
	scores, err := e.Score(context.Background(), vectors, "fp-outlier")
	require.NoError(t, err)

	last := len(vectors) - 1
	assert.InDelta(t, 100.0, scores.Isolation[last], 1e-6)
	for i := 0; i < last; i++ {
		assert.LessOrEqual(t, scores.Isolation[i], scores.Isolation[last])
	}
}

func TestCombineWeights(t *testing.T) {
	e := NewEnsemble(emptyProvider(t), logger.NewNop())
	scores := &DetectorScores{
		Isolation: []float64{100, 0},
		Density:   []float64{100, 50},
	}
	combined := e.Combine(scores, []int{100, 0})

	assert.InDelta(t, 100.0, combined[0], 1e-9)
	// 0.5*0 + 0.2*50 + 0.3*0 = 10.
	assert.InDelta(t, 10.0, combined[1], 1e-9)
}

func TestCombinedScoreStaysInRange(t *testing.T) {
	vectors := syntheticVectors(25, 5)
	e := NewEnsemble(emptyProvider(t), logger.NewNop())
	scores, err := e.Score(context.Background(), vectors, "fp-range")
	require.NoError(t, err)

	rules := make([]int, len(vectors))
	for i := range rules {
		rules[i] = (i * 7) % 101
	}
	for _, v := range e.Combine(scores, rules) {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}
