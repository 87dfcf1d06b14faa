package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprocure/tenderisk/internal/domain/models"
)

func TestStandardizerTransform(t *testing.T) {
	matrix := [][]float64{
		{1, 10},
		{3, 10},
	}
	s := FitStandardizer(matrix)
	require.Equal(t, 2, s.Dim())
	assert.Equal(t, []float64{2, 10}, s.Means)
	// Second column is constant; its std is substituted with 1.
	assert.Equal(t, 1.0, s.Stds[1])

	out := s.Transform(matrix)
	assert.InDelta(t, -1.0, out[0][0], 1e-9)
	assert.InDelta(t, 1.0, out[1][0], 1e-9)
	assert.Equal(t, 0.0, out[0][1])

	// The input matrix is untouched.
	assert.Equal(t, 1.0, matrix[0][0])
}

func TestStandardizerEmptyMatrix(t *testing.T) {
	s := FitStandardizer(nil)
	assert.Equal(t, 0, s.Dim())
	assert.Empty(t, s.Transform(nil))
}

func TestMinMaxScale(t *testing.T) {
	out := minMaxScale([]float64{0.2, 0.4, 0.6})
	assert.Equal(t, 0.0, out[0])
	assert.InDelta(t, 50, out[1], 1e-3)
	assert.InDelta(t, 100, out[2], 1e-3)
}

func TestMinMaxScaleUniformInput(t *testing.T) {
	out := minMaxScale([]float64{0.5, 0.5, 0.5})
	for _, v := range out {
		assert.Equal(t, 0.0, v)
	}
	assert.Empty(t, minMaxScale(nil))
}

func testRecords() []models.TenderRecord {
	return []models.TenderRecord{
		{
			ContractID:     "T-1",
			DeptName:       "Health",
			ContractAmount: 995000,
			BidderCount:    1,
			HasBidderCount: true,
			PubDate:        time.Date(2024, 3, 23, 0, 0, 0, 0, time.UTC),
			ProcMethod:     "Limited",
			ContractType:   "Works",
			PaymentMode:    "Offline",
			DurationDays:   30,
		},
		{
			ContractID:     "T-2",
			DeptName:       "Roads",
			ContractAmount: 20000,
			BidderCount:    6,
			HasBidderCount: true,
			PubDate:        time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
			ProcMethod:     "Open",
			ContractType:   "Goods",
			PaymentMode:    "Online",
			DurationDays:   120,
		},
	}
}

func TestFingerprintStable(t *testing.T) {
	records := testRecords()
	first := Fingerprint(records)
	second := Fingerprint(records)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprintSensitiveToContent(t *testing.T) {
	records := testRecords()
	base := Fingerprint(records)

	amended := testRecords()
	amended[1].ContractAmount = 20001
	assert.NotEqual(t, base, Fingerprint(amended))

	reordered := []models.TenderRecord{records[1], records[0]}
	assert.NotEqual(t, base, Fingerprint(reordered))

	truncated := records[:1]
	assert.NotEqual(t, base, Fingerprint(truncated))
}
