package anomaly

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/openprocure/tenderisk/internal/domain/models"
)

// minMaxEpsilon keeps normalization finite when a batch scores uniformly.
const minMaxEpsilon = 1e-10

// Standardizer holds per-column mean and standard deviation fitted on a
// feature matrix. It is the normalization state persisted inside a model
// bundle so live batches are scaled the way the training data was.
type Standardizer struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// FitStandardizer computes column statistics over a matrix.
func FitStandardizer(matrix [][]float64) *Standardizer {
	if len(matrix) == 0 {
		return &Standardizer{}
	}
	dim := len(matrix[0])
	s := &Standardizer{
		Means: make([]float64, dim),
		Stds:  make([]float64, dim),
	}
	n := float64(len(matrix))
	for _, row := range matrix {
		for j, v := range row {
			s.Means[j] += v
		}
	}
	for j := range s.Means {
		s.Means[j] /= n
	}
	for _, row := range matrix {
		for j, v := range row {
			d := v - s.Means[j]
			s.Stds[j] += d * d
		}
	}
	for j := range s.Stds {
		s.Stds[j] = math.Sqrt(s.Stds[j] / n)
		if s.Stds[j] == 0 {
			s.Stds[j] = 1
		}
	}
	return s
}

// Dim returns the column count the standardizer was fitted on.
func (s *Standardizer) Dim() int {
	return len(s.Means)
}

// Transform returns a standardized copy of the matrix.
func (s *Standardizer) Transform(matrix [][]float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Means[j]) / s.Stds[j]
		}
		out[i] = scaled
	}
	return out
}

// minMaxScale maps raw detector outputs onto [0,100], where 100 is the most
// anomalous score in the batch.
func minMaxScale(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}
	lo, hi := raw[0], raw[0]
	for _, v := range raw {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	for i, v := range raw {
		out[i] = (v - lo) / (hi - lo + minMaxEpsilon) * 100
	}
	return out
}

// Fingerprint derives a content hash over the canonical field values of a
// batch. It keys pre-computed score artifacts so a stale or mismatched
// artifact is detected deterministically instead of by row-count coincidence.
func Fingerprint(records []models.TenderRecord) string {
	h := sha256.New()
	var sb strings.Builder
	for i := range records {
		rec := &records[i]
		sb.Reset()
		fmt.Fprintf(&sb, "%s|%s|%.6f|%d|%t|%s|%s|%s|%s|%d\n",
			rec.ContractID, rec.DeptName, rec.ContractAmount,
			rec.BidderCount, rec.HasBidderCount,
			rec.PubDate.UTC().Format("2006-01-02"),
			rec.ProcMethod, rec.ContractType, rec.PaymentMode, rec.DurationDays)
		h.Write([]byte(sb.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}
