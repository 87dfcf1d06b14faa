package anomaly

import (
	"math"
	"sort"
)

// LocalOutlierFactor scores points by comparing their local density to that
// of their k nearest neighbors. A point in a sparser region than its
// neighbors gets a factor above 1; higher means more anomalous.
type LocalOutlierFactor struct {
	K int
}

// NewLocalOutlierFactor creates a detector with the given neighborhood size.
func NewLocalOutlierFactor(k int) *LocalOutlierFactor {
	return &LocalOutlierFactor{K: k}
}

// infiniteDensityRatio substitutes for the density ratio against a neighbor
// whose local reachability collapsed to zero (exact duplicates); large enough
// to dominate any finite neighborhood.
const infiniteDensityRatio = 1e9

// neighbor pairs a point index with its distance to the query point.
type neighbor struct {
	idx  int
	dist float64
}

// FitScores computes the outlier factor for every row of the matrix. Batches
// too small for a meaningful neighborhood score uniformly as inliers.
func (l *LocalOutlierFactor) FitScores(matrix [][]float64) []float64 {
	n := len(matrix)
	scores := make([]float64, n)
	if n < 3 {
		for i := range scores {
			scores[i] = 1
		}
		return scores
	}

	k := l.K
	if k > n-1 {
		k = n - 1
	}

	// k nearest neighbors per point, by Euclidean distance.
	neighbors := make([][]neighbor, n)
	for i := 0; i < n; i++ {
		dists := make([]neighbor, 0, n-1)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dists = append(dists, neighbor{idx: j, dist: euclidean(matrix[i], matrix[j])})
		}
		sort.Slice(dists, func(a, b int) bool {
			if dists[a].dist == dists[b].dist {
				return dists[a].idx < dists[b].idx
			}
			return dists[a].dist < dists[b].dist
		})
		neighbors[i] = dists[:k]
	}

	// k-distance of each point is the distance to its k-th neighbor.
	kDist := make([]float64, n)
	for i := range neighbors {
		kDist[i] = neighbors[i][k-1].dist
	}

	// Local reachability density: inverse of the mean reachability distance
	// to each neighbor.
	lrd := make([]float64, n)
	for i := range neighbors {
		var sum float64
		for _, nb := range neighbors[i] {
			sum += math.Max(kDist[nb.idx], nb.dist)
		}
		avg := sum / float64(k)
		if avg == 0 {
			// Duplicated points collapse to infinite density; cap it.
			lrd[i] = math.Inf(1)
		} else {
			lrd[i] = 1 / avg
		}
	}

	// The factor is the mean density ratio against the neighborhood.
	for i := range neighbors {
		if math.IsInf(lrd[i], 1) {
			scores[i] = 1
			continue
		}
		var sum float64
		for _, nb := range neighbors[i] {
			if math.IsInf(lrd[nb.idx], 1) {
				sum += infiniteDensityRatio
			} else {
				sum += lrd[nb.idx] / lrd[i]
			}
		}
		scores[i] = sum / float64(k)
	}
	return scores
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
