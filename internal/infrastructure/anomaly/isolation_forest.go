// Package anomaly implements the unsupervised outlier ensemble: a
// tree-partitioning isolation forest and a k-nearest-neighbor local density
// detector, combined with the rule score under fixed canonical weights.
// Fitted models are immutable once built; concurrent scoring reads them
// freely.
package anomaly

import (
	"math"
	"math/rand"
)

// forestSeed fixes the isolation forest RNG so repeated runs over the same
// batch produce identical scores.
const forestSeed = 42

// euler is the Euler-Mascheroni constant used in the average path length
// estimate.
const euler = 0.5772156649

// treeNode is one node of an isolation tree. Leaf nodes have Feature == -1
// and carry the size of the sub-sample that reached them.
type treeNode struct {
	Feature int     `json:"f"`
	Split   float64 `json:"s"`
	Left    int     `json:"l"`
	Right   int     `json:"r"`
	Size    int     `json:"n"`
}

// isolationTree is a flat-array binary tree; index 0 is the root.
type isolationTree struct {
	Nodes []treeNode `json:"nodes"`
}

// IsolationForest isolates anomalies by random axis-aligned splits: outliers
// sit in sparse regions and take fewer splits to isolate. Immutable after Fit.
type IsolationForest struct {
	Trees      []isolationTree `json:"trees"`
	SampleSize int             `json:"sample_size"`
	NumTrees   int             `json:"num_trees"`
	Dim        int             `json:"dim"`
}

// NewIsolationForest creates an unfitted forest.
func NewIsolationForest(numTrees, sampleSize int) *IsolationForest {
	return &IsolationForest{NumTrees: numTrees, SampleSize: sampleSize}
}

// Fitted reports whether the forest has been built.
func (f *IsolationForest) Fitted() bool {
	return len(f.Trees) > 0
}

// Fit builds the forest over the feature matrix. The RNG is seeded so the
// same matrix always yields the same forest.
func (f *IsolationForest) Fit(matrix [][]float64) {
	if len(matrix) == 0 {
		return
	}
	f.Dim = len(matrix[0])

	if f.SampleSize > len(matrix) {
		f.SampleSize = len(matrix)
	}
	sample := f.SampleSize
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(sample), 2))))

	rng := rand.New(rand.NewSource(forestSeed))
	f.Trees = make([]isolationTree, 0, f.NumTrees)
	for t := 0; t < f.NumTrees; t++ {
		idx := rng.Perm(len(matrix))[:sample]
		tree := isolationTree{}
		buildNode(&tree, matrix, idx, 0, maxDepth, rng)
		f.Trees = append(f.Trees, tree)
	}
}

// buildNode grows one subtree and returns its node index within the tree.
func buildNode(tree *isolationTree, matrix [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) int {
	nodeIdx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, treeNode{Feature: -1, Left: -1, Right: -1, Size: len(idx)})

	if depth >= maxDepth || len(idx) <= 1 {
		return nodeIdx
	}

	dim := len(matrix[0])
	// Pick a feature that still varies within this partition; give up and
	// leave a leaf after dim attempts.
	for attempt := 0; attempt < dim; attempt++ {
		feature := rng.Intn(dim)
		lo, hi := matrix[idx[0]][feature], matrix[idx[0]][feature]
		for _, i := range idx[1:] {
			v := matrix[i][feature]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi <= lo {
			continue
		}
		split := lo + rng.Float64()*(hi-lo)

		var left, right []int
		for _, i := range idx {
			if matrix[i][feature] < split {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}

		leftIdx := buildNode(tree, matrix, left, depth+1, maxDepth, rng)
		rightIdx := buildNode(tree, matrix, right, depth+1, maxDepth, rng)
		tree.Nodes[nodeIdx] = treeNode{Feature: feature, Split: split, Left: leftIdx, Right: rightIdx, Size: len(idx)}
		return nodeIdx
	}
	return nodeIdx
}

// pathLength walks one point down a tree, adding the average-path adjustment
// at the terminating node.
func (t *isolationTree) pathLength(x []float64) float64 {
	depth := 0.0
	node := 0
	for {
		n := t.Nodes[node]
		if n.Feature < 0 {
			return depth + avgPathLength(n.Size)
		}
		if x[n.Feature] < n.Split {
			node = n.Left
		} else {
			node = n.Right
		}
		depth++
	}
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+euler) - 2*(fn-1)/fn
}

// Score returns the anomaly score of one point in (0,1); higher means the
// point isolates faster and is more anomalous.
func (f *IsolationForest) Score(x []float64) float64 {
	if !f.Fitted() {
		return 0
	}
	var total float64
	for i := range f.Trees {
		total += f.Trees[i].pathLength(x)
	}
	mean := total / float64(len(f.Trees))
	return math.Pow(2, -mean/avgPathLength(f.SampleSize))
}

// Scores returns the anomaly score for every row of the matrix.
func (f *IsolationForest) Scores(matrix [][]float64) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		out[i] = f.Score(row)
	}
	return out
}
