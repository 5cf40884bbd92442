package anomaly

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Forest is an isolation forest: an ensemble of randomly built binary trees
// where outliers isolate in fewer splits than inliers. Scoring follows the
// standard s = 2^(-E[h(x)]/c(n)) formulation; s near 1 means isolated fast,
// s near 0.5 means average depth.
type Forest struct {
	mu            sync.RWMutex
	trees         []*node
	sampleSize    int
	contamination float64
	threshold     float64
	trained       bool
}

type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int // leaf only
}

// ForestOptions tune training. Zero values fall back to the usual defaults
// (100 trees, 256-sample subsampling, 1% contamination).
type ForestOptions struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

// NewForest creates an untrained forest.
func NewForest() *Forest {
	return &Forest{}
}

// Trained reports whether Fit has completed successfully.
func (f *Forest) Trained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.trained
}

// Fit trains the forest on the given vectors. It is a batch operation meant
// for offline use, never the request path. Refitting replaces the ensemble
// atomically; concurrent Score calls see either the old or the new forest.
func (f *Forest) Fit(vectors [][]float64, opts ForestOptions) error {
	if len(vectors) < 8 {
		return fmt.Errorf("fit: need at least 8 vectors, got %d", len(vectors))
	}
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	if opts.SampleSize <= 0 || opts.SampleSize > len(vectors) {
		opts.SampleSize = min(256, len(vectors))
	}
	if opts.Contamination <= 0 || opts.Contamination >= 1 {
		opts.Contamination = 0.01
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	maxDepth := int(math.Ceil(math.Log2(float64(opts.SampleSize))))
	trees := make([]*node, opts.Trees)
	for i := range trees {
		sample := subsample(vectors, opts.SampleSize, rng)
		trees[i] = buildTree(sample, 0, maxDepth, rng)
	}

	// Threshold at the (1-contamination) quantile of training scores, so
	// roughly that share of the corpus lands above it.
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		scores[i] = rawScore(trees, opts.SampleSize, v)
	}
	sort.Float64s(scores)
	idx := int(float64(len(scores)) * (1 - opts.Contamination))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}

	f.mu.Lock()
	f.trees = trees
	f.sampleSize = opts.SampleSize
	f.contamination = opts.Contamination
	f.threshold = scores[idx]
	f.trained = true
	f.mu.Unlock()
	return nil
}

// Score returns the anomaly score in (0,1) and whether it clears the
// trained threshold. The second return is false when untrained.
func (f *Forest) Score(v []float64) (float64, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.trained {
		return 0, false, fmt.Errorf("forest not trained")
	}
	s := rawScore(f.trees, f.sampleSize, v)
	return s, s >= f.threshold, nil
}

func rawScore(trees []*node, sampleSize int, v []float64) float64 {
	sum := 0.0
	for _, t := range trees {
		sum += pathLength(t, v, 0)
	}
	mean := sum / float64(len(trees))
	return math.Pow(2, -mean/avgPathLength(sampleSize))
}

func pathLength(n *node, v []float64, depth float64) float64 {
	if n.left == nil {
		return depth + avgPathLength(n.size)
	}
	if v[n.feature] < n.split {
		return pathLength(n.left, v, depth+1)
	}
	return pathLength(n.right, v, depth+1)
}

// avgPathLength is c(n), the expected unsuccessful-search depth of a BST.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649 // Euler-Mascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}

func buildTree(sample [][]float64, depth, maxDepth int, rng *rand.Rand) *node {
	if depth >= maxDepth || len(sample) <= 1 {
		return &node{size: len(sample)}
	}

	dims := len(sample[0])
	feature := rng.Intn(dims)
	lo, hi := sample[0][feature], sample[0][feature]
	for _, v := range sample[1:] {
		if v[feature] < lo {
			lo = v[feature]
		}
		if v[feature] > hi {
			hi = v[feature]
		}
	}
	if lo == hi {
		return &node{size: len(sample)}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, v := range sample {
		if v[feature] < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &node{
		feature: feature,
		split:   split,
		left:    buildTree(left, depth+1, maxDepth, rng),
		right:   buildTree(right, depth+1, maxDepth, rng),
	}
}

func subsample(vectors [][]float64, n int, rng *rand.Rand) [][]float64 {
	if n >= len(vectors) {
		return vectors
	}
	idx := rng.Perm(len(vectors))[:n]
	out := make([][]float64, n)
	for i, j := range idx {
		out[i] = vectors[j]
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
