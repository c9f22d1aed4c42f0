package regression

import "sort"

type treeParams struct {
	maxDepth int // <= 0 grows until leaves are pure or minLeaf binds
	minLeaf  int
}

// treeNode is a leaf when left < 0.
type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

// regressionTree is a CART tree with squared-error splits.
type regressionTree struct {
	nodes []treeNode
}

func buildTree(X [][]float64, y []float64, idx []int, p treeParams) *regressionTree {
	if p.minLeaf < 1 {
		p.minLeaf = 1
	}
	t := &regressionTree{nodes: make([]treeNode, 0, 2*len(idx)/max(p.minLeaf, 1)+1)}
	t.grow(X, y, idx, p, 0)
	return t
}

func (t *regressionTree) predict(x []float64) float64 {
	i := 0
	for t.nodes[i].left >= 0 {
		n := t.nodes[i]
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return t.nodes[i].value
}

func (t *regressionTree) grow(X [][]float64, y []float64, idx []int, p treeParams, depth int) int {
	me := len(t.nodes)
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	t.nodes = append(t.nodes, treeNode{left: -1, right: -1, value: sum / float64(len(idx))})
	if len(idx) < 2*p.minLeaf || (p.maxDepth > 0 && depth >= p.maxDepth) {
		return me
	}
	feature, threshold, ok := bestSplit(X, y, idx, sum, p.minLeaf)
	if !ok {
		return me
	}
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := t.grow(X, y, left, p, depth+1)
	r := t.grow(X, y, right, p, depth+1)
	t.nodes[me].feature = feature
	t.nodes[me].threshold = threshold
	t.nodes[me].left = l
	t.nodes[me].right = r
	return me
}

// bestSplit maximises sum_l^2/n_l + sum_r^2/n_r, which minimises the children's squared error.
func bestSplit(X [][]float64, y []float64, idx []int, total float64, minLeaf int) (int, float64, bool) {
	n := len(idx)
	base := total * total / float64(n)
	bestGain := base + 1e-12*(1+base)
	bestFeature, bestThreshold, found := -1, 0.0, false
	sorted := make([]int, n)
	for f := range X[idx[0]] {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })
		left := 0.0
		for k := 0; k < n-1; k++ {
			left += y[sorted[k]]
			nl := k + 1
			if nl < minLeaf {
				continue
			}
			if n-nl < minLeaf {
				break
			}
			lo, hi := X[sorted[k]][f], X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			right := total - left
			gain := left*left/float64(nl) + right*right/float64(n-nl)
			if gain > bestGain {
				bestGain, bestFeature, bestThreshold, found = gain, f, lo+(hi-lo)/2, true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
