package classifier

import (
	"math"
	"sort"
)

// treeNode is one node of a regression tree fitted to boosting residuals.
// Numeric splits send x <= Threshold (and missing values) left; categorical
// splits send the matching category left. Nodes serialize with the bundle.
type treeNode struct {
	Leaf        bool      `json:"leaf,omitempty"`
	Value       float64   `json:"value,omitempty"`
	Feature     int       `json:"feature,omitempty"`
	Categorical bool      `json:"categorical,omitempty"`
	Threshold   float64   `json:"threshold,omitempty"`
	Left        *treeNode `json:"left,omitempty"`
	Right       *treeNode `json:"right,omitempty"`
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.Leaf {
		v := x[n.Feature]
		if n.Categorical {
			if v == n.Threshold {
				n = n.Left
			} else {
				n = n.Right
			}
			continue
		}
		if math.IsNaN(v) || v <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type treeConfig struct {
	maxDepth int
	minLeaf  int
}

// buildTree fits a least-squares regression tree to target over the rows
// in idx. Greedy, exhaustive over split candidates, deterministic.
func buildTree(x [][]float64, target []float64, idx []int, catMask []bool, cfg treeConfig, depth int) *treeNode {
	leaf := &treeNode{Leaf: true, Value: mean(target, idx)}
	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minLeaf {
		return leaf
	}

	best := findBestSplit(x, target, idx, catMask, cfg.minLeaf)
	if best == nil {
		return leaf
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if best.goesLeft(x[i]) {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return leaf
	}
	return &treeNode{
		Feature:     best.feature,
		Categorical: best.categorical,
		Threshold:   best.threshold,
		Left:        buildTree(x, target, leftIdx, catMask, cfg, depth+1),
		Right:       buildTree(x, target, rightIdx, catMask, cfg, depth+1),
	}
}

type split struct {
	feature     int
	categorical bool
	threshold   float64
}

func (s *split) goesLeft(x []float64) bool {
	v := x[s.feature]
	if s.categorical {
		return v == s.threshold
	}
	return math.IsNaN(v) || v <= s.threshold
}

// findBestSplit returns the split with the largest squared-error reduction,
// or nil when nothing improves on the parent node.
func findBestSplit(x [][]float64, target []float64, idx []int, catMask []bool, minLeaf int) *split {
	if len(idx) == 0 {
		return nil
	}
	nFeatures := len(x[idx[0]])

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += target[i]
		totalSq += target[i] * target[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(len(idx))

	const minGain = 1e-10
	var best *split
	bestGain := minGain

	for f := 0; f < nFeatures; f++ {
		if catMask[f] {
			for _, s := range categoricalSplits(x, target, idx, f, minLeaf, totalSum, totalSq, parentSSE) {
				if s.gain > bestGain {
					bestGain = s.gain
					sc := s.split
					best = &sc
				}
			}
			continue
		}
		if s, gain, ok := bestNumericSplit(x, target, idx, f, minLeaf, totalSum, totalSq, parentSSE); ok && gain > bestGain {
			bestGain = gain
			best = &s
		}
	}
	return best
}

type scoredSplit struct {
	split split
	gain  float64
}

// categoricalSplits scores one-vs-rest equality splits for each category
// value present among the rows. Categories are visited in ascending index
// order so ties resolve deterministically.
func categoricalSplits(x [][]float64, target []float64, idx []int, f, minLeaf int, totalSum, totalSq, parentSSE float64) []scoredSplit {
	type agg struct {
		n   int
		sum float64
		sq  float64
	}
	byCat := map[float64]*agg{}
	for _, i := range idx {
		v := x[i][f]
		a := byCat[v]
		if a == nil {
			a = &agg{}
			byCat[v] = a
		}
		a.n++
		a.sum += target[i]
		a.sq += target[i] * target[i]
	}
	cats := make([]float64, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Float64s(cats)

	n := len(idx)
	var out []scoredSplit
	for _, c := range cats {
		a := byCat[c]
		rn := n - a.n
		if a.n < minLeaf || rn < minLeaf {
			continue
		}
		leftSSE := a.sq - a.sum*a.sum/float64(a.n)
		rSum := totalSum - a.sum
		rightSSE := (totalSq - a.sq) - rSum*rSum/float64(rn)
		out = append(out, scoredSplit{
			split: split{feature: f, categorical: true, threshold: c},
			gain:  parentSSE - leftSSE - rightSSE,
		})
	}
	return out
}

// bestNumericSplit scans sorted midpoints of the feature's present values.
// Missing values ride the left branch at every candidate threshold.
func bestNumericSplit(x [][]float64, target []float64, idx []int, f, minLeaf int, totalSum, totalSq, parentSSE float64) (split, float64, bool) {
	type vt struct {
		v float64
		t float64
	}
	var present []vt
	var nanN int
	var nanSum, nanSq float64
	for _, i := range idx {
		v := x[i][f]
		if math.IsNaN(v) {
			nanN++
			nanSum += target[i]
			nanSq += target[i] * target[i]
			continue
		}
		present = append(present, vt{v, target[i]})
	}
	if len(present) < 2 {
		return split{}, 0, false
	}
	sort.Slice(present, func(a, b int) bool { return present[a].v < present[b].v })

	n := len(idx)
	// Running prefix over the sorted present rows; missing rows start left.
	leftN, leftSum, leftSq := nanN, nanSum, nanSq
	bestGain := 0.0
	var bestThr float64
	found := false
	for k := 0; k < len(present)-1; k++ {
		leftN++
		leftSum += present[k].t
		leftSq += present[k].t * present[k].t
		if present[k].v == present[k+1].v {
			continue
		}
		rn := n - leftN
		if leftN < minLeaf || rn < minLeaf {
			continue
		}
		leftSSE := leftSq - leftSum*leftSum/float64(leftN)
		rSum := totalSum - leftSum
		rightSSE := (totalSq - leftSq) - rSum*rSum/float64(rn)
		gain := parentSSE - leftSSE - rightSSE
		if gain > bestGain {
			bestGain = gain
			bestThr = (present[k].v + present[k+1].v) / 2
			found = true
		}
	}
	if !found {
		return split{}, 0, false
	}
	return split{feature: f, threshold: bestThr}, bestGain, true
}

func mean(target []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += target[i]
	}
	return sum / float64(len(idx))
}
