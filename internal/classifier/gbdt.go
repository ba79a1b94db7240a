package classifier

import "math"

// TrainConfig holds the boosting hyperparameters. Defaults are modest and
// deterministic; there is no row or feature subsampling, so training the
// same frame twice yields the same model.
type TrainConfig struct {
	Rounds       int     `json:"rounds"`
	LearningRate float64 `json:"learning_rate"`
	MaxDepth     int     `json:"max_depth"`
	MinLeaf      int     `json:"min_leaf"`
}

// DefaultTrainConfig returns the standard hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{Rounds: 50, LearningRate: 0.1, MaxDepth: 3, MinLeaf: 2}
}

// Model is a gradient-boosted tree ensemble over the engine's feature
// layout: binary logistic for exactly two classes, one-vs-all softmax
// boosting otherwise, and a constant for the degenerate one-class case.
type Model struct {
	Classes int        `json:"classes"`
	Binary  bool       `json:"binary"`
	Config  TrainConfig `json:"config"`
	// Base holds the initial per-class scores (smoothed log priors);
	// for a binary model it is the single prior logit.
	Base []float64 `json:"base"`
	// Trees[m][k] is round m's tree for class k (binary: k = 0 only).
	Trees [][]*treeNode `json:"trees"`
}

// TrainModel fits the ensemble. y holds class indices in [0, classes);
// classes may exceed the indices present in y (labels the vocabulary knows
// but the batch never produced) — absent classes keep their low prior and
// are simply never predicted.
func TrainModel(x [][]float64, y []int, classes int, catMask []bool, cfg TrainConfig) *Model {
	m := &Model{Classes: classes, Binary: classes == 2, Config: cfg}
	if classes < 1 {
		classes = 1
		m.Classes = 1
	}
	if classes == 1 {
		m.Base = []float64{0}
		return m
	}

	n := len(x)
	counts := make([]float64, classes)
	for _, c := range y {
		counts[c]++
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	tcfg := treeConfig{maxDepth: cfg.MaxDepth, minLeaf: cfg.MinLeaf}

	if m.Binary {
		// Smoothed prior logit, then logistic boosting on class 1.
		p := (counts[1] + 1) / (float64(n) + 2)
		m.Base = []float64{math.Log(p / (1 - p))}

		score := make([]float64, n)
		for i := range score {
			score[i] = m.Base[0]
		}
		resid := make([]float64, n)
		for round := 0; round < cfg.Rounds; round++ {
			for i := 0; i < n; i++ {
				target := 0.0
				if y[i] == 1 {
					target = 1
				}
				resid[i] = target - sigmoid(score[i])
			}
			tree := buildTree(x, resid, idx, catMask, tcfg, 0)
			for i := 0; i < n; i++ {
				score[i] += cfg.LearningRate * tree.predict(x[i])
			}
			m.Trees = append(m.Trees, []*treeNode{tree})
		}
		return m
	}

	// Multiclass softmax boosting.
	m.Base = make([]float64, classes)
	for k := 0; k < classes; k++ {
		m.Base[k] = math.Log((counts[k] + 1) / (float64(n) + float64(classes)))
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), m.Base...)
	}
	resid := make([]float64, n)
	probs := make([]float64, classes)
	for round := 0; round < cfg.Rounds; round++ {
		roundTrees := make([]*treeNode, classes)
		for k := 0; k < classes; k++ {
			for i := 0; i < n; i++ {
				softmaxInto(scores[i], probs)
				target := 0.0
				if y[i] == k {
					target = 1
				}
				resid[i] = target - probs[k]
			}
			tree := buildTree(x, resid, idx, catMask, tcfg, 0)
			for i := 0; i < n; i++ {
				scores[i][k] += cfg.LearningRate * tree.predict(x[i])
			}
			roundTrees[k] = tree
		}
		m.Trees = append(m.Trees, roundTrees)
	}
	return m
}

// Predict returns the class index for one feature vector.
func (m *Model) Predict(x []float64) int {
	if m.Classes <= 1 {
		return 0
	}
	if m.Binary {
		score := m.Base[0]
		for _, round := range m.Trees {
			score += m.Config.LearningRate * round[0].predict(x)
		}
		if score > 0 {
			return 1
		}
		return 0
	}
	best, bestScore := 0, math.Inf(-1)
	for k := 0; k < m.Classes; k++ {
		score := m.Base[k]
		for _, round := range m.Trees {
			score += m.Config.LearningRate * round[k].predict(x)
		}
		if score > bestScore {
			bestScore = score
			best = k
		}
	}
	return best
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func softmaxInto(scores, out []float64) {
	maxS := scores[0]
	for _, s := range scores[1:] {
		if s > maxS {
			maxS = s
		}
	}
	var sum float64
	for k, s := range scores {
		out[k] = math.Exp(s - maxS)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
}
