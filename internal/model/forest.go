package model

import (
	"errors"
	"fmt"
)

// leaf marks a node without children, as in scikit-learn's tree arrays.
const leaf = -1

// Tree is one decision tree in scikit-learn's flattened array layout. Node i
// splits on Feature[i] at Threshold[i]: samples with x <= threshold go to
// ChildrenLeft[i], the rest to ChildrenRight[i]. Value[i] holds the per-class
// weights at node i.
type Tree struct {
	ChildrenLeft  []int        `json:"children_left"`
	ChildrenRight []int        `json:"children_right"`
	Feature       []int        `json:"feature"`
	Threshold     []float64    `json:"threshold"`
	Value         [][2]float64 `json:"value"`
}

// Forest is a random forest classifier exported from scikit-learn. Its
// probability is the mean of the trees' normalized leaf distributions.
type Forest struct {
	Kind     string   `json:"kind"`
	Features []string `json:"feature_names"`
	Trees    []Tree   `json:"trees"`
}

// FeatureNames returns the ordered schema the forest was trained on.
func (f *Forest) FeatureNames() []string {
	return append([]string(nil), f.Features...)
}

// PredictProba averages the class distributions of every tree's leaf.
func (f *Forest) PredictProba(x []float64) ([2]float64, error) {
	if len(x) != len(f.Features) {
		return [2]float64{}, fmt.Errorf("expected %d features, got %d", len(f.Features), len(x))
	}

	var sum [2]float64
	for i := range f.Trees {
		p := f.Trees[i].predict(x)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	n := float64(len(f.Trees))
	return [2]float64{sum[0] / n, sum[1] / n}, nil
}

func (t *Tree) predict(x []float64) [2]float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}

	v := t.Value[node]
	total := v[0] + v[1]
	if total == 0 {
		return [2]float64{}
	}
	return [2]float64{v[0] / total, v[1] / total}
}

// Validate checks the forest's structure so prediction cannot index out of
// range or loop.
func (f *Forest) Validate() error {
	if len(f.Features) == 0 {
		return errors.New("random forest declares no features")
	}
	seen := make(map[string]struct{}, len(f.Features))
	for _, name := range f.Features {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("random forest declares feature %q twice", name)
		}
		seen[name] = struct{}{}
	}
	if len(f.Trees) == 0 {
		return errors.New("random forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(len(f.Features)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *Tree) validate(numFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf || r == leaf {
			if l != r {
				return fmt.Errorf("node %d has one child", i)
			}
			continue
		}
		// Children always follow their parent in scikit-learn's layout, which
		// also rules out cycles.
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if f := t.Feature[i]; f < 0 || f >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, f, numFeatures)
		}
	}
	return nil
}
