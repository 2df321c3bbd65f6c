// Package classifier evaluates the crop model exported from the training
// pipeline: a random forest in sklearn's flat tree layout plus the label
// encoder that maps class indices back to crop names.
package classifier

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// NumFeatures is the width of the feature vector: N, P, K, temperature, humidity, pH.
const NumFeatures = 6

// leaf marks a node without children in children_left/children_right.
const leaf = -1

// ErrInvalidModel is returned when an artifact does not describe a usable model.
var ErrInvalidModel = errors.New("invalid model artifact")

// Probabilistic is implemented by anything that yields one probability per class.
type Probabilistic interface {
	PredictProba(features []float64) []float64
	NumClasses() int
}

// Tree is a single decision tree in sklearn's tree_ array layout.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`

	// normalized class distribution per node, filled by prepare
	proba [][]float64
}

// Forest averages the leaf distributions of its trees.
type Forest struct {
	FeatureNames []string `json:"feature_names,omitempty"`
	Classes      int      `json:"n_classes"`
	Trees        []*Tree  `json:"trees"`
}

// LoadForest reads and validates a forest artifact.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model %s: %w", path, err)
	}
	return ParseForest(data)
}

// ParseForest decodes and validates a forest artifact.
func ParseForest(data []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if err := f.prepare(); err != nil {
		return nil, err
	}
	return &f, nil
}

// NumClasses returns the size of the label space.
func (f *Forest) NumClasses() int {
	return f.Classes
}

// PredictProba returns the mean class distribution across trees.
// Features are rounded to float32 before comparison, as sklearn does when
// it trains and predicts. Any float input is accepted; NaN comparisons fall
// through to the right child.
func (f *Forest) PredictProba(features []float64) []float64 {
	out := make([]float64, f.Classes)
	for _, t := range f.Trees {
		dist := t.proba[t.leafFor(features)]
		for i, p := range dist {
			out[i] += p
		}
	}
	n := float64(len(f.Trees))
	for i := range out {
		out[i] /= n
	}
	return out
}

func (t *Tree) leafFor(features []float64) int {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		var x float64
		if idx := t.Feature[node]; idx < len(features) {
			x = float64(float32(features[idx]))
		}
		if x <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

func (f *Forest) prepare() error {
	if f.Classes <= 0 {
		return fmt.Errorf("%w: n_classes must be positive", ErrInvalidModel)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrInvalidModel)
	}
	if len(f.FeatureNames) != 0 && len(f.FeatureNames) != NumFeatures {
		return fmt.Errorf("%w: expected %d features, got %d", ErrInvalidModel, NumFeatures, len(f.FeatureNames))
	}
	for i, t := range f.Trees {
		if t == nil {
			return fmt.Errorf("%w: tree %d is null", ErrInvalidModel, i)
		}
		if err := t.prepare(f.Classes); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrInvalidModel, i, err)
		}
	}
	return nil
}

func (t *Tree) prepare(classes int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}

	t.proba = make([][]float64, n)
	for node := 0; node < n; node++ {
		left, right := t.ChildrenLeft[node], t.ChildrenRight[node]
		if left == leaf {
			if right != leaf {
				return fmt.Errorf("node %d has only a right child", node)
			}
			dist, err := normalize(t.Value[node], classes)
			if err != nil {
				return fmt.Errorf("node %d: %v", node, err)
			}
			t.proba[node] = dist
			continue
		}
		// children always come after their parent, which also rules out cycles
		if left <= node || left >= n || right <= node || right >= n {
			return fmt.Errorf("node %d has out-of-range children", node)
		}
		if f := t.Feature[node]; f < 0 || f >= NumFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", node, f)
		}
	}
	return nil
}

func normalize(counts []float64, classes int) ([]float64, error) {
	if len(counts) != classes {
		return nil, fmt.Errorf("leaf has %d class counts, want %d", len(counts), classes)
	}
	var sum float64
	for _, c := range counts {
		if c < 0 {
			return nil, errors.New("negative class count")
		}
		sum += c
	}
	if sum == 0 {
		return nil, errors.New("leaf has no samples")
	}
	dist := make([]float64, classes)
	for i, c := range counts {
		dist[i] = c / sum
	}
	return dist, nil
}
