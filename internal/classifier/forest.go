package classifier

import (
	"context"
	_ "embed" // bundled model
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-json"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// BackendForest names the JSON random forest backend
const BackendForest = "forest"

// forestFormat is the only export format understood
const forestFormat = "sklearn-forest/v1"

//go:embed models/forest.json
var bundledForest []byte

// treeArrays mirrors sklearn's tree_ attributes. A node is a leaf when its
// left child is -1.
type treeArrays struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

type forestFile struct {
	Format       string       `json:"format"`
	NFeatures    int          `json:"n_features"`
	FeatureNames []string     `json:"feature_names"`
	Classes      []string     `json:"classes"`
	Trees        []treeArrays `json:"trees"`
}

// tree holds one decision tree with leaf distributions already normalized
type tree struct {
	left, right []int
	feature     []int
	threshold   []float64
	leafProba   [][]float64
}

// Forest is a random forest evaluated in pure Go. It is read-only after
// loading, so concurrent predictions need no locking.
type Forest struct {
	classes []string
	trees   []tree
}

// LoadForest reads a forest export from path. An empty path loads the
// bundled model.
func LoadForest(path string, classes []string) (*Forest, error) {
	data := bundledForest
	if path != "" {
		var err error
		data, err = os.ReadFile(path) //nolint:gosec // path from config
		if err != nil {
			return nil, unavailable(BackendForest, path, err)
		}
	}

	f, err := ParseForest(data, classes)
	if err != nil {
		return nil, unavailable(BackendForest, path, err)
	}

	source := path
	if source == "" {
		source = "bundled"
	}
	GetLogger().Info("random forest loaded",
		logger.String("model", source),
		logger.Int("trees", len(f.trees)),
		logger.Int("classes", len(f.classes)))
	return f, nil
}

// ParseForest decodes and validates a forest export against the expected
// species classes.
func ParseForest(data []byte, classes []string) (*Forest, error) {
	var ff forestFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if ff.Format != "" && ff.Format != forestFormat {
		return nil, fmt.Errorf("unsupported forest format %q", ff.Format)
	}
	if ff.NFeatures != 0 && ff.NFeatures != NumFeatures {
		return nil, fmt.Errorf("forest expects %d features, want %d", ff.NFeatures, NumFeatures)
	}
	if len(ff.Classes) > 0 && !slices.Equal(ff.Classes, classes) {
		return nil, fmt.Errorf("forest classes %v do not match species codec %v", ff.Classes, classes)
	}
	if len(ff.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}

	f := &Forest{classes: slices.Clone(classes), trees: make([]tree, len(ff.Trees))}
	for i := range ff.Trees {
		t, err := buildTree(&ff.Trees[i], len(classes))
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		f.trees[i] = t
	}
	return f, nil
}

func buildTree(ta *treeArrays, nClasses int) (tree, error) {
	n := len(ta.ChildrenLeft)
	if n == 0 {
		return tree{}, fmt.Errorf("empty tree")
	}
	if len(ta.ChildrenRight) != n || len(ta.Feature) != n || len(ta.Threshold) != n || len(ta.Value) != n {
		return tree{}, fmt.Errorf("node arrays have mismatched lengths")
	}

	t := tree{
		left:      ta.ChildrenLeft,
		right:     ta.ChildrenRight,
		feature:   ta.Feature,
		threshold: ta.Threshold,
		leafProba: make([][]float64, n),
	}

	for node := range n {
		l, r := ta.ChildrenLeft[node], ta.ChildrenRight[node]
		if l == -1 {
			if r != -1 {
				return tree{}, fmt.Errorf("node %d has only one child", node)
			}
			proba, err := normalizeLeaf(ta.Value[node], nClasses)
			if err != nil {
				return tree{}, fmt.Errorf("node %d: %w", node, err)
			}
			t.leafProba[node] = proba
			continue
		}
		// Children always follow their parent, which also rules out cycles
		if l <= node || l >= n || r <= node || r >= n {
			return tree{}, fmt.Errorf("node %d has invalid children %d/%d", node, l, r)
		}
		if f := ta.Feature[node]; f < 0 || f >= NumFeatures {
			return tree{}, fmt.Errorf("node %d splits on unknown feature %d", node, f)
		}
	}
	return t, nil
}

func normalizeLeaf(counts []float64, nClasses int) ([]float64, error) {
	if len(counts) != nClasses {
		return nil, fmt.Errorf("leaf has %d class weights, want %d", len(counts), nClasses)
	}
	var total float64
	for _, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("negative class weight %v", c)
		}
		total += c
	}
	if total == 0 {
		return nil, fmt.Errorf("leaf has no samples")
	}
	out := make([]float64, nClasses)
	for i, c := range counts {
		out[i] = c / total
	}
	return out, nil
}

// leaf walks the tree for x. Inputs are compared in float32 like the
// trained splits.
func (t *tree) leaf(x []float64) []float64 {
	node := 0
	for t.left[node] != -1 {
		if float64(float32(x[t.feature[node]])) <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return t.leafProba[node]
}

// Backend implements Classifier
func (f *Forest) Backend() string { return BackendForest }

// Classes implements Classifier
func (f *Forest) Classes() []string { return slices.Clone(f.classes) }

// Trees returns the number of trees
func (f *Forest) Trees() int { return len(f.trees) }

// PredictProba averages the leaf distributions of all trees
func (f *Forest) PredictProba(ctx context.Context, fv FeatureVector) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x := fv.Float64s()
	sum := make([]float64, len(f.classes))
	for i := range f.trees {
		for c, p := range f.trees[i].leaf(x) {
			sum[c] += p
		}
	}
	for c := range sum {
		sum[c] /= float64(len(f.trees))
	}
	return newDistribution(f.classes, sum)
}

// Predict returns the most probable species
func (f *Forest) Predict(ctx context.Context, fv FeatureVector) (string, error) {
	return predictTop(ctx, f, fv)
}

// Close implements Classifier
func (f *Forest) Close() error { return nil }
