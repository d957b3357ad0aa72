// Package tree provides decision tree models built from first principles.
//
// DecisionTreeClassifier grows an axis-aligned binary tree by recursive
// partitioning: at each node every distinct value of every feature is tried
// as a threshold and the split with the highest information gain wins.
// Ties are resolved toward the lowest feature index and lowest threshold,
// so training is fully deterministic.
package tree

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/scratchml/scratchml/core/model"
	"github.com/scratchml/scratchml/metrics"
	scratchmlErrors "github.com/scratchml/scratchml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// node is a single node of a fitted tree. Internal nodes carry a split
// (feature index and threshold, with rows going left on value <= threshold);
// leaves carry the majority label and the class distribution of the training
// rows that reached them.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	leaf      bool
	value     float64
	proba     []float64 // class fractions in classes_ order, leaves only
}

// DecisionTreeClassifier implements a decision tree for classification.
// Compatible with scikit-learn's DecisionTreeClassifier
type DecisionTreeClassifier struct {
	model.BaseEstimator

	// Hyperparameters
	criterion       string // Split quality measure: "entropy" or "gini"
	maxDepth        int    // Maximum tree depth
	minSamplesSplit int    // Minimum samples required to attempt a split
	minSamplesLeaf  int    // Minimum samples required in each child of a split
	randomState     int64  // Accepted for parameter compatibility; the splitter never consults it

	// Learned parameters
	root                *node
	classes_            []float64 // Unique class labels, ascending
	nClasses_           int
	nFeatures_          int
	nSamples_           int
	depth_              int
	nLeaves_            int
	featureImportances_ []float64

	// Internal state
	classIndex map[float64]int
	mu         sync.RWMutex
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		criterion:       "entropy",
		maxDepth:        10,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     -1,
	}

	for _, opt := range opts {
		opt(dt)
	}

	return dt
}

// WithCriterion sets the split quality measure ("entropy" or "gini")
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth
func WithMaxDepth(maxDepth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = maxDepth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to attempt a split
func WithMinSamplesSplit(minSamplesSplit int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = minSamplesSplit
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required in each child
func WithMinSamplesLeaf(minSamplesLeaf int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = minSamplesLeaf
	}
}

// WithRandomState sets the random seed. The splitter is deterministic, so the
// seed has no effect on the fitted tree; the parameter exists so tree and
// ensemble configurations stay interchangeable.
func WithRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// Fit grows the tree on X (n_samples x n_features) and labels y (n_samples x 1)
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	defer scratchmlErrors.Recover(&err, "DecisionTreeClassifier.Fit")

	if dt.criterion != "entropy" && dt.criterion != "gini" {
		return scratchmlErrors.NewValidationError("criterion", `must be "entropy" or "gini"`, dt.criterion)
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return scratchmlErrors.NewModelError("DecisionTreeClassifier.Fit", "empty data", scratchmlErrors.ErrEmptyData)
	}
	if err := scratchmlErrors.CheckMatrix("DecisionTreeClassifier.Fit", X, rows, cols, 0); err != nil {
		return err
	}
	if rows != yRows {
		return scratchmlErrors.NewDimensionError("DecisionTreeClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return scratchmlErrors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}
	if err := scratchmlErrors.CheckMatrix("DecisionTreeClassifier.Fit", y, yRows, yCols, 0); err != nil {
		return err
	}

	dt.nSamples_ = rows
	dt.nFeatures_ = cols

	yValues := make([]float64, rows)
	for i := 0; i < rows; i++ {
		yValues[i] = y.At(i, 0)
	}

	dt.classes_, _ = labelCounts(yValues)
	dt.nClasses_ = len(dt.classes_)
	dt.classIndex = make(map[float64]int, dt.nClasses_)
	for i, class := range dt.classes_ {
		dt.classIndex[class] = i
	}

	dt.featureImportances_ = make([]float64, cols)

	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}

	dt.root = dt.buildTree(X, yValues, indices, 0)
	dt.depth_ = treeDepth(dt.root)
	dt.nLeaves_ = countLeaves(dt.root)

	// Normalize accumulated impurity decreases so importances sum to 1.
	// A root-leaf tree accumulated nothing and keeps the zero vector.
	var total float64
	for _, v := range dt.featureImportances_ {
		total += v
	}
	if total > 0 {
		for i := range dt.featureImportances_ {
			dt.featureImportances_[i] /= total
		}
	}

	dt.SetFitted()
	return nil
}

// buildTree recursively partitions the rows in indices and returns the subtree root
func (dt *DecisionTreeClassifier) buildTree(X mat.Matrix, y []float64, indices []int, depth int) *node {
	labels := gatherLabels(y, indices)
	uniq, counts := labelCounts(labels)

	if depth >= dt.maxDepth || len(uniq) == 1 || len(indices) < dt.minSamplesSplit {
		return dt.newLeaf(uniq, counts, len(indices))
	}

	feature, threshold, gain := dt.bestSplit(X, y, indices)

	// A best gain of exactly 0 means no candidate threshold separated the
	// subset (constant features, or duplicated rows with mixed labels).
	if gain == 0 {
		return dt.newLeaf(uniq, counts, len(indices))
	}

	var left, right []int
	for _, idx := range indices {
		if X.At(idx, feature) <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	// The winning split is rejected outright when it starves a child;
	// there is no fallback to the second-best candidate.
	if len(left) < dt.minSamplesLeaf || len(right) < dt.minSamplesLeaf {
		return dt.newLeaf(uniq, counts, len(indices))
	}

	dt.featureImportances_[feature] += float64(len(indices)) / float64(dt.nSamples_) * gain

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      dt.buildTree(X, y, left, depth+1),
		right:     dt.buildTree(X, y, right, depth+1),
	}
}

// newLeaf builds a leaf from the ascending unique labels and their counts
func (dt *DecisionTreeClassifier) newLeaf(uniq []float64, counts []int, total int) *node {
	// Majority label: highest count, count ties go to the smallest label
	// because uniq is ascending and only strict improvements move the pick.
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}

	proba := make([]float64, dt.nClasses_)
	for i, label := range uniq {
		proba[dt.classIndex[label]] = float64(counts[i]) / float64(total)
	}

	return &node{leaf: true, value: uniq[best], proba: proba}
}

// bestSplit scans every feature (ascending) and every distinct value of that
// feature (ascending) and returns the first candidate with the strictly
// highest information gain
func (dt *DecisionTreeClassifier) bestSplit(X mat.Matrix, y []float64, indices []int) (int, float64, float64) {
	parentImpurity := dt.impurity(gatherLabels(y, indices))

	bestGain := -1.0
	bestFeature := 0
	bestThreshold := 0.0

	for feature := 0; feature < dt.nFeatures_; feature++ {
		for _, threshold := range uniqueColumnValues(X, indices, feature) {
			gain := dt.informationGain(X, y, indices, feature, threshold, parentImpurity)
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// informationGain scores one candidate split as parent impurity minus the
// sample-weighted impurity of the two children. A split with an empty side
// scores 0.
func (dt *DecisionTreeClassifier) informationGain(X mat.Matrix, y []float64, indices []int, feature int, threshold, parentImpurity float64) float64 {
	var left, right []float64
	for _, idx := range indices {
		if X.At(idx, feature) <= threshold {
			left = append(left, y[idx])
		} else {
			right = append(right, y[idx])
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	n := float64(len(indices))
	childImpurity := float64(len(left))/n*dt.impurity(left) + float64(len(right))/n*dt.impurity(right)
	return parentImpurity - childImpurity
}

// impurity dispatches on the configured criterion
func (dt *DecisionTreeClassifier) impurity(labels []float64) float64 {
	if dt.criterion == "gini" {
		return gini(labels)
	}
	return entropy(labels)
}

// Predict returns the predicted label for each row of X as an n x 1 matrix
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	if !dt.IsFitted() {
		return nil, scratchmlErrors.NewNotFittedError("DecisionTreeClassifier", "Predict")
	}

	rows, cols := X.Dims()
	if cols != dt.nFeatures_ {
		return nil, scratchmlErrors.NewDimensionError("DecisionTreeClassifier.Predict", dt.nFeatures_, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		predictions.Set(i, 0, dt.predictRow(X, i).value)
	}

	return predictions, nil
}

// PredictProba returns class membership fractions as an n x nClasses matrix.
// Each row is the class distribution of the leaf the sample lands in, with
// columns ordered like Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	if !dt.IsFitted() {
		return nil, scratchmlErrors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}

	rows, cols := X.Dims()
	if cols != dt.nFeatures_ {
		return nil, scratchmlErrors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.nFeatures_, cols, 1)
	}

	probas := mat.NewDense(rows, dt.nClasses_, nil)
	for i := 0; i < rows; i++ {
		leaf := dt.predictRow(X, i)
		for j, p := range leaf.proba {
			probas.Set(i, j, p)
		}
	}

	return probas, nil
}

// predictRow descends from the root to the leaf for row i of X
func (dt *DecisionTreeClassifier) predictRow(X mat.Matrix, i int) *node {
	n := dt.root
	for !n.leaf {
		if X.At(i, n.feature) <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// Score returns the fraction of rows whose predicted label exactly matches y
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	if !dt.IsFitted() {
		return 0, scratchmlErrors.NewNotFittedError("DecisionTreeClassifier", "Score")
	}

	predictions, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}

	yRows, _ := y.Dims()
	pRows, _ := predictions.Dims()
	if yRows != pRows {
		return 0, scratchmlErrors.NewDimensionError("DecisionTreeClassifier.Score", pRows, yRows, 0)
	}

	yVec := mat.NewVecDense(yRows, nil)
	predVec := mat.NewVecDense(yRows, nil)
	for i := 0; i < yRows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}

	return metrics.Accuracy(yVec, predVec)
}

// GetDepth returns the depth of the fitted tree (0 for a lone root leaf)
func (dt *DecisionTreeClassifier) GetDepth() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.depth_
}

// GetNLeaves returns the number of leaves in the fitted tree
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.nLeaves_
}

// GetFeatureImportances returns the normalized impurity decrease per feature.
// The values sum to 1 unless the tree is a single leaf, in which case every
// entry is 0.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	if dt.featureImportances_ == nil {
		return nil
	}
	importances := make([]float64, len(dt.featureImportances_))
	copy(importances, dt.featureImportances_)
	return importances
}

// Classes returns the class labels seen during Fit in ascending order
func (dt *DecisionTreeClassifier) Classes() []int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	classes := make([]int, len(dt.classes_))
	for i, class := range dt.classes_ {
		classes[i] = int(class)
	}
	return classes
}

// GetParams returns the hyperparameters with scikit-learn style keys
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters from scikit-learn style keys
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	for key, value := range params {
		switch key {
		case "criterion":
			v, ok := value.(string)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be a string", value)
			}
			if v != "entropy" && v != "gini" {
				return scratchmlErrors.NewValidationError(key, `must be "entropy" or "gini"`, value)
			}
			dt.criterion = v
		case "max_depth":
			v, ok := value.(int)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
			dt.maxDepth = v
		case "min_samples_split":
			v, ok := value.(int)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
			dt.minSamplesSplit = v
		case "min_samples_leaf":
			v, ok := value.(int)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
			dt.minSamplesLeaf = v
		case "random_state":
			switch v := value.(type) {
			case int:
				dt.randomState = int64(v)
			case int64:
				dt.randomState = v
			default:
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
		default:
			return scratchmlErrors.NewValueError("DecisionTreeClassifier.SetParams", fmt.Sprintf("unknown parameter %q", key))
		}
	}

	return nil
}

// ===========================================================================
//
//	Split criteria and label helpers
//
// ===========================================================================

// entropy computes -sum(p * log2(p + 1e-8)) over the labels present in y.
// The 1e-8 additive constant keeps log2 finite; a pure subset therefore
// scores a hair below 0 rather than exactly 0.
func entropy(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}

	_, counts := labelCounts(labels)
	total := float64(len(labels))

	var sum float64
	for _, c := range counts {
		p := float64(c) / total
		sum += p * math.Log2(p+1e-8)
	}
	return -sum
}

// gini computes the Gini impurity 1 - sum(p^2) over the labels present in y
func gini(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}

	_, counts := labelCounts(labels)
	total := float64(len(labels))

	var sum float64
	for _, c := range counts {
		p := float64(c) / total
		sum += p * p
	}
	return 1 - sum
}

// labelCounts returns the distinct labels in ascending order with their counts
func labelCounts(labels []float64) ([]float64, []int) {
	sorted := make([]float64, len(labels))
	copy(sorted, labels)
	sort.Float64s(sorted)

	var uniq []float64
	var counts []int
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		uniq = append(uniq, sorted[i])
		counts = append(counts, j-i)
		i = j
	}
	return uniq, counts
}

// gatherLabels extracts y values for the given row indices
func gatherLabels(y []float64, indices []int) []float64 {
	labels := make([]float64, len(indices))
	for i, idx := range indices {
		labels[i] = y[idx]
	}
	return labels
}

// uniqueColumnValues returns the distinct values of one feature column over
// the given rows, ascending
func uniqueColumnValues(X mat.Matrix, indices []int, feature int) []float64 {
	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = X.At(idx, feature)
	}
	sort.Float64s(values)

	j := 0
	for i := 1; i < len(values); i++ {
		if values[i] != values[j] {
			j++
			values[j] = values[i]
		}
	}
	return values[:j+1]
}

// treeDepth returns the number of edges on the longest root-to-leaf path
func treeDepth(n *node) int {
	if n == nil || n.leaf {
		return 0
	}
	left := treeDepth(n.left)
	right := treeDepth(n.right)
	if left > right {
		return 1 + left
	}
	return 1 + right
}

// countLeaves returns the number of leaves in the subtree
func countLeaves(n *node) int {
	if n == nil {
		return 0
	}
	if n.leaf {
		return 1
	}
	return countLeaves(n.left) + countLeaves(n.right)
}
