// Package ensemble provides ensemble classifiers built by bagging the
// estimators in sklearn/tree.
//
// RandomForestClassifier trains each tree on a bootstrap resample of the
// rows and a random subset of the columns, then aggregates predictions by
// plurality vote. With a fixed seed the whole ensemble is reproducible,
// whether trees are fitted sequentially or in parallel.
package ensemble

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/scratchml/scratchml/core/model"
	"github.com/scratchml/scratchml/core/parallel"
	"github.com/scratchml/scratchml/metrics"
	scratchmlErrors "github.com/scratchml/scratchml/pkg/errors"
	"github.com/scratchml/scratchml/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// baggedTree pairs a fitted tree with the column subset it was trained on.
// The subset keeps its sampled (unsorted) order so prediction projects rows
// exactly the way training did.
type baggedTree struct {
	tree     *tree.DecisionTreeClassifier
	features []int
}

// RandomForestClassifier implements a random forest for classification.
// Compatible with scikit-learn's RandomForestClassifier
type RandomForestClassifier struct {
	model.BaseEstimator

	// Hyperparameters
	nEstimators     int         // Number of trees in the ensemble
	criterion       string      // Split quality measure forwarded to the trees
	maxDepth        int         // Maximum depth of each tree
	minSamplesSplit int         // Minimum samples required to attempt a split
	minSamplesLeaf  int         // Minimum samples required in each child of a split
	maxFeatures     interface{} // "sqrt", "log2", "all", an int count or a float64 fraction
	bootstrap       bool        // Resample rows with replacement per tree
	randomState     int64       // Base seed; tree i draws from base+i. -1 means unseeded

	// Learned parameters
	trees_     []*baggedTree
	classes_   []float64 // Unique class labels seen in y, ascending
	nClasses_  int
	nFeatures_ int
	nSelected_ int // Resolved column subset size shared by all trees

	mu sync.RWMutex
}

// RandomForestOption is a functional option for RandomForestClassifier
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a new RandomForestClassifier
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	f := &RandomForestClassifier{
		nEstimators:     100,
		criterion:       "entropy",
		maxDepth:        10,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
		randomState:     -1,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// WithNEstimators sets the number of trees in the forest
func WithNEstimators(n int) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.nEstimators = n
	}
}

// WithForestCriterion sets the split quality measure forwarded to every tree
func WithForestCriterion(criterion string) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.criterion = criterion
	}
}

// WithForestMaxDepth sets the maximum depth of each tree
func WithForestMaxDepth(maxDepth int) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.maxDepth = maxDepth
	}
}

// WithForestMinSamplesSplit sets the minimum number of samples required to attempt a split
func WithForestMinSamplesSplit(minSamplesSplit int) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.minSamplesSplit = minSamplesSplit
	}
}

// WithForestMinSamplesLeaf sets the minimum number of samples required in each child
func WithForestMinSamplesLeaf(minSamplesLeaf int) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.minSamplesLeaf = minSamplesLeaf
	}
}

// WithMaxFeatures sets the per-tree column subset size. Accepts the mode
// strings "sqrt", "log2" and "all", an int count, or a float64 fraction of
// the feature count. Sizes round to the nearest integer and never drop
// below 1.
func WithMaxFeatures(maxFeatures interface{}) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.maxFeatures = maxFeatures
	}
}

// WithBootstrap toggles row resampling. When disabled every tree sees all
// rows and only the column subsets differ, so the ensemble is more
// correlated.
func WithBootstrap(bootstrap bool) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.bootstrap = bootstrap
	}
}

// WithForestRandomState sets the base random seed. Tree i is driven by its
// own generator seeded base+i, which keeps results identical whether the
// trees are fitted sequentially or in parallel.
func WithForestRandomState(seed int64) RandomForestOption {
	return func(f *RandomForestClassifier) {
		f.randomState = seed
	}
}

// Fit trains the forest on X (n_samples x n_features) and labels y (n_samples x 1)
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer scratchmlErrors.Recover(&err, "RandomForestClassifier.Fit")

	if f.nEstimators < 1 {
		return scratchmlErrors.NewValidationError("n_estimators", "must be at least 1", f.nEstimators)
	}
	if f.criterion != "entropy" && f.criterion != "gini" {
		return scratchmlErrors.NewValidationError("criterion", `must be "entropy" or "gini"`, f.criterion)
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	if rows == 0 || cols == 0 {
		return scratchmlErrors.NewModelError("RandomForestClassifier.Fit", "empty data", scratchmlErrors.ErrEmptyData)
	}
	if err := scratchmlErrors.CheckMatrix("RandomForestClassifier.Fit", X, rows, cols, 0); err != nil {
		return err
	}
	if rows != yRows {
		return scratchmlErrors.NewDimensionError("RandomForestClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return scratchmlErrors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if err := scratchmlErrors.CheckMatrix("RandomForestClassifier.Fit", y, yRows, yCols, 0); err != nil {
		return err
	}

	f.nFeatures_ = cols

	nSelected, err := f.resolveMaxFeatures(cols)
	if err != nil {
		return err
	}
	f.nSelected_ = nSelected

	yValues := make([]float64, rows)
	for i := 0; i < rows; i++ {
		yValues[i] = y.At(i, 0)
	}
	f.classes_ = uniqueLabels(yValues)
	f.nClasses_ = len(f.classes_)

	// Seeds are derived up front, sequentially, so the parallel loop below
	// produces the same forest as a sequential one.
	seeds := make([]int64, f.nEstimators)
	if f.randomState >= 0 {
		for i := range seeds {
			seeds[i] = f.randomState + int64(i)
		}
	} else {
		for i := range seeds {
			seeds[i] = rand.Int63()
		}
	}

	trees := make([]*baggedTree, f.nEstimators)
	errs := make([]error, f.nEstimators)

	// Each goroutine owns a contiguous range of slots and touches nothing
	// else. Tiny ensembles are not worth the goroutine overhead.
	const parallelThreshold = 4
	parallel.ParallelizeWithThreshold(f.nEstimators, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			trees[i], errs[i] = f.fitTree(X, yValues, seeds[i], nSelected)
		}
	})

	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	f.trees_ = trees
	f.SetFitted()
	return nil
}

// fitTree trains one member of the ensemble from its own generator: a
// bootstrap row resample first, then a column subset without replacement.
// The draw order is fixed so a given seed always yields the same tree.
func (f *RandomForestClassifier) fitTree(X mat.Matrix, yValues []float64, seed int64, nSelected int) (*baggedTree, error) {
	rng := rand.New(rand.NewSource(seed))
	n := len(yValues)

	rowIdx := make([]int, n)
	if f.bootstrap {
		for i := range rowIdx {
			rowIdx[i] = rng.Intn(n)
		}
	} else {
		for i := range rowIdx {
			rowIdx[i] = i
		}
	}

	features := rng.Perm(f.nFeatures_)[:nSelected]

	XSub := mat.NewDense(n, nSelected, nil)
	ySub := mat.NewDense(n, 1, nil)
	for i, r := range rowIdx {
		for j, c := range features {
			XSub.Set(i, j, X.At(r, c))
		}
		ySub.Set(i, 0, yValues[r])
	}

	t := tree.NewDecisionTreeClassifier(
		tree.WithCriterion(f.criterion),
		tree.WithMaxDepth(f.maxDepth),
		tree.WithMinSamplesSplit(f.minSamplesSplit),
		tree.WithMinSamplesLeaf(f.minSamplesLeaf),
		tree.WithRandomState(seed),
	)
	if err := t.Fit(XSub, ySub); err != nil {
		return nil, err
	}

	return &baggedTree{tree: t, features: features}, nil
}

// resolveMaxFeatures turns the max_features setting into a concrete subset
// size for nFeatures columns
func (f *RandomForestClassifier) resolveMaxFeatures(nFeatures int) (int, error) {
	var size int

	switch v := f.maxFeatures.(type) {
	case string:
		switch v {
		case "sqrt":
			size = int(math.Round(math.Sqrt(float64(nFeatures))))
		case "log2":
			size = int(math.Round(math.Log2(float64(nFeatures))))
		case "all":
			size = nFeatures
		default:
			return 0, scratchmlErrors.NewValueError("RandomForestClassifier.Fit",
				fmt.Sprintf("unknown max_features mode %q", v))
		}
	case int:
		size = v
		if size > nFeatures {
			size = nFeatures
		}
	case float64:
		size = int(math.Round(v * float64(nFeatures)))
		if size > nFeatures {
			size = nFeatures
		}
	default:
		return 0, scratchmlErrors.NewValueError("RandomForestClassifier.Fit",
			fmt.Sprintf("unsupported max_features type %T", f.maxFeatures))
	}

	if size < 1 {
		size = 1
	}
	return size, nil
}

// Predict returns the plurality-vote label for each row of X as an n x 1 matrix.
// Vote ties go to the smallest label.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.IsFitted() {
		return nil, scratchmlErrors.NewNotFittedError("RandomForestClassifier", "Predict")
	}

	votes, err := f.treeVotes(X, "RandomForestClassifier.Predict")
	if err != nil {
		return nil, err
	}

	predictions := mat.NewDense(len(votes), 1, nil)
	for i, rowVotes := range votes {
		labels, counts := voteDistribution(rowVotes)
		best := 0
		for j := 1; j < len(counts); j++ {
			if counts[j] > counts[best] {
				best = j
			}
		}
		predictions.Set(i, 0, labels[best])
	}

	return predictions, nil
}

// PredictProba returns per-class vote fractions as an n x C matrix. The C
// columns are the distinct labels predicted by any tree for this batch, in
// ascending order; labels the ensemble never votes for in the batch get no
// column. Each row sums to 1.
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.IsFitted() {
		return nil, scratchmlErrors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}

	votes, err := f.treeVotes(X, "RandomForestClassifier.PredictProba")
	if err != nil {
		return nil, err
	}

	var all []float64
	for _, rowVotes := range votes {
		all = append(all, rowVotes...)
	}
	labels := uniqueLabels(all)

	labelIndex := make(map[float64]int, len(labels))
	for i, label := range labels {
		labelIndex[label] = i
	}

	nTrees := float64(len(f.trees_))
	probas := mat.NewDense(len(votes), len(labels), nil)
	for i, rowVotes := range votes {
		for _, vote := range rowVotes {
			j := labelIndex[vote]
			probas.Set(i, j, probas.At(i, j)+1/nTrees)
		}
	}

	return probas, nil
}

// treeVotes collects the per-tree predictions for every row of X.
// votes[i][t] is tree t's label for row i.
func (f *RandomForestClassifier) treeVotes(X mat.Matrix, op string) ([][]float64, error) {
	rows, cols := X.Dims()
	if cols != f.nFeatures_ {
		return nil, scratchmlErrors.NewDimensionError(op, f.nFeatures_, cols, 1)
	}

	votes := make([][]float64, rows)
	for i := range votes {
		votes[i] = make([]float64, len(f.trees_))
	}

	for t, bt := range f.trees_ {
		preds, err := bt.tree.Predict(projectColumns(X, bt.features))
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			votes[i][t] = preds.At(i, 0)
		}
	}

	return votes, nil
}

// Score returns the fraction of rows whose predicted label exactly matches y
func (f *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	if !f.IsFitted() {
		return 0, scratchmlErrors.NewNotFittedError("RandomForestClassifier", "Score")
	}

	predictions, err := f.Predict(X)
	if err != nil {
		return 0, err
	}

	yRows, _ := y.Dims()
	pRows, _ := predictions.Dims()
	if yRows != pRows {
		return 0, scratchmlErrors.NewDimensionError("RandomForestClassifier.Score", pRows, yRows, 0)
	}

	yVec := mat.NewVecDense(yRows, nil)
	predVec := mat.NewVecDense(yRows, nil)
	for i := 0; i < yRows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}

	return metrics.Accuracy(yVec, predVec)
}

// FeatureImportances returns a uniform weight per selected column. Impurity
// decreases are not aggregated across the ensemble, so every entry is
// 1/n_selected and the vector length is the per-tree subset size rather
// than the full feature count.
func (f *RandomForestClassifier) FeatureImportances() ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.IsFitted() {
		return nil, scratchmlErrors.NewNotFittedError("RandomForestClassifier", "FeatureImportances")
	}

	importances := make([]float64, f.nSelected_)
	for i := range importances {
		importances[i] = 1.0 / float64(f.nSelected_)
	}
	return importances, nil
}

// Classes returns the class labels seen during Fit in ascending order
func (f *RandomForestClassifier) Classes() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	classes := make([]int, len(f.classes_))
	for i, class := range f.classes_ {
		classes[i] = int(class)
	}
	return classes
}

// NTrees returns the number of fitted trees (0 before Fit)
func (f *RandomForestClassifier) NTrees() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.trees_)
}

// GetParams returns the hyperparameters with scikit-learn style keys
func (f *RandomForestClassifier) GetParams() map[string]interface{} {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return map[string]interface{}{
		"n_estimators":      f.nEstimators,
		"criterion":         f.criterion,
		"max_depth":         f.maxDepth,
		"min_samples_split": f.minSamplesSplit,
		"min_samples_leaf":  f.minSamplesLeaf,
		"max_features":      f.maxFeatures,
		"bootstrap":         f.bootstrap,
		"random_state":      f.randomState,
	}
}

// SetParams updates hyperparameters from scikit-learn style keys
func (f *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, value := range params {
		switch key {
		case "n_estimators":
			v, ok := value.(int)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
			f.nEstimators = v
		case "criterion":
			v, ok := value.(string)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be a string", value)
			}
			if v != "entropy" && v != "gini" {
				return scratchmlErrors.NewValidationError(key, `must be "entropy" or "gini"`, value)
			}
			f.criterion = v
		case "max_depth":
			v, ok := value.(int)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
			f.maxDepth = v
		case "min_samples_split":
			v, ok := value.(int)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
			f.minSamplesSplit = v
		case "min_samples_leaf":
			v, ok := value.(int)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
			f.minSamplesLeaf = v
		case "max_features":
			switch value.(type) {
			case string, int, float64:
				f.maxFeatures = value
			default:
				return scratchmlErrors.NewValidationError(key, "must be a string, int or float64", value)
			}
		case "bootstrap":
			v, ok := value.(bool)
			if !ok {
				return scratchmlErrors.NewValidationError(key, "must be a bool", value)
			}
			f.bootstrap = v
		case "random_state":
			switch v := value.(type) {
			case int:
				f.randomState = int64(v)
			case int64:
				f.randomState = v
			default:
				return scratchmlErrors.NewValidationError(key, "must be an int", value)
			}
		default:
			return scratchmlErrors.NewValueError("RandomForestClassifier.SetParams", fmt.Sprintf("unknown parameter %q", key))
		}
	}

	return nil
}

// ===========================================================================
//
//	Vote and projection helpers
//
// ===========================================================================

// uniqueLabels returns the distinct values in ascending order
func uniqueLabels(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	labels := sorted[:1]
	for _, v := range sorted[1:] {
		if v != labels[len(labels)-1] {
			labels = append(labels, v)
		}
	}
	return labels
}

// voteDistribution returns the ascending distinct labels in votes and how
// often each was cast
func voteDistribution(votes []float64) ([]float64, []int) {
	labels := uniqueLabels(votes)
	counts := make([]int, len(labels))

	j := 0
	sorted := make([]float64, len(votes))
	copy(sorted, votes)
	sort.Float64s(sorted)
	for _, v := range sorted {
		if v != labels[j] {
			j++
		}
		counts[j]++
	}

	return labels, counts
}

// projectColumns copies the given columns of X, in their given order, into a
// new matrix
func projectColumns(X mat.Matrix, features []int) *mat.Dense {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, len(features), nil)
	for i := 0; i < rows; i++ {
		for j, c := range features {
			out.Set(i, j, X.At(i, c))
		}
	}
	return out
}
