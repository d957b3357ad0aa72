// Package modelselection provides utilities for splitting datasets into
// training and evaluation subsets.
package modelselection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/scratchml/scratchml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TrainTestSplit shuffles the rows of X (and y, when given) and splits them
// into a training set and a test set. testSize is the fraction of rows
// assigned to the test set, rounded to the nearest row count. The shuffle is
// deterministic for a given seed. y may be nil for unsupervised data, in
// which case yTrain and yTest are nil.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64) (XTrain, XTest, yTrain, yTest *mat.Dense, err error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, nil, nil, nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("test_size must be in (0, 1), got %v", testSize))
	}
	if y != nil {
		yr, yc := y.Dims()
		if yr != r {
			return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", r, yr, 0)
		}
		if yc != 1 {
			return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", 1, yc, 1)
		}
	}

	nTest := int(math.Round(testSize * float64(r)))
	if nTest < 1 || nTest >= r {
		return nil, nil, nil, nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("test_size %v yields %d test samples out of %d", testSize, nTest, r))
	}

	indices := make([]int, r)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	testIdx := append([]int(nil), indices[:nTest]...)
	trainIdx := append([]int(nil), indices[nTest:]...)

	XTrain = takeRows(X, trainIdx)
	XTest = takeRows(X, testIdx)
	if y != nil {
		yTrain = takeRows(y, trainIdx)
		yTest = takeRows(y, testIdx)
	}
	return XTrain, XTest, yTrain, yTest, nil
}

// Fold holds the row indices of one cross-validation fold.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits sample indices into k consecutive folds. With Shuffle the
// indices are permuted first, seeded by Seed. Fold sizes differ by at most
// one row, with the earlier folds taking the remainder.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a k-fold splitter.
func NewKFold(nSplits int, shuffle bool, seed int64) *KFold {
	return &KFold{
		NSplits: nSplits,
		Shuffle: shuffle,
		Seed:    seed,
	}
}

// Split generates the train/test index folds for n samples.
func (kf *KFold) Split(n int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("n_splits must be at least 2, got %d", kf.NSplits))
	}
	if n < kf.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot split %d samples into %d folds", n, kf.NSplits))
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		rng := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		testIndices := append([]int(nil), indices[current:current+testSize]...)
		inTest := make(map[int]bool, testSize)
		for _, idx := range testIndices {
			inTest[idx] = true
		}

		trainIndices := make([]int, 0, n-testSize)
		for _, idx := range indices {
			if !inTest[idx] {
				trainIndices = append(trainIndices, idx)
			}
		}

		folds[i] = Fold{
			TrainIndices: trainIndices,
			TestIndices:  testIndices,
		}
		current += testSize
	}

	return folds, nil
}

// takeRows copies the selected rows of m into a new dense matrix.
func takeRows(m mat.Matrix, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}
