package modelselection

import (
	"testing"

	scratchmlErrors "github.com/scratchml/scratchml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// indexedData builds a matrix whose first column is the row index so tests
// can track where each row ends up after shuffling.
func indexedData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*10))
		y.Set(i, 0, float64(i))
	}
	return X, y
}

func TestTrainTestSplit_Shapes(t *testing.T) {
	X, y := indexedData(10)

	XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	if r, _ := XTrain.Dims(); r != 8 {
		t.Errorf("Expected 8 train rows, got %d", r)
	}
	if r, _ := XTest.Dims(); r != 2 {
		t.Errorf("Expected 2 test rows, got %d", r)
	}

	// Rows must stay paired with their labels through the shuffle.
	for i := 0; i < 8; i++ {
		if XTrain.At(i, 0) != yTrain.At(i, 0) {
			t.Errorf("Train row %d decoupled from its label: X=%v, y=%v",
				i, XTrain.At(i, 0), yTrain.At(i, 0))
		}
	}
	for i := 0; i < 2; i++ {
		if XTest.At(i, 0) != yTest.At(i, 0) {
			t.Errorf("Test row %d decoupled from its label: X=%v, y=%v",
				i, XTest.At(i, 0), yTest.At(i, 0))
		}
	}
}

func TestTrainTestSplit_Disjoint(t *testing.T) {
	X, y := indexedData(12)

	XTrain, XTest, _, _, err := TrainTestSplit(X, y, 0.25, 7)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	seen := make(map[float64]int)
	nTrain, _ := XTrain.Dims()
	for i := 0; i < nTrain; i++ {
		seen[XTrain.At(i, 0)]++
	}
	nTest, _ := XTest.Dims()
	for i := 0; i < nTest; i++ {
		seen[XTest.At(i, 0)]++
	}

	if len(seen) != 12 {
		t.Errorf("Expected all 12 rows covered, got %d distinct", len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("Row %v appears %d times across the split", id, count)
		}
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := indexedData(20)

	XTrain1, XTest1, yTrain1, _, err := TrainTestSplit(X, y, 0.3, 42)
	if err != nil {
		t.Fatalf("First split failed: %v", err)
	}
	XTrain2, XTest2, yTrain2, _, err := TrainTestSplit(X, y, 0.3, 42)
	if err != nil {
		t.Fatalf("Second split failed: %v", err)
	}

	if !mat.Equal(XTrain1, XTrain2) || !mat.Equal(XTest1, XTest2) || !mat.Equal(yTrain1, yTrain2) {
		t.Error("Same seed should reproduce the same split")
	}

	_, XTestOther, _, _, err := TrainTestSplit(X, y, 0.3, 43)
	if err != nil {
		t.Fatalf("Third split failed: %v", err)
	}
	if mat.Equal(XTest1, XTestOther) {
		t.Error("Different seeds should shuffle differently")
	}
}

func TestTrainTestSplit_NilY(t *testing.T) {
	X, _ := indexedData(10)

	XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, nil, 0.2, 0)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	if XTrain == nil || XTest == nil {
		t.Fatal("Expected non-nil X splits")
	}
	if yTrain != nil || yTest != nil {
		t.Error("Expected nil y splits for nil y")
	}
}

func TestTrainTestSplit_Rounding(t *testing.T) {
	X, _ := indexedData(10)

	// 0.25 * 10 = 2.5 rounds up to 3 test rows.
	_, XTest, _, _, err := TrainTestSplit(X, nil, 0.25, 1)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	if r, _ := XTest.Dims(); r != 3 {
		t.Errorf("Expected 3 test rows for test_size 0.25, got %d", r)
	}

	// 0.21 * 10 = 2.1 rounds down to 2.
	_, XTest, _, _, err = TrainTestSplit(X, nil, 0.21, 1)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	if r, _ := XTest.Dims(); r != 2 {
		t.Errorf("Expected 2 test rows for test_size 0.21, got %d", r)
	}
}

func TestTrainTestSplit_InvalidInput(t *testing.T) {
	X, y := indexedData(10)

	if _, _, _, _, err := TrainTestSplit(&mat.Dense{}, nil, 0.2, 0); err == nil {
		t.Error("Expected error for empty matrix")
	}

	for _, size := range []float64{0.0, 1.0, -0.5, 1.5} {
		if _, _, _, _, err := TrainTestSplit(X, y, size, 0); err == nil {
			t.Errorf("Expected error for test_size %v", size)
		}
	}

	// 0.01 * 10 rounds to zero test rows.
	if _, _, _, _, err := TrainTestSplit(X, y, 0.01, 0); err == nil {
		t.Error("Expected error for a split with no test rows")
	}
	// 0.99 * 10 rounds to ten test rows, leaving no training data.
	if _, _, _, _, err := TrainTestSplit(X, y, 0.99, 0); err == nil {
		t.Error("Expected error for a split with no train rows")
	}

	yShort := mat.NewDense(5, 1, nil)
	_, _, _, _, err := TrainTestSplit(X, yShort, 0.2, 0)
	if err == nil {
		t.Error("Expected error for row count mismatch")
	} else {
		var dimErr *scratchmlErrors.DimensionError
		if !scratchmlErrors.As(err, &dimErr) {
			t.Errorf("Expected DimensionError, got %T", err)
		}
	}

	yWide := mat.NewDense(10, 2, nil)
	if _, _, _, _, err := TrainTestSplit(X, yWide, 0.2, 0); err == nil {
		t.Error("Expected error for multi-column y")
	}
}

func TestKFold_Split(t *testing.T) {
	kf := NewKFold(5, false, 0)
	folds, err := kf.Split(10)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(folds) != 5 {
		t.Fatalf("Expected 5 folds, got %d", len(folds))
	}

	// Without shuffling the test folds are consecutive index blocks.
	for i, fold := range folds {
		if len(fold.TestIndices) != 2 {
			t.Errorf("Fold %d: expected 2 test indices, got %d", i, len(fold.TestIndices))
		}
		if fold.TestIndices[0] != 2*i || fold.TestIndices[1] != 2*i+1 {
			t.Errorf("Fold %d: expected test block [%d %d], got %v", i, 2*i, 2*i+1, fold.TestIndices)
		}
		if len(fold.TrainIndices) != 8 {
			t.Errorf("Fold %d: expected 8 train indices, got %d", i, len(fold.TrainIndices))
		}
		for _, trainIdx := range fold.TrainIndices {
			for _, testIdx := range fold.TestIndices {
				if trainIdx == testIdx {
					t.Errorf("Fold %d: index %d in both train and test", i, trainIdx)
				}
			}
		}
	}

	// Every sample serves as a test sample exactly once.
	testCount := make(map[int]int)
	for _, fold := range folds {
		for _, idx := range fold.TestIndices {
			testCount[idx]++
		}
	}
	for i := 0; i < 10; i++ {
		if testCount[i] != 1 {
			t.Errorf("Index %d appears %d times as test", i, testCount[i])
		}
	}
}

func TestKFold_Remainder(t *testing.T) {
	kf := NewKFold(3, false, 0)
	folds, err := kf.Split(10)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	// 10 = 4 + 3 + 3, with the extra row in the first fold.
	wantSizes := []int{4, 3, 3}
	for i, fold := range folds {
		if len(fold.TestIndices) != wantSizes[i] {
			t.Errorf("Fold %d: expected %d test indices, got %d",
				i, wantSizes[i], len(fold.TestIndices))
		}
		if len(fold.TrainIndices)+len(fold.TestIndices) != 10 {
			t.Errorf("Fold %d: train+test = %d, expected 10",
				i, len(fold.TrainIndices)+len(fold.TestIndices))
		}
	}
}

func TestKFold_ShuffleDeterministic(t *testing.T) {
	kf1 := NewKFold(4, true, 42)
	folds1, err := kf1.Split(20)
	if err != nil {
		t.Fatalf("First split failed: %v", err)
	}

	kf2 := NewKFold(4, true, 42)
	folds2, err := kf2.Split(20)
	if err != nil {
		t.Fatalf("Second split failed: %v", err)
	}

	for i := range folds1 {
		if len(folds1[i].TestIndices) != len(folds2[i].TestIndices) {
			t.Fatalf("Fold %d: test sizes differ", i)
		}
		for j := range folds1[i].TestIndices {
			if folds1[i].TestIndices[j] != folds2[i].TestIndices[j] {
				t.Errorf("Fold %d: test index %d differs between runs", i, j)
			}
		}
	}

	// Shuffled folds still cover every index exactly once.
	testCount := make(map[int]int)
	for _, fold := range folds1 {
		for _, idx := range fold.TestIndices {
			testCount[idx]++
		}
	}
	if len(testCount) != 20 {
		t.Errorf("Expected 20 distinct test indices, got %d", len(testCount))
	}
}

func TestKFold_InvalidInput(t *testing.T) {
	kf := NewKFold(1, false, 0)
	if _, err := kf.Split(10); err == nil {
		t.Error("Expected error for n_splits < 2")
	} else {
		var valErr *scratchmlErrors.ValueError
		if !scratchmlErrors.As(err, &valErr) {
			t.Errorf("Expected ValueError, got %T", err)
		}
	}

	kf = NewKFold(5, false, 0)
	if _, err := kf.Split(3); err == nil {
		t.Error("Expected error for more folds than samples")
	}
}
