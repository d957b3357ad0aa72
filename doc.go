// Package scratchml provides from-scratch machine learning algorithms for Go,
// built directly on entropy, information gain and Lloyd iterations rather than
// on bindings to an external runtime.
//
// ScratchML offers a scikit-learn-like API so that the training loop, the
// hyperparameters and the failure modes stay recognizable to anyone coming
// from Python's ecosystem, while the implementations remain small enough to
// read end to end.
//
// # Features
//
// - Decision tree classification with entropy or Gini splits
// - Bootstrap-aggregated random forests with majority voting
// - Full-batch k-means clustering with convergence detection
// - Reproducible results: every stochastic step accepts a random seed
// - Typed errors and a warning hook instead of silent degradation
//
// # Installation
//
// Install ScratchML using go get:
//
//	go get github.com/scratchml/scratchml
//
// # Quick Start
//
// Here's a simple example of decision tree classification:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/scratchml/scratchml/sklearn/tree"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    // Create training data
//	    X := mat.NewDense(4, 2, []float64{
//	        1, 1,
//	        2, 1,
//	        8, 8,
//	        9, 8,
//	    })
//	    y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
//
//	    // Create and train model
//	    clf := tree.NewDecisionTreeClassifier()
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Make predictions
//	    XTest := mat.NewDense(2, 2, []float64{1.5, 1, 8.5, 8})
//	    predictions, err := clf.Predict(XTest)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    fmt.Println("Predictions:", predictions)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - sklearn/tree: Decision tree classification
//   - sklearn/ensemble: Random forest classification
//   - sklearn/cluster: K-means clustering
//   - preprocessing: Standard and min-max feature scaling
//   - metrics: Classification metrics (accuracy, precision, recall, F1, AUC)
//   - modelselection: Train/test splitting and k-fold cross-validation
//   - dataset: CSV loading into gonum matrices and result serialization
//   - core/model: Core interfaces and base types
//   - core/parallel: Parallel processing utilities
//   - pkg/errors: Typed errors and the warning hook
//   - pkg/log: Structured logging for the collaborator layers
//
// # Reproducibility
//
// Every estimator that draws random numbers takes a seed:
//
//	clf := ensemble.NewRandomForestClassifier(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithForestRandomState(42),
//	)
//
// Two fits with the same seed on the same data produce identical models,
// including when the forest trains its trees in parallel.
//
// # Command Line
//
// The cmd/scratchml binary trains, predicts and clusters CSV files without
// writing any Go:
//
//	scratchml train --data iris.csv --target species --model forest
//	scratchml cluster --data points.csv -k 3 --standardize
package scratchml
