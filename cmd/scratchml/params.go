package main

import (
	"fmt"
	"strconv"

	"github.com/scratchml/scratchml/core/model"
	"github.com/scratchml/scratchml/sklearn/ensemble"
	"github.com/scratchml/scratchml/sklearn/tree"
	"github.com/spf13/cobra"
)

// modelParams holds the classifier hyperparameters shared by the train and
// predict commands.
type modelParams struct {
	modelKind       string
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	nEstimators     int
	maxFeatures     string
	bootstrap       bool
	seed            int64
}

func bindModelFlags(cmd *cobra.Command, p *modelParams) {
	cmd.PersistentFlags().StringVar(&(p.modelKind), "model", "tree", "model to train: tree or forest")
	cmd.PersistentFlags().StringVar(&(p.criterion), "criterion", "entropy", "split quality measure: entropy or gini")
	cmd.PersistentFlags().IntVar(&(p.maxDepth), "max-depth", 10, "maximum tree depth")
	cmd.PersistentFlags().IntVar(&(p.minSamplesSplit), "min-samples-split", 2, "minimum samples required to split a node")
	cmd.PersistentFlags().IntVar(&(p.minSamplesLeaf), "min-samples-leaf", 1, "minimum samples required in each child of a split")
	cmd.PersistentFlags().IntVar(&(p.nEstimators), "n-estimators", 100, "number of trees in the forest")
	cmd.PersistentFlags().StringVar(&(p.maxFeatures), "max-features", "sqrt", "features per forest tree: sqrt, log2, all, a count or a fraction")
	cmd.PersistentFlags().BoolVar(&(p.bootstrap), "bootstrap", true, "draw bootstrap samples for each forest tree")
	cmd.PersistentFlags().Int64Var(&(p.seed), "seed", 42, "random seed for the data shuffle and model fitting")
}

func (p *modelParams) applyFile(cmd *cobra.Command, fc *fileConfig) {
	applyFileValue(cmd, "model", &p.modelKind, fc.Model)
	applyFileValue(cmd, "criterion", &p.criterion, fc.Criterion)
	applyFileValue(cmd, "max-depth", &p.maxDepth, fc.MaxDepth)
	applyFileValue(cmd, "min-samples-split", &p.minSamplesSplit, fc.MinSamplesSplit)
	applyFileValue(cmd, "min-samples-leaf", &p.minSamplesLeaf, fc.MinSamplesLeaf)
	applyFileValue(cmd, "n-estimators", &p.nEstimators, fc.NEstimators)
	applyFileValue(cmd, "max-features", &p.maxFeatures, fc.MaxFeatures)
	applyFileValue(cmd, "bootstrap", &p.bootstrap, fc.Bootstrap)
	applyFileValue(cmd, "seed", &p.seed, fc.Seed)
}

// classifier constructs the estimator selected by the model flag.
func (p *modelParams) classifier() (model.Classifier, error) {
	switch p.modelKind {
	case "tree":
		return tree.NewDecisionTreeClassifier(
			tree.WithCriterion(p.criterion),
			tree.WithMaxDepth(p.maxDepth),
			tree.WithMinSamplesSplit(p.minSamplesSplit),
			tree.WithMinSamplesLeaf(p.minSamplesLeaf),
			tree.WithRandomState(p.seed),
		), nil
	case "forest":
		return ensemble.NewRandomForestClassifier(
			ensemble.WithNEstimators(p.nEstimators),
			ensemble.WithForestCriterion(p.criterion),
			ensemble.WithForestMaxDepth(p.maxDepth),
			ensemble.WithForestMinSamplesSplit(p.minSamplesSplit),
			ensemble.WithForestMinSamplesLeaf(p.minSamplesLeaf),
			ensemble.WithMaxFeatures(parseMaxFeatures(p.maxFeatures)),
			ensemble.WithBootstrap(p.bootstrap),
			ensemble.WithForestRandomState(p.seed),
		), nil
	default:
		return nil, fmt.Errorf("unknown model %q (use tree or forest)", p.modelKind)
	}
}

// parseMaxFeatures turns the flag text into the value the forest expects:
// an integer count, a float fraction, or a mode name.
func parseMaxFeatures(s string) interface{} {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
