package main

import (
	"fmt"
	"os"

	"github.com/scratchml/scratchml/dataset"
	"github.com/scratchml/scratchml/modelselection"
	"github.com/scratchml/scratchml/pkg/log"
	"github.com/spf13/cobra"
)

type trainCmdConfig struct {
	*rootCmdConfig
	modelParams
	data     string
	target   string
	testSize float64
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on a CSV file and report its accuracy",
		Long: `Train a decision tree or random forest on a labeled CSV file.
The rows are shuffled into train and test subsets and the accuracy on both
is printed.`,
		Run: func(cmd *cobra.Command, args []string) {
			if config.configPath != "" {
				fc, err := loadFileConfig(config.configPath)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				config.applyFile(cmd, fc)
			}
			if err := config.Validate(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if err := runTrain(config); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&(config.data), "data", "", "path to the labeled CSV file (required)")
	cmd.PersistentFlags().StringVar(&(config.target), "target", "", "name of the label column (required)")
	cmd.PersistentFlags().Float64Var(&(config.testSize), "test-size", 0.2, "fraction of rows held out for testing")
	bindModelFlags(cmd, &config.modelParams)
	return cmd
}

func (tcc *trainCmdConfig) applyFile(cmd *cobra.Command, fc *fileConfig) {
	applyFileValue(cmd, "data", &tcc.data, fc.Data)
	applyFileValue(cmd, "target", &tcc.target, fc.Target)
	applyFileValue(cmd, "test-size", &tcc.testSize, fc.TestSize)
	tcc.modelParams.applyFile(cmd, fc)
}

func (tcc *trainCmdConfig) Validate() error {
	if tcc.data == "" {
		return fmt.Errorf("required data flag was not set")
	}
	if tcc.target == "" {
		return fmt.Errorf("required target flag was not set")
	}
	return nil
}

func runTrain(config *trainCmdConfig) error {
	logger := log.GetLoggerWithName("cmd.train")

	table, err := dataset.LoadCSV(config.data, dataset.WithTarget(config.target))
	if err != nil {
		return err
	}
	y, _ := table.Y()

	XTrain, XTest, yTrain, yTest, err := modelselection.TrainTestSplit(table.X(), y, config.testSize, config.seed)
	if err != nil {
		return err
	}
	nTrain, _ := XTrain.Dims()
	nTest, _ := XTest.Dims()

	clf, err := config.classifier()
	if err != nil {
		return err
	}

	logger.Info("fitting model",
		"model", config.modelKind,
		"n_train", nTrain,
		"n_features", len(table.FeatureNames()),
	)
	if err := clf.Fit(XTrain, yTrain); err != nil {
		return err
	}

	trainAcc, err := clf.Score(XTrain, yTrain)
	if err != nil {
		return err
	}
	testAcc, err := clf.Score(XTest, yTest)
	if err != nil {
		return err
	}

	fmt.Printf("model:          %s\n", config.modelKind)
	fmt.Printf("train samples:  %d\n", nTrain)
	fmt.Printf("test samples:   %d\n", nTest)
	fmt.Printf("train accuracy: %.4f\n", trainAcc)
	fmt.Printf("test accuracy:  %.4f\n", testAcc)
	return nil
}
