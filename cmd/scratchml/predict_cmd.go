package main

import (
	"fmt"
	"os"

	"github.com/scratchml/scratchml/dataset"
	"github.com/scratchml/scratchml/pkg/log"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelParams
	data        string
	target      string
	predictData string
	output      string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Fit on labeled data and predict labels for an unlabeled CSV file",
		Long: `Train a classifier on a labeled CSV file, predict the label for each row
of a second, unlabeled file, and write the result with a prediction column
appended. Without --output the predictions are printed one per line.`,
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
			if err := runPredict(config); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&(config.data), "data", "", "path to the labeled training CSV file (required)")
	cmd.PersistentFlags().StringVar(&(config.target), "target", "", "name of the label column in the training file (required)")
	cmd.PersistentFlags().StringVar(&(config.predictData), "predict", "", "path to the unlabeled CSV file to predict (required)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to write the input rows with a prediction column appended (defaults to printing)")
	bindModelFlags(cmd, &config.modelParams)
	return cmd
}

func (pcc *predictCmdConfig) applyFile(cmd *cobra.Command, fc *fileConfig) {
	applyFileValue(cmd, "data", &pcc.data, fc.Data)
	applyFileValue(cmd, "target", &pcc.target, fc.Target)
	applyFileValue(cmd, "predict", &pcc.predictData, fc.Predict)
	applyFileValue(cmd, "output", &pcc.output, fc.Output)
	pcc.modelParams.applyFile(cmd, fc)
}

func (pcc *predictCmdConfig) Validate() error {
	if pcc.data == "" {
		return fmt.Errorf("required data flag was not set")
	}
	if pcc.target == "" {
		return fmt.Errorf("required target flag was not set")
	}
	if pcc.predictData == "" {
		return fmt.Errorf("required predict flag was not set")
	}
	return nil
}

func runPredict(config *predictCmdConfig) error {
	logger := log.GetLoggerWithName("cmd.predict")

	trainTable, err := dataset.LoadCSV(config.data, dataset.WithTarget(config.target))
	if err != nil {
		return err
	}
	y, _ := trainTable.Y()

	clf, err := config.classifier()
	if err != nil {
		return err
	}
	if err := clf.Fit(trainTable.X(), y); err != nil {
		return err
	}

	predictTable, err := dataset.LoadCSV(config.predictData)
	if err != nil {
		return err
	}
	if err := checkFeatureMatch(trainTable.FeatureNames(), predictTable.FeatureNames()); err != nil {
		return err
	}

	preds, err := clf.Predict(predictTable.X())
	if err != nil {
		return err
	}

	n := predictTable.NumRows()
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		labels[i] = int(preds.At(i, 0))
	}
	logger.Info("predicted labels", "n_samples", n, "model", config.modelKind)

	if config.output == "" {
		for _, label := range labels {
			fmt.Println(label)
		}
		return nil
	}

	if err := predictTable.AppendIntColumn("prediction", labels); err != nil {
		return err
	}
	if err := predictTable.SaveCSV(config.output); err != nil {
		return err
	}
	fmt.Printf("wrote %d predictions to %s\n", n, config.output)
	return nil
}

// checkFeatureMatch verifies that the prediction file exposes the same
// numeric feature columns, in the same order, as the training file.
func checkFeatureMatch(trainNames, predictNames []string) error {
	match := len(trainNames) == len(predictNames)
	if match {
		for i := range trainNames {
			if trainNames[i] != predictNames[i] {
				match = false
				break
			}
		}
	}
	if !match {
		return fmt.Errorf("prediction data columns %v do not match training columns %v",
			predictNames, trainNames)
	}
	return nil
}
