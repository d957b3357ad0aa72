package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the command-line flags in YAML form. Pointer fields
// distinguish absent keys from explicit zero values; a key only applies when
// the matching flag was not set on the command line.
type fileConfig struct {
	Data            *string  `yaml:"data"`
	Target          *string  `yaml:"target"`
	Model           *string  `yaml:"model"`
	TestSize        *float64 `yaml:"test_size"`
	Seed            *int64   `yaml:"seed"`
	Criterion       *string  `yaml:"criterion"`
	MaxDepth        *int     `yaml:"max_depth"`
	MinSamplesSplit *int     `yaml:"min_samples_split"`
	MinSamplesLeaf  *int     `yaml:"min_samples_leaf"`
	NEstimators     *int     `yaml:"n_estimators"`
	MaxFeatures     *string  `yaml:"max_features"`
	Bootstrap       *bool    `yaml:"bootstrap"`
	Clusters        *int     `yaml:"clusters"`
	MaxIter         *int     `yaml:"max_iter"`
	Standardize     *bool    `yaml:"standardize"`
	Predict         *string  `yaml:"predict"`
	Output          *string  `yaml:"output"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &fileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFileValue copies a config file value into dst unless the flag was set
// explicitly on the command line.
func applyFileValue[T any](cmd *cobra.Command, flag string, dst *T, src *T) {
	if src != nil && !cmd.Flags().Changed(flag) {
		*dst = *src
	}
}
