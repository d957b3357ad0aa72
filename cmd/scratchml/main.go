package main

import (
	"fmt"
	"os"

	"github.com/scratchml/scratchml/pkg/log"
	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logLevel   string
	configPath string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "scratchml",
		Short: "scratchml trains and applies from-scratch machine learning models",
		Long: `A command-line front end for the ScratchML estimators: decision tree and
random forest classification and k-means clustering over numeric CSV data.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch config.logLevel {
			case "debug", "info", "warn", "error":
			default:
				fmt.Fprintf(os.Stderr, "invalid log level %q (use debug, info, warn or error)\n", config.logLevel)
				os.Exit(1)
			}
			log.SetLevel(log.Level(log.ToLogLevel(config.logLevel)))
		},
	}
	rootCmd.PersistentFlags().StringVar(&(config.logLevel), "log-level", "warn", "log verbosity: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&(config.configPath), "config", "", "path to a YAML file with default settings (explicit flags take precedence)")
	rootCmd.AddCommand(versionCmd(), trainCmd(config), predictCmd(config), clusterCmd(config))
	return rootCmd
}
