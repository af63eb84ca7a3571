package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose bool
}

// Logf forwards to the stderr logger gated by the verbose flag.
func (rcc *rootCmdConfig) Logf(format string, a ...interface{}) {
	logger(rcc.verbose).Logf(format, a...)
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "entree",
		Short: "entree trains and applies ensembles of decision trees",
		Long:  `A tool to train ensembles of binary decision trees from tabular data, in CSV files or databases, and use them to predict categorical or numeric columns`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "")
	rootCmd.AddCommand(versionCmd(), trainCmd(config), predictCmd(config), selftestCmd(config))
	return rootCmd
}
