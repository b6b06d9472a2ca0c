package cmd

import (
	"fmt"

	"github.com/crytic/solpipe/config"
	"github.com/spf13/cobra"
)

// addCompileFlags adds the various flags for the compile command
func addCompileFlags() {
	defaultConfig := config.GetDefaultCompileConfig()

	// Prevent alphabetical sorting of usage message
	compileCmd.Flags().SortFlags = false

	compileCmd.Flags().String(contractsDirFlag, defaultConfig.ContractsDirectory, "directory the Solidity file name is resolved against")
	compileCmd.Flags().String("out-dir", defaultConfig.OutputDirectory, "directory artifacts are written to (deleted and recreated on every run)")
	compileCmd.Flags().String("solc", defaultConfig.SolcPath, "path to the solc binary")
	compileCmd.Flags().Bool("optimize", defaultConfig.Optimizer.Enabled, "enable the solc optimizer")
	compileCmd.Flags().Int("optimize-runs", defaultConfig.Optimizer.Runs,
		fmt.Sprintf("number of optimizer runs, only used with --optimize (default is %d)", defaultConfig.Optimizer.Runs))
}

// updateCompileConfigWithFlags will update the given compile configuration with any CLI arguments that were provided
// to the compile command
func updateCompileConfigWithFlags(cmd *cobra.Command, compileConfig *config.CompileConfig) error {
	var err error

	if cmd.Flags().Changed(contractsDirFlag) {
		compileConfig.ContractsDirectory, err = cmd.Flags().GetString(contractsDirFlag)
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("out-dir") {
		compileConfig.OutputDirectory, err = cmd.Flags().GetString("out-dir")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("solc") {
		compileConfig.SolcPath, err = cmd.Flags().GetString("solc")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("optimize") {
		compileConfig.Optimizer.Enabled, err = cmd.Flags().GetBool("optimize")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("optimize-runs") {
		compileConfig.Optimizer.Runs, err = cmd.Flags().GetInt("optimize-runs")
		if err != nil {
			return err
		}
	}
	return nil
}
