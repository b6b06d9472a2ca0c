package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/crytic/solpipe/compilation"
	"github.com/crytic/solpipe/compilation/platforms"
	"github.com/crytic/solpipe/config"
	"github.com/crytic/solpipe/errtypes"
	"github.com/crytic/solpipe/logging"
	"github.com/spf13/cobra"
)

// compileCmd represents the command provider for compile
var compileCmd = &cobra.Command{
	Use:   "compile <solidity-file>",
	Short: "Compiles a Solidity file into ABI and bytecode artifacts",
	Long: `Compiles a single Solidity file, resolved against the contracts directory, and writes one
<ContractName>.json artifact holding {abi, bytecode} per contract declared in it. The output
directory is deleted and recreated on every run.`,
	Args:              cmdValidateCompileArgs,
	ValidArgsFunction: cmdValidCompileArgs,
	RunE:              cmdRunCompile,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the compile command
	addCompileFlags()

	// Add the compile command and its associated flags to the root command
	rootCmd.AddCommand(compileCmd)
}

// cmdValidCompileArgs completes Solidity file names for the compile command
func cmdValidCompileArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Once the positional argument is given, or a flag is being typed, only unused flags are suggested
	if len(args) > 0 || strings.HasPrefix(toComplete, "-") {
		return unusedFlags(cmd), cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"sol"}, cobra.ShellCompDirectiveFilterFileExt
}

// cmdValidateCompileArgs makes sure that exactly one Solidity file name was provided
func cmdValidateCompileArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return errtypes.New(errtypes.UsageError, "%s", usageError(cmd, "please provide the Solidity file name to compile"))
	}
	if len(args) > 1 {
		return errtypes.New(errtypes.UsageError, "%s", usageError(cmd, "compile accepts a single Solidity file name"))
	}
	return nil
}

// cmdRunCompile executes the compile CLI command
func cmdRunCompile(cmd *cobra.Command, args []string) error {
	compileConfig := config.GetDefaultCompileConfig()
	if err := updateCompileConfigWithFlags(cmd, compileConfig); err != nil {
		return errtypes.Wrap(errtypes.UsageError, err, "invalid flags")
	}

	runLogger := newRunLogger()
	pipeline, err := compilation.NewCompilePipeline(
		compileConfig,
		platforms.NewSolcCompiler(compileConfig.SolcPath),
		runLogger.NewSubLogger(logging.MODULE_KEY, logging.COMPILATION_SERVICE),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = pipeline.Compile(ctx, args[0])
	return err
}
