package cmd

import (
	"fmt"
	"os"

	"github.com/crytic/solpipe/logging"
	"github.com/crytic/solpipe/logging/colors"
	"github.com/crytic/solpipe/version"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cmdLogger is the logger used by the command layer.
var cmdLogger = logging.GlobalLogger.NewSubLogger(logging.MODULE_KEY, logging.CLI_SERVICE)

// logFile is the structured log file opened through --log-file, if any.
var logFile *os.File

var rootCmd = &cobra.Command{
	Use:               "solpipe",
	Short:             "Compile, deploy and verify Solidity contracts",
	Long:              "solpipe compiles a Solidity source file into ABI and bytecode artifacts, deploys an artifact to a test network from a mnemonic-derived account and submits its source for block explorer verification",
	Version:           version.GetInfo().Short(),
	PersistentPreRunE: cmdSetupLogging,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().String(logLevelFlag, zerolog.InfoLevel.String(), "console log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String(logFileFlag, "", "path of a file to additionally write structured JSON logs to")
	rootCmd.PersistentFlags().Bool(noColorFlag, false, "disable colored console output")
}

// Execute runs the root command. The log file opened through --log-file is closed on every exit path, including
// failing runs for which cobra skips post-run hooks.
func Execute() error {
	defer teardownLogging()
	return rootCmd.Execute()
}

// cmdSetupLogging applies the root logging flags to the global logger before any command runs.
func cmdSetupLogging(cmd *cobra.Command, args []string) error {
	levelStr, err := cmd.Flags().GetString(logLevelFlag)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return errors.Wrapf(err, "invalid --%s", logLevelFlag)
	}
	logging.GlobalLogger.SetLevel(level)
	cmdLogger.SetLevel(level)

	noColor, err := cmd.Flags().GetBool(noColorFlag)
	if err != nil {
		return err
	}
	if noColor {
		colors.DisableColor()
	}

	logFilePath, err := cmd.Flags().GetString(logFileFlag)
	if err != nil {
		return err
	}
	if logFilePath != "" {
		logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrapf(err, "could not open log file %s", logFilePath)
		}
		logging.GlobalLogger.AddWriter(logFile, logging.STRUCTURED)
		cmdLogger.AddWriter(logFile, logging.STRUCTURED)
		cmdLogger.Debug("Writing structured logs to ", logFilePath)
	}
	return nil
}

// teardownLogging closes the log file opened by cmdSetupLogging, if any.
func teardownLogging() {
	if logFile == nil {
		return
	}
	logging.GlobalLogger.RemoveWriter(logFile)
	cmdLogger.RemoveWriter(logFile)
	_ = logFile.Close()
	logFile = nil
}

// newRunLogger returns a sub-logger of the global logger which tags every event with a fresh run id.
func newRunLogger() *logging.Logger {
	return logging.GlobalLogger.NewSubLogger(logging.RUN_KEY, uuid.NewString())
}

// usageError returns the message of a usage error followed by the command's usage line.
func usageError(cmd *cobra.Command, msg string) string {
	return fmt.Sprintf("%s\nUsage: %s", msg, cmd.UseLine())
}

// unusedFlags returns the flags of the command that have not been set on the current command line, prefixed with "--"
// so they are never mistaken for positional arguments during completion.
func unusedFlags(cmd *cobra.Command) []string {
	var flags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			flags = append(flags, "--"+flag.Name)
		}
	})
	return flags
}
