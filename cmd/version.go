package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/crytic/solpipe/compilation/platforms"
	"github.com/crytic/solpipe/version"
	"github.com/spf13/cobra"
)

// solcProbeTimeout bounds the `solc --version` call made by the version command.
const solcProbeTimeout = 10 * time.Second

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long: `Print detailed version and build information for solpipe.

This includes the semantic version, git commit hash, build timestamp,
Go version used to compile the binary, and the solc release that the
compile command would record in artifacts.`,
	RunE:          cmdRunVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	versionCmd.Flags().String("solc", platforms.DefaultSolcPath, "path to the solc binary to report")
	rootCmd.AddCommand(versionCmd)
}

// cmdRunVersion prints the build information along with the release of the configured solc binary. A missing solc is
// reported in the output, never as an error.
func cmdRunVersion(cmd *cobra.Command, args []string) error {
	solcPath, err := cmd.Flags().GetString("solc")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), solcProbeTimeout)
	defer cancel()
	solcVersion, _, err := platforms.GetSolcVersion(ctx, solcPath)

	info := version.GetInfo().WithSolc(solcPath, solcVersion, err)
	fmt.Fprint(cmd.OutOrStdout(), info.String())
	return nil
}
