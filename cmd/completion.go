package cmd

import (
	"os"

	"github.com/crytic/solpipe/errtypes"
	"github.com/spf13/cobra"
)

// supportedShells lists the shells completion scripts can be generated for
var supportedShells = []string{"bash", "zsh", "fish", "powershell"}

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:       "completion <bash|zsh|fish|powershell>",
	Short:     "Generate shell completion code for the specified shell",
	ValidArgs: supportedShells,
	Long: `To load completions:

Bash:

  $ source <(solpipe completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ solpipe completion bash > /etc/bash_completion.d/solpipe
  # macOS:
  $ solpipe completion bash > $(brew --prefix)/etc/bash_completion.d/solpipe

Zsh:

  $ solpipe completion zsh > "${fpath[1]}/_solpipe"

Fish:

  $ solpipe completion fish > ~/.config/fish/completions/solpipe.fish

PowerShell:

  PS> solpipe completion powershell | Out-String | Invoke-Expression`,
	Args:          cmdValidateCompletionArgs,
	RunE:          cmdRunCompletion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// cmdValidateCompletionArgs makes sure exactly one supported shell was provided
func cmdValidateCompletionArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errtypes.New(errtypes.UsageError, "%s", usageError(cmd, "please specify a single shell"))
	}
	if err := cobra.OnlyValidArgs(cmd, args); err != nil {
		return errtypes.New(errtypes.UsageError, "%s", usageError(cmd, err.Error()))
	}
	return nil
}

// cmdRunCompletion writes the completion script for the requested shell to stdout
func cmdRunCompletion(cmd *cobra.Command, args []string) error {
	var err error
	switch args[0] {
	case "bash":
		err = cmd.Root().GenBashCompletionV2(os.Stdout, true)
	case "zsh":
		err = cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		err = cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		err = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
	}
	if err != nil {
		return errtypes.Wrap(errtypes.UsageError, err, "unable to generate a %s completion", args[0])
	}
	return nil
}
