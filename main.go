package main

import (
	"fmt"
	"os"

	"github.com/crytic/solpipe/cmd"
	"github.com/crytic/solpipe/cmd/exitcodes"
)

func main() {
	// Run our root CLI command, which contains all underlying command logic and will handle parsing/invocation.
	err := cmd.Execute()

	// Obtain the actual error and exit code from the error, if any.
	var exitCode int
	if _, ok := err.(*exitcodes.ErrorWithExitCode); ok {
		err, exitCode = exitcodes.GetInnerErrorAndExitCode(err)
	} else {
		exitCode = exitcodes.ExitCodeForError(err)
	}

	// Deployment failures were already reported by the deployment logger.
	if err != nil && exitCode != exitcodes.ExitCodeDeploymentFailed {
		fmt.Fprintln(os.Stderr, err)
	}

	// If we have a non-success exit code, exit with it.
	if exitCode != exitcodes.ExitCodeSuccess {
		os.Exit(exitCode)
	}
}
