package exitcodes

import "github.com/crytic/solpipe/errtypes"

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred. Usage, configuration, read, artifact and
	// compilation errors all exit with this code.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeDeploymentFailed indicates that a deployment did not reach a confirmed state. It is only used when the
	// deploy command runs in strict mode, the failure has already been logged by then.
	ExitCodeDeploymentFailed = 6
)

// ExitCodeForError returns the exit code the application should exit with for the given error, based on its kind.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if errtypes.IsKind(err, errtypes.DeploymentFailed) {
		return ExitCodeDeploymentFailed
	}
	return ExitCodeGeneralError
}
