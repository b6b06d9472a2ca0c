package logging

// These constants are used to identify the various services that may do some logging
const (
	// COMPILATION_SERVICE is the constant used to identify the compilation package
	COMPILATION_SERVICE = "compilation"
	// DEPLOYMENT_SERVICE is the constant used to identify the deployment package
	DEPLOYMENT_SERVICE = "deployment"
	// VERIFICATION_SERVICE is the constant used to identify the verification package
	VERIFICATION_SERVICE = "verification"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)

// These constants are the structured field keys attached to sub-loggers.
const (
	// MODULE_KEY is the key used to identify which service emitted a log event
	MODULE_KEY = "module"
	// RUN_KEY is the key used to tie together all log events of a single pipeline invocation
	RUN_KEY = "run"
)
