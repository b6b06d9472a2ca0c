package cmd

// Flag names shared by more than one command.
const (
	// contractsDirFlag names the flag which sets the directory Solidity sources are read from.
	contractsDirFlag = "contracts-dir"

	// logLevelFlag names the root flag which sets the console log level.
	logLevelFlag = "log-level"

	// logFileFlag names the root flag which adds a structured log file.
	logFileFlag = "log-file"

	// noColorFlag names the root flag which disables colored console output.
	noColorFlag = "no-color"
)
