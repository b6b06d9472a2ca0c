package colors

// enabled describes whether ANSI escape codes are emitted by Colorize.
var enabled = true

// init will ensure that ANSI coloring is enabled on Windows and Unix systems. Note that ANSI coloring is enabled by
// default on Unix system and Windows needs specific kernel calls for enablement
func init() {
	EnableColor()
}

// DisableColor turns off ANSI coloring for all subsequent Colorize calls, e.g. when output is not a terminal.
func DisableColor() {
	enabled = false
}
