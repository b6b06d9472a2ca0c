package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crytic/solpipe/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that logs to console by default. Each package should create its own sub-logger
// from it, so that log output can be filtered by the service that emitted it.
var GlobalLogger = NewLogger(zerolog.InfoLevel, true)

// Logger describes a custom logging object that can log events to any arbitrary channel and can handle specialized
// output to console as well
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// context describes the key-value pairs attached to every event emitted by this logger and its sub-loggers.
	context []string

	// multiLogger describes a logger that will be used to output logs to any arbitrary channel(s) in either structured
	// or unstructured format.
	multiLogger zerolog.Logger

	// consoleLogger describes a logger that will be used to output unstructured output to console. Errors are routed
	// to errConsoleLogger instead so that they end up on stderr.
	consoleLogger    zerolog.Logger
	errConsoleLogger zerolog.Logger

	// consoleEnabled describes whether console output is produced at all.
	consoleEnabled bool

	// stdout and stderr describe where console output is written.
	stdout io.Writer
	stderr io.Writer

	// writers describes a list of io.Writer objects where log output will go. This writers list can be appended to /
	// removed from.
	writers []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. The Logger can output to console, if enabled,
// and output logs to any number of arbitrary io.Writer channels
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	l := &Logger{
		level:          level,
		consoleEnabled: consoleEnabled,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		writers:        writers,
	}
	l.rebuild()
	return l
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:          l.level,
		context:        append(append([]string{}, l.context...), key, value),
		consoleEnabled: l.consoleEnabled,
		stdout:         l.stdout,
		stderr:         l.stderr,
		writers:        append([]io.Writer{}, l.writers...),
	}
	sub.rebuild()
	return sub
}

// rebuild recreates the underlying zerolog loggers from the current writers, console outputs, level and context.
func (l *Logger) rebuild() {
	// The base loggers are effectively disabled loggers. We create instances of them so that we do not get nil
	// pointer dereferences down the line
	l.multiLogger = zerolog.New(io.Discard).Level(zerolog.Disabled)
	l.consoleLogger = zerolog.New(io.Discard).Level(zerolog.Disabled)
	l.errConsoleLogger = zerolog.New(io.Discard).Level(zerolog.Disabled)

	if len(l.writers) > 0 {
		l.multiLogger = withContext(zerolog.New(zerolog.MultiLevelWriter(l.writers...)).Level(l.level).With().Timestamp(), l.context)
	}

	if l.consoleEnabled {
		l.consoleLogger = withContext(zerolog.New(setupDefaultFormatting(zerolog.ConsoleWriter{Out: l.stdout}, l.level)).Level(l.level).With(), l.context)
		l.errConsoleLogger = withContext(zerolog.New(setupDefaultFormatting(zerolog.ConsoleWriter{Out: l.stderr}, l.level)).Level(l.level).With(), l.context)
	}
}

// withContext attaches the provided key-value pairs to a logger context and returns the resulting logger.
func withContext(ctx zerolog.Context, kv []string) zerolog.Logger {
	for i := 0; i+1 < len(kv); i += 2 {
		ctx = ctx.Str(kv[i], kv[i+1])
	}
	return ctx.Logger()
}

// SetConsoleOutputs will redirect console output. Non-error events go to stdout while error events go to stderr.
func (l *Logger) SetConsoleOutputs(stdout io.Writer, stderr io.Writer) {
	l.stdout = stdout
	l.stderr = stderr
	l.rebuild()
}

// AddWriter will add a writer to the list of channels where log output will be sent.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat) {
	// Check to see if the writer is already in the array of writers
	for _, w := range l.writers {
		if writer == w {
			return
		}
	}

	// If we want unstructured output, wrap the base writer object into a console writer so that we get unstructured output with no ANSI coloring
	if format == UNSTRUCTURED {
		writer = zerolog.ConsoleWriter{Out: writer, NoColor: true}
	}

	// Add it to the list of writers and update the multi logger
	l.writers = append(l.writers, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist, this
// function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer) {
	for i, w := range l.writers {
		if writer == w {
			l.writers = append(l.writers[:i], l.writers[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(l.consoleLogger.Trace(), l.multiLogger.Trace(), false, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(l.consoleLogger.Debug(), l.multiLogger.Debug(), false, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(l.consoleLogger.Info(), l.multiLogger.Info(), false, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(l.consoleLogger.Warn(), l.multiLogger.Warn(), false, args...)
}

// Error is a wrapper function that will log an error event to stderr.
func (l *Logger) Error(args ...any) {
	l.log(l.errConsoleLogger.Error(), l.multiLogger.Error(), false, args...)
}

// Panic is a wrapper function that will log a panic event
func (l *Logger) Panic(args ...any) {
	l.log(l.errConsoleLogger.Panic(), l.multiLogger.Panic(), true, args...)
}

// log builds the messages from args, chains the error and structured info, and emits both events.
func (l *Logger) log(consoleLog *zerolog.Event, multiLog *zerolog.Event, forceStack bool, args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Chain the error
	chainError(consoleLog, multiLog, err, forceStack || l.level <= zerolog.DebugLevel)

	// Chain the structured log info and messages and send off the logs
	chainStructuredLogInfoAndMsgs(consoleLog, multiLog, info, consoleMsg, multiMsg)
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
// The error and the StructuredLogInfo can be used to add additional context to log messages
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", "", nil, nil
	}

	// Initialize the base color context, the string buffers and the structured log info object
	colorCtx := colors.Reset
	consoleOutput := make([]string, 0)
	fileOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// If the argument is a color function, switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Note that only one structured log info can be provided for each log message
			info = t
		case error:
			// Note that only one error can be provided for each log message
			err = t
		default:
			// In the base case, append the object to the two string buffers. The console string buffer will have the
			// current color context applied to it.
			consoleOutput = append(consoleOutput, colorCtx(t))
			fileOutput = append(fileOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(fileOutput, ""), err, info
}

// chainError is a helper function that takes in a *zerolog.Event for console and multi-log output and chains an error
// to both events. If debug is true, then a stack trace is added to both events as well.
func chainError(consoleLog *zerolog.Event, multiLog *zerolog.Event, err error, debug bool) {
	if err == nil {
		return
	}
	consoleLog.Err(err)
	multiLog.Err(err)

	// If we are in debug mode or below, then we will add the stack traces as well for debugging
	if debug {
		consoleLog.Stack()
		multiLog.Stack()
	}
}

// chainStructuredLogInfoAndMsgs is a helper function that takes in a *zerolog.Event for console and multi-log output,
// chains any StructuredLogInfo provided to it, adds the associated messages, and sends out the logs to their respective
// channels.
func chainStructuredLogInfoAndMsgs(consoleLog *zerolog.Event, multiLog *zerolog.Event, info StructuredLogInfo, consoleMsg string, multiMsg string) {
	// If we are provided a structured log info object, add that as a key-value pair to the events
	if info != nil {
		consoleLog.Any("info", info)
		multiLog.Any("info", info)
	}

	// Append the messages to each event. This will also result in the log events being sent out to their respective
	// streams. Note that we are deferring the msg to multi logger in case we are logging a panic and want to make sure that
	// all channels receive the panic log
	defer multiLog.Msg(multiMsg)
	consoleLog.Msg(consoleMsg)
}

// setupDefaultFormatting will update the console logger's formatting to the solpipe standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// We will define a custom format for each level
	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		level, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		// Switch on the level and return a custom, colored string
		switch level {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return colors.RedBold(zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return colors.RedBold(zerolog.LevelPanicValue)
		default:
			return levelStr
		}
	}

	// If we are above debug level, we want to get rid of the context components when logging to console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{MODULE_KEY, RUN_KEY}
	}

	return writer
}
