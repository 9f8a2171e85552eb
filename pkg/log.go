package pkg

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers.
const (
	ComponentCodec      Component = "codec"
	ComponentRing       Component = "ring"
	ComponentQueue      Component = "queue"
	ComponentDispatch   Component = "dispatch"
	ComponentTransmit   Component = "transmit"
	ComponentDescriptor Component = "descriptor"
	ComponentHAL        Component = "hal"
	ComponentDevice     Component = "device"
	ComponentHost       Component = "host"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // Console format (default)
	LogFormatJSON                  // JSON format
)

var (
	// DefaultLogger is the default logger used by the stack.
	DefaultLogger *zap.Logger

	// sugar is the sugared view of DefaultLogger, rebuilt on every swap.
	sugar *zap.SugaredLogger

	// logLevel controls the minimum log level.
	logLevel = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	// logMutex protects logger configuration.
	logMutex sync.RWMutex
)

func init() {
	DefaultLogger = NewLogger(os.Stderr, logLevel)
	sugar = DefaultLogger.Sugar()
}

// SetLogLevel sets the minimum log level for all stack logging.
func SetLogLevel(level zapcore.Level) {
	logLevel.SetLevel(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() zapcore.Level {
	return logLevel.Level()
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *zap.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
	sugar = logger.Sugar()
}

// SetLogFormat configures the default logger to use the specified format.
// The logger writes to os.Stderr and uses the current log level.
func SetLogFormat(format LogFormat) {
	var logger *zap.Logger
	switch format {
	case LogFormatJSON:
		logger = NewJSONLogger(os.Stderr, logLevel)
	default:
		logger = NewLogger(os.Stderr, logLevel)
	}
	SetLogger(logger)
}

// NewLogger creates a console logger writing to w.
// A nil level uses the package log level.
func NewLogger(w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return newLogger(zapcore.NewConsoleEncoder(cfg), w, level)
}

// NewJSONLogger creates a JSON logger writing to w.
// A nil level uses the package log level.
func NewJSONLogger(w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	return newLogger(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, level)
}

func newLogger(enc zapcore.Encoder, w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	if level == nil {
		level = logLevel
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level))
}

func current() *zap.SugaredLogger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return sugar
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	current().Debugw(msg, append([]any{"component", string(component)}, args...)...)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	current().Infow(msg, append([]any{"component", string(component)}, args...)...)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	current().Warnw(msg, append([]any{"component", string(component)}, args...)...)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	current().Errorw(msg, append([]any{"component", string(component)}, args...)...)
}

// Enabled reports whether messages at level would be logged.
// Hot paths use it to skip building key/value arguments.
func Enabled(level zapcore.Level) bool {
	return logLevel.Enabled(level)
}
