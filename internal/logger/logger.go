package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-audit/internal/config"
)

// NewLogger creates a new hclog.Logger instance based on the YAML configuration and the provided name.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	if cfg == nil {
		cfg = config.Default()
	}
	return NewLoggerWithOutput(cfg, name, resolveOutput(cfg.Logger.Output))
}

// NewLoggerWithOutput is NewLogger with an explicit sink. The terminal UI passes
// io.Discard or a log file so records never corrupt the screen.
func NewLoggerWithOutput(cfg *config.Config, name string, output io.Writer) hclog.Logger {
	if cfg == nil {
		cfg = config.Default()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		DisableTime:     config.BoolValue(cfg.Logger.DisableTime, true),
		JSONFormat:      config.BoolValue(cfg.Logger.JSONFormat, false),
		IncludeLocation: config.BoolValue(cfg.Logger.IncludeLocation, false),
		Output:          output,
		Level:           determineLogLevel(cfg),
	})
}

// NewScreenLogger is NewLogger for full-screen sessions. Terminal outputs are
// discarded and only a configured log file receives records.
func NewScreenLogger(cfg *config.Config, name string) hclog.Logger {
	if cfg == nil {
		cfg = config.Default()
	}
	if isTerminalOutput(cfg.Logger.Output) {
		return NewLoggerWithOutput(cfg, name, io.Discard)
	}
	return NewLogger(cfg, name)
}

func isTerminalOutput(output string) bool {
	switch strings.ToLower(output) {
	case "", "stderr", "stdout":
		return true
	}
	return false
}

// resolveOutput maps the logger.output setting to a writer, falling back to stderr
// when a log file cannot be opened.
func resolveOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}

// determineLogLevel returns a log level determined first by an environment variable, and if not set, by the provided configuration.
// If neither configuration nor environment variable specifies a log level, it defaults to INFO.
func determineLogLevel(cfg *config.Config) hclog.Level {
	if logLevelEnv := os.Getenv("SCANIO_LOG_LEVEL"); logLevelEnv != "" {
		return parseLogLevel(strings.ToUpper(logLevelEnv))
	}
	return parseLogLevel(strings.ToUpper(cfg.Logger.Level))
}

// parseLogLevel converts a string level to hclog.Level.
func parseLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "", "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		hclog.New(&hclog.LoggerOptions{
			Level:       hclog.Warn,
			DisableTime: true,
			Output:      os.Stderr,
		}).Warn("Unrecognized log level, defaulting to INFO", "providedLevel", levelStr)
		return hclog.Info
	}
}
