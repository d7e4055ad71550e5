// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// Loggers are immutable values configured with functional options. The zero
// [Logger] discards all output, which lets the script engine accept a logger
// without requiring one.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr)
//	logger.Info("script compiled", slog.Int("functions", 3))
//	logger.Error("execution failed", slog.Any("error", err))
//
// # Configuration
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("RFC3339Nano"),
//		log.WithCaller(true))
//
// The package-level functions ([Info], [Debug], ...) write through a default
// logger that [Config] reconfigures in place. The CLI calls [Config] while
// it parses flags so that even parse errors honor --log-format.
//
// # Levels
//
// In addition to the four slog levels the package defines [LevelTrace],
// used by the engine for per-phase compile and execution traces.
//
// # Output Formats
//
// [FormatText] and [FormatJSON] are supported. With [WithPretty] enabled,
// text output is colorized when written to a terminal and JSON output is
// indented.
package log
