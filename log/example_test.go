package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/botscript/log"
)

func Example_text() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatText),
		log.WithPretty(false),
		log.WithTimeLayout("none"))

	logger.Info("script loaded", slog.String("file", "greeter.bs"))
	logger.Debug("not shown")

	// Output:
	// level=INFO msg="script loaded" file=greeter.bs
}

func Example_json() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatJSON),
		log.WithPretty(false),
		log.WithTimeLayout("none"),
		log.WithLevel(log.LevelTrace))

	logger.Trace("entry point", slog.String("name", "Main"), slog.Int("steps", 42))

	// Output:
	// {"level":"TRACE","msg":"entry point","name":"Main","steps":42}
}

func Example_attributes() {
	logger := log.Make(os.Stderr).With(slog.String("component", "repl"))

	logger.Warn("history file unreadable", slog.String("path", "/tmp/history"))
}
