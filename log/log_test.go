package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func plain(buf *bytes.Buffer, opts ...Option) Logger {
	return Make(buf, append([]Option{WithPretty(false), WithTimeLayout("none")}, opts...)...)
}

func TestLogger_Make_Defaults(t *testing.T) {
	logger := Make(nil)

	if logger.Level() != DefaultLevel {
		t.Errorf("expected default level, got %v", logger.Level())
	}

	if logger.Format() != DefaultFormat {
		t.Errorf("expected default format, got %v", logger.Format())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := plain(&buf, WithLevel(LevelWarn))
	logger.Info("quiet")
	logger.Debug("quieter")

	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}

	logger.Warn("loud")

	if !strings.Contains(buf.String(), "msg=loud") {
		t.Errorf("expected warn message, got %q", buf.String())
	}
}

func TestLogger_Trace(t *testing.T) {
	var buf bytes.Buffer

	logger := plain(&buf, WithLevel(LevelTrace))
	logger.Trace("phase", slog.String("name", "bind"))

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") || !strings.Contains(out, "name=bind") {
		t.Errorf("unexpected trace output %q", out)
	}

	if !logger.Enabled(t.Context(), LevelTrace) {
		t.Error("expected trace to be enabled")
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := plain(&buf, WithFormat(FormatJSON)).With(slog.String("component", "engine"))
	logger.ErrorContext(t.Context(), "failed", slog.Int("steps", 12))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if rec["level"] != "ERROR" || rec["msg"] != "failed" {
		t.Errorf("unexpected record %v", rec)
	}

	if rec["component"] != "engine" || rec["steps"] != float64(12) {
		t.Errorf("missing attributes in %v", rec)
	}

	if _, ok := rec["time"]; ok {
		t.Error("expected the time to be omitted")
	}
}

func TestLogger_Caller(t *testing.T) {
	var buf bytes.Buffer

	logger := plain(&buf, WithFormat(FormatJSON), WithCaller(true))
	logger.Info("where")

	var rec struct {
		Source struct {
			File string `json:"file"`
		} `json:"source"`
	}

	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if !strings.HasSuffix(rec.Source.File, "log_test.go") {
		t.Errorf("expected caller in log_test.go, got %q", rec.Source.File)
	}
}

func TestLogger_Wrap(t *testing.T) {
	var buf bytes.Buffer

	base := plain(&buf)
	wrapped := base.Wrap(WithLevel(LevelError))

	if base.Level() != LevelInfo || wrapped.Level() != LevelError {
		t.Errorf("expected wrap to leave the base untouched: %v %v", base.Level(), wrapped.Level())
	}

	wrapped.Info("dropped")
	base.Info("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogger_ZeroValue(t *testing.T) {
	var logger Logger

	logger.Info("nothing")
	logger.With(slog.Int("n", 1)).ErrorContext(t.Context(), "still nothing")

	if logger.Enabled(t.Context(), LevelError) {
		t.Error("zero logger must not be enabled")
	}
}

func TestLogger_PrettyText(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithTimeLayout("none"), WithLevel(LevelDebug)).
		WithGroup("script").
		With(slog.String("file", "bot.cs"))

	logger.Debug("compiled",
		slog.Group("stats", slog.Int("funcs", 2)),
		slog.String("note", "two words"),
		slog.Any("error", errors.New("boom")))

	out := strings.TrimSpace(buf.String())

	for _, want := range []string{
		"DEBUG",
		"compiled",
		"script.file=bot.cs",
		"script.stats.funcs=2",
		`script.note="two words"`,
		`script.error="boom"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}

	if strings.Count(out, "\n") != 0 {
		t.Errorf("expected a single line, got %q", out)
	}
}

func TestLogger_PrettyJSON(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithFormat(FormatJSON), WithTimeLayout("none"))
	logger.Info("indented", slog.Bool("ok", true))

	out := buf.String()
	if !strings.Contains(out, "\n  \"msg\": \"indented\"") {
		t.Errorf("expected indented JSON, got %q", out)
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if rec["ok"] != true {
		t.Errorf("unexpected record %v", rec)
	}
}

func BenchmarkLogger(b *testing.B) {
	for _, tt := range []struct {
		name string
		opts []Option
	}{
		{"text", []Option{WithPretty(false)}},
		{"json", []Option{WithPretty(false), WithFormat(FormatJSON)}},
		{"pretty", nil},
		{"filtered", []Option{WithLevel(LevelError)}},
	} {
		b.Run(tt.name, func(b *testing.B) {
			var buf bytes.Buffer

			logger := Make(&buf, tt.opts...)

			for b.Loop() {
				buf.Reset()
				logger.Info("message", slog.Int("n", 1), slog.String("s", "v"))
			}
		})
	}
}
