package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestDefault_PackageFunctions(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer

	SetDefault(plain(&buf, WithLevel(LevelTrace), WithFormat(FormatJSON)))

	tests := []struct {
		name  string
		fn    func(string, ...slog.Attr)
		level string
	}{
		{"Trace", Trace, "TRACE"},
		{"Debug", Debug, "DEBUG"},
		{"Info", Info, "INFO"},
		{"Warn", Warn, "WARN"},
		{"Error", Error, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn("message", slog.String("key", "value"))

			out := buf.String()
			if !strings.Contains(out, `"level":"`+tt.level+`"`) {
				t.Errorf("expected level %s in %s", tt.level, out)
			}

			if !strings.Contains(out, `"key":"value"`) {
				t.Errorf("expected attribute in %s", out)
			}
		})
	}
}

func TestDefault_Config(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer

	SetDefault(plain(&buf))
	Config(WithLevel(LevelError))

	InfoContext(t.Context(), "dropped")
	With(slog.Int("n", 1)).Error("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "n=1") {
		t.Errorf("unexpected output %q", out)
	}

	if Default().Level() != LevelError {
		t.Errorf("expected Config to update the level, got %v", Default().Level())
	}
}
