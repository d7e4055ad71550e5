package repl

import (
	"strings"
	"testing"

	"github.com/ardnew/botscript/lang"
)

func TestDetectFunctionCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		cursor     int
		wantName   string
		wantIndex  int
		wantInCall bool
	}{
		{"no_call", "count", 5, "", 0, false},
		{"first_arg", "Add(", 4, "Add", 0, true},
		{"first_arg_value", "Add(1", 5, "Add", 0, true},
		{"second_arg", "Add(1,", 6, "Add", 1, true},
		{"second_arg_value", "Add(1, 2", 8, "Add", 1, true},
		{"member", "items.Add(", 10, "items.Add", 0, true},
		{"static_member", "Math.Pow(2, ", 12, "Math.Pow", 1, true},
		{"nested_inner", "Add(Twice(1", 11, "Twice", 0, true},
		{"nested_closed", "Add(Twice(1), ", 14, "Add", 1, true},
		{"comma_in_index", "Add(m[1, 2], ", 13, "Add", 1, true},
		{"closed", "Add(1)", 6, "", 0, false},
		{"grouping_paren", "(1 + ", 5, "", 0, false},
		{"operand", "x + Twice(", 10, "Twice", 0, true},
		{"cursor_mid", "Add(1, 2)", 5, "Add", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := detectFunctionCall(tt.input, tt.cursor)
			if got.name != tt.wantName || got.argIndex != tt.wantIndex ||
				got.inCall != tt.wantInCall {
				t.Errorf("detectFunctionCall(%q, %d) = %+v, want {%q %d %v}",
					tt.input, tt.cursor, got, tt.wantName, tt.wantIndex, tt.wantInCall)
			}
		})
	}
}

func TestScope_Signatures(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	tests := []struct {
		name string
		call string
		want int
	}{
		{"script_function", "Twice", 1},
		{"host_function", "Print", 1},
		{"static_overloads", "Math.Round", 2},
		{"instance_method", "items.Add", 1},
		{"unknown", "Nope", 0},
		{"unknown_owner", "nope.Add", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := m.signatures(tt.call); len(got) != tt.want {
				t.Errorf("signatures(%q) = %v, want %d overloads", tt.call, got, tt.want)
			}
		})
	}
}

func TestPickSignature(t *testing.T) {
	t.Parallel()

	one := lang.Sig("Round", lang.Double, lang.P("d", lang.Double))
	two := lang.Sig("Round", lang.Double, lang.P("d", lang.Double), lang.P("digits", lang.Int))
	sigs := []lang.FunctionSignature{one, two}

	if got := pickSignature(sigs, 0); len(got.Params) != 1 {
		t.Errorf("pickSignature(0) = %v, want one parameter", got)
	}

	if got := pickSignature(sigs, 1); len(got.Params) != 2 {
		t.Errorf("pickSignature(1) = %v, want two parameters", got)
	}

	if got := pickSignature(sigs, 5); len(got.Params) != 1 {
		t.Errorf("pickSignature(5) = %v, want the first overload", got)
	}
}

func TestRenderSignatureHint(t *testing.T) {
	t.Parallel()

	sig := lang.Sig("Pow", lang.Double, lang.P("x", lang.Double), lang.P("y", lang.Double))

	got := renderSignatureHint(sig, 1)
	for _, want := range []string{"double", "Pow", "double x", "double y"} {
		if !strings.Contains(got, want) {
			t.Errorf("renderSignatureHint() = %q, want it to contain %q", got, want)
		}
	}

	if got := renderSignatureHint(lang.Sig("Now", lang.Int), 0); !strings.Contains(got, "Now") {
		t.Errorf("renderSignatureHint() = %q, want it to contain Now", got)
	}
}

func BenchmarkDetectFunctionCall(b *testing.B) {
	input := "Add(Twice(items.Count), Math.Pow(2, 3), "

	for b.Loop() {
		detectFunctionCall(input, len(input))
	}
}
