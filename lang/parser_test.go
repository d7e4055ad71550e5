package lang

import (
	"errors"
	"strings"
	"testing"
)

func TestParseString_Declarations(t *testing.T) {
	src := `
const int Limit = 3;
global int points = 0;
extern string name;

class Counter {
  int n;
  Counter(int start) { n = start; }
  int Next() => ++n;
}

T Max<T>(T a, T b) => a > b ? a : b;

int Main() {
  var c = new Counter(Limit);
  return c.Next();
}
`

	file, err := ParseString(t.Context(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var globals []string
	for g := range file.Globals() {
		globals = append(globals, g.Mod.String()+" "+g.Name)
	}

	if got := strings.Join(globals, ","); got != "const Limit,global points,extern name" {
		t.Errorf("unexpected globals: %s", got)
	}

	var funcs []*FuncDecl
	for fn := range file.Funcs() {
		funcs = append(funcs, fn)
	}

	if len(funcs) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(funcs))
	}

	if got := funcs[0].TypeParams; len(got) != 1 || got[0] != "T" {
		t.Errorf("expected type parameter T, got %v", got)
	}

	if funcs[0].Expr == nil || funcs[1].Body == nil {
		t.Error("expected an expression body then a block body")
	}

	for cls := range file.Classes() {
		if cls.Name != "Counter" || len(cls.Fields) != 1 ||
			len(cls.Ctors) != 1 || len(cls.Methods) != 1 {
			t.Errorf("unexpected class shape: %+v", cls)
		}
	}
}

func TestParseString_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unreachable code",
			src:  `int F() { return 1; int y = 2; }`,
			want: "unreachable code",
		},
		{
			name: "unreachable after break",
			src:  `void F() { while (true) { break; F(); } }`,
			want: "unreachable code",
		},
		{
			name: "missing return",
			src:  `int F(int x) { if (x > 0) { return 1; } }`,
			want: "not all code paths of 'F' return a value",
		},
		{
			name: "bare return",
			src:  `int F() { return; }`,
			want: "bare 'return;' is not allowed",
		},
		{
			name: "void returns value",
			src:  `void F() { return 1; }`,
			want: "'return' cannot carry a value",
		},
		{
			name: "duplicate local",
			src:  `void F() { int a = 1; int a = 2; }`,
			want: "duplicate declaration of 'a'",
		},
		{
			name: "duplicate global",
			src:  "int g;\nint g;",
			want: "duplicate declaration of 'g' (previous at 1:5)",
		},
		{
			name: "use before declaration",
			src:  `void F() { int y = x; int x = 1; }`,
			want: "local variable 'x' used before its declaration",
		},
		{
			name: "break outside loop",
			src:  `void F() { break; }`,
			want: "'break' outside of a loop",
		},
		{
			name: "local const",
			src:  `void F() { const int x = 1; }`,
			want: "only allowed at top level",
		},
		{
			name: "const without initializer",
			src:  `const int x;`,
			want: "requires an initializer",
		},
		{
			name: "extern initializer",
			src:  `extern int x = 1;`,
			want: "cannot have an initializer",
		},
		{
			name: "void variable",
			src:  `void x;`,
			want: "cannot have type void",
		},
		{
			name: "missing semicolon",
			src:  `int x = 1`,
			want: "unexpected end of input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(t.Context(), tt.src)
			if err == nil {
				t.Fatalf("expected error for %q", tt.src)
			}

			if !errors.Is(err, ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestParseString_LoopsThatNeverComplete(t *testing.T) {
	srcs := []string{
		`int F() { while (true) { } }`,
		`int F() { for (;;) { } }`,
		`int F(int x) { if (x > 0) return 1; else return 2; }`,
		`int F() { while (true) { for (;;) { break; } } }`,
	}

	for _, src := range srcs {
		if _, err := ParseString(t.Context(), src); err != nil {
			t.Errorf("parse error for %q: %v", src, err)
		}
	}
}

func TestParseString_EntryPoints(t *testing.T) {
	src := `int Main(int x, ref double y) { return x; }`

	tests := []struct {
		name string
		sig  FunctionSignature
		want string
	}{
		{
			name: "match",
			sig:  Sig("Main", Int, P("x", Int), RefP("y", Double)),
		},
		{
			name: "wrong modifier",
			sig:  Sig("Main", Int, P("x", Int), P("y", Double)),
			want: "does not match signature",
		},
		{
			name: "wrong return",
			sig:  Sig("Main", Void, P("x", Int), RefP("y", Double)),
			want: "does not match signature",
		},
		{
			name: "missing",
			sig:  Sig("Start", Void),
			want: "entry point void Start() is not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(t.Context(), src, tt.sig)

			if tt.want == "" {
				if err != nil {
					t.Fatalf("parse error: %v", err)
				}

				return
			}

			if !errors.Is(err, ErrParse) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
}
