package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardnew/botscript/lang"
	"github.com/ardnew/botscript/pkg"
)

// writeScript writes text to name under dir and returns its path.
func writeScript(t *testing.T, dir, name, text string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestReadScripts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lib := t.TempDir()

	a := writeScript(t, dir, "a.bs", "int A() { return 1; }")
	writeScript(t, lib, "b.bs", "int B() { return 2; }")

	link := filepath.Join(dir, "alias.bs")
	if err := os.Symlink(a, link); err != nil {
		t.Fatal(err)
	}

	ctx := WithSearchPath(t.Context(), []string{lib})

	srcs, err := readScripts(ctx, []string{a, "b", link, a})
	if err != nil {
		t.Fatalf("readScripts: %v", err)
	}

	if len(srcs) != 2 {
		t.Fatalf("readScripts returned %d sources, want 2: %+v", len(srcs), srcs)
	}

	if srcs[0].path != a || srcs[0].text != "int A() { return 1; }" {
		t.Errorf("srcs[0] = %+v", srcs[0])
	}

	if srcs[1].path != filepath.Join(lib, "b.bs") {
		t.Errorf("srcs[1].path = %q, want the search path match", srcs[1].path)
	}
}

func TestReadScripts_NotFound(t *testing.T) {
	t.Parallel()

	_, err := readScripts(t.Context(), []string{filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, pkg.ErrScriptNotFound) {
		t.Errorf("readScripts error = %v, want %v", err, pkg.ErrScriptNotFound)
	}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	sig := lang.Sig("F", lang.Void,
		lang.P("s", lang.String),
		lang.P("n", lang.Int),
		lang.P("f", lang.Float),
		lang.P("d", lang.Double),
		lang.P("b", lang.Bool),
	)

	vals, err := parseArgs(sig, []string{"hi", "0x10", "1.5", "-2.25", "true"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}

	if vals[0].Str() != "hi" || vals[1].Int() != 16 || vals[2].Float() != 1.5 ||
		vals[3].Double() != -2.25 || !vals[4].Bool() {
		t.Errorf("parseArgs = %v", vals)
	}

	tests := []struct {
		name string
		sig  lang.FunctionSignature
		args []string
	}{
		{"count", sig, []string{"hi"}},
		{"int", lang.Sig("F", lang.Void, lang.P("n", lang.Int)), []string{"x"}},
		{"bool", lang.Sig("F", lang.Void, lang.P("b", lang.Bool)), []string{"maybe"}},
		{"array", lang.Sig("F", lang.Void, lang.P("a", lang.ArrayOf(lang.Int))), []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := parseArgs(tt.sig, tt.args); !errors.Is(err, ErrArguments) {
				t.Errorf("parseArgs error = %v, want %v", err, ErrArguments)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := ErrCompile.With().Wrap(cause)

	if !errors.Is(err, ErrCompile) {
		t.Error("derived error does not match its sentinel")
	}

	if errors.Is(err, ErrExecute) {
		t.Error("derived error matches an unrelated sentinel")
	}

	if !errors.Is(err, cause) {
		t.Error("derived error does not unwrap to its cause")
	}

	if got, want := err.Error(), "compile script: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
