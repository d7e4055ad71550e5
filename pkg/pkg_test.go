package pkg

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestIdentity(t *testing.T) {
	if Name != "botscript" {
		t.Errorf("expected Name to be %q, got %q", "botscript", Name)
	}

	if Description == "" {
		t.Error("expected a description")
	}

	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("read VERSION: %v", err)
	}

	if want := strings.TrimSpace(string(buf)); Version() != want {
		t.Errorf("expected Version to be %q, got %q", want, Version())
	}

	for i, author := range Author {
		if author.Name == "" && author.Email == "" {
			t.Errorf("Author[%d] must define at least Name or Email", i)
		}
	}
}

func TestError_Chain(t *testing.T) {
	err := ErrReadInput.Wrap(io.ErrUnexpectedEOF)
	other := ErrReadInput.Wrapf("second %d", 2)

	if got := err.Error(); got != "failed to read input: unexpected EOF" {
		t.Errorf("unexpected message %q", got)
	}

	if got := other.Error(); got != "failed to read input: second 2" {
		t.Errorf("wrapping twice must not share storage, got %q", got)
	}

	if !errors.Is(err, ErrReadInput) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected the chain to match its sentinel and its cause")
	}

	if errors.Is(err, ErrProfile) {
		t.Error("expected no match against an unrelated sentinel")
	}

	if errors.Is(ErrReadInput, err) {
		t.Error("a sentinel must not match a longer chain")
	}
}

func TestMakeError(t *testing.T) {
	inner := MakeErrorf("inner")
	e := MakeError(nil, inner, errors.New("outer"), nil)

	if len(e) != 2 {
		t.Fatalf("expected a flattened chain of 2, got %d: %v", len(e), e)
	}

	if e.Error() != "inner: outer" {
		t.Errorf("unexpected message %q", e.Error())
	}

	if MakeError() != nil {
		t.Error("expected nil for no errors")
	}
}

func TestSearchPath(t *testing.T) {
	a, b, c := t.TempDir(), t.TempDir(), t.TempDir()

	t.Setenv(EnvPath, strings.Join([]string{b, c}, string(os.PathListSeparator)))

	got := SearchPath(a)

	for _, dir := range []string{a, b, c} {
		if !slices.Contains(got, dir) {
			t.Errorf("expected %s in %v", dir, got)
		}
	}

	if len(got) == 0 || got[0] != a {
		t.Errorf("expected the prefix first, got %v", got)
	}

	if slices.Contains(SearchPath(filepath.Join(a, "missing")), filepath.Join(a, "missing")) {
		t.Error("expected missing directories to be dropped")
	}
}

func TestFindScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeter"+ScriptExt)

	if err := os.WriteFile(path, []byte("int Main() => 1;"), 0o600); err != nil {
		t.Fatalf("write error: %v", err)
	}

	tests := []struct {
		name string
		dirs []string
		want string
	}{
		{path, nil, path},
		{strings.TrimSuffix(path, ScriptExt), nil, path},
		{"greeter", []string{dir}, path},
		{"greeter" + ScriptExt, []string{t.TempDir(), dir}, path},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindScript(tt.name, tt.dirs)
			if err != nil {
				t.Fatalf("find error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := FindScript("nope", []string{dir}); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("expected ErrScriptNotFound, got %v", err)
	}
}
