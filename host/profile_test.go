package host

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/botscript/lang"
	"github.com/ardnew/botscript/pkg"
)

const testProfile = `
variables:
  - name: points
    type: int
    value: "10 * 3"
  - name: ratio
    type: double
    value: 2
  - name: greeting
    type: string
    value: '"hello " + env.BOT_USER'
  - name: enabled
    type: bool
    value: true
  - name: primes
    type: int[]
    value: [2, 3, 5]
  - name: first
    type: string
    value: 'len(args) > 0 ? args[0] : "none"'
  - name: unset
    type: int
entries:
  - "int Main()"
  - "void OnCommand(string user, string text)"
limits:
  steps: 500
  depth: 20
`

func load(t *testing.T, src string) *Profile {
	t.Helper()

	p, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	return p
}

func TestLoad(t *testing.T) {
	p := load(t, testProfile)

	if len(p.Variables) != 7 {
		t.Fatalf("expected 7 variables, got %d", len(p.Variables))
	}

	if p.Variables[0].Name != "points" || p.Variables[0].Value != "10 * 3" {
		t.Errorf("unexpected first variable %+v", p.Variables[0])
	}

	if p.Variables[6].Value != nil {
		t.Errorf("expected no value for unset, got %v", p.Variables[6].Value)
	}

	if p.Limits.Steps != 500 || p.Limits.Depth != 20 {
		t.Errorf("unexpected limits %+v", p.Limits)
	}

	if empty := load(t, ""); len(empty.Variables) != 0 || len(empty.Entries) != 0 {
		t.Errorf("expected an empty profile, got %+v", empty)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", "variable:\n  - name: x\n"},
		{"missing type", "variables:\n  - name: x\n    value: 1\n"},
		{"missing name", "variables:\n  - type: int\n"},
		{"negative limit", "limits:\n  steps: -1\n"},
		{"malformed", "variables: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			if !errors.Is(err, pkg.ErrProfile) {
				t.Errorf("expected ErrProfile, got %v", err)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, pkg.ErrReadInput) {
		t.Errorf("expected ErrReadInput, got %v", err)
	}
}

func TestProfile_Apply(t *testing.T) {
	t.Setenv("BOT_USER", "rex")

	p := load(t, testProfile)
	p.Args = []string{"alpha"}

	gc := lang.NewGlobalContext()
	if err := p.Apply(gc); err != nil {
		t.Fatalf("apply error: %v", err)
	}

	tests := []struct {
		name string
		kind lang.Kind
		want string
	}{
		{"points", lang.KindInt, "30"},
		{"ratio", lang.KindDouble, "2"},
		{"greeting", lang.KindString, "hello rex"},
		{"enabled", lang.KindBool, "True"},
		{"first", lang.KindString, "alpha"},
		{"unset", lang.KindInt, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, typ, ok := gc.Variable(tt.name)
			if !ok {
				t.Fatalf("expected %s to be declared", tt.name)
			}

			if typ.Kind() != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, typ.Kind())
			}

			if got := v.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	v, _, _ := gc.Variable("primes")
	if arr := v.Array(); arr == nil || arr.Len() != 3 || arr.Index(2).Int() != 5 {
		t.Errorf("unexpected primes %s", v)
	}
}

func TestProfile_Apply_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown type", "variables:\n  - {name: x, type: Widget, value: 1}\n"},
		{"mismatched result", "variables:\n  - {name: x, type: int, value: '\"text\"'}\n"},
		{"bad expression", "variables:\n  - {name: x, type: int, value: '1 +'}\n"},
		{"unsupported type", "variables:\n  - {name: x, type: 'List<int>', value: 1}\n"},
		{"duplicate", "variables:\n  - {name: x, type: int}\n  - {name: x, type: int}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := load(t, tt.src).Apply(lang.NewGlobalContext())
			if !errors.Is(err, pkg.ErrProfile) {
				t.Errorf("expected ErrProfile, got %v", err)
			}
		})
	}
}

func TestProfile_Signatures(t *testing.T) {
	p := load(t, testProfile)

	sigs, err := p.Signatures(lang.NewGlobalContext())
	if err != nil {
		t.Fatalf("signature error: %v", err)
	}

	want := []string{"int Main()", "void OnCommand(string user, string text)"}
	if len(sigs) != len(want) {
		t.Fatalf("expected %d signatures, got %d", len(want), len(sigs))
	}

	for i, sig := range sigs {
		if sig.String() != want[i] {
			t.Errorf("expected %q, got %q", want[i], sig.String())
		}
	}

	bad := load(t, "entries: ['int Main(']\n")
	if _, err := bad.Signatures(lang.NewGlobalContext()); !errors.Is(err, pkg.ErrProfile) {
		t.Errorf("expected ErrProfile, got %v", err)
	}
}

func TestProfile_Execute(t *testing.T) {
	t.Setenv("BOT_USER", "rex")

	p := load(t, testProfile)
	gc := lang.NewGlobalContext()

	if err := p.Apply(gc); err != nil {
		t.Fatalf("apply error: %v", err)
	}

	sigs, err := p.Signatures(gc)
	if err != nil {
		t.Fatalf("signature error: %v", err)
	}

	src := `
int Main() => points + primes[2] + (enabled ? 1 : 0);
void OnCommand(string user, string text) { }
int Count() { int n = 0; for (int i = 0; i < 100000; i++) n++; return n; }
`

	s, err := lang.LexAndParse(t.Context(), src, gc, sigs...)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	rc, err := s.Prepare(t.Context(), gc)
	if err != nil {
		t.Fatalf("prepare error: %v", err)
	}

	var args []any
	for _, opt := range p.ExecOptions() {
		args = append(args, opt)
	}

	got, err := lang.Execute[int64](t.Context(), s, rc, "Main", args...)
	if err != nil {
		t.Fatalf("execute error: %v", err)
	}

	if got != 36 {
		t.Errorf("expected 36, got %d", got)
	}

	if _, err := lang.Execute[int64](t.Context(), s, rc, "Count", args...); !errors.Is(err, lang.ErrAborted) {
		t.Errorf("expected the step limit to abort, got %v", err)
	}
}

func TestProfile_ExecOptions(t *testing.T) {
	if opts := (&Profile{}).ExecOptions(); len(opts) != 0 {
		t.Errorf("expected no options without limits, got %d", len(opts))
	}

	p := &Profile{Limits: Limits{Steps: 10}}
	if opts := p.ExecOptions(); len(opts) != 1 {
		t.Errorf("expected one option, got %d", len(opts))
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("BOT_USER", "rex")

	env := Environment([]string{"a", "b"})

	for _, key := range []string{"env", "args", "platform", "hostname", "user", "cwd", "file", "path", "mung"} {
		if _, ok := env[key]; !ok {
			t.Errorf("expected %q in the environment", key)
		}
	}

	if vars, _ := env["env"].(map[string]string); vars["BOT_USER"] != "rex" {
		t.Errorf("expected env.BOT_USER to be rex, got %q", vars["BOT_USER"])
	}

	if args, _ := env["args"].([]string); len(args) != 2 || args[1] != "b" {
		t.Errorf("unexpected args %v", env["args"])
	}

	env["args"] = nil

	if again := Environment(nil); again["platform"] == nil {
		t.Error("expected builtins to survive caller mutation")
	}

	if got := mungPrefix("b:c", "a"); !strings.HasPrefix(got, "a") {
		t.Errorf("expected a prefixed list, got %q", got)
	}
}
