package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
)

const greeter = `
int calls = 0;

void Main() { Print("hello"); }

int Add(int a, int b) { calls++; return a + b; }

string Greet(string name) { return $"hi {name}"; }

string Who() { return string.Join(",", Args()); }

void Spin() { while (true) { } }
`

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   string
		args    []string
		steps   int64
		want    string
		wantErr error
	}{
		{name: "main", entry: "Main", want: "hello\n"},
		{name: "result", entry: "Add", args: []string{"2", "3"}, want: "5\n"},
		{name: "string", entry: "Greet", args: []string{"bob"}, want: "hi bob\n"},
		{name: "args", entry: "Who", want: "\n"},
		{name: "arity", entry: "Add", args: []string{"2"}, wantErr: ErrArguments},
		{name: "conversion", entry: "Add", args: []string{"x", "y"}, wantErr: ErrArguments},
		{name: "missing", entry: "Nope", wantErr: ErrArguments},
		{name: "step_limit", entry: "Spin", steps: 1000, wantErr: ErrExecute},
	}

	path := writeScript(t, t.TempDir(), "greeter.bs", greeter)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer

			r := &Run{
				Host:   Host{MaxSteps: tt.steps},
				Script: path,
				Entry:  tt.entry,
				Args:   tt.args,
				out:    &out,
			}

			err := r.Run(t.Context())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestRun_CompileError(t *testing.T) {
	t.Parallel()

	path := writeScript(t, t.TempDir(), "bad.bs", "void Main() { Undefined(); }")

	err := (&Run{Script: path, Entry: "Main"}).Run(t.Context())
	if !errors.Is(err, ErrCompile) {
		t.Errorf("Run() error = %v, want %v", err, ErrCompile)
	}
}

func TestRun_Profile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := writeScript(t, dir, "bot.bs", `string Name() { return botName; }`)
	profile := writeScript(t, dir, "host.yaml", `
variables:
  - name: botName
    type: string
    value: '"Ada"'
entries:
  - string Name()
`)

	var out bytes.Buffer

	r := &Run{Host: Host{Profile: profile}, Script: script, Entry: "Name", out: &out}
	if err := r.Run(t.Context()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if out.String() != "Ada\n" {
		t.Errorf("output = %q, want %q", out.String(), "Ada\n")
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeScript(t, dir, "good.bs", greeter)
	bad := writeScript(t, dir, "bad.bs", "void Main() {\n  int x = ;\n}")

	var out bytes.Buffer

	c := &Check{Scripts: []string{good, bad}, out: &out}

	err := c.Run(t.Context())
	if !errors.Is(err, ErrCheck) {
		t.Fatalf("Check.Run() error = %v, want %v", err, ErrCheck)
	}

	got := out.String()
	if !strings.Contains(got, "ok   "+good) {
		t.Errorf("output missing ok line for %s:\n%s", good, got)
	}

	if !strings.Contains(got, "FAIL "+bad) || !strings.Contains(got, "int x = ;") {
		t.Errorf("output missing failure report for %s:\n%s", bad, got)
	}

	out.Reset()

	c = &Check{Scripts: []string{good}, Quiet: true, out: &out}
	if err := c.Run(t.Context()); err != nil {
		t.Fatalf("Check.Run() error = %v", err)
	}

	if out.Len() != 0 {
		t.Errorf("quiet output = %q, want none", out.String())
	}
}

func TestDump(t *testing.T) {
	t.Parallel()

	path := writeScript(t, t.TempDir(), "greeter.bs", greeter)

	tests := []struct {
		name   string
		run    func(d Dump) error
		format string
	}{
		{"tokens_json", func(d Dump) error { return (&Tokens{d}).Run(t.Context()) }, "json"},
		{"tokens_yaml", func(d Dump) error { return (&Tokens{d}).Run(t.Context()) }, "yaml"},
		{"ast_json", func(d Dump) error { return (&AST{d}).Run(t.Context()) }, "json"},
		{"ast_yaml", func(d Dump) error { return (&AST{d}).Run(t.Context()) }, "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer

			err := tt.run(Dump{Format: tt.format, Indent: 2, Script: path, out: &out})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if !strings.Contains(out.String(), "Greet") {
				t.Errorf("output does not mention Greet:\n%s", out.String())
			}

			var doc any

			switch tt.format {
			case "json":
				err = json.Unmarshal(out.Bytes(), &doc)
			default:
				err = yaml.Unmarshal(out.Bytes(), &doc)
			}

			if err != nil {
				t.Errorf("output is not valid %s: %v", tt.format, err)
			}
		})
	}
}
