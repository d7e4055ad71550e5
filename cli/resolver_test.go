package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/ardnew/botscript/pkg"
)

type resolverCLI struct {
	Log struct {
		Level  string `default:"info"`
		Pretty bool   `default:"true"`
	} `embed:"" prefix:"log-"`

	MaxSteps int64
	Ratio    float64
	Path     []string
}

// parseWithConfig parses args against resolverCLI with text as the
// configuration file.
func parseWithConfig(t *testing.T, text string, args ...string) resolverCLI {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}

	var cli resolverCLI

	parser, err := kong.New(&cli, kong.Configuration(resolve, path))
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}

	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	return cli
}

func TestResolve(t *testing.T) {
	t.Parallel()

	cli := parseWithConfig(t, `
log:
  level: debug
  pretty: false
max_steps: 5000
ratio: 0.5
path:
  - ./a
  - ./b
`)

	if cli.Log.Level != "debug" || cli.Log.Pretty {
		t.Errorf("log = %+v, want level debug without pretty", cli.Log)
	}

	if cli.MaxSteps != 5000 || cli.Ratio != 0.5 {
		t.Errorf("max-steps = %d, ratio = %g", cli.MaxSteps, cli.Ratio)
	}

	if strings.Join(cli.Path, ":") != "./a:./b" {
		t.Errorf("path = %v, want [./a ./b]", cli.Path)
	}
}

func TestResolve_CommandLineWins(t *testing.T) {
	t.Parallel()

	cli := parseWithConfig(t, "log:\n  level: debug\n", "--log-level=warn")

	if cli.Log.Level != "warn" {
		t.Errorf("log-level = %q, want warn", cli.Log.Level)
	}
}

func TestResolve_Empty(t *testing.T) {
	t.Parallel()

	cli := parseWithConfig(t, "")

	if cli.Log.Level != "info" || !cli.Log.Pretty {
		t.Errorf("log = %+v, want defaults", cli.Log)
	}
}

func TestResolve_Invalid(t *testing.T) {
	t.Parallel()

	_, err := resolve(strings.NewReader("log: [unterminated"))
	if !errors.Is(err, pkg.ErrReadInput) {
		t.Errorf("resolve error = %v, want %v", err, pkg.ErrReadInput)
	}
}

func TestScalar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want any
	}{
		{uint64(7), "7"},
		{int64(-7), "-7"},
		{1.25, "1.25"},
		{[]any{"a", uint64(2)}, "a,2"},
		{true, true},
		{"text", "text"},
	}

	for _, tt := range tests {
		if got := scalar(tt.in); got != tt.want {
			t.Errorf("scalar(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
