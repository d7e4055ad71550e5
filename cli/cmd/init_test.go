package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

type initCLI struct {
	Log struct {
		Level  string `default:"info"`
		Pretty bool   `default:"true"`
	} `embed:"" prefix:"log-"`

	Path   []string
	Secret string `default:"x" hidden:""`
	Pprof  string `default:"cpu"`
}

// initContext parses args against initCLI with the configuration file at
// path.
func initContext(t *testing.T, path string, args ...string) *kong.Context {
	t.Helper()

	var cli initCLI

	parser, err := kong.New(&cli, kong.Vars{ConfigIdentifier: path})
	if err != nil {
		t.Fatal(err)
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		t.Fatal(err)
	}

	return ktx
}

func TestInitRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		force   bool
		exists  bool
		wantErr bool
	}{
		{name: "create_new_config"},
		{name: "overwrite_existing_with_force", force: true, exists: true},
		{name: "fail_without_force", exists: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.yaml")

			if tt.exists {
				if err := os.WriteFile(path, []byte("existing: true\n"), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			ktx := initContext(t, path, "--path=a", "--path=b")
			ctx := WithContext(t.Context(), ktx)

			err := (&Init{Force: tt.force}).Run(ctx)
			if tt.wantErr {
				if !errors.Is(err, ErrWriteConfig) || !errors.Is(err, ErrFileExists) {
					t.Errorf("Init.Run() error = %v, want %v wrapping %v",
						err, ErrWriteConfig, ErrFileExists)
				}

				return
			}

			if err != nil {
				t.Fatalf("Init.Run() error = %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			var doc struct {
				Log struct {
					Level  string `yaml:"level"`
					Pretty bool   `yaml:"pretty"`
				} `yaml:"log"`
				Path   []string `yaml:"path"`
				Secret string   `yaml:"secret"`
				Pprof  string   `yaml:"pprof"`
			}

			if err := yaml.Unmarshal(data, &doc); err != nil {
				t.Fatalf("generated config is not valid YAML: %v\n%s", err, data)
			}

			if doc.Log.Level != "info" || !doc.Log.Pretty {
				t.Errorf("log = %+v, want level info and pretty", doc.Log)
			}

			if len(doc.Path) != 2 || doc.Path[0] != "a" || doc.Path[1] != "b" {
				t.Errorf("path = %v, want [a b]", doc.Path)
			}

			if doc.Secret != "" || doc.Pprof != "" {
				t.Errorf("hidden or profiling flags written: %s", data)
			}
		})
	}
}

func TestInitBuildConfig_SkipsEmpty(t *testing.T) {
	t.Parallel()

	ktx := initContext(t, filepath.Join(t.TempDir(), "config.yaml"))
	config := (&Init{}).buildConfig(ktx)

	if _, ok := config["path"]; ok {
		t.Errorf("empty path written: %v", config)
	}

	if _, ok := config["help"]; ok {
		t.Errorf("help flag written: %v", config)
	}

	log, ok := config["log"].(map[string]any)
	if !ok || log["level"] != "info" {
		t.Errorf("log = %v, want nested level", config["log"])
	}
}
