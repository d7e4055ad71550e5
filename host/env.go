package host

import (
	"maps"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ardnew/mung"
)

// Platform identifies the operating system and architecture of the host
// using Go naming conventions.
type Platform struct {
	OS   string
	Arch string
}

// builtins holds the process-scoped part of the expression environment. It is
// computed once and cloned for every profile.
var builtins = sync.OnceValue(func() map[string]any {
	return map[string]any{
		"platform": hostPlatform(),
		"hostname": hostname(),
		"user":     username(),
		"cwd":      cwd,
		"file": map[string]any{
			"exists": fileExists,
			"isDir":  fileIsDir,
		},
		"path": map[string]any{
			"abs":  pathAbs,
			"join": filepath.Join,
			"base": filepath.Base,
			"ext":  filepath.Ext,
		},
		"mung": map[string]any{
			"prefix": mungPrefix,
		},
	}
})

// Environment returns the expression environment used to evaluate the
// initial values of profile variables:
//
//   - env:      the process environment as a map
//   - args:     the host's extra command-line arguments
//   - platform: {OS, Arch} of the running binary
//   - hostname, user: strings, empty when unknown
//   - cwd():    the working directory
//   - file.exists(p), file.isDir(p)
//   - path.abs(p), path.join(p...), path.base(p), path.ext(p)
//   - mung.prefix(list, items...): prepend items to a PATH-style list
//
// The returned map belongs to the caller.
func Environment(args []string) map[string]any {
	env := maps.Clone(builtins())
	env["env"] = processEnv(os.Environ())
	env["args"] = append([]string{}, args...)

	return env
}

func processEnv(list []string) map[string]string {
	m := make(map[string]string, len(list))

	for _, entry := range list {
		if key, value, ok := strings.Cut(entry, "="); ok {
			m[key] = value
		}
	}

	return m
}

func hostPlatform() Platform {
	p := Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}

	if v, ok := os.LookupEnv("GOHOSTOS"); ok {
		p.OS = v
	}

	if v, ok := os.LookupEnv("GOHOSTARCH"); ok {
		p.Arch = v
	}

	return p
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}

	return name
}

func username() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}

	return os.Getenv("USER")
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return dir
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func mungPrefix(list string, items ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(items...),
	).String()
}
