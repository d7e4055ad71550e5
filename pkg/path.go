package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ardnew/mung"
)

// Prefix returns the base prefix string used to construct the path to the
// configuration directory.
//
// By default, Prefix is the base name of the executable file unless it matches
// one of the following substitution rules:
//   - "__debug_bin" (default output of the dlv debugger): replaced with [Name]
//   - "*.test" (a go test binary): replaced with [Name]
//   - "^\.+" (dot-prefixed names): remove the dot prefix
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		exe, err := os.Executable()
		if err == nil {
			id = exe
		}

		ext := filepath.Ext(filepath.Base(id))
		id = strings.TrimSuffix(filepath.Base(id), ext)

		for _, sub := range []struct {
			rex *regexp.Regexp
			rep string
		}{
			{regexp.MustCompile(`^__debug_bin\d*$`), Name},
			{regexp.MustCompile(`^\.+`), ""},
		} {
			id = sub.rex.ReplaceAllString(id, sub.rep)
		}

		if id == "" || ext == ".test" {
			return Name
		}

		return id
	},
)

// userDir joins the prefix to the first usable base directory: the result of
// primary, then fallback below the user's home, then the working directory.
func userDir(primary func() (string, error), fallback string) string {
	dir, err := primary()
	if err != nil {
		dir, err = os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(dir, fallback)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, Prefix())
}

// ConfigDir returns the configuration directory path.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string { return userDir(os.UserConfigDir, ".config") },
)

// CacheDir returns the cache directory path used for transient files such as
// REPL history and profiling output.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string { return userDir(os.UserCacheDir, ".cache") },
)

// ConfigFile returns the path of the YAML configuration file.
func ConfigFile() string { return filepath.Join(ConfigDir(), "config.yaml") }

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// SearchPath returns the directories searched for scripts: prefix followed by
// the entries of $BOTSCRIPT_PATH, keeping only existing directories.
func SearchPath(prefix ...string) []string {
	joined := mung.Make(
		mung.WithSubjectItems(os.Getenv(EnvPath)),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(isDir),
	).String()

	var dirs []string

	for _, dir := range filepath.SplitList(joined) {
		if dir != "" && isDir(dir) {
			dirs = append(dirs, dir)
		}
	}

	return dirs
}

// FindScript resolves name to a readable script file. Names are tried as
// given and, when they have no extension, with [ScriptExt] appended. Relative
// names are resolved against the working directory first and then against
// each directory of dirs.
func FindScript(name string, dirs []string) (string, error) {
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = append(candidates, name+ScriptExt)
	}

	roots := []string{""}
	if !filepath.IsAbs(name) {
		roots = append(roots, dirs...)
	}

	for _, root := range roots {
		for _, c := range candidates {
			if path := filepath.Join(root, c); isFile(path) {
				return path, nil
			}
		}
	}

	return "", ErrScriptNotFound.Wrapf("%s", name)
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
