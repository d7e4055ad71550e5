package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/klauspost/readahead"

	"github.com/ardnew/botscript/pkg"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type searchPathKey struct{}

// WithSearchPath returns a new context.Context carrying the directories
// searched for scripts named on the command line.
func WithSearchPath(ctx context.Context, dirs []string) context.Context {
	return context.WithValue(ctx, searchPathKey{}, dirs)
}

func searchPathFrom(ctx context.Context) []string {
	dirs, _ := ctx.Value(searchPathKey{}).([]string)

	return dirs
}

// stdinSource names standard input in place of a script file.
const stdinSource = "-"

// source is the text of one script and where it came from.
type source struct {
	path string
	text string
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks and relative paths.
type fileKey struct {
	dev uint64
	ino uint64
}

// readScripts resolves every name against the search path and reads it.
// Names resolving to a file already read are skipped; "-" reads standard
// input once.
func readScripts(ctx context.Context, names []string) ([]source, error) {
	dirs := searchPathFrom(ctx)
	seen := make(map[fileKey]struct{})
	out := make([]source, 0, len(names))

	for _, name := range names {
		if name == stdinSource {
			info, _ := os.Stdin.Stat()
			if key, ok := makeFileKey(info); ok {
				if _, dup := seen[key]; dup {
					continue
				}

				seen[key] = struct{}{}
			}

			text, err := readAll(os.Stdin)
			if err != nil {
				return nil, err
			}

			out = append(out, source{path: stdinSource, text: text})

			continue
		}

		path, err := pkg.FindScript(name, dirs)
		if err != nil {
			return nil, err
		}

		src, ok, err := readUnique(path, seen)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, src)
		}
	}

	return out, nil
}

// readScript resolves and reads a single script.
func readScript(ctx context.Context, name string) (source, error) {
	srcs, err := readScripts(ctx, []string{name})
	if err != nil {
		return source{}, err
	}

	return srcs[0], nil
}

// readUnique reads the file at path unless a file with the same device and
// inode was read before.
func readUnique(path string, seen map[fileKey]struct{}) (source, bool, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return source{}, false, pkg.ErrReadInput.Wrap(err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return source{}, false, pkg.ErrReadInput.Wrap(err)
	}

	if key, ok := makeFileKey(info); ok {
		if _, exists := seen[key]; exists {
			return source{}, false, nil
		}

		seen[key] = struct{}{}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return source{}, false, pkg.ErrReadInput.Wrap(err)
	}
	defer f.Close()

	text, err := readAll(f)
	if err != nil {
		return source{}, false, err
	}

	return source{path: path, text: text}, true, nil
}

func readAll(r io.Reader) (string, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", pkg.ErrReadInput.Wrap(err)
	}

	return string(data), nil
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	if info == nil {
		return key, false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert
}
