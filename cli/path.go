package cli

import (
	"os"
	"path/filepath"

	"github.com/ardnew/botscript/pkg"
	"github.com/ardnew/botscript/profile"
)

// defaultDirMode is the permission mode for created directories.
var defaultDirMode os.FileMode = 0o700

// profileDir returns the default output directory of pprof profiles.
func profileDir() string { return filepath.Join(pkg.CacheDir(), profile.Tag) }

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{pkg.ConfigDir(), pkg.CacheDir()} {
		err := os.MkdirAll(dir, defaultDirMode)
		if err != nil {
			return pkg.ErrReadInput.Wrap(err)
		}
	}

	return nil
}
