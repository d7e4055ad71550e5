//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version returns the semantic version of the botscript module embedded at
// build time. It is printed by the CLI's --version flag.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the canonical command and module identifier used across the
	// project. For example, it appears in help text and default config paths.
	Name = "botscript"
	// Description is a short, human-readable summary of the project used in
	// help output and documentation.
	Description = "Embedded bot scripting engine"
	// ScriptExt is the conventional file extension of script sources. It is
	// tried when a script name given on the command line has no extension.
	ScriptExt = ".bs"
	// EnvPath names the environment variable holding the script search path,
	// a list of directories separated by [os.PathListSeparator].
	EnvPath = "BOTSCRIPT_PATH"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	// Name is the author's preferred name or handle.
	Name string
	// Email is the author's contact email address.
	Email string
}

// Author lists the primary author(s) of the project for display in metadata.
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
