// Package cmd implements the botscript subcommands: run, check, tokens,
// ast, repl, and init.
//
// Commands that compile scripts share the [Host] flags. A host session
// registers the functions every script may call (Print, Log, Args), then
// applies the optional host profile, which declares host variables, the
// entry points scripts must define, and per-call limits.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path
	// to the YAML configuration file.
	ConfigIdentifier = "config"
)
