package cmd

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/ardnew/botscript/cli/cmd/repl"
)

// Repl starts an interactive session.
type Repl struct {
	Host `embed:""`

	Script string   `arg:"" help:"Script whose globals, functions, and classes are in scope." optional:""`
	Args   []string `       help:"Arguments returned by Args() and visible to the profile."  short:"a"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	var src source
	if r.Script != "" {
		src, err = readScript(ctx, r.Script)
		if err != nil {
			return err
		}
	}

	// Script output is collected and printed above the prompt after each
	// evaluation, since bubbletea owns the terminal.
	var out bytes.Buffer

	sess, err := r.open(ctx, &out, r.Args)
	if err != nil {
		return err
	}

	cacheDir := kongContextFrom(ctx).Model.Vars()[CacheIdentifier]

	return repl.Run(ctx, repl.Config{
		Global:  sess.gc,
		Name:    src.path,
		Source:  src.text,
		Entries: sess.sigs,
		Exec:    sess.exec,
		Output:  &out,
		History: filepath.Join(cacheDir, repl.HistoryFile),
		Logger:  sess.logger,
	})
}
