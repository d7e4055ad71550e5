package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/botscript/lang"
)

// Dump holds the arguments shared by the tokens and ast commands.
type Dump struct {
	Format string `default:"yaml" enum:"json,yaml" help:"Output format." short:"f"`
	Indent int    `default:"2"                      help:"Indent width."  short:"i"`

	Script string `arg:"" default:"-" help:"Script file, script name on the search path, or '-' for stdin." optional:""`

	out io.Writer `kong:"-"`
}

func (d *Dump) writer() io.Writer {
	if d.out == nil {
		return os.Stdout
	}

	return d.out
}

// Tokens prints the token stream of a script.
type Tokens struct {
	Dump `embed:""`
}

// Run executes the tokens command.
func (t *Tokens) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	src, err := readScript(ctx, t.Script)
	if err != nil {
		return err
	}

	toks, err := lang.Tokenize(src.text)
	if err != nil {
		return ErrCompile.With(slog.String("script", src.path)).Wrap(err)
	}

	switch t.Format {
	case "json":
		err = lang.FormatTokensJSON(ctx, t.writer(), toks, t.Indent)
	default:
		err = lang.FormatTokensYAML(ctx, t.writer(), toks, t.Indent)
	}

	if err != nil {
		return ErrWriteOutput.With(slog.String("format", t.Format)).Wrap(err)
	}

	return nil
}

// AST prints the syntax tree of a script.
type AST struct {
	Dump `embed:""`
}

// Run executes the ast command. The tree is printed before binding, so
// scripts referring to host variables or functions need no profile.
func (a *AST) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	src, err := readScript(ctx, a.Script)
	if err != nil {
		return err
	}

	file, err := lang.ParseString(ctx, src.text)
	if err != nil {
		return ErrCompile.With(slog.String("script", src.path)).Wrap(err)
	}

	switch a.Format {
	case "json":
		err = file.FormatJSON(ctx, a.writer(), a.Indent)
	default:
		err = file.FormatYAML(ctx, a.writer(), a.Indent)
	}

	if err != nil {
		return ErrWriteOutput.With(slog.String("format", a.Format)).Wrap(err)
	}

	return nil
}
