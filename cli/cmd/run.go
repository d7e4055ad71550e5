package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/ardnew/botscript/lang"
)

// Run compiles a script, prepares it, and calls one of its functions.
type Run struct {
	Host `embed:""`

	Script string   `arg:"" help:"Script file, script name on the search path, or '-' for stdin."`
	Entry  string   `arg:"" help:"Function to call."                                         default:"Main" optional:""`
	Args   []string `arg:"" help:"Arguments converted to the function's parameter types."                   optional:""`

	out io.Writer `kong:"-"`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	out := r.out
	if out == nil {
		out = os.Stdout
	}

	src, err := readScript(ctx, r.Script)
	if err != nil {
		return err
	}

	sess, err := r.open(ctx, out, r.Args)
	if err != nil {
		return err
	}

	script, err := sess.cache.Compile(ctx, src.text, sess.sigs...)
	if err != nil {
		return ErrCompile.With(slog.String("script", src.path)).Wrap(err)
	}

	rc, err := script.Prepare(ctx, sess.gc)
	if err != nil {
		return ErrExecute.With(slog.String("script", src.path)).Wrap(err)
	}

	sig, err := entryPoint(script, r.Entry, len(r.Args))
	if err != nil {
		return err
	}

	args, err := parseArgs(sig, r.Args)
	if err != nil {
		return err
	}

	result, err := script.ExecuteFunction(ctx, rc, r.Entry, args, sess.exec...)
	if err != nil {
		return ErrExecute.
			With(
				slog.String("script", src.path),
				slog.String("function", r.Entry),
				slog.Int64("steps", rc.StepsUsed()),
			).
			Wrap(err)
	}

	if sig.Return == nil || sig.Return == lang.Void {
		return nil
	}

	_, err = fmt.Fprintln(out, result)
	if err != nil {
		return ErrWriteOutput.Wrap(err)
	}

	return nil
}

// entryPoint finds the overload of name taking n parameters.
func entryPoint(s *lang.Script, name string, n int) (lang.FunctionSignature, error) {
	funcs := s.Functions()

	i := slices.IndexFunc(funcs, func(sig lang.FunctionSignature) bool {
		return sig.Name == name && len(sig.Params) == n
	})
	if i < 0 {
		return lang.FunctionSignature{}, ErrArguments.
			With(slog.String("function", name), slog.Int("arguments", n)).
			Wrap(lang.ErrEntryPoint.Withf("no function '%s' takes %d argument(s)", name, n))
	}

	return funcs[i], nil
}
