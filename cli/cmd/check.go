package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/botscript/lang"
)

// Check compiles scripts without running them.
type Check struct {
	Host `embed:""`

	Scripts []string `arg:"" help:"Script files or names on the search path." name:"script"`

	Quiet bool `help:"Only report failures." short:"q"`

	out io.Writer `kong:"-"`
}

// Run executes the check command. Every script is compiled even after a
// failure; the command fails when any script did.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	srcs, err := readScripts(ctx, c.Scripts)
	if err != nil {
		return err
	}

	sess, err := c.open(ctx, io.Discard, nil)
	if err != nil {
		return err
	}

	failed := 0

	for _, src := range srcs {
		_, err := sess.cache.Compile(ctx, src.text, sess.sigs...)
		if err != nil {
			failed++

			report(out, src, err)

			continue
		}

		if !c.Quiet {
			fmt.Fprintf(out, "ok   %s\n", src.path)
		}
	}

	sess.logger.DebugContext(ctx, "check",
		slog.Int("scripts", len(srcs)),
		slog.Int("failed", failed),
		slog.Int("compiled", sess.cache.Len()))

	if failed > 0 {
		return ErrCheck.With(slog.Int("failed", failed), slog.Int("total", len(srcs)))
	}

	return nil
}

// report writes a compile error and, when it has a position, the offending
// source line.
func report(w io.Writer, src source, err error) {
	var e *lang.Error

	if errors.As(err, &e) && e.Position().IsValid() {
		fmt.Fprintf(w, "FAIL %s: %v\n%s", src.path, err, e.Snippet(src.text))

		return
	}

	fmt.Fprintf(w, "FAIL %s: %v\n", src.path, err)
}
