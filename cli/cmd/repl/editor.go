package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ardnew/botscript/lang"
	"github.com/ardnew/botscript/log"
	"github.com/ardnew/botscript/pkg"
)

const defaultEditor = "vi"

// editScriptCommand implements [tea.ExecCommand] for the edit-compile-retry
// loop. It writes the script source to a temp file, opens the user's editor,
// and compiles the result. On compile error the user is prompted to re-edit;
// declining exits the program.
type editScriptCommand struct {
	source  string
	ctxFunc func() context.Context
	compile func(ctx context.Context, src string) (session, error)
	result  *session
	logger  log.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editScriptCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editScriptCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editScriptCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the edit-compile-retry loop. If the user declines to re-edit,
// it returns [ErrEditDeclined]. An emptied file leaves result nil.
func (c *editScriptCommand) Run() error {
	ctx := c.ctxFunc()

	f, err := os.CreateTemp(os.TempDir(), pkg.Name+"-repl-*"+pkg.ScriptExt)
	if err != nil {
		return err
	}

	tmpPath := f.Name()

	defer os.Remove(tmpPath)

	if err := f.Chmod(0o600); err != nil {
		f.Close()

		return err
	}

	f.Close()

	content := c.source

	for {
		if err := os.WriteFile(tmpPath, []byte(content), 0o600); err != nil {
			return err
		}

		if err := runEditor(ctx, c.stdin, c.stdout, c.stderr, tmpPath); err != nil {
			return err
		}

		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}

		content = string(data)
		if strings.TrimSpace(content) == "" {
			return nil
		}

		sess, compileErr := c.compile(ctx, content)
		c.logger.TraceContext(
			ctx,
			"editor compile attempt",
			slog.Int("content_length", len(data)),
			slog.Bool("success", compileErr == nil),
		)

		if compileErr == nil {
			c.result = &sess

			return nil
		}

		fmt.Fprintf(c.stderr, "\nCompile error: %s\n", compileErr)

		var e *lang.Error
		if errors.As(compileErr, &e) {
			fmt.Fprint(c.stderr, e.Snippet(content))
		}

		fmt.Fprintf(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if response == "n" || response == "no" {
			return ErrEditDeclined
		}
	}
}

// runEditor launches $EDITOR on path and waits for it to exit.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	path string,
) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
