package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/botscript/lang"
)

// editDoneMsg reports how an edit ended: a recompiled session, a cleared
// file (sess nil, err nil), or an error.
type editDoneMsg struct {
	sess *session
	err  error
}

// submit runs the input line in the current mode and records it in history.
func (m model) submit() (model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}

	mode := m.mode

	m.drafts = [2]draft{}
	m.input.SetValue("")
	m.comp = completion{sel: -1}

	if err := m.history.Add(line, mode); err != nil {
		m.logger.WarnContext(m.ctxFunc(), "could not save history", slog.Any("error", err))
	}

	m.histIdx = m.history.Len()

	if mode == modeCtrl {
		return m.command(line)
	}

	cmds := []tea.Cmd{tea.Println(mode.echo(line))}

	lines, err := m.evaluate(line)
	for _, l := range lines {
		cmds = append(cmds, tea.Println(l))
	}

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl eval",
		slog.String("input", line),
		slog.Bool("ok", err == nil),
		slog.Int64("steps", m.sess.rc.StepsUsed()),
	)

	return m, tea.Sequence(cmds...)
}

// evaluate runs input and returns the styled lines to print: anything the
// script printed, then the result or the error.
func (m model) evaluate(input string) ([]string, error) {
	v, t, err := m.sess.rc.Evaluate(m.ctxFunc(), input, m.cfg.Exec...)

	var lines []string

	if out := strings.TrimRight(m.cfg.Output.String(), "\n"); out != "" {
		for _, line := range strings.Split(out, "\n") {
			lines = append(lines, outputStyle.Render(line))
		}
	}

	m.cfg.Output.Reset()

	switch {
	case err != nil:
		lines = append(lines, errorStyle.Render("error: "+err.Error()))

		var e *lang.Error
		if errors.As(err, &e) {
			if snippet := e.Snippet(input); snippet != "" {
				lines = append(lines, hintStyle.Render(strings.TrimRight(snippet, "\n")))
			}
		}

	case t != nil && t != lang.Void:
		lines = append(lines,
			resultStyle.Render(v.String())+hintStyle.Render(" : "+t.String()))
	}

	return lines, err
}

// command runs a control command.
func (m model) command(line string) (model, tea.Cmd) {
	fields := strings.Fields(line)
	echo := tea.Println(modeCtrl.echo(line))

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl command",
		slog.String("command", fields[0]),
		slog.Any("args", fields[1:]),
	)

	switch fields[0] {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echo, tea.Println(helpMessage()))

	case "l", "list":
		return m, tea.Sequence(echo, tea.Println(m.listScope()))

	case "r", "reset":
		sess, err := compile(m.ctxFunc(), m.cfg, m.sess.source)
		if err != nil {
			return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
		}

		m.sess = sess

		return m, tea.Sequence(echo, tea.Println(resultStyle.Render("✔ globals reset")))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echo, m.edit())

	default:
		return m, tea.Println(
			errorStyle.Render("unknown command: " + fields[0] + " (try 'help')"),
		)
	}
}

// edit suspends the program to edit the script source in $EDITOR.
func (m model) edit() tea.Cmd {
	cmd := &editScriptCommand{
		source:  m.sess.source,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
		compile: func(ctx context.Context, src string) (session, error) {
			return compile(ctx, m.cfg, src)
		},
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		return editDoneMsg{sess: cmd.result, err: err}
	})
}

func (m model) editDone(msg editDoneMsg) (model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, ErrEditDeclined):
		return m.quit()

	case msg.err != nil:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))

	case msg.sess == nil:
		return m, tea.Println(hintStyle.Render("edit cancelled"))
	}

	m.sess = *msg.sess
	m.logger.TraceContext(
		m.ctxFunc(),
		"repl edit complete",
		slog.Int("source_bytes", len(m.sess.source)),
	)

	return m, tea.Println(resultStyle.Render("✔ script recompiled"))
}

// listScope renders the host variables, script globals, functions, and
// classes visible to input.
func (m model) listScope() string {
	var b strings.Builder

	section := func(title string, rows []string) {
		if len(rows) == 0 {
			return
		}

		b.WriteString(hintStyle.Render(title) + "\n")

		for _, row := range rows {
			b.WriteString("  " + row + "\n")
		}
	}

	global := func(name string) string {
		v, t, ok := m.sess.rc.Global(name)
		if !ok {
			return name
		}

		return fmt.Sprintf("%s %s = %s", hintStyle.Render(t.String()), name, v)
	}

	rows := func(names []string, f func(string) string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = f(n)
		}

		return out
	}

	sigs := func(list []lang.FunctionSignature) []string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.String()
		}

		return out
	}

	section("host variables", rows(m.cfg.Global.Variables(), global))
	section("script globals", rows(m.sess.script.Globals(), global))
	section("host functions", sigs(m.cfg.Global.Functions()))
	section("script functions", sigs(m.sess.script.Functions()))
	section("script classes", m.sess.script.Classes())

	return strings.TrimRight(b.String(), "\n")
}
