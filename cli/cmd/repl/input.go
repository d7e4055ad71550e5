package repl

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl key", slog.String("key", msg.String()))

	switch {
	case key.Matches(msg, keys.Cancel):
		if m.input.Value() == "" {
			return m.quit()
		}

		m.input.SetValue("")
		m.comp.cycling = false
		m.nav.active = false
		m.histIdx = m.history.Len()
		m.refresh(false)

		return m, nil

	case key.Matches(msg, keys.Exit):
		if m.input.Value() == "" {
			return m.quit()
		}

		return m, nil

	case key.Matches(msg, keys.Submit):
		m.nav.active = false

		if m.comp.cycling && len(m.comp.matches) > 0 {
			m.comp.cycling = false
			m.refresh(true)

			return m, nil
		}

		return m.submit()

	case key.Matches(msg, keys.Next):
		return m.cycle(+1), nil

	case key.Matches(msg, keys.Prev):
		return m.cycle(-1), nil

	case key.Matches(msg, keys.OlderCmd):
		return m.browseCommands(-1), nil

	case key.Matches(msg, keys.NewerCmd):
		return m.browseCommands(+1), nil

	case key.Matches(msg, keys.OlderInMode):
		return m.browse(-1, true), nil

	case key.Matches(msg, keys.NewerInMode):
		return m.browse(+1, true), nil

	case key.Matches(msg, keys.Older):
		return m.browse(-1, false), nil

	case key.Matches(msg, keys.Newer):
		return m.browse(+1, false), nil

	case key.Matches(msg, keys.Mode):
		if m.comp.cycling {
			m.comp.cycling = false
			m.restore(m.comp.before)
			m.refresh(false)

			return m, nil
		}

		m.nav.active = false

		return m.switchMode(1 - m.mode), nil
	}

	// Typing may auto-complete a unique exact match; editing and cursor
	// movement never do.
	typing := msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace
	if !typing || msg.String() == " " {
		m.comp.cycling = false
	}

	if !typing {
		m.nav.active = false
	}

	var cmd tea.Cmd

	m.histIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refresh(typing)

	return m, cmd
}

func (m model) quit() (model, tea.Cmd) {
	m.quitting = true

	return m, tea.Quit
}

// current returns the input text and cursor.
func (m model) current() draft {
	return draft{text: m.input.Value(), cursor: m.input.Position()}
}

func (m *model) restore(d draft) {
	m.input.SetValue(d.text)
	m.input.SetCursor(d.cursor)
}

// cycle moves the candidate selection by step, writing the selected
// candidate into the input. A single candidate is accepted outright.
func (m model) cycle(step int) model {
	n := len(m.comp.matches)

	switch {
	case n == 0:
		return m

	case n == 1:
		m.replaceWord(m.comp.matches[0].Str)
		m.comp = completion{sel: -1}

		return m

	case !m.comp.cycling:
		m.comp.cycling = true
		m.comp.before = m.current()
		m.comp.sel = 0

		if step < 0 {
			m.comp.sel = n - 1
		}

	default:
		m.comp.sel = (m.comp.sel + step + n) % n
	}

	m.replaceWord(m.comp.matches[m.comp.sel].Str)

	return m
}

// replaceWord substitutes s for the word being completed.
func (m *model) replaceWord(s string) {
	in := m.input.Value()
	m.restore(draft{
		text:   in[:m.comp.start] + s + in[m.comp.end:],
		cursor: m.comp.start + len(s),
	})
	m.comp.end = m.comp.start + len(s)
}

// refresh recomputes the candidates for the word at the cursor. With
// autoConfirm, a word that already equals its only candidate is accepted.
func (m *model) refresh(autoConfirm bool) {
	cycling, before := m.comp.cycling, m.comp.before

	matches, _, funcs, start, end := m.computeMatches()
	m.comp = completion{
		matches: matches,
		funcs:   funcs,
		start:   start,
		end:     end,
		sel:     -1,
		cycling: cycling,
		before:  before,
	}

	if autoConfirm && len(matches) == 1 && m.input.Value()[start:end] == matches[0].Str {
		m.comp = completion{sel: -1}
	}
}

// switchMode saves the draft of the current mode and restores the draft of
// mode.
func (m model) switchMode(mode inputMode) model {
	if mode == m.mode {
		return m
	}

	m.drafts[m.mode] = m.current()
	m.mode = mode
	m.input.Prompt = mode.prompt()
	m.restore(m.drafts[mode])
	m.refresh(false)

	return m
}

// show loads history entry i into the input.
func (m model) show(i int) model {
	e, err := m.history.GetEntry(i)
	if err != nil {
		return m
	}

	m = m.switchMode(e.Mode)
	m.histIdx = i
	m.restore(draft{text: e.Line, cursor: len(e.Line)})
	m.refresh(false)

	return m
}

// seek returns the index of the nearest entry from the current position in
// direction step, of mode when only is set, or -1.
func (m model) seek(step int, only bool, mode inputMode) int {
	for i := m.histIdx + step; i >= 0 && i < m.history.Len(); i += step {
		e, err := m.history.GetEntry(i)
		if err == nil && (!only || e.Mode == mode) {
			return i
		}
	}

	return -1
}

// browse steps through history. Entries of either mode are shown unless
// inMode restricts the walk to the current one. Stepping past the newest
// entry clears the line.
func (m model) browse(step int, inMode bool) model {
	if i := m.seek(step, inMode, m.mode); i >= 0 {
		return m.show(i)
	}

	if step > 0 && m.histIdx < m.history.Len() {
		m.histIdx = m.history.Len()
		m.input.SetValue("")
		m.refresh(false)
	}

	return m
}

// browseCommands steps through command history from either mode. Running
// off either end restores the mode and line that were active before.
func (m model) browseCommands(step int) model {
	if !m.nav.active {
		m.nav = cmdNav{active: true, mode: m.mode, before: m.current()}
		m = m.switchMode(modeCtrl)
	}

	if i := m.seek(step, true, modeCtrl); i >= 0 {
		return m.show(i)
	}

	nav := m.nav
	m.nav.active = false
	m = m.switchMode(nav.mode)
	m.restore(nav.before)
	m.histIdx = m.history.Len()
	m.refresh(false)

	return m
}
