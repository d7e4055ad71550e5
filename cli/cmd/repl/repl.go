package repl

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/botscript/lang"
	"github.com/ardnew/botscript/log"
)

// HistoryFile is the base name of the history file in the cache directory.
const HistoryFile = "history.utf8"

// Config describes one REPL session.
type Config struct {
	// Global is the host surface the script is compiled against.
	Global *lang.GlobalContext
	// Name labels the script in messages; Source is its text. An empty
	// Source starts a session with only host declarations in scope.
	Name   string
	Source string
	// Entries are the entry points the script must define.
	Entries []lang.FunctionSignature
	// Exec configures every evaluation.
	Exec []lang.ExecOption
	// Output collects what host functions print. It is drained after each
	// evaluation.
	Output *bytes.Buffer
	// History is the path of the history file.
	History string
	Logger  log.Logger
}

// session is a compiled script and the runtime context evaluations use.
type session struct {
	source string
	script *lang.Script
	rc     *lang.RuntimeContext
}

// compile builds a session from source.
func compile(ctx context.Context, cfg Config, source string) (session, error) {
	script, err := lang.LexAndParse(ctx, source, cfg.Global, cfg.Entries...)
	if err != nil {
		return session{}, err
	}

	rc, err := script.Prepare(ctx, cfg.Global)
	if err != nil {
		return session{}, err
	}

	return session{source: source, script: script, rc: rc}, nil
}

// inputMode selects what a submitted line is: a snippet to evaluate or a
// control command.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

// Styles.
var (
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	outputStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

func (m inputMode) prompt() string {
	if m == modeCtrl {
		return ctrlPromptStyle.Render(ctrlPrompt)
	}

	return promptStyle.Render(evalPrompt)
}

// echo renders a submitted line as it appeared at the prompt.
func (m inputMode) echo(line string) string {
	return m.prompt() + inputStyle.Render(line)
}

// draft is the unsubmitted text of one mode.
type draft struct {
	text   string
	cursor int
}

// completion is the state of the candidate bar.
type completion struct {
	matches    fuzzy.Matches
	funcs      map[string]bool // callable candidates
	start, end int             // byte span of the word being completed
	sel        int             // selected match while cycling, else -1
	cycling    bool
	before     draft // input before cycling began
}

// cmdNav is the state of Alt+Up/Down command-history navigation.
type cmdNav struct {
	active bool
	mode   inputMode
	before draft
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc func() context.Context
	cfg     Config
	sess    session
	logger  log.Logger

	input   textinput.Model
	mode    inputMode
	drafts  [2]draft
	comp    completion
	nav     cmdNav
	history *History
	histIdx int // history.Len() when not browsing

	width    int
	quitting bool
}

// Run compiles the configured script and starts the REPL.
func Run(ctx context.Context, cfg Config) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if cfg.Global == nil {
		return ErrNoGlobal
	}

	logger := cfg.Logger

	sess, err := compile(ctx, cfg, cfg.Source)
	if err != nil {
		return err
	}

	history := NewHistory(cfg.History)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history", slog.Any("error", err))
	}

	logger.TraceContext(
		ctx,
		"repl start",
		slog.String("script", cfg.Name),
		slog.Int("globals", len(sess.script.Globals())),
		slog.Int("functions", len(sess.script.Functions())),
		slog.String("history", cfg.History),
		slog.Int("history_entries", history.Len()),
	)

	_, err = tea.NewProgram(
		newModel(ctx, cfg, sess, history),
		tea.WithContext(ctx),
	).Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	cfg Config,
	sess session,
	history *History,
) model {
	if cfg.Output == nil {
		cfg.Output = new(bytes.Buffer)
	}

	ti := textinput.New()
	ti.Prompt = modeEval.prompt()
	ti.CharLimit = 1024
	ti.Width = defaultWidth
	ti.Focus()

	return model{
		ctxFunc: func() context.Context { return ctx },
		cfg:     cfg,
		sess:    sess,
		logger:  cfg.Logger,
		input:   ti,
		mode:    modeEval,
		comp:    completion{sel: -1},
		history: history,
		histIdx: history.Len(),
		width:   defaultWidth,
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editDoneMsg:
		return m.editDone(msg)
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	return m.input.View() + "\n" + m.hint() + "\n"
}

// hint renders the line below the input: the history position while
// browsing, usage help on an empty line, the signature of the call under
// the cursor, or the candidate bar.
func (m model) hint() string {
	if m.histIdx < m.history.Len() {
		pos := lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.histIdx + 1))

		return hintStyle.Render(fmt.Sprintf("%s/%d", pos, m.history.Len()))
	}

	if strings.TrimSpace(m.input.Value()) == "" {
		if m.mode == modeCtrl {
			return hintStyle.Render("Type a command (help lists them), or press Esc to evaluate")
		}

		return hintStyle.Render("Type an expression or statement, or press Esc for commands")
	}

	if m.mode == modeEval {
		call := detectFunctionCall(m.input.Value(), m.input.Position())
		if call.inCall {
			if sigs := m.signatures(call.name); len(sigs) > 0 {
				return renderSignatureHint(pickSignature(sigs, call.argIndex), call.argIndex)
			}
		}
	}

	return renderCandidateBar(m.comp.matches, m.comp.funcs, m.comp.sel, m.comp.cycling, m.width)
}
