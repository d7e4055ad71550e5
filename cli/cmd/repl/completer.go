package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/botscript/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = func() []string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}

	return names
}()

// isWordBoundary reports whether r delimits a completion word: whitespace,
// the member-access dot, or any operator and punctuation of the language.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%', '^', '~',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';',
		'"', '\'', '$':
		return true
	}

	return false
}

// wordBounds returns the current word at the cursor position and its byte
// boundaries within input. Returns an empty word when the cursor sits on a
// boundary (after a space, after a dot, start of line, etc.).
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	word = input[start:end]

	return word, start, end
}

// parentPath returns the dot-separated member-access chain leading up to the
// current word. For input "x + bot.Items.Co" with the word "Co", the parent
// path is "bot.Items". Returns "" for words not preceded by a dot.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")

	end := len(prefix)
	pos := end

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.TrimSpace(prefix[pos:end])
}

// scope is the set of names completion and signature hints draw from.
type scope struct {
	gc     *lang.GlobalContext
	script *lang.Script
	rc     *lang.RuntimeContext
}

// functionNames returns the names of every top-level function.
func (s scope) functionNames() []string {
	var names []string

	for _, sig := range s.script.Functions() {
		names = append(names, sig.Name)
	}

	for _, sig := range s.gc.Functions() {
		names = append(names, sig.Name)
	}

	return names
}

// topLevel returns the candidates for a word with no member-access parent.
func (s scope) topLevel() (names []string, funcs map[string]bool) {
	funcs = make(map[string]bool)

	for _, name := range s.functionNames() {
		funcs[name] = true
		names = append(names, name)
	}

	names = append(names, s.script.Globals()...)
	names = append(names, s.gc.Variables()...)
	names = append(names, s.script.Classes()...)
	names = append(names, s.gc.Classes().Names()...)
	names = append(names, lang.Keywords()...)

	slices.Sort(names)

	return slices.Compact(names), funcs
}

// class resolves the first segment of a member-access chain: a registered
// class name (static access) or a global whose type has a class.
func (s scope) class(name string) (*lang.Class, bool) {
	if c, ok := s.gc.Classes().Lookup(name); ok {
		return c, true
	}

	if _, t, ok := s.rc.Global(name); ok && t != nil && t.Class() != nil {
		return t.Class(), true
	}

	return nil, false
}

// members returns the candidates after "parent.". Only single-segment
// parents resolve, since member types past the first hop are not tracked.
func (s scope) members(parent string) (names []string, funcs map[string]bool) {
	if strings.Contains(parent, ".") {
		return nil, nil
	}

	c, ok := s.class(parent)
	if !ok {
		return nil, nil
	}

	funcs = make(map[string]bool)
	names = c.MemberNames()

	for _, name := range names {
		if len(c.Signatures(name)) > 0 {
			funcs[name] = true
		}
	}

	return names, funcs
}

// signatures returns the overloads of a top-level function or of a
// "Owner.Method" member.
func (s scope) signatures(name string) []lang.FunctionSignature {
	if owner, member, ok := strings.Cut(name, "."); ok {
		c, found := s.class(owner)
		if !found {
			return nil
		}

		return c.Signatures(member)
	}

	var out []lang.FunctionSignature

	for _, group := range [][]lang.FunctionSignature{
		s.script.Functions(),
		s.gc.Functions(),
	} {
		for _, sig := range group {
			if sig.Name == name {
				out = append(out, sig)
			}
		}
	}

	return out
}

func (m model) scope() scope {
	return scope{gc: m.cfg.Global, script: m.sess.script, rc: m.sess.rc}
}

func (m model) signatures(name string) []lang.FunctionSignature {
	return m.scope().signatures(name)
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor, ranked best-first, with the candidate list, the callable subset,
// and the word boundaries. An empty top-level word yields no matches; an
// empty word after a dot yields every member.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	funcs map[string]bool,
	wordStart, wordEnd int,
) {
	input := m.input.Value()
	cursor := m.input.Position()

	word, wordStart, wordEnd := wordBounds(input, cursor)

	if m.mode == modeCtrl {
		if word == "" {
			return nil, nil, nil, wordStart, wordEnd
		}

		candidates = ctrlCommands
	} else {
		sc := m.scope()

		parent := parentPath(input, wordStart)
		if parent == "" {
			candidates, funcs = sc.topLevel()
		} else {
			candidates, funcs = sc.members(parent)
		}

		if word == "" {
			if parent == "" || len(candidates) == 0 {
				return nil, nil, nil, wordStart, wordEnd
			}

			matches = make(fuzzy.Matches, len(candidates))
			for i, c := range candidates {
				matches[i] = fuzzy.Match{Str: c, Index: i}
			}

			return matches, candidates, funcs, wordStart, wordEnd
		}
	}

	if len(candidates) == 0 {
		return nil, nil, nil, wordStart, wordEnd
	}

	matches = fuzzy.Find(word, candidates)

	return matches, candidates, funcs, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within the given terminal width. The selected candidate (when tabbing) uses
// the selected style.
func renderCandidateBar(
	matches fuzzy.Matches,
	funcs map[string]bool,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		selected := tabActive && i == suggIdx
		rendered := renderCandidate(match, funcs[match.Str], selected)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted. Callables are displayed with a "()" suffix that is not part of
// the completion.
func renderCandidate(match fuzzy.Match, callable, selected bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	matchSet := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matchSet[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		ch := string(r)
		if matchSet[i] {
			b.WriteString(highlightStyle.Render(ch))
		} else {
			b.WriteString(baseStyle.Render(ch))
		}
	}

	if callable {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}
