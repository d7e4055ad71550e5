package repl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/botscript/lang"
)

// Parameter hint styles.
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	signatureSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// functionCall represents a detected function call in the input.
type functionCall struct {
	name     string // qualified callee name (e.g., "list.Add")
	argIndex int    // current argument index (0-based)
	inCall   bool   // true if cursor is inside parameter list
}

func isCalleeRune(r rune) bool {
	return r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// detectFunctionCall reports whether the cursor is inside the argument list
// of a call, and if so the callee name and the index of the argument under
// the cursor.
func detectFunctionCall(input string, cursor int) functionCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	// Scan backward for the innermost unclosed '('.
	depth := 0
	open := -1

	for i := cursor; i > 0 && open < 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				open = i
			} else {
				depth--
			}
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if !isCalleeRune(r) {
			break
		}

		start -= size
	}

	name := strings.Trim(input[start:open], ".")
	if name == "" {
		return functionCall{}
	}

	// Count commas at depth 0 in the argument list.
	argIndex := 0
	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				argIndex++
			}
		}
	}

	return functionCall{name: name, argIndex: argIndex, inCall: true}
}

// pickSignature returns the first overload that accepts an argument at
// argIndex, or the first overload when none does.
func pickSignature(sigs []lang.FunctionSignature, argIndex int) lang.FunctionSignature {
	for _, sig := range sigs {
		if len(sig.Params) > argIndex {
			return sig
		}
	}

	return sigs[0]
}

// renderSignatureHint renders sig with the parameter at currentArgIdx
// highlighted.
func renderSignatureHint(sig lang.FunctionSignature, currentArgIdx int) string {
	var b strings.Builder

	if sig.Return != nil {
		b.WriteString(signatureStyle.Render(sig.Return.String() + " "))
	}

	b.WriteString(signatureNameStyle.Render(sig.Name))
	b.WriteString(signatureStyle.Render("("))

	for i, p := range sig.Params {
		if i > 0 {
			b.WriteString(signatureSeparatorStyle.Render(", "))
		}

		if i == currentArgIdx {
			b.WriteString(currentParamStyle.Render(p.String()))
		} else {
			b.WriteString(signatureStyle.Render(p.String()))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
