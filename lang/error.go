package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
//
// Every error produced by the engine derives from exactly one of these, so
// callers classify failures with [errors.Is].
var (
	ErrLex        = NewError("lex error")
	ErrParse      = NewError("parse error")
	ErrBinding    = NewError("binding error")
	ErrRuntime    = NewError("runtime error")
	ErrAborted    = NewError("script aborted")
	ErrEntryPoint = NewError("entry point error")
	ErrRegister   = NewError("registration error")
	ErrReadInput  = NewError("failed to read input")
)

// Position identifies a location in source text.
// Offset is a 0-based byte offset; Line and Column are 1-based.
type Position struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line"   yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// IsValid reports whether p refers to an actual source location.
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}

	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Error represents an engine error with optional source position and
// structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg    string
	detail string
	err    error // Wrapped error (for errors.Unwrap)
	kind   *Error
	pos    Position
	attrs  []slog.Attr
}

// NewError creates a new sentinel Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
// An error chain already containing an *Error is returned unchanged.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// derive returns a copy of e that still matches e's sentinel.
func (e *Error) derive() *Error {
	d := *e
	if d.kind == nil {
		d.kind = e
	}

	return &d
}

// Error implements the error interface.
func (e *Error) Error() string {
	//   "<msg> at <line>:<col>: <detail>: <err>"
	//
	// Each part is omitted when unset.
	var sb strings.Builder

	sb.WriteString(e.msg)

	if e.pos.IsValid() {
		if sb.Len() > 0 {
			sb.WriteString(" at ")
		}

		sb.WriteString(e.pos.String())
	}

	for _, s := range []string{e.detail, e.cause()} {
		if s == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString(": ")
		}

		sb.WriteString(s)
	}

	return sb.String()
}

func (e *Error) cause() string {
	if e.err == nil {
		return ""
	}

	return e.err.Error()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is e itself or the sentinel e derives from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e == t || (e.kind != nil && e.kind == t)
}

// Position returns the source location attached to e, if any.
func (e *Error) Position() Position { return e.pos }

// Detail returns the error's message without sentinel prefix or position.
func (e *Error) Detail() string { return e.detail }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+4)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.pos.IsValid() {
		attrs = append(attrs,
			slog.Int("line", e.pos.Line),
			slog.Int("column", e.pos.Column),
		)
	}

	if e.detail != "" {
		attrs = append(attrs, slog.String("detail", e.detail))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// At returns a copy of e located at pos.
func (e *Error) At(pos Position) *Error {
	d := e.derive()
	d.pos = pos

	return d
}

// Withf returns a copy of e carrying a formatted detail message.
func (e *Error) Withf(format string, args ...any) *Error {
	d := e.derive()
	d.detail = fmt.Sprintf(format, args...)

	return d
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	d := e.derive()
	d.err = err

	return d
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	d := e.derive()
	d.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(d.attrs, e.attrs)
	copy(d.attrs[len(e.attrs):], attrs)

	return d
}

// Snippet renders the source line containing e's position followed by a
// caret under the offending column. It returns "" when e has no position or
// the position lies outside source.
func (e *Error) Snippet(source string) string {
	if !e.pos.IsValid() {
		return ""
	}

	lines := strings.Split(source, "\n")
	if e.pos.Line > len(lines) {
		return ""
	}

	var sb strings.Builder

	num := strconv.Itoa(e.pos.Line)
	line := strings.TrimRight(lines[e.pos.Line-1], "\r")

	sb.WriteString("  ")
	sb.WriteString(num)
	sb.WriteString(" | ")
	sb.WriteString(line)
	sb.WriteByte('\n')

	// 2 leading spaces + " | " (3 chars)
	pad := len(num) + 5
	if e.pos.Column > 0 {
		pad += e.pos.Column - 1
	}

	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString("^\n")

	return sb.String()
}
