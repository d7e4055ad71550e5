package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles used by the pretty text handler. Styles are bound
// to a renderer for the handler's writer, so colors are dropped automatically
// when the writer is not a terminal.
type palette struct {
	time, key, source, message lipgloss.Style
	str, number, boolean, null lipgloss.Style
	level                      map[Level]lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}

	return &palette{
		time:    fg("8"),
		key:     fg("8"),
		source:  fg("5").Faint(true),
		message: r.NewStyle().Bold(true),
		str:     fg("6"),
		number:  fg("3"),
		boolean: fg("2"),
		null:    fg("8"),
		level: map[Level]lipgloss.Style{
			LevelTrace: fg("4").Faint(true),
			LevelDebug: fg("4"),
			LevelInfo:  fg("2"),
			LevelWarn:  fg("3"),
			LevelError: fg("1").Bold(true),
		},
	}
}

func (p *palette) levelStyle(l Level) lipgloss.Style {
	switch {
	case l >= LevelError:
		return p.level[LevelError]
	case l >= LevelWarn:
		return p.level[LevelWarn]
	case l >= LevelInfo:
		return p.level[LevelInfo]
	case l >= LevelDebug:
		return p.level[LevelDebug]
	default:
		return p.level[LevelTrace]
	}
}

// prettyTextHandler writes one line per record:
//
//	TIME LEVEL [file:line] message key=value ...
//
// Group attributes are flattened into dotted keys.
type prettyTextHandler struct {
	cfg    config
	colors *palette
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr // already qualified by group
	group  string
}

func newPrettyTextHandler(w io.Writer, cfg config) *prettyTextHandler {
	return &prettyTextHandler{
		cfg:    cfg,
		colors: newPalette(w),
		mu:     &sync.Mutex{},
		w:      w,
	}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.Level(h.cfg.level)
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		if ts := h.cfg.formatTime(r.Time); ts != "" {
			buf.WriteString(h.colors.time.Render(ts))
			buf.WriteByte(' ')
		}
	}

	level := Level(r.Level)
	name := strings.ToUpper(level.String())
	buf.WriteString(h.colors.levelStyle(level).Render(fmt.Sprintf("%-5s", name)))
	buf.WriteByte(' ')

	if h.cfg.caller && r.PC != 0 {
		if src := r.Source(); src != nil {
			loc := filepath.Base(src.File) + ":" + strconv.Itoa(src.Line)
			buf.WriteString(h.colors.source.Render(loc))
			buf.WriteByte(' ')
		}
	}

	buf.WriteString(h.colors.message.Render(r.Message))

	for _, a := range h.attrs {
		h.writeAttr(&buf, "", a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.group, a)

		return true
	})

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)

	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}

		c.attrs = append(c.attrs, a)
	}

	return &c
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	if c.group != "" {
		c.group += "."
	}

	c.group += name

	return &c
}

func (h *prettyTextHandler) writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			h.writeAttr(buf, key, g)
		}

		return
	}

	buf.WriteByte(' ')
	buf.WriteString(h.colors.key.Render(key + "="))
	buf.WriteString(h.renderValue(a.Value))
}

func (h *prettyTextHandler) renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			s = strconv.Quote(s)
		}

		return h.colors.str.Render(s)

	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindDuration:
		return h.colors.number.Render(v.String())

	case slog.KindBool:
		return h.colors.boolean.Render(v.String())

	case slog.KindAny:
		if v.Any() == nil {
			return h.colors.null.Render("<nil>")
		}

		if err, ok := v.Any().(error); ok {
			return h.colors.str.Render(strconv.Quote(err.Error()))
		}

		return h.colors.str.Render(fmt.Sprint(v.Any()))

	default:
		return h.colors.str.Render(v.String())
	}
}

// indentHandler renders records with slog's JSON handler and re-indents the
// result, one multi-line object per record.
type indentHandler struct {
	inner slog.Handler
	buf   *bytes.Buffer
	mu    *sync.Mutex
	w     io.Writer
}

func newIndentHandler(w io.Writer, opts *slog.HandlerOptions) *indentHandler {
	buf := new(bytes.Buffer)

	return &indentHandler{
		inner: slog.NewJSONHandler(buf, opts),
		buf:   buf,
		mu:    &sync.Mutex{},
		w:     w,
	}
}

func (h *indentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *indentHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()

	err := h.inner.Handle(ctx, r)
	if err != nil {
		return err
	}

	var out bytes.Buffer

	err = json.Indent(&out, bytes.TrimSpace(h.buf.Bytes()), "", "  ")
	if err != nil {
		return err
	}

	out.WriteByte('\n')

	_, err = h.w.Write(out.Bytes())

	return err
}

func (h *indentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &indentHandler{inner: h.inner.WithAttrs(attrs), buf: h.buf, mu: h.mu, w: h.w}
}

func (h *indentHandler) WithGroup(name string) slog.Handler {
	return &indentHandler{inner: h.inner.WithGroup(name), buf: h.buf, mu: h.mu, w: h.w}
}
