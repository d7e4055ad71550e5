package lang

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Script is a compiled unit: the syntax tree, the bound functions and
// classes, and the global declarations. A Script is safe for concurrent
// use; every execution runs against its own [RuntimeContext].
type Script struct {
	source string
	file   *File
	gc     *GlobalContext
	sigs   []FunctionSignature

	// mu guards the binder, which snippets evaluated by
	// [RuntimeContext.Evaluate] extend with new instantiations.
	mu sync.Mutex
	b  *binder
}

// withSnippet attaches the offending source line to an engine error.
func withSnippet(err error, src string) error {
	var e *Error
	if errors.As(err, &e) && e.pos.IsValid() {
		return e.With(slog.String("snippet", e.Snippet(src)))
	}

	return err
}

// LexAndParse compiles source against gc. Every signature in sigs must be
// defined by the script with the same shape.
func LexAndParse(
	ctx context.Context,
	source string,
	gc *GlobalContext,
	sigs ...FunctionSignature,
) (*Script, error) {
	start := time.Now()
	logger := gc.opts.logger

	toks, err := Tokenize(source)
	if err != nil {
		return nil, withSnippet(err, source)
	}

	logger.TraceContext(ctx, "tokenize", slog.Int("tokens", len(toks)))

	file, err := parseWith(ctx, logger, toks, sigs...)
	if err != nil {
		return nil, withSnippet(err, source)
	}

	b, err := bindFile(ctx, gc, file, sigs)
	if err != nil {
		return nil, withSnippet(err, source)
	}

	s := &Script{source: source, file: file, gc: gc, sigs: sigs, b: b}

	logger.DebugContext(ctx, "compile",
		slog.Int("globals", len(b.globals)),
		slog.Int("functions", len(b.funcs)),
		slog.Int("classes", len(b.classes)),
		durationAttr(start))

	return s, nil
}

// Source returns the source text of s.
func (s *Script) Source() string { return s.source }

// File returns the syntax tree of s.
func (s *Script) File() *File { return s.file }

// Signatures returns the entry-point signatures s was validated against.
func (s *Script) Signatures() []FunctionSignature { return slices.Clone(s.sigs) }

func (s *Script) global(name string) (int, *globalSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.b.gindex[name]
	if !ok {
		return 0, nil, false
	}

	return i, s.b.globals[i], true
}

// Globals returns the names of the script's globals and consts in
// declaration order.
func (s *Script) Globals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string

	for _, g := range s.b.globals {
		if g.decl != nil {
			out = append(out, g.name)
		}
	}

	return out
}

// Functions returns the signatures of the non-generic top-level functions.
func (s *Script) Functions() []FunctionSignature {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []FunctionSignature

	for _, name := range sortedKeys(s.b.funcs) {
		for _, tmpl := range s.b.funcs[name] {
			if inst, ok := tmpl.insts[""]; ok && len(tmpl.decl.TypeParams) == 0 {
				out = append(out, inst.signature())
			}
		}
	}

	return out
}

// Classes returns the names of the script's class instantiations.
func (s *Script) Classes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return sortedKeys(s.b.classes)
}

// Prepare allocates the globals of s against gc and runs their
// initializers in source order. Globals declared by the host share the
// host's cell and keep its value.
func (s *Script) Prepare(ctx context.Context, gc *GlobalContext) (*RuntimeContext, error) {
	start := time.Now()

	s.mu.Lock()
	slots := slices.Clone(s.b.globals)
	s.mu.Unlock()

	rc := &RuntimeContext{
		script:   s,
		gc:       gc,
		globals:  make([]*Cell, len(slots)),
		maxDepth: gc.opts.maxDepth,
		logger:   gc.opts.logger,
	}

	for i, slot := range slots {
		if !slot.host {
			rc.globals[i] = NewCell(zeroValue(slot.t))

			continue
		}

		hv, ok := gc.variable(slot.name)
		if !ok || hv.t != slot.t {
			return nil, ErrBinding.Withf("host variable '%s' of type %s is not declared", slot.name, slot.t)
		}

		rc.globals[i] = hv.cell
	}

	budget := NewBudget(ctx, 0)
	m := newMachine(ctx, rc, budget)

	for i, slot := range slots {
		if slot.host || slot.init == nil {
			continue
		}

		v, err := m.eval(slot.init)
		if err != nil {
			return nil, err
		}

		rc.globals[i].v = v
	}

	rc.last = budget

	rc.logger.DebugContext(ctx, "prepare",
		slog.Int("globals", len(slots)),
		slog.Int64("steps", budget.Used()),
		durationAttr(start))

	return rc, nil
}

// ExecOption configures one execution.
type ExecOption func(*execOptions)

type execOptions struct {
	steps int64
	depth int
}

// WithStepLimit aborts the execution with [ErrAborted] after n steps. One
// step is charged per statement, loop iteration, and call.
func WithStepLimit(n int64) ExecOption {
	return func(o *execOptions) { o.steps = n }
}

// WithCallDepth overrides the maximum call depth for one execution.
func WithCallDepth(n int) ExecOption {
	return func(o *execOptions) { o.depth = n }
}

// ExecuteFunction calls the top-level function name with args. Arguments
// convert to the parameter types; ref and out parameters receive fresh
// cells.
func (s *Script) ExecuteFunction(
	ctx context.Context,
	rc *RuntimeContext,
	name string,
	args []Value,
	opts ...ExecOption,
) (Value, error) {
	cells := make([]*Cell, len(args))
	for i, a := range args {
		cells[i] = NewCell(a)
	}

	return s.execute(ctx, rc, name, cells, opts)
}

// Execute calls the top-level function name and converts the result to R.
// Arguments are Go values converted with [ToValue], [Value]s, or *[Cell]s,
// which alias ref and out parameters. [ExecOption] values among args
// configure the call.
func Execute[R any](
	ctx context.Context,
	s *Script,
	rc *RuntimeContext,
	name string,
	args ...any,
) (R, error) {
	var (
		zero  R
		opts  []ExecOption
		cells []*Cell
	)

	for _, a := range args {
		switch a := a.(type) {
		case ExecOption:
			opts = append(opts, a)
		case *Cell:
			cells = append(cells, a)
		case Value:
			cells = append(cells, NewCell(a))
		default:
			v, err := ToValue(a)
			if err != nil {
				return zero, ErrEntryPoint.Wrap(err)
			}

			cells = append(cells, NewCell(v))
		}
	}

	v, err := s.execute(ctx, rc, name, cells, opts)
	if err != nil {
		return zero, err
	}

	return FromValue[R](v)
}

// entry finds the top-level function name accepting the argument cells,
// preferring parameters whose types match the argument values exactly.
func (s *Script) entry(name string, cells []*Cell) (*funcInst, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpls, ok := s.b.funcs[name]
	if !ok {
		return nil, ErrEntryPoint.Withf("function '%s' is not defined", name)
	}

	var (
		best  *funcInst
		score = -1
	)

	for _, tmpl := range tmpls {
		inst, ok := tmpl.insts[""]
		if !ok || len(tmpl.decl.TypeParams) > 0 || len(inst.params) != len(cells) {
			continue
		}

		exact, fits := 0, true

		for i, p := range inst.params {
			if p.Mod == ByOut {
				continue
			}

			if checkValue(cells[i].v, p.Type) != nil {
				fits = false

				break
			}

			if valueMatches(cells[i].v, p.Type) {
				exact++
			}
		}

		if fits && exact > score {
			best, score = inst, exact
		}
	}

	if best == nil {
		return nil, ErrEntryPoint.Withf("no function '%s' accepts %d argument(s) of the given types",
			name, len(cells))
	}

	return best, nil
}

// valueMatches reports whether v has exactly the representation of t.
func valueMatches(v Value, t *Type) bool {
	switch t.kind {
	case KindInt, KindEnum:
		return v.kind == vInt
	case KindFloat:
		return v.kind == vFloat
	case KindDouble:
		return v.kind == vDouble
	case KindBool:
		return v.kind == vBool
	}

	return instanceOf(v, t)
}

func (s *Script) execute(
	ctx context.Context,
	rc *RuntimeContext,
	name string,
	cells []*Cell,
	opts []ExecOption,
) (Value, error) {
	if rc == nil || rc.script != s {
		return NullValue, ErrEntryPoint.Withf("runtime context was not prepared from this script")
	}

	var cfg execOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	fn, err := s.entry(name, cells)
	if err != nil {
		return NullValue, err
	}

	if err := ctx.Err(); err != nil {
		return NullValue, ErrAborted.Wrap(context.Cause(ctx))
	}

	start := time.Now()
	slots := make([]*Cell, fn.nslots)

	for i, p := range fn.params {
		if p.Mod != ByValue {
			slots[i] = cells[i]

			continue
		}

		slots[i] = NewCell(convertValue(cells[i].v, p.Type))
	}

	budget := NewBudget(ctx, cfg.steps)
	rc.last = budget

	m := newMachine(ctx, rc, budget)
	if cfg.depth > 0 {
		m.maxDepth = cfg.depth
	}

	v, err := m.run(fn, &frame{slots: slots})

	attrs := []slog.Attr{
		slog.String("function", fn.name),
		slog.Int64("steps", budget.Used()),
		durationAttr(start),
	}

	if err != nil {
		rc.logger.DebugContext(ctx, "execute failed", append(attrs, slog.Any("error", err))...)

		return NullValue, err
	}

	rc.logger.DebugContext(ctx, "execute", attrs...)

	return v, nil
}

// Evaluate runs a snippet against the prepared globals of rc: either a
// single expression, whose value and type are returned, or a sequence of
// statements, which yields void.
func (rc *RuntimeContext) Evaluate(ctx context.Context, src string, opts ...ExecOption) (Value, *Type, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return NullValue, nil, withSnippet(err, src)
	}

	x, stmts, err := parseSnippet(rc.logger, toks)
	if err != nil {
		return NullValue, nil, withSnippet(err, src)
	}

	inst, err := rc.script.bindSnippet(ctx, x, stmts)
	if err != nil {
		return NullValue, nil, withSnippet(err, src)
	}

	if err := rc.syncGlobals(); err != nil {
		return NullValue, nil, err
	}

	var cfg execOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	budget := NewBudget(ctx, cfg.steps)
	rc.last = budget

	m := newMachine(ctx, rc, budget)
	if cfg.depth > 0 {
		m.maxDepth = cfg.depth
	}

	v, err := m.run(inst, &frame{slots: make([]*Cell, inst.nslots)})
	if err != nil {
		return NullValue, nil, err
	}

	return v, inst.ret, nil
}

// bindSnippet binds interactive input as the body of an anonymous function.
func (s *Script) bindSnippet(ctx context.Context, x Expr, stmts []Stmt) (*funcInst, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.b
	inst := &funcInst{name: "<eval>", ret: Void}

	b.ctx = ctx
	b.fn = &fnScope{inst: inst, scopes: []map[string]localVar{{}}}

	defer func() { b.fn = nil }()

	if x != nil {
		bx, err := b.bindExpr(x)
		if err != nil {
			return nil, err
		}

		inst.ret = bx.typ()

		if inst.ret == Void {
			inst.body = &bExprStmt{x: bx}
		} else {
			inst.body = &bReturn{x: bx}
		}
	} else {
		body, err := b.bindBlock(&Block{Stmts: stmts})
		if err != nil {
			return nil, err
		}

		inst.body = body
	}

	inst.nslots = b.fn.nslots

	if err := b.drain(); err != nil {
		b.queue = nil

		return nil, err
	}

	return inst, nil
}

// syncGlobals adds cells for host variables first referenced by a snippet.
func (rc *RuntimeContext) syncGlobals() error {
	s := rc.script

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(rc.globals); i < len(s.b.globals); i++ {
		slot := s.b.globals[i]

		hv, ok := rc.gc.variable(slot.name)
		if !ok {
			return ErrBinding.Withf("host variable '%s' is not declared", slot.name)
		}

		rc.globals = append(rc.globals, hv.cell)
	}

	return nil
}
