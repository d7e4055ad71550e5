package lang

import (
	"context"
	"errors"
)

// Signal is the completion state of a statement.
type Signal uint8

// Statement completions. Loops consume Break and Continue; function frames
// consume Return.
const (
	SignalNormal Signal = iota
	SignalBreak
	SignalContinue
	SignalReturn
)

func (s Signal) String() string {
	switch s {
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalReturn:
		return "return"
	default:
		return "normal"
	}
}

// machine evaluates bound trees for one entry-point call.
type machine struct {
	ctx    context.Context
	rc     *RuntimeContext
	budget *Budget
	depth  int
	frame  *frame

	// maxDepth bounds depth; it defaults to the RuntimeContext limit.
	maxDepth int

	// ret carries the value of the most recent SignalReturn.
	ret Value
}

// frame is the storage of one function activation. Parameter cells come
// first; ref and out parameters alias the caller's cell.
type frame struct {
	slots []*Cell
	this  Value
}

func newMachine(ctx context.Context, rc *RuntimeContext, budget *Budget) *machine {
	return &machine{ctx: ctx, rc: rc, budget: budget, frame: &frame{}, maxDepth: rc.maxDepth}
}

func (m *machine) fault(at Position, format string, args ...any) error {
	return ErrRuntime.At(at).Withf(format, args...)
}

// hostError classifies an error returned by host code.
func hostError(err error, at Position) error {
	if errors.Is(err, ErrAborted) || errors.Is(err, ErrRuntime) {
		var e *Error
		if errors.As(err, &e) && !e.pos.IsValid() {
			return e.At(at)
		}

		return err
	}

	return ErrRuntime.At(at).Wrap(err)
}

func (m *machine) exec(s bstmt) (Signal, error) {
	switch s := s.(type) {
	case nil:
		return SignalNormal, nil

	case *bBlock:
		for _, st := range s.stmts {
			sig, err := m.exec(st)
			if err != nil || sig != SignalNormal {
				return sig, err
			}
		}

		return SignalNormal, nil
	}

	if err := m.budget.Charge(1); err != nil {
		return SignalNormal, err
	}

	switch s := s.(type) {
	case *bExprStmt:
		_, err := m.eval(s.x)

		return SignalNormal, err

	case *bLocalDecl:
		v := zeroValue(s.t)

		if s.init != nil {
			var err error
			if v, err = m.eval(s.init); err != nil {
				return SignalNormal, err
			}
		}

		m.frame.slots[s.slot] = NewCell(v)

		return SignalNormal, nil

	case *bIf:
		c, err := m.eval(s.cond)
		if err != nil {
			return SignalNormal, err
		}

		if c.Bool() {
			return m.exec(s.then)
		}

		return m.exec(s.els)

	case *bWhile:
		for {
			c, err := m.eval(s.cond)
			if err != nil {
				return SignalNormal, err
			}

			if !c.Bool() {
				return SignalNormal, nil
			}

			if sig, done, err := m.loopBody(s.body); done || err != nil {
				return sig, err
			}
		}

	case *bFor:
		return m.execFor(s)

	case *bForeach:
		return m.execForeach(s)

	case *bBreak:
		return SignalBreak, nil

	case *bContinue:
		return SignalContinue, nil

	case *bReturn:
		m.ret = NullValue

		if s.x != nil {
			v, err := m.eval(s.x)
			if err != nil {
				return SignalNormal, err
			}

			m.ret = v
		}

		return SignalReturn, nil
	}

	return SignalNormal, ErrRuntime.Withf("unsupported statement %T", s)
}

// loopBody runs one iteration. done reports that the loop must exit with
// sig.
func (m *machine) loopBody(body bstmt) (sig Signal, done bool, err error) {
	if err := m.budget.Charge(1); err != nil {
		return SignalNormal, true, err
	}

	sig, err = m.exec(body)

	switch {
	case err != nil:
		return SignalNormal, true, err
	case sig == SignalBreak:
		return SignalNormal, true, nil
	case sig == SignalReturn:
		return sig, true, nil
	}

	return SignalNormal, false, nil
}

func (m *machine) execFor(s *bFor) (Signal, error) {
	for _, init := range s.init {
		if _, err := m.exec(init); err != nil {
			return SignalNormal, err
		}
	}

	for {
		if s.cond != nil {
			c, err := m.eval(s.cond)
			if err != nil {
				return SignalNormal, err
			}

			if !c.Bool() {
				return SignalNormal, nil
			}
		}

		if sig, done, err := m.loopBody(s.body); done || err != nil {
			return sig, err
		}

		for _, post := range s.post {
			if _, err := m.eval(post); err != nil {
				return SignalNormal, err
			}
		}
	}
}

func (m *machine) execForeach(s *bForeach) (Signal, error) {
	x, err := m.eval(s.x)
	if err != nil {
		return SignalNormal, err
	}

	if x.IsNull() {
		return SignalNormal, m.fault(s.at, "null reference in foreach")
	}

	var (
		sig  Signal
		fail error
	)

	visit := func(v Value) bool {
		if s.conv != nil {
			v = elementAs(v, s.conv)
		}

		m.frame.slots[s.slot] = NewCell(v)

		var done bool

		sig, done, fail = m.loopBody(s.body)

		return !done && fail == nil
	}

	switch s.mode {
	case indexArray:
		a := x.Array()

		for i := 0; i < len(a.items); i++ {
			if !visit(a.items[i]) {
				break
			}
		}

	case indexString:
		for _, r := range x.Str() {
			if !visit(StringValue(string(r))) {
				break
			}
		}

	default:
		for v := range s.each(x) {
			if !visit(v) {
				break
			}
		}
	}

	return sig, fail
}

// elementAs converts a foreach element to the declared variable type.
func elementAs(v Value, t *Type) Value {
	if t.IsReference() {
		if v.IsNull() || instanceOf(v, t) {
			return v
		}

		return NullValue
	}

	return convertValue(v, t)
}

// invoke calls a script function with this bound to the receiver.
func (m *machine) invoke(fn *funcInst, this Value, args []barg, at Position) (Value, error) {
	if m.depth >= m.maxDepth {
		return NullValue, m.fault(at, "maximum call depth of %d exceeded", m.maxDepth)
	}

	if err := m.budget.Charge(1); err != nil {
		return NullValue, err
	}

	slots := make([]*Cell, fn.nslots)

	for i, a := range args {
		if a.mod != ByValue {
			cell, err := m.cellOf(a.x)
			if err != nil {
				return NullValue, err
			}

			slots[i] = cell

			continue
		}

		v, err := m.eval(a.x)
		if err != nil {
			return NullValue, err
		}

		slots[i] = NewCell(v)
	}

	return m.run(fn, &frame{slots: slots, this: this})
}

// run executes fn in fr and returns its result.
func (m *machine) run(fn *funcInst, fr *frame) (Value, error) {
	saved := m.frame
	m.frame = fr
	m.depth++

	defer func() {
		m.frame = saved
		m.depth--
	}()

	sig, err := m.exec(fn.body)
	if err != nil {
		return NullValue, err
	}

	if sig != SignalReturn {
		return NullValue, nil
	}

	v := m.ret
	m.ret = NullValue

	return v, nil
}

// callNative evaluates args and invokes a host method.
func (m *machine) callNative(mth *Method, this Value, args []barg, at Position) (Value, error) {
	if err := m.budget.Charge(1); err != nil {
		return NullValue, err
	}

	c := &Call{
		Context: m.ctx,
		Runtime: m.rc,
		This:    this,
		Args:    make([]Value, len(args)),
		At:      at,
	}

	for i, a := range args {
		if a.mod != ByValue {
			cell, err := m.cellOf(a.x)
			if err != nil {
				return NullValue, err
			}

			if c.cells == nil {
				c.cells = make([]*Cell, len(args))
			}

			c.cells[i] = cell
			c.Args[i] = cell.v

			continue
		}

		v, err := m.eval(a.x)
		if err != nil {
			return NullValue, err
		}

		c.Args[i] = v
	}

	return m.callMethod(mth, c)
}

// callMethod dispatches a prepared call to a host or script method.
func (m *machine) callMethod(mth *Method, c *Call) (Value, error) {
	if mth.fn != nil {
		slots := make([]*Cell, mth.fn.nslots)

		for i, v := range c.Args {
			if cell := c.Ref(i); cell != nil {
				slots[i] = cell
			} else {
				slots[i] = NewCell(v)
			}
		}

		return m.run(mth.fn, &frame{slots: slots, this: c.This})
	}

	v, err := mth.native(c)
	if err != nil {
		return NullValue, hostError(err, c.At)
	}

	return v, nil
}

// str renders v for concatenation and interpolation. A script class
// defining "string ToString()" renders through it.
func (m *machine) str(v Value, t *Type, at Position) (string, error) {
	if v.IsNull() {
		return "", nil
	}

	if o := v.Object(); o != nil && o.class.script != nil {
		for _, mth := range o.class.lookupMethods("ToString", false) {
			if len(mth.Params) == 0 && mth.Return == String && mth.fn != nil {
				r, err := m.callMethod(mth, &Call{Context: m.ctx, Runtime: m.rc, This: v, At: at})
				if err != nil {
					return "", err
				}

				return r.Str(), nil
			}
		}
	}

	return displayString(v, t), nil
}

// instanceOf reports whether the dynamic type of v is t or derives from it.
func instanceOf(v Value, t *Type) bool {
	switch {
	case v.IsNull():
		return false
	case t == String:
		return v.kind == vString
	case t.kind == KindArray:
		a := v.Array()

		return a != nil && a.elem == t.elem
	case t.class != nil:
		o := v.Object()

		return o != nil && o.class.DerivesFrom(t.class)
	}

	return false
}

// convertValue changes the numeric representation of v to t. Reference
// values pass through unchanged.
func convertValue(v Value, t *Type) Value {
	if v.IsNull() {
		return v
	}

	switch t.kind {
	case KindInt, KindEnum:
		return IntValue(v.Int())
	case KindFloat:
		return FloatValue(v.Float())
	case KindDouble:
		return DoubleValue(v.Double())
	}

	return v
}
