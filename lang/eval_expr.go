package lang

import (
	"math"
	"strings"
	"unicode/utf8"
)

func (m *machine) eval(x bexpr) (Value, error) {
	switch x := x.(type) {
	case *bConst:
		return x.v, nil

	case *bLocal:
		return m.frame.slots[x.slot].v, nil

	case *bGlobal:
		return m.rc.globals[x.index].v, nil

	case *bThis:
		return m.frame.this, nil

	case *bField:
		o, err := m.object(x.x)
		if err != nil {
			return NullValue, err
		}

		return o.fields[x.index].v, nil

	case *bProp:
		c := &Call{Context: m.ctx, Runtime: m.rc, At: x.at}

		if x.x != nil {
			recv, err := m.receiver(x.x)
			if err != nil {
				return NullValue, err
			}

			c.This = recv
		}

		v, err := x.p.get(c)
		if err != nil {
			return NullValue, hostError(err, x.at)
		}

		return v, nil

	case *bArrayLen:
		recv, err := m.receiver(x.x)
		if err != nil {
			return NullValue, err
		}

		return IntValue(int64(len(recv.Array().items))), nil

	case *bIndex:
		p, err := m.locate(x)
		if err != nil {
			return NullValue, err
		}

		return p.get()

	case *bCall:
		var this Value

		if x.this != nil {
			recv, err := m.receiver(x.this)
			if err != nil {
				return NullValue, err
			}

			this = recv
		}

		return m.invoke(x.fn, this, x.args, x.at)

	case *bNative:
		var this Value

		if x.this != nil {
			recv, err := m.receiver(x.this)
			if err != nil {
				return NullValue, err
			}

			this = recv
		}

		return m.callNative(x.m, this, x.args, x.at)

	case *bIface:
		recv, err := m.receiver(x.x)
		if err != nil {
			return NullValue, err
		}

		var tab []*Method
		if o := recv.Object(); o != nil {
			tab = o.class.itab(x.iface)
		}

		if x.slot < 0 || x.slot >= len(tab) {
			return NullValue, m.fault(x.at, "%s does not implement %s", recv.typeName(), x.iface.name)
		}

		return m.callNative(tab[x.slot], recv, x.args, x.at)

	case *bNew:
		return m.construct(x)

	case *bNewArray:
		return m.newArray(x)

	case *bUnary:
		v, err := m.eval(x.x)
		if err != nil {
			return NullValue, err
		}

		return unaryValue(x.op, x.t, v), nil

	case *bBinary:
		a, err := m.eval(x.x)
		if err != nil {
			return NullValue, err
		}

		b, err := m.eval(x.y)
		if err != nil {
			return NullValue, err
		}

		return m.binaryValue(x.at, x.op, x.k, a, b)

	case *bLogical:
		a, err := m.eval(x.x)
		if err != nil || a.Bool() != x.and {
			return a, err
		}

		return m.eval(x.y)

	case *bCoalesce:
		a, err := m.eval(x.x)
		if err != nil || !a.IsNull() {
			return a, err
		}

		return m.eval(x.y)

	case *bCond:
		c, err := m.eval(x.c)
		if err != nil {
			return NullValue, err
		}

		if c.Bool() {
			return m.eval(x.a)
		}

		return m.eval(x.b)

	case *bConvert:
		v, err := m.eval(x.x)
		if err != nil {
			return NullValue, err
		}

		return convertValue(v, x.t), nil

	case *bCast:
		v, err := m.eval(x.x)
		if err != nil || v.IsNull() || instanceOf(v, x.t) {
			return v, err
		}

		return NullValue, nil

	case *bIs:
		v, err := m.eval(x.x)
		if err != nil {
			return NullValue, err
		}

		return BoolValue(instanceOf(v, x.to)), nil

	case *bToString:
		v, err := m.eval(x.x)
		if err != nil {
			return NullValue, err
		}

		s, err := m.str(v, x.x.typ(), x.at)

		return StringValue(s), err

	case *bInterp:
		return m.interpolate(x)

	case *bAssign:
		p, err := m.locate(x.target)
		if err != nil {
			return NullValue, err
		}

		v, err := m.eval(x.value)
		if err != nil {
			return NullValue, err
		}

		return v, p.set(v)

	case *bCompound:
		return m.compound(x)

	case *bIncDec:
		p, err := m.locate(x.target)
		if err != nil {
			return NullValue, err
		}

		cur, err := p.get()
		if err != nil {
			return NullValue, err
		}

		next, err := m.binaryValue(x.at, "+", x.t.kind, cur, convertValue(IntValue(x.delta), x.t))
		if err != nil {
			return NullValue, err
		}

		if err := p.set(next); err != nil {
			return NullValue, err
		}

		if x.prefix {
			return next, nil
		}

		return cur, nil
	}

	return NullValue, ErrRuntime.At(x.pos()).Withf("unsupported expression %T", x)
}

// receiver evaluates x and faults on null.
func (m *machine) receiver(x bexpr) (Value, error) {
	v, err := m.eval(x)
	if err != nil {
		return NullValue, err
	}

	if v.IsNull() {
		return NullValue, m.fault(x.pos(), "null reference")
	}

	return v, nil
}

func (m *machine) object(x bexpr) (*Object, error) {
	v, err := m.receiver(x)
	if err != nil {
		return nil, err
	}

	return v.Object(), nil
}

// place is an assignable location. cell is set when the location is a
// variable and can be passed by reference.
type place struct {
	cell *Cell
	get  func() (Value, error)
	set  func(Value) error
}

func cellPlace(c *Cell) place {
	return place{
		cell: c,
		get:  func() (Value, error) { return c.v, nil },
		set:  func(v Value) error { c.v = v; return nil },
	}
}

// locate evaluates the receiver and key of an assignment target once.
func (m *machine) locate(x bexpr) (place, error) {
	switch x := x.(type) {
	case *bLocal:
		return cellPlace(m.frame.slots[x.slot]), nil

	case *bGlobal:
		return cellPlace(m.rc.globals[x.index]), nil

	case *bField:
		o, err := m.object(x.x)
		if err != nil {
			return place{}, err
		}

		return cellPlace(&o.fields[x.index]), nil

	case *bProp:
		c := &Call{Context: m.ctx, Runtime: m.rc, At: x.at}

		if x.x != nil {
			recv, err := m.receiver(x.x)
			if err != nil {
				return place{}, err
			}

			c.This = recv
		}

		return place{
			get: func() (Value, error) {
				v, err := x.p.get(c)
				if err != nil {
					return NullValue, hostError(err, x.at)
				}

				return v, nil
			},
			set: func(v Value) error {
				if x.p.set == nil {
					return m.fault(x.at, "property '%s' is read-only", x.p.Name)
				}

				set := *c
				set.Args = []Value{v}

				if _, err := x.p.set(&set); err != nil {
					return hostError(err, x.at)
				}

				return nil
			},
		}, nil

	case *bIndex:
		return m.locateIndex(x)
	}

	return place{}, ErrRuntime.At(x.pos()).Withf("expression is not assignable")
}

func (m *machine) locateIndex(x *bIndex) (place, error) {
	recv, err := m.receiver(x.x)
	if err != nil {
		return place{}, err
	}

	key, err := m.eval(x.key)
	if err != nil {
		return place{}, err
	}

	switch x.mode {
	case indexArray:
		a := recv.Array()
		i := key.Int()

		if i < 0 || i >= int64(len(a.items)) {
			return place{}, m.fault(x.at, "index %d out of range [0:%d]", i, len(a.items))
		}

		return place{
			get: func() (Value, error) { return a.items[i], nil },
			set: func(v Value) error { a.items[i] = v; return nil },
		}, nil

	case indexString:
		s := recv.Str()
		i := key.Int()

		if i < 0 || i >= int64(utf8.RuneCountInString(s)) {
			return place{}, m.fault(x.at, "index %d out of range [0:%d]", i, utf8.RuneCountInString(s))
		}

		return place{
			get: func() (Value, error) { return StringValue(string([]rune(s)[i])), nil },
			set: func(Value) error { return m.fault(x.at, "strings are immutable") },
		}, nil
	}

	c := &Call{Context: m.ctx, Runtime: m.rc, This: recv, At: x.at}

	return place{
		get: func() (Value, error) {
			get := *c
			get.Args = []Value{key}

			v, err := x.ix.get(&get)
			if err != nil {
				return NullValue, hostError(err, x.at)
			}

			return v, nil
		},
		set: func(v Value) error {
			if x.ix.set == nil {
				return m.fault(x.at, "indexer is read-only")
			}

			set := *c
			set.Args = []Value{key, v}

			if _, err := x.ix.set(&set); err != nil {
				return hostError(err, x.at)
			}

			return nil
		},
	}, nil
}

// cellOf returns the cell of a ref or out argument.
func (m *machine) cellOf(x bexpr) (*Cell, error) {
	p, err := m.locate(x)
	if err != nil {
		return nil, err
	}

	if p.cell == nil {
		return nil, m.fault(x.pos(), "argument cannot be passed by reference")
	}

	return p.cell, nil
}

func (m *machine) compound(x *bCompound) (Value, error) {
	p, err := m.locate(x.target)
	if err != nil {
		return NullValue, err
	}

	cur, err := p.get()
	if err != nil {
		return NullValue, err
	}

	v, err := m.eval(x.value)
	if err != nil {
		return NullValue, err
	}

	var next Value

	switch {
	case x.m != nil:
		next, err = m.callMethod(x.m, &Call{
			Context: m.ctx,
			Runtime: m.rc,
			Args:    []Value{cur, v},
			At:      x.at,
		})
		if err != nil {
			return NullValue, err
		}

		next = convertValue(next, x.t)

	case x.k == String:
		next = StringValue(cur.Str() + v.Str())

	default:
		if next, err = m.binaryValue(x.at, x.op, x.k.kind, cur, v); err != nil {
			return NullValue, err
		}
	}

	return next, p.set(next)
}

func unaryValue(op string, t *Type, v Value) Value {
	switch op {
	case "!":
		return BoolValue(!v.Bool())

	case "~":
		return IntValue(^v.Int())
	}

	switch t.kind {
	case KindFloat:
		return FloatValue(-v.Float())
	case KindDouble:
		return DoubleValue(-v.Double())
	}

	return IntValue(-v.Int())
}

// binaryValue applies op to operands already converted to kind k.
func (m *machine) binaryValue(at Position, op string, k Kind, a, b Value) (Value, error) {
	switch k {
	case KindString:
		switch op {
		case "+":
			return StringValue(a.Str() + b.Str()), nil
		case "==":
			return BoolValue(a.equal(b)), nil
		case "!=":
			return BoolValue(!a.equal(b)), nil
		}

	case KindClass:
		switch op {
		case "==":
			return BoolValue(a.equal(b)), nil
		case "!=":
			return BoolValue(!a.equal(b)), nil
		}

	case KindBool:
		x, y := a.Bool(), b.Bool()

		switch op {
		case "&":
			return BoolValue(x && y), nil
		case "|":
			return BoolValue(x || y), nil
		case "^", "!=":
			return BoolValue(x != y), nil
		case "==":
			return BoolValue(x == y), nil
		}

	case KindInt, KindEnum:
		return m.intOp(at, op, a.Int(), b.Int())

	case KindFloat:
		v, ok := realOp(op, a.Double(), b.Double())
		if ok && v.kind == vDouble {
			v = FloatValue(float32(v.f))
		}

		if ok {
			return v, nil
		}

	case KindDouble:
		if v, ok := realOp(op, a.Double(), b.Double()); ok {
			return v, nil
		}
	}

	return NullValue, m.fault(at, "operator '%s' is not defined for %s", op, k)
}

func (m *machine) intOp(at Position, op string, x, y int64) (Value, error) {
	switch op {
	case "+":
		return IntValue(x + y), nil
	case "-":
		return IntValue(x - y), nil
	case "*":
		return IntValue(x * y), nil
	case "/", "%":
		if y == 0 {
			return NullValue, m.fault(at, "integer division by zero")
		}

		if op == "/" {
			return IntValue(x / y), nil
		}

		return IntValue(x % y), nil
	case "<<":
		return IntValue(x << uint(y&63)), nil
	case ">>":
		return IntValue(x >> uint(y&63)), nil
	case "&":
		return IntValue(x & y), nil
	case "|":
		return IntValue(x | y), nil
	case "^":
		return IntValue(x ^ y), nil
	case "==":
		return BoolValue(x == y), nil
	case "!=":
		return BoolValue(x != y), nil
	case "<":
		return BoolValue(x < y), nil
	case ">":
		return BoolValue(x > y), nil
	case "<=":
		return BoolValue(x <= y), nil
	case ">=":
		return BoolValue(x >= y), nil
	}

	return NullValue, m.fault(at, "operator '%s' is not defined for int", op)
}

// realOp computes in float64; callers narrow float results.
func realOp(op string, x, y float64) (Value, bool) {
	switch op {
	case "+":
		return DoubleValue(x + y), true
	case "-":
		return DoubleValue(x - y), true
	case "*":
		return DoubleValue(x * y), true
	case "/":
		return DoubleValue(x / y), true
	case "%":
		return DoubleValue(math.Mod(x, y)), true
	case "==":
		return BoolValue(x == y), true
	case "!=":
		return BoolValue(x != y), true
	case "<":
		return BoolValue(x < y), true
	case ">":
		return BoolValue(x > y), true
	case "<=":
		return BoolValue(x <= y), true
	case ">=":
		return BoolValue(x >= y), true
	}

	return NullValue, false
}

func (m *machine) interpolate(x *bInterp) (Value, error) {
	var sb strings.Builder

	for _, part := range x.parts {
		if part.x == nil {
			sb.WriteString(part.text)

			continue
		}

		v, err := m.eval(part.x)
		if err != nil {
			return NullValue, err
		}

		t := part.x.typ()

		if part.format != "" && (t.IsNumeric() || t.kind == KindEnum) {
			s, err := formatNumber(v, t, part.format)
			if err != nil {
				return NullValue, ErrRuntime.At(part.x.pos()).Wrap(err)
			}

			sb.WriteString(s)

			continue
		}

		s, err := m.str(v, t, x.at)
		if err != nil {
			return NullValue, err
		}

		sb.WriteString(s)
	}

	return StringValue(sb.String()), nil
}

func (m *machine) construct(x *bNew) (Value, error) {
	var obj Value

	if x.ctor != nil {
		v, err := m.callNative(x.ctor, NullValue, x.args, x.at)
		if err != nil {
			return NullValue, err
		}

		obj = v
	} else {
		sc := x.class.script
		o := &Object{class: x.class, fields: make([]Cell, len(sc.fields))}

		for i, p := range sc.fields {
			o.fields[i].v = zeroValue(p.Type)
		}

		obj = ObjectValue(o)

		if _, err := m.invoke(sc.init, obj, nil, x.at); err != nil {
			return NullValue, err
		}

		if x.fn != nil {
			if _, err := m.invoke(x.fn, obj, x.args, x.at); err != nil {
				return NullValue, err
			}
		}
	}

	for _, mi := range x.members {
		v, err := m.eval(mi.value)
		if err != nil {
			return NullValue, err
		}

		if mi.p.field >= 0 {
			obj.Object().fields[mi.p.field].v = v

			continue
		}

		c := &Call{Context: m.ctx, Runtime: m.rc, This: obj, Args: []Value{v}, At: mi.value.pos()}
		if _, err := mi.p.set(c); err != nil {
			return NullValue, hostError(err, c.At)
		}
	}

	for _, add := range x.adds {
		var err error

		if add.fn != nil {
			_, err = m.invoke(add.fn, obj, add.args, x.at)
		} else {
			_, err = m.callNative(add.m, obj, add.args, x.at)
		}

		if err != nil {
			return NullValue, err
		}
	}

	return obj, nil
}

func (m *machine) newArray(x *bNewArray) (Value, error) {
	n := int64(len(x.items))

	if x.n != nil {
		v, err := m.eval(x.n)
		if err != nil {
			return NullValue, err
		}

		n = v.Int()

		if n < 0 {
			return NullValue, m.fault(x.at, "negative array length %d", n)
		}

		if len(x.items) > 0 && n != int64(len(x.items)) {
			return NullValue, m.fault(x.at,
				"array length %d does not match %d initializer(s)", n, len(x.items))
		}
	}

	if err := m.budget.Charge(n / 64); err != nil {
		return NullValue, err
	}

	items := make([]Value, n)

	for i := range items {
		items[i] = zeroValue(x.elem)
	}

	for i, item := range x.items {
		v, err := m.eval(item)
		if err != nil {
			return NullValue, err
		}

		items[i] = v
	}

	return ArrayValue(&Array{elem: x.elem, items: items}), nil
}
