package lang

import (
	"strings"
)

func (b *binder) bindExpr(e Expr) (bexpr, error) {
	switch e := e.(type) {
	case *Ident, *TypeRef, *MemberExpr:
		x, t, err := b.bindExprOrType(e)
		if err != nil {
			return nil, err
		}

		if t != nil {
			return nil, ErrBinding.At(e.Pos()).Withf("'%s' is a type, not a value", t)
		}

		return x, nil

	case *Literal:
		return bindLiteral(e), nil

	case *ThisExpr:
		if b.fn == nil || b.fn.class == nil {
			return nil, ErrBinding.At(e.At).Withf("'this' is only valid inside a class")
		}

		return b.this(e.At), nil

	case *InterpExpr:
		return b.bindInterp(e)

	case *UnaryExpr:
		return b.bindUnary(e)

	case *IncDecExpr:
		return b.bindIncDec(e)

	case *BinaryExpr:
		return b.bindBinary(e)

	case *AssignExpr:
		return b.bindAssign(e)

	case *CondExpr:
		return b.bindCondExpr(e)

	case *CastExpr:
		x, err := b.bindExpr(e.X)
		if err != nil {
			return nil, err
		}

		t, err := b.typeOf(e.Type)
		if err != nil {
			return nil, err
		}

		return explicitConvert(x, t, e.At)

	case *TypeTestExpr:
		return b.bindTypeTest(e)

	case *CallExpr:
		return b.bindCall(e)

	case *IndexExpr:
		return b.bindIndex(e)

	case *NewExpr:
		return b.bindNew(e)

	case *NewArrayExpr:
		return b.bindNewArray(e)

	case *ElementList:
		return nil, ErrBinding.At(e.At).Withf("element list outside of a collection initializer")
	}

	return nil, ErrBinding.At(e.Pos()).Withf("unsupported expression %T", e)
}

func bindLiteral(e *Literal) bexpr {
	c := &bConst{bnode: bnode{at: e.At}}

	switch e.Kind {
	case LitBool:
		c.t, c.v = Bool, BoolValue(e.Bool)
	case LitInt:
		c.t, c.v = Int, IntValue(e.Int)
	case LitFloat:
		c.t, c.v = Float, FloatValue(float32(e.Real))
	case LitDouble:
		c.t, c.v = Double, DoubleValue(e.Real)
	case LitString:
		c.t, c.v = String, StringValue(e.Str)
	default:
		c.t = Null
	}

	return c
}

// bindExprOrType binds e as a value, or resolves it as a type name. Exactly
// one of the results is non-nil on success.
func (b *binder) bindExprOrType(e Expr) (bexpr, *Type, error) {
	switch e := e.(type) {
	case *Ident:
		return b.bindName(e)

	case *TypeRef:
		t, err := b.typeOf(e.Type)

		return nil, t, err

	case *MemberExpr:
		x, t, err := b.bindExprOrType(e.X)
		if err != nil {
			return nil, nil, err
		}

		if len(e.TypeArgs) > 0 {
			return nil, nil, ErrBinding.At(e.At).
				Withf("type arguments are only valid on method calls")
		}

		if t != nil {
			x, err := b.staticMember(e, t)

			return x, nil, err
		}

		x, err = b.instanceMember(e, x)

		return x, nil, err
	}

	x, err := b.bindExpr(e)

	return x, nil, err
}

// bindName resolves a simple name: local, field of this, script global,
// host variable, then type.
func (b *binder) bindName(id *Ident) (bexpr, *Type, error) {
	at := id.At

	if len(id.TypeArgs) == 0 && b.fn != nil {
		if v, ok := b.fn.lookup(id.Name); ok {
			return &bLocal{bnode: bnode{t: v.t, at: at}, slot: v.slot}, nil, nil
		}

		if c := b.fn.class; c != nil {
			if p := c.lookupProp(id.Name, false); p != nil && p.field >= 0 {
				return &bField{bnode: bnode{t: p.Type, at: at}, x: b.this(at), index: p.field}, nil, nil
			}
		}
	}

	if len(id.TypeArgs) == 0 {
		if i, ok := b.gindex[id.Name]; ok {
			slot := b.globals[i]

			if slot.decl != nil && b.globalLimit >= 0 && i >= b.globalLimit {
				return nil, nil, ErrBinding.At(at).
					Withf("'%s' is used before its declaration", id.Name)
			}

			if slot.t == nil {
				return nil, nil, ErrBinding.At(at).
					Withf("the type of '%s' is not yet inferred", id.Name)
			}

			return &bGlobal{bnode: bnode{t: slot.t, at: at}, index: i}, nil, nil
		}

		if hv, ok := b.gc.variable(id.Name); ok {
			i := b.hostSlot(id.Name, hv)

			return &bGlobal{bnode: bnode{t: hv.t, at: at}, index: i}, nil, nil
		}

		if b.isFunctionName(id.Name) {
			return nil, nil, ErrBinding.At(at).
				Withf("function '%s' must be called", id.Name)
		}
	}

	t, err := b.typeOf(&TypeExpr{At: at, Name: id.Name, Args: id.TypeArgs})
	if err != nil {
		if len(id.TypeArgs) == 0 && strings.HasPrefix(errDetail(err), "unknown type") {
			return nil, nil, ErrBinding.At(at).Withf("undefined: %s", id.Name)
		}

		return nil, nil, err
	}

	return nil, t, nil
}

func errDetail(err error) string {
	if e, ok := err.(*Error); ok {
		return e.detail
	}

	return ""
}

func (b *binder) isFunctionName(name string) bool {
	if b.fn != nil && b.fn.class != nil {
		if _, ok := b.fn.class.script.templates[name]; ok {
			return true
		}
	}

	if _, ok := b.funcs[name]; ok {
		return true
	}

	_, ok := b.gc.functions(name)

	return ok
}

func (b *binder) staticMember(e *MemberExpr, t *Type) (bexpr, error) {
	at := e.At

	if t.kind == KindEnum {
		v, ok := t.class.enumValue(e.Name)
		if !ok {
			return nil, ErrBinding.At(at).Withf("enum %s has no member '%s'", t, e.Name)
		}

		return &bConst{bnode: bnode{t: t, at: at}, v: IntValue(v)}, nil
	}

	c := t.class
	if c == nil {
		c = b.reg.primitive(t)
	}

	if c != nil {
		if p := c.lookupProp(e.Name, true); p != nil {
			return &bProp{bnode: bnode{t: p.Type, at: at}, p: p}, nil
		}

		if len(c.lookupMethods(e.Name, true)) > 0 {
			return nil, ErrBinding.At(at).Withf("method '%s.%s' must be called", t, e.Name)
		}
	}

	return nil, ErrBinding.At(at).Withf("type %s has no static member '%s'", t, e.Name)
}

func (b *binder) instanceMember(e *MemberExpr, x bexpr) (bexpr, error) {
	at := e.At
	t := x.typ()

	if t.kind == KindArray && e.Name == "Length" {
		return &bArrayLen{bnode: bnode{t: Int, at: at}, x: x}, nil
	}

	c := t.class
	if c == nil {
		c = b.reg.primitive(t)
	}

	if c != nil {
		if p := c.lookupProp(e.Name, false); p != nil {
			if p.field >= 0 {
				return &bField{bnode: bnode{t: p.Type, at: at}, x: x, index: p.field}, nil
			}

			return &bProp{bnode: bnode{t: p.Type, at: at}, x: x, p: p}, nil
		}

		if len(c.lookupMethods(e.Name, false)) > 0 || b.hasScriptMethod(c, e.Name) {
			return nil, ErrBinding.At(at).Withf("method '%s.%s' must be called", t, e.Name)
		}
	}

	return nil, ErrBinding.At(at).Withf("%s has no member '%s'", t, e.Name)
}

func (b *binder) hasScriptMethod(c *Class, name string) bool {
	if c.script == nil {
		return false
	}

	_, ok := c.script.templates[name]

	return ok
}

func (b *binder) bindInterp(e *InterpExpr) (bexpr, error) {
	out := &bInterp{bnode: bnode{t: String, at: e.At}}

	for _, part := range e.Parts {
		if part.X == nil {
			out.parts = append(out.parts, binterp{text: part.Text})

			continue
		}

		x, err := b.bindExpr(part.X)
		if err != nil {
			return nil, err
		}

		if x.typ() == Void {
			return nil, ErrBinding.At(part.X.Pos()).Withf("cannot interpolate a void expression")
		}

		out.parts = append(out.parts, binterp{x: x, format: part.Format})
	}

	return out, nil
}

func (b *binder) bindUnary(e *UnaryExpr) (bexpr, error) {
	x, err := b.bindExpr(e.X)
	if err != nil {
		return nil, err
	}

	t := x.typ()

	if c := t.class; c != nil && len(c.operators(e.Op)) > 0 {
		return b.bindOperator(e.At, e.Op, []bexpr{x})
	}

	switch e.Op {
	case "+":
		if t.IsNumeric() {
			return x, nil
		}

	case "-":
		if t.IsNumeric() {
			return &bUnary{bnode: bnode{t: t, at: e.At}, op: "-", x: x}, nil
		}

	case "!":
		if t == Bool {
			return &bUnary{bnode: bnode{t: Bool, at: e.At}, op: "!", x: x}, nil
		}

	case "~":
		if t == Int || t.kind == KindEnum {
			return &bUnary{bnode: bnode{t: t, at: e.At}, op: "~", x: x}, nil
		}
	}

	return nil, ErrBinding.At(e.At).Withf("operator '%s' cannot be applied to %s", e.Op, t)
}

func (b *binder) bindIncDec(e *IncDecExpr) (bexpr, error) {
	x, err := b.bindExpr(e.X)
	if err != nil {
		return nil, err
	}

	if err := b.assignable(x); err != nil {
		return nil, err
	}

	if !x.typ().IsNumeric() {
		return nil, ErrBinding.At(e.At).
			Withf("operator '%s' cannot be applied to %s", e.Op, x.typ())
	}

	delta := int64(1)
	if e.Op == "--" {
		delta = -1
	}

	return &bIncDec{bnode: bnode{t: x.typ(), at: e.At}, target: x, delta: delta, prefix: e.Prefix}, nil
}

func (b *binder) bindBinary(e *BinaryExpr) (bexpr, error) {
	x, err := b.bindExpr(e.X)
	if err != nil {
		return nil, err
	}

	y, err := b.bindExpr(e.Y)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "&&", "||":
		if x.typ() != Bool || y.typ() != Bool {
			return nil, ErrBinding.At(e.At).
				Withf("operator '%s' requires bool operands, not %s and %s", e.Op, x.typ(), y.typ())
		}

		return &bLogical{bnode: bnode{t: Bool, at: e.At}, and: e.Op == "&&", x: x, y: y}, nil

	case "??":
		return b.bindCoalesce(e.At, x, y)
	}

	return b.binaryOp(e.At, e.Op, x, y)
}

// binaryOp binds an arithmetic, bitwise, shift, comparison, or equality
// operator on already-bound operands.
func (b *binder) binaryOp(at Position, op string, x, y bexpr) (bexpr, error) {
	xt, yt := x.typ(), y.typ()

	for _, t := range []*Type{xt, yt} {
		if c := t.class; c != nil && len(c.operators(op)) > 0 {
			return b.bindOperator(at, op, []bexpr{x, y})
		}
	}

	mismatch := func() error {
		return ErrBinding.At(at).
			Withf("operator '%s' cannot be applied to %s and %s", op, xt, yt)
	}

	switch op {
	case "+", "-", "*", "/", "%":
		if op == "+" && (xt == String || yt == String) {
			if xt == Void || yt == Void {
				return nil, mismatch()
			}

			return &bBinary{
				bnode: bnode{t: String, at: at},
				op:    "+",
				x:     toStringExpr(x),
				y:     toStringExpr(y),
				k:     KindString,
			}, nil
		}

		if !xt.IsNumeric() || !yt.IsNumeric() {
			return nil, mismatch()
		}

		t := promote(xt, yt)

		return b.arith(at, op, x, y, t, t)

	case "<<", ">>":
		if xt != Int || yt != Int {
			return nil, mismatch()
		}

		return &bBinary{bnode: bnode{t: Int, at: at}, op: op, x: x, y: y, k: KindInt}, nil

	case "&", "|", "^":
		switch {
		case xt == Bool && yt == Bool:
			return &bBinary{bnode: bnode{t: Bool, at: at}, op: op, x: x, y: y, k: KindBool}, nil
		case xt == Int && yt == Int:
			return &bBinary{bnode: bnode{t: Int, at: at}, op: op, x: x, y: y, k: KindInt}, nil
		case xt.kind == KindEnum && xt == yt:
			return &bBinary{bnode: bnode{t: xt, at: at}, op: op, x: x, y: y, k: KindInt}, nil
		}

		return nil, mismatch()

	case "<", ">", "<=", ">=":
		switch {
		case xt.IsNumeric() && yt.IsNumeric():
			return b.arith(at, op, x, y, promote(xt, yt), Bool)
		case xt.kind == KindEnum && xt == yt:
			return &bBinary{bnode: bnode{t: Bool, at: at}, op: op, x: x, y: y, k: KindInt}, nil
		}

		return nil, mismatch()

	case "==", "!=":
		return b.equality(at, op, x, y)
	}

	return nil, mismatch()
}

// arith converts both operands to the operation type t and yields a result
// of type res.
func (b *binder) arith(at Position, op string, x, y bexpr, t, res *Type) (bexpr, error) {
	x, err := b.coerce(x, t)
	if err != nil {
		return nil, err
	}

	y, err = b.coerce(y, t)
	if err != nil {
		return nil, err
	}

	return &bBinary{bnode: bnode{t: res, at: at}, op: op, x: x, y: y, k: t.kind}, nil
}

func (b *binder) equality(at Position, op string, x, y bexpr) (bexpr, error) {
	xt, yt := x.typ(), y.typ()

	switch {
	case xt.IsNumeric() && yt.IsNumeric():
		return b.arith(at, op, x, y, promote(xt, yt), Bool)

	case xt == yt && (xt == Bool || xt.kind == KindEnum):
		return &bBinary{bnode: bnode{t: Bool, at: at}, op: op, x: x, y: y, k: KindInt}, nil

	case xt == String && (yt == String || yt == Null), yt == String && xt == Null:
		return &bBinary{bnode: bnode{t: Bool, at: at}, op: op, x: x, y: y, k: KindString}, nil

	case xt.IsReference() && yt.IsReference():
		if convCost(xt, yt) >= 0 || convCost(yt, xt) >= 0 ||
			xt.kind == KindInterface || yt.kind == KindInterface {
			return &bBinary{bnode: bnode{t: Bool, at: at}, op: op, x: x, y: y, k: KindClass}, nil
		}
	}

	return nil, ErrBinding.At(at).
		Withf("operator '%s' cannot be applied to %s and %s", op, xt, yt)
}

func (b *binder) bindCoalesce(at Position, x, y bexpr) (bexpr, error) {
	xt := x.typ()
	if !xt.IsReference() {
		return nil, ErrBinding.At(at).Withf("operator '??' cannot be applied to %s", xt)
	}

	t, err := unify(at, xt, y.typ())
	if err != nil {
		return nil, err
	}

	if x, err = b.coerce(x, t); err != nil {
		return nil, err
	}

	if y, err = b.coerce(y, t); err != nil {
		return nil, err
	}

	return &bCoalesce{bnode: bnode{t: t, at: at}, x: x, y: y}, nil
}

func (b *binder) bindCondExpr(e *CondExpr) (bexpr, error) {
	c, err := b.bindCond(e.Cond)
	if err != nil {
		return nil, err
	}

	x, err := b.bindExpr(e.Then)
	if err != nil {
		return nil, err
	}

	y, err := b.bindExpr(e.Else)
	if err != nil {
		return nil, err
	}

	t, err := unify(e.At, x.typ(), y.typ())
	if err != nil {
		return nil, err
	}

	if x, err = b.coerce(x, t); err != nil {
		return nil, err
	}

	if y, err = b.coerce(y, t); err != nil {
		return nil, err
	}

	return &bCond{bnode: bnode{t: t, at: e.At}, c: c, a: x, b: y}, nil
}

// unify returns the type both branches of a conditional convert to.
func unify(at Position, a, b *Type) (*Type, error) {
	switch {
	case a == b:
		return a, nil
	case convCost(a, b) >= 0:
		return b, nil
	case convCost(b, a) >= 0:
		return a, nil
	}

	return nil, ErrBinding.At(at).Withf("no common type for %s and %s", a, b)
}

func (b *binder) bindTypeTest(e *TypeTestExpr) (bexpr, error) {
	x, err := b.bindExpr(e.X)
	if err != nil {
		return nil, err
	}

	t, err := b.typeOf(e.Type)
	if err != nil {
		return nil, err
	}

	xt := x.typ()

	if e.Op == "is" {
		if !xt.IsReference() || !t.IsReference() {
			return &bConst{bnode: bnode{t: Bool, at: e.At}, v: BoolValue(xt == t)}, nil
		}

		return &bIs{bnode: bnode{t: Bool, at: e.At}, x: x, to: t}, nil
	}

	if !t.IsReference() {
		return nil, ErrBinding.At(e.At).Withf("'as' requires a reference type, not %s", t)
	}

	if !xt.IsReference() {
		return nil, ErrBinding.At(e.At).Withf("cannot convert %s to %s with 'as'", xt, t)
	}

	return &bCast{bnode: bnode{t: t, at: e.At}, x: x}, nil
}

func (b *binder) bindIndex(e *IndexExpr) (bexpr, error) {
	x, err := b.bindExpr(e.X)
	if err != nil {
		return nil, err
	}

	key, err := b.bindExpr(e.Index)
	if err != nil {
		return nil, err
	}

	t := x.typ()

	switch {
	case t.kind == KindArray:
		if key, err = b.coerce(key, Int); err != nil {
			return nil, err
		}

		return &bIndex{bnode: bnode{t: t.elem, at: e.At}, x: x, key: key, mode: indexArray}, nil

	case t == String:
		if key, err = b.coerce(key, Int); err != nil {
			return nil, err
		}

		return &bIndex{bnode: bnode{t: String, at: e.At}, x: x, key: key, mode: indexString}, nil

	case t.class != nil:
		ix := t.class.lookupIndexer()
		if ix == nil {
			break
		}

		if key, err = b.coerce(key, ix.Key); err != nil {
			return nil, err
		}

		return &bIndex{bnode: bnode{t: ix.Elem, at: e.At}, x: x, key: key, mode: indexHost, ix: ix}, nil
	}

	return nil, ErrBinding.At(e.At).Withf("cannot index %s", t)
}

// assignable reports whether x denotes writable storage.
func (b *binder) assignable(x bexpr) error {
	switch x := x.(type) {
	case *bLocal, *bField:
		return nil

	case *bGlobal:
		if b.globals[x.index].mod == ModConst {
			return ErrBinding.At(x.at).
				Withf("cannot assign to const '%s'", b.globals[x.index].name)
		}

		return nil

	case *bProp:
		if x.p.ReadOnly() {
			return ErrBinding.At(x.at).Withf("property '%s' is read-only", x.p.Name)
		}

		return nil

	case *bIndex:
		switch {
		case x.mode == indexString:
			return ErrBinding.At(x.at).Withf("strings are immutable")
		case x.mode == indexHost && x.ix.set == nil:
			return ErrBinding.At(x.at).Withf("indexer of %s is read-only", x.x.typ())
		}

		return nil
	}

	return ErrBinding.At(x.pos()).Withf("expression cannot be assigned to")
}

func (b *binder) bindAssign(e *AssignExpr) (bexpr, error) {
	target, err := b.bindExpr(e.Target)
	if err != nil {
		return nil, err
	}

	if err := b.assignable(target); err != nil {
		return nil, err
	}

	value, err := b.bindExpr(e.Value)
	if err != nil {
		return nil, err
	}

	tt := target.typ()

	if e.Op == "=" {
		if value, err = b.coerce(value, tt); err != nil {
			return nil, err
		}

		return &bAssign{bnode: bnode{t: tt, at: e.At}, target: target, value: value}, nil
	}

	op := strings.TrimSuffix(e.Op, "=")
	out := &bCompound{bnode: bnode{t: tt, at: e.At}, target: target, op: op, k: tt}

	if c := tt.class; c != nil && len(c.operators(op)) > 0 {
		cand, err := b.resolve(e.At, op, operatorCandidates(c.operators(op)),
			[]bexpr{target, value}, []ParamMod{ByValue, ByValue})
		if err != nil {
			return nil, err
		}

		if convCost(cand.ret, tt) < 0 {
			return nil, ErrBinding.At(e.At).
				Withf("operator '%s' returns %s, which cannot be assigned to %s", op, cand.ret, tt)
		}

		args, err := b.convertArgs(cand.params, []bexpr{target, value}, []ParamMod{ByValue, ByValue})
		if err != nil {
			return nil, err
		}

		out.m = cand.m
		out.value = args[1].x

		return out, nil
	}

	switch {
	case tt == String && op == "+":
		if value.typ() == Void {
			return nil, ErrBinding.At(e.At).Withf("cannot append a void expression")
		}

		out.value = toStringExpr(value)

		return out, nil

	case op == "<<" || op == ">>":
		if tt != Int || value.typ() != Int {
			break
		}

		out.value = value

		return out, nil

	case op == "&" || op == "|" || op == "^":
		if !(tt == Bool || tt == Int || tt.kind == KindEnum) || value.typ() != tt {
			break
		}

		out.value = value

		return out, nil

	case tt.IsNumeric():
		if out.value, err = b.coerce(value, tt); err != nil {
			return nil, err
		}

		return out, nil
	}

	return nil, ErrBinding.At(e.At).
		Withf("operator '%s' cannot be applied to %s and %s", e.Op, tt, value.typ())
}

func (b *binder) bindNewArray(e *NewArrayExpr) (bexpr, error) {
	elem, err := b.typeOf(e.Elem)
	if err != nil {
		return nil, err
	}

	out := &bNewArray{bnode: bnode{t: ArrayOf(elem), at: e.At}, elem: elem}

	if e.Len != nil {
		n, err := b.bindExpr(e.Len)
		if err != nil {
			return nil, err
		}

		if out.n, err = b.coerce(n, Int); err != nil {
			return nil, err
		}
	}

	for _, item := range e.Init {
		x, err := b.bindExpr(item)
		if err != nil {
			return nil, err
		}

		if x, err = b.coerce(x, elem); err != nil {
			return nil, err
		}

		out.items = append(out.items, x)
	}

	return out, nil
}

func toStringExpr(x bexpr) bexpr {
	if x.typ() == String {
		return x
	}

	return &bToString{bnode: bnode{t: String, at: x.pos()}, x: x}
}
