package lang

import (
	"slices"
	"strings"
)

// candidate is one overload considered for a call site. Exactly one of m
// and fn is set.
type candidate struct {
	params []Parameter
	ret    *Type
	m      *Method
	fn     *funcInst
}

func (c candidate) String() string {
	if c.fn != nil {
		return c.fn.signature().String()
	}

	return c.m.String()
}

func methodCandidates(ms []*Method) []candidate {
	out := make([]candidate, len(ms))
	for i, m := range ms {
		out[i] = candidate{params: m.Params, ret: m.Return, m: m}
	}

	return out
}

func operatorCandidates(ms []*Method) []candidate { return methodCandidates(ms) }

func (b *binder) bindArgs(args []*Arg) ([]bexpr, []ParamMod, error) {
	xs := make([]bexpr, len(args))
	mods := make([]ParamMod, len(args))

	for i, a := range args {
		x, err := b.bindExpr(a.X)
		if err != nil {
			return nil, nil, err
		}

		if x.typ() == Void {
			return nil, nil, ErrBinding.At(a.X.Pos()).Withf("void expression used as an argument")
		}

		xs[i], mods[i] = x, a.Mod
	}

	return xs, mods, nil
}

func (b *binder) bindCall(e *CallExpr) (bexpr, error) {
	args, mods, err := b.bindArgs(e.Args)
	if err != nil {
		return nil, err
	}

	switch fun := e.Fun.(type) {
	case *Ident:
		return b.callName(e.At, fun, args, mods)

	case *MemberExpr:
		x, t, err := b.bindExprOrType(fun.X)
		if err != nil {
			return nil, err
		}

		if t != nil {
			return b.callStatic(e.At, t, fun, args, mods)
		}

		return b.callMethod(e.At, x, fun, args, mods)
	}

	return nil, ErrBinding.At(e.At).Withf("expression is not callable")
}

// callName binds "name(args)": a method of the enclosing script class, a
// script function, or a host function, in that order.
func (b *binder) callName(at Position, id *Ident, args []bexpr, mods []ParamMod) (bexpr, error) {
	name := id.Name

	if b.fn != nil {
		if _, ok := b.fn.lookup(name); ok {
			return nil, ErrBinding.At(at).Withf("'%s' is a variable, not a function", name)
		}

		if c := b.fn.class; c != nil {
			if tmpls := c.script.templates[name]; len(tmpls) > 0 {
				cands, err := b.templateCandidates(tmpls, id.TypeArgs, args)
				if err != nil {
					return nil, err
				}

				return b.finishCall(at, name, cands, b.this(at), args, mods)
			}
		}
	}

	if tmpls := b.funcs[name]; len(tmpls) > 0 {
		cands, err := b.templateCandidates(tmpls, id.TypeArgs, args)
		if err != nil {
			return nil, err
		}

		return b.finishCall(at, name, cands, nil, args, mods)
	}

	if ms, ok := b.gc.functions(name); ok {
		if len(id.TypeArgs) > 0 {
			return nil, ErrBinding.At(at).Withf("host function '%s' is not generic", name)
		}

		return b.finishCall(at, name, methodCandidates(ms), nil, args, mods)
	}

	if _, ok := b.gindex[name]; ok {
		return nil, ErrBinding.At(at).Withf("'%s' is a variable, not a function", name)
	}

	return nil, ErrBinding.At(at).Withf("undefined function '%s'", name)
}

func (b *binder) callStatic(
	at Position,
	t *Type,
	fun *MemberExpr,
	args []bexpr,
	mods []ParamMod,
) (bexpr, error) {
	c := t.class
	if c == nil {
		c = b.reg.primitive(t)
	}

	if c != nil {
		if ms := c.lookupMethods(fun.Name, true); len(ms) > 0 {
			if len(fun.TypeArgs) > 0 {
				return nil, ErrBinding.At(at).Withf("method '%s.%s' is not generic", t, fun.Name)
			}

			return b.finishCall(at, t.String()+"."+fun.Name, methodCandidates(ms), nil, args, mods)
		}
	}

	return nil, ErrBinding.At(at).Withf("type %s has no static method '%s'", t, fun.Name)
}

func (b *binder) callMethod(
	at Position,
	x bexpr,
	fun *MemberExpr,
	args []bexpr,
	mods []ParamMod,
) (bexpr, error) {
	t := x.typ()
	name := t.String() + "." + fun.Name

	if t == Null || t == Void {
		return nil, ErrBinding.At(at).Withf("cannot call '%s' on %s", fun.Name, t)
	}

	c := t.class
	if c == nil {
		c = b.reg.primitive(t)
	}

	if c != nil {
		if c.script != nil {
			if tmpls := c.script.templates[fun.Name]; len(tmpls) > 0 {
				cands, err := b.templateCandidates(tmpls, fun.TypeArgs, args)
				if err != nil {
					return nil, err
				}

				return b.finishCall(at, name, cands, x, args, mods)
			}
		}

		if ms := c.lookupMethods(fun.Name, false); len(ms) > 0 {
			if len(fun.TypeArgs) > 0 {
				return nil, ErrBinding.At(at).Withf("method '%s' is not generic", name)
			}

			return b.finishCall(at, name, methodCandidates(ms), x, args, mods)
		}
	}

	if fun.Name == "ToString" && len(args) == 0 && len(fun.TypeArgs) == 0 {
		return &bToString{bnode: bnode{t: String, at: at}, x: x}, nil
	}

	return nil, ErrBinding.At(at).Withf("%s has no method '%s'", t, fun.Name)
}

// templateCandidates instantiates the script functions of tmpls that can
// accept len(args) arguments, inferring omitted type arguments.
func (b *binder) templateCandidates(
	tmpls []*funcTemplate,
	targs []*TypeExpr,
	args []bexpr,
) ([]candidate, error) {
	explicit := make([]*Type, len(targs))

	for i, te := range targs {
		t, err := b.typeOf(te)
		if err != nil {
			return nil, err
		}

		explicit[i] = t
	}

	var out []candidate

	for _, tmpl := range tmpls {
		d := tmpl.decl
		if len(d.Params) != len(args) {
			continue
		}

		var (
			inst *funcInst
			err  error
		)

		switch {
		case len(d.TypeParams) == 0:
			if len(explicit) > 0 {
				continue
			}

			inst, err = b.instantiate(tmpl, nil)

		case len(explicit) > 0:
			if len(explicit) != len(d.TypeParams) {
				continue
			}

			inst, err = b.instantiate(tmpl, explicit)

		default:
			inferred, ok := inferTypeArgs(d, args)
			if !ok {
				continue
			}

			inst, err = b.instantiate(tmpl, inferred)
		}

		if err != nil {
			return nil, err
		}

		out = append(out, candidate{params: inst.params, ret: inst.ret, fn: inst})
	}

	return out, nil
}

// inferTypeArgs binds the type parameters of d from the argument types.
// Numeric bindings that disagree widen to the larger type.
func inferTypeArgs(d *FuncDecl, args []bexpr) ([]*Type, bool) {
	bound := make(map[string]*Type, len(d.TypeParams))
	for _, tp := range d.TypeParams {
		bound[tp] = nil
	}

	for i, p := range d.Params {
		if !inferFrom(p.Type, args[i].typ(), bound) {
			return nil, false
		}
	}

	out := make([]*Type, len(d.TypeParams))

	for i, tp := range d.TypeParams {
		if bound[tp] == nil {
			return nil, false
		}

		out[i] = bound[tp]
	}

	return out, true
}

func inferFrom(te *TypeExpr, t *Type, bound map[string]*Type) bool {
	if t == Null {
		return true
	}

	for range te.Rank {
		if t.kind != KindArray {
			return false
		}

		t = t.elem
	}

	if prev, ok := bound[te.Name]; ok && len(te.Args) == 0 {
		switch {
		case prev == nil || prev == t:
			bound[te.Name] = t
		case prev.IsNumeric() && t.IsNumeric():
			bound[te.Name] = promote(prev, t)
		default:
			return false
		}

		return true
	}

	if len(te.Args) > 0 {
		c := t.class
		if c == nil || c.template != te.Name || len(c.args) != len(te.Args) {
			return true
		}

		for i, a := range te.Args {
			if !inferFrom(a, c.args[i], bound) {
				return false
			}
		}
	}

	return true
}

// finishCall resolves the overload and builds the call node.
func (b *binder) finishCall(
	at Position,
	name string,
	cands []candidate,
	this bexpr,
	args []bexpr,
	mods []ParamMod,
) (bexpr, error) {
	cand, err := b.resolve(at, name, cands, args, mods)
	if err != nil {
		return nil, err
	}

	bargs, err := b.convertArgs(cand.params, args, mods)
	if err != nil {
		return nil, err
	}

	if cand.fn != nil {
		if cand.fn.ret == nil {
			return nil, ErrBinding.At(at).
				Withf("cannot infer the return type of '%s' from a recursive call", cand.fn.name)
		}

		return &bCall{bnode: bnode{t: cand.fn.ret, at: at}, fn: cand.fn, this: this, args: bargs}, nil
	}

	m := cand.m

	if this != nil && this.typ().kind == KindInterface && m.native == nil && m.fn == nil {
		iface := this.typ().class

		return &bIface{
			bnode: bnode{t: m.Return, at: at},
			x:     this,
			iface: iface,
			slot:  iface.slotOf(m),
			args:  bargs,
		}, nil
	}

	if m.Static {
		this = nil
	}

	return &bNative{bnode: bnode{t: m.Return, at: at}, m: m, this: this, args: bargs}, nil
}

// resolve picks the applicable candidate with the lowest conversion cost.
func (b *binder) resolve(
	at Position,
	name string,
	cands []candidate,
	args []bexpr,
	mods []ParamMod,
) (*candidate, error) {
	var (
		best  *candidate
		tied  *candidate
		score = -1
	)

	for i := range cands {
		cost, ok := applicable(cands[i].params, args, mods)
		if !ok {
			continue
		}

		switch {
		case best == nil || cost < score:
			best, tied, score = &cands[i], nil, cost
		case cost == score:
			tied = &cands[i]
		}
	}

	if best == nil {
		types := make([]string, len(args))
		for i, x := range args {
			types[i] = x.typ().String()
			if mods[i] != ByValue {
				types[i] = mods[i].String() + " " + types[i]
			}
		}

		if len(cands) == 1 && len(cands[0].params) != len(args) {
			return nil, ErrBinding.At(at).Withf("'%s' expects %d argument(s), got %d",
				name, len(cands[0].params), len(args))
		}

		return nil, ErrBinding.At(at).Withf("no overload of '%s' accepts (%s)",
			name, strings.Join(types, ", "))
	}

	if tied != nil {
		return nil, ErrBinding.At(at).Withf("call to '%s' is ambiguous between %s and %s",
			name, best, tied)
	}

	return best, nil
}

// applicable returns the total conversion cost of passing args to params.
func applicable(params []Parameter, args []bexpr, mods []ParamMod) (int, bool) {
	if len(params) != len(args) {
		return 0, false
	}

	var total int

	for i, p := range params {
		if p.Mod != mods[i] {
			return 0, false
		}

		if p.Mod != ByValue {
			if args[i].typ() != p.Type {
				return 0, false
			}

			continue
		}

		c := convCost(args[i].typ(), p.Type)
		if c < 0 {
			return 0, false
		}

		total += c
	}

	return total, true
}

// convertArgs converts by-value arguments to their parameter types and
// checks that ref and out arguments denote variables.
func (b *binder) convertArgs(params []Parameter, args []bexpr, mods []ParamMod) ([]barg, error) {
	out := make([]barg, len(args))

	for i, x := range args {
		if mods[i] != ByValue {
			if err := b.refTarget(x); err != nil {
				return nil, err
			}

			out[i] = barg{x: x, mod: mods[i]}

			continue
		}

		x, err := b.coerce(x, params[i].Type)
		if err != nil {
			return nil, err
		}

		out[i] = barg{x: x}
	}

	return out, nil
}

// refTarget reports whether x can be passed by reference.
func (b *binder) refTarget(x bexpr) error {
	switch x := x.(type) {
	case *bLocal, *bField:
		return nil

	case *bGlobal:
		if b.globals[x.index].mod != ModConst {
			return nil
		}
	}

	return ErrBinding.At(x.pos()).Withf("a ref or out argument must be an assignable variable")
}

// bindOperator binds an overloaded operator declared by an operand class.
func (b *binder) bindOperator(at Position, op string, xs []bexpr) (bexpr, error) {
	var ms []*Method

	for _, x := range xs {
		if c := x.typ().class; c != nil {
			for _, m := range c.operators(op) {
				if len(m.Params) == len(xs) && !slices.Contains(ms, m) {
					ms = append(ms, m)
				}
			}
		}
	}

	mods := make([]ParamMod, len(xs))

	return b.finishCall(at, "operator "+op, operatorCandidates(ms), nil, xs, mods)
}

func (b *binder) bindNew(e *NewExpr) (bexpr, error) {
	t, err := b.typeOf(e.Type)
	if err != nil {
		return nil, err
	}

	if t.kind != KindClass {
		return nil, ErrBinding.At(e.At).Withf("cannot construct %s with 'new'", t)
	}

	args, mods, err := b.bindArgs(e.Args)
	if err != nil {
		return nil, err
	}

	c := t.class
	out := &bNew{bnode: bnode{t: t, at: e.At}, class: c}

	switch {
	case c.script != nil && len(c.script.ctors) == 0:
		if len(args) > 0 {
			return nil, ErrBinding.At(e.At).Withf("%s has no constructor taking arguments", t)
		}

	case c.script != nil:
		cands := make([]candidate, len(c.script.ctors))
		for i, inst := range c.script.ctors {
			cands[i] = candidate{params: inst.params, ret: Void, fn: inst}
		}

		cand, err := b.resolve(e.At, t.String(), cands, args, mods)
		if err != nil {
			return nil, err
		}

		out.fn = cand.fn

		if out.args, err = b.convertArgs(cand.params, args, mods); err != nil {
			return nil, err
		}

	default:
		if len(c.ctors) == 0 {
			return nil, ErrBinding.At(e.At).Withf("%s cannot be constructed by scripts", t)
		}

		cand, err := b.resolve(e.At, t.String(), methodCandidates(c.ctors), args, mods)
		if err != nil {
			return nil, err
		}

		out.ctor = cand.m

		if out.args, err = b.convertArgs(cand.params, args, mods); err != nil {
			return nil, err
		}
	}

	if e.Init == nil {
		return out, nil
	}

	if err := b.bindMemberInits(out, e.Init.Members); err != nil {
		return nil, err
	}

	if err := b.bindElementInits(out, e.Init.Elements); err != nil {
		return nil, err
	}

	return out, nil
}

func (b *binder) bindMemberInits(out *bNew, inits []*MemberInit) error {
	seen := make(map[string]bool, len(inits))

	for _, mi := range inits {
		if seen[mi.Name] {
			return ErrBinding.At(mi.At).Withf("member '%s' is initialized twice", mi.Name)
		}

		seen[mi.Name] = true

		p := out.class.lookupProp(mi.Name, false)
		if p == nil {
			return ErrBinding.At(mi.At).Withf("%s has no member '%s'", out.t, mi.Name)
		}

		if p.ReadOnly() {
			return ErrBinding.At(mi.At).Withf("property '%s' is read-only", mi.Name)
		}

		x, err := b.bindExpr(mi.Value)
		if err != nil {
			return err
		}

		if x, err = b.coerce(x, p.Type); err != nil {
			return err
		}

		out.members = append(out.members, bMemberInit{p: p, value: x})
	}

	return nil
}

// bindElementInits binds a collection initializer as a sequence of Add
// calls. A braced element supplies several arguments to one call.
func (b *binder) bindElementInits(out *bNew, elems []Expr) error {
	for _, el := range elems {
		items := []Expr{el}
		if list, ok := el.(*ElementList); ok {
			items = list.Items
		}

		args := make([]bexpr, len(items))
		mods := make([]ParamMod, len(items))

		for i, item := range items {
			x, err := b.bindExpr(item)
			if err != nil {
				return err
			}

			args[i] = x
		}

		var cands []candidate

		if sc := out.class.script; sc != nil {
			c, err := b.templateCandidates(sc.templates["Add"], nil, args)
			if err != nil {
				return err
			}

			cands = c
		} else {
			cands = methodCandidates(out.class.lookupMethods("Add", false))
		}

		if len(cands) == 0 && out.class.script == nil {
			return ErrBinding.At(el.Pos()).
				Withf("%s has no Add method for a collection initializer", out.t)
		}

		cand, err := b.resolve(el.Pos(), out.t.String()+".Add", cands, args, mods)
		if err != nil {
			return err
		}

		bargs, err := b.convertArgs(cand.params, args, mods)
		if err != nil {
			return err
		}

		out.adds = append(out.adds, bAdd{m: cand.m, fn: cand.fn, args: bargs})
	}

	return nil
}

// convCost returns the cost of the implicit conversion from one type to
// another, or -1 when there is none.
func convCost(from, to *Type) int {
	switch {
	case from == to:
		return 0

	case from == Null:
		if to.IsReference() {
			return 1
		}

	case from == Int:
		switch to {
		case Float:
			return 1
		case Double:
			return 2
		}

	case from == Float:
		if to == Double {
			return 1
		}

	case from.class != nil && to.class != nil &&
		(to.kind == KindClass || to.kind == KindInterface) &&
		from.kind != KindEnum:
		if from.class.DerivesFrom(to.class) {
			return 1
		}
	}

	return -1
}

// numericLike reports whether both types are numeric or enum types.
func numericLike(a, b *Type) bool {
	ok := func(t *Type) bool { return t.IsNumeric() || t.kind == KindEnum }

	return ok(a) && ok(b)
}

// coerce applies the implicit conversion of x to the type to.
func (b *binder) coerce(x bexpr, to *Type) (bexpr, error) {
	from := x.typ()
	if from == to {
		return x, nil
	}

	if convCost(from, to) < 0 {
		return nil, ErrBinding.At(x.pos()).Withf("cannot convert %s to %s", from, to)
	}

	return convertTo(x, to), nil
}

// convertTo wraps x in a conversion to t, folding constants.
func convertTo(x bexpr, t *Type) bexpr {
	if c, ok := x.(*bConst); ok {
		return &bConst{bnode: bnode{t: t, at: c.at}, v: convertValue(c.v, t)}
	}

	return &bConvert{bnode: bnode{t: t, at: x.pos()}, x: x}
}

// explicitConvert binds "(T)x". Numeric and enum types convert freely;
// reference types downcast with a runtime check that yields null on
// mismatch.
func explicitConvert(x bexpr, t *Type, at Position) (bexpr, error) {
	from := x.typ()

	switch {
	case from == t:
		return x, nil

	case numericLike(from, t):
		return convertTo(x, t), nil

	case from.IsReference() && t.IsReference():
		if convCost(from, t) >= 0 {
			return convertTo(x, t), nil
		}

		return &bCast{bnode: bnode{t: t, at: at}, x: x}, nil
	}

	return nil, ErrBinding.At(at).Withf("cannot cast %s to %s", from, t)
}
