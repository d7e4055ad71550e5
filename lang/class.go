package lang

import (
	"iter"
	"slices"
)

// ClassKind classifies a [Class].
type ClassKind uint8

// Class kinds.
const (
	ClassHost ClassKind = iota
	ClassScript
	ClassInterface
	ClassEnum
)

// NativeFunc implements a host function, method, constructor, property
// accessor, indexer accessor, or operator.
type NativeFunc func(c *Call) (Value, error)

// Method is one callable member of a class: an instance or static method, a
// constructor, an operator, or an interface slot.
type Method struct {
	Name   string
	Params []Parameter
	Return *Type
	Static bool

	owner    *Class
	native   NativeFunc
	fn       *funcInst
	explicit *Class
}

// Owner returns the class that declared m.
func (m *Method) Owner() *Class { return m.owner }

// Signature returns the shape of m.
func (m *Method) Signature() FunctionSignature {
	return FunctionSignature{Name: m.Name, Return: m.Return, Params: m.Params}
}

func (m *Method) String() string {
	if m.owner == nil {
		return m.Signature().String()
	}

	return m.owner.name + "." + m.Signature().String()
}

// Property is a readable, optionally writable member. Script class fields
// are properties backed by an object cell.
type Property struct {
	Name   string
	Type   *Type
	Static bool

	owner *Class
	get   NativeFunc
	set   NativeFunc
	field int
}

// ReadOnly reports whether p cannot be assigned.
func (p *Property) ReadOnly() bool { return p.field < 0 && p.set == nil }

// Indexer is the "x[key]" capability of a class.
type Indexer struct {
	Key  *Type
	Elem *Type

	get NativeFunc
	set NativeFunc
}

// EnumMember is a named enum constant.
type EnumMember struct {
	Name  string
	Value int64
}

// Members returns enum members numbered from zero in order.
func Members(names ...string) []EnumMember {
	out := make([]EnumMember, len(names))
	for i, n := range names {
		out[i] = EnumMember{Name: n, Value: int64(i)}
	}

	return out
}

// Class is the capability table of a registered type: every member is a
// closure or bound function fixed at registration, so evaluation never
// inspects Go types.
type Class struct {
	name string
	kind ClassKind
	typ  *Type
	base *Class
	args []*Type

	// template names the generic an instantiation was made from.
	template string

	ctors   []*Method
	methods map[string][]*Method
	statics map[string][]*Method
	props   map[string]*Property
	sprops  map[string]*Property
	ops     map[string][]*Method
	indexer *Indexer
	elem    *Type
	each    func(self Value) iter.Seq[Value]
	str     func(self Value) string

	ifaces   []*Class
	explicit map[*Class]map[string]*Method
	itabs    map[*Class][]*Method
	slots    []*Method

	members []EnumMember

	script *scriptClass
}

func newClass(name string, kind ClassKind) *Class {
	c := &Class{
		name:     name,
		kind:     kind,
		methods:  make(map[string][]*Method),
		statics:  make(map[string][]*Method),
		props:    make(map[string]*Property),
		sprops:   make(map[string]*Property),
		ops:      make(map[string][]*Method),
		explicit: make(map[*Class]map[string]*Method),
		itabs:    make(map[*Class][]*Method),
	}

	tk := KindClass

	switch kind {
	case ClassInterface:
		tk = KindInterface
	case ClassEnum:
		tk = KindEnum
	}

	c.typ = &Type{kind: tk, name: name, class: c}

	return c
}

// Name returns the canonical class name.
func (c *Class) Name() string { return c.name }

// Kind returns the class kind.
func (c *Class) Kind() ClassKind { return c.kind }

// Type returns the script type of instances of c.
func (c *Class) Type() *Type { return c.typ }

// Base returns the base class of c, or nil.
func (c *Class) Base() *Class { return c.base }

// TypeArgs returns the type arguments of a generic instantiation.
func (c *Class) TypeArgs() []*Type { return c.args }

// New wraps a host payload in an object of class c.
func (c *Class) New(host any) Value {
	return ObjectValue(&Object{class: c, host: host})
}

// MemberNames returns the sorted names of every member visible through c.
func (c *Class) MemberNames() []string {
	names := make(map[string]struct{})

	for k := c; k != nil; k = k.base {
		for _, table := range []map[string][]*Method{k.methods, k.statics} {
			for n := range table {
				names[n] = struct{}{}
			}
		}

		for _, table := range []map[string]*Property{k.props, k.sprops} {
			for n := range table {
				names[n] = struct{}{}
			}
		}

		for _, s := range k.slots {
			names[s.Name] = struct{}{}
		}

		for _, m := range k.members {
			names[m.Name] = struct{}{}
		}
	}

	return sortedKeys(names)
}

// Signatures returns the overloads of the method name visible through c,
// instance methods before static ones.
func (c *Class) Signatures(name string) []FunctionSignature {
	var out []FunctionSignature

	for _, static := range []bool{false, true} {
		for _, m := range c.lookupMethods(name, static) {
			out = append(out, m.Signature())
		}
	}

	return out
}

// lookupMethods returns the overloads of name visible through c, nearest
// declaration first. A derived method hides a base method with identical
// parameters.
func (c *Class) lookupMethods(name string, static bool) []*Method {
	var out []*Method

	for k := c; k != nil; k = k.base {
		table := k.methods
		if static {
			table = k.statics
		}

		for _, m := range table[name] {
			hidden := slices.ContainsFunc(out, func(o *Method) bool {
				return sameParams(o.Params, m.Params)
			})
			if !hidden {
				out = append(out, m)
			}
		}
	}

	if len(out) == 0 && c.kind == ClassInterface && !static {
		for _, s := range c.slots {
			if s.Name == name {
				out = append(out, s)
			}
		}
	}

	return out
}

func (c *Class) lookupProp(name string, static bool) *Property {
	for k := c; k != nil; k = k.base {
		table := k.props
		if static {
			table = k.sprops
		}

		if p, ok := table[name]; ok {
			return p
		}
	}

	return nil
}

func (c *Class) lookupIndexer() *Indexer {
	for k := c; k != nil; k = k.base {
		if k.indexer != nil {
			return k.indexer
		}
	}

	return nil
}

// enumerator returns the element type and iteration hook of c.
func (c *Class) enumerator() (*Type, func(Value) iter.Seq[Value]) {
	for k := c; k != nil; k = k.base {
		if k.each != nil {
			return k.elem, k.each
		}
	}

	return nil, nil
}

func (c *Class) operators(op string) []*Method {
	for k := c; k != nil; k = k.base {
		if ms := k.ops[op]; len(ms) > 0 {
			return ms
		}
	}

	return nil
}

func (c *Class) stringer() func(Value) string {
	for k := c; k != nil; k = k.base {
		if k.str != nil {
			return k.str
		}
	}

	return nil
}

// DerivesFrom reports whether c is target, a subclass of target, or
// implements the interface target.
func (c *Class) DerivesFrom(target *Class) bool {
	for k := c; k != nil; k = k.base {
		if k == target {
			return true
		}

		if _, ok := k.itabs[target]; ok {
			return true
		}
	}

	return false
}

// itab returns the method table c uses to satisfy iface.
func (c *Class) itab(iface *Class) []*Method {
	for k := c; k != nil; k = k.base {
		if tab, ok := k.itabs[iface]; ok {
			return tab
		}
	}

	return nil
}

// slotOf returns the interface slot index of m, or -1.
func (c *Class) slotOf(m *Method) int {
	return slices.Index(c.slots, m)
}

func (c *Class) enumValue(name string) (int64, bool) {
	for _, m := range c.members {
		if m.Name == name {
			return m.Value, true
		}
	}

	return 0, false
}

func (c *Class) enumName(v int64) (string, bool) {
	for _, m := range c.members {
		if m.Value == v {
			return m.Name, true
		}
	}

	return "", false
}

// finish resolves the per-interface method tables of c. An explicit
// implementation fills its slot first; otherwise the public method with the
// same name and shape does.
func (c *Class) finish() error {
	for _, iface := range c.ifaces {
		tab := make([]*Method, len(iface.slots))

		for i, slot := range iface.slots {
			if m := c.explicit[iface][slot.Name]; m != nil {
				tab[i] = m

				continue
			}

			for _, m := range c.lookupMethods(slot.Name, false) {
				if sameParams(m.Params, slot.Params) && m.Return == slot.Return {
					tab[i] = m

					break
				}
			}

			if tab[i] == nil {
				return ErrRegister.Withf("%s does not implement %s.%s",
					c.name, iface.name, slot.Signature())
			}
		}

		c.itabs[iface] = tab
	}

	return nil
}
