package lang

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
)

// Call carries the receiver and arguments of a native invocation.
type Call struct {
	Context context.Context
	Runtime *RuntimeContext
	This    Value
	Args    []Value
	At      Position

	cells []*Cell
}

// Arg returns argument i, or null when absent.
func (c *Call) Arg(i int) Value {
	if i < 0 || i >= len(c.Args) {
		return NullValue
	}

	return c.Args[i]
}

// Ref returns the caller cell bound to ref or out parameter i, or nil.
func (c *Call) Ref(i int) *Cell {
	if i < 0 || i >= len(c.cells) {
		return nil
	}

	return c.cells[i]
}

// SetOut stores v through the ref or out parameter i.
func (c *Call) SetOut(i int, v Value) error {
	cell := c.Ref(i)
	if cell == nil {
		return ErrRuntime.At(c.At).Withf("argument %d is not passed by reference", i)
	}

	cell.v = v

	return nil
}

// Fault returns a runtime error positioned at the call site.
func (c *Call) Fault(format string, args ...any) error {
	return ErrRuntime.At(c.At).Withf(format, args...)
}

// Registrar holds the classes, interfaces, enums, and generic templates
// visible to scripts compiled against one [GlobalContext].
type Registrar struct {
	mu        sync.Mutex
	types     map[string]*Class
	generics  map[string]*generic
	instances map[string]*Class
	prims     map[*Type]*Class
}

type generic struct {
	name  string
	arity int
	build func(*Instance) error
}

// Instance is a generic instantiation being built. Build functions define
// its members with [DefineInstance].
type Instance struct {
	Args []*Type

	r     *Registrar
	class *Class
}

// Name returns the canonical name of the instantiation, e.g. "List<int>".
func (in *Instance) Name() string { return in.class.name }

// Type returns the type being built.
func (in *Instance) Type() *Type { return in.class.typ }

func newRegistrar() *Registrar {
	return &Registrar{
		types:     make(map[string]*Class),
		generics:  make(map[string]*generic),
		instances: make(map[string]*Class),
		prims:     make(map[*Type]*Class),
	}
}

// Lookup returns the non-generic class, interface, or enum named name.
func (r *Registrar) Lookup(name string) (*Class, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.types[name]

	return c, ok
}

// Names returns the sorted names of every registered type and generic
// template.
func (r *Registrar) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make(map[string]struct{}, len(r.types)+len(r.generics))
	for n := range r.types {
		names[n] = struct{}{}
	}

	for n := range r.generics {
		names[n] = struct{}{}
	}

	return sortedKeys(names)
}

// IsGeneric reports whether name is a generic template and returns its
// arity.
func (r *Registrar) IsGeneric(name string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.generics[name]
	if !ok {
		return 0, false
	}

	return g.arity, true
}

// primitive returns the member table of a primitive type.
func (r *Registrar) primitive(t *Type) *Class {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.prims[t]
}

func (r *Registrar) declare(c *Class) error {
	if _, ok := primitiveTypes[c.name]; ok {
		return ErrRegister.Withf("%s is a reserved type name", c.name)
	}

	if _, ok := r.types[c.name]; ok {
		return ErrRegister.Withf("type %s is already registered", c.name)
	}

	if _, ok := r.generics[c.name]; ok {
		return ErrRegister.Withf("type %s is already registered as a generic", c.name)
	}

	r.types[c.name] = c

	return nil
}

// Generic registers a generic class template. build runs once per distinct
// type-argument list; instantiations are memoized by canonical name.
func (r *Registrar) Generic(name string, arity int, build func(*Instance) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if arity < 1 {
		return ErrRegister.Withf("generic %s must take at least one type argument", name)
	}

	if _, ok := r.types[name]; ok {
		return ErrRegister.Withf("type %s is already registered", name)
	}

	if _, ok := r.generics[name]; ok {
		return ErrRegister.Withf("generic %s is already registered", name)
	}

	r.generics[name] = &generic{name: name, arity: arity, build: build}

	return nil
}

// Instantiate returns the class of the generic template name applied to
// args, building it on first use.
func (r *Registrar) Instantiate(name string, args ...*Type) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.instantiate(name, args)
}

// instantiate requires r.mu. The shell class is memoized before its build
// runs so members may refer to their own type.
func (r *Registrar) instantiate(name string, args []*Type) (*Class, error) {
	g, ok := r.generics[name]
	if !ok {
		return nil, ErrBinding.Withf("unknown generic type %s", name)
	}

	if len(args) != g.arity {
		return nil, ErrBinding.Withf("%s expects %d type argument(s), got %d",
			name, g.arity, len(args))
	}

	for _, a := range args {
		if a == nil || a == Void || a == Null {
			return nil, ErrBinding.Withf("invalid type argument %s for %s", a, name)
		}
	}

	key := genericKey(name, args)
	if c, ok := r.instances[key]; ok {
		return c, nil
	}

	c := newClass(key, ClassHost)
	c.args = slices.Clone(args)
	c.template = name
	r.instances[key] = c

	if err := g.build(&Instance{Args: c.args, r: r, class: c}); err != nil {
		delete(r.instances, key)

		return nil, err
	}

	if err := c.finish(); err != nil {
		delete(r.instances, key)

		return nil, err
	}

	return c, nil
}

// RegisterClass registers a host class whose instances carry payloads of
// type T. define runs once, under the registrar lock, and must only use the
// [ClassDef] it is given.
func RegisterClass[T any](r *Registrar, name string, define func(*ClassDef[T])) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := newClass(name, ClassHost)
	if err := r.declare(c); err != nil {
		return nil, err
	}

	d := &ClassDef[T]{r: r, c: c}
	define(d)

	if err := errors.Join(d.errs...); err != nil {
		delete(r.types, name)

		return nil, err
	}

	if err := c.finish(); err != nil {
		delete(r.types, name)

		return nil, err
	}

	return c, nil
}

// DefineInstance populates a generic instantiation with members operating on
// payloads of type T.
func DefineInstance[T any](in *Instance, define func(*ClassDef[T])) error {
	d := &ClassDef[T]{r: in.r, c: in.class}
	define(d)

	return errors.Join(d.errs...)
}

// definePrimitive installs the member table of a primitive type. Receivers
// are the primitive values themselves.
func (r *Registrar) definePrimitive(t *Type, define func(*ClassDef[Value])) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := newClass(t.name, ClassHost)
	c.typ = t

	d := &ClassDef[Value]{r: r, c: c, prim: true}
	define(d)

	if err := errors.Join(d.errs...); err != nil {
		return err
	}

	r.prims[t] = c

	return nil
}

// Interface registers an interface. Its methods become slots that
// implementing classes fill at registration time.
func (r *Registrar) Interface(name string, define func(*InterfaceDef)) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := newClass(name, ClassInterface)
	if err := r.declare(c); err != nil {
		return nil, err
	}

	d := &InterfaceDef{c: c}
	define(d)

	if err := errors.Join(d.errs...); err != nil {
		delete(r.types, name)

		return nil, err
	}

	return c, nil
}

// Enum registers an enum type.
func (r *Registrar) Enum(name string, members ...EnumMember) (*Class, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := newClass(name, ClassEnum)

	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if seen[m.Name] {
			return nil, ErrRegister.Withf("enum %s declares %s twice", name, m.Name)
		}

		seen[m.Name] = true
	}

	c.members = slices.Clone(members)

	if err := r.declare(c); err != nil {
		return nil, err
	}

	return c, nil
}

// InterfaceDef declares the methods of an interface.
type InterfaceDef struct {
	c    *Class
	errs []error
}

// Method declares an interface slot. Slot names are unique.
func (d *InterfaceDef) Method(name string, ret *Type, params ...Parameter) {
	for _, s := range d.c.slots {
		if s.Name == name {
			d.errs = append(d.errs,
				ErrRegister.Withf("interface %s declares %s twice", d.c.name, name))

			return
		}
	}

	d.c.slots = append(d.c.slots, &Method{
		Name:   name,
		Params: params,
		Return: orVoid(ret),
		owner:  d.c,
	})
}

// ClassDef declares the members of a host class with payload type T.
type ClassDef[T any] struct {
	r    *Registrar
	c    *Class
	prim bool
	errs []error
}

// Class returns the class being defined.
func (d *ClassDef[T]) Class() *Class { return d.c }

// Type returns the type being defined, for self-referential signatures.
func (d *ClassDef[T]) Type() *Type { return d.c.typ }

// Instance instantiates another generic template from within a definition.
func (d *ClassDef[T]) Instance(name string, args ...*Type) *Type {
	c, err := d.r.instantiate(name, args)
	if err != nil {
		d.errs = append(d.errs, err)

		return nil
	}

	return c.typ
}

func (d *ClassDef[T]) fail(format string, args ...any) {
	d.errs = append(d.errs,
		ErrRegister.Withf(d.c.name+": "+format, args...))
}

// self extracts the receiver payload of a call.
func (d *ClassDef[T]) self(c *Call) (T, error) {
	var zero T

	if d.prim {
		if v, ok := any(c.This).(T); ok {
			return v, nil
		}
	}

	o := c.This.Object()
	if o == nil {
		return zero, ErrRuntime.At(c.At).Withf("null reference")
	}

	v, ok := o.host.(T)
	if !ok {
		return zero, ErrRuntime.At(c.At).
			Withf("%s receiver does not belong to %s", o.class.name, d.c.name)
	}

	return v, nil
}

// Extends makes base the base class of the class being defined.
func (d *ClassDef[T]) Extends(base *Class) {
	if base == nil || base.kind != ClassHost {
		d.fail("base must be a host class")

		return
	}

	for k := base; k != nil; k = k.base {
		if k == d.c {
			d.fail("inheritance cycle through %s", base.name)

			return
		}
	}

	d.c.base = base
}

// Implements declares that the class satisfies iface through its public
// methods and any [ClassDef.Explicit] implementations.
func (d *ClassDef[T]) Implements(iface *Class) {
	if iface == nil || iface.kind != ClassInterface {
		d.fail("can only implement interfaces")

		return
	}

	if !slices.Contains(d.c.ifaces, iface) {
		d.c.ifaces = append(d.c.ifaces, iface)
	}
}

// Explicit implements the slot name of iface with a method reachable only
// through that interface.
func (d *ClassDef[T]) Explicit(iface *Class, name string, fn func(self T, c *Call) (Value, error)) {
	d.Implements(iface)

	if iface == nil {
		return
	}

	idx := slices.IndexFunc(iface.slots, func(m *Method) bool { return m.Name == name })
	if idx < 0 {
		d.fail("interface %s has no method %s", iface.name, name)

		return
	}

	slot := iface.slots[idx]

	if d.c.explicit[iface] == nil {
		d.c.explicit[iface] = make(map[string]*Method)
	}

	d.c.explicit[iface][name] = &Method{
		Name:     name,
		Params:   slot.Params,
		Return:   slot.Return,
		owner:    d.c,
		native:   d.bind(fn),
		explicit: iface,
	}
}

func (d *ClassDef[T]) bind(fn func(self T, c *Call) (Value, error)) NativeFunc {
	return func(c *Call) (Value, error) {
		self, err := d.self(c)
		if err != nil {
			return NullValue, err
		}

		return fn(self, c)
	}
}

// Constructor declares a constructor returning a new payload.
func (d *ClassDef[T]) Constructor(fn func(c *Call) (T, error), params ...Parameter) {
	if d.hasOverload(d.c.ctors, params) {
		d.fail("duplicate constructor %s", paramList(params))

		return
	}

	cls := d.c
	d.c.ctors = append(d.c.ctors, &Method{
		Name:   cls.name,
		Params: params,
		Return: cls.typ,
		Static: true,
		owner:  cls,
		native: func(c *Call) (Value, error) {
			v, err := fn(c)
			if err != nil {
				return NullValue, err
			}

			return cls.New(v), nil
		},
	})
}

// Method declares an instance method.
func (d *ClassDef[T]) Method(name string, ret *Type, fn func(self T, c *Call) (Value, error), params ...Parameter) {
	d.addMethod(d.c.methods, name, ret, false, d.bind(fn), params)
}

// StaticMethod declares a static method.
func (d *ClassDef[T]) StaticMethod(name string, ret *Type, fn NativeFunc, params ...Parameter) {
	d.addMethod(d.c.statics, name, ret, true, fn, params)
}

func (d *ClassDef[T]) addMethod(
	table map[string][]*Method,
	name string,
	ret *Type,
	static bool,
	fn NativeFunc,
	params []Parameter,
) {
	if d.hasOverload(table[name], params) {
		d.fail("duplicate method %s%s", name, paramList(params))

		return
	}

	table[name] = append(table[name], &Method{
		Name:   name,
		Params: params,
		Return: orVoid(ret),
		Static: static,
		owner:  d.c,
		native: fn,
	})
}

func (d *ClassDef[T]) hasOverload(ms []*Method, params []Parameter) bool {
	return slices.ContainsFunc(ms, func(m *Method) bool {
		return sameParams(m.Params, params)
	})
}

// Property declares an instance property. A nil set makes it read-only.
func (d *ClassDef[T]) Property(name string, typ *Type, get func(self T) Value, set func(self T, v Value) error) {
	p := &Property{Name: name, Type: typ, owner: d.c, field: -1}

	p.get = func(c *Call) (Value, error) {
		self, err := d.self(c)
		if err != nil {
			return NullValue, err
		}

		return get(self), nil
	}

	if set != nil {
		p.set = func(c *Call) (Value, error) {
			self, err := d.self(c)
			if err != nil {
				return NullValue, err
			}

			return NullValue, set(self, c.Arg(0))
		}
	}

	d.addProp(d.c.props, p)
}

// StaticProperty declares a static property. A nil set makes it read-only.
func (d *ClassDef[T]) StaticProperty(name string, typ *Type, get func() Value, set func(v Value) error) {
	p := &Property{Name: name, Type: typ, Static: true, owner: d.c, field: -1}

	p.get = func(*Call) (Value, error) { return get(), nil }

	if set != nil {
		p.set = func(c *Call) (Value, error) { return NullValue, set(c.Arg(0)) }
	}

	d.addProp(d.c.sprops, p)
}

func (d *ClassDef[T]) addProp(table map[string]*Property, p *Property) {
	if _, ok := table[p.Name]; ok {
		d.fail("duplicate property %s", p.Name)

		return
	}

	table[p.Name] = p
}

// Operator overloads a binary (two parameters) or unary (one parameter)
// operator. At least one parameter must have the class type.
func (d *ClassDef[T]) Operator(op string, ret *Type, fn NativeFunc, params ...Parameter) {
	if !slices.Contains(overloadableOps, op) {
		d.fail("operator %s cannot be overloaded", op)

		return
	}

	if len(params) < 1 || len(params) > 2 ||
		!slices.ContainsFunc(params, func(p Parameter) bool { return p.Type == d.c.typ }) {
		d.fail("operator %s must take one or two parameters including %s", op, d.c.name)

		return
	}

	d.addMethod(d.c.ops, op, ret, true, fn, params)
}

var overloadableOps = []string{
	"+", "-", "*", "/", "%", "==", "!=", "<", ">", "<=", ">=",
	"&", "|", "^", "!", "~",
}

// Indexer declares "x[key]". A nil set makes it read-only.
func (d *ClassDef[T]) Indexer(key, elem *Type, get func(self T, key Value) (Value, error), set func(self T, key, v Value) error) {
	ix := &Indexer{Key: key, Elem: elem}

	ix.get = func(c *Call) (Value, error) {
		self, err := d.self(c)
		if err != nil {
			return NullValue, err
		}

		return get(self, c.Arg(0))
	}

	if set != nil {
		ix.set = func(c *Call) (Value, error) {
			self, err := d.self(c)
			if err != nil {
				return NullValue, err
			}

			return NullValue, set(self, c.Arg(0), c.Arg(1))
		}
	}

	d.c.indexer = ix
}

// Enumerable makes instances usable in foreach, yielding values of elem.
func (d *ClassDef[T]) Enumerable(elem *Type, each func(self T) iter.Seq[Value]) {
	d.c.elem = elem
	d.c.each = func(v Value) iter.Seq[Value] {
		self, err := d.self(&Call{This: v})
		if err != nil {
			return func(func(Value) bool) {}
		}

		return each(self)
	}
}

// Stringer sets the text rendering of instances.
func (d *ClassDef[T]) Stringer(fn func(self T) string) {
	d.c.str = func(v Value) string {
		self, err := d.self(&Call{This: v})
		if err != nil {
			return d.c.name
		}

		return fn(self)
	}
}

func orVoid(t *Type) *Type {
	if t == nil {
		return Void
	}

	return t
}
