package lang

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ardnew/botscript/log"
)

// hostVar is a variable declared by the host. Its cell is shared by every
// RuntimeContext prepared against the declaring GlobalContext.
type hostVar struct {
	t    *Type
	cell *Cell
}

// GlobalContext is the declaration surface a host exposes to scripts: host
// variables, host functions, and the class registry.
type GlobalContext struct {
	mu    sync.RWMutex
	vars  map[string]*hostVar
	funcs map[string][]*Method
	reg   *Registrar
	opts  options
}

// NewGlobalContext returns a context with the standard library installed.
func NewGlobalContext(opts ...Option) *GlobalContext {
	gc := &GlobalContext{
		vars:  make(map[string]*hostVar),
		funcs: make(map[string][]*Method),
		reg:   newRegistrar(),
		opts:  makeOptions(opts),
	}

	if err := installStdlib(gc.reg); err != nil {
		panic(err) // programming error in the standard library
	}

	return gc
}

// Logger returns the logger configured with [WithLogger].
func (gc *GlobalContext) Logger() log.Logger { return gc.opts.logger }

// Classes returns the class registry.
func (gc *GlobalContext) Classes() *Registrar { return gc.reg }

// DeclareVariable declares a host variable visible to scripts. A script
// global of the same name with the "global" modifier shares this variable
// and skips its initializer.
func (gc *GlobalContext) DeclareVariable(name string, typ *Type, v Value) error {
	if typ == nil || typ == Void || typ == Null {
		return ErrRegister.Withf("invalid type for variable '%s'", name)
	}

	if v.IsNull() && !typ.IsReference() {
		v = zeroValue(typ)
	} else if err := checkValue(v, typ); err != nil {
		return ErrRegister.Withf("variable '%s': %s", name, errDetail(err))
	}

	gc.mu.Lock()
	defer gc.mu.Unlock()

	if _, ok := gc.vars[name]; ok {
		return ErrRegister.Withf("variable '%s' is already declared", name)
	}

	gc.vars[name] = &hostVar{t: typ, cell: NewCell(convertValue(v, typ))}

	gc.opts.logger.Trace("declare variable",
		slog.String("name", name),
		slog.String("type", typ.String()))

	return nil
}

// checkValue reports whether v can be stored in a variable of type t.
func checkValue(v Value, t *Type) error {
	switch t.kind {
	case KindBool:
		if v.kind == vBool {
			return nil
		}

	case KindInt, KindEnum:
		if v.kind == vInt {
			return nil
		}

	case KindFloat, KindDouble:
		if v.kind == vInt || v.kind == vFloat || v.kind == vDouble {
			return nil
		}

	default:
		if v.IsNull() || instanceOf(v, t) {
			return nil
		}
	}

	return ErrRegister.Withf("%s value cannot be stored as %s", v.typeName(), t)
}

// Variable returns the current value of a host variable.
func (gc *GlobalContext) Variable(name string) (Value, *Type, bool) {
	hv, ok := gc.variable(name)
	if !ok {
		return NullValue, nil, false
	}

	return hv.cell.v, hv.t, true
}

func (gc *GlobalContext) variable(name string) (*hostVar, bool) {
	gc.mu.RLock()
	defer gc.mu.RUnlock()

	hv, ok := gc.vars[name]

	return hv, ok
}

// Variables returns the sorted names of every host variable.
func (gc *GlobalContext) Variables() []string {
	gc.mu.RLock()
	defer gc.mu.RUnlock()

	return sortedKeys(gc.vars)
}

// RegisterFunction exposes a host function to scripts. Functions of one
// name may be overloaded by parameter list.
func (gc *GlobalContext) RegisterFunction(sig FunctionSignature, fn NativeFunc) error {
	if fn == nil {
		return ErrRegister.Withf("function '%s' has no implementation", sig.Name)
	}

	gc.mu.Lock()
	defer gc.mu.Unlock()

	for _, m := range gc.funcs[sig.Name] {
		if sameParams(m.Params, sig.Params) {
			return ErrRegister.Withf("function %s is already registered", sig)
		}
	}

	gc.funcs[sig.Name] = append(gc.funcs[sig.Name], &Method{
		Name:   sig.Name,
		Params: sig.Params,
		Return: orVoid(sig.Return),
		Static: true,
		native: fn,
	})

	gc.opts.logger.Trace("register function", slog.String("signature", sig.String()))

	return nil
}

func (gc *GlobalContext) functions(name string) ([]*Method, bool) {
	gc.mu.RLock()
	defer gc.mu.RUnlock()

	ms, ok := gc.funcs[name]

	return ms, ok
}

// Functions returns the signatures of every host function, sorted by name.
func (gc *GlobalContext) Functions() []FunctionSignature {
	gc.mu.RLock()
	defer gc.mu.RUnlock()

	var out []FunctionSignature

	for _, name := range sortedKeys(gc.funcs) {
		for _, m := range gc.funcs[name] {
			out = append(out, m.Signature())
		}
	}

	return out
}

// ParseType resolves a type written in script syntax, such as
// "Dictionary<string, int>[]".
func (gc *GlobalContext) ParseType(src string) (*Type, error) {
	te, err := parseTypeText(src)
	if err != nil {
		return nil, err
	}

	return newBinder(context.Background(), gc).resolveType(te, nil)
}

// ParseSignature parses a function header such as
// "int Add(int a, ref int b)".
func (gc *GlobalContext) ParseSignature(src string) (FunctionSignature, error) {
	decl, err := parseSignatureText(src)
	if err != nil {
		return FunctionSignature{}, err
	}

	b := newBinder(context.Background(), gc)

	ret, err := b.resolveType(decl.Ret, nil)
	if err != nil {
		return FunctionSignature{}, err
	}

	sig := FunctionSignature{Name: decl.Name, Return: ret}

	for _, p := range decl.Params {
		t, err := b.resolveType(p.Type, nil)
		if err != nil {
			return FunctionSignature{}, err
		}

		sig.Params = append(sig.Params, Parameter{Name: p.Name, Type: t, Mod: p.Mod})
	}

	return sig, nil
}

// RuntimeContext is one execution session of a [Script]: its global cells,
// with host-declared variables shared with the GlobalContext, and its call
// limits. A RuntimeContext must not be used by concurrent executions.
type RuntimeContext struct {
	script   *Script
	gc       *GlobalContext
	globals  []*Cell
	maxDepth int
	logger   log.Logger

	// last is the budget of the most recent execution.
	last *Budget
}

// Script returns the script rc was prepared from.
func (rc *RuntimeContext) Script() *Script { return rc.script }

// Global returns the current value and type of a script or host global.
func (rc *RuntimeContext) Global(name string) (Value, *Type, bool) {
	i, slot, ok := rc.script.global(name)
	if !ok || i >= len(rc.globals) {
		return rc.gc.Variable(name)
	}

	return rc.globals[i].v, slot.t, true
}

// SetGlobal assigns a script global. Consts cannot be assigned.
func (rc *RuntimeContext) SetGlobal(name string, v Value) error {
	i, slot, ok := rc.script.global(name)
	if !ok || i >= len(rc.globals) {
		return ErrEntryPoint.Withf("unknown global '%s'", name)
	}

	if slot.mod == ModConst {
		return ErrEntryPoint.Withf("cannot assign to const '%s'", name)
	}

	if err := checkValue(v, slot.t); err != nil {
		return ErrEntryPoint.Wrap(err)
	}

	rc.globals[i].v = convertValue(v, slot.t)

	return nil
}

// StepsUsed returns the steps charged by the most recent execution.
func (rc *RuntimeContext) StepsUsed() int64 { return rc.last.Used() }
