package lang

import (
	"context"
	"errors"
	"log/slog"
	"maps"

	"github.com/ardnew/botscript/log"
)

// globalSlot is one global storage cell of a Script: a script global or
// const, or a host variable the script refers to.
type globalSlot struct {
	name string
	t    *Type
	mod  Modifier
	decl *VarDecl
	init bexpr

	// host slots share the GlobalContext cell and skip their initializer.
	host bool
}

// binder resolves a parsed File against a GlobalContext and produces the
// bound tree of a Script.
type binder struct {
	ctx    context.Context
	gc     *GlobalContext
	reg    *Registrar
	logger log.Logger

	globals    []*globalSlot
	gindex     map[string]int
	funcs      map[string][]*funcTemplate
	classDecls map[string]*ClassDecl
	classes    map[string]*Class
	queue      []*funcInst

	fn *fnScope

	// globalLimit is the index of the global whose initializer is being
	// bound; globals at or after it are not yet declared. -1 lifts the limit.
	globalLimit int
}

type localVar struct {
	slot int
	t    *Type
}

// fnScope is the binding state of one function body.
type fnScope struct {
	inst   *funcInst
	subst  map[string]*Type
	class  *Class
	scopes []map[string]localVar
	nslots int
}

func (f *fnScope) push() { f.scopes = append(f.scopes, make(map[string]localVar)) }

func (f *fnScope) pop() { f.scopes = f.scopes[:len(f.scopes)-1] }

func (f *fnScope) declare(name string, t *Type) int {
	slot := f.nslots
	f.nslots++
	f.scopes[len(f.scopes)-1][name] = localVar{slot: slot, t: t}

	return slot
}

func (f *fnScope) lookup(name string) (localVar, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if v, ok := f.scopes[i][name]; ok {
			return v, true
		}
	}

	return localVar{}, false
}

func newBinder(ctx context.Context, gc *GlobalContext) *binder {
	return &binder{
		ctx:         ctx,
		gc:          gc,
		reg:         gc.reg,
		logger:      gc.opts.logger,
		gindex:      make(map[string]int),
		funcs:       make(map[string][]*funcTemplate),
		classDecls:  make(map[string]*ClassDecl),
		classes:     make(map[string]*Class),
		globalLimit: -1,
	}
}

// bindFile binds every declaration of file and verifies the expected entry
// points.
func bindFile(
	ctx context.Context,
	gc *GlobalContext,
	file *File,
	sigs []FunctionSignature,
) (*binder, error) {
	b := newBinder(ctx, gc)

	steps := []func(*File) error{
		b.declareClasses,
		b.declareFuncs,
		b.declareGlobals,
		b.bindGlobals,
		b.instantiateDecls,
	}

	for _, step := range steps {
		if err := step(file); err != nil {
			return nil, err
		}
	}

	if err := b.drain(); err != nil {
		return nil, err
	}

	if err := b.checkEntries(sigs); err != nil {
		return nil, err
	}

	return b, nil
}

// locate attaches pos to an engine error that has none.
func locate(err error, pos Position) error {
	var e *Error
	if errors.As(err, &e) && !e.pos.IsValid() && pos.IsValid() {
		return e.At(pos)
	}

	return err
}

func (b *binder) declareClasses(file *File) error {
	for decl := range file.Classes() {
		if _, ok := b.reg.Lookup(decl.Name); ok {
			return ErrBinding.At(decl.At).
				Withf("class '%s' conflicts with a registered type", decl.Name)
		}

		if _, ok := b.reg.IsGeneric(decl.Name); ok {
			return ErrBinding.At(decl.At).
				Withf("class '%s' conflicts with a registered generic type", decl.Name)
		}

		b.classDecls[decl.Name] = decl
	}

	return nil
}

func (b *binder) declareFuncs(file *File) error {
	for decl := range file.Funcs() {
		if _, ok := b.classDecls[decl.Name]; ok {
			return ErrBinding.At(decl.At).
				Withf("function '%s' conflicts with class '%s'", decl.Name, decl.Name)
		}

		b.funcs[decl.Name] = append(b.funcs[decl.Name],
			&funcTemplate{decl: decl, insts: make(map[string]*funcInst)})
	}

	return nil
}

func (b *binder) declareGlobals(file *File) error {
	for decl := range file.Globals() {
		if _, ok := b.funcs[decl.Name]; ok {
			return ErrBinding.At(decl.At).
				Withf("global '%s' conflicts with a function of the same name", decl.Name)
		}

		slot := &globalSlot{name: decl.Name, mod: decl.Mod, decl: decl}

		if !decl.Type.IsVar() {
			t, err := b.resolveType(decl.Type, nil)
			if err != nil {
				return err
			}

			slot.t = t
		}

		hv, declared := b.gc.variable(decl.Name)

		switch decl.Mod {
		case ModExtern:
			if !declared {
				return ErrBinding.At(decl.At).
					Withf("extern variable '%s' is not declared by the host", decl.Name)
			}

			slot.host = true

		case ModGlobal:
			slot.host = declared
		}

		if slot.host {
			if slot.t != nil && slot.t != hv.t {
				return ErrBinding.At(decl.At).
					Withf("'%s' is declared as %s but the host declares %s",
						decl.Name, slot.t, hv.t)
			}

			slot.t = hv.t
		}

		b.gindex[decl.Name] = len(b.globals)
		b.globals = append(b.globals, slot)
	}

	return nil
}

// bindGlobals binds initializers in source order. An initializer sees only
// the globals declared before it.
func (b *binder) bindGlobals(*File) error {
	defer func() {
		b.globalLimit = -1
		b.fn = nil
	}()

	for i, slot := range b.globals {
		if slot.decl == nil || slot.decl.Init == nil {
			continue
		}

		b.globalLimit = i
		b.fn = &fnScope{scopes: []map[string]localVar{{}}}

		x, err := b.bindExpr(slot.decl.Init)
		if err != nil {
			return err
		}

		if slot.t == nil {
			t, err := inferredType(x)
			if err != nil {
				return err
			}

			slot.t = t
		} else if x, err = b.coerce(x, slot.t); err != nil {
			return err
		}

		slot.init = x
	}

	return nil
}

// inferredType returns the type a "var" declaration takes from x.
func inferredType(x bexpr) (*Type, error) {
	switch x.typ() {
	case Null:
		return nil, ErrBinding.At(x.pos()).Withf("cannot infer a type from null")
	case Void:
		return nil, ErrBinding.At(x.pos()).Withf("cannot infer a type from a void expression")
	}

	return x.typ(), nil
}

func (b *binder) instantiateDecls(file *File) error {
	for decl := range file.Classes() {
		if len(decl.TypeParams) == 0 {
			if _, err := b.scriptClass(decl, nil); err != nil {
				return err
			}
		}
	}

	for _, name := range sortedKeys(b.funcs) {
		tmpls := b.funcs[name]

		for _, tmpl := range tmpls {
			if len(tmpl.decl.TypeParams) > 0 {
				continue
			}

			if _, err := b.instantiate(tmpl, nil); err != nil {
				return err
			}
		}

		if err := checkOverloads(tmpls); err != nil {
			return err
		}
	}

	return nil
}

// checkOverloads rejects two declarations of one name with the same
// parameter list.
func checkOverloads(tmpls []*funcTemplate) error {
	for i, a := range tmpls {
		for _, b := range tmpls[:i] {
			if len(a.decl.TypeParams) != len(b.decl.TypeParams) {
				continue
			}

			var same bool

			if len(a.decl.TypeParams) == 0 {
				same = sameParams(a.insts[""].params, b.insts[""].params)
			} else {
				same = sameDeclParams(a.decl, b.decl)
			}

			if same {
				return ErrBinding.At(a.decl.At).
					Withf("'%s' is already declared with the same parameters at %s",
						a.decl.Name, b.decl.At)
			}
		}
	}

	return nil
}

func sameDeclParams(a, b *FuncDecl) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}

	for i := range a.Params {
		if a.Params[i].Mod != b.Params[i].Mod ||
			a.Params[i].Type.String() != b.Params[i].Type.String() {
			return false
		}
	}

	return true
}

// drain binds queued function bodies, including instantiations made while
// binding.
func (b *binder) drain() error {
	for len(b.queue) > 0 {
		inst := b.queue[0]
		b.queue = b.queue[1:]

		if err := b.bindBody(inst); err != nil {
			return err
		}
	}

	return nil
}

func (b *binder) checkEntries(sigs []FunctionSignature) error {
	for _, sig := range sigs {
		var found bool

		for _, tmpl := range b.funcs[sig.Name] {
			inst, ok := tmpl.insts[""]
			if !ok || len(tmpl.decl.TypeParams) > 0 {
				continue
			}

			if sameParams(inst.params, sig.Params) && inst.ret == orVoid(sig.Return) {
				found = true

				break
			}
		}

		if !found {
			return ErrParse.Withf("entry point '%s' does not match signature %s",
				sig.Name, sig)
		}
	}

	return nil
}

// resolveType resolves a written type. subst maps type parameters in scope
// to their arguments.
func (b *binder) resolveType(te *TypeExpr, subst map[string]*Type) (*Type, error) {
	if te == nil {
		return Void, nil
	}

	if te.IsVar() {
		return nil, ErrBinding.At(te.At).Withf("'var' is not valid here")
	}

	t, err := b.resolveNamed(te, subst)
	if err != nil {
		return nil, locate(err, te.At)
	}

	if t == Void && te.Rank > 0 {
		return nil, ErrBinding.At(te.At).Withf("void cannot be an array element type")
	}

	for range te.Rank {
		t = ArrayOf(t)
	}

	return t, nil
}

func (b *binder) resolveNamed(te *TypeExpr, subst map[string]*Type) (*Type, error) {
	if len(te.Args) == 0 {
		if t, ok := subst[te.Name]; ok {
			return t, nil
		}

		if t, ok := primitiveTypes[te.Name]; ok {
			return t, nil
		}

		if decl, ok := b.classDecls[te.Name]; ok {
			if len(decl.TypeParams) > 0 {
				return nil, ErrBinding.Withf("class '%s' requires %d type argument(s)",
					te.Name, len(decl.TypeParams))
			}

			c, err := b.scriptClass(decl, nil)
			if err != nil {
				return nil, err
			}

			return c.typ, nil
		}

		if c, ok := b.reg.Lookup(te.Name); ok {
			return c.typ, nil
		}

		if n, ok := b.reg.IsGeneric(te.Name); ok {
			return nil, ErrBinding.Withf("generic type '%s' requires %d type argument(s)",
				te.Name, n)
		}

		return nil, ErrBinding.Withf("unknown type '%s'", te.Name)
	}

	args := make([]*Type, len(te.Args))

	for i, a := range te.Args {
		t, err := b.resolveType(a, subst)
		if err != nil {
			return nil, err
		}

		args[i] = t
	}

	if decl, ok := b.classDecls[te.Name]; ok {
		c, err := b.scriptClass(decl, args)
		if err != nil {
			return nil, err
		}

		return c.typ, nil
	}

	if _, ok := b.reg.IsGeneric(te.Name); !ok {
		return nil, ErrBinding.Withf("type '%s' is not generic", te.Name)
	}

	c, err := b.reg.Instantiate(te.Name, args...)
	if err != nil {
		return nil, err
	}

	return c.typ, nil
}

// typeOf resolves a type written inside the function being bound.
func (b *binder) typeOf(te *TypeExpr) (*Type, error) {
	var subst map[string]*Type
	if b.fn != nil {
		subst = b.fn.subst
	}

	return b.resolveType(te, subst)
}

// scriptClass returns the instantiation of a script class for args,
// building it on first use.
func (b *binder) scriptClass(decl *ClassDecl, args []*Type) (*Class, error) {
	if len(args) != len(decl.TypeParams) {
		return nil, ErrBinding.At(decl.At).
			Withf("class '%s' expects %d type argument(s), got %d",
				decl.Name, len(decl.TypeParams), len(args))
	}

	for _, a := range args {
		if a == Void || a == Null {
			return nil, ErrBinding.Withf("invalid type argument %s for %s", a, decl.Name)
		}
	}

	key := decl.Name
	if len(args) > 0 {
		key = genericKey(decl.Name, args)
	}

	if c, ok := b.classes[key]; ok {
		return c, nil
	}

	c := newClass(key, ClassScript)
	c.args = args

	if len(args) > 0 {
		c.template = decl.Name

		b.logger.TraceContext(b.ctx, "instantiate class", slog.String("class", key))
	}

	subst := make(map[string]*Type, len(args))
	for i, tp := range decl.TypeParams {
		subst[tp] = args[i]
	}

	sc := &scriptClass{
		decl:      decl,
		subst:     subst,
		templates: make(map[string][]*funcTemplate),
	}
	c.script = sc
	b.classes[key] = c

	for i, f := range decl.Fields {
		t, err := b.resolveType(f.Type, subst)
		if err != nil {
			return nil, err
		}

		p := &Property{Name: f.Name, Type: t, owner: c, field: i}
		c.props[f.Name] = p
		sc.fields = append(sc.fields, p)
	}

	sc.init = &funcInst{name: key + ".<init>", class: c, subst: subst, ret: Void}
	b.queue = append(b.queue, sc.init)

	for _, m := range decl.Methods {
		sc.templates[m.Name] = append(sc.templates[m.Name],
			&funcTemplate{decl: m, class: c, insts: make(map[string]*funcInst)})
	}

	for _, name := range sortedKeys(sc.templates) {
		tmpls := sc.templates[name]

		for _, tmpl := range tmpls {
			if len(tmpl.decl.TypeParams) > 0 {
				continue
			}

			inst, err := b.instantiate(tmpl, nil)
			if err != nil {
				return nil, err
			}

			c.methods[name] = append(c.methods[name], &Method{
				Name:   name,
				Params: inst.params,
				Return: inst.ret,
				owner:  c,
				fn:     inst,
			})
		}

		if err := checkOverloads(tmpls); err != nil {
			return nil, err
		}
	}

	for _, decl := range decl.Ctors {
		inst := &funcInst{
			name:  key + "." + decl.Name,
			decl:  decl,
			class: c,
			subst: subst,
			ret:   Void,
		}

		for _, p := range decl.Params {
			t, err := b.resolveType(p.Type, subst)
			if err != nil {
				return nil, err
			}

			inst.params = append(inst.params, Parameter{Name: p.Name, Type: t, Mod: p.Mod})
		}

		for _, prev := range sc.ctors {
			if sameParams(prev.params, inst.params) {
				return nil, ErrBinding.At(decl.At).
					Withf("constructor %s%s is already declared", key, paramList(inst.params))
			}
		}

		sc.ctors = append(sc.ctors, inst)
		b.queue = append(b.queue, inst)
	}

	return c, nil
}

// instantiate returns the bound function of tmpl for targs. Functions with
// an inferred return type are bound immediately; others are queued.
func (b *binder) instantiate(tmpl *funcTemplate, targs []*Type) (*funcInst, error) {
	key := ""
	if len(targs) > 0 {
		key = genericKey("", targs)
	}

	if inst, ok := tmpl.insts[key]; ok {
		return inst, nil
	}

	decl := tmpl.decl

	subst := make(map[string]*Type)
	if tmpl.class != nil {
		maps.Copy(subst, tmpl.class.script.subst)
	}

	for i, tp := range decl.TypeParams {
		subst[tp] = targs[i]
	}

	name := decl.Name
	if len(targs) > 0 {
		name = genericKey(decl.Name, targs)

		b.logger.TraceContext(b.ctx, "instantiate function", slog.String("function", name))
	}

	if tmpl.class != nil {
		name = tmpl.class.name + "." + name
	}

	inst := &funcInst{name: name, decl: decl, class: tmpl.class, subst: subst}

	for _, p := range decl.Params {
		t, err := b.resolveType(p.Type, subst)
		if err != nil {
			return nil, err
		}

		inst.params = append(inst.params, Parameter{Name: p.Name, Type: t, Mod: p.Mod})
	}

	if !decl.Ret.IsVar() {
		ret, err := b.resolveType(decl.Ret, subst)
		if err != nil {
			return nil, err
		}

		inst.ret = ret
	}

	tmpl.insts[key] = inst

	if inst.ret == nil {
		if err := b.bindBody(inst); err != nil {
			delete(tmpl.insts, key)

			return nil, err
		}

		return inst, nil
	}

	b.queue = append(b.queue, inst)

	return inst, nil
}

// bindBody binds the body of inst in a fresh function scope.
func (b *binder) bindBody(inst *funcInst) error {
	if inst.bound {
		return nil
	}

	if inst.binding {
		pos := Position{}
		if inst.decl != nil {
			pos = inst.decl.At
		}

		return ErrBinding.At(pos).
			Withf("cannot infer the return type of '%s' from a recursive call", inst.name)
	}

	inst.binding = true

	savedFn, savedLimit := b.fn, b.globalLimit

	defer func() {
		inst.binding = false
		b.fn, b.globalLimit = savedFn, savedLimit
	}()

	b.globalLimit = -1
	b.fn = &fnScope{
		inst:   inst,
		subst:  inst.subst,
		class:  inst.class,
		scopes: []map[string]localVar{{}},
	}

	for _, p := range inst.params {
		b.fn.declare(p.Name, p.Type)
	}

	var err error

	switch {
	case inst.decl == nil:
		inst.body, err = b.bindFieldInits(inst.class)

	case inst.decl.Expr != nil:
		inst.body, err = b.bindExprBody(inst)

	default:
		inst.body, err = b.bindBlock(inst.decl.Body)
	}

	if err != nil {
		return err
	}

	inst.nslots = b.fn.nslots
	inst.bound = true

	return nil
}

func (b *binder) bindExprBody(inst *funcInst) (bstmt, error) {
	x, err := b.bindExpr(inst.decl.Expr)
	if err != nil {
		return nil, err
	}

	if inst.ret == nil {
		if x.typ() == Void {
			inst.ret = Void
		} else if inst.ret, err = inferredType(x); err != nil {
			return nil, err
		}
	}

	if inst.ret == Void {
		return &bExprStmt{x: x}, nil
	}

	if x, err = b.coerce(x, inst.ret); err != nil {
		return nil, err
	}

	return &bReturn{x: x}, nil
}

// bindFieldInits builds the initializer run before any constructor of a
// script class.
func (b *binder) bindFieldInits(c *Class) (bstmt, error) {
	blk := &bBlock{}

	for i, f := range c.script.decl.Fields {
		if f.Init == nil {
			continue
		}

		p := c.script.fields[i]

		x, err := b.bindExpr(f.Init)
		if err != nil {
			return nil, err
		}

		if x, err = b.coerce(x, p.Type); err != nil {
			return nil, err
		}

		target := &bField{bnode: bnode{t: p.Type, at: f.At}, x: b.this(f.At), index: i}
		blk.stmts = append(blk.stmts, &bExprStmt{
			x: &bAssign{bnode: bnode{t: p.Type, at: f.At}, target: target, value: x},
		})
	}

	return blk, nil
}

func (b *binder) this(at Position) bexpr {
	return &bThis{bnode{t: b.fn.class.typ, at: at}}
}

// hostSlot returns the global index of a host variable, adding a slot on
// first reference.
func (b *binder) hostSlot(name string, hv *hostVar) int {
	if i, ok := b.gindex[name]; ok {
		return i
	}

	b.gindex[name] = len(b.globals)
	b.globals = append(b.globals, &globalSlot{name: name, t: hv.t, host: true})

	return len(b.globals) - 1
}
