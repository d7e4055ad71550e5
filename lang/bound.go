package lang

import (
	"iter"
)

// The bound tree is the binder's output. Every expression carries its
// static type and every call site its fixed target. Bound nodes are shared
// by every RuntimeContext of a Script and never mutated after binding.

type bexpr interface {
	typ() *Type
	pos() Position
}

type bnode struct {
	t  *Type
	at Position
}

func (n *bnode) typ() *Type    { return n.t }
func (n *bnode) pos() Position { return n.at }

type indexMode uint8

const (
	indexArray indexMode = iota
	indexString
	indexHost
)

type (
	bConst struct {
		bnode
		v Value
	}

	bLocal struct {
		bnode
		slot int
	}

	bGlobal struct {
		bnode
		index int
	}

	bThis struct {
		bnode
	}

	bField struct {
		bnode
		x     bexpr
		index int
	}

	// bProp reads a host property; x is nil for static properties.
	bProp struct {
		bnode
		x bexpr
		p *Property
	}

	bArrayLen struct {
		bnode
		x bexpr
	}

	bIndex struct {
		bnode
		x    bexpr
		key  bexpr
		mode indexMode
		ix   *Indexer
	}

	// bCall invokes a script function or method; this is nil for top-level
	// functions.
	bCall struct {
		bnode
		fn   *funcInst
		this bexpr
		args []barg
	}

	// bNative invokes a host function, method, or operator; this is nil for
	// static targets.
	bNative struct {
		bnode
		m    *Method
		this bexpr
		args []barg
	}

	// bIface dispatches through the receiver's table for iface.
	bIface struct {
		bnode
		x     bexpr
		iface *Class
		slot  int
		args  []barg
	}

	// bNew constructs an object through a host constructor (ctor) or a
	// script constructor (fn). Neither is set for the implicit default
	// constructor of a script class.
	bNew struct {
		bnode
		class   *Class
		ctor    *Method
		fn      *funcInst
		args    []barg
		members []bMemberInit
		adds    []bAdd
	}

	bNewArray struct {
		bnode
		elem  *Type
		n     bexpr
		items []bexpr
	}

	bUnary struct {
		bnode
		op string
		x  bexpr
	}

	// bBinary operands are already converted to the operation kind k.
	bBinary struct {
		bnode
		op string
		x  bexpr
		y  bexpr
		k  Kind
	}

	bLogical struct {
		bnode
		and bool
		x   bexpr
		y   bexpr
	}

	bCoalesce struct {
		bnode
		x bexpr
		y bexpr
	}

	bCond struct {
		bnode
		c bexpr
		a bexpr
		b bexpr
	}

	// bConvert changes the representation of x to t: numeric conversions
	// and no-op reference upcasts.
	bConvert struct {
		bnode
		x bexpr
	}

	// bCast checks the dynamic type of x and yields null on mismatch.
	bCast struct {
		bnode
		x bexpr
	}

	bIs struct {
		bnode
		x  bexpr
		to *Type
	}

	bToString struct {
		bnode
		x bexpr
	}

	bInterp struct {
		bnode
		parts []binterp
	}

	bAssign struct {
		bnode
		target bexpr
		value  bexpr
	}

	// bCompound is "target op= value". value has the operation type k; the
	// result converts back to the target type. m is set for overloaded
	// operators.
	bCompound struct {
		bnode
		target bexpr
		op     string
		value  bexpr
		k      *Type
		m      *Method
	}

	bIncDec struct {
		bnode
		target bexpr
		delta  int64
		prefix bool
	}
)

type barg struct {
	x   bexpr
	mod ParamMod
}

type binterp struct {
	text   string
	x      bexpr
	format string
}

type bMemberInit struct {
	p     *Property
	value bexpr
}

type bAdd struct {
	m    *Method
	fn   *funcInst
	args []barg
}

type bstmt interface{}

type (
	bBlock struct {
		stmts []bstmt
	}

	bExprStmt struct {
		x bexpr
	}

	bLocalDecl struct {
		slot int
		t    *Type
		init bexpr
	}

	bIf struct {
		cond bexpr
		then bstmt
		els  bstmt
	}

	bWhile struct {
		cond bexpr
		body bstmt
	}

	bFor struct {
		init []bstmt
		cond bexpr
		post []bexpr
		body bstmt
	}

	bForeach struct {
		at   Position
		slot int
		x    bexpr
		mode indexMode
		each func(Value) iter.Seq[Value]
		conv *Type
		body bstmt
	}

	bBreak    struct{}
	bContinue struct{}

	bReturn struct {
		x bexpr
	}
)

// funcInst is one bound function: a top-level function, a method or
// constructor of a script class instantiation, or an instantiation of a
// generic function.
type funcInst struct {
	name   string
	decl   *FuncDecl
	params []Parameter
	ret    *Type
	class  *Class
	subst  map[string]*Type
	nslots int
	body   bstmt

	binding bool
	bound   bool
}

func (f *funcInst) signature() FunctionSignature {
	return FunctionSignature{Name: f.name, Return: f.ret, Params: f.params}
}

// scriptClass is the per-instantiation state of a script class.
type scriptClass struct {
	decl      *ClassDecl
	subst     map[string]*Type
	fields    []*Property
	init      *funcInst
	ctors     []*funcInst
	templates map[string][]*funcTemplate
}

// funcTemplate is a script function declaration, possibly generic, with the
// instantiations made of it so far.
type funcTemplate struct {
	decl  *FuncDecl
	class *Class
	insts map[string]*funcInst
}
