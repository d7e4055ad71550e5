package lang

import (
	"iter"
	"strings"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() Position
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Modifier is the storage class of a top-level variable declaration.
type Modifier uint8

// Storage classes.
const (
	ModNone   Modifier = iota // script-private global
	ModGlobal                 // shared with a host declaration of the same name
	ModConst                  // evaluated once at prepare time
	ModExtern                 // supplied by the host
)

func (m Modifier) String() string {
	switch m {
	case ModGlobal:
		return "global"
	case ModConst:
		return "const"
	case ModExtern:
		return "extern"
	default:
		return ""
	}
}

// ParamMod is the passing mode of a parameter or call argument.
type ParamMod uint8

// Passing modes.
const (
	ByValue ParamMod = iota
	ByRef
	ByOut
)

func (m ParamMod) String() string {
	switch m {
	case ByRef:
		return "ref"
	case ByOut:
		return "out"
	default:
		return ""
	}
}

// TypeExpr is a type as written in source: a name with optional generic
// arguments, followed by zero or more array ranks.
type TypeExpr struct {
	At   Position
	Name string
	Args []*TypeExpr
	Rank int
}

func (t *TypeExpr) Pos() Position { return t.At }

// IsVar reports whether t is the inferred type placeholder "var".
func (t *TypeExpr) IsVar() bool { return t != nil && t.Name == "var" && t.Rank == 0 }

func (t *TypeExpr) String() string {
	if t == nil {
		return "void"
	}

	var sb strings.Builder

	sb.WriteString(t.Name)

	if len(t.Args) > 0 {
		sb.WriteByte('<')

		for i, a := range t.Args {
			if i > 0 {
				sb.WriteByte(',')
			}

			sb.WriteString(a.String())
		}

		sb.WriteByte('>')
	}

	for range t.Rank {
		sb.WriteString("[]")
	}

	return sb.String()
}

// File is the root of a parsed script.
type File struct {
	Decls []Node // *VarDecl, *FuncDecl, *ClassDecl in source order
}

// Globals returns an iterator over top-level variable declarations.
func (f *File) Globals() iter.Seq[*VarDecl] { return declsOf[*VarDecl](f) }

// Funcs returns an iterator over top-level function declarations.
func (f *File) Funcs() iter.Seq[*FuncDecl] { return declsOf[*FuncDecl](f) }

// Classes returns an iterator over class declarations.
func (f *File) Classes() iter.Seq[*ClassDecl] { return declsOf[*ClassDecl](f) }

func declsOf[T Node](f *File) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, d := range f.Decls {
			if v, ok := d.(T); ok && !yield(v) {
				return
			}
		}
	}
}

// VarDecl declares a global, const, extern, class field, or local variable.
type VarDecl struct {
	At   Position
	Mod  Modifier
	Type *TypeExpr
	Name string
	Init Expr
}

// Param is a function parameter.
type Param struct {
	At   Position
	Mod  ParamMod
	Type *TypeExpr
	Name string
}

// FuncDecl is a function, method, or constructor. Exactly one of Body and
// Expr is set. Ret is nil for constructors.
type FuncDecl struct {
	At         Position
	Ret        *TypeExpr
	Name       string
	TypeParams []string
	Params     []*Param
	Body       *Block
	Expr       Expr
}

// IsVoid reports whether the function declares no return value.
func (f *FuncDecl) IsVoid() bool {
	return f.Ret == nil || (f.Ret.Name == "void" && f.Ret.Rank == 0)
}

// ClassDecl is a script class, optionally generic.
type ClassDecl struct {
	At         Position
	Name       string
	TypeParams []string
	Fields     []*VarDecl
	Methods    []*FuncDecl
	Ctors      []*FuncDecl
}

func (d *VarDecl) Pos() Position   { return d.At }
func (d *Param) Pos() Position     { return d.At }
func (d *FuncDecl) Pos() Position  { return d.At }
func (d *ClassDecl) Pos() Position { return d.At }

// Statements.
type (
	Block struct {
		At    Position
		Stmts []Stmt
	}

	// DeclStmt declares one or more locals: "int a = 1, b;".
	DeclStmt struct {
		At   Position
		Vars []*VarDecl
	}

	ExprStmt struct {
		At Position
		X  Expr
	}

	EmptyStmt struct {
		At Position
	}

	IfStmt struct {
		At   Position
		Cond Expr
		Then Stmt
		Else Stmt
	}

	WhileStmt struct {
		At   Position
		Cond Expr
		Body Stmt
	}

	ForStmt struct {
		At   Position
		Init []Stmt
		Cond Expr
		Post []Expr
		Body Stmt
	}

	ForeachStmt struct {
		At   Position
		Type *TypeExpr
		Name string
		X    Expr
		Body Stmt
	}

	BreakStmt struct {
		At Position
	}

	ContinueStmt struct {
		At Position
	}

	ReturnStmt struct {
		At Position
		X  Expr
	}
)

func (s *Block) Pos() Position        { return s.At }
func (s *DeclStmt) Pos() Position     { return s.At }
func (s *ExprStmt) Pos() Position     { return s.At }
func (s *EmptyStmt) Pos() Position    { return s.At }
func (s *IfStmt) Pos() Position       { return s.At }
func (s *WhileStmt) Pos() Position    { return s.At }
func (s *ForStmt) Pos() Position      { return s.At }
func (s *ForeachStmt) Pos() Position  { return s.At }
func (s *BreakStmt) Pos() Position    { return s.At }
func (s *ContinueStmt) Pos() Position { return s.At }
func (s *ReturnStmt) Pos() Position   { return s.At }

func (*Block) stmtNode()        {}
func (*DeclStmt) stmtNode()     {}
func (*ExprStmt) stmtNode()     {}
func (*EmptyStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*ForeachStmt) stmtNode()  {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}

// LitKind classifies a [Literal].
type LitKind uint8

// Literal kinds.
const (
	LitNull LitKind = iota
	LitBool
	LitInt
	LitFloat
	LitDouble
	LitString
)

// Expressions.
type (
	Literal struct {
		At   Position
		Kind LitKind
		Bool bool
		Int  int64
		Real float64
		Str  string
	}

	// Ident names a variable, function, or type. TypeArgs is set for
	// explicit generic arguments ("Max<int>", "List<int>").
	Ident struct {
		At       Position
		Name     string
		TypeArgs []*TypeExpr
	}

	// TypeRef is a type keyword used in expression position ("int.Parse").
	TypeRef struct {
		At   Position
		Type *TypeExpr
	}

	ThisExpr struct {
		At Position
	}

	InterpExpr struct {
		At    Position
		Parts []InterpSegment
	}

	UnaryExpr struct {
		At Position
		Op string
		X  Expr
	}

	IncDecExpr struct {
		At     Position
		Op     string
		Prefix bool
		X      Expr
	}

	BinaryExpr struct {
		At Position
		Op string
		X  Expr
		Y  Expr
	}

	AssignExpr struct {
		At     Position
		Op     string // "=" or a compound operator such as "+="
		Target Expr
		Value  Expr
	}

	CondExpr struct {
		At   Position
		Cond Expr
		Then Expr
		Else Expr
	}

	CastExpr struct {
		At   Position
		Type *TypeExpr
		X    Expr
	}

	// TypeTestExpr is "x is T" or "x as T".
	TypeTestExpr struct {
		At   Position
		Op   string
		X    Expr
		Type *TypeExpr
	}

	MemberExpr struct {
		At       Position
		X        Expr
		Name     string
		TypeArgs []*TypeExpr
	}

	CallExpr struct {
		At   Position
		Fun  Expr
		Args []*Arg
	}

	IndexExpr struct {
		At    Position
		X     Expr
		Index Expr
	}

	NewExpr struct {
		At   Position
		Type *TypeExpr
		Args []*Arg
		Init *Initializer
	}

	// NewArrayExpr is "new T[n]", "new T[n] {...}" or "new T[] {...}".
	NewArrayExpr struct {
		At   Position
		Elem *TypeExpr
		Len  Expr
		Init []Expr
	}

	// ElementList is a braced argument group inside a collection
	// initializer: the "{k, v}" of "new Dictionary<K,V>() { {k, v} }".
	ElementList struct {
		At    Position
		Items []Expr
	}
)

// Arg is a call argument.
type Arg struct {
	Mod ParamMod
	X   Expr
}

// InterpSegment is literal text (X == nil) or an embedded expression with
// optional format specifier.
type InterpSegment struct {
	Text   string
	X      Expr
	Format string
}

// Initializer follows "new T(...)": either collection elements or member
// assignments, never both.
type Initializer struct {
	At       Position
	Elements []Expr
	Members  []*MemberInit
}

// MemberInit is "Name = expr" inside an object initializer.
type MemberInit struct {
	At    Position
	Name  string
	Value Expr
}

func (e *Literal) Pos() Position      { return e.At }
func (e *Ident) Pos() Position        { return e.At }
func (e *TypeRef) Pos() Position      { return e.At }
func (e *ThisExpr) Pos() Position     { return e.At }
func (e *InterpExpr) Pos() Position   { return e.At }
func (e *UnaryExpr) Pos() Position    { return e.At }
func (e *IncDecExpr) Pos() Position   { return e.At }
func (e *BinaryExpr) Pos() Position   { return e.At }
func (e *AssignExpr) Pos() Position   { return e.At }
func (e *CondExpr) Pos() Position     { return e.At }
func (e *CastExpr) Pos() Position     { return e.At }
func (e *TypeTestExpr) Pos() Position { return e.At }
func (e *MemberExpr) Pos() Position   { return e.At }
func (e *CallExpr) Pos() Position     { return e.At }
func (e *IndexExpr) Pos() Position    { return e.At }
func (e *NewExpr) Pos() Position      { return e.At }
func (e *NewArrayExpr) Pos() Position { return e.At }
func (e *ElementList) Pos() Position  { return e.At }

func (*Literal) exprNode()      {}
func (*Ident) exprNode()        {}
func (*TypeRef) exprNode()      {}
func (*ThisExpr) exprNode()     {}
func (*InterpExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*IncDecExpr) exprNode()   {}
func (*BinaryExpr) exprNode()   {}
func (*AssignExpr) exprNode()   {}
func (*CondExpr) exprNode()     {}
func (*CastExpr) exprNode()     {}
func (*TypeTestExpr) exprNode() {}
func (*MemberExpr) exprNode()   {}
func (*CallExpr) exprNode()     {}
func (*IndexExpr) exprNode()    {}
func (*NewExpr) exprNode()      {}
func (*NewArrayExpr) exprNode() {}
func (*ElementList) exprNode()  {}
