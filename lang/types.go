package lang

import (
	"strings"
	"sync"
)

// Kind classifies a [Type].
type Kind uint8

// Type kinds.
const (
	KindVoid Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindDouble
	KindString
	KindArray
	KindClass
	KindInterface
	KindEnum
)

var kindNames = [...]string{
	KindVoid:      "void",
	KindNull:      "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindDouble:    "double",
	KindString:    "string",
	KindArray:     "array",
	KindClass:     "class",
	KindInterface: "interface",
	KindEnum:      "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Kind(?)"
}

// Type is a resolved script type. Types are interned: two types are equal
// exactly when their pointers are equal.
type Type struct {
	kind  Kind
	name  string
	elem  *Type
	class *Class
}

// Primitive types.
var (
	Void   = &Type{kind: KindVoid, name: "void"}
	Null   = &Type{kind: KindNull, name: "null"}
	Bool   = &Type{kind: KindBool, name: "bool"}
	Int    = &Type{kind: KindInt, name: "int"}
	Float  = &Type{kind: KindFloat, name: "float"}
	Double = &Type{kind: KindDouble, name: "double"}
	String = &Type{kind: KindString, name: "string"}
)

var primitiveTypes = map[string]*Type{
	"void":   Void,
	"bool":   Bool,
	"int":    Int,
	"float":  Float,
	"double": Double,
	"string": String,
}

// arrayTypes interns array types by element type.
var arrayTypes sync.Map // map[*Type]*Type

// ArrayOf returns the array type with element type elem.
func ArrayOf(elem *Type) *Type {
	if t, ok := arrayTypes.Load(elem); ok {
		return t.(*Type)
	}

	t, _ := arrayTypes.LoadOrStore(elem, &Type{
		kind: KindArray,
		name: elem.name + "[]",
		elem: elem,
	})

	return t.(*Type)
}

// Kind returns the type's kind.
func (t *Type) Kind() Kind { return t.kind }

// Name returns the canonical type name, e.g. "int", "List<int>", "int[]".
func (t *Type) Name() string { return t.name }

func (t *Type) String() string {
	if t == nil {
		return "void"
	}

	return t.name
}

// Elem returns the element type of an array type, or nil.
func (t *Type) Elem() *Type { return t.elem }

// Class returns the capability table of a class, interface, or enum type.
func (t *Type) Class() *Class { return t.class }

// IsNumeric reports whether t is int, float, or double.
func (t *Type) IsNumeric() bool {
	return t.kind == KindInt || t.kind == KindFloat || t.kind == KindDouble
}

// IsReference reports whether values of t may be null.
func (t *Type) IsReference() bool {
	switch t.kind {
	case KindNull, KindString, KindArray, KindClass, KindInterface:
		return true
	}

	return false
}

// rank orders numeric types for promotion: int < float < double.
func (t *Type) rank() int {
	switch t.kind {
	case KindInt:
		return 1
	case KindFloat:
		return 2
	case KindDouble:
		return 3
	}

	return 0
}

// promote returns the common numeric type of a and b.
func promote(a, b *Type) *Type {
	if a.rank() >= b.rank() {
		return a
	}

	return b
}

// genericKey builds the memoization key of a generic instantiation.
func genericKey(name string, args []*Type) string {
	var sb strings.Builder

	sb.WriteString(name)
	sb.WriteByte('<')

	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}

		sb.WriteString(a.name)
	}

	sb.WriteByte('>')

	return sb.String()
}

// Parameter describes one parameter of a host function, method, or
// expected entry point.
type Parameter struct {
	Name string
	Type *Type
	Mod  ParamMod
}

// P returns a by-value parameter.
func P(name string, t *Type) Parameter { return Parameter{Name: name, Type: t} }

// RefP returns a ref parameter.
func RefP(name string, t *Type) Parameter {
	return Parameter{Name: name, Type: t, Mod: ByRef}
}

// OutP returns an out parameter.
func OutP(name string, t *Type) Parameter {
	return Parameter{Name: name, Type: t, Mod: ByOut}
}

func (p Parameter) String() string {
	var sb strings.Builder

	if p.Mod != ByValue {
		sb.WriteString(p.Mod.String())
		sb.WriteByte(' ')
	}

	sb.WriteString(p.Type.String())

	if p.Name != "" {
		sb.WriteByte(' ')
		sb.WriteString(p.Name)
	}

	return sb.String()
}

// FunctionSignature is the shape of a function: its name, return type, and
// ordered parameters. Hosts supply signatures of expected entry points.
type FunctionSignature struct {
	Name   string
	Return *Type
	Params []Parameter
}

// Sig is shorthand for building a [FunctionSignature].
func Sig(name string, ret *Type, params ...Parameter) FunctionSignature {
	return FunctionSignature{Name: name, Return: ret, Params: params}
}

func (s FunctionSignature) String() string {
	var sb strings.Builder

	sb.WriteString(s.Return.String())
	sb.WriteByte(' ')
	sb.WriteString(s.Name)
	sb.WriteString(paramList(s.Params))

	return sb.String()
}

func paramList(params []Parameter) string {
	var sb strings.Builder

	sb.WriteByte('(')

	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(p.String())
	}

	sb.WriteByte(')')

	return sb.String()
}

// sameParams reports whether two parameter lists have identical types and
// passing modes.
func sameParams(a, b []Parameter) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i].Type != b[i].Type || a[i].Mod != b[i].Mod {
			return false
		}
	}

	return true
}
