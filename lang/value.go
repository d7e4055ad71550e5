package lang

import (
	"math"
	"slices"
)

type valueKind uint8

const (
	vNull valueKind = iota
	vBool
	vInt
	vFloat
	vDouble
	vString
	vObject
	vArray
)

// Value is a script value: int, float, double, bool, string, an object or
// array reference, or null. The zero Value is null.
//
// Enum values are ints; the static type recorded by the binder tells them
// apart.
type Value struct {
	kind valueKind
	n    int64
	f    float64
	s    string
	ref  any
}

// NullValue is the null reference.
var NullValue Value

// IntValue returns an int value.
func IntValue(n int64) Value { return Value{kind: vInt, n: n} }

// FloatValue returns a float value.
func FloatValue(f float32) Value { return Value{kind: vFloat, f: float64(f)} }

// DoubleValue returns a double value.
func DoubleValue(f float64) Value { return Value{kind: vDouble, f: f} }

// BoolValue returns a bool value.
func BoolValue(b bool) Value {
	if b {
		return Value{kind: vBool, n: 1}
	}

	return Value{kind: vBool}
}

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: vString, s: s} }

// ObjectValue returns a reference to o, or null if o is nil.
func ObjectValue(o *Object) Value {
	if o == nil {
		return NullValue
	}

	return Value{kind: vObject, ref: o}
}

// ArrayValue returns a reference to a, or null if a is nil.
func ArrayValue(a *Array) Value {
	if a == nil {
		return NullValue
	}

	return Value{kind: vArray, ref: a}
}

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool { return v.kind == vNull }

// Int returns v as an int64, truncating reals toward zero.
func (v Value) Int() int64 {
	switch v.kind {
	case vFloat, vDouble:
		return truncInt(v.f)
	default:
		return v.n
	}
}

// Double returns v as a float64.
func (v Value) Double() float64 {
	switch v.kind {
	case vInt, vBool:
		return float64(v.n)
	default:
		return v.f
	}
}

// Float returns v as a float32.
func (v Value) Float() float32 { return float32(v.Double()) }

// Bool returns v as a bool.
func (v Value) Bool() bool { return v.kind == vBool && v.n != 0 }

// Str returns the string held by v, or "" for non-strings.
func (v Value) Str() string { return v.s }

// Object returns the object v refers to, or nil.
func (v Value) Object() *Object {
	o, _ := v.ref.(*Object)

	return o
}

// Array returns the array v refers to, or nil.
func (v Value) Array() *Array {
	a, _ := v.ref.(*Array)

	return a
}

// Host returns the host payload of an object value, or nil.
func (v Value) Host() any {
	if o := v.Object(); o != nil {
		return o.host
	}

	return nil
}

// Interface returns the Go representation of v: int64, float32, float64,
// bool, string, []any for arrays, the host payload of host objects, the
// *Object of script objects, and nil for null.
func (v Value) Interface() any {
	switch v.kind {
	case vBool:
		return v.Bool()
	case vInt:
		return v.n
	case vFloat:
		return float32(v.f)
	case vDouble:
		return v.f
	case vString:
		return v.s
	case vArray:
		a := v.Array()
		out := make([]any, len(a.items))

		for i, it := range a.items {
			out[i] = it.Interface()
		}

		return out
	case vObject:
		o := v.Object()
		if o.host != nil {
			return o.host
		}

		return o
	}

	return nil
}

func (v Value) String() string { return displayString(v, nil) }

// equal compares two values of the same static type. Reference values
// compare by identity, strings by content.
func (v Value) equal(w Value) bool {
	switch {
	case v.kind == vNull || w.kind == vNull:
		return v.kind == w.kind
	case v.kind == vString && w.kind == vString:
		return v.s == w.s
	case v.kind == vObject || v.kind == vArray:
		return v.ref == w.ref
	case v.kind == vFloat || v.kind == vDouble || w.kind == vFloat || w.kind == vDouble:
		return v.Double() == w.Double()
	default:
		return v.n == w.n
	}
}

// truncInt converts toward zero, saturating at the int64 range. NaN is 0.
func truncInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}

	return int64(f)
}

// zeroValue returns the default value of a declared type.
func zeroValue(t *Type) Value {
	switch t.kind {
	case KindBool:
		return BoolValue(false)
	case KindInt, KindEnum:
		return IntValue(0)
	case KindFloat:
		return FloatValue(0)
	case KindDouble:
		return DoubleValue(0)
	}

	return NullValue
}

// Cell is addressable storage for one value. Globals, locals, and fields
// live in cells; ref and out parameters alias the caller's cell.
type Cell struct {
	v Value
}

// NewCell returns a cell holding v.
func NewCell(v Value) *Cell { return &Cell{v: v} }

// Get returns the value stored in c.
func (c *Cell) Get() Value { return c.v }

// Set stores v in c.
func (c *Cell) Set(v Value) { c.v = v }

// Object is an instance of a host class, a builtin generic class, or a
// script class.
type Object struct {
	class  *Class
	host   any
	fields []Cell
}

// Class returns the dynamic class of o.
func (o *Object) Class() *Class { return o.class }

// Host returns the Go payload of a host object.
func (o *Object) Host() any { return o.host }

// Field returns the named field of a script object.
func (o *Object) Field(name string) (Value, bool) {
	p := o.class.lookupProp(name, false)
	if p == nil || p.field < 0 {
		return NullValue, false
	}

	return o.fields[p.field].v, true
}

// Array is a fixed-length script array.
type Array struct {
	elem  *Type
	items []Value
}

// NewArray returns an array of elem holding items.
func NewArray(elem *Type, items ...Value) *Array {
	return &Array{elem: elem, items: slices.Clone(items)}
}

// Elem returns the element type of a.
func (a *Array) Elem() *Type { return a.elem }

// Len returns the number of elements in a.
func (a *Array) Len() int { return len(a.items) }

// Index returns the element at i.
func (a *Array) Index(i int) Value { return a.items[i] }

// Values returns a copy of the elements of a.
func (a *Array) Values() []Value { return slices.Clone(a.items) }

// ToValue converts a Go value to a script Value.
func ToValue(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return NullValue, nil
	case Value:
		return x, nil
	case int:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint8:
		return IntValue(int64(x)), nil
	case uint16:
		return IntValue(int64(x)), nil
	case uint32:
		return IntValue(int64(x)), nil
	case float32:
		return FloatValue(x), nil
	case float64:
		return DoubleValue(x), nil
	case bool:
		return BoolValue(x), nil
	case string:
		return StringValue(x), nil
	case *Object:
		return ObjectValue(x), nil
	case *Array:
		return ArrayValue(x), nil
	}

	return NullValue, ErrRuntime.Withf("cannot convert %T to a script value", x)
}

// FromValue converts a script Value to the Go type R. Numeric conversions
// follow the script's explicit cast rules; host objects convert to their
// payload type.
func FromValue[R any](v Value) (R, error) {
	var (
		zero R
		out  any
	)

	switch any(zero).(type) {
	case Value:
		out = v
	case int:
		out = int(v.Int())
	case int64:
		out = v.Int()
	case int32:
		out = int32(v.Int())
	case float32:
		out = v.Float()
	case float64:
		out = v.Double()
	case bool:
		out = v.Bool()
	case string:
		if v.kind != vString && v.kind != vNull {
			out = displayString(v, nil)
		} else {
			out = v.s
		}
	case *Object:
		out = v.Object()
	case *Array:
		out = v.Array()
	default:
		if v.IsNull() {
			return zero, nil
		}

		out = v.Interface()
	}

	r, ok := out.(R)
	if !ok {
		return zero, ErrRuntime.Withf("cannot convert %s to %T", v.typeName(), zero)
	}

	return r, nil
}

func (v Value) typeName() string {
	switch v.kind {
	case vBool:
		return "bool"
	case vInt:
		return "int"
	case vFloat:
		return "float"
	case vDouble:
		return "double"
	case vString:
		return "string"
	case vArray:
		return v.Array().elem.name + "[]"
	case vObject:
		return v.Object().class.name
	}

	return "null"
}
