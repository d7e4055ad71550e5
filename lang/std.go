package lang

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// installStdlib registers the builtin member tables, classes, and generic
// containers every GlobalContext starts with.
func installStdlib(r *Registrar) error {
	steps := []func(*Registrar) error{
		installNumbers,
		installBool,
		installString,
		installMath,
		installRandom,
		installLists,
		installQueues,
		installRingBuffer,
		installDictionary,
		installHashSet,
		installDepletable,
	}

	for _, step := range steps {
		if err := step(r); err != nil {
			return err
		}
	}

	return nil
}

// numberKind describes one numeric primitive for the shared member table.
type numberKind struct {
	t    *Type
	min  Value
	max  Value
	make func(float64) Value
	// parse converts trimmed text; ok is false when it is not a number.
	parse func(string) (Value, bool)
}

var numberKinds = []numberKind{
	{
		t:    Int,
		min:  IntValue(math.MinInt64),
		max:  IntValue(math.MaxInt64),
		make: func(f float64) Value { return IntValue(truncInt(f)) },
		parse: func(s string) (Value, bool) {
			n, err := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), 10, 64)

			return IntValue(n), err == nil
		},
	},
	{
		t:    Float,
		min:  FloatValue(-math.MaxFloat32),
		max:  FloatValue(math.MaxFloat32),
		make: func(f float64) Value { return FloatValue(float32(f)) },
		parse: func(s string) (Value, bool) {
			f, err := strconv.ParseFloat(s, 32)

			return FloatValue(float32(f)), err == nil
		},
	},
	{
		t:    Double,
		min:  DoubleValue(-math.MaxFloat64),
		max:  DoubleValue(math.MaxFloat64),
		make: DoubleValue,
		parse: func(s string) (Value, bool) {
			f, err := strconv.ParseFloat(s, 64)

			return DoubleValue(f), err == nil
		},
	},
}

func installNumbers(r *Registrar) error {
	for _, nk := range numberKinds {
		err := r.definePrimitive(nk.t, func(d *ClassDef[Value]) {
			d.Method("ToString", String, func(self Value, _ *Call) (Value, error) {
				return StringValue(displayString(self, nk.t)), nil
			})

			d.Method("ToString", String, func(self Value, c *Call) (Value, error) {
				s, err := formatNumber(self, nk.t, c.Arg(0).Str())
				if err != nil {
					return NullValue, c.Fault("%s", err)
				}

				return StringValue(s), nil
			}, P("format", String))

			d.Method("CompareTo", Int, func(self Value, c *Call) (Value, error) {
				return IntValue(compareValues(self, c.Arg(0))), nil
			}, P("other", nk.t))

			d.StaticProperty("MaxValue", nk.t, func() Value { return nk.max }, nil)
			d.StaticProperty("MinValue", nk.t, func() Value { return nk.min }, nil)

			d.StaticMethod("Parse", nk.t, func(c *Call) (Value, error) {
				s := c.Arg(0).Str()

				v, ok := nk.parse(strings.TrimSpace(s))
				if !ok {
					return NullValue, c.Fault("'%s' is not a valid %s", s, nk.t)
				}

				return v, nil
			}, P("s", String))

			d.StaticMethod("TryParse", Bool, func(c *Call) (Value, error) {
				v, ok := nk.parse(strings.TrimSpace(c.Arg(0).Str()))
				if !ok {
					v = zeroValue(nk.t)
				}

				return BoolValue(ok), c.SetOut(1, v)
			}, P("s", String), OutP("result", nk.t))

			if nk.t == Int {
				return
			}

			d.StaticMethod("IsNaN", Bool, func(c *Call) (Value, error) {
				return BoolValue(math.IsNaN(c.Arg(0).Double())), nil
			}, P("f", nk.t))

			d.StaticMethod("IsInfinity", Bool, func(c *Call) (Value, error) {
				return BoolValue(math.IsInf(c.Arg(0).Double(), 0)), nil
			}, P("f", nk.t))

			d.StaticProperty("NaN", nk.t, func() Value { return nk.make(math.NaN()) }, nil)
			d.StaticProperty("PositiveInfinity", nk.t, func() Value { return nk.make(math.Inf(1)) }, nil)
			d.StaticProperty("NegativeInfinity", nk.t, func() Value { return nk.make(math.Inf(-1)) }, nil)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func installBool(r *Registrar) error {
	parse := func(s string) (bool, bool) {
		switch {
		case strings.EqualFold(s, "true"):
			return true, true
		case strings.EqualFold(s, "false"):
			return false, true
		}

		return false, false
	}

	return r.definePrimitive(Bool, func(d *ClassDef[Value]) {
		d.Method("ToString", String, func(self Value, _ *Call) (Value, error) {
			return StringValue(displayString(self, Bool)), nil
		})

		d.StaticMethod("Parse", Bool, func(c *Call) (Value, error) {
			s := c.Arg(0).Str()

			b, ok := parse(strings.TrimSpace(s))
			if !ok {
				return NullValue, c.Fault("'%s' is not a valid bool", s)
			}

			return BoolValue(b), nil
		}, P("s", String))

		d.StaticMethod("TryParse", Bool, func(c *Call) (Value, error) {
			b, ok := parse(strings.TrimSpace(c.Arg(0).Str()))

			return BoolValue(ok), c.SetOut(1, BoolValue(b))
		}, P("s", String), OutP("result", Bool))
	})
}

// runeSpan validates the rune range [start, start+n) of s.
func runeSpan(c *Call, rs []rune, start, n int64) error {
	if start < 0 || n < 0 || start+n > int64(len(rs)) {
		return c.Fault("substring [%d, %d) is out of range for length %d", start, start+n, len(rs))
	}

	return nil
}

// runeIndex converts a byte offset of s to a rune offset, passing -1 through.
func runeIndex(s string, byteOff int) Value {
	if byteOff < 0 {
		return IntValue(-1)
	}

	return IntValue(int64(utf8.RuneCountInString(s[:byteOff])))
}

func installString(r *Registrar) error {
	str := func(fn func(s string, c *Call) (Value, error)) func(Value, *Call) (Value, error) {
		return func(self Value, c *Call) (Value, error) { return fn(self.Str(), c) }
	}

	return r.definePrimitive(String, func(d *ClassDef[Value]) {
		d.Property("Length", Int, func(self Value) Value {
			return IntValue(int64(utf8.RuneCountInString(self.Str())))
		}, nil)

		d.Method("ToString", String, func(self Value, _ *Call) (Value, error) {
			return self, nil
		})

		d.Method("Substring", String, str(func(s string, c *Call) (Value, error) {
			rs := []rune(s)
			start := c.Arg(0).Int()

			if err := runeSpan(c, rs, start, int64(len(rs))-start); err != nil {
				return NullValue, err
			}

			return StringValue(string(rs[start:])), nil
		}), P("start", Int))

		d.Method("Substring", String, str(func(s string, c *Call) (Value, error) {
			rs := []rune(s)
			start, n := c.Arg(0).Int(), c.Arg(1).Int()

			if err := runeSpan(c, rs, start, n); err != nil {
				return NullValue, err
			}

			return StringValue(string(rs[start : start+n])), nil
		}), P("start", Int), P("length", Int))

		d.Method("IndexOf", Int, str(func(s string, c *Call) (Value, error) {
			return runeIndex(s, strings.Index(s, c.Arg(0).Str())), nil
		}), P("value", String))

		d.Method("LastIndexOf", Int, str(func(s string, c *Call) (Value, error) {
			return runeIndex(s, strings.LastIndex(s, c.Arg(0).Str())), nil
		}), P("value", String))

		d.Method("Contains", Bool, str(func(s string, c *Call) (Value, error) {
			return BoolValue(strings.Contains(s, c.Arg(0).Str())), nil
		}), P("value", String))

		d.Method("StartsWith", Bool, str(func(s string, c *Call) (Value, error) {
			return BoolValue(strings.HasPrefix(s, c.Arg(0).Str())), nil
		}), P("value", String))

		d.Method("EndsWith", Bool, str(func(s string, c *Call) (Value, error) {
			return BoolValue(strings.HasSuffix(s, c.Arg(0).Str())), nil
		}), P("value", String))

		d.Method("Equals", Bool, str(func(s string, c *Call) (Value, error) {
			o := c.Arg(0)

			return BoolValue(!o.IsNull() && o.Str() == s), nil
		}), P("value", String))

		d.Method("CompareTo", Int, str(func(s string, c *Call) (Value, error) {
			return IntValue(int64(strings.Compare(s, c.Arg(0).Str()))), nil
		}), P("value", String))

		d.Method("ToUpper", String, str(func(s string, _ *Call) (Value, error) {
			return StringValue(strings.ToUpper(s)), nil
		}))

		d.Method("ToLower", String, str(func(s string, _ *Call) (Value, error) {
			return StringValue(strings.ToLower(s)), nil
		}))

		d.Method("Trim", String, str(func(s string, _ *Call) (Value, error) {
			return StringValue(strings.TrimSpace(s)), nil
		}))

		d.Method("TrimStart", String, str(func(s string, _ *Call) (Value, error) {
			return StringValue(strings.TrimLeftFunc(s, isSpace)), nil
		}))

		d.Method("TrimEnd", String, str(func(s string, _ *Call) (Value, error) {
			return StringValue(strings.TrimRightFunc(s, isSpace)), nil
		}))

		d.Method("Replace", String, str(func(s string, c *Call) (Value, error) {
			old := c.Arg(0).Str()
			if old == "" {
				return NullValue, c.Fault("replaced string must not be empty")
			}

			return StringValue(strings.ReplaceAll(s, old, c.Arg(1).Str())), nil
		}), P("oldValue", String), P("newValue", String))

		d.Method("Split", ArrayOf(String), str(func(s string, c *Call) (Value, error) {
			sep := c.Arg(0).Str()

			var parts []string
			if sep == "" {
				parts = []string{s}
			} else {
				parts = strings.Split(s, sep)
			}

			items := make([]Value, len(parts))
			for i, p := range parts {
				items[i] = StringValue(p)
			}

			return ArrayValue(&Array{elem: String, items: items}), nil
		}), P("separator", String))

		d.Method("PadLeft", String, str(func(s string, c *Call) (Value, error) {
			return StringValue(pad(s, c.Arg(0).Int(), true)), nil
		}), P("width", Int))

		d.Method("PadRight", String, str(func(s string, c *Call) (Value, error) {
			return StringValue(pad(s, c.Arg(0).Int(), false)), nil
		}), P("width", Int))

		d.StaticMethod("IsNullOrEmpty", Bool, func(c *Call) (Value, error) {
			return BoolValue(c.Arg(0).Str() == ""), nil
		}, P("value", String))

		d.StaticMethod("IsNullOrWhiteSpace", Bool, func(c *Call) (Value, error) {
			return BoolValue(strings.TrimSpace(c.Arg(0).Str()) == ""), nil
		}, P("value", String))

		d.StaticMethod("Join", String, func(c *Call) (Value, error) {
			a := c.Arg(1).Array()
			if a == nil {
				return NullValue, c.Fault("null reference")
			}

			parts := make([]string, len(a.items))
			for i, it := range a.items {
				parts[i] = displayString(it, String)
			}

			return StringValue(strings.Join(parts, c.Arg(0).Str())), nil
		}, P("separator", String), P("values", ArrayOf(String)))

		d.StaticMethod("Repeat", String, func(c *Call) (Value, error) {
			n := c.Arg(1).Int()
			if n < 0 {
				return NullValue, c.Fault("repeat count %d is negative", n)
			}

			return StringValue(strings.Repeat(c.Arg(0).Str(), int(n))), nil
		}, P("value", String), P("count", Int))

		d.StaticProperty("Empty", String, func() Value { return StringValue("") }, nil)
	})
}

func isSpace(r rune) bool { return strings.ContainsRune(" \t\r\n\v\f", r) }

func pad(s string, width int64, left bool) string {
	n := width - int64(utf8.RuneCountInString(s))
	if n <= 0 {
		return s
	}

	fill := strings.Repeat(" ", int(n))
	if left {
		return fill + s
	}

	return s + fill
}

// compareValues orders numbers, strings, and bools. Other values compare
// equal.
func compareValues(a, b Value) int64 {
	switch {
	case a.kind == vString && b.kind == vString:
		return int64(strings.Compare(a.s, b.s))

	case a.kind == vInt && b.kind == vInt:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}

		return 0

	case isNumber(a) && isNumber(b):
		x, y := a.Double(), b.Double()

		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}

		return 0

	case a.kind == vBool && b.kind == vBool:
		return a.n - b.n
	}

	return 0
}

func isNumber(v Value) bool {
	return v.kind == vInt || v.kind == vFloat || v.kind == vDouble
}

// orderable reports whether values of t can be sorted.
func orderable(t *Type) bool {
	return t.IsNumeric() || t == String || t == Bool || t.kind == KindEnum
}

func emptyFault(c *Call, name string) error {
	return c.Fault("%s is empty", name)
}
