package lang

import (
	"math"
	"math/rand/v2"
)

// mathFuncs are the unary double functions of Math.
var mathFuncs = map[string]func(float64) float64{
	"Sqrt":     math.Sqrt,
	"Floor":    math.Floor,
	"Ceiling":  math.Ceil,
	"Truncate": math.Trunc,
	"Sin":      math.Sin,
	"Cos":      math.Cos,
	"Tan":      math.Tan,
	"Asin":     math.Asin,
	"Acos":     math.Acos,
	"Atan":     math.Atan,
	"Exp":      math.Exp,
	"Log":      math.Log,
	"Log10":    math.Log10,
	"Log2":     math.Log2,
}

func installMath(r *Registrar) error {
	_, err := RegisterClass(r, "Math", func(d *ClassDef[struct{}]) {
		d.StaticProperty("PI", Double, func() Value { return DoubleValue(math.Pi) }, nil)
		d.StaticProperty("E", Double, func() Value { return DoubleValue(math.E) }, nil)

		for _, name := range sortedKeys(mathFuncs) {
			fn := mathFuncs[name]

			d.StaticMethod(name, Double, func(c *Call) (Value, error) {
				return DoubleValue(fn(c.Arg(0).Double())), nil
			}, P("d", Double))
		}

		// Midpoints round to even.
		d.StaticMethod("Round", Double, func(c *Call) (Value, error) {
			return DoubleValue(math.RoundToEven(c.Arg(0).Double())), nil
		}, P("d", Double))

		d.StaticMethod("Round", Double, func(c *Call) (Value, error) {
			digits := c.Arg(1).Int()
			if digits < 0 || digits > 15 {
				return NullValue, c.Fault("rounding digits %d out of range [0, 15]", digits)
			}

			scale := math.Pow(10, float64(digits))

			return DoubleValue(math.RoundToEven(c.Arg(0).Double()*scale) / scale), nil
		}, P("d", Double), P("digits", Int))

		d.StaticMethod("Pow", Double, func(c *Call) (Value, error) {
			return DoubleValue(math.Pow(c.Arg(0).Double(), c.Arg(1).Double())), nil
		}, P("x", Double), P("y", Double))

		d.StaticMethod("Atan2", Double, func(c *Call) (Value, error) {
			return DoubleValue(math.Atan2(c.Arg(0).Double(), c.Arg(1).Double())), nil
		}, P("y", Double), P("x", Double))

		d.StaticMethod("Abs", Int, func(c *Call) (Value, error) {
			n := c.Arg(0).Int()
			if n == math.MinInt64 {
				return NullValue, c.Fault("negating the minimum int overflows")
			}

			if n < 0 {
				n = -n
			}

			return IntValue(n), nil
		}, P("n", Int))

		d.StaticMethod("Abs", Double, func(c *Call) (Value, error) {
			return DoubleValue(math.Abs(c.Arg(0).Double())), nil
		}, P("d", Double))

		d.StaticMethod("Sign", Int, func(c *Call) (Value, error) {
			return IntValue(compareValues(c.Arg(0), IntValue(0))), nil
		}, P("n", Int))

		d.StaticMethod("Sign", Int, func(c *Call) (Value, error) {
			f := c.Arg(0).Double()
			if math.IsNaN(f) {
				return NullValue, c.Fault("sign of NaN")
			}

			return IntValue(compareValues(DoubleValue(f), DoubleValue(0))), nil
		}, P("d", Double))

		d.StaticMethod("Min", Int, func(c *Call) (Value, error) {
			return IntValue(min(c.Arg(0).Int(), c.Arg(1).Int())), nil
		}, P("a", Int), P("b", Int))

		d.StaticMethod("Min", Double, func(c *Call) (Value, error) {
			return DoubleValue(math.Min(c.Arg(0).Double(), c.Arg(1).Double())), nil
		}, P("a", Double), P("b", Double))

		d.StaticMethod("Max", Int, func(c *Call) (Value, error) {
			return IntValue(max(c.Arg(0).Int(), c.Arg(1).Int())), nil
		}, P("a", Int), P("b", Int))

		d.StaticMethod("Max", Double, func(c *Call) (Value, error) {
			return DoubleValue(math.Max(c.Arg(0).Double(), c.Arg(1).Double())), nil
		}, P("a", Double), P("b", Double))

		d.StaticMethod("Clamp", Int, func(c *Call) (Value, error) {
			lo, hi := c.Arg(1).Int(), c.Arg(2).Int()
			if lo > hi {
				return NullValue, c.Fault("clamp bounds %d > %d", lo, hi)
			}

			return IntValue(min(max(c.Arg(0).Int(), lo), hi)), nil
		}, P("value", Int), P("min", Int), P("max", Int))

		d.StaticMethod("Clamp", Double, func(c *Call) (Value, error) {
			lo, hi := c.Arg(1).Double(), c.Arg(2).Double()
			if lo > hi {
				return NullValue, c.Fault("clamp bounds %g > %g", lo, hi)
			}

			return DoubleValue(math.Min(math.Max(c.Arg(0).Double(), lo), hi)), nil
		}, P("value", Double), P("min", Double), P("max", Double))
	})

	return err
}

// random is the payload of Random. Instances seeded alike produce identical
// sequences on every platform.
type random struct {
	rng *rand.Rand
}

func newRandom(seed int64) *random {
	s := uint64(seed)

	return &random{rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

// intn returns a value in [0, n).
func (r *random) intn(n int64) int64 { return r.rng.Int64N(n) }

func installRandom(r *Registrar) error {
	_, err := RegisterClass(r, "Random", func(d *ClassDef[*random]) {
		d.Constructor(func(*Call) (*random, error) {
			return newRandom(rand.Int64()), nil
		})

		d.Constructor(func(c *Call) (*random, error) {
			return newRandom(c.Arg(0).Int()), nil
		}, P("seed", Int))

		d.Method("Next", Int, func(self *random, _ *Call) (Value, error) {
			return IntValue(self.intn(math.MaxInt32)), nil
		})

		d.Method("Next", Int, func(self *random, c *Call) (Value, error) {
			hi := c.Arg(0).Int()
			if hi < 0 {
				return NullValue, c.Fault("upper bound %d is negative", hi)
			}

			if hi == 0 {
				return IntValue(0), nil
			}

			return IntValue(self.intn(hi)), nil
		}, P("max", Int))

		d.Method("Next", Int, func(self *random, c *Call) (Value, error) {
			lo, hi := c.Arg(0).Int(), c.Arg(1).Int()
			if lo > hi {
				return NullValue, c.Fault("lower bound %d exceeds upper bound %d", lo, hi)
			}

			if lo == hi {
				return IntValue(lo), nil
			}

			return IntValue(lo + int64(self.rng.Uint64N(uint64(hi-lo)))), nil
		}, P("min", Int), P("max", Int))

		d.Method("NextDouble", Double, func(self *random, _ *Call) (Value, error) {
			return DoubleValue(self.rng.Float64()), nil
		})

		d.Method("NextBool", Bool, func(self *random, _ *Call) (Value, error) {
			return BoolValue(self.rng.IntN(2) == 1), nil
		})
	})

	return err
}
