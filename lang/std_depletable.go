package lang

import (
	"iter"
	"math/rand/v2"
	"slices"
)

// depletable holds items drawn without replacement. Drawn items stay in
// items; used marks them until the next refill.
type depletable struct {
	items     []Value
	used      []bool
	remaining int
	autoReset bool
	rng       *random
}

func (p *depletable) add(v Value) {
	p.items = append(p.items, v)
	p.used = append(p.used, false)
	p.remaining++
}

func (p *depletable) reset() {
	clear(p.used)
	p.remaining = len(p.items)
}

func (p *depletable) clear() {
	p.items, p.used, p.remaining = nil, nil, 0
}

// take marks the i-th remaining item used and returns it.
func (p *depletable) take(n int) Value {
	for i, u := range p.used {
		if u {
			continue
		}

		if n == 0 {
			p.used[i] = true
			p.remaining--

			return p.items[i]
		}

		n--
	}

	return NullValue
}

// next draws one item: a uniformly random remaining item for bags, the
// oldest remaining item for lists.
func (p *depletable) next(c *Call, name string) (Value, error) {
	if len(p.items) == 0 {
		return NullValue, emptyFault(c, name)
	}

	if p.remaining == 0 {
		if !p.autoReset {
			return NullValue, c.Fault("%s is depleted", name)
		}

		p.reset()
	}

	if p.rng == nil {
		return p.take(0), nil
	}

	return p.take(int(p.rng.intn(int64(p.remaining)))), nil
}

func (p *depletable) remainingItems() []Value {
	var out []Value

	for i, u := range p.used {
		if !u {
			out = append(out, p.items[i])
		}
	}

	return out
}

// defineDepletable declares the members shared by DepletableBag and
// DepletableList. draw names the drawing method.
func defineDepletable(d *ClassDef[*depletable], elem *Type, draw string) {
	name := d.Class().Name()

	d.Property("Count", Int, func(p *depletable) Value { return IntValue(int64(len(p.items))) }, nil)
	d.Property("Remaining", Int, func(p *depletable) Value { return IntValue(int64(p.remaining)) }, nil)
	d.Property("IsDepleted", Bool, func(p *depletable) Value { return BoolValue(p.remaining == 0) }, nil)

	d.Property("AutoReset", Bool,
		func(p *depletable) Value { return BoolValue(p.autoReset) },
		func(p *depletable, v Value) error {
			p.autoReset = v.Bool()

			return nil
		})

	d.Method("Add", Void, func(p *depletable, c *Call) (Value, error) {
		p.add(c.Arg(0))

		return NullValue, nil
	}, P("item", elem))

	d.Method(draw, elem, func(p *depletable, c *Call) (Value, error) {
		return p.next(c, name)
	})

	d.Method("Reset", Void, func(p *depletable, _ *Call) (Value, error) {
		p.reset()

		return NullValue, nil
	})

	d.Method("Clear", Void, func(p *depletable, _ *Call) (Value, error) {
		p.clear()

		return NullValue, nil
	})

	d.Method("Contains", Bool, func(p *depletable, c *Call) (Value, error) {
		return BoolValue(indexOf(p.items, c.Arg(0)) >= 0), nil
	}, P("item", elem))

	d.Method("ToArray", ArrayOf(elem), func(p *depletable, _ *Call) (Value, error) {
		return elemArray(elem, p.remainingItems()), nil
	})

	d.Enumerable(elem, func(p *depletable) iter.Seq[Value] {
		return slices.Values(p.remainingItems())
	})
}

func installDepletable(r *Registrar) error {
	err := r.Generic("DepletableBag", 1, func(in *Instance) error {
		elem := in.Args[0]

		return DefineInstance(in, func(d *ClassDef[*depletable]) {
			d.Constructor(func(*Call) (*depletable, error) {
				return &depletable{autoReset: true, rng: newRandom(rand.Int64())}, nil
			})

			d.Constructor(func(c *Call) (*depletable, error) {
				return &depletable{autoReset: true, rng: newRandom(c.Arg(0).Int())}, nil
			}, P("seed", Int))

			defineDepletable(d, elem, "Draw")
		})
	})
	if err != nil {
		return err
	}

	return r.Generic("DepletableList", 1, func(in *Instance) error {
		elem := in.Args[0]

		return DefineInstance(in, func(d *ClassDef[*depletable]) {
			d.Constructor(func(*Call) (*depletable, error) {
				return &depletable{autoReset: true}, nil
			})

			d.Constructor(func(c *Call) (*depletable, error) {
				a := c.Arg(0).Array()
				if a == nil {
					return nil, c.Fault("null reference")
				}

				p := &depletable{autoReset: true}
				for _, v := range a.items {
					p.add(v)
				}

				return p, nil
			}, P("items", ArrayOf(elem)))

			d.Indexer(Int, elem,
				func(p *depletable, key Value) (Value, error) {
					i := key.Int()
					if i < 0 || i >= int64(len(p.items)) {
						return NullValue, ErrRuntime.Withf("index %d is out of range for length %d", i, len(p.items))
					}

					return p.items[i], nil
				}, nil)

			defineDepletable(d, elem, "Next")
		})
	})
}
