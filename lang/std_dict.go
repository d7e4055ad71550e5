package lang

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// hashKey normalizes a value for use as a Go map key. Keys are already
// converted to the declared key type, so only signed zero needs folding.
func hashKey(v Value) Value {
	if (v.kind == vFloat || v.kind == vDouble) && v.f == 0 {
		v.f = 0
	}

	return v
}

// ordered is an insertion-ordered map. Sets leave vals nil.
type ordered struct {
	keys  []Value
	vals  []Value
	index map[Value]int
}

func newOrdered() *ordered { return &ordered{index: make(map[Value]int)} }

func (o *ordered) len() int { return len(o.keys) }

func (o *ordered) find(k Value) (int, bool) {
	i, ok := o.index[hashKey(k)]

	return i, ok
}

// put adds or replaces k and reports whether k was new.
func (o *ordered) put(k, v Value, withVal bool) bool {
	if i, ok := o.find(k); ok {
		if withVal {
			o.vals[i] = v
		}

		return false
	}

	o.index[hashKey(k)] = len(o.keys)
	o.keys = append(o.keys, k)

	if withVal {
		o.vals = append(o.vals, v)
	}

	return true
}

func (o *ordered) remove(k Value) bool {
	i, ok := o.find(k)
	if !ok {
		return false
	}

	delete(o.index, hashKey(k))
	o.keys = slices.Delete(o.keys, i, i+1)

	if o.vals != nil {
		o.vals = slices.Delete(o.vals, i, i+1)
	}

	for j := i; j < len(o.keys); j++ {
		o.index[hashKey(o.keys[j])] = j
	}

	return true
}

func (o *ordered) clear() {
	o.keys, o.vals = nil, nil
	clear(o.index)
}

func (o *ordered) clone() *ordered {
	return &ordered{
		keys:  slices.Clone(o.keys),
		vals:  slices.Clone(o.vals),
		index: maps.Clone(o.index),
	}
}

type pair struct {
	key, val Value
}

func installDictionary(r *Registrar) error {
	err := r.Generic("KeyValuePair", 2, func(in *Instance) error {
		kt, vt := in.Args[0], in.Args[1]

		return DefineInstance(in, func(d *ClassDef[*pair]) {
			d.Constructor(func(c *Call) (*pair, error) {
				return &pair{key: c.Arg(0), val: c.Arg(1)}, nil
			}, P("key", kt), P("value", vt))

			d.Property("Key", kt, func(p *pair) Value { return p.key }, nil)
			d.Property("Value", vt, func(p *pair) Value { return p.val }, nil)

			d.Stringer(func(p *pair) string {
				return fmt.Sprintf("[%s, %s]", displayString(p.key, kt), displayString(p.val, vt))
			})
		})
	})
	if err != nil {
		return err
	}

	return r.Generic("Dictionary", 2, func(in *Instance) error {
		kt, vt := in.Args[0], in.Args[1]

		return DefineInstance(in, func(d *ClassDef[*ordered]) {
			self := d.Type()
			kvType := d.Instance("KeyValuePair", kt, vt)
			keyList := d.Instance("List", kt)
			valList := d.Instance("List", vt)

			if kvType == nil || keyList == nil || valList == nil {
				return
			}

			keyOf := func(c *Call, i int) (Value, error) {
				k := c.Arg(i)
				if k.IsNull() {
					return NullValue, c.Fault("dictionary key is null")
				}

				return k, nil
			}

			d.Constructor(func(*Call) (*ordered, error) { return newOrdered(), nil })

			d.Constructor(func(c *Call) (*ordered, error) {
				src, err := argPayload[*ordered](c, 0)
				if err != nil {
					return nil, err
				}

				return src.clone(), nil
			}, P("dictionary", self))

			d.Property("Count", Int, func(o *ordered) Value { return IntValue(int64(o.len())) }, nil)

			d.Property("Keys", keyList, func(o *ordered) Value {
				return keyList.class.New(&list{items: slices.Clone(o.keys)})
			}, nil)

			d.Property("Values", valList, func(o *ordered) Value {
				return valList.class.New(&list{items: slices.Clone(o.vals)})
			}, nil)

			d.Indexer(kt, vt,
				func(o *ordered, key Value) (Value, error) {
					if key.IsNull() {
						return NullValue, ErrRuntime.Withf("dictionary key is null")
					}

					i, ok := o.find(key)
					if !ok {
						return NullValue, ErrRuntime.Withf("key '%s' not found", displayString(key, kt))
					}

					return o.vals[i], nil
				},
				func(o *ordered, key, v Value) error {
					if key.IsNull() {
						return ErrRuntime.Withf("dictionary key is null")
					}

					o.put(key, v, true)

					return nil
				})

			d.Method("Add", Void, func(o *ordered, c *Call) (Value, error) {
				k, err := keyOf(c, 0)
				if err != nil {
					return NullValue, err
				}

				if _, ok := o.find(k); ok {
					return NullValue, c.Fault("key '%s' already exists", displayString(k, kt))
				}

				o.put(k, c.Arg(1), true)

				return NullValue, nil
			}, P("key", kt), P("value", vt))

			d.Method("TryAdd", Bool, func(o *ordered, c *Call) (Value, error) {
				k, err := keyOf(c, 0)
				if err != nil {
					return NullValue, err
				}

				if _, ok := o.find(k); ok {
					return BoolValue(false), nil
				}

				return BoolValue(o.put(k, c.Arg(1), true)), nil
			}, P("key", kt), P("value", vt))

			d.Method("Remove", Bool, func(o *ordered, c *Call) (Value, error) {
				k, err := keyOf(c, 0)
				if err != nil {
					return NullValue, err
				}

				return BoolValue(o.remove(k)), nil
			}, P("key", kt))

			d.Method("ContainsKey", Bool, func(o *ordered, c *Call) (Value, error) {
				k, err := keyOf(c, 0)
				if err != nil {
					return NullValue, err
				}

				_, ok := o.find(k)

				return BoolValue(ok), nil
			}, P("key", kt))

			d.Method("ContainsValue", Bool, func(o *ordered, c *Call) (Value, error) {
				return BoolValue(indexOf(o.vals, c.Arg(0)) >= 0), nil
			}, P("value", vt))

			d.Method("TryGetValue", Bool, func(o *ordered, c *Call) (Value, error) {
				k, err := keyOf(c, 0)
				if err != nil {
					return NullValue, err
				}

				i, ok := o.find(k)
				if !ok {
					return BoolValue(false), c.SetOut(1, zeroValue(vt))
				}

				return BoolValue(true), c.SetOut(1, o.vals[i])
			}, P("key", kt), OutP("value", vt))

			d.Method("Clear", Void, func(o *ordered, _ *Call) (Value, error) {
				o.clear()

				return NullValue, nil
			})

			d.Enumerable(kvType, func(o *ordered) iter.Seq[Value] {
				pairs := make([]Value, o.len())
				for i, k := range o.keys {
					pairs[i] = kvType.class.New(&pair{key: k, val: o.vals[i]})
				}

				return slices.Values(pairs)
			})
		})
	})
}

// set is the payload of HashSet.
type set struct {
	*ordered
}

func installHashSet(r *Registrar) error {
	return r.Generic("HashSet", 1, func(in *Instance) error {
		elem := in.Args[0]

		return DefineInstance(in, func(d *ClassDef[*set]) {
			self := d.Type()

			other := func(c *Call) (*set, error) { return argPayload[*set](c, 0) }

			d.Constructor(func(*Call) (*set, error) { return &set{newOrdered()}, nil })

			d.Constructor(func(c *Call) (*set, error) {
				a := c.Arg(0).Array()
				if a == nil {
					return nil, c.Fault("null reference")
				}

				s := &set{newOrdered()}
				for _, v := range a.items {
					s.put(v, NullValue, false)
				}

				return s, nil
			}, P("items", ArrayOf(elem)))

			d.Constructor(func(c *Call) (*set, error) {
				src, err := other(c)
				if err != nil {
					return nil, err
				}

				return &set{src.clone()}, nil
			}, P("set", self))

			d.Property("Count", Int, func(s *set) Value { return IntValue(int64(s.len())) }, nil)

			d.Method("Add", Bool, func(s *set, c *Call) (Value, error) {
				return BoolValue(s.put(c.Arg(0), NullValue, false)), nil
			}, P("item", elem))

			d.Method("Remove", Bool, func(s *set, c *Call) (Value, error) {
				return BoolValue(s.remove(c.Arg(0))), nil
			}, P("item", elem))

			d.Method("Contains", Bool, func(s *set, c *Call) (Value, error) {
				_, ok := s.find(c.Arg(0))

				return BoolValue(ok), nil
			}, P("item", elem))

			d.Method("Clear", Void, func(s *set, _ *Call) (Value, error) {
				s.clear()

				return NullValue, nil
			})

			d.Method("UnionWith", Void, func(s *set, c *Call) (Value, error) {
				o, err := other(c)
				if err != nil {
					return NullValue, err
				}

				for _, k := range slices.Clone(o.keys) {
					s.put(k, NullValue, false)
				}

				return NullValue, nil
			}, P("other", self))

			d.Method("IntersectWith", Void, func(s *set, c *Call) (Value, error) {
				o, err := other(c)
				if err != nil {
					return NullValue, err
				}

				for _, k := range slices.Clone(s.keys) {
					if _, ok := o.find(k); !ok {
						s.remove(k)
					}
				}

				return NullValue, nil
			}, P("other", self))

			d.Method("ExceptWith", Void, func(s *set, c *Call) (Value, error) {
				o, err := other(c)
				if err != nil {
					return NullValue, err
				}

				for _, k := range slices.Clone(o.keys) {
					s.remove(k)
				}

				return NullValue, nil
			}, P("other", self))

			d.Method("ToArray", ArrayOf(elem), func(s *set, _ *Call) (Value, error) {
				return elemArray(elem, s.keys), nil
			})

			d.Enumerable(elem, func(s *set) iter.Seq[Value] { return values(s.keys) })
		})
	})
}
