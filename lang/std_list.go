package lang

import (
	"iter"
	"slices"
)

// values yields a snapshot of items, so containers may be mutated inside
// foreach without disturbing the iteration.
func values(items []Value) iter.Seq[Value] {
	snap := slices.Clone(items)

	return slices.Values(snap)
}

func indexFault(c *Call, i int64, n int) error {
	return c.Fault("index %d is out of range for length %d", i, n)
}

func indexOf(items []Value, v Value) int {
	return slices.IndexFunc(items, v.equal)
}

// elemArray copies items into a new script array of elem.
func elemArray(elem *Type, items []Value) Value {
	return ArrayValue(&Array{elem: elem, items: slices.Clone(items)})
}

// sortValues orders items ascending; numbers, strings, bools, and enums only.
func sortValues(items []Value) {
	slices.SortStableFunc(items, func(a, b Value) int { return int(compareValues(a, b)) })
}

type list struct {
	items []Value
}

func installLists(r *Registrar) error {
	return r.Generic("List", 1, func(in *Instance) error {
		elem := in.Args[0]

		return DefineInstance(in, func(d *ClassDef[*list]) {
			self := d.Type()
			arr := ArrayOf(elem)

			d.Constructor(func(*Call) (*list, error) { return &list{}, nil })

			d.Constructor(func(c *Call) (*list, error) {
				n := c.Arg(0).Int()
				if n < 0 {
					return nil, c.Fault("capacity %d is negative", n)
				}

				return &list{items: make([]Value, 0, n)}, nil
			}, P("capacity", Int))

			d.Constructor(func(c *Call) (*list, error) {
				src, err := argPayload[*list](c, 0)
				if err != nil {
					return nil, err
				}

				return &list{items: slices.Clone(src.items)}, nil
			}, P("items", self))

			d.Constructor(func(c *Call) (*list, error) {
				a := c.Arg(0).Array()
				if a == nil {
					return nil, c.Fault("null reference")
				}

				return &list{items: slices.Clone(a.items)}, nil
			}, P("items", arr))

			d.Property("Count", Int, func(l *list) Value { return IntValue(int64(len(l.items))) }, nil)

			d.Indexer(Int, elem,
				func(l *list, key Value) (Value, error) {
					i := key.Int()
					if i < 0 || i >= int64(len(l.items)) {
						return NullValue, ErrRuntime.Withf("index %d is out of range for length %d", i, len(l.items))
					}

					return l.items[i], nil
				},
				func(l *list, key, v Value) error {
					i := key.Int()
					if i < 0 || i >= int64(len(l.items)) {
						return ErrRuntime.Withf("index %d is out of range for length %d", i, len(l.items))
					}

					l.items[i] = v

					return nil
				})

			d.Method("Add", Void, func(l *list, c *Call) (Value, error) {
				l.items = append(l.items, c.Arg(0))

				return NullValue, nil
			}, P("item", elem))

			d.Method("AddRange", Void, func(l *list, c *Call) (Value, error) {
				src, err := argPayload[*list](c, 0)
				if err != nil {
					return NullValue, err
				}

				l.items = append(l.items, src.items...)

				return NullValue, nil
			}, P("items", self))

			d.Method("AddRange", Void, func(l *list, c *Call) (Value, error) {
				a := c.Arg(0).Array()
				if a == nil {
					return NullValue, c.Fault("null reference")
				}

				l.items = append(l.items, a.items...)

				return NullValue, nil
			}, P("items", arr))

			d.Method("Insert", Void, func(l *list, c *Call) (Value, error) {
				i := c.Arg(0).Int()
				if i < 0 || i > int64(len(l.items)) {
					return NullValue, indexFault(c, i, len(l.items))
				}

				l.items = slices.Insert(l.items, int(i), c.Arg(1))

				return NullValue, nil
			}, P("index", Int), P("item", elem))

			d.Method("Remove", Bool, func(l *list, c *Call) (Value, error) {
				i := indexOf(l.items, c.Arg(0))
				if i < 0 {
					return BoolValue(false), nil
				}

				l.items = slices.Delete(l.items, i, i+1)

				return BoolValue(true), nil
			}, P("item", elem))

			d.Method("RemoveAt", Void, func(l *list, c *Call) (Value, error) {
				i := c.Arg(0).Int()
				if i < 0 || i >= int64(len(l.items)) {
					return NullValue, indexFault(c, i, len(l.items))
				}

				l.items = slices.Delete(l.items, int(i), int(i)+1)

				return NullValue, nil
			}, P("index", Int))

			d.Method("Clear", Void, func(l *list, _ *Call) (Value, error) {
				l.items = l.items[:0]

				return NullValue, nil
			})

			d.Method("Contains", Bool, func(l *list, c *Call) (Value, error) {
				return BoolValue(indexOf(l.items, c.Arg(0)) >= 0), nil
			}, P("item", elem))

			d.Method("IndexOf", Int, func(l *list, c *Call) (Value, error) {
				return IntValue(int64(indexOf(l.items, c.Arg(0)))), nil
			}, P("item", elem))

			d.Method("Reverse", Void, func(l *list, _ *Call) (Value, error) {
				slices.Reverse(l.items)

				return NullValue, nil
			})

			if orderable(elem) {
				d.Method("Sort", Void, func(l *list, _ *Call) (Value, error) {
					sortValues(l.items)

					return NullValue, nil
				})
			}

			d.Method("GetRange", self, func(l *list, c *Call) (Value, error) {
				i, n := c.Arg(0).Int(), c.Arg(1).Int()
				if i < 0 || n < 0 || i+n > int64(len(l.items)) {
					return NullValue, c.Fault("range [%d, %d) is out of range for length %d", i, i+n, len(l.items))
				}

				return d.Class().New(&list{items: slices.Clone(l.items[i : i+n])}), nil
			}, P("index", Int), P("count", Int))

			d.Method("ToArray", arr, func(l *list, _ *Call) (Value, error) {
				return elemArray(elem, l.items), nil
			})

			d.Enumerable(elem, func(l *list) iter.Seq[Value] { return values(l.items) })
		})
	})
}

// argPayload extracts the host payload of argument i.
func argPayload[T any](c *Call, i int) (T, error) {
	var zero T

	o := c.Arg(i).Object()
	if o == nil {
		return zero, c.Fault("null reference")
	}

	v, ok := o.host.(T)
	if !ok {
		return zero, c.Fault("unexpected %s argument", o.class.name)
	}

	return v, nil
}

type queue struct {
	items []Value
}

type stack struct {
	items []Value
}

func installQueues(r *Registrar) error {
	err := r.Generic("Queue", 1, func(in *Instance) error {
		elem := in.Args[0]

		return DefineInstance(in, func(d *ClassDef[*queue]) {
			d.Constructor(func(*Call) (*queue, error) { return &queue{}, nil })

			d.Property("Count", Int, func(q *queue) Value { return IntValue(int64(len(q.items))) }, nil)

			d.Method("Enqueue", Void, func(q *queue, c *Call) (Value, error) {
				q.items = append(q.items, c.Arg(0))

				return NullValue, nil
			}, P("item", elem))

			d.Method("Dequeue", elem, func(q *queue, c *Call) (Value, error) {
				if len(q.items) == 0 {
					return NullValue, emptyFault(c, in.Name())
				}

				v := q.items[0]
				q.items[0] = NullValue
				q.items = q.items[1:]

				return v, nil
			})

			d.Method("Peek", elem, func(q *queue, c *Call) (Value, error) {
				if len(q.items) == 0 {
					return NullValue, emptyFault(c, in.Name())
				}

				return q.items[0], nil
			})

			d.Method("Clear", Void, func(q *queue, _ *Call) (Value, error) {
				q.items = nil

				return NullValue, nil
			})

			d.Method("Contains", Bool, func(q *queue, c *Call) (Value, error) {
				return BoolValue(indexOf(q.items, c.Arg(0)) >= 0), nil
			}, P("item", elem))

			d.Method("ToArray", ArrayOf(elem), func(q *queue, _ *Call) (Value, error) {
				return elemArray(elem, q.items), nil
			})

			d.Enumerable(elem, func(q *queue) iter.Seq[Value] { return values(q.items) })
		})
	})
	if err != nil {
		return err
	}

	return r.Generic("Stack", 1, func(in *Instance) error {
		elem := in.Args[0]

		return DefineInstance(in, func(d *ClassDef[*stack]) {
			d.Constructor(func(*Call) (*stack, error) { return &stack{}, nil })

			d.Property("Count", Int, func(s *stack) Value { return IntValue(int64(len(s.items))) }, nil)

			d.Method("Push", Void, func(s *stack, c *Call) (Value, error) {
				s.items = append(s.items, c.Arg(0))

				return NullValue, nil
			}, P("item", elem))

			d.Method("Pop", elem, func(s *stack, c *Call) (Value, error) {
				n := len(s.items)
				if n == 0 {
					return NullValue, emptyFault(c, in.Name())
				}

				v := s.items[n-1]
				s.items = s.items[:n-1]

				return v, nil
			})

			d.Method("Peek", elem, func(s *stack, c *Call) (Value, error) {
				if len(s.items) == 0 {
					return NullValue, emptyFault(c, in.Name())
				}

				return s.items[len(s.items)-1], nil
			})

			d.Method("Clear", Void, func(s *stack, _ *Call) (Value, error) {
				s.items = nil

				return NullValue, nil
			})

			d.Method("Contains", Bool, func(s *stack, c *Call) (Value, error) {
				return BoolValue(indexOf(s.items, c.Arg(0)) >= 0), nil
			}, P("item", elem))

			// Top of the stack first.
			topDown := func(s *stack) []Value {
				out := slices.Clone(s.items)
				slices.Reverse(out)

				return out
			}

			d.Method("ToArray", ArrayOf(elem), func(s *stack, _ *Call) (Value, error) {
				return ArrayValue(&Array{elem: elem, items: topDown(s)}), nil
			})

			d.Enumerable(elem, func(s *stack) iter.Seq[Value] { return slices.Values(topDown(s)) })
		})
	})
}
