package lang

import (
	"iter"
)

// ring is a fixed-capacity circular buffer. head is the physical index of
// the oldest element; pushing onto a full ring overwrites it.
type ring struct {
	buf   []Value
	head  int
	count int
}

func newRing(capacity int) *ring { return &ring{buf: make([]Value, capacity)} }

// phys maps logical index i (0 is the oldest element) to a buffer index.
func (r *ring) phys(i int) int { return (r.head + i) % len(r.buf) }

// tail is the physical index of the newest element. It precedes head when
// the ring is empty.
func (r *ring) tail() int { return (r.head + r.count - 1 + len(r.buf)) % len(r.buf) }

func (r *ring) push(v Value) {
	if r.count == len(r.buf) {
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)

		return
	}

	r.buf[r.phys(r.count)] = v
	r.count++
}

func (r *ring) popBack() Value {
	i := r.tail()
	v := r.buf[i]
	r.buf[i] = NullValue
	r.count--

	return v
}

func (r *ring) popFront() Value {
	v := r.buf[r.head]
	r.buf[r.head] = NullValue
	r.head = (r.head + 1) % len(r.buf)
	r.count--

	return v
}

// removeAt deletes logical index i, shifting newer elements toward the head.
func (r *ring) removeAt(i int) {
	for j := i; j < r.count-1; j++ {
		r.buf[r.phys(j)] = r.buf[r.phys(j+1)]
	}

	r.buf[r.tail()] = NullValue
	r.count--
}

func (r *ring) items() []Value {
	out := make([]Value, r.count)
	for i := range out {
		out[i] = r.buf[r.phys(i)]
	}

	return out
}

func installRingBuffer(r *Registrar) error {
	return r.Generic("RingBuffer", 1, func(in *Instance) error {
		elem := in.Args[0]

		return DefineInstance(in, func(d *ClassDef[*ring]) {
			d.Constructor(func(c *Call) (*ring, error) {
				n := c.Arg(0).Int()
				if n <= 0 {
					return nil, c.Fault("capacity %d must be positive", n)
				}

				return newRing(int(n)), nil
			}, P("capacity", Int))

			d.Property("Count", Int, func(r *ring) Value { return IntValue(int64(r.count)) }, nil)
			d.Property("Capacity", Int, func(r *ring) Value { return IntValue(int64(len(r.buf))) }, nil)
			d.Property("IsFull", Bool, func(r *ring) Value { return BoolValue(r.count == len(r.buf)) }, nil)
			d.Property("IsEmpty", Bool, func(r *ring) Value { return BoolValue(r.count == 0) }, nil)
			d.Property("HeadIndex", Int, func(r *ring) Value { return IntValue(int64(r.head)) }, nil)
			d.Property("TailIndex", Int, func(r *ring) Value { return IntValue(int64(r.tail())) }, nil)

			inRange := func(r *ring, key Value) (int, error) {
				i := key.Int()
				if i < 0 || i >= int64(r.count) {
					return 0, ErrRuntime.Withf("index %d is out of range for count %d", i, r.count)
				}

				return int(i), nil
			}

			d.Indexer(Int, elem,
				func(r *ring, key Value) (Value, error) {
					i, err := inRange(r, key)
					if err != nil {
						return NullValue, err
					}

					return r.buf[r.phys(i)], nil
				},
				func(r *ring, key, v Value) error {
					i, err := inRange(r, key)
					if err != nil {
						return err
					}

					r.buf[r.phys(i)] = v

					return nil
				})

			d.Method("PushBack", Void, func(r *ring, c *Call) (Value, error) {
				r.push(c.Arg(0))

				return NullValue, nil
			}, P("item", elem))

			empty := func(r *ring, c *Call) error {
				if r.count == 0 {
					return emptyFault(c, in.Name())
				}

				return nil
			}

			d.Method("PopBack", elem, func(r *ring, c *Call) (Value, error) {
				if err := empty(r, c); err != nil {
					return NullValue, err
				}

				return r.popBack(), nil
			})

			d.Method("PopHead", elem, func(r *ring, c *Call) (Value, error) {
				if err := empty(r, c); err != nil {
					return NullValue, err
				}

				return r.popFront(), nil
			})

			d.Method("PeekHead", elem, func(r *ring, c *Call) (Value, error) {
				if err := empty(r, c); err != nil {
					return NullValue, err
				}

				return r.buf[r.head], nil
			})

			d.Method("PeekBack", elem, func(r *ring, c *Call) (Value, error) {
				if err := empty(r, c); err != nil {
					return NullValue, err
				}

				return r.buf[r.tail()], nil
			})

			d.Method("RemoveAt", Void, func(r *ring, c *Call) (Value, error) {
				i, err := inRange(r, c.Arg(0))
				if err != nil {
					return NullValue, hostError(err, c.At)
				}

				r.removeAt(i)

				return NullValue, nil
			}, P("index", Int))

			d.Method("Clear", Void, func(r *ring, _ *Call) (Value, error) {
				clear(r.buf)
				r.head, r.count = 0, 0

				return NullValue, nil
			})

			d.Method("Contains", Bool, func(r *ring, c *Call) (Value, error) {
				return BoolValue(indexOf(r.items(), c.Arg(0)) >= 0), nil
			}, P("item", elem))

			d.Method("ToArray", ArrayOf(elem), func(r *ring, _ *Call) (Value, error) {
				return ArrayValue(&Array{elem: elem, items: r.items()}), nil
			})

			d.Enumerable(elem, func(r *ring) iter.Seq[Value] { return values(r.items()) })
		})
	})
}
