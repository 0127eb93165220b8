package relay

// ring keeps the last capacity items, oldest first.
type ring[T any] struct {
	data []T
	size int
	head int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{data: make([]T, capacity)}
}

func (r *ring[T]) Add(item T) {
	if len(r.data) == 0 {
		return
	}
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
	if r.size < len(r.data) {
		r.size++
	}
}

// All returns the stored items in insertion order.
func (r *ring[T]) All() []T {
	if r.size == 0 {
		return nil
	}
	out := make([]T, r.size)
	if r.size < len(r.data) {
		copy(out, r.data[:r.size])
		return out
	}
	n := copy(out, r.data[r.head:])
	copy(out[n:], r.data[:r.head])
	return out
}

func (r *ring[T]) Len() int { return r.size }
