package market

// Ring is a fixed-capacity buffer that evicts the oldest element once full.
// It is not safe for concurrent use; the Store guards each ring with the owning instrument's lock.
type Ring[T any] struct {
	buf   []T
	start int
	len   int
}

// NewRing allocates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, overwriting the oldest element when the ring is full.
func (r *Ring[T]) Push(v T) {
	if r.len < len(r.buf) {
		r.buf[(r.start+r.len)%len(r.buf)] = v
		r.len++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Get returns the i-th element counted from the oldest.
func (r *Ring[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.len {
		return zero, false
	}
	return r.buf[(r.start+i)%len(r.buf)], true
}

// Len reports the number of stored elements.
func (r *Ring[T]) Len() int { return r.len }

// Cap reports the maximum number of stored elements.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Last copies the most recent n elements oldest-first. n <= 0 or n > Len returns everything.
func (r *Ring[T]) Last(n int) []T {
	if n <= 0 || n > r.len {
		n = r.len
	}
	out := make([]T, n)
	offset := r.len - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+offset+i)%len(r.buf)]
	}
	return out
}
