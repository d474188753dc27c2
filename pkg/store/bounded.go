package store

// DefaultCapacity is the number of entries a log keeps when no capacity is configured.
const DefaultCapacity = 50

// BoundedLog is a fixed-capacity, insertion-ordered buffer. New entries are
// inserted at the head; once the log is full the oldest entry is evicted from
// the tail. It is not safe for concurrent use.
type BoundedLog[T any] struct {
	buf  []T
	next int
	size int
}

// NewBoundedLog creates a log holding at most capacity entries. A
// non-positive capacity falls back to DefaultCapacity.
func NewBoundedLog[T any](capacity int) *BoundedLog[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &BoundedLog[T]{buf: make([]T, capacity)}
}

// Push inserts v at the head. When the log is full the oldest entry is
// returned as evicted.
func (l *BoundedLog[T]) Push(v T) (evicted T, ok bool) {
	if l.size == len(l.buf) {
		evicted, ok = l.buf[l.next], true
	} else {
		l.size++
	}

	l.buf[l.next] = v
	l.next = (l.next + 1) % len(l.buf)
	return evicted, ok
}

// Items returns a copy of the entries, newest first.
func (l *BoundedLog[T]) Items() []T {
	out := make([]T, l.size)
	for i := range l.size {
		out[i] = l.buf[(l.next-1-i+len(l.buf))%len(l.buf)]
	}
	return out
}

// Head returns the newest entry.
func (l *BoundedLog[T]) Head() (T, bool) {
	if l.size == 0 {
		var zero T
		return zero, false
	}
	return l.buf[(l.next-1+len(l.buf))%len(l.buf)], true
}

// Len returns the number of entries.
func (l *BoundedLog[T]) Len() int {
	return l.size
}

// Cap returns the capacity.
func (l *BoundedLog[T]) Cap() int {
	return len(l.buf)
}

// Reset drops every entry and keeps the capacity.
func (l *BoundedLog[T]) Reset() {
	clear(l.buf)
	l.next = 0
	l.size = 0
}
