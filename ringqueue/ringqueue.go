// Package ringqueue is a bounded FIFO on a fixed circular buffer. One slot
// is kept free to tell a full queue from an empty one.
package ringqueue

import "errors"

var (
	ErrFull  = errors.New("queue full")
	ErrEmpty = errors.New("queue empty")
)

// Queue is not safe for concurrent use.
type Queue[T any] struct {
	buf         []T
	front, rear int
}

// New returns a queue holding up to size elements.
func New[T any](size int) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{buf: make([]T, size+1)}
}

func (q *Queue[T]) next(i int) int {
	return (i + 1) % len(q.buf)
}

func (q *Queue[T]) Push(v T) error {
	if q.Full() {
		return ErrFull
	}

	q.buf[q.rear] = v
	q.rear = q.next(q.rear)
	return nil
}

func (q *Queue[T]) Pop() (T, error) {
	var zero T
	if q.Empty() {
		return zero, ErrEmpty
	}

	v := q.buf[q.front]
	q.buf[q.front] = zero
	q.front = q.next(q.front)
	return v, nil
}

// Peek returns the oldest element without removing it.
func (q *Queue[T]) Peek() (T, error) {
	if q.Empty() {
		var zero T
		return zero, ErrEmpty
	}
	return q.buf[q.front], nil
}

func (q *Queue[T]) Len() int {
	return (q.rear - q.front + len(q.buf)) % len(q.buf)
}

func (q *Queue[T]) Cap() int {
	return len(q.buf) - 1
}

func (q *Queue[T]) Empty() bool {
	return q.front == q.rear
}

func (q *Queue[T]) Full() bool {
	return q.next(q.rear) == q.front
}

// Items returns the queued elements, oldest first.
func (q *Queue[T]) Items() []T {
	out := make([]T, 0, q.Len())
	for i := q.front; i != q.rear; i = q.next(i) {
		out = append(out, q.buf[i])
	}
	return out
}

func (q *Queue[T]) Reset() {
	var zero T
	for i := range q.buf {
		q.buf[i] = zero
	}
	q.front, q.rear = 0, 0
}
