package pipeline

// Reorder restores index order to results produced out of order by a
// worker pool. It is not safe for concurrent use; one consumer owns it.
type Reorder[T any] struct {
	next    int
	pending map[int]T
}

// NewReorder creates a buffer expecting first as its first index.
func NewReorder[T any](first int) *Reorder[T] {
	return &Reorder[T]{next: first, pending: make(map[int]T)}
}

// Push adds the result for index and returns every result that is now
// ready, in index order. Indices already released are ignored.
func (r *Reorder[T]) Push(index int, v T) []T {
	if index < r.next {
		return nil
	}
	r.pending[index] = v
	var ready []T
	for {
		item, ok := r.pending[r.next]
		if !ok {
			return ready
		}
		delete(r.pending, r.next)
		ready = append(ready, item)
		r.next++
	}
}

// Next returns the index of the next result to be released.
func (r *Reorder[T]) Next() int {
	return r.next
}

// Pending returns the number of results held back.
func (r *Reorder[T]) Pending() int {
	return len(r.pending)
}
