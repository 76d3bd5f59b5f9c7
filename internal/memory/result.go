package memory

// result is the outcome of one remote interaction. Boundary methods decide
// what a failed result degrades to.
type result[T any] struct {
	value T
	op    string
	err   error
}

func ok[T any](v T) result[T] {
	return result[T]{value: v}
}

func failed[T any](op string, err error) result[T] {
	return result[T]{op: op, err: err}
}

func (r result[T]) Failed() bool {
	return r.err != nil
}

// Or returns the value on success and fallback otherwise.
func (r result[T]) Or(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

// Unwrap returns the value and error in the usual Go shape.
func (r result[T]) Unwrap() (T, error) {
	return r.value, r.err
}
