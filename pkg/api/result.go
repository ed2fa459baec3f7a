package api

// Result holds either a value fetched from the backend or the error that
// prevented it.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

func Fail[T any](err error) Result[T] { return Result[T]{Err: err} }

func (r Result[T]) IsOk() bool { return r.Err == nil }

// Or returns the value, or fallback when the result carries an error. The
// boolean reports whether fallback was used.
func (r Result[T]) Or(fallback T) (T, bool) {
	if r.Err != nil {
		return fallback, true
	}
	return r.Value, false
}
