// Package verify holds pure decision functions over snapshots captured from
// the search page. Nothing here performs I/O or returns errors; callers turn
// verdicts into assertion failures.
package verify

import "fmt"

// Value is one observed element. An element whose extraction failed is kept
// in place as an absent value instead of being dropped.
type Value[T any] struct {
	v  T
	ok bool
}

// Present wraps a successfully extracted value.
func Present[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// Absent marks an element whose value could not be extracted.
func Absent[T any]() Value[T] {
	return Value[T]{}
}

// Values wraps every argument as present.
func Values[T any](vs ...T) []Value[T] {
	out := make([]Value[T], len(vs))
	for i, v := range vs {
		out[i] = Present(v)
	}
	return out
}

// Get returns the value and whether it was present.
func (x Value[T]) Get() (T, bool) {
	return x.v, x.ok
}

// IsAbsent reports whether extraction failed for this element.
func (x Value[T]) IsAbsent() bool {
	return !x.ok
}

func (x Value[T]) String() string {
	if !x.ok {
		return "<absent>"
	}
	return fmt.Sprint(x.v)
}

// PresentOnly drops absent values. Callers must apply it explicitly when a
// missing value should not fail verification.
func PresentOnly[T any](s []Value[T]) []Value[T] {
	out := make([]Value[T], 0, len(s))
	for _, x := range s {
		if x.ok {
			out = append(out, x)
		}
	}
	return out
}

// Unwrap returns the present values in order and the indexes that were absent.
func Unwrap[T any](s []Value[T]) (vals []T, absent []int) {
	vals = make([]T, 0, len(s))
	for i, x := range s {
		if !x.ok {
			absent = append(absent, i)
			continue
		}
		vals = append(vals, x.v)
	}
	return vals, absent
}
