// Package cascade reduces many partial results to one by repeated pairwise
// combination. The combine function is assumed associative but not
// commutative, so pairing order matters and is deterministic: each round
// pairs the largest even-length prefix left to right and defers an odd
// trailing element to the end of the next round. The reduction finishes in
// O(log N) rounds and never holds more than N live partials.
package cascade

import "errors"

// ErrEmpty is returned when Reduce is called with no items.
var ErrEmpty = errors.New("cascade: empty input")

// Reduce combines items pairwise until one remains. A single-element input
// is returned without invoking combine. The first combine error aborts the
// reduction.
func Reduce[T any](combine func(a, b T) (T, error), items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmpty
	}

	work := make([]T, len(items))
	copy(work, items)

	for len(work) > 1 {
		even := len(work) &^ 1
		next := make([]T, 0, even/2+1)
		for i := 0; i < even; i += 2 {
			merged, err := combine(work[i], work[i+1])
			if err != nil {
				return zero, err
			}
			next = append(next, merged)
		}
		if even < len(work) {
			next = append(next, work[even])
		}
		work = next
	}
	return work[0], nil
}
