package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Range is an inclusive integer interval walked in Step increments from Min.
// Step <= 0 is treated as 1.
type Range[T constraints.Integer] struct {
	Min, Max, Step T
}

// Contains reports whether v lies in [Min, Max] and on the step grid.
func (r Range[T]) Contains(v T) bool {
	if !Between(v, r.Min, r.Max) {
		return false
	}
	if r.Step <= 1 {
		return true
	}
	return (v-r.Min)%r.Step == 0
}

// Clamp limits v to [Min, Max].
func (r Range[T]) Clamp(v T) T { return Clamp(v, r.Min, r.Max) }

// Fixed reports whether the range admits a single value.
func (r Range[T]) Fixed() bool { return r.Min == r.Max }

// Shift moves both bounds by d, keeping Step.
func (r Range[T]) Shift(d T) Range[T] {
	return Range[T]{Min: r.Min + d, Max: r.Max + d, Step: r.Step}
}
