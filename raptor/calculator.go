package raptor

import "math"

// timeCalc hides the search direction. In a forward search time runs forward and
// earlier is better; in a reverse search time runs backwards and later is better.
type timeCalc struct {
	forward bool
}

// plus moves t by d in search direction.
func (c timeCalc) plus(t, d int) int {
	if c.forward {
		return t + d
	}
	return t - d
}

// minus moves t by d against search direction.
func (c timeCalc) minus(t, d int) int {
	if c.forward {
		return t - d
	}
	return t + d
}

// isBefore reports whether a comes strictly before b in search direction.
func (c timeCalc) isBefore(a, b int) bool {
	if c.forward {
		return a < b
	}
	return a > b
}

// notAfter reports whether a is at least as good as b.
func (c timeCalc) notAfter(a, b int) bool {
	return a == b || c.isBefore(a, b)
}

// span returns the non-negative distance from a to b in search direction.
func (c timeCalc) span(a, b int) int {
	if c.forward {
		return b - a
	}
	return a - b
}

// unreached is worse than any reachable time.
func (c timeCalc) unreached() int {
	if c.forward {
		return math.MaxInt32
	}
	return math.MinInt32
}

// exceeds reports whether t lies beyond limit in search direction.
func (c timeCalc) exceeds(t, limit int) bool {
	return c.isBefore(limit, t)
}

// betterTrip reports whether trip index a is at least as good as b: earlier trips
// are better going forward, later trips going backwards.
func (c timeCalc) betterTrip(a, b int32) bool {
	if c.forward {
		return a <= b
	}
	return a >= b
}
