package raptor

import "sort"

// findTrip returns the best trip of p boardable at position pos: going forward the
// first trip departing at or after t, going backwards the last trip arriving at or
// before t. ok is false when no such trip exists. Small timetables are scanned
// linearly, larger ones binary searched.
func findTrip(p *Pattern, pos int, t int, forward bool, threshold int) (int32, bool) {
	n := len(p.Trips)
	if n == 0 {
		return 0, false
	}
	if forward {
		if n <= threshold {
			for i := 0; i < n; i++ {
				if p.Trips[i].Departures[pos] >= t {
					return int32(i), true
				}
			}
			return 0, false
		}
		i := sort.Search(n, func(i int) bool { return p.Trips[i].Departures[pos] >= t })
		return int32(i), i < n
	}

	if n <= threshold {
		for i := n - 1; i >= 0; i-- {
			if p.Trips[i].Arrivals[pos] <= t {
				return int32(i), true
			}
		}
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return p.Trips[i].Arrivals[pos] > t }) - 1
	return int32(i), i >= 0
}
