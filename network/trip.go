package network

import "sort"

// TripSchedule is one vehicle run of a pattern. Times are seconds after midnight of
// its service day and may exceed 24h.
type TripSchedule struct {
	ID         string
	ServiceID  string
	Headsign   string
	Arrivals   []int
	Departures []int
	// ServiceDate is set on the per-date copies made for a search.
	ServiceDate ServiceDate
	// Realtime is set on trips patched by a trip update.
	Realtime bool
}

// Arrival returns the arrival time at pattern position pos.
func (t *TripSchedule) Arrival(pos int) int { return t.Arrivals[pos] }

// Departure returns the departure time at pattern position pos.
func (t *TripSchedule) Departure(pos int) int { return t.Departures[pos] }

// Shifted returns a copy of t moved by offset seconds and tagged with date.
func (t TripSchedule) Shifted(offset int, date ServiceDate) TripSchedule {
	arr := make([]int, len(t.Arrivals))
	dep := make([]int, len(t.Departures))
	for i := range arr {
		arr[i] = t.Arrivals[i] + offset
		dep[i] = t.Departures[i] + offset
	}
	t.Arrivals, t.Departures, t.ServiceDate = arr, dep, date
	return t
}

// Pattern is an ordered stop sequence served by trips that never overtake each other.
type Pattern struct {
	ID        string
	Route     int32
	Stops     []int32
	CanBoard  []bool
	CanAlight []bool
	Trips     []TripSchedule
}

// patternKey groups trips with identical route, stop sequence and boarding rules.
func patternKey(route int32, stops []int32, board, alight []bool) string {
	b := make([]byte, 0, len(stops)*6+4)
	b = append(b, byte(route), byte(route>>8), byte(route>>16), byte(route>>24))
	for i, s := range stops {
		flags := byte(0)
		if board[i] {
			flags |= 1
		}
		if alight[i] {
			flags |= 2
		}
		b = append(b, byte(s), byte(s>>8), byte(s>>16), byte(s>>24), flags, ';')
	}
	return string(b)
}

// SortTrips orders trips by departure from the first stop, then by arrival at the last.
func SortTrips(trips []TripSchedule) {
	sort.SliceStable(trips, func(i, j int) bool {
		a, b := &trips[i], &trips[j]
		if a.Departures[0] != b.Departures[0] {
			return a.Departures[0] < b.Departures[0]
		}
		return a.Arrivals[len(a.Arrivals)-1] < b.Arrivals[len(b.Arrivals)-1]
	})
}

// SplitOvertaking sorts trips and partitions them into groups in which departures and
// arrivals are non-decreasing at every position. Trip search relies on that order.
func SplitOvertaking(trips []TripSchedule) [][]TripSchedule {
	SortTrips(trips)
	var groups [][]TripSchedule
next:
	for _, t := range trips {
		for g := range groups {
			last := &groups[g][len(groups[g])-1]
			if !overtakes(last, &t) {
				groups[g] = append(groups[g], t)
				continue next
			}
		}
		groups = append(groups, []TripSchedule{t})
	}
	return groups
}

// overtakes reports whether next is earlier than prev at any position.
func overtakes(prev, next *TripSchedule) bool {
	for i := range prev.Departures {
		if next.Departures[i] < prev.Departures[i] || next.Arrivals[i] < prev.Arrivals[i] {
			return true
		}
	}
	return false
}
