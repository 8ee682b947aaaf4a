package network

// FlexStopTime is one stop of a flex trip. The vehicle may pick up or drop off
// anywhere inside [WindowStart, WindowEnd].
type FlexStopTime struct {
	Stop        int32
	WindowStart int
	WindowEnd   int
	CanBoard    bool
	CanAlight   bool
}

// FlexTrip is an on-demand vehicle run constrained by service windows instead of
// a fixed schedule.
type FlexTrip struct {
	ID        string
	Route     int32
	ServiceID string
	StopTimes []FlexStopTime
}

// BoardPositions returns the positions where the trip may pick up at stop.
func (f *FlexTrip) BoardPositions(stop int32) []int {
	var out []int
	for i := range f.StopTimes {
		if f.StopTimes[i].Stop == stop && f.StopTimes[i].CanBoard {
			out = append(out, i)
		}
	}
	return out
}

// AlightPositions returns the positions where the trip may drop off at stop.
func (f *FlexTrip) AlightPositions(stop int32) []int {
	var out []int
	for i := range f.StopTimes {
		if f.StopTimes[i].Stop == stop && f.StopTimes[i].CanAlight {
			out = append(out, i)
		}
	}
	return out
}

// EarliestDepartureTime returns the earliest time at or after departureTime the
// vehicle can leave position from and still reach position to within its window,
// or Unavailable.
func (f *FlexTrip) EarliestDepartureTime(departureTime, from, to, flexDuration int) int {
	fromST, toST := &f.StopTimes[from], &f.StopTimes[to]
	if fromST.WindowEnd < departureTime || toST.WindowEnd < departureTime+flexDuration {
		return Unavailable
	}
	return max(departureTime, fromST.WindowStart)
}

// LatestArrivalTime returns the latest time at or before arrivalTime the vehicle can
// reach position to after leaving position from within its window, or Unavailable.
func (f *FlexTrip) LatestArrivalTime(arrivalTime, from, to, flexDuration int) int {
	fromST, toST := &f.StopTimes[from], &f.StopTimes[to]
	if toST.WindowStart > arrivalTime || fromST.WindowStart > arrivalTime-flexDuration {
		return Unavailable
	}
	return min(arrivalTime, toST.WindowEnd)
}
