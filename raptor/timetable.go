package raptor

import (
	"github.com/theoremus-urban-solutions/journey-planner/network"
)

const secondsPerDay = 86400

// Pattern is a network pattern restricted to the trips running around one date.
// Trip times are relative to the timetable date.
type Pattern struct {
	// Source is the index of the network pattern.
	Source    int32
	Route     *network.Route
	Stops     []int32
	CanBoard  []bool
	CanAlight []bool
	Trips     []network.TripSchedule
}

// Timetable holds the trips of the service days a search can use. It is immutable
// and shared by concurrent searches.
type Timetable struct {
	Network  *network.Network
	Date     network.ServiceDate
	Patterns []Pattern
	byStop   [][]int32
}

// BuildTimetable collects the trips running on date and on the following
// additionalDays days, shifted onto the time axis of date. Trips of the day before
// that are still running after midnight are included too.
func BuildTimetable(n *network.Network, date network.ServiceDate, additionalDays int) *Timetable {
	tt := &Timetable{Network: n, Date: date, byStop: make([][]int32, n.StopCount())}
	for pi := range n.Patterns {
		src := &n.Patterns[pi]
		var trips []network.TripSchedule
		for day := -1; day <= additionalDays; day++ {
			d := date.AddDays(day)
			offset := day * secondsPerDay
			for i := range src.Trips {
				t := &src.Trips[i]
				if !n.ServiceRunning(t.ServiceID, d) {
					continue
				}
				if day < 0 && t.Arrivals[len(t.Arrivals)-1]+offset < 0 {
					continue
				}
				trips = append(trips, t.Shifted(offset, d))
			}
		}
		if len(trips) == 0 {
			continue
		}
		for _, group := range network.SplitOvertaking(trips) {
			idx := int32(len(tt.Patterns))
			tt.Patterns = append(tt.Patterns, Pattern{
				Source:    int32(pi),
				Route:     n.Route(src.Route),
				Stops:     src.Stops,
				CanBoard:  src.CanBoard,
				CanAlight: src.CanAlight,
				Trips:     group,
			})
			seen := map[int32]bool{}
			for _, s := range src.Stops {
				if !seen[s] {
					tt.byStop[s] = append(tt.byStop[s], idx)
					seen[s] = true
				}
			}
		}
	}
	return tt
}

// PatternsAtStop lists the timetable patterns serving stop.
func (t *Timetable) PatternsAtStop(stop int32) []int32 {
	if int(stop) >= len(t.byStop) {
		return nil
	}
	return t.byStop[stop]
}

// StopCount returns the number of stops of the network.
func (t *Timetable) StopCount() int { return len(t.byStop) }

// TripCount returns the number of trip instances.
func (t *Timetable) TripCount() int {
	n := 0
	for i := range t.Patterns {
		n += len(t.Patterns[i].Trips)
	}
	return n
}
