package network

import (
	"errors"
	"fmt"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// Sentinel errors returned by network lookups.
var (
	ErrStopNotFound = errors.New("network: stop not found")
	ErrTripNotFound = errors.New("network: trip not found")
)

// Network is an immutable snapshot of the transit network. Exported fields exist
// for gob serialization; callers treat them as read-only.
type Network struct {
	FeedID    string
	Timezone  string
	Stops     []Stop
	Stations  []Station
	Routes    []Route
	Patterns  []Pattern
	FlexTrips []FlexTrip
	Transfers *TransferRules
	Calendar  Calendar
	Street    *street.Graph

	stopByID       map[string]int32
	patternsByStop [][]int32
	tripByID       map[string]TripRef
	loc            *time.Location
}

// TripRef locates a trip inside the network.
type TripRef struct {
	Pattern int32
	Index   int
}

// reindex rebuilds the lookup tables that gob does not carry.
func (n *Network) reindex() error {
	n.stopByID = make(map[string]int32, len(n.Stops))
	for i := range n.Stops {
		n.stopByID[n.Stops[i].ID] = int32(i)
	}
	n.patternsByStop = make([][]int32, len(n.Stops))
	n.tripByID = make(map[string]TripRef)
	for p := range n.Patterns {
		seen := make(map[int32]bool, len(n.Patterns[p].Stops))
		for _, s := range n.Patterns[p].Stops {
			if !seen[s] {
				n.patternsByStop[s] = append(n.patternsByStop[s], int32(p))
				seen[s] = true
			}
		}
		for i := range n.Patterns[p].Trips {
			n.tripByID[n.Patterns[p].Trips[i].ID] = TripRef{Pattern: int32(p), Index: i}
		}
	}
	if n.Transfers == nil {
		n.Transfers = &TransferRules{ByStop: make([][]TransferRule, len(n.Stops))}
	}
	if n.Calendar.Services == nil {
		n.Calendar = NewCalendar()
	}
	if n.Timezone == "" {
		n.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(n.Timezone)
	if err != nil {
		return fmt.Errorf("network timezone: %w", err)
	}
	n.loc = loc
	return nil
}

// StopCount returns the number of stops. Stop indices are 0..StopCount()-1.
func (n *Network) StopCount() int { return len(n.Stops) }

// Stop returns the stop at index i.
func (n *Network) Stop(i int32) *Stop { return &n.Stops[i] }

// StopIndex resolves a stop id.
func (n *Network) StopIndex(id string) (int32, error) {
	if i, ok := n.stopByID[id]; ok {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %s", ErrStopNotFound, id)
}

// StopsInGroup returns every stop sharing stop's parent station, including stop. A
// stop without a station is its own group.
func (n *Network) StopsInGroup(stop int32) []int32 {
	s := &n.Stops[stop]
	if !s.HasStation() {
		return []int32{stop}
	}
	return n.Stations[s.Station].Children
}

// GroupKey identifies the station group of a stop.
func (n *Network) GroupKey(stop int32) string {
	s := &n.Stops[stop]
	if s.HasStation() {
		return "station:" + n.Stations[s.Station].ID
	}
	return "stop:" + s.ID
}

// PatternsAtStop lists the patterns visiting stop.
func (n *Network) PatternsAtStop(stop int32) []int32 { return n.patternsByStop[stop] }

// Pattern returns the pattern at index i.
func (n *Network) Pattern(i int32) *Pattern { return &n.Patterns[i] }

// Route returns the route at index i.
func (n *Network) Route(i int32) *Route { return &n.Routes[i] }

// FindTrip locates a scheduled trip by id.
func (n *Network) FindTrip(id string) (TripRef, error) {
	if ref, ok := n.tripByID[id]; ok {
		return ref, nil
	}
	return TripRef{}, fmt.Errorf("%w: %s", ErrTripNotFound, id)
}

// Trip returns the trip a reference points to.
func (n *Network) Trip(ref TripRef) *TripSchedule {
	return &n.Patterns[ref.Pattern].Trips[ref.Index]
}

// Location returns the time zone all schedule times are expressed in.
func (n *Network) Location() *time.Location { return n.loc }

// ServiceRunning reports whether serviceID runs on date.
func (n *Network) ServiceRunning(serviceID string, date ServiceDate) bool {
	return n.Calendar.Running(serviceID, date)
}

// ServicePeriod returns the first and last day with any service.
func (n *Network) ServicePeriod() (first, last ServiceDate, ok bool) {
	return n.Calendar.Period()
}

// TripPatch is a realtime replacement of one trip.
type TripPatch struct {
	TripID     string
	Canceled   bool
	Arrivals   []int
	Departures []int
}

// Patch returns a copy of n with the given trips replaced or removed. Untouched
// patterns are shared with n. A delayed trip that now overtakes another is moved
// into a new pattern of its own.
func (n *Network) Patch(patches []TripPatch) (*Network, []error) {
	var errs []error
	changed := make(map[int32][]TripSchedule)
	for _, p := range patches {
		ref, err := n.FindTrip(p.TripID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		trips, ok := changed[ref.Pattern]
		if !ok {
			trips = append([]TripSchedule(nil), n.Patterns[ref.Pattern].Trips...)
		}
		// trips may already be reordered, so search by id
		for i := range trips {
			if trips[i].ID != p.TripID {
				continue
			}
			if p.Canceled {
				trips = append(trips[:i], trips[i+1:]...)
				break
			}
			if len(p.Arrivals) != len(trips[i].Arrivals) || len(p.Departures) != len(trips[i].Departures) {
				errs = append(errs, fmt.Errorf("trip %s: %d stop times do not match pattern of %d stops",
					p.TripID, len(p.Arrivals), len(trips[i].Arrivals)))
				break
			}
			trips[i].Arrivals = append([]int(nil), p.Arrivals...)
			trips[i].Departures = append([]int(nil), p.Departures...)
			trips[i].Realtime = true
			break
		}
		changed[ref.Pattern] = trips
	}

	out := *n
	out.Patterns = append([]Pattern(nil), n.Patterns...)
	keys := make([]int32, 0, len(changed))
	for idx := range changed {
		keys = append(keys, idx)
	}
	slices.Sort(keys)
	for _, idx := range keys {
		groups := SplitOvertaking(changed[idx])
		base := n.Patterns[idx]
		if len(groups) == 0 {
			base.Trips = nil
			out.Patterns[idx] = base
			continue
		}
		base.Trips = groups[0]
		out.Patterns[idx] = base
		for g := 1; g < len(groups); g++ {
			extra := base
			extra.ID = fmt.Sprintf("%s:rt%d", base.ID, g)
			extra.Trips = groups[g]
			out.Patterns = append(out.Patterns, extra)
		}
	}
	if err := out.reindex(); err != nil {
		errs = append(errs, err)
		return n, errs
	}
	return &out, errs
}
