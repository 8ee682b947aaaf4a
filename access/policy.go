package access

import (
	"math"

	"github.com/theoremus-urban-solutions/journey-planner/network"
)

// Policy prunes a combined list of street and flex legs. The zero Policy keeps
// everything.
type Policy struct {
	// ForcedStops, when set, keeps only legs ending at one of these stops.
	ForcedStops map[int32]bool
	// AllowOnlyStopReachedOnBoard drops flex legs that end with a walk.
	AllowOnlyStopReachedOnBoard bool
	// MinimumStreetDistanceForFlex drops flex legs to stations reachable by a walk
	// at most this long, in meters.
	MinimumStreetDistanceForFlex float64
	// MaximumStreetDistanceForWalkingIfFlexAvailable drops walks at least this long
	// to stations that flex also serves, in meters.
	MaximumStreetDistanceForWalkingIfFlexAvailable float64
	// RemoveWalkingIfFlexIsFaster drops walks to stations a flex leg reaches sooner.
	RemoveWalkingIfFlexIsFaster bool
}

// ForcedStopsOf returns the stop id or station id together with its child stops,
// for Policy.ForcedStops.
func ForcedStopsOf(n *network.Network, id string) map[int32]bool {
	out := map[int32]bool{}
	if i, err := n.StopIndex(id); err == nil {
		out[i] = true
		return out
	}
	for si := range n.Stations {
		if n.Stations[si].ID == id {
			for _, c := range n.Stations[si].Children {
				out[c] = true
			}
		}
	}
	return out
}

func hasRides(l Leg) bool { return l.NumberOfRides() > 0 }

// Apply returns the legs p keeps, in their original order. Every rule compares stops
// by station group, so a walk to one platform competes with flex to another.
func (p Policy) Apply(n *network.Network, legs []Leg) []Leg {
	if p.ForcedStops != nil {
		legs = keep(legs, func(l Leg) bool { return p.ForcedStops[l.Stop()] })
	}
	if p.AllowOnlyStopReachedOnBoard {
		legs = keep(legs, func(l Leg) bool { return !hasRides(l) || l.StopReachedOnBoard() })
	}
	if p.MinimumStreetDistanceForFlex > 0 {
		shortWalk := groups(n, legs, func(l Leg) bool {
			return !hasRides(l) && l.StreetDistance() <= p.MinimumStreetDistanceForFlex
		})
		legs = keep(legs, func(l Leg) bool { return !hasRides(l) || !shortWalk[n.GroupKey(l.Stop())] })
	}
	if p.MaximumStreetDistanceForWalkingIfFlexAvailable > 0 {
		longWalk := groups(n, legs, func(l Leg) bool {
			return !hasRides(l) && l.StreetDistance() >= p.MaximumStreetDistanceForWalkingIfFlexAvailable
		})
		withFlex := groups(n, legs, hasRides)
		legs = keep(legs, func(l Leg) bool {
			key := n.GroupKey(l.Stop())
			return hasRides(l) || !longWalk[key] || !withFlex[key]
		})
	}
	if p.RemoveWalkingIfFlexIsFaster {
		fastest := map[string]int{}
		for _, l := range legs {
			if !hasRides(l) {
				continue
			}
			key := n.GroupKey(l.Stop())
			if best, ok := fastest[key]; !ok || l.DurationInSeconds() < best {
				fastest[key] = l.DurationInSeconds()
			}
		}
		legs = keep(legs, func(l Leg) bool {
			if hasRides(l) {
				return true
			}
			best, ok := fastest[n.GroupKey(l.Stop())]
			if !ok {
				best = math.MaxInt
			}
			return best >= l.DurationInSeconds()
		})
	}
	return legs
}

func keep(legs []Leg, f func(Leg) bool) []Leg {
	out := make([]Leg, 0, len(legs))
	for _, l := range legs {
		if f(l) {
			out = append(out, l)
		}
	}
	return out
}

// groups returns the station groups of the legs matching f.
func groups(n *network.Network, legs []Leg, f func(Leg) bool) map[string]bool {
	out := map[string]bool{}
	for _, l := range legs {
		if f(l) {
			out[n.GroupKey(l.Stop())] = true
		}
	}
	return out
}
