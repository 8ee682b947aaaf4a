package access

import "github.com/theoremus-urban-solutions/journey-planner/raptor"

// Leg is an access or egress leg handed to the search.
type Leg interface {
	raptor.AccessEgress
	// StreetDistance is the distance covered on streets, in meters.
	StreetDistance() float64
}

// StreetLeg is a walk, bike or car leg without any ride. It can be used at any time.
type StreetLeg struct {
	NearbyStop
}

// NewStreetLegs wraps nearby stops as legs.
func NewStreetLegs(stops []NearbyStop) []Leg {
	out := make([]Leg, len(stops))
	for i := range stops {
		out[i] = &StreetLeg{NearbyStop: stops[i]}
	}
	return out
}

func (l *StreetLeg) Stop() int32                     { return l.NearbyStop.Stop }
func (l *StreetLeg) DurationInSeconds() int          { return l.Duration }
func (l *StreetLeg) Cost() int                       { return l.NearbyStop.Cost }
func (l *StreetLeg) NumberOfRides() int              { return 0 }
func (l *StreetLeg) StopReachedOnBoard() bool        { return false }
func (l *StreetLeg) HasOpeningHours() bool           { return false }
func (l *StreetLeg) EarliestDepartureTime(t int) int { return t }
func (l *StreetLeg) LatestArrivalTime(t int) int     { return t }
func (l *StreetLeg) StreetDistance() float64         { return l.Distance }

// AsSearchLegs converts legs for a search request.
func AsSearchLegs(legs []Leg) []raptor.AccessEgress {
	out := make([]raptor.AccessEgress, len(legs))
	for i, l := range legs {
		out[i] = l
	}
	return out
}
