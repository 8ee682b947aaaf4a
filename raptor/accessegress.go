package raptor

// AccessEgress is a leg between the origin and a stop (access) or a stop and the
// destination (egress). Implementations are read-only during a search.
type AccessEgress interface {
	// Stop is the stop the leg starts or ends at.
	Stop() int32
	DurationInSeconds() int
	// Cost is the generalized cost of the whole leg.
	Cost() int
	// NumberOfRides counts vehicle rides inside the leg, 1 for a flex leg.
	NumberOfRides() int
	// StopReachedOnBoard is set for an access ending with a ride and for an egress
	// starting with one. Such legs may be combined with a walking transfer.
	StopReachedOnBoard() bool
	// HasOpeningHours reports whether the two time functions below are restrictive.
	HasOpeningHours() bool
	// EarliestDepartureTime returns the earliest time at or after t the leg can
	// start, or NotSet.
	EarliestDepartureTime(t int) int
	// LatestArrivalTime returns the latest time at or before t the leg can end, or
	// NotSet.
	LatestArrivalTime(t int) int
}

// earliestDeparture applies the opening hours of leg, if any.
func earliestDeparture(leg AccessEgress, t int) int {
	if !leg.HasOpeningHours() {
		return t
	}
	return leg.EarliestDepartureTime(t)
}

func latestArrival(leg AccessEgress, t int) int {
	if !leg.HasOpeningHours() {
		return t
	}
	return leg.LatestArrivalTime(t)
}
