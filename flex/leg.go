package flex

import (
	"github.com/theoremus-urban-solutions/journey-planner/access"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

// Leg is an access or egress leg riding a flex trip between two of its positions.
// An access leg walks to the board stop first; an egress leg walks away from the
// alight stop afterwards. Either may be extended by a walking transfer on the
// search side of the ride.
type Leg struct {
	Trip    *network.FlexTrip
	Date    network.ServiceDate
	FromPos int
	ToPos   int
	Ride    Path

	// Access is the walk to the board stop; set on access and direct legs.
	Access *access.NearbyStop
	// Egress is the walk from the alight stop; set on egress and direct legs.
	Egress *access.NearbyStop
	// Transfer links the ride to the stop handed to the search.
	Transfer *transfer.Transfer

	stop     int32
	offset   int
	preFlex  int
	postFlex int
	cost     int
}

func newLeg(trip *network.FlexTrip, day serviceDay, from, to int, ride Path) Leg {
	return Leg{Trip: trip, Date: day.date, offset: day.offset, FromPos: from, ToPos: to, Ride: ride}
}

// finish computes the search-facing stop, the time before and after the ride and
// the generalized cost.
func (l *Leg) finish(stop int32) *Leg {
	l.stop = stop
	l.preFlex, l.postFlex, l.cost = 0, 0, l.Ride.Seconds
	if l.Access != nil {
		l.preFlex += l.Access.Duration
		l.cost += l.Access.Cost
	}
	if l.Egress != nil {
		l.postFlex += l.Egress.Duration
		l.cost += l.Egress.Cost
	}
	if l.Transfer != nil {
		if l.Access != nil {
			l.postFlex += l.Transfer.Duration
		} else {
			l.preFlex += l.Transfer.Duration
		}
		l.cost += l.Transfer.Cost
	}
	return l
}

// BoardStop is where the vehicle picks up.
func (l *Leg) BoardStop() int32 { return l.Trip.StopTimes[l.FromPos].Stop }

// AlightStop is where the vehicle drops off.
func (l *Leg) AlightStop() int32 { return l.Trip.StopTimes[l.ToPos].Stop }

// Offset is the service day offset in seconds relative to the search date.
func (l *Leg) Offset() int { return l.offset }

// PreFlexTime is the time spent before boarding.
func (l *Leg) PreFlexTime() int { return l.preFlex }

// PostFlexTime is the time spent after alighting.
func (l *Leg) PostFlexTime() int { return l.postFlex }

func (l *Leg) Stop() int32              { return l.stop }
func (l *Leg) DurationInSeconds() int   { return l.preFlex + l.Ride.Seconds + l.postFlex }
func (l *Leg) Cost() int                { return l.cost }
func (l *Leg) NumberOfRides() int       { return 1 }
func (l *Leg) StopReachedOnBoard() bool { return l.Transfer == nil }
func (l *Leg) HasOpeningHours() bool    { return true }

// EarliestDepartureTime shifts t to the first moment the walk before the ride can
// start so that the vehicle is caught inside its window.
func (l *Leg) EarliestDepartureTime(t int) int {
	req := t + l.preFlex - l.offset
	dep := l.Trip.EarliestDepartureTime(req, l.FromPos, l.ToPos, l.Ride.Seconds)
	if dep == network.Unavailable {
		return network.Unavailable
	}
	return dep - l.preFlex + l.offset
}

// LatestArrivalTime is the reverse of EarliestDepartureTime for the end of the leg.
func (l *Leg) LatestArrivalTime(t int) int {
	req := t - l.postFlex - l.offset
	arr := l.Trip.LatestArrivalTime(req, l.FromPos, l.ToPos, l.Ride.Seconds)
	if arr == network.Unavailable {
		return network.Unavailable
	}
	return arr + l.postFlex + l.offset
}

func (l *Leg) StreetDistance() float64 {
	var d float64
	if l.Access != nil {
		d += l.Access.Distance
	}
	if l.Egress != nil {
		d += l.Egress.Distance
	}
	if l.Transfer != nil {
		d += l.Transfer.Distance
	}
	return d
}

var _ access.Leg = (*Leg)(nil)
