package raptor

import (
	"fmt"

	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

// LegKind tags the variant of a PathLeg.
type LegKind uint8

const (
	LegAccess LegKind = iota
	LegTransit
	LegTransfer
	LegEgress
)

func (k LegKind) String() string {
	return [...]string{"access", "transit", "transfer", "egress"}[k]
}

// NoStop is the FromStop of an access leg and the ToStop of an egress leg.
const NoStop int32 = -1

// PathLeg is one leg of a Path. Times are seconds after midnight of the timetable
// date, in travel order.
type PathLeg struct {
	Kind      LegKind
	FromStop  int32
	ToStop    int32
	Departure int
	Arrival   int
	Cost      int

	// LegAccess, LegEgress
	AccessEgress AccessEgress

	// LegTransit
	Pattern   *Pattern
	Trip      *network.TripSchedule
	BoardPos  int
	AlightPos int

	// LegTransfer
	Transfer *transfer.Transfer
}

// Duration returns the leg duration in seconds.
func (l *PathLeg) Duration() int { return l.Arrival - l.Departure }

// Path is a complete journey: an access leg, transit and transfer legs, and an
// egress leg.
type Path struct {
	Date      network.ServiceDate
	Legs      []PathLeg
	Departure int
	Arrival   int
	Transfers int
	// Cost is the generalized cost accumulated by the search.
	Cost int
}

// Duration returns the journey duration in seconds.
func (p *Path) Duration() int { return p.Arrival - p.Departure }

// TransitLegs counts the scheduled legs.
func (p *Path) TransitLegs() int {
	n := 0
	for i := range p.Legs {
		if p.Legs[i].Kind == LegTransit {
			n++
		}
	}
	return n
}

func (s *search) buildPath(d *destinationArrival) Path {
	states := s.state.chain(d.state)
	path := Path{Date: s.tt.Date, Transfers: d.transfers, Cost: d.cost}

	if s.calc.forward {
		seed := s.state.get(states[0])
		start, end := s.originLeg(d.state)
		path.Legs = append(path.Legs, PathLeg{
			Kind: LegAccess, FromStop: NoStop, ToStop: seed.stop,
			Departure: start, Arrival: end, AccessEgress: s.accesses[seed.leg],
		})
		for k := 1; k < len(states); k++ {
			a := s.state.get(states[k])
			if a.kind == kindTransit {
				path.Legs = append(path.Legs, s.transitLeg(a, int(a.boardPos), int(a.alightPos)))
				continue
			}
			prev := s.state.get(states[k-1])
			path.Legs = append(path.Legs, PathLeg{
				Kind: LegTransfer, FromStop: prev.stop, ToStop: a.stop,
				Departure: prev.time, Arrival: a.time, Transfer: a.transfer,
			})
		}
		last := s.state.get(states[len(states)-1])
		egress := s.egresses[d.egress]
		path.Legs = append(path.Legs, PathLeg{
			Kind: LegEgress, FromStop: last.stop, ToStop: NoStop,
			Departure: d.arrival - egress.DurationInSeconds(), Arrival: d.arrival, AccessEgress: egress,
		})
	} else {
		// the chain runs from the destination back to the origin
		access := s.egresses[d.egress]
		first := s.state.get(states[len(states)-1])
		path.Legs = append(path.Legs, PathLeg{
			Kind: LegAccess, FromStop: NoStop, ToStop: first.stop,
			Departure: d.departure, Arrival: d.departure + access.DurationInSeconds(), AccessEgress: access,
		})
		clock := d.departure + access.DurationInSeconds()
		for k := len(states) - 1; k >= 1; k-- {
			a := s.state.get(states[k])
			var leg PathLeg
			if a.kind == kindTransit {
				leg = s.transitLeg(a, int(a.alightPos), int(a.boardPos))
			} else {
				next := s.state.get(states[k-1])
				leg = PathLeg{
					Kind: LegTransfer, FromStop: a.stop, ToStop: next.stop,
					Departure: clock, Arrival: clock + a.transfer.Duration, Transfer: a.transfer,
				}
			}
			path.Legs = append(path.Legs, leg)
			clock = leg.Arrival
		}
		seed := s.state.get(states[0])
		start, end := s.originLeg(d.state)
		path.Legs = append(path.Legs, PathLeg{
			Kind: LegEgress, FromStop: seed.stop, ToStop: NoStop,
			Departure: start, Arrival: end, AccessEgress: s.accesses[seed.leg],
		})
	}

	path.Departure = path.Legs[0].Departure
	path.Arrival = path.Legs[len(path.Legs)-1].Arrival

	if c := s.pathCost(path.Legs); c != path.Cost {
		s.req.Warnings.Add(warnings.CostMismatch, fmt.Sprintf(
			"path %s-%s with %d transfers: search cost %d, path cost %d",
			network.FormatGTFSTime(path.Departure), network.FormatGTFSTime(path.Arrival),
			path.Transfers, path.Cost, c))
	}
	return path
}

// transitLeg builds a transit leg boarding at position board and alighting at alight
// in travel order.
func (s *search) transitLeg(a *arrival, board, alight int) PathLeg {
	p := &s.tt.Patterns[a.pattern]
	trip := &p.Trips[a.trip]
	return PathLeg{
		Kind:      LegTransit,
		FromStop:  p.Stops[board],
		ToStop:    p.Stops[alight],
		Departure: trip.Departures[board],
		Arrival:   trip.Arrivals[alight],
		Pattern:   p,
		Trip:      trip,
		BoardPos:  board,
		AlightPos: alight,
	}
}

// pathCost recomputes the generalized cost of legs in travel order and stores the
// share of each leg in it. Waiting before the first trip and after the last one is
// free.
func (s *search) pathCost(legs []PathLeg) int {
	cp := &s.req.Cost
	total, transits := 0, 0
	for i := range legs {
		l := &legs[i]
		switch l.Kind {
		case LegAccess, LegEgress:
			l.Cost = l.AccessEgress.Cost()
		case LegTransfer:
			l.Cost = l.Transfer.Cost
		case LegTransit:
			c := cp.BoardCost
			if transits > 0 {
				c += cp.TransferCost
				c += roundCost(cp.WaitReluctance * float64(l.Departure-legs[i-1].Arrival))
			}
			c += roundCost(cp.reluctance(l.Pattern.Route.Mode) * float64(l.Duration()))
			l.Cost = c
			transits++
		}
		total += l.Cost
	}
	return total
}
