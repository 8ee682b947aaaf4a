package itinerary

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/theoremus-urban-solutions/journey-planner/access"
	"github.com/theoremus-urban-solutions/journey-planner/flex"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/raptor"
	"github.com/theoremus-urban-solutions/journey-planner/realtime"
	"github.com/theoremus-urban-solutions/journey-planner/street"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

// Mapper converts search results of one request into itineraries.
type Mapper struct {
	net    *network.Network
	alerts *realtime.AlertIndex
	from   Place
	to     Place
}

// NewMapper creates a mapper for a request from origin to destination. alerts may
// be nil.
func NewMapper(n *network.Network, alerts *realtime.AlertIndex, origin, destination Place) *Mapper {
	return &Mapper{net: n, alerts: alerts, from: origin, to: destination}
}

func (m *Mapper) clock(date network.ServiceDate, secs int) time.Time {
	return date.Midnight(m.net.Location()).Add(time.Duration(secs) * time.Second)
}

func (m *Mapper) stopPlace(stop int32) Place {
	s := m.net.Stop(stop)
	return Place{Name: s.Name, StopID: s.ID, Lat: s.Coord.Lat(), Lon: s.Coord.Lon()}
}

func (m *Mapper) point(p Place) orb.Point { return orb.Point{p.Lon, p.Lat} }

// FromPath maps a transit path. Times of the path are relative to its date.
func (m *Mapper) FromPath(p *raptor.Path) Itinerary {
	var it Itinerary
	for i := range p.Legs {
		pl := &p.Legs[i]
		switch pl.Kind {
		case raptor.LegAccess:
			it.Legs = append(it.Legs, m.accessEgress(pl.AccessEgress, p.Date, pl.Departure, true)...)
		case raptor.LegEgress:
			it.Legs = append(it.Legs, m.accessEgress(pl.AccessEgress, p.Date, pl.Departure, false)...)
		case raptor.LegTransit:
			it.Legs = append(it.Legs, m.transit(pl, p.Date))
		case raptor.LegTransfer:
			it.Legs = append(it.Legs, m.transfer(pl.Transfer, p.Date, pl.Departure, m.stopPlace(pl.FromStop), m.stopPlace(pl.ToStop)))
		}
	}
	it.finish()
	if len(it.Legs) == 0 {
		it.StartTime, it.EndTime = m.clock(p.Date, p.Departure), m.clock(p.Date, p.Arrival)
	}
	it.GeneralizedCost = p.Cost
	return it
}

// FromStreet maps a direct street path departing at dep.
func (m *Mapper) FromStreet(sp street.Path, mode street.Mode, date network.ServiceDate, dep int) Itinerary {
	cost := int(math.Round(sp.Weight))
	it := Itinerary{Legs: []Leg{{
		Mode:      mode.String(),
		From:      m.from,
		To:        m.to,
		StartTime: m.clock(date, dep),
		EndTime:   m.clock(date, dep+sp.Seconds),
		Distance:  sp.Meters,
		Cost:      cost,
		Geometry:  sp.Geometry,
	}}}
	it.finish()
	it.GeneralizedCost = cost
	return it
}

// FromFlex maps a direct flex journey.
func (m *Mapper) FromFlex(j flex.DirectJourney, date network.ServiceDate) Itinerary {
	var it Itinerary
	it.Legs = m.flexLegs(j.Leg, date, j.Departure, true)
	it.finish()
	it.GeneralizedCost = j.Leg.Cost()
	return it
}

func (m *Mapper) accessEgress(ae raptor.AccessEgress, date network.ServiceDate, dep int, isAccess bool) []Leg {
	switch l := ae.(type) {
	case *flex.Leg:
		return m.flexLegs(l, date, dep, isAccess)
	case *access.StreetLeg:
		if l.Duration == 0 && l.Distance == 0 {
			return nil
		}
		return []Leg{m.streetLeg(&l.NearbyStop, date, dep, isAccess)}
	default:
		if ae.DurationInSeconds() == 0 {
			return nil
		}
		from, to := m.from, m.stopPlace(ae.Stop())
		if !isAccess {
			from, to = to, m.to
		}
		return []Leg{{
			Mode: ModeWalk, From: from, To: to, Cost: ae.Cost(),
			StartTime: m.clock(date, dep), EndTime: m.clock(date, dep+ae.DurationInSeconds()),
		}}
	}
}

// streetLeg maps the walk between the origin and a stop, or a stop and the
// destination.
func (m *Mapper) streetLeg(s *access.NearbyStop, date network.ServiceDate, dep int, isAccess bool) Leg {
	from, to := m.from, m.stopPlace(s.Stop)
	if !isAccess {
		from, to = to, m.to
	}
	mode := s.Mode.String()
	if s.Mode == street.ModeNotSet {
		mode = ModeWalk
	}
	geom := s.Geometry
	if len(geom) == 0 {
		geom = orb.LineString{m.point(from), m.point(to)}
	}
	return Leg{
		Mode:      mode,
		From:      from,
		To:        to,
		StartTime: m.clock(date, dep),
		EndTime:   m.clock(date, dep+s.Duration),
		Distance:  s.Distance,
		Cost:      s.Cost,
		Geometry:  geom,
	}
}

// flexLegs expands a flex leg into its walks and the ride, starting at dep.
func (m *Mapper) flexLegs(l *flex.Leg, date network.ServiceDate, dep int, isAccess bool) []Leg {
	var out []Leg
	t := dep
	add := func(leg Leg) {
		if leg.Duration() > 0 || leg.Distance > 0 || leg.IsRide() {
			out = append(out, leg)
		}
		t += leg.Duration()
	}
	board, alight := m.stopPlace(l.BoardStop()), m.stopPlace(l.AlightStop())

	if l.Access != nil {
		add(m.streetLeg(l.Access, date, t, true))
	}
	if l.Transfer != nil && !isAccess {
		add(m.transfer(l.Transfer, date, t, m.stopPlace(l.Stop()), board))
	}

	route := m.net.Route(l.Trip.Route)
	ride := Leg{
		Mode:           ModeFlex,
		From:           board,
		To:             alight,
		StartTime:      m.clock(date, t),
		EndTime:        m.clock(date, t+l.Ride.Seconds),
		Distance:       l.Ride.Meters,
		Cost:           l.Ride.Seconds,
		RouteID:        route.ID,
		RouteShortName: route.ShortName,
		TripID:         l.Trip.ID,
		FlexibleTrip:   true,
		Geometry:       l.Ride.Geometry,
	}
	ride.Alerts = m.alerts.Match(ride.StartTime, route.ID, l.Trip.ID, board.StopID, alight.StopID)
	add(ride)

	if l.Transfer != nil && isAccess {
		add(m.transfer(l.Transfer, date, t, alight, m.stopPlace(l.Stop())))
	}
	if l.Egress != nil {
		add(m.streetLeg(l.Egress, date, t, false))
	}
	return out
}

func (m *Mapper) transit(pl *raptor.PathLeg, date network.ServiceDate) Leg {
	p, trip := pl.Pattern, pl.Trip
	from, to := m.stopPlace(pl.FromStop), m.stopPlace(pl.ToStop)
	var geom orb.LineString
	var dist float64
	for pos := pl.BoardPos; pos <= pl.AlightPos; pos++ {
		c := m.net.Stop(p.Stops[pos]).Coord
		if len(geom) > 0 {
			dist += geo.Distance(geom[len(geom)-1], c)
		}
		geom = append(geom, c)
	}
	leg := Leg{
		Mode:             p.Route.Mode.String(),
		From:             from,
		To:               to,
		StartTime:        m.clock(date, pl.Departure),
		EndTime:          m.clock(date, pl.Arrival),
		Distance:         dist,
		Cost:             pl.Cost,
		RouteID:          p.Route.ID,
		RouteShortName:   p.Route.ShortName,
		TripID:           trip.ID,
		Headsign:         trip.Headsign,
		Realtime:         trip.Realtime,
		ScheduledTransit: true,
		Geometry:         geom,
	}
	leg.Alerts = m.alerts.Match(leg.StartTime, p.Route.ID, trip.ID, from.StopID, to.StopID)
	return leg
}

func (m *Mapper) transfer(t *transfer.Transfer, date network.ServiceDate, dep int, from, to Place) Leg {
	var geom orb.LineString
	if g := m.net.Street; g != nil {
		for _, e := range t.Edges {
			geom = append(geom, g.Edge(e).Geometry...)
		}
	}
	if len(geom) == 0 {
		geom = orb.LineString{m.point(from), m.point(to)}
	}
	return Leg{
		Mode:      ModeWalk,
		From:      from,
		To:        to,
		StartTime: m.clock(date, dep),
		EndTime:   m.clock(date, dep+t.Duration),
		Distance:  t.Distance,
		Cost:      t.Cost,
		Geometry:  geom,
	}
}
