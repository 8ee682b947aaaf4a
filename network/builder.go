package network

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// StopInput describes a stop added to a Builder. ParentID names a station added with
// AddStation.
type StopInput struct {
	ID         string
	Name       string
	Coord      orb.Point
	ParentID   string
	Wheelchair bool
}

// TripInput describes one scheduled trip. CanBoard/CanAlight default to true when nil.
type TripInput struct {
	ID         string
	RouteID    string
	ServiceID  string
	Headsign   string
	Stops      []string
	Arrivals   []int
	Departures []int
	CanBoard   []bool
	CanAlight  []bool
}

// FlexStopInput is one stop of a flex trip.
type FlexStopInput struct {
	StopID      string
	WindowStart int
	WindowEnd   int
	CanBoard    bool
	CanAlight   bool
}

// FlexTripInput describes an on-demand trip.
type FlexTripInput struct {
	ID        string
	RouteID   string
	ServiceID string
	Stops     []FlexStopInput
}

// TransferInput is an explicit transfer between two stops. A negative MinTime
// forbids the transfer.
type TransferInput struct {
	FromStopID string
	ToStopID   string
	MinTime    int
}

// Builder assembles a Network. It is not safe for concurrent use.
type Builder struct {
	feedID              string
	timezone            string
	stops               []StopInput
	stations            []Station
	routes              []Route
	trips               []TripInput
	flexTrips           []FlexTripInput
	transfers           []TransferInput
	calendar            Calendar
	graph               *street.Graph
	linkDistance        float64
	maxTransferDistance float64
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{calendar: NewCalendar(), timezone: "UTC", linkDistance: street.DefaultMaxLinkDistance}
}

// SetFeedID names the feed.
func (b *Builder) SetFeedID(id string) *Builder { b.feedID = id; return b }

// SetTimezone sets the IANA time zone schedule times are expressed in.
func (b *Builder) SetTimezone(tz string) *Builder { b.timezone = tz; return b }

// SetStreetGraph attaches a street graph. Stops are linked to their nearest vertex
// within linkDistance meters.
func (b *Builder) SetStreetGraph(g *street.Graph, linkDistance float64) *Builder {
	b.graph = g
	if linkDistance > 0 {
		b.linkDistance = linkDistance
	}
	return b
}

// GenerateDirectTransfers makes Build create walking rules between stops closer than
// maxDistance meters.
func (b *Builder) GenerateDirectTransfers(maxDistance float64) *Builder {
	b.maxTransferDistance = maxDistance
	return b
}

// AddStation adds a parent station.
func (b *Builder) AddStation(id, name string, coord orb.Point) *Builder {
	b.stations = append(b.stations, Station{ID: id, Name: name, Coord: coord})
	return b
}

// AddStop adds a stop.
func (b *Builder) AddStop(s StopInput) *Builder {
	b.stops = append(b.stops, s)
	return b
}

// AddRoute adds a route.
func (b *Builder) AddRoute(r Route) *Builder {
	b.routes = append(b.routes, r)
	return b
}

// AddTrip adds a scheduled trip.
func (b *Builder) AddTrip(t TripInput) *Builder {
	b.trips = append(b.trips, t)
	return b
}

// AddFlexTrip adds an on-demand trip.
func (b *Builder) AddFlexTrip(t FlexTripInput) *Builder {
	b.flexTrips = append(b.flexTrips, t)
	return b
}

// AddTransfer adds an explicit transfer.
func (b *Builder) AddTransfer(t TransferInput) *Builder {
	b.transfers = append(b.transfers, t)
	return b
}

// AddServiceDates marks a service as running on the given dates.
func (b *Builder) AddServiceDates(serviceID string, dates ...ServiceDate) *Builder {
	b.calendar.Add(serviceID, dates...)
	return b
}

// RemoveServiceDate removes a running date, as calendar_dates.txt exception type 2 does.
func (b *Builder) RemoveServiceDate(serviceID string, date ServiceDate) *Builder {
	b.calendar.Remove(serviceID, date)
	return b
}

// Build validates the input and produces the snapshot.
func (b *Builder) Build() (*Network, error) {
	n := &Network{
		FeedID:   b.feedID,
		Timezone: b.timezone,
		Street:   b.graph,
		Calendar: b.calendar,
	}
	n.Calendar.normalize()

	stationByID := make(map[string]int32, len(b.stations))
	for _, st := range b.stations {
		if _, dup := stationByID[st.ID]; dup {
			return nil, fmt.Errorf("duplicate station %q", st.ID)
		}
		stationByID[st.ID] = int32(len(n.Stations))
		st.Children = nil
		n.Stations = append(n.Stations, st)
	}

	stopByID := make(map[string]int32, len(b.stops))
	for _, in := range b.stops {
		if in.ID == "" {
			return nil, errors.New("stop without id")
		}
		if _, dup := stopByID[in.ID]; dup {
			return nil, fmt.Errorf("duplicate stop %q", in.ID)
		}
		idx := int32(len(n.Stops))
		stop := Stop{ID: in.ID, Name: in.Name, Coord: in.Coord, Station: NoStation, Vertex: NoVertex, Wheelchair: in.Wheelchair}
		if in.ParentID != "" {
			st, ok := stationByID[in.ParentID]
			if !ok {
				return nil, fmt.Errorf("stop %q: parent station %q not found", in.ID, in.ParentID)
			}
			stop.Station = st
			n.Stations[st].Children = append(n.Stations[st].Children, idx)
		}
		if b.graph != nil {
			if v, _, err := b.graph.NearestVertex(in.Coord, b.linkDistance); err == nil {
				stop.Vertex = v
			}
		}
		stopByID[in.ID] = idx
		n.Stops = append(n.Stops, stop)
	}

	routeByID := make(map[string]int32, len(b.routes))
	for _, r := range b.routes {
		routeByID[r.ID] = int32(len(n.Routes))
		n.Routes = append(n.Routes, r)
	}

	if err := b.buildPatterns(n, stopByID, routeByID); err != nil {
		return nil, err
	}
	if err := b.buildFlexTrips(n, stopByID, routeByID); err != nil {
		return nil, err
	}
	rules, err := b.buildTransfers(n, stopByID)
	if err != nil {
		return nil, err
	}
	n.Transfers = rules

	if err := n.reindex(); err != nil {
		return nil, err
	}
	return n, nil
}

func (b *Builder) buildPatterns(n *Network, stopByID, routeByID map[string]int32) error {
	type group struct {
		route     int32
		stops     []int32
		canBoard  []bool
		canAlight []bool
		trips     []TripSchedule
	}
	groups := map[string]*group{}
	var order []string

	for _, t := range b.trips {
		k := len(t.Stops)
		if k < 2 {
			return fmt.Errorf("trip %q: needs at least two stops", t.ID)
		}
		if len(t.Arrivals) != k || len(t.Departures) != k {
			return fmt.Errorf("trip %q: %d stops but %d arrivals and %d departures",
				t.ID, k, len(t.Arrivals), len(t.Departures))
		}
		route, ok := routeByID[t.RouteID]
		if !ok {
			return fmt.Errorf("trip %q: route %q not found", t.ID, t.RouteID)
		}
		stops := make([]int32, k)
		for i, id := range t.Stops {
			s, ok := stopByID[id]
			if !ok {
				return fmt.Errorf("trip %q: stop %q not found", t.ID, id)
			}
			stops[i] = s
		}
		for i := 0; i < k; i++ {
			if t.Departures[i] < t.Arrivals[i] || (i > 0 && t.Arrivals[i] < t.Departures[i-1]) {
				return fmt.Errorf("trip %q: times decrease at stop %d", t.ID, i)
			}
		}
		board, alight := flags(t.CanBoard, k), flags(t.CanAlight, k)
		key := patternKey(route, stops, board, alight)
		g, ok := groups[key]
		if !ok {
			g = &group{route: route, stops: stops, canBoard: board, canAlight: alight}
			groups[key] = g
			order = append(order, key)
		}
		g.trips = append(g.trips, TripSchedule{
			ID:         t.ID,
			ServiceID:  t.ServiceID,
			Headsign:   t.Headsign,
			Arrivals:   append([]int(nil), t.Arrivals...),
			Departures: append([]int(nil), t.Departures...),
		})
	}

	perRoute := map[int32]int{}
	for _, key := range order {
		g := groups[key]
		for _, trips := range SplitOvertaking(g.trips) {
			perRoute[g.route]++
			n.Patterns = append(n.Patterns, Pattern{
				ID:        fmt.Sprintf("%s:%d", n.Routes[g.route].ID, perRoute[g.route]),
				Route:     g.route,
				Stops:     g.stops,
				CanBoard:  g.canBoard,
				CanAlight: g.canAlight,
				Trips:     trips,
			})
		}
	}
	return nil
}

func flags(in []bool, k int) []bool {
	out := make([]bool, k)
	for i := range out {
		out[i] = in == nil || in[i]
	}
	return out
}

func (b *Builder) buildFlexTrips(n *Network, stopByID, routeByID map[string]int32) error {
	for _, t := range b.flexTrips {
		route, ok := routeByID[t.RouteID]
		if !ok {
			return fmt.Errorf("flex trip %q: route %q not found", t.ID, t.RouteID)
		}
		ft := FlexTrip{ID: t.ID, Route: route, ServiceID: t.ServiceID}
		for _, s := range t.Stops {
			stop, ok := stopByID[s.StopID]
			if !ok {
				return fmt.Errorf("flex trip %q: stop %q not found", t.ID, s.StopID)
			}
			if s.WindowEnd < s.WindowStart {
				return fmt.Errorf("flex trip %q: window ends before it starts at stop %q", t.ID, s.StopID)
			}
			ft.StopTimes = append(ft.StopTimes, FlexStopTime{
				Stop: stop, WindowStart: s.WindowStart, WindowEnd: s.WindowEnd,
				CanBoard: s.CanBoard, CanAlight: s.CanAlight,
			})
		}
		n.FlexTrips = append(n.FlexTrips, ft)
	}
	return nil
}

// buildTransfers merges explicit transfers with generated walking rules. Explicit
// transfers win over generated ones for the same stop pair.
func (b *Builder) buildTransfers(n *Network, stopByID map[string]int32) (*TransferRules, error) {
	type pair struct{ from, to int32 }
	rules := map[pair]TransferRule{}
	forbidden := map[pair]bool{}

	if b.maxTransferDistance > 0 {
		for _, r := range b.directRules(n) {
			rules[pair{r.From, r.To}] = r
		}
	}
	for _, t := range b.transfers {
		from, ok := stopByID[t.FromStopID]
		if !ok {
			return nil, fmt.Errorf("transfer: stop %q not found", t.FromStopID)
		}
		to, ok := stopByID[t.ToStopID]
		if !ok {
			return nil, fmt.Errorf("transfer: stop %q not found", t.ToStopID)
		}
		key := pair{from, to}
		if t.MinTime < 0 {
			forbidden[key] = true
			continue
		}
		r, ok := rules[key]
		if !ok {
			r = TransferRule{From: from, To: to, Distance: geo.Distance(n.Stops[from].Coord, n.Stops[to].Coord)}
		}
		r.MinTime = t.MinTime
		rules[key] = r
	}

	out := &TransferRules{ByStop: make([][]TransferRule, len(n.Stops))}
	for key, r := range rules {
		if forbidden[key] || key.from == key.to {
			continue
		}
		out.ByStop[key.from] = append(out.ByStop[key.from], r)
	}
	for i := range out.ByStop {
		sort.Slice(out.ByStop[i], func(a, c int) bool { return out.ByStop[i][a].To < out.ByStop[i][c].To })
	}
	return out, nil
}

// directRules creates rules between stops within maxTransferDistance. With a street
// graph the walking path is used, otherwise a straight line. Stops of one station are
// always connected.
func (b *Builder) directRules(n *Network) []TransferRule {
	var out []TransferRule
	idx := make([]int32, len(n.Stops))
	for i := range idx {
		idx[i] = int32(i)
	}
	// sweep by latitude; one degree of latitude is about 111 km
	sort.Slice(idx, func(a, c int) bool { return n.Stops[idx[a]].Coord.Lat() < n.Stops[idx[c]].Coord.Lat() })
	latSpan := b.maxTransferDistance / 111000

	walk := street.DefaultProfile()
	for a := range idx {
		from := &n.Stops[idx[a]]
		var tree *street.Tree
		if b.graph != nil && from.Vertex != NoVertex {
			tree, _ = street.ShortestPathTree(b.graph, from.Vertex, walk,
				street.WithTraverseMode(street.TraverseWalk),
				street.WithMaxDistance(b.maxTransferDistance))
		}
		for c := range idx {
			if a == c {
				continue
			}
			to := &n.Stops[idx[c]]
			if to.Coord.Lat()-from.Coord.Lat() > latSpan {
				if c > a {
					break
				}
				continue
			}
			if from.Coord.Lat()-to.Coord.Lat() > latSpan {
				continue
			}
			sameStation := from.HasStation() && from.Station == to.Station
			dist := geo.Distance(from.Coord, to.Coord)
			if dist > b.maxTransferDistance && !sameStation {
				continue
			}
			rule := TransferRule{From: idx[a], To: idx[c], Distance: dist}
			if tree != nil && to.Vertex != NoVertex {
				if path, ok := tree.Path(to.Vertex); ok {
					rule.Edges = path.Edges
					rule.Distance = path.Meters
				}
			}
			out = append(out, rule)
		}
	}
	return out
}
