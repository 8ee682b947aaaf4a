// Package testnet builds the small networks shared by package tests.
//
// The line network runs west to east along one parallel, stops about a kilometre
// apart:
//
//	A ---R1--- B ---R1--- C ---R2--- D ---R2--- E
//	A ====================R3================== E   (slow express)
//	           B2 --------R4-------- D            (B2 is 40 m from B)
//	A .........................F1............ E   (on-demand taxi)
//
// R1 leaves A every 10 minutes from 08:00, R2 leaves C every 10 minutes from 08:15,
// R3 leaves A at 08:05 and reaches E at 08:50, R4 leaves B2 every 20 minutes from
// 08:07. All services run Monday 2025-01-06 to Friday 2025-01-10.
package testnet

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// Monday is the first service day of the line network.
const Monday network.ServiceDate = 20250106

// Coordinates of the line network stops.
var (
	CoordA  = orb.Point{23.3000, 42.7000}
	CoordB  = orb.Point{23.3120, 42.7000}
	CoordB2 = orb.Point{23.3124, 42.7002}
	CoordC  = orb.Point{23.3240, 42.7000}
	CoordD  = orb.Point{23.3360, 42.7000}
	CoordE  = orb.Point{23.3480, 42.7000}
)

// H returns seconds after midnight for h:m.
func H(h, m int) int { return h*3600 + m*60 }

// StreetGraph returns a walkable and drivable street along the line with a vertex at
// every stop and one between each pair.
func StreetGraph() *street.Graph {
	g := street.NewGraph()
	var prev int32 = -1
	for i, p := range []orb.Point{CoordA, CoordB, CoordC, CoordD, CoordE} {
		v := g.AddVertex(fmt.Sprintf("v%d", i), p)
		if prev >= 0 {
			mid := g.AddVertex(fmt.Sprintf("m%d", i), orb.Point{(g.Vertex(prev).Coord.Lon() + p.Lon()) / 2, p.Lat()})
			mustStreet(g, prev, mid)
			mustStreet(g, mid, v)
		}
		prev = v
	}
	// vertex 1 is B
	b2 := g.AddVertex("vB2", CoordB2)
	mustStreet(g, 1, b2)
	return g
}

func mustStreet(g *street.Graph, from, to int32) {
	if _, err := g.AddStreet(street.Edge{From: from, To: to, Permission: street.PermissionAll, WheelchairAccessible: true}); err != nil {
		panic(err)
	}
}

// LineBuilder returns a builder holding the line network, ready for extra input.
func LineBuilder(withStreets bool) *network.Builder {
	b := network.NewBuilder().SetFeedID("test").SetTimezone("Europe/Sofia")
	if withStreets {
		b.SetStreetGraph(StreetGraph(), 100)
	}
	b.GenerateDirectTransfers(200)

	b.AddStation("PB", "B interchange", CoordB)
	b.AddStop(network.StopInput{ID: "A", Name: "A", Coord: CoordA, Wheelchair: true})
	b.AddStop(network.StopInput{ID: "B", Name: "B", Coord: CoordB, ParentID: "PB", Wheelchair: true})
	b.AddStop(network.StopInput{ID: "B2", Name: "B2", Coord: CoordB2, ParentID: "PB"})
	b.AddStop(network.StopInput{ID: "C", Name: "C", Coord: CoordC, Wheelchair: true})
	b.AddStop(network.StopInput{ID: "D", Name: "D", Coord: CoordD})
	b.AddStop(network.StopInput{ID: "E", Name: "E", Coord: CoordE, Wheelchair: true})

	b.AddRoute(network.Route{ID: "R1", ShortName: "1", Mode: network.ModeBus})
	b.AddRoute(network.Route{ID: "R2", ShortName: "2", Mode: network.ModeTram})
	b.AddRoute(network.Route{ID: "R3", ShortName: "3X", Mode: network.ModeCoach})
	b.AddRoute(network.Route{ID: "R4", ShortName: "4", Mode: network.ModeBus})
	b.AddRoute(network.Route{ID: "F1", ShortName: "Taxi", Mode: network.ModeTaxi1})

	for k := 0; k < 7; k++ {
		t := H(8, 0) + k*600
		b.AddTrip(network.TripInput{
			ID: fmt.Sprintf("R1-%d", k), RouteID: "R1", ServiceID: "WK", Headsign: "C",
			Stops:      []string{"A", "B", "C"},
			Arrivals:   []int{t, t + 300, t + 600},
			Departures: []int{t, t + 300, t + 600},
		})
		t = H(8, 15) + k*600
		b.AddTrip(network.TripInput{
			ID: fmt.Sprintf("R2-%d", k), RouteID: "R2", ServiceID: "WK", Headsign: "E",
			Stops:      []string{"C", "D", "E"},
			Arrivals:   []int{t, t + 300, t + 600},
			Departures: []int{t, t + 300, t + 600},
		})
	}
	for k := 0; k < 4; k++ {
		t := H(8, 7) + k*1200
		b.AddTrip(network.TripInput{
			ID: fmt.Sprintf("R4-%d", k), RouteID: "R4", ServiceID: "WK", Headsign: "D",
			Stops:      []string{"B2", "D"},
			Arrivals:   []int{t, t + 480},
			Departures: []int{t, t + 480},
		})
	}
	b.AddTrip(network.TripInput{
		ID: "R3-0", RouteID: "R3", ServiceID: "WK", Headsign: "E",
		Stops:      []string{"A", "E"},
		Arrivals:   []int{H(8, 5), H(8, 50)},
		Departures: []int{H(8, 5), H(8, 50)},
	})
	b.AddFlexTrip(network.FlexTripInput{
		ID: "F1-0", RouteID: "F1", ServiceID: "WK",
		Stops: []network.FlexStopInput{
			{StopID: "A", WindowStart: H(6, 0), WindowEnd: H(22, 0), CanBoard: true},
			{StopID: "E", WindowStart: H(6, 0), WindowEnd: H(22, 0), CanAlight: true},
		},
	})
	for d := 0; d < 5; d++ {
		b.AddServiceDates("WK", Monday.AddDays(d))
	}
	return b
}

// Line builds the line network. It panics on build errors, which only a broken
// fixture can cause.
func Line(withStreets bool) *network.Network {
	n, err := LineBuilder(withStreets).Build()
	if err != nil {
		panic(err)
	}
	return n
}

// Stop resolves a stop id of a fixture network.
func Stop(n *network.Network, id string) int32 {
	i, err := n.StopIndex(id)
	if err != nil {
		panic(err)
	}
	return i
}
