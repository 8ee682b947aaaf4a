package raptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/journey-planner/internal/testnet"
	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

var H = testnet.H

// testLeg is a walk or ride between the origin or destination and a stop. A non-zero
// closes gives it opening hours [opens, closes].
type testLeg struct {
	stop     int32
	duration int
	cost     int
	rides    int
	onBoard  bool
	opens    int
	closes   int
}

func (l testLeg) Stop() int32              { return l.stop }
func (l testLeg) DurationInSeconds() int   { return l.duration }
func (l testLeg) Cost() int                { return l.cost }
func (l testLeg) NumberOfRides() int       { return l.rides }
func (l testLeg) StopReachedOnBoard() bool { return l.onBoard }
func (l testLeg) HasOpeningHours() bool    { return l.closes > 0 }

func (l testLeg) EarliestDepartureTime(t int) int {
	t = max(t, l.opens)
	if t+l.duration > l.closes {
		return NotSet
	}
	return t
}

func (l testLeg) LatestArrivalTime(t int) int {
	t = min(t, l.closes)
	if t-l.duration < l.opens {
		return NotSet
	}
	return t
}

type fixture struct {
	net       *network.Network
	tt        *Timetable
	transfers *transfer.Index
}

func lineFixture(t *testing.T) fixture {
	t.Helper()
	n := testnet.Line(false)
	return fixture{
		net:       n,
		tt:        BuildTimetable(n, testnet.Monday, 0),
		transfers: transfer.NewIndex(n.Transfers, n.Street, street.DefaultProfile(), 1),
	}
}

func (f fixture) walk(id string) testLeg {
	return testLeg{stop: testnet.Stop(f.net, id), duration: 60, cost: 120}
}

// request searches from a one minute walk to A to a one minute walk from E.
func (f fixture) request(edt int) *Request {
	req := NewRequest(edt)
	req.Transfers = f.transfers
	req.Accesses = []AccessEgress{f.walk("A")}
	req.Egresses = []AccessEgress{f.walk("E")}
	req.Warnings = warnings.NewAggregator()
	return req
}

func tripIDs(p *Path) []string {
	var ids []string
	for i := range p.Legs {
		if p.Legs[i].Kind == LegTransit {
			ids = append(ids, p.Legs[i].Trip.ID)
		}
	}
	return ids
}

func TestSearch_ParetoTradeOff(t *testing.T) {
	f := lineFixture(t)
	req := f.request(H(8, 0))

	resp, err := Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 2)
	assert.Equal(t, 1, resp.Iterations)

	express := resp.Paths[0]
	assert.Equal(t, []string{"R3-0"}, tripIDs(&express))
	assert.Equal(t, H(8, 4), express.Departure, "access is moved next to the first trip")
	assert.Equal(t, H(8, 51), express.Arrival)
	assert.Equal(t, 0, express.Transfers)
	assert.Equal(t, 120+600+2700+120, express.Cost)

	change := resp.Paths[1]
	assert.Equal(t, []string{"R1-1", "R2-1"}, tripIDs(&change))
	assert.Equal(t, H(8, 9), change.Departure)
	assert.Equal(t, H(8, 36), change.Arrival)
	assert.Equal(t, 1, change.Transfers)
	assert.Equal(t, 120+1200+1500+120, change.Cost)

	kinds := make([]LegKind, 0, len(change.Legs))
	for _, l := range change.Legs {
		kinds = append(kinds, l.Kind)
	}
	assert.Equal(t, []LegKind{LegAccess, LegTransit, LegTransit, LegEgress}, kinds)
	assert.Equal(t, testnet.Stop(f.net, "C"), change.Legs[1].ToStop)
	assert.Equal(t, 300+600+600, change.Legs[2].Cost, "wait, board and ride")

	assert.Zero(t, req.Warnings.Count(warnings.CostMismatch))
}

func TestSearch_ArriveBy(t *testing.T) {
	f := lineFixture(t)
	req := f.request(NotSet)
	req.ArriveBy = true
	req.LatestArrivalTime = H(9, 0)

	resp, err := Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 2)

	express := resp.Paths[0]
	assert.Equal(t, []string{"R3-0"}, tripIDs(&express))
	assert.Equal(t, H(8, 4), express.Departure)
	assert.Equal(t, H(8, 51), express.Arrival, "egress is moved next to the last trip")
	assert.Equal(t, 3540, express.Cost)

	change := resp.Paths[1]
	assert.Equal(t, []string{"R1-3", "R2-3"}, tripIDs(&change))
	assert.Equal(t, H(8, 29), change.Departure)
	assert.Equal(t, H(8, 56), change.Arrival)
	assert.Equal(t, 1, change.Transfers)
	assert.Equal(t, 2940, change.Cost)
	assert.Equal(t, LegAccess, change.Legs[0].Kind)
	assert.Equal(t, LegEgress, change.Legs[len(change.Legs)-1].Kind)

	for _, p := range resp.Paths {
		for i := 1; i < len(p.Legs); i++ {
			assert.LessOrEqual(t, p.Legs[i-1].Arrival, p.Legs[i].Departure, "legs are in travel order")
		}
	}
	assert.Zero(t, req.Warnings.Count(warnings.CostMismatch))
}

func TestSearch_RangeWindow(t *testing.T) {
	f := lineFixture(t)
	req := f.request(H(8, 0))
	req.SearchWindow = 20 * 60

	resp, err := Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	assert.Equal(t, 20, resp.Iterations)
	require.Len(t, resp.Paths, 3)

	assert.Equal(t, []string{"R3-0"}, tripIDs(&resp.Paths[0]))
	assert.Equal(t, []string{"R1-1", "R2-1"}, tripIDs(&resp.Paths[1]))
	assert.Equal(t, []string{"R1-2", "R2-2"}, tripIDs(&resp.Paths[2]))
	assert.Equal(t, H(8, 19), resp.Paths[2].Departure)
	assert.Equal(t, H(8, 46), resp.Paths[2].Arrival)
}

func TestSearch_StandardProfile(t *testing.T) {
	f := lineFixture(t)
	req := f.request(H(8, 0))
	req.Profile = Standard

	resp, err := Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 2)
	assert.Equal(t, 0, resp.Paths[0].Transfers)
	assert.Equal(t, 1, resp.Paths[1].Transfers)
	assert.Equal(t, H(8, 36), resp.Paths[1].Arrival)
}

func TestSearch_Limits(t *testing.T) {
	f := lineFixture(t)

	t.Run("latest arrival", func(t *testing.T) {
		req := f.request(H(8, 0))
		req.LatestArrivalTime = H(8, 40)
		resp, err := Search(context.Background(), f.tt, req)
		require.NoError(t, err)
		require.Len(t, resp.Paths, 1)
		assert.LessOrEqual(t, resp.Paths[0].Arrival, H(8, 40))
	})

	t.Run("no transfers", func(t *testing.T) {
		req := f.request(H(8, 0))
		req.MaxNumberOfTransfers = 0
		resp, err := Search(context.Background(), f.tt, req)
		require.NoError(t, err)
		require.Len(t, resp.Paths, 1)
		assert.Equal(t, []string{"R3-0"}, tripIDs(&resp.Paths[0]))
		assert.Equal(t, 1, resp.Rounds)
	})

	t.Run("after last trip", func(t *testing.T) {
		resp, err := Search(context.Background(), f.tt, f.request(H(12, 0)))
		require.NoError(t, err)
		assert.Empty(t, resp.Paths)
	})
}

func TestSearch_OnBoardAccess(t *testing.T) {
	f := lineFixture(t)
	taxi := testLeg{stop: testnet.Stop(f.net, "C"), duration: 600, cost: 900, rides: 1, onBoard: true}

	req := f.request(H(8, 0))
	req.Accesses = []AccessEgress{taxi}
	resp, err := Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)

	p := resp.Paths[0]
	assert.Equal(t, []string{"R2-0"}, tripIDs(&p))
	assert.Equal(t, H(8, 5), p.Departure)
	assert.Equal(t, H(8, 26), p.Arrival)
	assert.Equal(t, 1, p.Transfers, "the taxi ride counts")
	assert.Equal(t, 900+1200+120, p.Cost, "no wait is charged after an access")
	assert.Zero(t, req.Warnings.Count(warnings.CostMismatch))

	taxi.opens, taxi.closes = H(8, 20), H(22, 0)
	req = f.request(H(8, 0))
	req.Accesses = []AccessEgress{taxi}
	resp, err = Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)
	assert.Equal(t, []string{"R2-2"}, tripIDs(&resp.Paths[0]))
	assert.Equal(t, H(8, 25), resp.Paths[0].Departure)
}

func TestSearch_OnBoardAccessThenTransfer(t *testing.T) {
	f := lineFixture(t)
	// the taxi stops at B2, R1 leaves from B next door
	taxi := testLeg{stop: testnet.Stop(f.net, "B2"), duration: 300, cost: 600, rides: 1, onBoard: true}

	req := f.request(H(8, 0))
	req.Accesses = []AccessEgress{taxi}
	req.Egresses = []AccessEgress{f.walk("C")}
	resp, err := Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)
	forward := resp.Paths[0]
	assert.Equal(t, []string{"R1-1"}, tripIDs(&forward))
	require.Equal(t, LegTransfer, forward.Legs[1].Kind)
	assert.Zero(t, req.Warnings.Count(warnings.CostMismatch))

	req = f.request(NotSet)
	req.ArriveBy = true
	req.LatestArrivalTime = forward.Arrival
	req.Accesses = []AccessEgress{taxi}
	req.Egresses = []AccessEgress{f.walk("C")}
	resp, err = Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.Len(t, resp.Paths, 1)
	reverse := resp.Paths[0]
	assert.Equal(t, []string{"R1-1"}, tripIDs(&reverse))
	assert.Equal(t, forward.Cost, reverse.Cost, "both directions price the journey alike")
	assert.Zero(t, req.Warnings.Count(warnings.CostMismatch))

	for i := 1; i < len(reverse.Legs); i++ {
		assert.LessOrEqual(t, reverse.Legs[i-1].Arrival, reverse.Legs[i].Departure)
	}
}

func TestSearch_Transfer(t *testing.T) {
	f := lineFixture(t)
	req := f.request(H(8, 0))
	req.Egresses = []AccessEgress{f.walk("D")}
	// makes the tram via C more expensive than walking over to B2
	req.Cost.ModeReluctance = map[network.TransitMode]float64{network.ModeTram: 10}

	resp, err := Search(context.Background(), f.tt, req)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Paths)

	var viaB2 *Path
	for i := range resp.Paths {
		for _, l := range resp.Paths[i].Legs {
			if l.Kind == LegTransfer {
				viaB2 = &resp.Paths[i]
			}
		}
	}
	require.NotNil(t, viaB2)
	assert.Equal(t, []string{"R1-1", "R4-1"}, tripIDs(viaB2))
	tr := viaB2.Legs[2]
	assert.Equal(t, testnet.Stop(f.net, "B"), tr.FromStop)
	assert.Equal(t, testnet.Stop(f.net, "B2"), tr.ToStop)
	assert.Equal(t, tr.Transfer.Duration, tr.Duration())
	assert.Zero(t, req.Warnings.Count(warnings.CostMismatch))
}

func TestSearch_Canceled(t *testing.T) {
	f := lineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, f.tt, f.request(H(8, 0)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequest_Validate(t *testing.T) {
	req := NewRequest(NotSet)
	req.Transfers = &transfer.Index{}
	assert.ErrorIs(t, req.Validate(), ErrMissingDepartureTime)

	req.ArriveBy = true
	assert.ErrorIs(t, req.Validate(), ErrMissingArrivalTime)

	req = NewRequest(H(8, 0))
	assert.ErrorIs(t, req.Validate(), ErrMissingTransfers)

	req.Transfers = &transfer.Index{}
	req.SearchWindow = -1
	assert.ErrorIs(t, req.Validate(), ErrNegativeWindow)

	req.SearchWindow = 0
	req.IterationStep = 0
	require.NoError(t, req.Validate())
	assert.Equal(t, DefaultIterationStep, req.IterationStep)
}

// TestStopArrivals_ParetoSets checks every kept set after a range search: no state
// dominates another and the pareto round matches the rides taken.
func TestStopArrivals_ParetoSets(t *testing.T) {
	f := lineFixture(t)
	req := f.request(H(8, 0))
	req.SearchWindow = 30 * 60
	require.NoError(t, req.Validate())

	s := newSearch(context.Background(), f.tt, req)
	for t0 := H(8, 30); t0 >= H(8, 0); t0 -= 60 {
		require.NoError(t, s.iteration(t0))
	}

	for stop, set := range s.state.sets {
		for _, i := range set {
			a := s.state.get(i)
			assert.True(t, a.alive)
			assert.Equal(t, int32(stop), a.stop)
			switch a.kind {
			case kindTransit:
				assert.Equal(t, 2*a.rides, a.round)
			case kindTransfer:
				assert.Equal(t, 2*a.rides+1, a.round)
			}
			for _, j := range set {
				if i != j {
					assert.False(t, s.state.dominates(a, s.state.get(j)), "stop %d keeps a dominated state", stop)
				}
			}
		}
	}
	for i := range s.dest.arrivals {
		for j := range s.dest.arrivals {
			if i != j {
				assert.False(t, s.dest.dominates(&s.dest.arrivals[i], &s.dest.arrivals[j]))
			}
		}
	}
}

func TestBuildPath_CostMismatch(t *testing.T) {
	f := lineFixture(t)
	req := f.request(H(8, 0))
	require.NoError(t, req.Validate())

	s := newSearch(context.Background(), f.tt, req)
	require.NoError(t, s.iteration(H(8, 0)))
	require.NotEmpty(t, s.dest.arrivals)

	d := s.dest.arrivals[0]
	d.cost += 7
	p := s.buildPath(&d)
	assert.Equal(t, d.cost, p.Cost, "the path is kept with the search cost")
	assert.Equal(t, 1, req.Warnings.Count(warnings.CostMismatch))
}

func TestDestinationCollector(t *testing.T) {
	var rejected []RejectedPath
	c := newDestinationCollector(timeCalc{forward: true}, true, H(10, 0), func(r RejectedPath) {
		rejected = append(rejected, r)
	})

	fast := destinationArrival{time: H(9, 0), departure: H(8, 0), arrival: H(9, 0), transfers: 2, cost: 5000}
	direct := destinationArrival{time: H(9, 30), departure: H(8, 0), arrival: H(9, 30), transfers: 0, cost: 4000}
	slow := destinationArrival{time: H(9, 40), departure: H(8, 0), arrival: H(9, 40), transfers: 2, cost: 6000}
	late := destinationArrival{time: H(10, 5), departure: H(9, 0), arrival: H(10, 5)}

	c.startRound()
	assert.True(t, c.add(fast))
	assert.True(t, c.add(direct))
	assert.False(t, c.add(slow))
	assert.False(t, c.add(late))
	assert.False(t, c.add(fast), "an equal arrival loses to the one already kept")
	c.endRound(3)

	assert.Len(t, c.arrivals, 2)
	require.Len(t, rejected, 3)
	assert.Equal(t, "dominated", rejected[0].Reason)
	assert.Equal(t, "time limit exceeded", rejected[1].Reason)

	assert.Equal(t, H(9, 30), c.bestTimeWithin(1))
	assert.Equal(t, H(9, 0), c.bestTimeWithin(2))
	assert.Equal(t, 5, c.maxRound(13, 2))
}

func TestFindTrip(t *testing.T) {
	p := &Pattern{Trips: []network.TripSchedule{
		{Arrivals: []int{90, 190}, Departures: []int{100, 200}},
		{Arrivals: []int{190, 290}, Departures: []int{200, 300}},
		{Arrivals: []int{290, 390}, Departures: []int{300, 400}},
	}}
	tests := []struct {
		name    string
		pos     int
		t       int
		forward bool
		want    int32
		ok      bool
	}{
		{"forward exact", 0, 200, true, 1, true},
		{"forward between", 0, 150, true, 1, true},
		{"forward first", 1, 0, true, 0, true},
		{"forward none", 0, 301, true, 0, false},
		{"reverse exact", 1, 290, false, 1, true},
		{"reverse between", 1, 350, false, 1, true},
		{"reverse last", 0, 1000, false, 2, true},
		{"reverse none", 0, 89, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, threshold := range []int{0, 50} {
				got, ok := findTrip(p, tt.pos, tt.t, tt.forward, threshold)
				assert.Equal(t, tt.ok, ok, "threshold %d", threshold)
				if tt.ok {
					assert.Equal(t, tt.want, got, "threshold %d", threshold)
				}
			}
		})
	}
}

func TestBuildTimetable(t *testing.T) {
	n := testnet.Line(false)

	tt := BuildTimetable(n, testnet.Monday, 0)
	assert.Equal(t, 19, tt.TripCount())
	assert.Equal(t, n.StopCount(), tt.StopCount())
	assert.Len(t, tt.PatternsAtStop(testnet.Stop(n, "C")), 2)

	twoDays := BuildTimetable(n, testnet.Monday, 1)
	assert.Equal(t, 38, twoDays.TripCount())
	var tuesday *network.TripSchedule
	for pi := range twoDays.Patterns {
		for i := range twoDays.Patterns[pi].Trips {
			if trip := &twoDays.Patterns[pi].Trips[i]; trip.ID == "R3-0" && trip.ServiceDate != testnet.Monday {
				tuesday = trip
			}
		}
	}
	require.NotNil(t, tuesday)
	assert.Equal(t, testnet.Monday.AddDays(1), tuesday.ServiceDate)
	assert.Equal(t, H(8, 5)+86400, tuesday.Departures[0])

	saturday := BuildTimetable(n, testnet.Monday.AddDays(5), 0)
	assert.Zero(t, saturday.TripCount())
}
