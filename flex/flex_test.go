package flex

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/journey-planner/access"
	"github.com/theoremus-urban-solutions/journey-planner/internal/testnet"
	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

var H = testnet.H

func directParams() Params {
	return Params{DirectSpeed: 8, ExtraTime: 300, MaxDuration: 2700, MaxVehicleSpeed: 29, StreetTimeFactor: 1.25}
}

func TestDirectCalculator(t *testing.T) {
	// 4000 m due north
	from := &network.Stop{ID: "S1", Coord: orb.Point{23.3, 42.7}}
	to := &network.Stop{ID: "S2", Coord: orb.Point{23.3, 42.7 + 4000/(orb.EarthRadius*math.Pi/180)}}

	c := &DirectCalculator{Speed: 8, ExtraTime: 300, MaxDuration: 2700}
	p, ok := c.Calculate(from, to)
	require.True(t, ok)
	assert.Equal(t, 800, p.Seconds)
	assert.InDelta(t, 4000, p.Meters, 0.01)
	assert.Equal(t, orb.LineString{from.Coord, to.Coord}, p.Geometry)

	c.MaxDuration = 600
	_, ok = c.Calculate(from, to)
	assert.False(t, ok, "ride longer than the max trip duration")

	c.Speed = 0
	_, ok = c.Calculate(from, to)
	assert.False(t, ok)
}

func TestStreetCalculator(t *testing.T) {
	n := testnet.Line(true)
	a, c, e := n.Stop(testnet.Stop(n, "A")), n.Stop(testnet.Stop(n, "C")), n.Stop(testnet.Stop(n, "E"))

	calc := NewStreetCalculator(n.Street, false, directParams())
	p, ok := calc.Calculate(a, c)
	require.True(t, ok)
	assert.InDelta(t, 1963, p.Meters, 10)
	assert.InDelta(t, p.Meters/street.DefaultCarSpeed*1.25, float64(p.Seconds), 2)
	assert.NotEmpty(t, p.Geometry)

	_, ok = calc.Calculate(a, e)
	require.True(t, ok)
	hits, misses := calc.CacheStats()
	assert.Equal(t, uint64(1), hits, "second ride from A reuses the tree")
	assert.Equal(t, uint64(1), misses)

	t.Run("reverse trees are rooted at the destination", func(t *testing.T) {
		rev := NewStreetCalculator(n.Street, true, directParams())
		pa, ok := rev.Calculate(a, e)
		require.True(t, ok)
		pc, ok := rev.Calculate(c, e)
		require.True(t, ok)
		assert.Less(t, pc.Seconds, pa.Seconds)
		hits, misses := rev.CacheStats()
		assert.Equal(t, uint64(1), hits)
		assert.Equal(t, uint64(1), misses)
	})

	t.Run("vehicle speed cap", func(t *testing.T) {
		params := directParams()
		params.MaxVehicleSpeed = 5
		slow := NewStreetCalculator(n.Street, false, params)
		p, ok := slow.Calculate(a, c)
		require.True(t, ok)
		assert.InDelta(t, p.Meters/5*1.25, float64(p.Seconds), 1)
	})

	t.Run("stops without a vertex", func(t *testing.T) {
		bare := testnet.Line(false)
		from, to := bare.Stop(testnet.Stop(bare, "A")), bare.Stop(testnet.Stop(bare, "C"))
		sc := NewStreetCalculator(n.Street, false, directParams())
		_, ok := sc.Calculate(from, to)
		assert.False(t, ok)

		fb := &FallbackCalculator{Primary: sc, Fallback: &DirectCalculator{Speed: 8, ExtraTime: 300}}
		p, ok := fb.Calculate(from, to)
		require.True(t, ok)
		assert.Len(t, p.Geometry, 2, "direct fallback draws a straight line")
	})
}

func TestNewCalculator(t *testing.T) {
	g := testnet.StreetGraph()
	tests := []struct {
		kind    string
		graph   *street.Graph
		want    interface{}
		wantErr bool
	}{
		{kind: "", want: &DirectCalculator{}},
		{kind: KindDirect, want: &DirectCalculator{}},
		{kind: KindStreet, graph: g, want: &StreetCalculator{}},
		{kind: KindStreetWithDirectFallback, graph: g, want: &FallbackCalculator{}},
		{kind: KindStreet, wantErr: true},
		{kind: "helicopter", graph: g, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			c, err := NewCalculator(tt.kind, tt.graph, false, directParams())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, c)
		})
	}
	_, err := NewCalculator(KindStreet, nil, false, directParams())
	assert.ErrorIs(t, err, street.ErrNilGraph)
}

func TestLeg_TimeFunctions(t *testing.T) {
	n := testnet.Line(false)
	trip := &n.FlexTrips[0]
	ride := Path{Seconds: 800}
	walk := access.NearbyStop{Stop: testnet.Stop(n, "A"), Duration: 120, Cost: 240, Distance: 150}

	l := newLeg(trip, serviceDay{date: testnet.Monday}, 0, 1, ride)
	l.Access = &walk
	l.finish(testnet.Stop(n, "E"))

	assert.Equal(t, 920, l.DurationInSeconds())
	assert.Equal(t, 1040, l.Cost())
	assert.Equal(t, 1, l.NumberOfRides())
	assert.True(t, l.StopReachedOnBoard())
	assert.True(t, l.HasOpeningHours())
	assert.Equal(t, 150.0, l.StreetDistance())

	assert.Equal(t, H(7, 0), l.EarliestDepartureTime(H(7, 0)))
	assert.Equal(t, H(6, 0)-120, l.EarliestDepartureTime(H(5, 0)), "waits for the window to open")
	assert.Equal(t, network.Unavailable, l.EarliestDepartureTime(H(21, 50)), "drop-off window closes first")
	assert.Equal(t, H(22, 0), l.LatestArrivalTime(H(23, 0)))
	assert.Equal(t, H(12, 0), l.LatestArrivalTime(H(12, 0)))
	assert.Equal(t, network.Unavailable, l.LatestArrivalTime(H(6, 5)))

	next := newLeg(trip, serviceDay{date: testnet.Monday.AddDays(1), offset: secondsPerDay}, 0, 1, ride)
	next.Access = &walk
	next.finish(testnet.Stop(n, "E"))
	assert.Equal(t, H(6, 0)-120+secondsPerDay, next.EarliestDepartureTime(H(8, 0)))
}

func routerFixture(t *testing.T, date network.ServiceDate, futureDays int) (*network.Network, *Router, *warnings.Aggregator) {
	t.Helper()
	n, err := testnet.LineBuilder(false).GenerateDirectTransfers(1100).Build()
	require.NoError(t, err)
	idx := transfer.NewIndex(n.Transfers, n.Street, street.DefaultProfile(), 1)
	direct := &DirectCalculator{Speed: 8, ExtraTime: 300, MaxDuration: 2700}
	w := warnings.NewAggregator()
	r := NewRouter(n, direct, direct, idx, Options{
		Date:                 date,
		AdditionalFutureDays: futureDays,
		MaxTransferSeconds:   900,
		Threads:              2,
		Warnings:             w,
	})
	return n, r, w
}

func nearby(n *network.Network, ids ...string) []access.NearbyStop {
	var out []access.NearbyStop
	for i, id := range ids {
		out = append(out, access.NearbyStop{Stop: testnet.Stop(n, id), Duration: 60 * i, Cost: 120 * i})
	}
	return out
}

func TestRouter_Accesses(t *testing.T) {
	n, r, w := routerFixture(t, testnet.Monday, 1)

	legs, err := r.Accesses(context.Background(), nearby(n, "A", "B", "B2"))
	require.NoError(t, err)
	require.Len(t, legs, 4, "E and D on Monday and Tuesday")

	for _, l := range legs {
		assert.Equal(t, "F1-0", l.Trip.ID)
		assert.Equal(t, testnet.Stop(n, "A"), l.BoardStop())
		assert.Equal(t, testnet.Stop(n, "E"), l.AlightStop())
		switch n.Stop(l.Stop()).ID {
		case "E":
			assert.True(t, l.StopReachedOnBoard())
			assert.Equal(t, l.Ride.Seconds, l.DurationInSeconds())
		case "D":
			require.NotNil(t, l.Transfer)
			assert.False(t, l.StopReachedOnBoard())
			assert.Equal(t, l.Ride.Seconds+l.Transfer.Duration, l.DurationInSeconds())
			assert.Equal(t, l.Transfer.Duration, l.PostFlexTime())
		default:
			t.Errorf("unexpected access stop %s", n.Stop(l.Stop()).ID)
		}
	}
	assert.Equal(t, testnet.Monday, legs[0].Date)
	assert.Equal(t, testnet.Monday.AddDays(1), legs[len(legs)-1].Date)
	assert.Equal(t, secondsPerDay, legs[len(legs)-1].Offset())
	assert.Zero(t, w.Count(warnings.FlexServiceNotActive))
}

func TestRouter_Egresses(t *testing.T) {
	n, r, _ := routerFixture(t, testnet.Monday, 0)

	legs, err := r.Egresses(context.Background(), nearby(n, "E", "D"))
	require.NoError(t, err)
	require.Len(t, legs, 2)

	onBoard, walked := legs[0], legs[1]
	assert.Equal(t, "A", n.Stop(onBoard.Stop()).ID)
	assert.True(t, onBoard.StopReachedOnBoard())
	assert.Equal(t, "B", n.Stop(walked.Stop()).ID, "B2 is in the same station and farther from A")
	require.NotNil(t, walked.Transfer)
	assert.Equal(t, walked.Transfer.Duration, walked.PreFlexTime())
	assert.Zero(t, walked.PostFlexTime())
}

func TestRouter_ServiceNotActive(t *testing.T) {
	n, r, w := routerFixture(t, testnet.Monday.AddDays(6), 0)

	legs, err := r.Accesses(context.Background(), nearby(n, "A"))
	require.NoError(t, err)
	assert.Empty(t, legs)
	assert.Equal(t, 1, w.Count(warnings.FlexServiceNotActive))
}

func TestRouter_PreviousServiceDay(t *testing.T) {
	n, r, _ := routerFixture(t, testnet.Monday.AddDays(1), 0)

	legs, err := r.Accesses(context.Background(), nearby(n, "A"))
	require.NoError(t, err)
	require.NotEmpty(t, legs)
	yesterday := legs[0]
	assert.Equal(t, testnet.Monday, yesterday.Date)
	assert.Equal(t, -secondsPerDay, yesterday.Offset())
	assert.Equal(t, network.Unavailable, yesterday.EarliestDepartureTime(H(8, 0)))
}

func TestRouter_Canceled(t *testing.T) {
	n, r, _ := routerFixture(t, testnet.Monday, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Accesses(ctx, nearby(n, "A"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouter_Direct(t *testing.T) {
	n, r, _ := routerFixture(t, testnet.Monday, 0)
	from := nearby(n, "A", "B")
	to := []access.NearbyStop{{Stop: testnet.Stop(n, "E"), Duration: 120, Cost: 240}}

	js, err := r.Direct(context.Background(), from, to, H(8, 0), false)
	require.NoError(t, err)
	require.Len(t, js, 1)
	j := js[0]
	assert.Equal(t, H(8, 0), j.Departure)
	assert.Equal(t, H(8, 0)+j.Leg.Ride.Seconds+120, j.Arrival)
	assert.InDelta(t, 791, j.Leg.Ride.Seconds, 2)
	require.NotNil(t, j.Leg.Access)
	require.NotNil(t, j.Leg.Egress)

	js, err = r.Direct(context.Background(), from, to, H(5, 0), false)
	require.NoError(t, err)
	require.Len(t, js, 1)
	assert.Equal(t, H(6, 0), js[0].Departure)

	js, err = r.Direct(context.Background(), from, to, H(23, 0), true)
	require.NoError(t, err)
	require.Len(t, js, 1)
	assert.Equal(t, H(22, 0)+120, js[0].Arrival)
	assert.Equal(t, js[0].Arrival-js[0].Leg.DurationInSeconds(), js[0].Departure)

	js, err = r.Direct(context.Background(), from, nearby(n, "C"), H(8, 0), false)
	require.NoError(t, err)
	assert.Empty(t, js, "the trip never stops at C")
}
