package network

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLineBuilder() *Builder {
	b := NewBuilder().SetTimezone("Europe/Sofia")
	b.AddStation("P", "Central", orb.Point{23.3200, 42.6970})
	b.AddStop(StopInput{ID: "A", Coord: orb.Point{23.3000, 42.7000}})
	b.AddStop(StopInput{ID: "B1", Coord: orb.Point{23.3200, 42.6970}, ParentID: "P"})
	b.AddStop(StopInput{ID: "B2", Coord: orb.Point{23.3202, 42.6971}, ParentID: "P"})
	b.AddStop(StopInput{ID: "C", Coord: orb.Point{23.3500, 42.6900}})
	b.AddRoute(Route{ID: "R1", ShortName: "1", Mode: ModeBus})
	b.AddRoute(Route{ID: "R2", ShortName: "2", Mode: ModeTram})
	b.AddServiceDates("WK", 20250106, 20250107)
	return b
}

func TestBuilder_PatternsSplitOvertakingTrips(t *testing.T) {
	b := twoLineBuilder()
	b.AddTrip(TripInput{ID: "t2", RouteID: "R1", ServiceID: "WK", Stops: []string{"A", "B1"},
		Arrivals: []int{3600, 4200}, Departures: []int{3600, 4200}})
	b.AddTrip(TripInput{ID: "t1", RouteID: "R1", ServiceID: "WK", Stops: []string{"A", "B1"},
		Arrivals: []int{3000, 3600}, Departures: []int{3000, 3600}})
	// leaves after t2 but arrives before it
	b.AddTrip(TripInput{ID: "express", RouteID: "R1", ServiceID: "WK", Stops: []string{"A", "B1"},
		Arrivals: []int{3700, 3900}, Departures: []int{3700, 3900}})
	b.AddTrip(TripInput{ID: "t3", RouteID: "R2", ServiceID: "WK", Stops: []string{"B2", "C"},
		Arrivals: []int{4500, 5000}, Departures: []int{4500, 5000}})

	net, err := b.Build()
	require.NoError(t, err)
	require.Len(t, net.Patterns, 3)

	first := net.Pattern(0)
	require.Len(t, first.Trips, 2)
	assert.Equal(t, "t1", first.Trips[0].ID)
	assert.Equal(t, "t2", first.Trips[1].ID)
	assert.Equal(t, "express", net.Pattern(1).Trips[0].ID)
	assert.Equal(t, "R1:2", net.Pattern(1).ID)

	for _, p := range net.Patterns {
		for pos := range p.Stops {
			for i := 1; i < len(p.Trips); i++ {
				assert.LessOrEqual(t, p.Trips[i-1].Departure(pos), p.Trips[i].Departure(pos))
			}
		}
	}

	a, err := net.StopIndex("A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int32{0, 1}, net.PatternsAtStop(a))

	ref, err := net.FindTrip("t3")
	require.NoError(t, err)
	assert.Equal(t, "t3", net.Trip(ref).ID)
	_, err = net.FindTrip("nope")
	assert.ErrorIs(t, err, ErrTripNotFound)
	assert.Equal(t, "Europe/Sofia", net.Location().String())
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		trip TripInput
	}{
		{"unknown stop", TripInput{ID: "x", RouteID: "R1", Stops: []string{"A", "Z"}, Arrivals: []int{0, 1}, Departures: []int{0, 1}}},
		{"unknown route", TripInput{ID: "x", RouteID: "R9", Stops: []string{"A", "C"}, Arrivals: []int{0, 1}, Departures: []int{0, 1}}},
		{"decreasing times", TripInput{ID: "x", RouteID: "R1", Stops: []string{"A", "C"}, Arrivals: []int{100, 50}, Departures: []int{100, 50}}},
		{"single stop", TripInput{ID: "x", RouteID: "R1", Stops: []string{"A"}, Arrivals: []int{0}, Departures: []int{0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := twoLineBuilder().AddTrip(tt.trip).Build()
			assert.Error(t, err)
		})
	}

	_, err := NewBuilder().AddStop(StopInput{ID: "A", ParentID: "missing"}).Build()
	assert.Error(t, err)
}

func TestStationsAndTransfers(t *testing.T) {
	b := twoLineBuilder().GenerateDirectTransfers(100)
	b.AddTransfer(TransferInput{FromStopID: "A", ToStopID: "C", MinTime: 600})
	b.AddTransfer(TransferInput{FromStopID: "B2", ToStopID: "B1", MinTime: -1})
	net, err := b.Build()
	require.NoError(t, err)

	b1, _ := net.StopIndex("B1")
	b2, _ := net.StopIndex("B2")
	a, _ := net.StopIndex("A")
	c, _ := net.StopIndex("C")

	assert.Equal(t, []int32{b1, b2}, net.StopsInGroup(b1))
	assert.Equal(t, []int32{a}, net.StopsInGroup(a))
	assert.Equal(t, net.GroupKey(b1), net.GroupKey(b2))

	fromB1 := net.Transfers.From(b1)
	require.Len(t, fromB1, 1)
	assert.Equal(t, b2, fromB1[0].To)
	assert.Empty(t, net.Transfers.From(b2), "explicitly forbidden")

	fromA := net.Transfers.From(a)
	require.Len(t, fromA, 1)
	assert.Equal(t, c, fromA[0].To)
	assert.Equal(t, 600, fromA[0].MinTime)
	assert.Greater(t, fromA[0].Distance, 1000.0)
}

func TestCalendar(t *testing.T) {
	c := NewCalendar()
	c.Add("S", 20250110, 20250108, 20250108)
	c.normalize()

	assert.True(t, c.Running("S", 20250108))
	assert.False(t, c.Running("S", 20250109))
	assert.False(t, c.Running("other", 20250108))
	first, last, ok := c.Period()
	require.True(t, ok)
	assert.Equal(t, ServiceDate(20250108), first)
	assert.Equal(t, ServiceDate(20250110), last)

	assert.Equal(t, ServiceDate(20250301), ServiceDate(20250228).AddDays(1))
	d, err := ParseServiceDate("20241231")
	require.NoError(t, err)
	assert.Equal(t, ServiceDate(20250101), d.AddDays(1))
	_, err = ParseServiceDate("2024-12-31")
	assert.Error(t, err)
}

func TestFlexTripWindows(t *testing.T) {
	ft := FlexTrip{StopTimes: []FlexStopTime{
		{Stop: 0, WindowStart: 8 * 3600, WindowEnd: 18 * 3600, CanBoard: true},
		{Stop: 1, WindowStart: 8 * 3600, WindowEnd: 18 * 3600, CanAlight: true},
	}}

	assert.Equal(t, 8*3600, ft.EarliestDepartureTime(7*3600, 0, 1, 600))
	assert.Equal(t, 9*3600, ft.EarliestDepartureTime(9*3600, 0, 1, 600))
	assert.Equal(t, Unavailable, ft.EarliestDepartureTime(18*3600-300, 0, 1, 600), "cannot arrive before the window closes")

	assert.Equal(t, 18*3600, ft.LatestArrivalTime(20*3600, 0, 1, 600))
	assert.Equal(t, Unavailable, ft.LatestArrivalTime(8*3600+300, 0, 1, 600))

	assert.Equal(t, []int{0}, ft.BoardPositions(0))
	assert.Empty(t, ft.BoardPositions(1))
	assert.Equal(t, []int{1}, ft.AlightPositions(1))
}

func TestPatch(t *testing.T) {
	b := twoLineBuilder()
	b.AddTrip(TripInput{ID: "t1", RouteID: "R1", ServiceID: "WK", Stops: []string{"A", "B1"},
		Arrivals: []int{3000, 3600}, Departures: []int{3000, 3600}})
	b.AddTrip(TripInput{ID: "t2", RouteID: "R1", ServiceID: "WK", Stops: []string{"A", "B1"},
		Arrivals: []int{3300, 3900}, Departures: []int{3300, 3900}})
	b.AddTrip(TripInput{ID: "t3", RouteID: "R2", ServiceID: "WK", Stops: []string{"B2", "C"},
		Arrivals: []int{4500, 5000}, Departures: []int{4500, 5000}})
	net, err := b.Build()
	require.NoError(t, err)

	patched, errs := net.Patch([]TripPatch{
		// t1 delayed so much that it now arrives after t2: it overtakes
		{TripID: "t1", Arrivals: []int{3000, 4000}, Departures: []int{3000, 4000}},
		{TripID: "t3", Canceled: true},
		{TripID: "ghost", Canceled: true},
	})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrTripNotFound)

	require.Len(t, patched.Patterns, 3)
	assert.Empty(t, patched.Pattern(1).Trips)
	_, err = patched.FindTrip("t3")
	assert.Error(t, err)

	ref1, err := patched.FindTrip("t1")
	require.NoError(t, err)
	assert.True(t, patched.Trip(ref1).Realtime)
	assert.Equal(t, 4000, patched.Trip(ref1).Arrival(1))
	ref2, err := patched.FindTrip("t2")
	require.NoError(t, err)
	assert.NotEqual(t, ref1.Pattern, ref2.Pattern, "overtaken trips end up in separate patterns")

	// the parent snapshot is untouched
	orig, _ := net.FindTrip("t1")
	assert.Equal(t, 3600, net.Trip(orig).Arrival(1))
	assert.Len(t, net.Pattern(1).Trips, 1)
}

func writeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

var sampleFeed = map[string]string{
	"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\nAG,Agency,http://a,Europe/Sofia\n",
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station\n" +
		"P,Central,42.697,23.320,1,\n" +
		"A,Alpha,42.700,23.300,0,\n" +
		"B,Beta,42.697,23.320,0,P\n" +
		"C,Gamma,42.690,23.350,,\n",
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"R1,AG,1,One,3\nF1,AG,F,Flex,715\n",
	"trips.txt": "route_id,service_id,trip_id,trip_headsign\n" +
		"R1,WK,t1,Gamma\nF1,WK,f1,\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type,drop_off_type,start_pickup_drop_off_window,end_pickup_drop_off_window\n" +
		"t1,08:00:00,08:00:00,A,1,0,1,,\n" +
		"t1,,,B,2,,,,\n" +
		"t1,25:10:00,25:10:00,C,3,1,0,,\n" +
		"f1,,,A,1,2,1,07:00:00,19:00:00\n" +
		"f1,,,C,2,1,2,07:00:00,19:00:00\n",
	"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
		"WK,1,1,1,1,1,0,0,20250106,20250112\n",
	"calendar_dates.txt": "service_id,date,exception_type\nWK,20250107,2\nWK,20250111,1\n",
	"transfers.txt":      "from_stop_id,to_stop_id,transfer_type,min_transfer_time\nA,C,2,300\n",
}

func TestLoadGTFSFromBytes(t *testing.T) {
	net, err := LoadGTFSFromBytes(writeZip(t, sampleFeed), LoadOptions{FeedID: "test"})
	require.NoError(t, err)

	assert.Equal(t, "Europe/Sofia", net.Timezone)
	assert.Equal(t, 3, net.StopCount())
	require.Len(t, net.Stations, 1)
	b, _ := net.StopIndex("B")
	assert.True(t, net.Stop(b).HasStation())

	require.Len(t, net.Patterns, 1)
	p := net.Pattern(0)
	assert.Equal(t, []bool{true, true, false}, p.CanBoard)
	assert.Equal(t, []bool{false, true, true}, p.CanAlight)
	trip := p.Trips[0]
	assert.Equal(t, 8*3600, trip.Departure(0))
	assert.Equal(t, 25*3600+600, trip.Arrival(2))
	assert.Equal(t, 8*3600+(17*3600+600)/2, trip.Arrival(1), "interpolated")

	require.Len(t, net.FlexTrips, 1)
	ft := net.FlexTrips[0]
	assert.Equal(t, 7*3600, ft.StopTimes[0].WindowStart)
	assert.True(t, ft.StopTimes[0].CanBoard)
	assert.False(t, ft.StopTimes[0].CanAlight)
	assert.True(t, ft.StopTimes[1].CanAlight)
	assert.Equal(t, ModeBus, net.Route(ft.Route).Mode)

	assert.True(t, net.ServiceRunning("WK", 20250106))
	assert.False(t, net.ServiceRunning("WK", 20250107))
	assert.True(t, net.ServiceRunning("WK", 20250111))
	assert.False(t, net.ServiceRunning("WK", 20250112))

	a, _ := net.StopIndex("A")
	require.Len(t, net.Transfers.From(a), 1)
	assert.Equal(t, 300, net.Transfers.From(a)[0].MinTime)
}

func TestLoadGTFS_MissingStops(t *testing.T) {
	_, err := LoadGTFSFromBytes(writeZip(t, map[string]string{"agency.txt": "agency_id\nA\n"}), LoadOptions{})
	assert.Error(t, err)
	_, err = LoadGTFS(filepath.Join(t.TempDir(), "none.zip"), LoadOptions{})
	assert.Error(t, err)
}

func TestSnapshotCache(t *testing.T) {
	net, err := LoadGTFSFromBytes(writeZip(t, sampleFeed), LoadOptions{MaxTransferDistance: 50})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "network.gob")
	require.NoError(t, SerializeToFile(net, path))
	restored, err := DeserializeFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, net.StopCount(), restored.StopCount())
	c, err := restored.StopIndex("C")
	require.NoError(t, err)
	assert.Len(t, restored.PatternsAtStop(c), 1)
	_, err = restored.FindTrip("t1")
	assert.NoError(t, err)
	assert.True(t, restored.ServiceRunning("WK", 20250106))
	assert.Equal(t, net.Location().String(), restored.Location().String())

	_, err = Deserialize([]byte("not gob"))
	assert.Error(t, err)
}

func TestParseGTFSTime(t *testing.T) {
	v, err := ParseGTFSTime("25:10:05")
	require.NoError(t, err)
	assert.Equal(t, 25*3600+605, v)
	assert.Equal(t, "25:10:05", FormatGTFSTime(v))
	_, err = ParseGTFSTime("8:00")
	assert.Error(t, err)
}

func TestModeFromRouteType(t *testing.T) {
	tests := []struct {
		routeType int
		want      TransitMode
	}{
		{3, ModeBus}, {0, ModeTram}, {109, ModeRail}, {1501, ModeTaxi1},
		{1502, ModeTaxi2}, {1551, ModeCarpool}, {1560, ModeCarpool}, {715, ModeBus},
	}
	for _, tt := range tests {
		got, ok := ModeFromRouteType(tt.routeType)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "route type %d", tt.routeType)
	}
	_, ok := ModeFromRouteType(9999)
	assert.False(t, ok)
}
