package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/journey-planner/internal/testnet"
	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
)

var H = testnet.H

func feed(entities ...*gtfsrtpb.FeedEntity) *gtfsrtpb.FeedMessage {
	return &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1736150400),
		},
		Entity: entities,
	}
}

func update(tripID string, stus ...*gtfsrtpb.TripUpdate_StopTimeUpdate) *gtfsrtpb.FeedEntity {
	return &gtfsrtpb.FeedEntity{
		Id: proto.String("tu-" + tripID),
		TripUpdate: &gtfsrtpb.TripUpdate{
			Trip:           &gtfsrtpb.TripDescriptor{TripId: proto.String(tripID)},
			StopTimeUpdate: stus,
		},
	}
}

func delayAt(stopID string, seconds int32) *gtfsrtpb.TripUpdate_StopTimeUpdate {
	return &gtfsrtpb.TripUpdate_StopTimeUpdate{
		StopId:  proto.String(stopID),
		Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: proto.Int32(seconds)},
	}
}

func encode(t *testing.T, fm *gtfsrtpb.FeedMessage) []byte {
	t.Helper()
	b, err := proto.Marshal(fm)
	require.NoError(t, err)
	return b
}

func times(t *testing.T, n *network.Network, tripID string) ([]int, bool) {
	t.Helper()
	ref, err := n.FindTrip(tripID)
	require.NoError(t, err)
	trip := n.Trip(ref)
	return trip.Arrivals, trip.Realtime
}

func TestApplyTripUpdates(t *testing.T) {
	n := testnet.Line(false)
	midnight := testnet.Monday.Midnight(n.Location()).Unix()

	canceled := update("R1-1")
	canceled.TripUpdate.Trip.ScheduleRelationship = gtfsrtpb.TripDescriptor_CANCELED.Enum()
	absolute := update("R2-0", &gtfsrtpb.TripUpdate_StopTimeUpdate{
		StopId:  proto.String("D"),
		Arrival: &gtfsrtpb.TripUpdate_StopTimeEvent{Time: proto.Int64(midnight + int64(H(8, 21)))},
	})
	fm, err := Decode(encode(t, feed(
		update("R1-0", delayAt("B", 120)),
		canceled,
		absolute,
		update("R1-2", delayAt("E", 60)),
		update("nope", delayAt("A", 60)),
	)))
	require.NoError(t, err)

	w := warnings.NewAggregator()
	patched, stats := ApplyTripUpdates(n, fm, testnet.Monday, w)
	assert.Equal(t, Stats{Updated: 2, Canceled: 1, Skipped: 2}, stats)
	assert.Equal(t, 1, w.Count(warnings.RealtimeTripNotFound))
	assert.Equal(t, 1, w.Count(warnings.RealtimeStopMismatch))

	arr, rt := times(t, patched, "R1-0")
	assert.True(t, rt)
	assert.Equal(t, []int{H(8, 0), H(8, 7), H(8, 12)}, arr, "delay carries on downstream only")

	arr, _ = times(t, patched, "R2-0")
	assert.Equal(t, []int{H(8, 15), H(8, 21), H(8, 26)}, arr)

	_, err = patched.FindTrip("R1-1")
	assert.ErrorIs(t, err, network.ErrTripNotFound)

	arr, rt = times(t, n, "R1-0")
	assert.False(t, rt, "the base snapshot is untouched")
	assert.Equal(t, []int{H(8, 0), H(8, 5), H(8, 10)}, arr)
	_, err = n.FindTrip("R1-1")
	assert.NoError(t, err)
}

func TestApplyTripUpdates_KeepsStopTimesOrdered(t *testing.T) {
	n := testnet.Line(false)
	fm := feed(update("R1-0", delayAt("B", 300), delayAt("C", -600)))

	patched, stats := ApplyTripUpdates(n, fm, testnet.Monday, nil)
	assert.Equal(t, 1, stats.Updated)
	arr, _ := times(t, patched, "R1-0")
	assert.Equal(t, []int{H(8, 0), H(8, 10), H(8, 10)}, arr, "arrival never precedes the previous departure")
}

func TestApplyTripUpdates_Empty(t *testing.T) {
	n := testnet.Line(false)
	patched, stats := ApplyTripUpdates(n, feed(), testnet.Monday, nil)
	assert.Same(t, n, patched)
	assert.Zero(t, stats)
}

func TestParseAlerts(t *testing.T) {
	start := time.Date(2025, 1, 6, 6, 0, 0, 0, time.UTC)
	fm := feed(
		&gtfsrtpb.FeedEntity{
			Id: proto.String("a1"),
			Alert: &gtfsrtpb.Alert{
				ActivePeriod: []*gtfsrtpb.TimeRange{{Start: proto.Uint64(uint64(start.Unix())), End: proto.Uint64(uint64(start.Add(4 * time.Hour).Unix()))}},
				InformedEntity: []*gtfsrtpb.EntitySelector{
					{RouteId: proto.String("R1")},
					{StopId: proto.String("B")},
				},
				Effect: gtfsrtpb.Alert_DETOUR.Enum(),
				HeaderText: &gtfsrtpb.TranslatedString{Translation: []*gtfsrtpb.TranslatedString_Translation{
					{Text: proto.String("Отклонение"), Language: proto.String("bg")},
					{Text: proto.String("Detour")},
				}},
			},
		},
		&gtfsrtpb.FeedEntity{
			Id: proto.String("a2"),
			Alert: &gtfsrtpb.Alert{
				InformedEntity: []*gtfsrtpb.EntitySelector{{Trip: &gtfsrtpb.TripDescriptor{TripId: proto.String("R2-0")}}},
				HeaderText: &gtfsrtpb.TranslatedString{Translation: []*gtfsrtpb.TranslatedString_Translation{
					{Text: proto.String("Crowded"), Language: proto.String("en")},
				}},
			},
		},
	)

	x := ParseAlerts(fm)
	require.Equal(t, 2, x.Len())

	at := start.Add(time.Hour)
	got := x.Match(at, "R1", "", "A", "B")
	require.Len(t, got, 1, "matched by route and stop, reported once")
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "Detour", got[0].Header)
	assert.Equal(t, "DETOUR", got[0].Effect)

	assert.Empty(t, x.Match(start.Add(5*time.Hour), "R1", ""), "outside the active period")
	assert.Len(t, x.Match(at, "R2", "R2-0", "C", "B"), 2)
	assert.Equal(t, "Crowded", x.Match(time.Time{}, "", "R2-0")[0].Header)

	var none *AlertIndex
	assert.Nil(t, none.Match(at, "R1", ""))
	assert.Zero(t, none.Len())
}

func TestLoad(t *testing.T) {
	n := testnet.Line(false)
	tu := encode(t, feed(update("R1-0", delayAt("A", 60))))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(tu)
	}))
	defer srv.Close()

	alertsPath := filepath.Join(t.TempDir(), "alerts.pb")
	require.NoError(t, os.WriteFile(alertsPath, encode(t, feed(&gtfsrtpb.FeedEntity{
		Id:    proto.String("a1"),
		Alert: &gtfsrtpb.Alert{InformedEntity: []*gtfsrtpb.EntitySelector{{RouteId: proto.String("R3")}}},
	})), 0o644))

	snap, err := Load(context.Background(), NewClient(time.Second), n, srv.URL, alertsPath, testnet.Monday, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.Updated)
	assert.Equal(t, 1, snap.Alerts.Len())
	arr, _ := times(t, snap.Network, "R1-0")
	assert.Equal(t, H(8, 1), arr[0])

	t.Run("bad status", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer bad.Close()
		_, err := Load(context.Background(), NewClient(time.Second), n, bad.URL, "", testnet.Monday, nil)
		assert.ErrorContains(t, err, "HTTP 502")
	})

	t.Run("no sources", func(t *testing.T) {
		snap, err := Load(context.Background(), NewClient(time.Second), n, "", "", testnet.Monday, nil)
		require.NoError(t, err)
		assert.Same(t, n, snap.Network)
		assert.Nil(t, snap.Alerts)
	})
}
