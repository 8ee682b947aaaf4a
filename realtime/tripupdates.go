package realtime

import (
	"fmt"
	"log"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
)

// Decode parses a GTFS-RT feed message.
func Decode(b []byte) (*gtfsrtpb.FeedMessage, error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &fm, nil
}

// Stats counts what a trip updates feed changed.
type Stats struct {
	Updated  int
	Canceled int
	Skipped  int
}

// ApplyTripUpdates returns a copy of n with the trip updates of fm applied. Times
// given as epoch seconds are read relative to the trip start date, or to date when
// the update carries none. Delays propagate downstream until the next update.
func ApplyTripUpdates(n *network.Network, fm *gtfsrtpb.FeedMessage, date network.ServiceDate, w *warnings.Aggregator) (*network.Network, Stats) {
	var stats Stats
	var patches []network.TripPatch
	for _, e := range fm.GetEntity() {
		tu := e.GetTripUpdate()
		if tu == nil || tu.GetTrip().GetTripId() == "" {
			continue
		}
		p, ok := tripPatch(n, tu, date, w)
		if !ok {
			stats.Skipped++
			continue
		}
		if p.Canceled {
			stats.Canceled++
		} else {
			stats.Updated++
		}
		patches = append(patches, p)
	}
	if len(patches) == 0 {
		return n, stats
	}

	patched, errs := n.Patch(patches)
	for _, err := range errs {
		log.Printf("realtime: %v", err)
	}
	log.Printf("realtime: %d trips updated, %d canceled, %d skipped", stats.Updated, stats.Canceled, stats.Skipped)
	return patched, stats
}

func tripPatch(n *network.Network, tu *gtfsrtpb.TripUpdate, date network.ServiceDate, w *warnings.Aggregator) (network.TripPatch, bool) {
	tripID := tu.GetTrip().GetTripId()
	ref, err := n.FindTrip(tripID)
	if err != nil {
		w.Add(warnings.RealtimeTripNotFound, tripID)
		return network.TripPatch{}, false
	}
	if tu.GetTrip().GetScheduleRelationship() == gtfsrtpb.TripDescriptor_CANCELED {
		return network.TripPatch{TripID: tripID, Canceled: true}, true
	}

	if sd := tu.GetTrip().GetStartDate(); sd != "" {
		if d, err := network.ParseServiceDate(sd); err == nil {
			date = d
		}
	}
	midnight := date.Midnight(n.Location()).Unix()

	trip := n.Trip(ref)
	stops := n.Pattern(ref.Pattern).Stops
	arr := append([]int(nil), trip.Arrivals...)
	dep := append([]int(nil), trip.Departures...)

	delay, pos, matched := 0, 0, false
	shiftTo := func(end int) {
		for ; pos < end; pos++ {
			if matched {
				arr[pos] += delay
				dep[pos] += delay
			}
		}
	}
	for _, stu := range tu.GetStopTimeUpdate() {
		k := indexOfStop(n, stops, pos, stu.GetStopId())
		if k < 0 {
			w.Add(warnings.RealtimeStopMismatch, fmt.Sprintf("%s at %s", tripID, stu.GetStopId()))
			continue
		}
		shiftTo(k)
		if ev := stu.GetArrival(); ev != nil {
			delay = eventDelay(ev, midnight, trip.Arrivals[k])
		}
		arr[k] = trip.Arrivals[k] + delay
		if ev := stu.GetDeparture(); ev != nil {
			delay = eventDelay(ev, midnight, trip.Departures[k])
		}
		dep[k] = trip.Departures[k] + delay
		matched = true
		pos = k + 1
	}
	if !matched {
		return network.TripPatch{}, false
	}
	shiftTo(len(stops))

	for i := range arr {
		if i > 0 && arr[i] < dep[i-1] {
			arr[i] = dep[i-1]
		}
		if dep[i] < arr[i] {
			dep[i] = arr[i]
		}
	}
	return network.TripPatch{TripID: tripID, Arrivals: arr, Departures: dep}, true
}

func indexOfStop(n *network.Network, stops []int32, from int, stopID string) int {
	for k := from; k < len(stops); k++ {
		if n.Stop(stops[k]).ID == stopID {
			return k
		}
	}
	return -1
}

// eventDelay prefers an absolute time over a delay, as GTFS-RT consumers do.
func eventDelay(ev *gtfsrtpb.TripUpdate_StopTimeEvent, midnight int64, scheduled int) int {
	if ev.Time != nil {
		return int(ev.GetTime()-midnight) - scheduled
	}
	return int(ev.GetDelay())
}
