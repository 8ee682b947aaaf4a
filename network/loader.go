package network

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// LoadOptions controls how a GTFS feed becomes a Network.
type LoadOptions struct {
	FeedID string
	// Timezone overrides agency_timezone when set.
	Timezone            string
	MaxTransferDistance float64
	StreetGraph         *street.Graph
	LinkDistance        float64
}

// gtfsFiles are read in this order, whatever their order inside the zip.
var gtfsFiles = []string{
	"agency.txt", "stops.txt", "routes.txt", "trips.txt", "stop_times.txt",
	"calendar.txt", "calendar_dates.txt", "transfers.txt",
}

// LoadGTFS loads a GTFS zip from a local path or an http(s) URL.
func LoadGTFS(path string, opts LoadOptions) (*Network, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return LoadGTFSFromBytes(data, opts)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadGTFSFromBytes(data, opts)
}

// LoadGTFSFromBytes parses an in-memory GTFS zip.
func LoadGTFSFromBytes(data []byte, opts LoadOptions) (*Network, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open gtfs zip: %w", err)
	}
	tables := map[string][][]string{}
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		for _, want := range gtfsFiles {
			if name == want {
				rec, err := readCSV(f)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				tables[name] = rec
			}
		}
	}
	if _, ok := tables["stops.txt"]; !ok {
		return nil, fmt.Errorf("gtfs zip has no stops.txt")
	}

	l := &gtfsLoader{b: NewBuilder(), opts: opts}
	l.b.SetFeedID(opts.FeedID)
	if opts.StreetGraph != nil {
		l.b.SetStreetGraph(opts.StreetGraph, opts.LinkDistance)
	}
	if opts.MaxTransferDistance > 0 {
		l.b.GenerateDirectTransfers(opts.MaxTransferDistance)
	}
	steps := []struct {
		file string
		fn   func(*table) error
	}{
		{"agency.txt", l.agency},
		{"stops.txt", l.stops},
		{"routes.txt", l.routes},
		{"trips.txt", l.trips},
		{"stop_times.txt", l.stopTimes},
		{"calendar.txt", l.calendar},
		{"calendar_dates.txt", l.calendarDates},
		{"transfers.txt", l.transfers},
	}
	for _, s := range steps {
		rec, ok := tables[s.file]
		if !ok || len(rec) == 0 {
			continue
		}
		if err := s.fn(newTable(rec)); err != nil {
			return nil, fmt.Errorf("%s: %w", s.file, err)
		}
	}
	if opts.Timezone != "" {
		l.b.SetTimezone(opts.Timezone)
	}
	l.emitTrips()
	return l.b.Build()
}

func readCSV(f *zip.File) ([][]string, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	rec, err := csvr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rec) > 0 && len(rec[0]) > 0 {
		rec[0][0] = strings.TrimPrefix(rec[0][0], "\ufeff")
	}
	return rec, nil
}

// table gives column access by header name.
type table struct {
	head map[string]int
	rows [][]string
}

func newTable(rec [][]string) *table {
	t := &table{head: map[string]int{}, rows: rec[1:]}
	for i, h := range rec[0] {
		t.head[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return t
}

func (t *table) get(row []string, col string) string {
	i, ok := t.head[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) has(col string) bool {
	_, ok := t.head[col]
	return ok
}

type rawStopTime struct {
	stop                string
	seq                 int
	arrival, departure  int
	windowStart         int
	windowEnd           int
	hasWindow           bool
	noPickup, noDropOff bool
}

type rawTrip struct {
	route, service, headsign string
}

type gtfsLoader struct {
	b            *Builder
	opts         LoadOptions
	tripInfo     map[string]rawTrip
	tripOrder    []string
	rawStopTimes map[string][]rawStopTime
}

func (l *gtfsLoader) agency(t *table) error {
	if len(t.rows) > 0 {
		if tz := t.get(t.rows[0], "agency_timezone"); tz != "" {
			l.b.SetTimezone(tz)
		}
	}
	return nil
}

func (l *gtfsLoader) stops(t *table) error {
	var children []StopInput
	for _, row := range t.rows {
		id := t.get(row, "stop_id")
		lat, err1 := strconv.ParseFloat(t.get(row, "stop_lat"), 64)
		lon, err2 := strconv.ParseFloat(t.get(row, "stop_lon"), 64)
		if id == "" || err1 != nil || err2 != nil {
			continue
		}
		name := t.get(row, "stop_name")
		coord := orb.Point{lon, lat}
		switch t.get(row, "location_type") {
		case "1":
			l.b.AddStation(id, name, coord)
		case "", "0":
			children = append(children, StopInput{
				ID: id, Name: name, Coord: coord,
				ParentID:   t.get(row, "parent_station"),
				Wheelchair: t.get(row, "wheelchair_boarding") == "1",
			})
		}
	}
	// stations must exist before their children reference them
	for _, s := range children {
		l.b.AddStop(s)
	}
	return nil
}

func (l *gtfsLoader) routes(t *table) error {
	for _, row := range t.rows {
		rt, err := strconv.Atoi(t.get(row, "route_type"))
		if err != nil {
			return fmt.Errorf("route %q: bad route_type", t.get(row, "route_id"))
		}
		mode, _ := ModeFromRouteType(rt)
		l.b.AddRoute(Route{
			ID:        t.get(row, "route_id"),
			AgencyID:  t.get(row, "agency_id"),
			ShortName: t.get(row, "route_short_name"),
			LongName:  t.get(row, "route_long_name"),
			Mode:      mode,
		})
	}
	return nil
}

func (l *gtfsLoader) trips(t *table) error {
	l.tripInfo = make(map[string]rawTrip, len(t.rows))
	for _, row := range t.rows {
		id := t.get(row, "trip_id")
		l.tripInfo[id] = rawTrip{
			route:    t.get(row, "route_id"),
			service:  t.get(row, "service_id"),
			headsign: t.get(row, "trip_headsign"),
		}
		l.tripOrder = append(l.tripOrder, id)
	}
	return nil
}

func (l *gtfsLoader) stopTimes(t *table) error {
	l.rawStopTimes = map[string][]rawStopTime{}
	for _, row := range t.rows {
		trip := t.get(row, "trip_id")
		seq, err := strconv.Atoi(t.get(row, "stop_sequence"))
		if err != nil {
			return fmt.Errorf("trip %q: bad stop_sequence", trip)
		}
		st := rawStopTime{
			stop:      t.get(row, "stop_id"),
			seq:       seq,
			arrival:   Unavailable,
			departure: Unavailable,
			noPickup:  t.get(row, "pickup_type") == "1",
			noDropOff: t.get(row, "drop_off_type") == "1",
		}
		if v := t.get(row, "arrival_time"); v != "" {
			if st.arrival, err = ParseGTFSTime(v); err != nil {
				return fmt.Errorf("trip %q: %w", trip, err)
			}
		}
		if v := t.get(row, "departure_time"); v != "" {
			if st.departure, err = ParseGTFSTime(v); err != nil {
				return fmt.Errorf("trip %q: %w", trip, err)
			}
		}
		ws, we := t.get(row, "start_pickup_drop_off_window"), t.get(row, "end_pickup_drop_off_window")
		if ws != "" && we != "" {
			if st.windowStart, err = ParseGTFSTime(ws); err != nil {
				return fmt.Errorf("trip %q: %w", trip, err)
			}
			if st.windowEnd, err = ParseGTFSTime(we); err != nil {
				return fmt.Errorf("trip %q: %w", trip, err)
			}
			st.hasWindow = true
		}
		l.rawStopTimes[trip] = append(l.rawStopTimes[trip], st)
	}
	return nil
}

// emitTrips turns the collected stop times into scheduled or flex trips.
func (l *gtfsLoader) emitTrips() {
	for _, id := range l.tripOrder {
		info := l.tripInfo[id]
		sts := l.rawStopTimes[id]
		if len(sts) < 2 {
			continue
		}
		sort.Slice(sts, func(i, j int) bool { return sts[i].seq < sts[j].seq })

		flex := false
		for _, st := range sts {
			if st.hasWindow {
				flex = true
				break
			}
		}
		if flex {
			ft := FlexTripInput{ID: id, RouteID: info.route, ServiceID: info.service}
			for _, st := range sts {
				ws, we := st.windowStart, st.windowEnd
				if !st.hasWindow {
					ws, we = st.arrival, st.departure
				}
				ft.Stops = append(ft.Stops, FlexStopInput{
					StopID: st.stop, WindowStart: ws, WindowEnd: we,
					CanBoard: !st.noPickup, CanAlight: !st.noDropOff,
				})
			}
			l.b.AddFlexTrip(ft)
			continue
		}

		in := TripInput{ID: id, RouteID: info.route, ServiceID: info.service, Headsign: info.headsign}
		interpolate(sts)
		for _, st := range sts {
			in.Stops = append(in.Stops, st.stop)
			in.Arrivals = append(in.Arrivals, st.arrival)
			in.Departures = append(in.Departures, st.departure)
			in.CanBoard = append(in.CanBoard, !st.noPickup)
			in.CanAlight = append(in.CanAlight, !st.noDropOff)
		}
		l.b.AddTrip(in)
	}
}

// interpolate fills missing times linearly between timed stops and copies a lone
// arrival or departure to the other field.
func interpolate(sts []rawStopTime) {
	for i := range sts {
		if sts[i].arrival == Unavailable {
			sts[i].arrival = sts[i].departure
		}
		if sts[i].departure == Unavailable {
			sts[i].departure = sts[i].arrival
		}
	}
	prev := -1
	for i := range sts {
		if sts[i].arrival == Unavailable {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			span := sts[i].arrival - sts[prev].departure
			for k := prev + 1; k < i; k++ {
				t := sts[prev].departure + span*(k-prev)/(i-prev)
				sts[k].arrival, sts[k].departure = t, t
			}
		}
		prev = i
	}
}

var weekdayColumns = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func (l *gtfsLoader) calendar(t *table) error {
	for _, row := range t.rows {
		id := t.get(row, "service_id")
		start, err := ParseServiceDate(t.get(row, "start_date"))
		if err != nil {
			return err
		}
		end, err := ParseServiceDate(t.get(row, "end_date"))
		if err != nil {
			return err
		}
		var days [7]bool
		for wd, col := range weekdayColumns {
			days[wd] = t.get(row, col) == "1"
		}
		for d := start; d <= end; d = d.AddDays(1) {
			if days[d.Weekday()] {
				l.b.AddServiceDates(id, d)
			}
		}
	}
	return nil
}

func (l *gtfsLoader) calendarDates(t *table) error {
	for _, row := range t.rows {
		id := t.get(row, "service_id")
		d, err := ParseServiceDate(t.get(row, "date"))
		if err != nil {
			return err
		}
		switch t.get(row, "exception_type") {
		case "1":
			l.b.AddServiceDates(id, d)
		case "2":
			l.b.RemoveServiceDate(id, d)
		}
	}
	return nil
}

func (l *gtfsLoader) transfers(t *table) error {
	if !t.has("from_stop_id") || !t.has("to_stop_id") {
		return nil
	}
	for _, row := range t.rows {
		in := TransferInput{FromStopID: t.get(row, "from_stop_id"), ToStopID: t.get(row, "to_stop_id")}
		switch t.get(row, "transfer_type") {
		case "2":
			in.MinTime, _ = strconv.Atoi(t.get(row, "min_transfer_time"))
		case "3":
			in.MinTime = -1
		}
		l.b.AddTransfer(in)
	}
	return nil
}

// ParseGTFSTime parses H:MM:SS into seconds after midnight. Hours may exceed 23.
func ParseGTFSTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid gtfs time %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid gtfs time %q", s)
		}
		v[i] = n
	}
	return v[0]*3600 + v[1]*60 + v[2], nil
}

// FormatGTFSTime renders seconds after midnight as HH:MM:SS.
func FormatGTFSTime(secs int) string {
	d := time.Duration(secs) * time.Second
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, secs%60)
}
