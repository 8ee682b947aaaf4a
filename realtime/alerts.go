package realtime

import (
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// Alert is a simplified GTFS-RT service alert.
type Alert struct {
	ID          string   `json:"id"`
	Header      string   `json:"header"`
	Description string   `json:"description,omitempty"`
	Cause       string   `json:"cause,omitempty"`
	Effect      string   `json:"effect,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Start       int64    `json:"start,omitempty"`
	End         int64    `json:"end,omitempty"`
	RouteIDs    []string `json:"-"`
	StopIDs     []string `json:"-"`
	TripIDs     []string `json:"-"`
}

// ActiveAt reports whether t falls inside the alert's active period. A zero t or an
// open period matches.
func (a *Alert) ActiveAt(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	if a.Start > 0 && t.Unix() < a.Start {
		return false
	}
	return a.End == 0 || t.Unix() <= a.End
}

// AlertIndex looks alerts up by informed entity. A nil index has no alerts.
type AlertIndex struct {
	alerts  []Alert
	byRoute map[string][]int // route_id -> indices in alerts
	byStop  map[string][]int // stop_id -> indices
	byTrip  map[string][]int // trip_id -> indices
}

// ParseAlerts indexes the alerts of fm.
func ParseAlerts(fm *gtfsrtpb.FeedMessage) *AlertIndex {
	x := &AlertIndex{
		byRoute: map[string][]int{},
		byStop:  map[string][]int{},
		byTrip:  map[string][]int{},
	}
	for _, e := range fm.GetEntity() {
		a := e.GetAlert()
		if a == nil {
			continue
		}
		ra := Alert{
			ID:          e.GetId(),
			Header:      translatedText(a.GetHeaderText()),
			Description: translatedText(a.GetDescriptionText()),
		}
		if a.Cause != nil {
			ra.Cause = a.GetCause().String()
		}
		if a.Effect != nil {
			ra.Effect = a.GetEffect().String()
		}
		if a.SeverityLevel != nil {
			ra.Severity = a.GetSeverityLevel().String()
		}
		// first active period only
		if len(a.GetActivePeriod()) > 0 {
			ap := a.GetActivePeriod()[0]
			ra.Start = int64(ap.GetStart())
			ra.End = int64(ap.GetEnd())
		}
		for _, ie := range a.GetInformedEntity() {
			if ie.RouteId != nil {
				ra.RouteIDs = append(ra.RouteIDs, ie.GetRouteId())
			}
			if tid := ie.GetTrip().GetTripId(); tid != "" {
				ra.TripIDs = append(ra.TripIDs, tid)
			}
			if ie.StopId != nil {
				ra.StopIDs = append(ra.StopIDs, ie.GetStopId())
			}
		}

		idx := len(x.alerts)
		x.alerts = append(x.alerts, ra)
		for _, rid := range ra.RouteIDs {
			x.byRoute[rid] = append(x.byRoute[rid], idx)
		}
		for _, sid := range ra.StopIDs {
			x.byStop[sid] = append(x.byStop[sid], idx)
		}
		for _, tid := range ra.TripIDs {
			x.byTrip[tid] = append(x.byTrip[tid], idx)
		}
	}
	return x
}

// Len returns the number of indexed alerts.
func (x *AlertIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.alerts)
}

// Match returns the alerts active at t that inform the route, the trip or any of the
// stops. Each alert appears once, in feed order.
func (x *AlertIndex) Match(t time.Time, routeID, tripID string, stopIDs ...string) []Alert {
	if x == nil {
		return nil
	}
	hit := make(map[int]bool)
	mark := func(ids []int) {
		for _, i := range ids {
			hit[i] = true
		}
	}
	if routeID != "" {
		mark(x.byRoute[routeID])
	}
	if tripID != "" {
		mark(x.byTrip[tripID])
	}
	for _, s := range stopIDs {
		mark(x.byStop[s])
	}
	var out []Alert
	for i := range x.alerts {
		if hit[i] && x.alerts[i].ActiveAt(t) {
			out = append(out, x.alerts[i])
		}
	}
	return out
}

// translatedText prefers the translation without a language tag and falls back to
// the first one.
func translatedText(ts *gtfsrtpb.TranslatedString) string {
	var first string
	for _, tr := range ts.GetTranslation() {
		if tr.GetLanguage() == "" {
			return tr.GetText()
		}
		if first == "" {
			first = tr.GetText()
		}
	}
	return first
}
