package itinerary

import (
	"slices"
	"time"

	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/journey-planner/realtime"
)

// Leg modes that are not transit modes.
const (
	ModeWalk = "WALK"
	ModeFlex = "FLEX"
)

// Place is a leg end point. StopID is empty for the origin and the destination.
type Place struct {
	Name   string  `json:"name"`
	StopID string  `json:"stopId,omitempty"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// PlaceAt returns an unnamed place at p.
func PlaceAt(name string, p orb.Point) Place {
	return Place{Name: name, Lat: p.Lat(), Lon: p.Lon()}
}

// Leg is one part of an itinerary. Mode is a street mode name for street legs,
// FLEX for on-demand rides and the transit mode name for scheduled rides.
type Leg struct {
	Mode      string    `json:"mode"`
	From      Place     `json:"from"`
	To        Place     `json:"to"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	// Distance in meters
	Distance float64 `json:"distance"`
	Cost     int     `json:"generalizedCost"`

	RouteID          string `json:"routeId,omitempty"`
	RouteShortName   string `json:"routeShortName,omitempty"`
	TripID           string `json:"tripId,omitempty"`
	Headsign         string `json:"headsign,omitempty"`
	Realtime         bool   `json:"realtime,omitempty"`
	FlexibleTrip     bool   `json:"flexibleTrip,omitempty"`
	ScheduledTransit bool   `json:"scheduledTransit,omitempty"`

	Geometry orb.LineString   `json:"geometry,omitempty"`
	Alerts   []realtime.Alert `json:"alerts,omitempty"`
}

// Duration returns the leg duration in seconds.
func (l *Leg) Duration() int { return int(l.EndTime.Sub(l.StartTime) / time.Second) }

// IsRide reports whether the leg uses a vehicle, scheduled or on demand.
func (l *Leg) IsRide() bool { return l.FlexibleTrip || l.ScheduledTransit }

// Itinerary is one journey from origin to destination.
type Itinerary struct {
	Legs            []Leg     `json:"legs"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	GeneralizedCost int       `json:"generalizedCost"`
	Transfers       int       `json:"transfers"`
	WalkDistance    float64   `json:"walkDistance"`
	// Tags lists the filters that flagged the itinerary. Only debug responses
	// contain tagged itineraries.
	Tags []string `json:"systemNotices,omitempty"`
}

// Duration returns the itinerary duration in seconds.
func (it *Itinerary) Duration() int { return int(it.EndTime.Sub(it.StartTime) / time.Second) }

// IsOnStreetAllTheWay reports whether no leg rides a vehicle.
func (it *Itinerary) IsOnStreetAllTheWay() bool { return !it.HasTransit() }

// HasTransit reports whether any leg is a scheduled or flex ride.
func (it *Itinerary) HasTransit() bool {
	return slices.ContainsFunc(it.Legs, func(l Leg) bool { return l.IsRide() })
}

// HasScheduledTransit reports whether any leg rides a timetabled trip.
func (it *Itinerary) HasScheduledTransit() bool {
	return slices.ContainsFunc(it.Legs, func(l Leg) bool { return l.ScheduledTransit })
}

// Tag records that filter flagged the itinerary.
func (it *Itinerary) Tag(filter string) {
	if !slices.Contains(it.Tags, filter) {
		it.Tags = append(it.Tags, filter)
	}
}

// Flagged reports whether any filter tagged the itinerary.
func (it *Itinerary) Flagged() bool { return len(it.Tags) > 0 }

// finish derives the summary fields from the legs.
func (it *Itinerary) finish() {
	if len(it.Legs) == 0 {
		return
	}
	it.StartTime = it.Legs[0].StartTime
	it.EndTime = it.Legs[len(it.Legs)-1].EndTime
	rides := 0
	it.WalkDistance = 0
	for i := range it.Legs {
		if it.Legs[i].IsRide() {
			rides++
		}
		if it.Legs[i].Mode == ModeWalk {
			it.WalkDistance += it.Legs[i].Distance
		}
	}
	it.Transfers = max(rides-1, 0)
}
