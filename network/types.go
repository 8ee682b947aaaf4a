package network

import (
	"math"

	"github.com/paulmach/orb"
)

// Unavailable marks a time that cannot be served, for example a flex window that
// does not match the requested time.
const Unavailable = math.MinInt32

// NoStation is the Station index of a stop without a parent station.
const NoStation int32 = -1

// NoVertex is the Vertex index of a stop not linked to the street graph.
const NoVertex int32 = -1

// Stop is a boardable point. Its index in Network.Stops is its identity during a search.
type Stop struct {
	ID         string
	Name       string
	Coord      orb.Point
	Station    int32
	Vertex     int32
	Wheelchair bool
}

// HasStation reports whether the stop belongs to a parent station.
func (s *Stop) HasStation() bool { return s.Station != NoStation }

// Station groups stops. It does not own them.
type Station struct {
	ID       string
	Name     string
	Coord    orb.Point
	Children []int32
}

// Route is a GTFS route.
type Route struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Mode      TransitMode
}

// TransitMode is the vehicle type of a route, equivalent to the GTFS route_type.
type TransitMode uint8

const (
	ModeRail TransitMode = iota
	ModeCoach
	ModeSubway
	ModeBus
	ModeTram
	ModeFerry
	ModeAirplane
	ModeCableCar
	ModeGondola
	ModeFunicular
	ModeTrolleybus
	ModeMonorail
	ModeTaxi1
	ModeTaxi2
	ModeCarpool
)

var transitModeNames = [...]string{
	"RAIL", "COACH", "SUBWAY", "BUS", "TRAM", "FERRY", "AIRPLANE", "CABLE_CAR",
	"GONDOLA", "FUNICULAR", "TROLLEYBUS", "MONORAIL", "TAXI1", "TAXI2", "CARPOOL",
}

func (m TransitMode) String() string {
	if int(m) < len(transitModeNames) {
		return transitModeNames[m]
	}
	return "UNKNOWN"
}

// OnStreet reports whether vehicles of this mode drive on streets.
func (m TransitMode) OnStreet() bool {
	switch m {
	case ModeCoach, ModeBus, ModeTrolleybus, ModeTaxi1, ModeTaxi2, ModeCarpool:
		return true
	}
	return false
}

// ModeFromRouteType maps basic and extended GTFS route types.
func ModeFromRouteType(routeType int) (TransitMode, bool) {
	switch routeType {
	case 0:
		return ModeTram, true
	case 1:
		return ModeSubway, true
	case 2:
		return ModeRail, true
	case 3:
		return ModeBus, true
	case 4:
		return ModeFerry, true
	case 5:
		return ModeCableCar, true
	case 6:
		return ModeGondola, true
	case 7:
		return ModeFunicular, true
	case 11:
		return ModeTrolleybus, true
	case 12:
		return ModeMonorail, true
	}
	switch {
	case routeType >= 100 && routeType < 200:
		return ModeRail, true
	case routeType >= 200 && routeType < 300:
		return ModeCoach, true
	case routeType >= 400 && routeType < 500:
		return ModeSubway, true
	case routeType >= 700 && routeType < 800:
		return ModeBus, true
	case routeType >= 800 && routeType < 900:
		return ModeTrolleybus, true
	case routeType >= 900 && routeType < 1000:
		return ModeTram, true
	case routeType >= 1000 && routeType < 1100, routeType == 1200:
		return ModeFerry, true
	case routeType >= 1100 && routeType < 1200:
		return ModeAirplane, true
	case routeType >= 1300 && routeType < 1400:
		return ModeGondola, true
	case routeType >= 1400 && routeType < 1500:
		return ModeFunicular, true
	case routeType == 1501:
		return ModeTaxi1, true
	case routeType == 1502:
		return ModeTaxi2, true
	case routeType >= 1550 && routeType <= 1560:
		return ModeCarpool, true
	case routeType >= 1500 && routeType < 1600:
		return ModeTaxi1, true
	}
	return ModeBus, false
}
