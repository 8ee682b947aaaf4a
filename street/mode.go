package street

import (
	"fmt"
	"strings"
)

// Mode is the street mode of one part of a request: access, egress, transfer or direct.
type Mode uint8

const (
	ModeNotSet Mode = iota
	ModeWalk
	ModeBike
	ModeBikeToPark
	ModeCar
	ModeCarToPark
	ModeCarPickup
	ModeFlexible
)

type modeFeatures struct {
	name            string
	access          bool
	transfer        bool
	egress          bool
	includesWalking bool
	includesBiking  bool
	includesDriving bool
}

var modeTable = [...]modeFeatures{
	ModeNotSet:     {"NOT_SET", true, true, true, false, false, false},
	ModeWalk:       {"WALK", true, true, true, true, false, false},
	ModeBike:       {"BIKE", true, true, true, true, true, false},
	ModeBikeToPark: {"BIKE_TO_PARK", true, false, false, true, true, false},
	ModeCar:        {"CAR", true, false, false, false, false, true},
	ModeCarToPark:  {"CAR_TO_PARK", true, false, false, true, false, true},
	ModeCarPickup:  {"CAR_PICKUP", true, false, true, true, false, true},
	ModeFlexible:   {"FLEXIBLE", true, false, true, true, false, true},
}

func (m Mode) features() modeFeatures {
	if int(m) >= len(modeTable) {
		return modeFeatures{name: fmt.Sprintf("Mode(%d)", m)}
	}
	return modeTable[m]
}

func (m Mode) String() string { return m.features().name }

// AllowsAccess reports whether m may be used to reach the first stop.
func (m Mode) AllowsAccess() bool { return m.features().access }

// AllowsTransfer reports whether m may be used between two stops.
func (m Mode) AllowsTransfer() bool { return m.features().transfer }

// AllowsEgress reports whether m may be used from the last stop.
func (m Mode) AllowsEgress() bool { return m.features().egress }

func (m Mode) IncludesWalking() bool { return m.features().includesWalking }
func (m Mode) IncludesBiking() bool  { return m.features().includesBiking }
func (m Mode) IncludesDriving() bool { return m.features().includesDriving }

// TraverseMode is the primary vehicle used on street edges. Park and pickup modes
// use their vehicle for the whole street part.
func (m Mode) TraverseMode() TraverseMode {
	switch {
	case m.IncludesDriving():
		return TraverseCar
	case m.IncludesBiking():
		return TraverseBicycle
	default:
		return TraverseWalk
	}
}

// ParseMode accepts the upper-case names used in the API, case-insensitively.
func ParseMode(s string) (Mode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for m, f := range modeTable {
		if f.name == name {
			return Mode(m), nil
		}
	}
	return ModeNotSet, fmt.Errorf("street: unknown mode %q", s)
}

// TraverseMode is the way a single edge is traversed.
type TraverseMode uint8

const (
	TraverseWalk TraverseMode = iota
	TraverseBicycle
	TraverseCar
)

func (t TraverseMode) String() string {
	switch t {
	case TraverseWalk:
		return "WALK"
	case TraverseBicycle:
		return "BICYCLE"
	case TraverseCar:
		return "CAR"
	}
	return "UNKNOWN"
}
