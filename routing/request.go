package routing

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// Location is a request end point: a stop or station id, or a coordinate.
type Location struct {
	Name   string
	StopID string
	Lat    float64 `validate:"latitude"`
	Lon    float64 `validate:"longitude"`
	// ForcedStopID limits flexible access or egress to this stop, or to the children
	// of this station.
	ForcedStopID string
}

// IsSet reports whether the location names a stop or a coordinate.
func (l Location) IsSet() bool { return l.StopID != "" || l.Lat != 0 || l.Lon != 0 }

// Point returns the coordinate of the location.
func (l Location) Point() orb.Point { return orb.Point{l.Lon, l.Lat} }

// Modes selects the street mode of each part of a journey. ModeNotSet as Direct
// skips the direct search; ModeFlexible as Direct asks for direct flex instead of
// direct street.
type Modes struct {
	Access   street.Mode
	Egress   street.Mode
	Transfer street.Mode
	Direct   street.Mode
	Transit  bool
}

// DefaultModes walks everywhere and uses transit.
func DefaultModes() Modes {
	return Modes{
		Access:   street.ModeWalk,
		Egress:   street.ModeWalk,
		Transfer: street.ModeWalk,
		Direct:   street.ModeWalk,
		Transit:  true,
	}
}

// Request is one plan query.
type Request struct {
	From     Location
	To       Location
	DateTime time.Time
	ArriveBy bool
	// SearchWindow of zero uses the configured default.
	SearchWindow time.Duration `validate:"gte=0"`
	Modes        Modes

	Wheelchair     bool
	WalkSpeed      float64 `validate:"omitempty,gt=0,lte=10"`
	WalkReluctance float64 `validate:"omitempty,gte=1"`
	// MaxTransfers overrides the configured limit when set.
	MaxTransfers   *int `validate:"omitempty,gte=0,lte=30"`
	NumItineraries int  `validate:"gte=0"`
	PageCursor     string
	Debug          bool
}

// NewRequest returns a depart-after request with default modes.
func NewRequest(from, to Location, t time.Time) *Request {
	return &Request{From: from, To: to, DateTime: t, Modes: DefaultModes()}
}

var validate = validator.New()

// Validate checks field ranges and the mode combination. Missing locations and
// unsupported modes come back as a *ValidationError.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.DateTime.IsZero() {
		return fmt.Errorf("%w: date and time are required", ErrInvalidRequest)
	}
	var errs []RoutingError
	if !r.From.IsSet() {
		errs = append(errs, RoutingError{Code: itinerary.LocationNotFound, InputField: itinerary.FieldFromPlace})
	}
	if !r.To.IsSet() {
		errs = append(errs, RoutingError{Code: itinerary.LocationNotFound, InputField: itinerary.FieldToPlace})
	}
	m := r.Modes
	if !m.Access.AllowsAccess() || !m.Egress.AllowsEgress() || !m.Transfer.AllowsTransfer() {
		errs = append(errs, RoutingError{Code: itinerary.UnsupportedModes, InputField: itinerary.FieldModes})
	}
	if !m.Transit && m.Direct == street.ModeNotSet {
		errs = append(errs, RoutingError{Code: itinerary.UnsupportedModes, InputField: itinerary.FieldModes})
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: mergeErrors(nil, errs...)}
	}
	return nil
}

// profile builds the street profile of the request for mode.
func (r *Request) profile(mode street.Mode) street.Profile {
	p := street.DefaultProfile().WithMode(mode)
	p.Wheelchair = r.Wheelchair
	if r.WalkSpeed > 0 {
		p.WalkSpeed = r.WalkSpeed
	}
	if r.WalkReluctance > 0 {
		p.WalkReluctance = r.WalkReluctance
	}
	return p
}
