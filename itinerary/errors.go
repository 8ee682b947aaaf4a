package itinerary

import "fmt"

// ErrorCode categorizes a routing error.
type ErrorCode string

const (
	OutsideServicePeriod              ErrorCode = "OUTSIDE_SERVICE_PERIOD"
	OutsideBounds                     ErrorCode = "OUTSIDE_BOUNDS"
	LocationNotFound                  ErrorCode = "LOCATION_NOT_FOUND"
	NoStopsInRange                    ErrorCode = "NO_STOPS_IN_RANGE"
	NoTransitConnection               ErrorCode = "NO_TRANSIT_CONNECTION"
	NoTransitConnectionInSearchWindow ErrorCode = "NO_TRANSIT_CONNECTION_IN_SEARCH_WINDOW"
	WalkingBetterThanTransit          ErrorCode = "WALKING_BETTER_THAN_TRANSIT"
	UnsupportedModes                  ErrorCode = "UNSUPPORTED_MODES"
)

// InputField names the request field a routing error is about.
type InputField string

const (
	FieldNone      InputField = ""
	FieldFromPlace InputField = "FROM_PLACE"
	FieldToPlace   InputField = "TO_PLACE"
	FieldDateTime  InputField = "DATE_TIME"
	FieldModes     InputField = "MODES"
)

// RoutingError is a structured, user-facing reason for missing itineraries.
type RoutingError struct {
	Code       ErrorCode  `json:"code"`
	InputField InputField `json:"inputField,omitempty"`
}

func (e RoutingError) Error() string {
	if e.InputField == FieldNone {
		return string(e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Code, e.InputField)
}
