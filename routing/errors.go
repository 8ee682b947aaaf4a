package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
)

// RoutingError is a user-facing reason why a search found less than asked for.
type RoutingError = itinerary.RoutingError

var (
	// ErrTimeout is returned when a request exceeds its search budget.
	ErrTimeout = fmt.Errorf("routing: search timed out: %w", context.DeadlineExceeded)
	// ErrInvalidRequest wraps field errors found before any search runs.
	ErrInvalidRequest = errors.New("routing: invalid request")
)

// ValidationError carries the routing errors of a sub-search, or of the whole
// request when no itinerary was found.
type ValidationError struct {
	Errors []RoutingError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		parts[i] = re.Error()
	}
	return "routing: " + strings.Join(parts, ", ")
}

func validationError(code itinerary.ErrorCode, field itinerary.InputField) *ValidationError {
	return &ValidationError{Errors: []RoutingError{{Code: code, InputField: field}}}
}

// routingErrors splits err into the routing errors it carries and anything else.
func routingErrors(err error) ([]RoutingError, error) {
	if err == nil {
		return nil, nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Errors, nil
	}
	return nil, err
}

// mergeErrors appends errs to dst without duplicates.
func mergeErrors(dst []RoutingError, errs ...RoutingError) []RoutingError {
	for _, e := range errs {
		if !slices.Contains(dst, e) {
			dst = append(dst, e)
		}
	}
	return dst
}
