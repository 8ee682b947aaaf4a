package routing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Page cursor types.
const (
	NextPage     = "next"
	PreviousPage = "previous"
)

// ErrBadCursor is returned for a page cursor that does not decode.
var ErrBadCursor = errors.New("routing: malformed page cursor")

// PageCursor continues a search on the page before or after the current one. It
// travels as an opaque token.
type PageCursor struct {
	Type                  string        `json:"type"`
	EarliestDepartureTime time.Time     `json:"edt,omitzero"`
	LatestArrivalTime     time.Time     `json:"lat,omitzero"`
	SearchWindow          time.Duration `json:"sw"`
	ArriveBy              bool          `json:"arriveBy,omitempty"`
}

// Encode returns the token form of c.
func (c PageCursor) Encode() string {
	b, err := json.Marshal(c)
	if err != nil {
		// a struct of times and scalars always marshals
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodePageCursor parses a token made by Encode.
func DecodePageCursor(token string) (PageCursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return PageCursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var c PageCursor
	if err := json.Unmarshal(b, &c); err != nil {
		return PageCursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if c.Type != NextPage && c.Type != PreviousPage || c.SearchWindow <= 0 {
		return PageCursor{}, fmt.Errorf("%w: type %q window %s", ErrBadCursor, c.Type, c.SearchWindow)
	}
	if c.ArriveBy && c.LatestArrivalTime.IsZero() || !c.ArriveBy && c.EarliestDepartureTime.IsZero() {
		return PageCursor{}, fmt.Errorf("%w: missing search time", ErrBadCursor)
	}
	return c, nil
}

// apply moves r to the page the cursor points at.
func (c PageCursor) apply(r *Request) {
	r.ArriveBy = c.ArriveBy
	r.SearchWindow = c.SearchWindow
	if c.ArriveBy {
		r.DateTime = c.LatestArrivalTime
	} else {
		r.DateTime = c.EarliestDepartureTime
	}
}

// pageCursors derives the cursors of the pages around a search that covered
// [start, start+window) for depart-after, or (start-window, start] for arrive-by.
// firstRemoved is the departure (arrival for arrive-by) of the first itinerary
// cut off by the window or the result limit, zero if none was.
func pageCursors(start time.Time, window time.Duration, arriveBy bool, firstRemoved time.Time) (next, prev PageCursor) {
	if arriveBy {
		prevLAT := start.Add(-window)
		if !firstRemoved.IsZero() {
			prevLAT = firstRemoved
		}
		prev = PageCursor{Type: PreviousPage, LatestArrivalTime: prevLAT, SearchWindow: window, ArriveBy: true}
		next = PageCursor{Type: NextPage, LatestArrivalTime: start.Add(window), SearchWindow: window, ArriveBy: true}
		return next, prev
	}
	nextEDT := start.Add(window)
	if !firstRemoved.IsZero() {
		nextEDT = firstRemoved
	}
	next = PageCursor{Type: NextPage, EarliestDepartureTime: nextEDT, SearchWindow: window}
	prev = PageCursor{Type: PreviousPage, EarliestDepartureTime: start.Add(-window), SearchWindow: window}
	return next, prev
}
