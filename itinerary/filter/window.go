package filter

import (
	"time"

	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
)

// OutsideSearchWindow removes itineraries the search only produced to complete its
// Pareto set: in a depart-after search those leaving after Limit, in an arrive-by
// search those arriving before Limit. The first removed itinerary marks where the
// next page starts.
type OutsideSearchWindow struct {
	Limit    time.Time
	ArriveBy bool

	firstRemoved *itinerary.Itinerary
}

// NewOutsideSearchWindow builds the filter from the window actually searched.
// start is the earliest departure, or the latest arrival when arriveBy is set.
func NewOutsideSearchWindow(start time.Time, window time.Duration, arriveBy bool) *OutsideSearchWindow {
	if arriveBy {
		return &OutsideSearchWindow{Limit: start.Add(-window), ArriveBy: true}
	}
	return &OutsideSearchWindow{Limit: start.Add(window)}
}

func (f *OutsideSearchWindow) Name() string             { return NameOutsideWindow }
func (f *OutsideSearchWindow) SkipAlreadyFlagged() bool { return true }

func (f *OutsideSearchWindow) FlagForRemoval(its []*itinerary.Itinerary) []*itinerary.Itinerary {
	removed := flagWhere(its, f.outside)
	for _, it := range removed {
		if f.firstRemoved == nil || f.before(it, f.firstRemoved) {
			f.firstRemoved = it
		}
	}
	return removed
}

func (f *OutsideSearchWindow) outside(it *itinerary.Itinerary) bool {
	if f.ArriveBy {
		return it.EndTime.Before(f.Limit)
	}
	return it.StartTime.After(f.Limit)
}

// before orders removed itineraries by closeness to the window.
func (f *OutsideSearchWindow) before(a, b *itinerary.Itinerary) bool {
	if f.ArriveBy {
		return a.EndTime.After(b.EndTime)
	}
	return a.StartTime.Before(b.StartTime)
}

// FirstRemoved returns the removed itinerary closest to the window, or nil.
func (f *OutsideSearchWindow) FirstRemoved() *itinerary.Itinerary { return f.firstRemoved }
