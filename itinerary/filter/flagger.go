package filter

import (
	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
)

// Filter names, used as itinerary tags.
const (
	NameFlexDistance       = "flex-vs-scheduled-transit-distance-filter"
	NameFlexDuration       = "flex-vs-scheduled-transit-duration-filter"
	NameStreetOnlyIsBetter = "transit-vs-street-filter"
	NameScheduledTransit   = "scheduled-transit"
	NameTransvision        = "transvision"
	NameOutsideWindow      = "outside-search-window"
	NameNumItineraries     = "number-of-itineraries-filter"
)

// Flagger picks itineraries to remove. FlagForRemoval must not modify its input and
// must remove nothing more when run on its own output.
type Flagger interface {
	Name() string
	FlagForRemoval(its []*itinerary.Itinerary) []*itinerary.Itinerary
	// SkipAlreadyFlagged is false for flaggers that must compare against
	// itineraries other flaggers removed.
	SkipAlreadyFlagged() bool
}

func flagWhere(its []*itinerary.Itinerary, pred func(*itinerary.Itinerary) bool) []*itinerary.Itinerary {
	var out []*itinerary.Itinerary
	for _, it := range its {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// MostlyFlex removes itineraries where the flex part outweighs the scheduled part by
// more than Ratio. It never removes the only itinerary.
type MostlyFlex struct {
	Ratio float64
	name  string
	value func(*itinerary.Leg) float64
}

// FlexDistanceRatio compares flex and scheduled distance.
func FlexDistanceRatio(ratio float64) *MostlyFlex {
	return &MostlyFlex{Ratio: ratio, name: NameFlexDistance, value: func(l *itinerary.Leg) float64 { return l.Distance }}
}

// FlexDurationRatio compares flex and scheduled duration.
func FlexDurationRatio(ratio float64) *MostlyFlex {
	return &MostlyFlex{Ratio: ratio, name: NameFlexDuration, value: func(l *itinerary.Leg) float64 { return float64(l.Duration()) }}
}

func (f *MostlyFlex) Name() string             { return f.name }
func (f *MostlyFlex) SkipAlreadyFlagged() bool { return true }

func (f *MostlyFlex) FlagForRemoval(its []*itinerary.Itinerary) []*itinerary.Itinerary {
	if len(its) == 1 {
		return nil
	}
	return flagWhere(its, func(it *itinerary.Itinerary) bool {
		var flexValue, scheduledValue float64
		hasFlex, hasScheduled := false, false
		for i := range it.Legs {
			l := &it.Legs[i]
			switch {
			case l.FlexibleTrip:
				hasFlex = true
				flexValue += f.value(l)
			case l.ScheduledTransit:
				hasScheduled = true
				scheduledValue += f.value(l)
			}
		}
		return hasFlex && hasScheduled && scheduledValue != 0 && flexValue/scheduledValue > f.Ratio
	})
}

// StreetOnlyIsBetter removes every transit itinerary that is both slower and more
// costly than the cheapest itinerary staying on the street all the way.
type StreetOnlyIsBetter struct{}

func (StreetOnlyIsBetter) Name() string             { return NameStreetOnlyIsBetter }
func (StreetOnlyIsBetter) SkipAlreadyFlagged() bool { return false }

func (StreetOnlyIsBetter) FlagForRemoval(its []*itinerary.Itinerary) []*itinerary.Itinerary {
	var best *itinerary.Itinerary
	for _, it := range its {
		if it.IsOnStreetAllTheWay() && (best == nil || it.GeneralizedCost < best.GeneralizedCost) {
			best = it
		}
	}
	if best == nil {
		return nil
	}
	costLimit, timeLimit := best.GeneralizedCost, best.Duration()
	return flagWhere(its, func(it *itinerary.Itinerary) bool {
		return !(it.IsOnStreetAllTheWay() || it.GeneralizedCost < costLimit || it.Duration() < timeLimit)
	})
}

// RequireScheduledTransit removes itineraries without a timetabled ride.
type RequireScheduledTransit struct{}

func (RequireScheduledTransit) Name() string             { return NameScheduledTransit }
func (RequireScheduledTransit) SkipAlreadyFlagged() bool { return true }

func (RequireScheduledTransit) FlagForRemoval(its []*itinerary.Itinerary) []*itinerary.Itinerary {
	return flagWhere(its, func(it *itinerary.Itinerary) bool { return !it.HasScheduledTransit() })
}
