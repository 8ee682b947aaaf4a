package filter

import (
	"math"

	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
)

// Transvision keeps at most three transit itineraries: the one with the least taxi
// distance, the one with the fewest scheduled rides and a meaningfully faster one
// that does not buy its speed with much more taxi. Everything else is removed,
// street-only itineraries included.
type Transvision struct {
	Params config.TransvisionConfig
}

func (t *Transvision) Name() string             { return NameTransvision }
func (t *Transvision) SkipAlreadyFlagged() bool { return true }

type classification struct {
	it           *itinerary.Itinerary
	taxiDistance float64
	duration     int
	// transfers counts the scheduled rides
	transfers int
}

func classify(it *itinerary.Itinerary) classification {
	c := classification{it: it, duration: it.Duration()}
	for i := range it.Legs {
		if it.Legs[i].FlexibleTrip {
			c.taxiDistance += it.Legs[i].Distance
		}
		if it.Legs[i].ScheduledTransit {
			c.transfers++
		}
	}
	return c
}

// groups buckets diff by width. A non-positive width turns the term off.
func groups(diff float64, width int) float64 {
	if width <= 0 {
		return 0
	}
	return math.Floor(diff / float64(width))
}

// lowest returns the candidate with the least score, the first one on ties. ok is
// false when no candidate is accepted.
func lowest(cs []classification, score func(classification) float64, accept func(float64) bool) (classification, bool) {
	var best classification
	bestScore, found := 0.0, false
	for _, c := range cs {
		s := score(c)
		if accept != nil && !accept(s) {
			continue
		}
		if !found || s < bestScore {
			best, bestScore, found = c, s, true
		}
	}
	return best, found
}

func (t *Transvision) FlagForRemoval(its []*itinerary.Itinerary) []*itinerary.Itinerary {
	var cs []classification
	for _, it := range its {
		if it.HasTransit() {
			cs = append(cs, classify(it))
		}
	}
	if len(cs) == 0 {
		return append([]*itinerary.Itinerary(nil), its...)
	}

	minTaxi := t.minimumTaxi(cs)
	minTransfers, hasMinTransfers := t.minimumTransfers(minTaxi, cs)
	faster, hasFaster := t.faster(minTaxi, minTransfers, hasMinTransfers, cs)

	return flagWhere(its, func(it *itinerary.Itinerary) bool {
		switch {
		case it == minTaxi.it:
			return false
		case hasMinTransfers && it == minTransfers.it:
			return false
		case hasFaster && it == faster.it:
			return false
		}
		return true
	})
}

func (t *Transvision) minimumTaxi(cs []classification) classification {
	minTaxi := math.Inf(1)
	for _, c := range cs {
		minTaxi = min(minTaxi, c.taxiDistance)
	}
	var withMin []classification
	for _, c := range cs {
		if c.taxiDistance == minTaxi {
			withMin = append(withMin, c)
		}
	}
	minDuration, minTransfers := withMin[0].duration, withMin[0].transfers
	for _, c := range withMin {
		minDuration = min(minDuration, c.duration)
		minTransfers = min(minTransfers, c.transfers)
	}

	// mostly duration, with a small penalty per extra ride
	best, _ := lowest(withMin, func(c classification) float64 {
		return groups(float64(c.duration-minDuration), t.Params.MinimumTaxiSecondGroups) +
			float64(c.transfers-minTransfers)*t.Params.MinimumTaxiTransferScore
	}, nil)
	return best
}

func (t *Transvision) minimumTransfers(minTaxi classification, cs []classification) (classification, bool) {
	minTransfers := cs[0].transfers
	for _, c := range cs {
		minTransfers = min(minTransfers, c.transfers)
	}
	// with as few rides as minTaxi the only gain left is speed, which faster covers
	if minTransfers == minTaxi.transfers {
		return classification{}, false
	}
	var withMin []classification
	for _, c := range cs {
		if c.transfers == minTransfers {
			withMin = append(withMin, c)
		}
	}
	minDuration := withMin[0].duration
	for _, c := range withMin {
		minDuration = min(minDuration, c.duration)
	}
	return lowest(withMin, func(c classification) float64 {
		return groups(float64(c.duration-minDuration), t.Params.MinimumTransfersSecondGroups) +
			groups(c.taxiDistance-minTaxi.taxiDistance, t.Params.MinimumTransfersTaxiGroups)
	}, nil)
}

func (t *Transvision) faster(minTaxi, minTransfers classification, hasMinTransfers bool, cs []classification) (classification, bool) {
	bestDuration, bestTransfers := minTaxi.duration, minTaxi.transfers
	if hasMinTransfers {
		bestDuration = min(minTransfers.duration, minTaxi.duration)
		bestTransfers = minTransfers.transfers
	}

	var candidates []classification
	for _, c := range cs {
		if bestDuration-c.duration >= t.Params.MinimumSecondsForFasterItinerary {
			candidates = append(candidates, c)
		}
	}
	// extra taxi meters per second saved, plus a penalty per extra ride
	return lowest(candidates, func(c classification) float64 {
		extraDistance := c.taxiDistance - minTaxi.taxiDistance
		extraDuration := float64(bestDuration - c.duration)
		extraTransfers := float64(c.transfers-bestTransfers) * t.Params.FasterTransfersScore
		return extraDistance/extraDuration + extraTransfers
	}, func(score float64) bool { return score < t.Params.MaximumScoreFasterItinerary })
}
