package filter

import (
	"sort"

	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
)

// Chain is an ordered list of flaggers followed by sorting and limiting.
type Chain struct {
	flaggers []Flagger
	window   *OutsideSearchWindow
	debug    bool
	limit    int
	arriveBy bool
}

// Result is the filtered itinerary list.
type Result struct {
	Itineraries []itinerary.Itinerary
	// FirstRemoved is the first itinerary dropped by the search window or the
	// result limit. The next page starts from it.
	FirstRemoved *itinerary.Itinerary
	Errors       []itinerary.RoutingError
}

// NewChain builds the chain configured by cfg. window may be nil.
func NewChain(cfg config.ItineraryFilterConfig, window *OutsideSearchWindow, arriveBy bool) *Chain {
	c := &Chain{window: window, debug: cfg.Debug, limit: cfg.NumItineraries, arriveBy: arriveBy}
	if window != nil {
		c.flaggers = append(c.flaggers, window)
	}
	if cfg.FlexToScheduledTransitDistanceRatio > 0 {
		c.flaggers = append(c.flaggers, FlexDistanceRatio(cfg.FlexToScheduledTransitDistanceRatio))
	}
	if cfg.FlexToScheduledTransitDurationRatio > 0 {
		c.flaggers = append(c.flaggers, FlexDurationRatio(cfg.FlexToScheduledTransitDurationRatio))
	}
	if cfg.IsRemoveTransitIfStreetOnlyIsBetter() {
		c.flaggers = append(c.flaggers, StreetOnlyIsBetter{})
	}
	if cfg.RequireScheduledTransit {
		c.flaggers = append(c.flaggers, RequireScheduledTransit{})
	}
	if cfg.Transvision != nil {
		c.flaggers = append(c.flaggers, &Transvision{Params: *cfg.Transvision})
	}
	return c
}

// Flaggers returns the flaggers in the order they run.
func (c *Chain) Flaggers() []Flagger { return c.flaggers }

// Filter runs the chain over its. The input slice is not modified.
func (c *Chain) Filter(its []itinerary.Itinerary) Result {
	items := make([]*itinerary.Itinerary, len(its))
	for i := range its {
		cp := its[i]
		cp.Tags = append([]string(nil), its[i].Tags...)
		items[i] = &cp
	}

	for _, f := range c.flaggers {
		candidates := items
		if f.SkipAlreadyFlagged() {
			candidates = flagWhere(items, func(it *itinerary.Itinerary) bool { return !it.Flagged() })
		}
		for _, it := range f.FlagForRemoval(candidates) {
			it.Tag(f.Name())
		}
	}

	var res Result
	res.Errors = c.routingErrors(items)
	if c.window != nil {
		res.FirstRemoved = c.window.FirstRemoved()
	}

	kept := flagWhere(items, func(it *itinerary.Itinerary) bool { return !it.Flagged() })
	c.sort(kept)
	if c.limit > 0 && len(kept) > c.limit {
		cut := kept[c.limit:]
		kept = kept[:c.limit]
		if res.FirstRemoved == nil {
			res.FirstRemoved = cut[0]
		}
		for _, it := range cut {
			it.Tag(NameNumItineraries)
		}
	}

	out := kept
	if c.debug {
		out = append(out, flagWhere(items, (*itinerary.Itinerary).Flagged)...)
	}
	for _, it := range out {
		res.Itineraries = append(res.Itineraries, *it)
	}
	return res
}

func (c *Chain) sort(its []*itinerary.Itinerary) {
	sort.SliceStable(its, func(i, j int) bool {
		a, b := its[i], its[j]
		if c.arriveBy {
			if !a.StartTime.Equal(b.StartTime) {
				return a.StartTime.After(b.StartTime)
			}
		} else if !a.EndTime.Equal(b.EndTime) {
			return a.EndTime.Before(b.EndTime)
		}
		if a.GeneralizedCost != b.GeneralizedCost {
			return a.GeneralizedCost < b.GeneralizedCost
		}
		if a.Transfers != b.Transfers {
			return a.Transfers < b.Transfers
		}
		if c.arriveBy {
			return a.EndTime.Before(b.EndTime)
		}
		return a.StartTime.After(b.StartTime)
	})
}

// routingErrors explains an empty result: walking beat every transit option, or
// everything found lies outside the search window.
func (c *Chain) routingErrors(items []*itinerary.Itinerary) []itinerary.RoutingError {
	if len(items) == 0 {
		return nil
	}
	survivorHasTransit, streetRemovedTransit := false, false
	allOutside := true
	for _, it := range items {
		if !it.Flagged() && it.HasTransit() {
			survivorHasTransit = true
		}
		if it.HasTransit() && hasTag(it, NameStreetOnlyIsBetter) {
			streetRemovedTransit = true
		}
		if !hasTag(it, NameOutsideWindow) {
			allOutside = false
		}
	}
	var errs []itinerary.RoutingError
	if !survivorHasTransit && streetRemovedTransit {
		errs = append(errs, itinerary.RoutingError{Code: itinerary.WalkingBetterThanTransit})
	}
	if allOutside {
		errs = append(errs, itinerary.RoutingError{Code: itinerary.NoTransitConnectionInSearchWindow})
	}
	return errs
}

func hasTag(it *itinerary.Itinerary, name string) bool {
	for _, t := range it.Tags {
		if t == name {
			return true
		}
	}
	return false
}
