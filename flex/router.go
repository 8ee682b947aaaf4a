package flex

import (
	"context"
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/journey-planner/access"
	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

const secondsPerDay = 86400

// Options configures a Router.
type Options struct {
	// Date is the service date of the search.
	Date network.ServiceDate
	// AdditionalFutureDays adds later service days. The previous day is always
	// included for trips running past midnight.
	AdditionalFutureDays int
	// MaxTransferSeconds bounds the walk that extends a ride.
	MaxTransferSeconds int
	Threads            int
	Warnings           *warnings.Aggregator
}

type serviceDay struct {
	date   network.ServiceDate
	offset int
}

// Router builds flex legs for one search.
type Router struct {
	net        *network.Network
	accessCalc Calculator
	egressCalc Calculator
	transfers  *transfer.Index
	opts       Options
	days       []serviceDay
	tripsAt    map[int32][]int
}

// NewRouter creates a router over the flex trips of n. transfers may be nil, in
// which case rides are never extended.
func NewRouter(n *network.Network, accessCalc, egressCalc Calculator, transfers *transfer.Index, opts Options) *Router {
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	r := &Router{
		net:        n,
		accessCalc: accessCalc,
		egressCalc: egressCalc,
		transfers:  transfers,
		opts:       opts,
		tripsAt:    make(map[int32][]int),
	}
	for d := -1; d <= opts.AdditionalFutureDays; d++ {
		r.days = append(r.days, serviceDay{date: opts.Date.AddDays(d), offset: d * secondsPerDay})
	}
	for i := range n.FlexTrips {
		seen := make(map[int32]bool)
		for _, st := range n.FlexTrips[i].StopTimes {
			if !seen[st.Stop] {
				r.tripsAt[st.Stop] = append(r.tripsAt[st.Stop], i)
				seen[st.Stop] = true
			}
		}
	}
	return r
}

// candidate is the nearby stop with the shortest street leg for one trip.
type candidate struct {
	trip int
	stop access.NearbyStop
}

func (r *Router) closest(nearby []access.NearbyStop, board bool) []candidate {
	best := make(map[int]access.NearbyStop)
	for _, s := range nearby {
		for _, ti := range r.tripsAt[s.Stop] {
			trip := &r.net.FlexTrips[ti]
			if board && len(trip.BoardPositions(s.Stop)) == 0 || !board && len(trip.AlightPositions(s.Stop)) == 0 {
				continue
			}
			if cur, ok := best[ti]; !ok || s.Duration < cur.Duration {
				best[ti] = s
			}
		}
	}
	out := make([]candidate, 0, len(best))
	for ti, s := range best {
		out = append(out, candidate{trip: ti, stop: s})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].trip < out[b].trip })
	return out
}

func (r *Router) runningDays(trip *network.FlexTrip) []serviceDay {
	var out []serviceDay
	for _, d := range r.days {
		if r.net.ServiceRunning(trip.ServiceID, d.date) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		r.opts.Warnings.Add(warnings.FlexServiceNotActive, fmt.Sprintf("%s on %s", trip.ID, r.opts.Date))
	}
	return out
}

// Accesses returns the legs riding a flex trip from one of nearby to any later
// stop of the trip. Trips are evaluated in parallel.
func (r *Router) Accesses(ctx context.Context, nearby []access.NearbyStop) ([]*Leg, error) {
	return r.legs(ctx, r.closest(nearby, true), r.accessLegs)
}

// Egresses returns the legs riding a flex trip from any stop of the trip to one of
// nearby.
func (r *Router) Egresses(ctx context.Context, nearby []access.NearbyStop) ([]*Leg, error) {
	return r.legs(ctx, r.closest(nearby, false), r.egressLegs)
}

func (r *Router) legs(ctx context.Context, cands []candidate, build func(candidate) []*Leg) ([]*Leg, error) {
	results := make([][]*Leg, len(cands))
	var eg errgroup.Group
	eg.SetLimit(r.opts.Threads)
	for i, c := range cands {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = build(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	var all []*Leg
	for _, rs := range results {
		all = append(all, rs...)
	}
	legs := r.dedupe(all)
	if len(cands) > 0 {
		log.Printf("flex: %d legs from %d trips", len(legs), len(cands))
	}
	return legs, nil
}

func (r *Router) accessLegs(c candidate) []*Leg {
	trip := &r.net.FlexTrips[c.trip]
	days := r.runningDays(trip)
	if len(days) == 0 {
		return nil
	}
	var out []*Leg
	for _, from := range trip.BoardPositions(c.stop.Stop) {
		for to := from + 1; to < len(trip.StopTimes); to++ {
			if !trip.StopTimes[to].CanAlight {
				continue
			}
			alight := trip.StopTimes[to].Stop
			ride, ok := r.accessCalc.Calculate(r.net.Stop(c.stop.Stop), r.net.Stop(alight))
			if !ok {
				r.opts.Warnings.Add(warnings.FlexPathNotFound, fmt.Sprintf("%s %s->%s", trip.ID, r.net.Stop(c.stop.Stop).ID, r.net.Stop(alight).ID))
				continue
			}
			for _, d := range days {
				l := newLeg(trip, d, from, to, ride)
				l.Access = &c.stop
				out = append(out, l.finish(alight))
				for _, t := range r.walks(alight, false) {
					x := newLeg(trip, d, from, to, ride)
					x.Access = &c.stop
					x.Transfer = t
					out = append(out, x.finish(t.To))
				}
			}
		}
	}
	return out
}

func (r *Router) egressLegs(c candidate) []*Leg {
	trip := &r.net.FlexTrips[c.trip]
	days := r.runningDays(trip)
	if len(days) == 0 {
		return nil
	}
	var out []*Leg
	for _, to := range trip.AlightPositions(c.stop.Stop) {
		for from := 0; from < to; from++ {
			if !trip.StopTimes[from].CanBoard {
				continue
			}
			board := trip.StopTimes[from].Stop
			ride, ok := r.egressCalc.Calculate(r.net.Stop(board), r.net.Stop(c.stop.Stop))
			if !ok {
				r.opts.Warnings.Add(warnings.FlexPathNotFound, fmt.Sprintf("%s %s->%s", trip.ID, r.net.Stop(board).ID, r.net.Stop(c.stop.Stop).ID))
				continue
			}
			for _, d := range days {
				l := newLeg(trip, d, from, to, ride)
				l.Egress = &c.stop
				out = append(out, l.finish(board))
				for _, t := range r.walks(board, true) {
					x := newLeg(trip, d, from, to, ride)
					x.Egress = &c.stop
					x.Transfer = t
					out = append(out, x.finish(t.From))
				}
			}
		}
	}
	return out
}

// walks returns the transfers leaving stop, or arriving at it when reverse is set,
// that are short enough to extend a ride.
func (r *Router) walks(stop int32, reverse bool) []*transfer.Transfer {
	if r.transfers == nil {
		return nil
	}
	list := r.transfers.Forward(stop)
	if reverse {
		list = r.transfers.Reverse(stop)
	}
	var out []*transfer.Transfer
	for i := range list {
		if list[i].Duration <= r.opts.MaxTransferSeconds {
			out = append(out, &list[i])
		}
	}
	return out
}

type legKey struct {
	trip  *network.FlexTrip
	date  network.ServiceDate
	group string
}

// dedupe keeps the fastest leg per trip, service day and station group. Order of
// first appearance is preserved.
func (r *Router) dedupe(legs []*Leg) []*Leg {
	best := make(map[legKey]int)
	var out []*Leg
	for _, l := range legs {
		k := legKey{trip: l.Trip, date: l.Date, group: r.net.GroupKey(l.stop)}
		if i, ok := best[k]; ok {
			if l.DurationInSeconds() < out[i].DurationInSeconds() {
				out[i] = l
			}
			continue
		}
		best[k] = len(out)
		out = append(out, l)
	}
	return out
}

// DirectJourney is a flex-only journey: walk, ride, walk.
type DirectJourney struct {
	Leg       *Leg
	Departure int
	Arrival   int
}

// Direct finds journeys riding a single flex trip from one of accesses to one of
// egresses. With arriveBy unset t is the earliest departure, otherwise the latest
// arrival. At most one journey per trip is returned: the earliest arrival, or the
// latest departure when arriving by t.
func (r *Router) Direct(ctx context.Context, accesses, egresses []access.NearbyStop, t int, arriveBy bool) ([]DirectJourney, error) {
	egressAt := make(map[int32][]access.NearbyStop)
	for _, e := range egresses {
		egressAt[e.Stop] = append(egressAt[e.Stop], e)
	}
	var out []DirectJourney
	for _, c := range r.closest(accesses, true) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trip := &r.net.FlexTrips[c.trip]
		days := r.runningDays(trip)
		var best *DirectJourney
		for _, from := range trip.BoardPositions(c.stop.Stop) {
			for to := from + 1; to < len(trip.StopTimes); to++ {
				st := trip.StopTimes[to]
				if !st.CanAlight || len(egressAt[st.Stop]) == 0 {
					continue
				}
				ride, ok := r.accessCalc.Calculate(r.net.Stop(c.stop.Stop), r.net.Stop(st.Stop))
				if !ok {
					continue
				}
				for _, d := range days {
					for i := range egressAt[st.Stop] {
						l := newLeg(trip, d, from, to, ride)
						l.Access = &c.stop
						l.Egress = &egressAt[st.Stop][i]
						j, ok := directJourney(l.finish(st.Stop), t, arriveBy)
						if ok && (best == nil || better(j, *best, arriveBy)) {
							best = &j
						}
					}
				}
			}
		}
		if best != nil {
			out = append(out, *best)
		}
	}
	return out, nil
}

func directJourney(l *Leg, t int, arriveBy bool) (DirectJourney, bool) {
	if arriveBy {
		arr := l.LatestArrivalTime(t)
		if arr == network.Unavailable {
			return DirectJourney{}, false
		}
		return DirectJourney{Leg: l, Departure: arr - l.DurationInSeconds(), Arrival: arr}, true
	}
	dep := l.EarliestDepartureTime(t)
	if dep == network.Unavailable {
		return DirectJourney{}, false
	}
	return DirectJourney{Leg: l, Departure: dep, Arrival: dep + l.DurationInSeconds()}, true
}

func better(a, b DirectJourney, arriveBy bool) bool {
	if arriveBy {
		return a.Departure > b.Departure
	}
	return a.Arrival < b.Arrival
}
