package raptor

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

// Response is the outcome of one search.
type Response struct {
	Paths []Path
	// Iterations is the number of departure times searched.
	Iterations int
	// Rounds is the highest round run.
	Rounds int
	// EarliestDepartureTime, LatestArrivalTime and SearchWindow echo the window
	// actually searched.
	EarliestDepartureTime int
	LatestArrivalTime     int
	SearchWindow          int
}

type bagEntry struct {
	prev      int32
	trip      int32
	boardPos  int32
	boardTime int
	baseCost  int
	relCost   float64
}

type search struct {
	ctx  context.Context
	tt   *Timetable
	req  *Request
	calc timeCalc

	// accesses and egresses in search direction
	accesses       []AccessEgress
	egresses       []AccessEgress
	accessByRides  map[int][]int32
	maxAccessRides int
	egressByStop   map[int32][]int32
	minEgress      int
	limit          int

	state  *stopArrivals
	dest   *destinationCollector
	bag    []bagEntry
	rounds int
}

// Search runs Range-RAPTOR over tt. It returns ctx.Err() wrapped when the context
// ends before the search does; there are no partial results.
func Search(ctx context.Context, tt *Timetable, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s := newSearch(ctx, tt, req)

	iterations := max(1, req.SearchWindow/req.IterationStep)
	for i := 0; i < iterations; i++ {
		offset := (iterations - 1 - i) * req.IterationStep
		t0 := req.EarliestDepartureTime + offset
		if req.ArriveBy {
			t0 = req.LatestArrivalTime - offset
		}
		if err := s.iteration(t0); err != nil {
			return nil, fmt.Errorf("raptor: search stopped after %d iterations: %w", i, err)
		}
	}

	resp := &Response{
		Iterations:            iterations,
		Rounds:                s.rounds,
		EarliestDepartureTime: req.EarliestDepartureTime,
		LatestArrivalTime:     req.LatestArrivalTime,
		SearchWindow:          req.SearchWindow,
	}
	for i := range s.dest.arrivals {
		resp.Paths = append(resp.Paths, s.buildPath(&s.dest.arrivals[i]))
	}
	sort.SliceStable(resp.Paths, func(i, j int) bool {
		a, b := &resp.Paths[i], &resp.Paths[j]
		if a.Departure != b.Departure {
			return a.Departure < b.Departure
		}
		if a.Arrival != b.Arrival {
			return a.Arrival < b.Arrival
		}
		if a.Transfers != b.Transfers {
			return a.Transfers < b.Transfers
		}
		return a.Cost < b.Cost
	})
	return resp, nil
}

func newSearch(ctx context.Context, tt *Timetable, req *Request) *search {
	calc := timeCalc{forward: !req.ArriveBy}
	s := &search{
		ctx:           ctx,
		tt:            tt,
		req:           req,
		calc:          calc,
		accesses:      req.Accesses,
		egresses:      req.Egresses,
		accessByRides: map[int][]int32{},
		egressByStop:  map[int32][]int32{},
	}
	if req.ArriveBy {
		s.accesses, s.egresses = req.Egresses, req.Accesses
	}
	for i, a := range s.accesses {
		s.accessByRides[a.NumberOfRides()] = append(s.accessByRides[a.NumberOfRides()], int32(i))
		s.maxAccessRides = max(s.maxAccessRides, a.NumberOfRides())
	}
	s.minEgress = math.MaxInt32
	for i, e := range s.egresses {
		s.egressByStop[e.Stop()] = append(s.egressByStop[e.Stop()], int32(i))
		s.minEgress = min(s.minEgress, e.DurationInSeconds())
	}
	if len(s.egresses) == 0 {
		s.minEgress = 0
	}

	if calc.forward {
		s.limit = req.EarliestDepartureTime + req.SearchWindow + req.MaxJourneyDuration
		if req.LatestArrivalTime != NotSet {
			s.limit = req.LatestArrivalTime
		}
	} else {
		s.limit = req.LatestArrivalTime - req.SearchWindow - req.MaxJourneyDuration
		if req.EarliestDepartureTime != NotSet {
			s.limit = req.EarliestDepartureTime
		}
	}

	s.state = newStopArrivals(calc, req.Profile == MultiCriteria, tt.StopCount())
	s.dest = newDestinationCollector(calc, req.Profile == MultiCriteria, s.limit, req.OnRejected)
	return s
}

// iteration runs all rounds for one departure (arrival, going backwards) time.
func (s *search) iteration(t0 int) error {
	fresh := s.seed(0, t0)
	for r := 1; r <= s.dest.maxRound(s.req.maxRounds(), s.req.AdditionalTransfersLimit); r++ {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		s.dest.startRound()

		transit := s.relaxTransit(r, fresh)
		seeds := s.seed(r, t0)

		onBoard := append([]int32(nil), transit...)
		for _, i := range seeds {
			if s.state.get(i).onBoard(s.accesses) {
				onBoard = append(onBoard, i)
			}
		}
		transfers := s.relaxTransfers(r, onBoard)
		s.dest.endRound(r)

		fresh = append(append(transit, seeds...), transfers...)
		s.rounds = max(s.rounds, r)
		if len(fresh) == 0 && r >= s.maxAccessRides {
			break
		}
	}
	return nil
}

// seed adds the access legs using round rides, started at t0.
func (s *search) seed(round, t0 int) []int32 {
	var out []int32
	for _, li := range s.accessByRides[round] {
		leg := s.accesses[li]
		var t int
		if s.calc.forward {
			dep := earliestDeparture(leg, t0)
			if dep == NotSet {
				continue
			}
			t = dep + leg.DurationInSeconds()
		} else {
			arr := latestArrival(leg, t0)
			if arr == NotSet {
				continue
			}
			t = arr - leg.DurationInSeconds()
		}
		pr := 0
		if round > 0 {
			pr = 2 * round
			if !leg.StopReachedOnBoard() {
				pr++
			}
		}
		c := arrival{
			kind:  kindAccess,
			stop:  leg.Stop(),
			prev:  noPrev,
			round: pr,
			rides: leg.NumberOfRides(),
			time:  t,
			cost:  leg.Cost(),
			leg:   li,
		}
		if i, ok := s.accept(c); ok {
			out = append(out, i)
		}
	}
	return out
}

// accept applies the time limit and, for the standard profile, the destination
// bound before offering c to its stop.
func (s *search) accept(c arrival) (int32, bool) {
	reach := s.calc.plus(c.time, s.minEgress)
	if s.calc.exceeds(reach, s.limit) {
		return noPrev, false
	}
	if !s.state.mc && c.transits > 0 {
		best := s.dest.bestTimeWithin(c.rides - 1)
		if !s.calc.isBefore(reach, best) {
			return noPrev, false
		}
	}
	return s.state.offer(c)
}

func (s *search) relaxTransit(r int, fresh []int32) []int32 {
	boardable := map[int32][]int32{}
	seen := map[int32]bool{}
	var patterns []int32
	for _, i := range fresh {
		a := s.state.get(i)
		if !a.alive {
			continue
		}
		if _, ok := boardable[a.stop]; !ok {
			for _, p := range s.tt.PatternsAtStop(a.stop) {
				if !seen[p] {
					seen[p] = true
					patterns = append(patterns, p)
				}
			}
		}
		boardable[a.stop] = append(boardable[a.stop], i)
	}
	slices.Sort(patterns)

	var out []int32
	for _, pi := range patterns {
		out = s.scanPattern(r, pi, boardable, out)
	}
	return out
}

// canAlight and canBoard are in search direction: going backwards alighting from a
// trip means boarding it in travel order.
func (s *search) canAlight(p *Pattern, pos int) bool {
	if s.calc.forward {
		return p.CanAlight[pos]
	}
	return p.CanBoard[pos]
}

func (s *search) canBoard(p *Pattern, pos int) bool {
	if s.calc.forward {
		return p.CanBoard[pos]
	}
	return p.CanAlight[pos]
}

func (s *search) scanPattern(r int, pi int32, boardable map[int32][]int32, out []int32) []int32 {
	p := &s.tt.Patterns[pi]
	rel := s.req.Cost.reluctance(p.Route.Mode)
	bag := s.bag[:0]
	n := len(p.Stops)
	for k := 0; k < n; k++ {
		pos := k
		if !s.calc.forward {
			pos = n - 1 - k
		}
		stop := p.Stops[pos]

		if len(bag) > 0 && s.canAlight(p, pos) {
			for _, e := range bag {
				trip := &p.Trips[e.trip]
				t := trip.Arrivals[pos]
				if !s.calc.forward {
					t = trip.Departures[pos]
				}
				prev := s.state.get(e.prev)
				c := arrival{
					kind:      kindTransit,
					stop:      stop,
					prev:      e.prev,
					round:     2 * r,
					rides:     prev.rides + 1,
					transits:  prev.transits + 1,
					time:      t,
					cost:      e.baseCost + roundCost(rel*float64(s.calc.span(e.boardTime, t))),
					pattern:   pi,
					trip:      e.trip,
					boardPos:  e.boardPos,
					alightPos: int32(pos),
					boardTime: e.boardTime,
				}
				if i, ok := s.accept(c); ok {
					out = append(out, i)
					s.reachEgresses(i)
				}
			}
		}

		if states, ok := boardable[stop]; ok && s.canBoard(p, pos) {
			for _, si := range states {
				bag = s.board(bag, p, pos, si, rel)
			}
		}
	}
	s.bag = bag
	return out
}

// board finds the trip to catch from state si at position pos and adds it to the
// route bag unless a bag entry on an earlier-or-equal trip is at least as cheap.
func (s *search) board(bag []bagEntry, p *Pattern, pos int, si int32, rel float64) []bagEntry {
	prev := s.state.get(si)
	if !prev.alive {
		return bag
	}
	cp := &s.req.Cost

	t := prev.time
	if s.calc.forward {
		t += s.req.BoardSlack
		if prev.kind != kindAccess {
			t += s.req.TransferSlack
		}
	} else if prev.kind != kindAccess {
		t -= s.req.BoardSlack + s.req.TransferSlack
	}
	ti, ok := findTrip(p, pos, t, s.calc.forward, s.req.BinarySearchThreshold)
	if !ok {
		return bag
	}
	trip := &p.Trips[ti]
	boardTime := trip.Departures[pos]
	if !s.calc.forward {
		boardTime = trip.Arrivals[pos]
	}

	cost := prev.cost + cp.BoardCost
	if prev.transits > 0 {
		cost += cp.TransferCost
	}
	// waits before the first and after the last trip are free
	if prev.transits > 0 {
		cost += roundCost(cp.WaitReluctance * float64(s.calc.span(prev.time, boardTime)))
	}
	relCost := float64(cost) - rel*float64(boardTime)
	if !s.calc.forward {
		relCost = float64(cost) + rel*float64(boardTime)
	}
	e := bagEntry{prev: si, trip: ti, boardPos: int32(pos), boardTime: boardTime, baseCost: cost, relCost: relCost}

	for _, b := range bag {
		if s.calc.betterTrip(b.trip, e.trip) && (!s.state.mc || b.relCost <= e.relCost) {
			return bag
		}
	}
	kept := bag[:0]
	for _, b := range bag {
		if s.calc.betterTrip(e.trip, b.trip) && (!s.state.mc || e.relCost <= b.relCost) {
			continue
		}
		kept = append(kept, b)
	}
	return append(kept, e)
}

func (s *search) relaxTransfers(r int, from []int32) []int32 {
	var out []int32
	for _, i := range from {
		a := *s.state.get(i)
		if !a.alive {
			continue
		}
		var list []transfer.Transfer
		if s.calc.forward {
			list = s.req.Transfers.Forward(a.stop)
		} else {
			list = s.req.Transfers.Reverse(a.stop)
		}
		for k := range list {
			t := &list[k]
			to := t.To
			if !s.calc.forward {
				to = t.From
			}
			c := arrival{
				kind:     kindTransfer,
				stop:     to,
				prev:     i,
				round:    2*r + 1,
				rides:    a.rides,
				transits: a.transits,
				time:     s.calc.plus(a.time, t.Duration),
				cost:     a.cost + t.Cost,
				transfer: t,
			}
			if j, ok := s.accept(c); ok {
				out = append(out, j)
				s.reachEgresses(j)
			}
		}
	}
	return out
}

// reachEgresses offers the journeys ending with the egress legs at the stop of state
// i. A walking egress never follows a walking transfer, and a journey needs at
// least one scheduled ride.
func (s *search) reachEgresses(i int32) {
	a := *s.state.get(i)
	if a.transits == 0 {
		return
	}
	for _, e := range s.egressByStop[a.stop] {
		leg := s.egresses[e]
		if a.kind == kindTransfer && !leg.StopReachedOnBoard() {
			continue
		}
		s.collect(i, &a, e, leg)
	}
}

func (s *search) collect(i int32, a *arrival, e int32, leg AccessEgress) {
	d := destinationArrival{
		state:     i,
		egress:    e,
		cost:      a.cost + leg.Cost(),
		transfers: a.rides + leg.NumberOfRides() - 1,
	}
	dur := leg.DurationInSeconds()
	if s.calc.forward {
		dep := earliestDeparture(leg, a.time)
		if dep == NotSet {
			return
		}
		d.arrival = dep + dur
		d.time = d.arrival
		d.departure, _ = s.originLeg(i)
	} else {
		latest := a.time - s.req.BoardSlack
		if a.kind == kindTransfer {
			latest -= s.req.TransferSlack
		}
		arr := latestArrival(leg, latest)
		if arr == NotSet {
			return
		}
		d.departure = arr - dur
		d.time = d.departure
		_, d.arrival = s.originLeg(i)
	}
	s.dest.add(d)
}

// originLeg returns the real start and end of the leg seeding the chain ending in
// i. The leg is moved as close to the first (going backwards: last) trip as its
// opening hours allow, so that no time is spent waiting at the stop.
func (s *search) originLeg(i int32) (start, end int) {
	first, next := i, noPrev
	for s.state.get(first).prev != noPrev {
		next = first
		first = s.state.get(first).prev
	}
	a := s.state.get(first)
	leg := s.accesses[a.leg]
	dur := leg.DurationInSeconds()
	var n *arrival
	if next != noPrev && s.state.get(next).kind == kindTransit {
		n = s.state.get(next)
	}

	if s.calc.forward {
		arr := a.time
		if n != nil {
			if la := latestArrival(leg, n.boardTime-s.req.BoardSlack); la != NotSet && la >= arr {
				arr = la
			}
		}
		return arr - dur, arr
	}
	dep := a.time
	if n != nil {
		if ed := earliestDeparture(leg, n.boardTime); ed != NotSet && ed <= dep {
			dep = ed
		}
	}
	return dep, dep + dur
}

func roundCost(x float64) int { return int(math.Round(x)) }
