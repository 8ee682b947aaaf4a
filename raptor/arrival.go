package raptor

import "github.com/theoremus-urban-solutions/journey-planner/transfer"

// kind tags the variant of an arrival.
type kind uint8

const (
	kindAccess kind = iota
	kindTransit
	kindTransfer
)

func (k kind) String() string {
	switch k {
	case kindAccess:
		return "access"
	case kindTransit:
		return "transit"
	}
	return "transfer"
}

// noPrev marks the first state of a chain.
const noPrev int32 = -1

// arrival is one state at a stop. All variants share stop, prev, round, time and
// cost; the remaining fields are valid for one variant only.
//
// round is the pareto round: 2r for transit arrivals and on-board access in round r,
// 2r+1 for transfers and access ending on foot. A transit arrival is therefore never
// dominated by a transfer arrival of the same round.
type arrival struct {
	kind  kind
	stop  int32
	prev  int32
	round int
	// rides counts vehicles used so far, transits only scheduled ones.
	rides    int
	transits int
	time     int
	cost     int
	alive    bool

	// kindAccess
	leg int32

	// kindTransit, positions and board time in search direction
	pattern   int32
	trip      int32
	boardPos  int32
	alightPos int32
	boardTime int

	// kindTransfer
	transfer *transfer.Transfer
}

func (a *arrival) onBoard(accesses []AccessEgress) bool {
	switch a.kind {
	case kindTransit:
		return true
	case kindAccess:
		return accesses[a.leg].StopReachedOnBoard()
	}
	return false
}

// stopArrivals is the arena plus the per-stop Pareto sets pointing into it.
type stopArrivals struct {
	calc  timeCalc
	mc    bool
	arena []arrival
	sets  [][]int32
}

func newStopArrivals(calc timeCalc, mc bool, stops int) *stopArrivals {
	return &stopArrivals{calc: calc, mc: mc, sets: make([][]int32, stops), arena: make([]arrival, 0, 1024)}
}

// dominates reports whether a is at least as good as b on every criterion. Equal
// states dominate each other, so the first one kept wins.
func (s *stopArrivals) dominates(a, b *arrival) bool {
	if a.round > b.round || !s.calc.notAfter(a.time, b.time) {
		return false
	}
	return !s.mc || a.cost <= b.cost
}

// offer adds c to the Pareto set of its stop unless a kept state dominates it. Kept
// states dominated by c are retired but stay in the arena for back-pointers.
func (s *stopArrivals) offer(c arrival) (int32, bool) {
	set := s.sets[c.stop]
	for _, i := range set {
		if s.dominates(&s.arena[i], &c) {
			return noPrev, false
		}
	}
	kept := set[:0]
	for _, i := range set {
		if s.dominates(&c, &s.arena[i]) {
			s.arena[i].alive = false
			continue
		}
		kept = append(kept, i)
	}
	idx := int32(len(s.arena))
	c.alive = true
	s.arena = append(s.arena, c)
	s.sets[c.stop] = append(kept, idx)
	return idx, true
}

func (s *stopArrivals) get(i int32) *arrival { return &s.arena[i] }

// bestTime returns the best time kept at stop, or the unreached time.
func (s *stopArrivals) bestTime(stop int32) int {
	best := s.calc.unreached()
	for _, i := range s.sets[stop] {
		if s.calc.isBefore(s.arena[i].time, best) {
			best = s.arena[i].time
		}
	}
	return best
}

// chain returns the arena indices from the first state to i.
func (s *stopArrivals) chain(i int32) []int32 {
	var out []int32
	for ; i != noPrev; i = s.arena[i].prev {
		out = append(out, i)
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
