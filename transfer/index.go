package transfer

import (
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// Index holds the transfers of one profile, by origin stop (forward) and by
// destination stop (reverse).
type Index struct {
	forward [][]Transfer
	reverse [][]Transfer
	blocked int
}

// NewIndex evaluates every rule against p. At most one transfer survives per stop
// pair, the cheapest. Rules of different stops are evaluated on up to threads
// goroutines; threads <= 1 evaluates on the calling goroutine.
func NewIndex(rules *network.TransferRules, g *street.Graph, p street.Profile, threads int) *Index {
	n := 0
	if rules != nil {
		n = len(rules.ByStop)
	}
	start := time.Now()
	idx := &Index{
		forward: make([][]Transfer, n),
		reverse: make([][]Transfer, n),
	}
	blocked := make([]int, n)

	evalStop := func(from int) {
		best := make(map[int32]int)
		var out []Transfer
		for _, rule := range rules.ByStop[from] {
			t, ok := Evaluate(rule, g, p)
			if !ok {
				blocked[from]++
				continue
			}
			if i, seen := best[t.To]; seen {
				if t.Cost < out[i].Cost {
					out[i] = t
				}
				continue
			}
			best[t.To] = len(out)
			out = append(out, t)
		}
		sort.Slice(out, func(a, b int) bool { return out[a].To < out[b].To })
		idx.forward[from] = out
	}

	if threads <= 1 {
		for from := 0; from < n; from++ {
			evalStop(from)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(threads)
		for from := 0; from < n; from++ {
			eg.Go(func() error {
				evalStop(from)
				return nil
			})
		}
		_ = eg.Wait()
	}

	// Reverse entries are inserted explicitly instead of being derived on the fly:
	// each one keeps the forward transfer's cost and edges.
	for from := 0; from < n; from++ {
		idx.blocked += blocked[from]
		for _, t := range idx.forward[from] {
			idx.reverse[t.To] = append(idx.reverse[t.To], t)
		}
	}

	log.Printf("transfer index built: %d stops, %d rules, %d blocked, took %s",
		n, rules.Count(), idx.blocked, time.Since(start).Round(time.Millisecond))
	return idx
}

// Forward returns the transfers leaving stop.
func (x *Index) Forward(stop int32) []Transfer {
	if int(stop) >= len(x.forward) {
		return nil
	}
	return x.forward[stop]
}

// Reverse returns the transfers arriving at stop. From and To keep their forward
// meaning.
func (x *Index) Reverse(stop int32) []Transfer {
	if int(stop) >= len(x.reverse) {
		return nil
	}
	return x.reverse[stop]
}

// Blocked returns the number of rules the profile could not traverse.
func (x *Index) Blocked() int { return x.blocked }

// StopCount returns the number of stops covered.
func (x *Index) StopCount() int { return len(x.forward) }
