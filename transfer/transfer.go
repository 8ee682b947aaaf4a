package transfer

import (
	"math"

	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// Transfer is a rule evaluated for one street profile.
type Transfer struct {
	From     int32
	To       int32
	Duration int
	Cost     int
	Distance float64
	// Edges is the street path in travel order of the forward transfer.
	Edges []int32
}

// TraverseMode returns the mode a transfer is walked or ridden in.
func TraverseMode(p street.Profile) street.TraverseMode {
	if p.Mode.IncludesBiking() && p.Mode.AllowsTransfer() {
		return street.TraverseBicycle
	}
	return street.TraverseWalk
}

// Evaluate computes duration and cost of rule for profile p. ok is false when the
// street path cannot be traversed with p; the transfer is then absent.
func Evaluate(rule network.TransferRule, g *street.Graph, p street.Profile) (Transfer, bool) {
	t := Transfer{From: rule.From, To: rule.To, Distance: rule.Distance, Edges: rule.Edges}
	mode := TraverseMode(p)

	var seconds, weight float64
	if len(rule.Edges) == 0 || g == nil {
		speed := p.Speed(mode)
		if speed <= 0 {
			return Transfer{}, false
		}
		seconds = rule.Distance / speed
		weight = seconds * p.Reluctance(mode)
		t.Edges = nil
	} else {
		for _, id := range rule.Edges {
			if int(id) >= len(g.Edges) {
				return Transfer{}, false
			}
			tr, ok := p.Traverse(g.Edge(id), mode)
			if !ok {
				return Transfer{}, false
			}
			seconds += tr.Seconds
			weight += tr.Weight
		}
	}

	t.Duration = int(math.Ceil(seconds))
	t.Cost = int(math.Round(weight))
	if rule.MinTime > t.Duration {
		// time spent waiting out the minimum transfer time costs one unit per second
		t.Cost += rule.MinTime - t.Duration
		t.Duration = rule.MinTime
	}
	return t, true
}
