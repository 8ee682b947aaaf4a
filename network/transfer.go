package network

// TransferRule is a static stop-to-stop connection. Its duration and cost depend on
// the routing profile and are computed per search profile by the transfer package.
type TransferRule struct {
	From int32
	To   int32
	// Distance in meters
	Distance float64
	// Edges is the street path, empty for a straight-line rule.
	Edges []int32
	// MinTime is a lower bound on the duration, from transfers.txt.
	MinTime int
}

// TransferRules holds the rules leaving each stop. It is shared by every request and
// compared by pointer identity in transfer cache keys, so it is never modified after
// the network is built.
type TransferRules struct {
	ByStop [][]TransferRule
}

// From returns the rules leaving stop.
func (r *TransferRules) From(stop int32) []TransferRule {
	if r == nil || int(stop) >= len(r.ByStop) {
		return nil
	}
	return r.ByStop[stop]
}

// Count returns the total number of rules.
func (r *TransferRules) Count() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, rules := range r.ByStop {
		n += len(rules)
	}
	return n
}
