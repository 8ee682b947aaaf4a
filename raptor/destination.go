package raptor

// destinationArrival is a complete journey: a kept stop arrival plus an egress leg.
// Times are real times after shifting the access and egress legs towards the
// transit part.
type destinationArrival struct {
	state     int32
	egress    int32
	time      int
	departure int
	arrival   int
	transfers int
	cost      int
}

func (d *destinationArrival) duration() int { return d.arrival - d.departure }

// destinationCollector keeps the Pareto set of destination arrivals over time,
// transfers, cost (multi-criteria only) and journey duration. The opposite end of
// the journey is compared too, so every departure of the search window keeps its
// best journey.
type destinationCollector struct {
	calc  timeCalc
	mc    bool
	limit int

	arrivals []destinationArrival

	reachedCurrentRound bool
	firstRound          int
	// bestByTransfers[k] is the best time of a kept arrival with k transfers.
	bestByTransfers map[int]int

	onRejected func(RejectedPath)
}

func newDestinationCollector(calc timeCalc, mc bool, limit int, onRejected func(RejectedPath)) *destinationCollector {
	return &destinationCollector{
		calc:            calc,
		mc:              mc,
		limit:           limit,
		firstRound:      -1,
		bestByTransfers: map[int]int{},
		onRejected:      onRejected,
	}
}

func (c *destinationCollector) startRound() { c.reachedCurrentRound = false }

// endRound records the first round reaching the destination.
func (c *destinationCollector) endRound(round int) {
	if c.reachedCurrentRound && c.firstRound < 0 {
		c.firstRound = round
	}
}

func (c *destinationCollector) dominates(a, b *destinationArrival) bool {
	if !c.calc.notAfter(a.time, b.time) || a.transfers > b.transfers || a.duration() > b.duration() {
		return false
	}
	if c.calc.forward && a.departure < b.departure || !c.calc.forward && a.arrival > b.arrival {
		return false
	}
	return !c.mc || a.cost <= b.cost
}

// add offers d. It reports whether d was kept.
func (c *destinationCollector) add(d destinationArrival) bool {
	if c.calc.exceeds(d.time, c.limit) {
		c.reject(d, "time limit exceeded")
		return false
	}
	for i := range c.arrivals {
		if c.dominates(&c.arrivals[i], &d) {
			c.reject(d, "dominated")
			return false
		}
	}
	kept := c.arrivals[:0]
	for _, a := range c.arrivals {
		if !c.dominates(&d, &a) {
			kept = append(kept, a)
		}
	}
	c.arrivals = append(kept, d)

	c.reachedCurrentRound = true
	if best, ok := c.bestByTransfers[d.transfers]; !ok || c.calc.isBefore(d.time, best) {
		c.bestByTransfers[d.transfers] = d.time
	}
	return true
}

func (c *destinationCollector) reject(d destinationArrival, reason string) {
	if c.onRejected == nil {
		return
	}
	c.onRejected(RejectedPath{
		Departure: d.departure,
		Arrival:   d.arrival,
		Transfers: d.transfers,
		Cost:      d.cost,
		Reason:    reason,
	})
}

// bestTimeWithin returns the best destination time over arrivals with at most
// transfers transfers, or the unreached time.
func (c *destinationCollector) bestTimeWithin(transfers int) int {
	best := c.calc.unreached()
	for k, t := range c.bestByTransfers {
		if k <= transfers && c.calc.isBefore(t, best) {
			best = t
		}
	}
	return best
}

// maxRound returns the last round worth running: once the destination is reached
// at most additional more rounds are run.
func (c *destinationCollector) maxRound(rounds, additional int) int {
	if c.firstRound < 0 {
		return rounds
	}
	return min(rounds, c.firstRound+additional)
}
