// Package raptor implements Range-RAPTOR, the round based journey search over the
// scheduled part of a network.
//
// Round r relaxes every pattern serving a stop improved in round r-1 and then every
// transfer leaving a stop improved by transit in round r, so a state reached in
// round r has used r rides. The search is repeated for departure times stepping
// backwards through the search window; states survive between iterations, which
// makes later departures prune earlier ones.
//
// Two profiles exist. Standard keeps the earliest arrival per stop and round.
// MultiCriteria keeps, per stop, the Pareto set over arrival time, round and
// generalized cost. Destination arrivals are collected in a Pareto set that also
// compares journey duration.
//
// Arrive-by queries run the same machinery backwards in time: timeCalc flips every
// comparison and the roles of boarding and alighting are swapped. Paths are always
// returned in travel order.
//
// Arrival states live in a flat arena and point to their predecessor by index. A
// state is a tagged union over access, transit and transfer arrivals.
package raptor
