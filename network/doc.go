// Package network holds the read-only transit network snapshot searched by the
// journey planner.
//
// A Network is built once, either programmatically with a Builder or from a GTFS
// zip with LoadGTFS, and then shared by every request. Stops are addressed by a
// dense int32 index that stays stable for the lifetime of the snapshot. Trips are
// grouped into patterns (same route, same stop sequence, same boarding rules) and
// overtaking trips are split into separate patterns so that departures are sorted
// at every position of a pattern.
//
// Realtime updates never mutate a snapshot: Patch returns a new Network that shares
// every untouched pattern with its parent.
//
// # Caching
//
// Parsing a large GTFS feed and generating transfers is slow, so a built Network can
// be serialized with gob:
//
//	net, _ := network.LoadGTFS("gtfs.zip", network.LoadOptions{})
//	_ = network.SerializeToFile(net, "/cache/network.gob")
//	cached, err := network.DeserializeFromFile("/cache/network.gob")
package network
