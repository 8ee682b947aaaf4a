// Package street holds the street graph used for access, egress, transfers and flex
// vehicle paths.
//
// The graph is a flat arena of vertices and directed edges addressed by int32
// indices, with per-vertex outgoing and incoming edge lists so the same graph can
// be searched forward (depart-after) and backward (arrive-by).
//
// A Profile carries every street-relevant routing preference of a request. It is a
// comparable value so it can be used directly inside cache keys.
//
// ShortestPathTree runs a one-to-many Dijkstra search using the generalized weight
// of each traversal as the priority, and GraphRouter answers point-to-point queries
// on top of it.
package street
