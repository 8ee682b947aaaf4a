// Package realtime applies GTFS-Realtime feeds to a network snapshot.
//
// Two feed types are used:
//   - Trip Updates: delays and cancellations, applied to a copy of the network
//   - Service Alerts: indexed by route, stop and trip and attached to itinerary legs
//
// Patching never touches the snapshot it starts from, so searches running against
// the previous snapshot are unaffected.
package realtime
