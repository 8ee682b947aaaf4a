// Package filter prunes a merged itinerary list according to product policy.
//
// A Chain runs Flaggers in order. Each flagger sees the itineraries that survived
// the flaggers before it, unless it asks to see flagged ones too, and tags the ones
// it wants removed. Outside debug mode tagged itineraries are dropped; in debug mode
// they are kept with their tags. The chain then sorts and limits the result and
// reports routing errors when every itinerary was removed.
package filter
