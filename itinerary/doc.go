// Package itinerary is the user-facing projection of search results.
//
// A Mapper turns raptor paths, direct street paths and direct flex journeys into
// Itineraries: legs with places, wall-clock times, distances, geometry and the
// realtime alerts that concern them. The filter subpackage prunes the merged list.
package itinerary
