// Package access finds the ways into and out of the stop network around a
// coordinate or a stop.
//
// A Finder runs one street search from the origin (forward) or towards the
// destination (reverse) and turns every reached stop into a NearbyStop. Stop
// references are expanded through their parent station, so asking for a station or
// one of its platforms reaches every platform at no cost. StreetLeg wraps a
// NearbyStop as a leg the search can use.
//
// Flex legs come from the flex package. Policy prunes the combined list of street
// and flex legs when both are offered for the same stops.
package access
