// Package routing answers plan requests. A request is split into a direct street
// search, a direct flex search and a transit search that run side by side; their
// itineraries go through one filter chain.
package routing
