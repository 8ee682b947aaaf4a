// Package flex turns on-demand trips into access and egress legs.
//
// A flex trip has no timetable. Each stop carries a window during which the vehicle
// may pick up or drop off, and the ride time between two stops comes from a
// Calculator. The Router combines the nearby stops found on streets with every
// boardable and alightable position of the trips serving them, optionally extends
// the ride with a short walking transfer, and hands the result to the search as
// legs with opening hours.
package flex
