// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags. Every
// section has defaults, so an almost empty file is a valid configuration; only
// values that are present are checked against their constraints.
//
// # Sections
//
//   - server: HTTP port and response memo TTL
//   - network: GTFS source, snapshot cache and transfer generation radius
//   - routing: search tuning, slack, timeouts and the parallel routing toggle
//   - transferCache: size and worker count of the transfer index cache
//   - flex: flex path calculator choice and the flex access/egress policies
//   - itineraryFilters: filter chain parameters
//   - realtime: optional GTFS-Realtime feeds and their reload interval
//   - queryLog: optional sqlite query log
package config
