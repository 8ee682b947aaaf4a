// Package transfer turns the static transfer rules of a network into profile
// dependent transfers and caches the resulting indexes.
//
// A rule only knows its endpoints, its distance and the street edges walked. Its
// duration and generalized cost depend on the walk speed, the reluctances and the
// accessibility constraints of a request, so every distinct street profile gets its
// own Index. Indexes are expensive to build and requests tend to share profiles, so
// Cache keeps the most recently used ones:
//
//	cache := transfer.NewCache(25, 3, true)
//	idx, err := cache.Get(net.Transfers, net.Street, profile)
//	for _, t := range idx.Forward(stop) { ... }
//
// The cache key compares the profile by value and the rule set and street graph by
// pointer. Both are immutable parts of a network snapshot and a new snapshot always
// carries new pointers.
package transfer
