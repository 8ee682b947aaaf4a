// Package warnings aggregates repeated routing anomalies so that a single query logs
// one consolidated line per anomaly kind instead of one line per occurrence.
package warnings

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// Warning kinds
const (
	// Search engine
	CostMismatch = "cost_mismatch"

	// Transfers
	TransferBlocked = "transfer_blocked"

	// Access / egress
	NoVertexNearStop     = "no_vertex_near_stop"
	FlexServiceNotActive = "flex_service_not_active"
	FlexPathNotFound     = "flex_path_not_found"

	// Realtime
	RealtimeTripNotFound = "rt_trip_not_found"
	RealtimeStopMismatch = "rt_stop_mismatch"
)

const maxExamples = 3

// info holds aggregated information about a specific warning kind
type info struct {
	count    int
	examples []string
}

// Aggregator collects warnings during a query and outputs consolidated summaries.
// It is safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	warnings map[string]*info
}

// NewAggregator creates a new warning aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		warnings: make(map[string]*info),
	}
}

// Add records a warning occurrence with an example description
func (a *Aggregator) Add(kind, example string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	w := a.warnings[kind]
	if w == nil {
		w = &info{examples: make([]string, 0, maxExamples)}
		a.warnings[kind] = w
	}
	w.count++
	if len(w.examples) < maxExamples {
		w.examples = append(w.examples, example)
	}
}

// Count returns how many times kind was recorded.
func (a *Aggregator) Count(kind string) int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if w := a.warnings[kind]; w != nil {
		return w.count
	}
	return 0
}

// Kinds lists the recorded kinds in sorted order.
func (a *Aggregator) Kinds() []string {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.warnings))
	for k := range a.warnings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LogAll outputs all collected warnings in consolidated format
func (a *Aggregator) LogAll(scope string) {
	for _, line := range a.Lines(scope) {
		log.Printf("%s", line)
	}
}

// Lines renders one message per recorded kind, sorted by kind.
func (a *Aggregator) Lines(scope string) []string {
	if a == nil {
		return nil
	}
	kinds := a.Kinds()
	a.mu.Lock()
	defer a.mu.Unlock()
	lines := make([]string, 0, len(kinds))
	for _, k := range kinds {
		lines = append(lines, formatMessage(k, scope, a.warnings[k]))
	}
	return lines
}

func formatMessage(kind, scope string, w *info) string {
	var description, action string

	switch kind {
	case CostMismatch:
		description = "paths whose reconstructed generalized cost differs from the search bookkeeping"
		action = "Keeping the search cost"
	case TransferBlocked:
		description = "transfers that cannot be traversed with the requested profile"
		action = "Treating the transfer as absent"
	case NoVertexNearStop:
		description = "stops without a linked street vertex"
		action = "Skipping street access for the stop"
	case FlexServiceNotActive:
		description = "flex trips without service on any searched date"
		action = "Skipping flex templates for the trip"
	case FlexPathNotFound:
		description = "flex stop pairs without a feasible vehicle path"
		action = "Omitting the flex candidate"
	case RealtimeTripNotFound:
		description = "trip updates for trips missing from the network snapshot"
		action = "Ignoring the update"
	case RealtimeStopMismatch:
		description = "stop time updates that do not match the scheduled stop sequence"
		action = "Keeping the scheduled time for the stop"
	default:
		description = "unknown issue"
		action = "Continuing with fallback behavior"
	}

	return fmt.Sprintf("%s has %s (%d occurrences). %s. Examples: %s",
		scope, description, w.count, action, strings.Join(w.examples, ", "))
}
