package raptor

import (
	"errors"

	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

// NotSet marks an unset time.
const NotSet = network.Unavailable

// Default tuning values.
const (
	DefaultIterationStep         = 60
	DefaultBinarySearchThreshold = 50
	DefaultMaxJourneyDuration    = 24 * 3600
	DefaultBoardCost             = 600
)

// Profile selects the dominance criteria.
type Profile uint8

const (
	// Standard compares arrival time and round only.
	Standard Profile = iota
	// MultiCriteria also compares generalized cost.
	MultiCriteria
)

func (p Profile) String() string {
	if p == MultiCriteria {
		return "multi-criteria"
	}
	return "standard"
}

// CostParams holds the generalized cost model of transit legs.
type CostParams struct {
	BoardCost      int
	TransferCost   int
	WaitReluctance float64
	// TransitReluctance applies to riding time; ModeReluctance overrides it per mode.
	TransitReluctance float64
	ModeReluctance    map[network.TransitMode]float64
}

// DefaultCostParams returns the default cost model.
func DefaultCostParams() CostParams {
	return CostParams{
		BoardCost:         DefaultBoardCost,
		WaitReluctance:    1.0,
		TransitReluctance: 1.0,
	}
}

func (c *CostParams) reluctance(mode network.TransitMode) float64 {
	if r, ok := c.ModeReluctance[mode]; ok {
		return r
	}
	return c.TransitReluctance
}

// RejectedPath describes a destination arrival that did not enter the result.
type RejectedPath struct {
	Departure int
	Arrival   int
	Transfers int
	Cost      int
	Reason    string
}

// Request is one search. Times are seconds after midnight of the timetable date.
type Request struct {
	// EarliestDepartureTime is required for depart-after searches.
	EarliestDepartureTime int
	// LatestArrivalTime is required for arrive-by searches. In depart-after searches
	// it limits destination arrivals when set.
	LatestArrivalTime int
	// SearchWindow in seconds; 0 runs a single iteration.
	SearchWindow int
	ArriveBy     bool
	Profile      Profile

	// Accesses start at the origin, Egresses end at the destination, regardless
	// of the search direction.
	Accesses  []AccessEgress
	Egresses  []AccessEgress
	Transfers *transfer.Index

	MaxNumberOfTransfers     int
	AdditionalTransfersLimit int
	MaxJourneyDuration       int
	BoardSlack               int
	TransferSlack            int
	IterationStep            int
	BinarySearchThreshold    int
	Cost                     CostParams

	// Warnings receives cost mismatches found during path reconstruction.
	Warnings *warnings.Aggregator
	// OnRejected is called for destination arrivals dropped by the collector.
	OnRejected func(RejectedPath)
}

// Request validation errors.
var (
	ErrMissingDepartureTime = errors.New("raptor: earliest departure time is required")
	ErrMissingArrivalTime   = errors.New("raptor: latest arrival time is required for arrive-by")
	ErrNegativeWindow       = errors.New("raptor: search window is negative")
	ErrMissingTransfers     = errors.New("raptor: transfer index is required")
)

// Validate checks the request and fills unset tuning values with defaults.
func (r *Request) Validate() error {
	if r.ArriveBy && r.LatestArrivalTime == NotSet {
		return ErrMissingArrivalTime
	}
	if !r.ArriveBy && r.EarliestDepartureTime == NotSet {
		return ErrMissingDepartureTime
	}
	if r.SearchWindow < 0 {
		return ErrNegativeWindow
	}
	if r.Transfers == nil {
		return ErrMissingTransfers
	}
	if r.IterationStep <= 0 {
		r.IterationStep = DefaultIterationStep
	}
	if r.BinarySearchThreshold <= 0 {
		r.BinarySearchThreshold = DefaultBinarySearchThreshold
	}
	if r.MaxJourneyDuration <= 0 {
		r.MaxJourneyDuration = DefaultMaxJourneyDuration
	}
	if r.MaxNumberOfTransfers < 0 {
		r.MaxNumberOfTransfers = 0
	}
	if r.Cost.TransitReluctance == 0 {
		r.Cost.TransitReluctance = 1
	}
	return nil
}

// maxRounds is the number of rides a journey may use.
func (r *Request) maxRounds() int { return r.MaxNumberOfTransfers + 1 }

// NewRequest returns a depart-after request at edt with default tuning.
func NewRequest(edt int) *Request {
	return &Request{
		EarliestDepartureTime:    edt,
		LatestArrivalTime:        NotSet,
		Profile:                  MultiCriteria,
		MaxNumberOfTransfers:     12,
		AdditionalTransfersLimit: 5,
		IterationStep:            DefaultIterationStep,
		BinarySearchThreshold:    DefaultBinarySearchThreshold,
		MaxJourneyDuration:       DefaultMaxJourneyDuration,
		Cost:                     DefaultCostParams(),
	}
}
