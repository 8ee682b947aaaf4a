package routing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/journey-planner/access"
	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/flex"
	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
	"github.com/theoremus-urban-solutions/journey-planner/itinerary/filter"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/raptor"
	"github.com/theoremus-urban-solutions/journey-planner/realtime"
	"github.com/theoremus-urban-solutions/journey-planner/street"
	"github.com/theoremus-urban-solutions/journey-planner/transfer"
)

const timetableCacheSize = 8

// Response is the answer to one plan request.
type Response struct {
	RequestID          string                `json:"requestId"`
	Itineraries        []itinerary.Itinerary `json:"itineraries"`
	Errors             []RoutingError        `json:"routingErrors,omitempty"`
	NextPageCursor     string                `json:"nextPageCursor,omitempty"`
	PreviousPageCursor string                `json:"previousPageCursor,omitempty"`
	// SearchWindowUsed in seconds
	SearchWindowUsed int `json:"searchWindowUsed"`
	// Warnings is only filled for debug requests.
	Warnings []string `json:"warnings,omitempty"`
}

// Router plans journeys on the current snapshot. It is safe for concurrent use;
// SetSnapshot swaps the data under running requests without disturbing them.
type Router struct {
	cfg        config.AppConfig
	state      atomic.Pointer[state]
	transfers  *transfer.Cache
	timetables gcache.Cache
}

// state is everything derived from one snapshot.
type state struct {
	snap       realtime.Snapshot
	finder     *access.Finder
	street     street.Router
	accessCalc flex.Calculator
	egressCalc flex.Calculator
}

type timetableKey struct {
	net  *network.Network
	date network.ServiceDate
}

// NewRouter creates a router over snap.
func NewRouter(cfg config.AppConfig, snap realtime.Snapshot) (*Router, error) {
	r := &Router{
		cfg:       cfg,
		transfers: transfer.NewCache(cfg.TransferCache.MaxSize, cfg.TransferCache.MaxThreads, cfg.Routing.IsParallelRouting()),
	}
	days := cfg.Routing.AdditionalSearchDaysFuture
	r.timetables = gcache.New(timetableCacheSize).
		LRU().
		LoaderFunc(func(k interface{}) (interface{}, error) {
			key := k.(timetableKey)
			start := time.Now()
			tt := raptor.BuildTimetable(key.net, key.date, days)
			log.Printf("built timetable for %s (+%d days) in %s", key.date, days, time.Since(start))
			return tt, nil
		}).
		Build()
	if err := r.SetSnapshot(snap); err != nil {
		return nil, err
	}
	return r, nil
}

// SetSnapshot replaces the data new requests route on.
func (r *Router) SetSnapshot(snap realtime.Snapshot) error {
	n := snap.Network
	if n == nil {
		return errors.New("routing: snapshot has no network")
	}
	params := flex.ParamsFromConfig(r.cfg.Flex)
	accessCalc, err := flex.NewCalculator(r.cfg.Flex.Calculator, n.Street, false, params)
	if err != nil {
		return fmt.Errorf("flex access calculator: %w", err)
	}
	egressCalc, err := flex.NewCalculator(r.cfg.Flex.Calculator, n.Street, true, params)
	if err != nil {
		return fmt.Errorf("flex egress calculator: %w", err)
	}
	st := &state{
		snap:       snap,
		finder:     access.NewFinder(n, 0),
		accessCalc: accessCalc,
		egressCalc: egressCalc,
	}
	if n.Street != nil {
		st.street = street.NewGraphRouter(n.Street, 0)
	}
	r.state.Store(st)
	return nil
}

// Snapshot returns the data requests currently route on.
func (r *Router) Snapshot() realtime.Snapshot { return r.state.Load().snap }

func (r *Router) timetable(n *network.Network, date network.ServiceDate) (*raptor.Timetable, error) {
	v, err := r.timetables.Get(timetableKey{net: n, date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to get timetable from cache: %w", err)
	}
	return v.(*raptor.Timetable), nil
}

type subSearch func(ctx context.Context) ([]itinerary.Itinerary, error)

// Route plans req. Routing errors of a sub-search do not stop the others; they are
// returned with the itineraries found elsewhere. Route fails with a
// *ValidationError only when no itinerary was found at all.
func (r *Router) Route(ctx context.Context, req *Request) (*Response, error) {
	if req.PageCursor != "" {
		c, err := DecodePageCursor(req.PageCursor)
		if err != nil {
			return nil, err
		}
		paged := *req
		c.apply(&paged)
		req = &paged
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if d := r.cfg.Routing.SearchTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	id := uuid.NewString()
	s := r.newSearch(r.state.Load(), req)

	var searches []subSearch
	switch req.Modes.Direct {
	case street.ModeNotSet:
	case street.ModeFlexible:
		searches = append(searches, s.directFlex)
	default:
		searches = append(searches, s.directStreet)
	}
	if req.Modes.Transit {
		searches = append(searches, s.transit)
	}

	results := make([][]itinerary.Itinerary, len(searches))
	errs := make([][]RoutingError, len(searches))
	run := func(ctx context.Context, i int) error {
		its, err := searches[i](ctx)
		re, err := routingErrors(err)
		if err != nil {
			return err
		}
		results[i], errs[i] = its, re
		return nil
	}

	var err error
	if r.cfg.Routing.IsParallelRouting() {
		g, gctx := errgroup.WithContext(ctx)
		for i := range searches {
			g.Go(func() error { return run(gctx, i) })
		}
		err = g.Wait()
	} else {
		for i := range searches {
			if err = run(ctx, i); err != nil {
				break
			}
		}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}

	var all []itinerary.Itinerary
	var routingErrs []RoutingError
	for i := range searches {
		all = append(all, results[i]...)
		routingErrs = mergeErrors(routingErrs, errs[i]...)
	}

	windowStart, window := s.searchedWindow()
	fc := r.cfg.ItineraryFilters
	if req.NumItineraries > 0 {
		fc.NumItineraries = req.NumItineraries
	}
	fc.Debug = fc.Debug || req.Debug
	res := filter.NewChain(fc, filter.NewOutsideSearchWindow(windowStart, window, req.ArriveBy), req.ArriveBy).Filter(all)
	routingErrs = mergeErrors(routingErrs, res.Errors...)

	var firstRemoved time.Time
	if it := res.FirstRemoved; it != nil {
		firstRemoved = it.StartTime
		if req.ArriveBy {
			firstRemoved = it.EndTime
		}
	}
	next, prev := pageCursors(windowStart, window, req.ArriveBy, firstRemoved)

	resp := &Response{
		RequestID:          id,
		Itineraries:        res.Itineraries,
		Errors:             routingErrs,
		NextPageCursor:     next.Encode(),
		PreviousPageCursor: prev.Encode(),
		SearchWindowUsed:   int(window / time.Second),
	}
	if fc.Debug {
		resp.Warnings = s.warnings.Lines("plan " + id)
	}
	s.warnings.LogAll("plan " + id)
	log.Printf("plan %s: %d of %d itineraries, %d routing errors in %s",
		id, len(res.Itineraries), len(all), len(routingErrs), time.Since(start))

	if len(resp.Itineraries) == 0 && len(routingErrs) > 0 {
		return nil, &ValidationError{Errors: routingErrs}
	}
	return resp, nil
}

// newSearch resolves the request against the snapshot.
func (r *Router) newSearch(st *state, req *Request) *search {
	n := st.snap.Network
	local := req.DateTime.In(n.Location())
	date := network.DateOf(local)

	window := req.SearchWindow
	if window == 0 {
		window = r.cfg.Routing.DefaultSearchWindow()
	}
	if limit := r.cfg.Routing.MaxSearchWindow(); limit > 0 && window > limit {
		window = limit
	}

	s := &search{
		router:   r,
		st:       st,
		net:      n,
		req:      req,
		date:     date,
		time:     int(local.Sub(date.Midnight(n.Location())) / time.Second),
		window:   int(window / time.Second),
		warnings: warnings.NewAggregator(),
	}
	s.from = s.place(req.From, "Origin")
	s.to = s.place(req.To, "Destination")
	s.mapper = itinerary.NewMapper(n, st.snap.Alerts, s.from, s.to)
	return s
}
