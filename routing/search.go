package routing

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/journey-planner/access"
	"github.com/theoremus-urban-solutions/journey-planner/flex"
	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/itinerary"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/raptor"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// search holds one request resolved against a snapshot. Times are seconds after
// midnight of date in the network time zone.
type search struct {
	router   *Router
	st       *state
	net      *network.Network
	req      *Request
	date     network.ServiceDate
	time     int
	window   int
	from, to itinerary.Place
	mapper   *itinerary.Mapper
	warnings *warnings.Aggregator

	flexOnce   sync.Once
	flexRouter *flex.Router
	flexErr    error

	// transitResp is set by the transit sub-search before it returns.
	transitResp *raptor.Response
}

func point(p itinerary.Place) orb.Point { return orb.Point{p.Lon, p.Lat} }

func (s *search) clock(secs int) time.Time {
	return s.date.Midnight(s.net.Location()).Add(time.Duration(secs) * time.Second)
}

// place resolves a location to a named coordinate. Stop and station ids take
// their coordinate from the network.
func (s *search) place(l Location, fallback string) itinerary.Place {
	name := l.Name
	if name == "" {
		name = fallback
	}
	if l.StopID != "" {
		if i, err := s.net.StopIndex(l.StopID); err == nil {
			st := s.net.Stop(i)
			if l.Name == "" {
				name = st.Name
			}
			return itinerary.Place{Name: name, StopID: st.ID, Lat: st.Coord.Lat(), Lon: st.Coord.Lon()}
		}
		for i := range s.net.Stations {
			if st := &s.net.Stations[i]; st.ID == l.StopID {
				if l.Name == "" {
					name = st.Name
				}
				return itinerary.Place{Name: name, StopID: st.ID, Lat: st.Coord.Lat(), Lon: st.Coord.Lon()}
			}
		}
	}
	return itinerary.PlaceAt(name, l.Point())
}

// searchedWindow returns the window the transit search actually covered, or the
// requested one when transit did not run.
func (s *search) searchedWindow() (time.Time, time.Duration) {
	start, window := s.time, s.window
	if resp := s.transitResp; resp != nil {
		window = resp.SearchWindow
		if s.req.ArriveBy {
			start = resp.LatestArrivalTime
		} else {
			start = resp.EarliestDepartureTime
		}
	}
	return s.clock(start), time.Duration(window) * time.Second
}

func (s *search) maxAccessEgress() int {
	return int(s.router.cfg.Routing.MaxAccessEgressDuration() / time.Second)
}

// nearby finds the stops around l reachable in mode. A stop location yields the
// stops of its group at no cost.
func (s *search) nearby(ctx context.Context, l Location, mode street.Mode, egress bool, field itinerary.InputField) ([]access.NearbyStop, error) {
	if l.StopID != "" {
		stops, err := s.st.finder.AtStop(l.StopID)
		if err != nil {
			return nil, validationError(itinerary.LocationNotFound, field)
		}
		return stops, nil
	}
	stops, err := s.st.finder.Nearby(ctx, access.Query{
		Coord:       l.Point(),
		Profile:     s.req.profile(mode),
		MaxDuration: s.maxAccessEgress(),
		Egress:      egress,
		Warnings:    s.warnings,
	})
	if errors.Is(err, access.ErrOutsideStreetNetwork) {
		return nil, validationError(itinerary.OutsideBounds, field)
	}
	return stops, err
}

// flex returns the flex router of the request, built on first use.
func (s *search) flex() (*flex.Router, error) {
	s.flexOnce.Do(func() {
		cfg := s.router.cfg
		idx, err := s.router.transfers.Get(s.net.Transfers, s.net.Street, s.req.profile(street.ModeWalk))
		if err != nil {
			s.flexErr = err
			return
		}
		s.flexRouter = flex.NewRouter(s.net, s.st.accessCalc, s.st.egressCalc, idx, flex.Options{
			Date:                 s.date,
			AdditionalFutureDays: cfg.Routing.AdditionalSearchDaysFuture,
			MaxTransferSeconds:   cfg.Flex.MaxTransferSeconds,
			Threads:              max(cfg.TransferCache.MaxThreads, 1),
			Warnings:             s.warnings,
		})
	})
	return s.flexRouter, s.flexErr
}

func (s *search) policy() access.Policy {
	f := s.router.cfg.Flex
	return access.Policy{
		AllowOnlyStopReachedOnBoard:                    f.AllowOnlyStopReachedOnBoard,
		MinimumStreetDistanceForFlex:                   f.MinimumStreetDistanceForFlex,
		MaximumStreetDistanceForWalkingIfFlexAvailable: f.MaximumStreetDistanceForWalkingIfFlexAvailable,
		RemoveWalkingIfFlexIsFaster:                    f.RemoveWalkingIfFlexIsFaster,
	}
}

// accessEgress builds the legs between one end of the journey and the transit
// network. Flexible mode walks to flex stops and adds the flex legs found there.
func (s *search) accessEgress(ctx context.Context, egress bool) ([]access.Leg, error) {
	l, mode, field := s.req.From, s.req.Modes.Access, itinerary.FieldFromPlace
	if egress {
		l, mode, field = s.req.To, s.req.Modes.Egress, itinerary.FieldToPlace
	}
	streetMode := mode
	if mode == street.ModeFlexible {
		streetMode = street.ModeWalk
	}
	nearby, err := s.nearby(ctx, l, streetMode, egress, field)
	if err != nil {
		return nil, err
	}
	legs := access.NewStreetLegs(nearby)

	if mode == street.ModeFlexible {
		fr, err := s.flex()
		if err != nil {
			return nil, err
		}
		var fl []*flex.Leg
		if egress {
			fl, err = fr.Egresses(ctx, nearby)
		} else {
			fl, err = fr.Accesses(ctx, nearby)
		}
		if err != nil {
			return nil, err
		}
		for _, f := range fl {
			legs = append(legs, f)
		}
	}

	p := s.policy()
	if mode == street.ModeFlexible && l.ForcedStopID != "" {
		p.ForcedStops = access.ForcedStopsOf(s.net, l.ForcedStopID)
	}
	legs = p.Apply(s.net, legs)
	if len(legs) == 0 {
		return nil, validationError(itinerary.NoStopsInRange, field)
	}
	return legs, nil
}

// transit runs access, egress and the Range-RAPTOR search.
func (s *search) transit(ctx context.Context) ([]itinerary.Itinerary, error) {
	if first, last, ok := s.net.ServicePeriod(); ok && (s.date < first || s.date > last) {
		return nil, validationError(itinerary.OutsideServicePeriod, itinerary.FieldDateTime)
	}

	var accesses, egresses []access.Leg
	var re [2][]RoutingError
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		legs, err := s.accessEgress(gctx, false)
		accesses = legs
		re[0], err = routingErrors(err)
		return err
	})
	g.Go(func() error {
		legs, err := s.accessEgress(gctx, true)
		egresses = legs
		re[1], err = routingErrors(err)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if errs := mergeErrors(re[0], re[1]...); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	idx, err := s.router.transfers.Get(s.net.Transfers, s.net.Street, s.req.profile(s.req.Modes.Transfer))
	if err != nil {
		return nil, err
	}
	tt, err := s.router.timetable(s.net, s.date)
	if err != nil {
		return nil, err
	}

	rreq := s.raptorRequest()
	rreq.Accesses = access.AsSearchLegs(accesses)
	rreq.Egresses = access.AsSearchLegs(egresses)
	rreq.Transfers = idx
	resp, err := raptor.Search(ctx, tt, rreq)
	if err != nil {
		return nil, err
	}
	s.transitResp = resp
	log.Printf("transit search %s: %d accesses, %d egresses, %d paths in %d iterations",
		s.date, len(accesses), len(egresses), len(resp.Paths), resp.Iterations)

	if len(resp.Paths) == 0 {
		return nil, s.noConnection(ctx, tt, rreq)
	}
	its := make([]itinerary.Itinerary, 0, len(resp.Paths))
	for i := range resp.Paths {
		its = append(its, s.mapper.FromPath(&resp.Paths[i]))
	}
	return its, nil
}

func (s *search) raptorRequest() *raptor.Request {
	rc := s.router.cfg.Routing
	rreq := raptor.NewRequest(raptor.NotSet)
	if s.req.ArriveBy {
		rreq.ArriveBy = true
		rreq.LatestArrivalTime = s.time
	} else {
		rreq.EarliestDepartureTime = s.time
	}
	rreq.SearchWindow = s.window
	rreq.MaxNumberOfTransfers = rc.MaxNumberOfTransfers
	if s.req.MaxTransfers != nil {
		rreq.MaxNumberOfTransfers = *s.req.MaxTransfers
	}
	rreq.AdditionalTransfersLimit = rc.AdditionalTransfersLimit
	rreq.BoardSlack = rc.BoardSlackSeconds
	rreq.TransferSlack = rc.TransferSlackSeconds
	rreq.IterationStep = rc.IterationDepartureStepSeconds
	rreq.BinarySearchThreshold = rc.ScheduledTripBinarySearchThreshold
	rreq.Warnings = s.warnings
	return rreq
}

// noConnection tells an empty search window from a destination transit cannot
// reach at all, by searching once from the start of the service day.
func (s *search) noConnection(ctx context.Context, tt *raptor.Timetable, req *raptor.Request) error {
	allDay := *req
	allDay.ArriveBy = false
	allDay.EarliestDepartureTime = 0
	allDay.LatestArrivalTime = raptor.NotSet
	allDay.SearchWindow = 0
	allDay.OnRejected = nil
	resp, err := raptor.Search(ctx, tt, &allDay)
	if err != nil {
		return err
	}
	if len(resp.Paths) > 0 {
		return validationError(itinerary.NoTransitConnectionInSearchWindow, itinerary.FieldNone)
	}
	return validationError(itinerary.NoTransitConnection, itinerary.FieldNone)
}

// directStreet routes from origin to destination on the street only. No path is
// not an error: transit reports unreachable locations.
func (s *search) directStreet(ctx context.Context) ([]itinerary.Itinerary, error) {
	if s.st.street == nil {
		return nil, nil
	}
	mode := s.req.Modes.Direct
	maxSeconds := int(s.router.cfg.Routing.MaxDirectStreetDuration() / time.Second)
	path, err := s.st.street.Route(ctx, point(s.from), point(s.to), s.req.profile(mode), maxSeconds)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("direct %s search found no path: %v", mode, err)
		return nil, nil
	}
	dep := s.time
	if s.req.ArriveBy {
		dep -= path.Seconds
	}
	return []itinerary.Itinerary{s.mapper.FromStreet(path, mode, s.date, dep)}, nil
}

// directFlex finds walk, flex ride, walk journeys without scheduled transit.
func (s *search) directFlex(ctx context.Context) ([]itinerary.Itinerary, error) {
	fr, err := s.flex()
	if err != nil {
		return nil, err
	}
	var from, to []access.NearbyStop
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		from, err = s.nearby(gctx, s.req.From, street.ModeWalk, false, itinerary.FieldFromPlace)
		return err
	})
	g.Go(func() (err error) {
		to, err = s.nearby(gctx, s.req.To, street.ModeWalk, true, itinerary.FieldToPlace)
		return err
	})
	if err := g.Wait(); err != nil {
		if _, rerr := routingErrors(err); rerr == nil {
			// transit reports the same locations
			return nil, nil
		}
		return nil, err
	}

	js, err := fr.Direct(ctx, from, to, s.time, s.req.ArriveBy)
	if err != nil {
		return nil, err
	}
	its := make([]itinerary.Itinerary, 0, len(js))
	for _, j := range js {
		its = append(its, s.mapper.FromFlex(j, s.date))
	}
	return its, nil
}
