package access

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/theoremus-urban-solutions/journey-planner/internal/warnings"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// ErrOutsideStreetNetwork is returned when a coordinate cannot be linked to the
// street graph.
var ErrOutsideStreetNetwork = errors.New("access: coordinate is outside the street network")

// NearbyStop is a stop reached by street from a coordinate, or the coordinate reached
// from the stop for egress.
type NearbyStop struct {
	Stop     int32
	Mode     street.Mode
	Duration int
	Cost     int
	// Distance in meters along the street path
	Distance float64
	// Edges of the street path in travel order, empty for straight-line legs.
	Edges    []int32
	Geometry orb.LineString
}

// Query describes one access or egress street search.
type Query struct {
	Coord   orb.Point
	Profile street.Profile
	// MaxDuration bounds the street path in seconds.
	MaxDuration int
	// Egress searches from the stops towards Coord.
	Egress   bool
	Warnings *warnings.Aggregator
}

// Finder searches the street network of a network snapshot.
type Finder struct {
	net             *network.Network
	maxLinkDistance float64
}

// NewFinder creates a finder. Coordinates further than maxLinkDistance meters from
// any street vertex are outside the street network.
func NewFinder(n *network.Network, maxLinkDistance float64) *Finder {
	if maxLinkDistance <= 0 {
		maxLinkDistance = street.DefaultMaxLinkDistance
	}
	return &Finder{net: n, maxLinkDistance: maxLinkDistance}
}

// Nearby returns the stops reachable within q.MaxDuration, ordered by stop index.
// Without a street graph distances are straight lines at the nominal speed of the
// mode.
func (f *Finder) Nearby(ctx context.Context, q Query) ([]NearbyStop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.net.Street == nil {
		return f.straightLine(q), nil
	}

	root, link, err := f.net.Street.NearestVertex(q.Coord, f.maxLinkDistance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutsideStreetNetwork, err)
	}
	mode := q.Profile.Mode.TraverseMode()
	speed := q.Profile.Speed(mode)
	linkSeconds := link / speed

	opts := []street.Option{street.WithTraverseMode(mode)}
	if q.MaxDuration > 0 {
		opts = append(opts, street.WithMaxDuration(float64(q.MaxDuration)-linkSeconds))
	}
	if q.Egress {
		opts = append(opts, street.WithReverse())
	}
	tree, err := street.ShortestPathTree(f.net.Street, root, q.Profile, opts...)
	if err != nil {
		return nil, fmt.Errorf("access street search: %w", err)
	}

	var out []NearbyStop
	for i := range f.net.Stops {
		s := &f.net.Stops[i]
		if q.Profile.Wheelchair && !s.Wheelchair {
			continue
		}
		if s.Vertex == network.NoVertex {
			q.Warnings.Add(warnings.NoVertexNearStop, s.ID)
			continue
		}
		path, ok := tree.Path(s.Vertex)
		if !ok {
			continue
		}
		geom := make(orb.LineString, 0, len(path.Geometry)+1)
		if q.Egress {
			geom = append(append(geom, path.Geometry...), q.Coord)
		} else {
			geom = append(append(geom, q.Coord), path.Geometry...)
		}
		out = append(out, NearbyStop{
			Stop:     int32(i),
			Mode:     q.Profile.Mode,
			Duration: int(math.Ceil(float64(path.Seconds) + linkSeconds)),
			Cost:     int(math.Round(path.Weight + linkSeconds*q.Profile.Reluctance(mode))),
			Distance: path.Meters + link,
			Edges:    path.Edges,
			Geometry: geom,
		})
	}
	return out, nil
}

func (f *Finder) straightLine(q Query) []NearbyStop {
	mode := q.Profile.Mode.TraverseMode()
	speed := q.Profile.Speed(mode)
	var out []NearbyStop
	for i := range f.net.Stops {
		s := &f.net.Stops[i]
		if q.Profile.Wheelchair && !s.Wheelchair {
			continue
		}
		d := geo.Distance(q.Coord, s.Coord)
		secs := int(math.Ceil(d / speed))
		if q.MaxDuration > 0 && secs > q.MaxDuration {
			continue
		}
		geom := orb.LineString{q.Coord, s.Coord}
		if q.Egress {
			geom = orb.LineString{s.Coord, q.Coord}
		}
		out = append(out, NearbyStop{
			Stop:     int32(i),
			Mode:     q.Profile.Mode,
			Duration: secs,
			Cost:     int(math.Round(float64(secs) * q.Profile.Reluctance(mode))),
			Distance: d,
			Geometry: geom,
		})
	}
	return out
}

// AtStop returns zero-length legs for a stop or station id. A stop with a parent
// station is expanded to every stop of the station.
func (f *Finder) AtStop(id string) ([]NearbyStop, error) {
	var stops []int32
	if i, err := f.net.StopIndex(id); err == nil {
		stops = f.net.StopsInGroup(i)
	} else {
		for si := range f.net.Stations {
			if f.net.Stations[si].ID == id {
				stops = f.net.Stations[si].Children
				break
			}
		}
		if stops == nil {
			return nil, err
		}
	}
	out := make([]NearbyStop, 0, len(stops))
	for _, s := range stops {
		c := f.net.Stop(s).Coord
		out = append(out, NearbyStop{Stop: s, Mode: street.ModeWalk, Geometry: orb.LineString{c, c}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stop < out[j].Stop })
	return out, nil
}
