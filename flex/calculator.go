package flex

import (
	"fmt"
	"math"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/theoremus-urban-solutions/journey-planner/config"
	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// Calculator kinds accepted by NewCalculator.
const (
	KindDirect                   = "direct"
	KindStreet                   = "street"
	KindStreetWithDirectFallback = "streetWithDirectFallback"
)

// Path is the ride between two stops of a flex trip.
type Path struct {
	Meters   float64
	Seconds  int
	Geometry orb.LineString
}

// Calculator estimates the ride between two stops. ok is false when the ride is
// not possible.
type Calculator interface {
	Calculate(from, to *network.Stop) (p Path, ok bool)
}

// Params configures the calculators.
type Params struct {
	DirectSpeed      float64
	ExtraTime        int
	MaxDuration      int
	MaxVehicleSpeed  float64
	StreetTimeFactor float64
	CacheSize        int
}

// ParamsFromConfig reads calculator parameters from the flex config section.
func ParamsFromConfig(c config.FlexConfig) Params {
	return Params{
		DirectSpeed:      c.DirectSpeed,
		ExtraTime:        c.ExtraTime(),
		MaxDuration:      int(c.MaxTripDuration().Seconds()),
		MaxVehicleSpeed:  c.MaxVehicleSpeed,
		StreetTimeFactor: c.StreetTimeFactor,
		CacheSize:        c.PathCacheSize,
	}
}

// NewCalculator builds the calculator named by kind. Street based kinds need a
// street graph; reverse is set for egress calculators so that trees are rooted at
// the alight stop.
func NewCalculator(kind string, g *street.Graph, reverse bool, p Params) (Calculator, error) {
	direct := &DirectCalculator{Speed: p.DirectSpeed, ExtraTime: p.ExtraTime, MaxDuration: p.MaxDuration}
	switch kind {
	case "", KindDirect:
		return direct, nil
	case KindStreet, KindStreetWithDirectFallback:
		if g == nil {
			return nil, fmt.Errorf("flex calculator %q: %w", kind, street.ErrNilGraph)
		}
		sc := NewStreetCalculator(g, reverse, p)
		if kind == KindStreet {
			return sc, nil
		}
		return &FallbackCalculator{Primary: sc, Fallback: direct}, nil
	default:
		return nil, fmt.Errorf("unknown flex calculator %q", kind)
	}
}

// DirectCalculator assumes a straight line at a constant speed plus a fixed extra
// time for boarding and detours.
type DirectCalculator struct {
	Speed       float64
	ExtraTime   int
	MaxDuration int
}

func (c *DirectCalculator) Calculate(from, to *network.Stop) (Path, bool) {
	if c.Speed <= 0 {
		return Path{}, false
	}
	meters := geo.Distance(from.Coord, to.Coord)
	seconds := meters/c.Speed + float64(c.ExtraTime)
	if c.MaxDuration > 0 && seconds > float64(c.MaxDuration) {
		return Path{}, false
	}
	return Path{
		Meters:   meters,
		Seconds:  int(math.Round(seconds)),
		Geometry: orb.LineString{from.Coord, to.Coord},
	}, true
}

// StreetCalculator drives along the street graph. One shortest path tree is built
// per origin vertex and kept in an LRU cache, since the router asks for many
// destinations from the same stop.
type StreetCalculator struct {
	graph       *street.Graph
	reverse     bool
	timeFactor  float64
	maxSpeed    float64
	maxDuration int
	trees       gcache.Cache
}

// NewStreetCalculator creates a street calculator. A reverse calculator roots its
// trees at the destination vertex.
func NewStreetCalculator(g *street.Graph, reverse bool, p Params) *StreetCalculator {
	size := p.CacheSize
	if size <= 0 {
		size = config.DefaultFlexPathCacheSize
	}
	c := &StreetCalculator{
		graph:       g,
		reverse:     reverse,
		timeFactor:  p.StreetTimeFactor,
		maxSpeed:    p.MaxVehicleSpeed,
		maxDuration: p.MaxDuration,
	}
	if c.timeFactor <= 0 {
		c.timeFactor = 1
	}
	c.trees = gcache.New(size).
		LRU().
		LoaderFunc(func(k interface{}) (interface{}, error) {
			opts := []street.Option{street.WithTraverseMode(street.TraverseCar)}
			if c.maxDuration > 0 {
				opts = append(opts, street.WithMaxDuration(float64(c.maxDuration)))
			}
			if c.reverse {
				opts = append(opts, street.WithReverse())
			}
			tree, err := street.ShortestPathTree(c.graph, k.(int32), street.DefaultProfile(), opts...)
			if err != nil {
				return nil, err
			}
			return tree, nil
		}).
		Build()
	return c
}

func (c *StreetCalculator) Calculate(from, to *network.Stop) (Path, bool) {
	origin, target := from.Vertex, to.Vertex
	if c.reverse {
		origin, target = target, origin
	}
	if origin == network.NoVertex || target == network.NoVertex {
		return Path{}, false
	}
	v, err := c.trees.Get(origin)
	if err != nil {
		return Path{}, false
	}
	sp, ok := v.(*street.Tree).Path(target)
	if !ok {
		return Path{}, false
	}
	seconds := float64(sp.Seconds)
	if c.maxSpeed > 0 {
		seconds = max(seconds, sp.Meters/c.maxSpeed)
	}
	return Path{
		Meters:   sp.Meters,
		Seconds:  int(math.Round(seconds * c.timeFactor)),
		Geometry: sp.Geometry,
	}, true
}

// CacheStats returns the hit and miss counts of the tree cache.
func (c *StreetCalculator) CacheStats() (hits, misses uint64) {
	return c.trees.HitCount(), c.trees.MissCount()
}

// FallbackCalculator asks Fallback whenever Primary finds no ride.
type FallbackCalculator struct {
	Primary  Calculator
	Fallback Calculator
}

func (c *FallbackCalculator) Calculate(from, to *network.Stop) (Path, bool) {
	if p, ok := c.Primary.Calculate(from, to); ok {
		return p, true
	}
	return c.Fallback.Calculate(from, to)
}
