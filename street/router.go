package street

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DefaultMaxLinkDistance is how far a coordinate may lie from its nearest vertex, in meters.
const DefaultMaxLinkDistance = 300

// Router answers point-to-point street queries.
type Router interface {
	Route(ctx context.Context, from, to orb.Point, p Profile, maxSeconds int) (Path, error)
}

// GraphRouter routes over an in-memory Graph.
type GraphRouter struct {
	graph           *Graph
	maxLinkDistance float64
}

// NewGraphRouter creates a router. A non-positive maxLinkDistance uses the default.
func NewGraphRouter(g *Graph, maxLinkDistance float64) *GraphRouter {
	if maxLinkDistance <= 0 {
		maxLinkDistance = DefaultMaxLinkDistance
	}
	return &GraphRouter{graph: g, maxLinkDistance: maxLinkDistance}
}

// Graph returns the underlying graph.
func (r *GraphRouter) Graph() *Graph { return r.graph }

// Route finds the least-weight path between two coordinates. The straight links
// between each coordinate and its nearest vertex are added at the mode's nominal speed.
func (r *GraphRouter) Route(ctx context.Context, from, to orb.Point, p Profile, maxSeconds int) (Path, error) {
	if err := ctx.Err(); err != nil {
		return Path{}, err
	}
	src, srcLink, err := r.graph.NearestVertex(from, r.maxLinkDistance)
	if err != nil {
		return Path{}, fmt.Errorf("origin: %w", err)
	}
	dst, dstLink, err := r.graph.NearestVertex(to, r.maxLinkDistance)
	if err != nil {
		return Path{}, fmt.Errorf("destination: %w", err)
	}

	mode := p.Mode.TraverseMode()
	speed := p.Speed(mode)
	linkSeconds := (srcLink + dstLink) / speed
	budget := math.Inf(1)
	if maxSeconds > 0 {
		budget = float64(maxSeconds) - linkSeconds
	}

	tree, err := ShortestPathTree(r.graph, src, p, WithMaxDuration(budget))
	if err != nil {
		return Path{}, err
	}
	path, ok := tree.Path(dst)
	if !ok {
		return Path{}, ErrUnreachable
	}

	path.Seconds = int(math.Ceil(tree.seconds[dst] + linkSeconds))
	path.Weight += linkSeconds * p.Reluctance(mode)
	path.Meters += srcLink + dstLink
	geom := make(orb.LineString, 0, len(path.Geometry)+2)
	geom = append(geom, from)
	geom = append(geom, path.Geometry...)
	geom = append(geom, to)
	path.Geometry = geom
	return path, nil
}
