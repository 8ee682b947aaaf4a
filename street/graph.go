package street

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Sentinel errors returned by graph lookups and searches.
var (
	ErrNilGraph       = errors.New("street: graph is nil")
	ErrVertexNotFound = errors.New("street: vertex not found")
	ErrNoVertexNearby = errors.New("street: no vertex within link distance")
	ErrUnreachable    = errors.New("street: destination unreachable")
)

// EdgeKind separates plain street edges from edges with fixed costs.
type EdgeKind uint8

const (
	EdgeStreet EdgeKind = iota
	EdgeStairs
	EdgeElevatorBoard
	EdgeElevatorHop
	// EdgeLink connects a stop to the street network.
	EdgeLink
)

// Permission is a bitmask of the traverse modes allowed on an edge.
type Permission uint8

const (
	PermissionWalk Permission = 1 << iota
	PermissionBike
	PermissionCar

	PermissionNone           Permission = 0
	PermissionPedestrian     Permission = PermissionWalk
	PermissionPedestrianBike Permission = PermissionWalk | PermissionBike
	PermissionAll            Permission = PermissionWalk | PermissionBike | PermissionCar
)

// Allows reports whether every bit of q is set in p.
func (p Permission) Allows(q Permission) bool { return p&q == q }

// Vertex is a street intersection or a stop link point.
type Vertex struct {
	Label string
	Coord orb.Point
}

// Edge is a directed street segment.
type Edge struct {
	From       int32
	To         int32
	Kind       EdgeKind
	Permission Permission
	// Length in meters
	Length               float64
	CarSpeed             float64
	BikeSafety           float64
	WheelchairAccessible bool
	Name                 string
	Geometry             orb.LineString
}

// Graph is an append-only arena of vertices and edges. Once handed to a search it
// must not be modified.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge
	Out      [][]int32
	In       [][]int32
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddVertex appends a vertex and returns its index.
func (g *Graph) AddVertex(label string, coord orb.Point) int32 {
	g.Vertices = append(g.Vertices, Vertex{Label: label, Coord: coord})
	g.Out = append(g.Out, nil)
	g.In = append(g.In, nil)
	return int32(len(g.Vertices) - 1)
}

// AddEdge appends a directed edge. A zero length is replaced by the spherical
// distance between the endpoints, and a missing geometry by the straight segment.
func (g *Graph) AddEdge(e Edge) (int32, error) {
	if !g.hasVertex(e.From) || !g.hasVertex(e.To) {
		return -1, ErrVertexNotFound
	}
	from, to := g.Vertices[e.From].Coord, g.Vertices[e.To].Coord
	if e.Length == 0 && e.Kind != EdgeElevatorBoard && e.Kind != EdgeElevatorHop {
		e.Length = geo.Distance(from, to)
	}
	if len(e.Geometry) == 0 {
		e.Geometry = orb.LineString{from, to}
	}
	id := int32(len(g.Edges))
	g.Edges = append(g.Edges, e)
	g.Out[e.From] = append(g.Out[e.From], id)
	g.In[e.To] = append(g.In[e.To], id)
	return id, nil
}

// AddStreet adds the edge in both directions and returns the forward edge index.
func (g *Graph) AddStreet(e Edge) (int32, error) {
	id, err := g.AddEdge(e)
	if err != nil {
		return -1, err
	}
	back := e
	back.From, back.To = e.To, e.From
	if len(e.Geometry) > 0 {
		back.Geometry = reversed(e.Geometry)
	}
	if _, err := g.AddEdge(back); err != nil {
		return -1, err
	}
	return id, nil
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

func (g *Graph) hasVertex(v int32) bool {
	return v >= 0 && int(v) < len(g.Vertices)
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return len(g.Vertices) }

// Vertex returns the vertex at index v.
func (g *Graph) Vertex(v int32) *Vertex { return &g.Vertices[v] }

// Edge returns the edge at index e.
func (g *Graph) Edge(e int32) *Edge { return &g.Edges[e] }

// OutEdges lists the edges leaving v.
func (g *Graph) OutEdges(v int32) []int32 { return g.Out[v] }

// InEdges lists the edges entering v.
func (g *Graph) InEdges(v int32) []int32 { return g.In[v] }

// NearestVertex finds the vertex closest to p within maxDistance meters. A linear
// scan is fine for the graph sizes served here.
func (g *Graph) NearestVertex(p orb.Point, maxDistance float64) (int32, float64, error) {
	if g == nil {
		return -1, 0, ErrNilGraph
	}
	best, bestDist := int32(-1), math.Inf(1)
	for i := range g.Vertices {
		d := geo.Distance(p, g.Vertices[i].Coord)
		if d < bestDist {
			best, bestDist = int32(i), d
		}
	}
	if best < 0 || bestDist > maxDistance {
		return -1, 0, ErrNoVertexNearby
	}
	return best, bestDist, nil
}
