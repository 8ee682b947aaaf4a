package street

import (
	"container/heap"
	"math"

	"github.com/paulmach/orb"
)

// Options configures a shortest path tree search.
type Options struct {
	// Reverse searches incoming edges, so the tree holds paths ending at the root.
	Reverse bool
	// MaxDuration caps the elapsed seconds of any explored path.
	MaxDuration float64
	// MaxDistance caps the meters of any explored path.
	MaxDistance float64
	// Mode overrides the traverse mode derived from the profile.
	Mode *TraverseMode
}

// Option represents a functional option for configuring ShortestPathTree.
type Option func(*Options)

// WithReverse searches backwards from the root.
func WithReverse() Option {
	return func(o *Options) { o.Reverse = true }
}

// WithMaxDuration stops exploring paths longer than seconds.
func WithMaxDuration(seconds float64) Option {
	return func(o *Options) { o.MaxDuration = seconds }
}

// WithMaxDistance stops exploring paths longer than meters.
func WithMaxDistance(meters float64) Option {
	return func(o *Options) { o.MaxDistance = meters }
}

// WithTraverseMode forces the traverse mode instead of the profile's primary vehicle.
func WithTraverseMode(m TraverseMode) Option {
	return func(o *Options) { o.Mode = &m }
}

// DefaultOptions explores the whole graph forward.
func DefaultOptions() Options {
	return Options{MaxDuration: math.Inf(1), MaxDistance: math.Inf(1)}
}

// Tree is the result of a one-to-many search. Weight is the priority, so the tree
// holds the least generalized-cost path to every reached vertex.
type Tree struct {
	graph    *Graph
	root     int32
	reverse  bool
	weight   []float64
	seconds  []float64
	meters   []float64
	prevEdge []int32
}

// ShortestPathTree runs Dijkstra from root with lazy decrease-key.
func ShortestPathTree(g *Graph, root int32, p Profile, opts ...Option) (*Tree, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if !g.hasVertex(root) {
		return nil, ErrVertexNotFound
	}
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	mode := p.Mode.TraverseMode()
	if cfg.Mode != nil {
		mode = *cfg.Mode
	}

	n := g.VertexCount()
	t := &Tree{
		graph:    g,
		root:     root,
		reverse:  cfg.Reverse,
		weight:   make([]float64, n),
		seconds:  make([]float64, n),
		meters:   make([]float64, n),
		prevEdge: make([]int32, n),
	}
	for i := range t.weight {
		t.weight[i] = math.Inf(1)
		t.prevEdge[i] = -1
	}
	visited := make([]bool, n)
	t.weight[root] = 0

	pq := make(vertexPQ, 0, 64)
	heap.Push(&pq, &vertexItem{id: root, weight: 0})

	for pq.Len() > 0 {
		item := heap.Pop(&pq).(*vertexItem)
		u := item.id
		if visited[u] {
			continue
		}
		visited[u] = true

		edges := g.Out[u]
		if cfg.Reverse {
			edges = g.In[u]
		}
		for _, eid := range edges {
			e := &g.Edges[eid]
			v := e.To
			if cfg.Reverse {
				v = e.From
			}
			if visited[v] {
				continue
			}
			tr, ok := p.Traverse(e, mode)
			if !ok {
				continue
			}
			secs := t.seconds[u] + tr.Seconds
			meters := t.meters[u] + e.Length
			if secs > cfg.MaxDuration || meters > cfg.MaxDistance {
				continue
			}
			w := t.weight[u] + tr.Weight
			if w >= t.weight[v] {
				continue
			}
			t.weight[v] = w
			t.seconds[v] = secs
			t.meters[v] = meters
			t.prevEdge[v] = eid
			heap.Push(&pq, &vertexItem{id: v, weight: w})
		}
	}
	return t, nil
}

// Root returns the vertex the search started from.
func (t *Tree) Root() int32 { return t.root }

// Reached reports whether v was reached within the limits.
func (t *Tree) Reached(v int32) bool {
	return v >= 0 && int(v) < len(t.weight) && !math.IsInf(t.weight[v], 1)
}

// Seconds returns the elapsed time to v, rounded up.
func (t *Tree) Seconds(v int32) int { return int(math.Ceil(t.seconds[v])) }

// Weight returns the generalized weight to v.
func (t *Tree) Weight(v int32) float64 { return t.weight[v] }

// Meters returns the street distance to v.
func (t *Tree) Meters(v int32) float64 { return t.meters[v] }

// Path is a street path in travel order.
type Path struct {
	Edges    []int32
	Seconds  int
	Weight   float64
	Meters   float64
	Geometry orb.LineString
}

// Path rebuilds the path between the root and v. For a reverse tree the path starts
// at v and ends at the root.
func (t *Tree) Path(v int32) (Path, bool) {
	if !t.Reached(v) {
		return Path{}, false
	}
	var edges []int32
	for cur := v; cur != t.root; {
		eid := t.prevEdge[cur]
		edges = append(edges, eid)
		if t.reverse {
			cur = t.graph.Edges[eid].To
		} else {
			cur = t.graph.Edges[eid].From
		}
	}
	if !t.reverse {
		for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
			edges[i], edges[j] = edges[j], edges[i]
		}
	}
	return Path{
		Edges:    edges,
		Seconds:  t.Seconds(v),
		Weight:   t.weight[v],
		Meters:   t.meters[v],
		Geometry: t.graph.geometry(edges),
	}, true
}

func (g *Graph) geometry(edges []int32) orb.LineString {
	var ls orb.LineString
	for _, eid := range edges {
		for _, p := range g.Edges[eid].Geometry {
			if n := len(ls); n > 0 && ls[n-1] == p {
				continue
			}
			ls = append(ls, p)
		}
	}
	return ls
}

type vertexItem struct {
	id     int32
	weight float64
}

// vertexPQ is a min-heap of *vertexItem ordered by weight. Stale entries are skipped
// when popped.
type vertexPQ []*vertexItem

func (pq vertexPQ) Len() int            { return len(pq) }
func (pq vertexPQ) Less(i, j int) bool  { return pq[i].weight < pq[j].weight }
func (pq vertexPQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *vertexPQ) Push(x interface{}) { *pq = append(*pq, x.(*vertexItem)) }

func (pq *vertexPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
