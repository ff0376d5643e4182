package hnsw

import (
	"container/heap"
	"math"
	"math/rand"

	"github.com/bits-and-blooms/bitset"
)

// node is one element of the navigable small world graph. connections
// holds the neighbour lists per layer.
type node struct {
	connections [][]uint32
	vector      []float32
	layer       int
}

// graph is a hierarchical navigable small world structure. It is not
// safe for concurrent use; the owning Index serializes access.
//
// Node 0 is a sentinel entry point with a zero vector and never
// corresponds to a stored chunk.
type graph struct {
	dimension int
	m         int     // max connections per node per layer
	mmax0     int     // max connections on layer 0
	ml        float64 // level generation normalization factor
	ep        uint32  // current entry point
	maxLevel  int
	ef        int // construction-time candidate list size
	metric    Metric
	nodes     []*node
}

func newGraph(dimension, m, ef int, metric Metric) *graph {
	if m < 2 {
		m = 2
	}
	return &graph{
		dimension: dimension,
		m:         m,
		mmax0:     2 * m,
		ml:        1 / math.Log(float64(m)),
		ef:        ef,
		metric:    metric,
		nodes: []*node{{
			vector:      make([]float32, dimension),
			connections: make([][]uint32, 2*m+1),
		}},
	}
}

// insert adds a vector and returns its node id. The vector is stored as
// given; the caller owns normalization.
func (g *graph) insert(v []float32) uint32 {
	id := uint32(len(g.nodes))

	// The sampled layer is unbounded. The slice must cover it even when
	// it exceeds m, or a later descend through this node as entry point
	// indexes past the end.
	layer := int(math.Floor(-math.Log(rand.Float64()) * g.ml))
	n := &node{
		vector:      v,
		layer:       layer,
		connections: make([][]uint32, max(layer, g.m)+1),
	}

	currID, currDist := g.descend(v, n.layer)

	top := &candidateQueue{}
	for level := min(n.layer, g.maxLevel); level >= 0; level-- {
		g.searchLayer(v, &candidate{node: currID, distance: currDist}, top, g.ef, level)
		g.truncate(top, g.m)

		n.connections[level] = make([]uint32, top.Len())
		for i := top.Len() - 1; i >= 0; i-- {
			c, _ := heap.Pop(top).(*candidate)
			n.connections[level][i] = c.node
		}
	}

	g.nodes = append(g.nodes, n)

	for level := min(n.layer, g.maxLevel); level >= 0; level-- {
		for _, neighbour := range n.connections[level] {
			g.link(neighbour, id, level)
		}
	}

	if n.layer > g.maxLevel {
		g.ep = id
		g.maxLevel = n.layer
	}

	return id
}

// descend walks down the layers above target, greedily following the
// closest neighbour, and returns the best entry for the target layer.
func (g *graph) descend(v []float32, target int) (uint32, float32) {
	currID := g.ep
	curr := g.nodes[currID]
	currDist := g.metric.distance(curr.vector, v)

	for level := curr.layer; level > target; level-- {
		changed := true
		for changed {
			changed = false
			for _, id := range g.nodes[currID].connections[level] {
				d := g.metric.distance(g.nodes[id].vector, v)
				if d < currDist {
					currID = id
					currDist = d
					changed = true
				}
			}
		}
	}

	return currID, currDist
}

// knn returns up to k nearest nodes to q, closest first.
func (g *graph) knn(q []float32, k, efSearch int) []candidate {
	currID, currDist := g.descend(q, 0)

	top := &candidateQueue{max: true}
	heap.Init(top)

	g.searchLayer(q, &candidate{node: currID, distance: currDist}, top, max(efSearch, k), 0)

	for top.Len() > k {
		heap.Pop(top)
	}

	out := make([]candidate, top.Len())
	for i := top.Len() - 1; i >= 0; i-- {
		c, _ := heap.Pop(top).(*candidate)
		out[i] = *c
	}
	return out
}

// link records an edge from first to second at level, re-pruning the
// neighbour list to the closest entries when it overflows.
func (g *graph) link(first, second uint32, level int) {
	maxConn := g.m
	if level == 0 {
		maxConn = g.mmax0
	}

	n := g.nodes[first]
	n.connections[level] = append(n.connections[level], second)
	if len(n.connections[level]) <= maxConn {
		return
	}

	top := &candidateQueue{max: true}
	heap.Init(top)
	for _, id := range n.connections[level] {
		heap.Push(top, &candidate{
			node:     id,
			distance: g.metric.distance(n.vector, g.nodes[id].vector),
		})
	}

	for top.Len() > maxConn {
		heap.Pop(top)
	}

	n.connections[level] = make([]uint32, top.Len())
	for i := top.Len() - 1; i >= 0; i-- {
		c, _ := heap.Pop(top).(*candidate)
		n.connections[level][i] = c.node
	}
}

// searchLayer runs the beam search at one level, leaving up to ef best
// candidates in top.
func (g *graph) searchLayer(q []float32, entry *candidate, top *candidateQueue, ef, level int) {
	var visited bitset.BitSet
	visited.Set(uint(entry.node))

	candidates := &candidateQueue{}
	heap.Init(candidates)
	heap.Push(candidates, entry)

	top.max = true
	heap.Init(top)
	heap.Push(top, entry)

	for candidates.Len() > 0 {
		lowerBound := top.top().distance

		c, _ := heap.Pop(candidates).(*candidate)
		if c.distance > lowerBound {
			break
		}

		n := g.nodes[c.node]
		if level >= len(n.connections) {
			continue
		}

		for _, id := range n.connections[level] {
			if visited.Test(uint(id)) {
				continue
			}
			visited.Set(uint(id))

			d := g.metric.distance(q, g.nodes[id].vector)
			item := &candidate{node: id, distance: d}

			if top.Len() < ef {
				heap.Push(top, item)
				heap.Push(candidates, item)
			} else if top.top().distance > d {
				heap.Pop(top)
				heap.Push(top, item)
				heap.Push(candidates, item)
			}
		}
	}
}

// truncate keeps only the m closest candidates.
func (g *graph) truncate(top *candidateQueue, m int) {
	for top.Len() > m {
		heap.Pop(top)
	}
}
