package corridor

import (
	"sort"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
)

type neighbor struct {
	edge datastructure.Index
	hop  int
}

// neighbors collects the edges reachable from either endpoint of current, walking the graph
// without regard to direction and stopping once more than radius meters of road lie behind.
// An edge touching an endpoint has hop level 1; every edge crossed on the way adds one level.
func neighbors(g *datastructure.TileGraph, current datastructure.Index, radius float64) []neighbor {
	cur := g.GetEdge(current)

	dist := make(map[datastructure.Index]float64)
	hops := make(map[datastructure.Index]int)
	inHeap := make(map[datastructure.Index]*datastructure.PriorityQueueNode[datastructure.Index])
	settled := make(map[datastructure.Index]struct{})
	found := make(map[datastructure.Index]int)

	pq := datastructure.NewFourAryHeap[datastructure.Index]()
	for _, v := range []datastructure.Index{cur.GetFrom(), cur.GetTo()} {
		if _, ok := inHeap[v]; ok {
			continue
		}
		dist[v], hops[v] = 0, 0
		node := datastructure.NewPriorityQueueNode(0, 0, v)
		inHeap[v] = node
		pq.Insert(node)
	}

	for !pq.IsEmpty() {
		node, _ := pq.ExtractMin()
		u := node.GetItem()
		delete(inHeap, u)
		settled[u] = struct{}{}

		g.ForIncidentEdges(u, func(e datastructure.Index) {
			if e == current {
				return
			}
			hop := hops[u] + 1
			if h, ok := found[e]; !ok || hop < h {
				found[e] = hop
			}

			edge := g.GetEdge(e)
			w := edge.Other(u)
			if _, done := settled[w]; done {
				return
			}
			nd := dist[u] + edge.GetLength()
			if nd > radius {
				return
			}
			if old, seen := dist[w]; seen && (nd > old || (nd == old && hop >= hops[w])) {
				return
			}
			dist[w], hops[w] = nd, hop
			if qn, ok := inHeap[w]; ok {
				_ = pq.DecreaseKey(qn, nd, hop)
				return
			}
			qn := datastructure.NewPriorityQueueNode(nd, hop, w)
			inHeap[w] = qn
			pq.Insert(qn)
		})
	}

	out := make([]neighbor, 0, len(found))
	for e, hop := range found {
		out = append(out, neighbor{edge: e, hop: hop})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].edge < out[j].edge
	})
	return out
}
