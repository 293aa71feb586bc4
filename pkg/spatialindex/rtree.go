package spatialindex

import (
	"math"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/tidwall/rtree"
)

// search box radii (km) tried in order before falling back to a full scan
var nearestSearchRadii = []float64{0.025, 0.1, 0.4, 1.6}

type Rtree struct {
	tr    *rtree.RTreeG[datastructure.Index]
	graph *datastructure.TileGraph
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[datastructure.Index]
	return &Rtree{
		tr: &tr,
	}
}

// Build. build r-tree, one leaf per edge with the bounding box of its geometry
func (rt *Rtree) Build(graph *datastructure.TileGraph) {
	rt.graph = graph
	for i := 0; i < graph.NumberOfEdges(); i++ {
		e := graph.GetEdge(datastructure.Index(i))
		geometry := e.GetGeometry()
		if len(geometry) == 0 {
			continue
		}
		minLat, minLon := geometry[0].Lat, geometry[0].Lon
		maxLat, maxLon := minLat, minLon
		for _, c := range geometry[1:] {
			minLat = math.Min(minLat, c.Lat)
			minLon = math.Min(minLon, c.Lon)
			maxLat = math.Max(maxLat, c.Lat)
			maxLon = math.Max(maxLon, c.Lon)
		}
		rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, datastructure.Index(i))
	}
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

// SearchWithinRadius search for all edges whose bounding box intersects the square of radius (in km) around (qLat, qLon)
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []datastructure.Index {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius*math.Sqrt2)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius*math.Sqrt2)

	results := make([]datastructure.Index, 0, 10)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data datastructure.Index) bool {
			results = append(results, data)
			return true
		})
	return results
}

// NearestEdge returns the edge with the smallest perpendicular distance (meter) to (qLat, qLon).
// Ties go to the lower edge index. ok is false when the graph has no edge with geometry.
func (rt *Rtree) NearestEdge(qLat, qLon float64) (datastructure.Index, float64, bool) {
	q := geo.NewCoordinate(qLat, qLon)
	for _, radius := range nearestSearchRadii {
		cands := rt.SearchWithinRadius(qLat, qLon, radius)
		if best, dist, ok := rt.closest(q, cands); ok && dist <= radius*1000 {
			return best, dist, true
		}
	}

	all := make([]datastructure.Index, rt.graph.NumberOfEdges())
	for i := range all {
		all[i] = datastructure.Index(i)
	}
	return rt.closest(q, all)
}

func (rt *Rtree) closest(q geo.Coordinate, cands []datastructure.Index) (datastructure.Index, float64, bool) {
	var (
		best     datastructure.Index
		bestDist = math.Inf(1)
		found    bool
	)
	for _, e := range cands {
		geometry := rt.graph.GetEdge(e).GetGeometry()
		if len(geometry) < 2 {
			continue
		}
		d, ok := geo.PointPolylineDistance(geometry, q)
		if !ok {
			continue
		}
		if d < bestDist || (d == bestDist && e < best) {
			best, bestDist, found = e, d, true
		}
	}
	return best, bestDist, found
}
