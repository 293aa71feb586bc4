package tile

import (
	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/spatialindex"
)

// Tile a loaded tile graph with its edge index. Read-only, safe to share between runs.
type Tile struct {
	cell  s2.CellID
	graph *datastructure.TileGraph
	index *spatialindex.Rtree
}

func NewTile(cell s2.CellID, graph *datastructure.TileGraph) *Tile {
	index := spatialindex.NewRtree()
	index.Build(graph)
	return &Tile{
		cell:  cell,
		graph: graph,
		index: index,
	}
}

func (t *Tile) GetCell() s2.CellID {
	return t.cell
}

func (t *Tile) GetGraph() *datastructure.TileGraph {
	return t.graph
}

func (t *Tile) Contains(lat, lon float64) bool {
	return t.graph.Contains(lat, lon)
}

// NearestEdge global nearest edge search over the tile. distance in meter
func (t *Tile) NearestEdge(lat, lon float64) (datastructure.Index, float64, bool) {
	return t.index.NearestEdge(lat, lon)
}
