package datastructure

import (
	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
)

// TileGraphBuilder assembles a TileGraph from edges keyed by OSM node ids.
type TileGraphBuilder struct {
	cell        string
	bbox        *BoundingBox
	vertexIndex map[int64]Index
	vertices    []Vertex
	edges       []RoadEdge
	parallel    map[[2]int64]uint16
}

func NewTileGraphBuilder(cell string, bbox *BoundingBox) *TileGraphBuilder {
	return &TileGraphBuilder{
		cell:        cell,
		bbox:        bbox,
		vertexIndex: make(map[int64]Index),
		parallel:    make(map[[2]int64]uint16),
	}
}

func (b *TileGraphBuilder) vertex(osmId int64, c geo.Coordinate) Index {
	if v, ok := b.vertexIndex[osmId]; ok {
		return v
	}
	v := Index(len(b.vertices))
	b.vertices = append(b.vertices, NewVertex(osmId, c.Lat, c.Lon))
	b.vertexIndex[osmId] = v
	return v
}

// AddEdge adds nodeA->nodeB and assigns the next free parallel index for that node pair.
func (b *TileGraphBuilder) AddEdge(nodeA, nodeB int64, geometry []geo.Coordinate, highway, name string) EdgeKey {
	pair := [2]int64{nodeA, nodeB}
	key := NewEdgeKey(nodeA, nodeB, b.parallel[pair])
	b.AddEdgeWithKey(key, geometry, highway, name)
	return key
}

// AddEdgeWithKey adds an edge whose parallel index was decided by the caller. Geometry must have at least one vertex.
func (b *TileGraphBuilder) AddEdgeWithKey(key EdgeKey, geometry []geo.Coordinate, highway, name string) {
	pair := [2]int64{key.NodeA, key.NodeB}
	if key.Parallel >= b.parallel[pair] {
		b.parallel[pair] = key.Parallel + 1
	}
	from := b.vertex(key.NodeA, geometry[0])
	to := b.vertex(key.NodeB, geometry[len(geometry)-1])
	b.edges = append(b.edges, NewRoadEdge(key, from, to, geo.PolylineLength(geometry),
		pkg.GetHighwayType(highway), name, geometry))
}

func (b *TileGraphBuilder) NumberOfEdges() int {
	return len(b.edges)
}

func (b *TileGraphBuilder) Build() *TileGraph {
	return NewTileGraph(b.cell, b.bbox, b.vertices, b.edges)
}
