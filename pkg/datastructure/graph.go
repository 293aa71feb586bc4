package datastructure

import (
	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
)

type Index uint32

// EdgeKey is the identity of a road edge across tiles: OSM node ids of both ends plus
// an index disambiguating parallel edges between the same node pair.
type EdgeKey struct {
	NodeA    int64  `json:"node_a"`
	NodeB    int64  `json:"node_b"`
	Parallel uint16 `json:"parallel"`
}

func NewEdgeKey(nodeA, nodeB int64, parallel uint16) EdgeKey {
	return EdgeKey{NodeA: nodeA, NodeB: nodeB, Parallel: parallel}
}

type Vertex struct {
	osmId int64
	lat   float64
	lon   float64
}

func NewVertex(osmId int64, lat, lon float64) Vertex {
	return Vertex{osmId: osmId, lat: lat, lon: lon}
}

func (v Vertex) GetOsmID() int64 {
	return v.osmId
}

func (v Vertex) GetLat() float64 {
	return v.lat
}

func (v Vertex) GetLon() float64 {
	return v.lon
}

// RoadEdge directed arc from vertex `from` to vertex `to` (tile-local indices).
type RoadEdge struct {
	key      EdgeKey
	from     Index
	to       Index
	length   float64 // meter
	highway  pkg.OsmHighwayType
	name     string
	geometry []geo.Coordinate
}

func NewRoadEdge(key EdgeKey, from, to Index, length float64, highway pkg.OsmHighwayType, name string,
	geometry []geo.Coordinate) RoadEdge {
	return RoadEdge{
		key:      key,
		from:     from,
		to:       to,
		length:   length,
		highway:  highway,
		name:     name,
		geometry: geometry,
	}
}

func (e *RoadEdge) GetKey() EdgeKey {
	return e.key
}

func (e *RoadEdge) GetFrom() Index {
	return e.from
}

func (e *RoadEdge) GetTo() Index {
	return e.to
}

func (e *RoadEdge) GetLength() float64 {
	return e.length
}

func (e *RoadEdge) GetHighway() pkg.OsmHighwayType {
	return e.highway
}

func (e *RoadEdge) GetName() string {
	return e.name
}

// GetGeometry. polyline from node_a to node_b, shared with the tile: must not be modified
func (e *RoadEdge) GetGeometry() []geo.Coordinate {
	return e.geometry
}

// Other returns the endpoint of e opposite to v.
func (e *RoadEdge) Other(v Index) Index {
	if e.from == v {
		return e.to
	}
	return e.from
}

// TileGraph the part of the road network stored in one tile. Immutable once built.
type TileGraph struct {
	cell     string
	bbox     *BoundingBox
	vertices []Vertex
	edges    []RoadEdge
	outEdges [][]Index
	inEdges  [][]Index
	keyIndex map[EdgeKey]Index
}

func NewTileGraph(cell string, bbox *BoundingBox, vertices []Vertex, edges []RoadEdge) *TileGraph {
	g := &TileGraph{
		cell:     cell,
		bbox:     bbox,
		vertices: vertices,
		edges:    edges,
		outEdges: make([][]Index, len(vertices)),
		inEdges:  make([][]Index, len(vertices)),
		keyIndex: make(map[EdgeKey]Index, len(edges)),
	}
	for i := range edges {
		e := &edges[i]
		g.outEdges[e.from] = append(g.outEdges[e.from], Index(i))
		g.inEdges[e.to] = append(g.inEdges[e.to], Index(i))
		g.keyIndex[e.key] = Index(i)
	}
	return g
}

func (g *TileGraph) GetCell() string {
	return g.cell
}

func (g *TileGraph) GetBoundingBox() *BoundingBox {
	return g.bbox
}

func (g *TileGraph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *TileGraph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *TileGraph) GetVertex(v Index) Vertex {
	return g.vertices[v]
}

func (g *TileGraph) GetEdge(e Index) *RoadEdge {
	return &g.edges[e]
}

func (g *TileGraph) GetOutEdges(v Index) []Index {
	return g.outEdges[v]
}

func (g *TileGraph) GetInEdges(v Index) []Index {
	return g.inEdges[v]
}

// ForIncidentEdges calls handle for every edge entering or leaving v.
func (g *TileGraph) ForIncidentEdges(v Index, handle func(e Index)) {
	for _, e := range g.outEdges[v] {
		handle(e)
	}
	for _, e := range g.inEdges[v] {
		handle(e)
	}
}

func (g *TileGraph) EdgeByKey(key EdgeKey) (Index, bool) {
	e, ok := g.keyIndex[key]
	return e, ok
}

// Contains. whether (lat, lon) lies inside the tile bounding box
func (g *TileGraph) Contains(lat, lon float64) bool {
	if g.bbox == nil {
		return false
	}
	return g.bbox.Contains(lat, lon)
}
