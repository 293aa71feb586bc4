package osmparser

import (
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
)

type NodeType uint8

const (
	END_NODE NodeType = iota
	BETWEEN_NODE
	JUNCTION_NODE
)

// Edge one directed road edge between two junction (or end/barrier) nodes.
type Edge struct {
	Key      datastructure.EdgeKey
	Geometry []geo.Coordinate
	Highway  string
	Name     string
}

func (e Edge) BoundingBox() *datastructure.BoundingBox {
	first := e.Geometry[0]
	bb := datastructure.NewBoundingBox(first.Lat, first.Lon, first.Lat, first.Lon)
	for _, c := range e.Geometry[1:] {
		bb.Extend(c.Lat, c.Lon)
	}
	return bb
}

type nodeCoord struct {
	lat float64
	lon float64
}

type osmWay struct {
	id      int64
	nodes   []int64
	oneWay  bool
	forward bool
	highway string
	name    string
}

var (
	// https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
	acceptedHighway = map[string]struct{}{
		"motorway":         {},
		"motorway_link":    {},
		"trunk":            {},
		"trunk_link":       {},
		"primary":          {},
		"primary_link":     {},
		"secondary":        {},
		"secondary_link":   {},
		"residential":      {},
		"residential_link": {},
		"service":          {},
		"tertiary":         {},
		"tertiary_link":    {},
		"road":             {},
		"track":            {},
		"unclassified":     {},
		"undefined":        {},
		"unknown":          {},
		"living_street":    {},
		"private":          {},
		"motorroad":        {},
	}

	// https://wiki.openstreetmap.org/wiki/Key:barrier
	// a barrier with access=no splits the street into two disconnected edges
	acceptedBarrierType = map[string]struct{}{
		"bollard":        {},
		"swing_gate":     {},
		"jersey_barrier": {},
		"lift_gate":      {},
		"block":          {},
		"gate":           {},
	}
)
