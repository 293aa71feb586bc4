package osmparser

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"go.uber.org/zap"
)

// ScannerFunc opens a fresh scanner over the same input; Parse reads the input twice.
type ScannerFunc func(ctx context.Context) (osm.Scanner, func() error, error)

type OsmParser struct {
	wayNodeMap      map[int64]NodeType
	acceptedNodeMap map[int64]nodeCoord
	barrierNodes    map[int64]bool
	maxNodeID       int64
	ways            []osmWay
	parallel        map[[2]int64]uint16
	edges           []Edge
	missingNodes    int
	log             *zap.Logger
}

func NewOsmParser(log *zap.Logger) *OsmParser {
	return &OsmParser{
		wayNodeMap:      make(map[int64]NodeType),
		acceptedNodeMap: make(map[int64]nodeCoord),
		barrierNodes:    make(map[int64]bool),
		parallel:        make(map[[2]int64]uint16),
		log:             log,
	}
}

// FileScanner opens mapFile with the pbf scanner, or the xml scanner for .osm/.xml files.
func FileScanner(mapFile string) ScannerFunc {
	return func(ctx context.Context) (osm.Scanner, func() error, error) {
		f, err := os.Open(mapFile)
		if err != nil {
			return nil, nil, util.WrapErrorf(err, util.ErrBadParamInput, "open %s", mapFile)
		}
		var scanner osm.Scanner
		if strings.HasSuffix(mapFile, ".pbf") {
			scanner = osmpbf.New(ctx, f, runtime.GOMAXPROCS(-1))
		} else {
			scanner = osmxml.New(ctx, f)
		}
		return scanner, f.Close, nil
	}
}

// Parse reads road ways and returns their directed edges, split at junction and barrier nodes.
func (p *OsmParser) Parse(ctx context.Context, open ScannerFunc) ([]Edge, error) {
	if err := p.scanWays(ctx, open); err != nil {
		return nil, err
	}
	if err := p.scanNodes(ctx, open); err != nil {
		return nil, err
	}

	for i, way := range p.ways {
		if (i+1)%100000 == 0 {
			p.log.Sugar().Infof("processing openstreetmap ways: %d...", i+1)
		}
		p.processWay(way)
	}

	p.log.Sugar().Infof("number of ways: %d", len(p.ways))
	p.log.Sugar().Infof("number of edges: %d", len(p.edges))
	if p.missingNodes > 0 {
		p.log.Warn("way segments skipped, node coordinates missing from extract", zap.Int("segments", p.missingNodes))
	}
	return p.edges, nil
}

func (p *OsmParser) scanWays(ctx context.Context, open ScannerFunc) error {
	scanner, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	defer scanner.Close()

	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok || len(way.Nodes) < 2 || !acceptOsmWay(way) {
			continue
		}
		if (countWays+1)%50000 == 0 {
			p.log.Sugar().Infof("scanning openstreetmap ways: %d...", countWays+1)
		}
		countWays++

		nodes := make([]int64, len(way.Nodes))
		for i, node := range way.Nodes {
			id := int64(node.ID)
			nodes[i] = id
			if _, ok := p.wayNodeMap[id]; !ok {
				if i == 0 || i == len(way.Nodes)-1 {
					p.wayNodeMap[id] = END_NODE
				} else {
					p.wayNodeMap[id] = BETWEEN_NODE
				}
			} else {
				p.wayNodeMap[id] = JUNCTION_NODE
			}
		}

		oneWay, forward := wayDirection(way)
		p.ways = append(p.ways, osmWay{
			id:      int64(way.ID),
			nodes:   nodes,
			oneWay:  oneWay,
			forward: forward,
			highway: way.Tags.Find("highway"),
			name:    way.Tags.Find("name"),
		})
	}
	if err := scanner.Err(); err != nil {
		return util.WrapErrorf(err, util.ErrBadParamInput, "scan ways")
	}
	return nil
}

func (p *OsmParser) scanNodes(ctx context.Context, open ScannerFunc) error {
	scanner, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	defer scanner.Close()

	countNodes := 0
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if (countNodes+1)%500000 == 0 {
			p.log.Sugar().Infof("processing openstreetmap nodes: %d...", countNodes+1)
		}
		countNodes++

		id := int64(node.ID)
		p.maxNodeID = max(p.maxNodeID, id)
		if _, ok := p.wayNodeMap[id]; !ok {
			continue
		}
		p.acceptedNodeMap[id] = nodeCoord{lat: node.Lat, lon: node.Lon}

		barrierType := node.Tags.Find("barrier")
		if _, ok := acceptedBarrierType[barrierType]; ok && node.Tags.Find("access") == "no" {
			p.barrierNodes[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return util.WrapErrorf(err, util.ErrBadParamInput, "scan nodes")
	}
	return nil
}

type node struct {
	id    int64
	coord nodeCoord
}

func (p *OsmParser) processWay(way osmWay) {
	waySegment := []node{}
	complete := true
	for i, id := range way.nodes {
		coord, ok := p.acceptedNodeMap[id]
		if !ok {
			complete = false
		}
		nodeData := node{id: id, coord: coord}
		waySegment = append(waySegment, nodeData)
		if i > 0 && p.isJunctionNode(id) {
			p.flush(waySegment, way, complete)
			waySegment = []node{nodeData}
			complete = ok
		}
	}
	if len(waySegment) > 1 {
		p.flush(waySegment, way, complete)
	}
}

func (p *OsmParser) flush(segment []node, way osmWay, complete bool) {
	if !complete {
		p.missingNodes++
		return
	}
	p.processSegment(segment, way)
}

func (p *OsmParser) processSegment(segment []node, way osmWay) {
	if len(segment) == 2 && segment[0].id == segment[1].id {
		return
	} else if len(segment) > 2 && segment[0].id == segment[len(segment)-1].id {
		// loop
		p.splitAtBarriers(segment[0:len(segment)-1], way)
		p.splitAtBarriers(segment[len(segment)-2:], way)
	} else {
		p.splitAtBarriers(segment, way)
	}
}

func (p *OsmParser) splitAtBarriers(segment []node, way osmWay) {
	waySegment := []node{}
	for _, nodeData := range segment {
		if !p.barrierNodes[nodeData.id] {
			waySegment = append(waySegment, nodeData)
			continue
		}
		if len(waySegment) != 0 {
			waySegment = append(waySegment, nodeData)
			p.addEdge(waySegment, way)
			waySegment = []node{}
		}
		// same coordinate under a fresh id, so the edges on both sides of the barrier stay disconnected
		waySegment = append(waySegment, p.copyNode(nodeData))
	}
	if len(waySegment) > 1 {
		p.addEdge(waySegment, way)
	}
}

func (p *OsmParser) copyNode(nodeData node) node {
	p.maxNodeID++
	p.acceptedNodeMap[p.maxNodeID] = nodeData.coord
	return node{id: p.maxNodeID, coord: nodeData.coord}
}

func (p *OsmParser) addEdge(segment []node, way osmWay) {
	from := segment[0]
	to := segment[len(segment)-1]
	if from.id == to.id {
		return
	}

	geometry := make([]geo.Coordinate, len(segment))
	for i, n := range segment {
		geometry[i] = geo.NewCoordinate(n.coord.lat, n.coord.lon)
	}

	if !way.oneWay || way.forward {
		p.emit(from.id, to.id, geometry, way)
	}
	if !way.oneWay || !way.forward {
		p.emit(to.id, from.id, util.ReverseG(geometry), way)
	}
}

func (p *OsmParser) emit(nodeA, nodeB int64, geometry []geo.Coordinate, way osmWay) {
	pair := [2]int64{nodeA, nodeB}
	key := datastructure.NewEdgeKey(nodeA, nodeB, p.parallel[pair])
	p.parallel[pair]++
	p.edges = append(p.edges, Edge{
		Key:      key,
		Geometry: geometry,
		Highway:  way.highway,
		Name:     way.name,
	})
}

func (p *OsmParser) isJunctionNode(nodeID int64) bool {
	return p.wayNodeMap[nodeID] == JUNCTION_NODE
}

func isRestricted(value string) bool {
	return value == "no" || value == "restricted"
}

// wayDirection returns whether the way is one-way and, if so, whether travel follows the node order.
func wayDirection(way *osm.Way) (oneWay bool, forward bool) {
	vf := isRestricted(way.Tags.Find("vehicle:forward"))
	mvf := isRestricted(way.Tags.Find("motor_vehicle:forward"))
	vb := isRestricted(way.Tags.Find("vehicle:backward"))
	mvb := isRestricted(way.Tags.Find("motor_vehicle:backward"))

	oneway := way.Tags.Find("oneway")
	junction := way.Tags.Find("junction")
	oneWay = oneway == "yes" || oneway == "true" || oneway == "1" || oneway == "-1" ||
		junction == "roundabout" || junction == "circular" || vf || mvf || vb || mvb
	if oneway == "no" && !(vf || mvf || vb || mvb) {
		oneWay = false
	}
	forward = !(oneway == "-1" || vf || mvf)
	return oneWay, forward
}

func acceptOsmWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	junction := way.Tags.Find("junction")
	if highway != "" {
		_, ok := acceptedHighway[highway]
		return ok
	}
	return junction != ""
}
