package datastructure

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/util"
)

// WriteTile writes the tile to filename through a temporary file, so readers never see a partial tile.
func (g *TileGraph) WriteTile(filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := g.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filename)
}

// Encode writes the bzip2-compressed text form of the tile.
func (g *TileGraph) Encode(out io.Writer) error {
	bz, err := bzip2.NewWriter(out, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(bz)

	bb := g.bbox
	if bb == nil {
		bb = NewBoundingBox(0, 0, 0, 0)
	}
	fmt.Fprintf(w, "%s %s %s %s %s\n", g.cell,
		util.FormatFloat(bb.minLat), util.FormatFloat(bb.minLon),
		util.FormatFloat(bb.maxLat), util.FormatFloat(bb.maxLon))

	fmt.Fprintf(w, "%d %d\n", len(g.vertices), len(g.edges))

	for _, v := range g.vertices {
		fmt.Fprintf(w, "%d %s %s\n", v.osmId, util.FormatFloat(v.lat), util.FormatFloat(v.lon))
	}

	for _, e := range g.edges {
		fmt.Fprintf(w, "%d %d %d %s %s %d", e.from, e.to, e.key.Parallel,
			util.FormatFloat(e.length), e.highway.String(), len(e.geometry))
		for _, c := range e.geometry {
			fmt.Fprintf(w, " %s %s", util.FormatFloat(c.Lat), util.FormatFloat(c.Lon))
		}
		fmt.Fprintf(w, " %s\n", strconv.Quote(e.name))
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return bz.Close()
}

func fields(s string) []string {

	return strings.Fields(s)
}

func ParseIndex(s string) (Index, error) {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if u > math.MaxUint32 {
		return 0, fmt.Errorf("value %s overflows uint32", s)
	}
	return Index(u), nil
}

func ReadTile(filename string) (*TileGraph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return DecodeTile(f)
}

func DecodeTile(in io.Reader) (*TileGraph, error) {
	bz, err := bzip2.NewReader(in, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	br := bufio.NewReader(bz)

	line, err := util.ReadLine(br)
	if err != nil {
		return nil, fmt.Errorf("tile header: %w", err)
	}
	tokens := fields(line)
	if len(tokens) != 5 {
		return nil, fmt.Errorf("tile header: expected 5 fields, got %d", len(tokens))
	}
	cell := tokens[0]
	bounds, err := parseFloats(tokens[1:])
	if err != nil {
		return nil, fmt.Errorf("tile header: %w", err)
	}
	bbox := NewBoundingBox(bounds[0], bounds[1], bounds[2], bounds[3])

	line, err = util.ReadLine(br)
	if err != nil {
		return nil, fmt.Errorf("tile sizes: %w", err)
	}
	tokens = fields(line)
	if len(tokens) != 2 {
		return nil, fmt.Errorf("tile sizes: expected 2 fields, got %d", len(tokens))
	}
	numVertices, err := ParseIndex(tokens[0])
	if err != nil {
		return nil, err
	}
	numEdges, err := ParseIndex(tokens[1])
	if err != nil {
		return nil, err
	}

	vertices := make([]Vertex, numVertices)
	for i := 0; i < int(numVertices); i++ {
		vertexLine, err := util.ReadLine(br)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		vertices[i], err = parseVertex(vertexLine)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
	}

	edges := make([]RoadEdge, numEdges)
	for i := 0; i < int(numEdges); i++ {
		edgeLine, err := util.ReadLine(br)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		edges[i], err = parseEdge(edgeLine, vertices)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	return NewTileGraph(cell, bbox, vertices, edges), nil
}

func parseFloats(tokens []string) ([]float64, error) {
	out := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseVertex(line string) (Vertex, error) {
	tokens := fields(line)
	if len(tokens) != 3 {
		return Vertex{}, fmt.Errorf("expected 3 fields, got %d", len(tokens))
	}
	osmId, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil {
		return Vertex{}, err
	}
	coord, err := parseFloats(tokens[1:])
	if err != nil {
		return Vertex{}, err
	}
	return NewVertex(osmId, coord[0], coord[1]), nil
}

func parseEdge(line string, vertices []Vertex) (RoadEdge, error) {
	quote := strings.IndexByte(line, '"')
	if quote < 0 {
		return RoadEdge{}, fmt.Errorf("missing street name")
	}
	name, err := strconv.Unquote(strings.TrimSpace(line[quote:]))
	if err != nil {
		return RoadEdge{}, fmt.Errorf("street name: %w", err)
	}

	tokens := fields(line[:quote])
	if len(tokens) < 6 {
		return RoadEdge{}, fmt.Errorf("expected at least 6 fields, got %d", len(tokens))
	}
	from, err := ParseIndex(tokens[0])
	if err != nil {
		return RoadEdge{}, err
	}
	to, err := ParseIndex(tokens[1])
	if err != nil {
		return RoadEdge{}, err
	}
	if int(from) >= len(vertices) || int(to) >= len(vertices) {
		return RoadEdge{}, fmt.Errorf("vertex index out of range: %d -> %d", from, to)
	}
	parallel, err := strconv.ParseUint(tokens[2], 10, 16)
	if err != nil {
		return RoadEdge{}, err
	}
	length, err := strconv.ParseFloat(tokens[3], 64)
	if err != nil {
		return RoadEdge{}, err
	}
	highway := pkg.GetHighwayType(tokens[4])
	nPoints, err := strconv.Atoi(tokens[5])
	if err != nil {
		return RoadEdge{}, err
	}
	if len(tokens) != 6+2*nPoints {
		return RoadEdge{}, fmt.Errorf("expected %d geometry values, got %d", 2*nPoints, len(tokens)-6)
	}
	coords, err := parseFloats(tokens[6:])
	if err != nil {
		return RoadEdge{}, err
	}
	geometry := make([]geo.Coordinate, nPoints)
	for i := 0; i < nPoints; i++ {
		geometry[i] = geo.NewCoordinate(coords[2*i], coords[2*i+1])
	}

	key := NewEdgeKey(vertices[from].osmId, vertices[to].osmId, uint16(parallel))
	return NewRoadEdge(key, from, to, length, highway, name, geometry), nil
}
