package osmparser

import (
	"context"
	"strings"
	"testing"

	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="-7.7700" lon="110.3700"/>
  <node id="2" lat="-7.7700" lon="110.3710"/>
  <node id="3" lat="-7.7700" lon="110.3720"/>
  <node id="4" lat="-7.7690" lon="110.3710"/>
  <node id="5" lat="-7.7710" lon="110.3710"/>
  <node id="6" lat="-7.7720" lon="110.3710">
    <tag k="barrier" v="gate"/>
    <tag k="access" v="no"/>
  </node>
  <node id="7" lat="-7.7730" lon="110.3710"/>
  <node id="8" lat="-7.7700" lon="110.3690"/>
  <way id="100">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
    <tag k="highway" v="residential"/>
    <tag k="name" v="Jalan Kaliurang"/>
  </way>
  <way id="101">
    <nd ref="2"/><nd ref="4"/>
    <tag k="highway" v="primary"/>
    <tag k="oneway" v="yes"/>
  </way>
  <way id="102">
    <nd ref="2"/><nd ref="5"/><nd ref="6"/><nd ref="7"/>
    <tag k="highway" v="service"/>
    <tag k="oneway" v="-1"/>
  </way>
  <way id="103">
    <nd ref="8"/><nd ref="1"/>
    <tag k="highway" v="footway"/>
  </way>
</osm>`

func xmlScanner(data string) ScannerFunc {
	return func(ctx context.Context) (osm.Scanner, func() error, error) {
		return osmxml.New(ctx, strings.NewReader(data)), func() error { return nil }, nil
	}
}

func keysOf(edges []Edge) []datastructure.EdgeKey {
	keys := make([]datastructure.EdgeKey, len(edges))
	for i, e := range edges {
		keys[i] = e.Key
	}
	return keys
}

func TestParse(t *testing.T) {
	p := NewOsmParser(zap.NewNop())
	edges, err := p.Parse(context.Background(), xmlScanner(testOSM))
	require.NoError(t, err)

	keys := keysOf(edges)
	// way 100 split at junction node 2, both directions
	assert.Contains(t, keys, datastructure.NewEdgeKey(1, 2, 0))
	assert.Contains(t, keys, datastructure.NewEdgeKey(2, 1, 0))
	assert.Contains(t, keys, datastructure.NewEdgeKey(2, 3, 0))
	assert.Contains(t, keys, datastructure.NewEdgeKey(3, 2, 0))
	// oneway=yes
	assert.Contains(t, keys, datastructure.NewEdgeKey(2, 4, 0))
	assert.NotContains(t, keys, datastructure.NewEdgeKey(4, 2, 0))
	// oneway=-1, split at the gate
	assert.NotContains(t, keys, datastructure.NewEdgeKey(2, 6, 0))
	assert.Contains(t, keys, datastructure.NewEdgeKey(6, 2, 0))
	// footway dropped
	assert.NotContains(t, keys, datastructure.NewEdgeKey(8, 1, 0))
	assert.Len(t, edges, 7)

	for _, e := range edges {
		if e.Key == datastructure.NewEdgeKey(2, 1, 0) {
			assert.Equal(t, "Jalan Kaliurang", e.Name)
			assert.Equal(t, "residential", e.Highway)
			assert.InDelta(t, 110.3710, e.Geometry[0].Lon, 1e-9)
			assert.InDelta(t, 110.3700, e.Geometry[1].Lon, 1e-9)
		}
		if e.Key == datastructure.NewEdgeKey(6, 2, 0) {
			require.Len(t, e.Geometry, 3)
			assert.InDelta(t, -7.7720, e.Geometry[0].Lat, 1e-9)
			assert.InDelta(t, -7.7700, e.Geometry[2].Lat, 1e-9)
		}
	}
}

func TestParseParallelEdges(t *testing.T) {
	data := `<osm>
  <node id="1" lat="-7.77" lon="110.37"/>
  <node id="2" lat="-7.77" lon="110.371"/>
  <node id="3" lat="-7.769" lon="110.3705"/>
  <way id="1"><nd ref="1"/><nd ref="2"/><tag k="highway" v="tertiary"/><tag k="oneway" v="yes"/></way>
  <way id="2"><nd ref="1"/><nd ref="3"/><nd ref="2"/><tag k="highway" v="tertiary"/><tag k="oneway" v="yes"/></way>
</osm>`
	edges, err := NewOsmParser(zap.NewNop()).Parse(context.Background(), xmlScanner(data))
	require.NoError(t, err)
	assert.ElementsMatch(t, []datastructure.EdgeKey{
		datastructure.NewEdgeKey(1, 2, 0),
		datastructure.NewEdgeKey(1, 2, 1),
	}, keysOf(edges))
}

func TestWriteTiles(t *testing.T) {
	edges, err := NewOsmParser(zap.NewNop()).Parse(context.Background(), xmlScanner(testOSM))
	require.NoError(t, err)

	dir := t.TempDir()
	summaries, err := WriteTiles(context.Background(), edges, TileWriterConfig{
		Dir: dir, Level: 10, MarginM: 1000, Workers: 2,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotEmpty(t, summaries)

	store, err := tile.NewStore(dir, 10, 4, zap.NewNop())
	require.NoError(t, err)
	cell := tile.CellID(-7.7700, 110.3710, 10)
	tl, err := store.Load(context.Background(), cell)
	require.NoError(t, err)

	g := tl.GetGraph()
	assert.Equal(t, len(edges), g.NumberOfEdges())
	idx, ok := g.EdgeByKey(datastructure.NewEdgeKey(2, 4, 0))
	require.True(t, ok)
	assert.InDelta(t, 111.3, g.GetEdge(idx).GetLength(), 1.0)
	assert.True(t, tl.Contains(-7.7700, 110.3710))
}
