package datastructure

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/lintang-b-s/roadtrace/pkg"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTile() *TileGraph {
	b := NewTileGraphBuilder("1a2b", NewBoundingBox(-7.8, 110.3, -7.7, 110.4))
	b.AddEdge(1, 2, []geo.Coordinate{
		geo.NewCoordinate(-7.75, 110.35), geo.NewCoordinate(-7.75, 110.351), geo.NewCoordinate(-7.749, 110.352),
	}, "primary", "Jalan Malioboro")
	b.AddEdge(2, 1, []geo.Coordinate{
		geo.NewCoordinate(-7.749, 110.352), geo.NewCoordinate(-7.75, 110.351), geo.NewCoordinate(-7.75, 110.35),
	}, "primary", "Jalan Malioboro")
	b.AddEdge(2, 3, []geo.Coordinate{geo.NewCoordinate(-7.749, 110.352), geo.NewCoordinate(-7.748, 110.352)},
		"residential", "")
	// parallel to the first edge
	b.AddEdge(1, 2, []geo.Coordinate{geo.NewCoordinate(-7.75, 110.35), geo.NewCoordinate(-7.749, 110.352)},
		"service", "gang \"buntu\"")
	return b.Build()
}

func TestTileGraphAdjacency(t *testing.T) {
	g := sampleTile()
	require.Equal(t, 3, g.NumberOfVertices())
	require.Equal(t, 4, g.NumberOfEdges())

	v2, ok := g.EdgeByKey(NewEdgeKey(2, 3, 0))
	require.True(t, ok)
	assert.Equal(t, pkg.RESIDENTIAL, g.GetEdge(v2).GetHighway())

	parallel, ok := g.EdgeByKey(NewEdgeKey(1, 2, 1))
	require.True(t, ok)
	assert.Equal(t, pkg.SERVICE, g.GetEdge(parallel).GetHighway())

	node2 := g.GetEdge(v2).GetFrom()
	assert.Len(t, g.GetOutEdges(node2), 2)
	assert.Len(t, g.GetInEdges(node2), 2)

	incident := 0
	g.ForIncidentEdges(node2, func(e Index) { incident++ })
	assert.Equal(t, 4, incident)

	assert.True(t, g.Contains(-7.75, 110.35))
	assert.False(t, g.Contains(-7.9, 110.35))
}

func TestTileEncodeDecode(t *testing.T) {
	g := sampleTile()

	filename := filepath.Join(t.TempDir(), "seg1a2b.tile")
	require.NoError(t, g.WriteTile(filename))

	got, err := ReadTile(filename)
	require.NoError(t, err)

	assert.Equal(t, g.GetCell(), got.GetCell())
	assert.Equal(t, g.GetBoundingBox(), got.GetBoundingBox())
	require.Equal(t, g.NumberOfEdges(), got.NumberOfEdges())
	for i := 0; i < g.NumberOfEdges(); i++ {
		want, have := g.GetEdge(Index(i)), got.GetEdge(Index(i))
		assert.Equal(t, want.GetKey(), have.GetKey())
		assert.Equal(t, want.GetName(), have.GetName())
		assert.Equal(t, want.GetHighway(), have.GetHighway())
		assert.Equal(t, want.GetGeometry(), have.GetGeometry())
		assert.InDelta(t, want.GetLength(), have.GetLength(), 1e-9)
	}
}

func TestDecodeTileRejectsGarbage(t *testing.T) {
	_, err := DecodeTile(bytes.NewReader([]byte("not a bzip2 stream")))
	assert.Error(t, err)
}

func TestMinHeapOrdersByRankThenTie(t *testing.T) {
	h := NewFourAryHeap[int]()
	nodes := map[int]*PriorityQueueNode[int]{}
	input := []struct {
		item int
		rank float64
		tie  int
	}{
		{1, 5, 0}, {2, 1, 3}, {3, 1, 1}, {4, 7, 0}, {5, 0.5, 9}, {6, 3, 0},
	}
	for _, in := range input {
		n := NewPriorityQueueNode(in.rank, in.tie, in.item)
		nodes[in.item] = n
		h.Insert(n)
	}
	require.NoError(t, h.DecreaseKey(nodes[4], 0.1, 0))
	assert.Error(t, h.DecreaseKey(nodes[1], 9, 0))

	var order []int
	for !h.IsEmpty() {
		n, err := h.ExtractMin()
		require.NoError(t, err)
		order = append(order, n.GetItem())
	}
	assert.Equal(t, []int{4, 5, 3, 2, 6, 1}, order)

	_, err := h.ExtractMin()
	assert.ErrorIs(t, err, ErrEmptyHeap)
}
