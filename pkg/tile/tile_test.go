package tile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testLevel = 10

func cellCenter(lat, lon float64) (s2.CellID, float64, float64) {
	cell := CellID(lat, lon, testLevel)
	ll := cell.LatLng()
	return cell, ll.Lat.Degrees(), ll.Lng.Degrees()
}

func writeTile(t *testing.T, dir string, cell s2.CellID, lat, lon float64) *datastructure.TileGraph {
	t.Helper()
	b := datastructure.NewTileGraphBuilder(cell.ToToken(), CellBoundingBox(cell, 200))
	b.AddEdge(10, 11, []geo.Coordinate{geo.NewCoordinate(lat, lon), geo.NewCoordinate(lat, lon+0.004)}, "primary", "A")
	b.AddEdge(11, 12, []geo.Coordinate{geo.NewCoordinate(lat, lon+0.004), geo.NewCoordinate(lat+0.004, lon+0.004)},
		"secondary", "B")
	g := b.Build()
	require.NoError(t, g.WriteTile(filepath.Join(dir, TileFileName(cell))))
	return g
}

func TestCellIDDeterministic(t *testing.T) {
	a := CellID(-7.7956, 110.3695, testLevel)
	b := CellID(-7.7956, 110.3695, testLevel)
	assert.Equal(t, a, b)
	assert.Equal(t, testLevel, a.Level())
	assert.NotEqual(t, a, CellID(-6.2, 106.8, testLevel))
	assert.Equal(t, "seg"+a.ToToken()+".tile", TileFileName(a))

	bb := CellBoundingBox(a, 0)
	assert.True(t, bb.Contains(-7.7956, 110.3695))
}

func TestCellBoundingBoxMargin(t *testing.T) {
	cell := CellID(-7.7956, 110.3695, testLevel)
	bare := CellBoundingBox(cell, 0)
	grown := CellBoundingBox(cell, 200)

	dLat := 200 / metersPerDegreeLat
	assert.InDelta(t, bare.GetMinLat()-dLat, grown.GetMinLat(), 1e-9)
	assert.InDelta(t, bare.GetMaxLat()+dLat, grown.GetMaxLat(), 1e-9)
	assert.Less(t, grown.GetMinLon(), bare.GetMinLon()-dLat)
	assert.Greater(t, grown.GetMaxLon(), bare.GetMaxLon()+dLat)

	// near the pole the latitude range stays valid
	polar := CellBoundingBox(CellID(89.999, 0, testLevel), 5000)
	assert.LessOrEqual(t, polar.GetMaxLat(), 90.0+1e-9)
}

func TestCellsCoveringIncludesNeighbourWithinMargin(t *testing.T) {
	cell, lat, lon := cellCenter(-7.7956, 110.3695)
	bb := datastructure.NewBoundingBox(lat, lon, lat+0.001, lon+0.001)
	cells := CellsCovering(bb, testLevel, 0)
	assert.Equal(t, []s2.CellID{cell}, cells)

	rect := s2.CellFromCellID(cell).RectBound()
	edgeLat := rect.Hi().Lat.Degrees() - 0.0001
	nearBorder := datastructure.NewBoundingBox(edgeLat, lon, edgeLat, lon)
	assert.Greater(t, len(CellsCovering(nearBorder, testLevel, 500)), 1)
}

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()
	cell, lat, lon := cellCenter(-7.7956, 110.3695)
	writeTile(t, dir, cell, lat, lon)

	store, err := NewStore(dir, testLevel, 4, zap.NewNop())
	require.NoError(t, err)

	t.Run("loads and caches", func(t *testing.T) {
		first, err := store.Load(context.Background(), cell)
		require.NoError(t, err)
		second, err := store.Load(context.Background(), cell)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 2, first.GetGraph().NumberOfEdges())
	})

	t.Run("concurrent loads share one tile", func(t *testing.T) {
		other, olat, olon := cellCenter(-6.2, 106.8)
		writeTile(t, dir, other, olat, olon)

		var wg sync.WaitGroup
		tiles := make([]*Tile, 8)
		for i := range tiles {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tiles[i], _ = store.Load(context.Background(), other)
			}(i)
		}
		wg.Wait()
		for _, tl := range tiles {
			assert.Same(t, tiles[0], tl)
		}
	})

	t.Run("missing tile", func(t *testing.T) {
		_, err := store.Load(context.Background(), CellID(51.5, -0.12, testLevel))
		assert.ErrorIs(t, err, ErrNoGraphData)
		assert.True(t, IsGraphUnavailable(err))
	})

	t.Run("corrupt tile", func(t *testing.T) {
		bad := CellID(35.68, 139.69, testLevel)
		require.NoError(t, os.WriteFile(filepath.Join(dir, TileFileName(bad)), []byte("garbage"), 0o644))
		_, err := store.Load(context.Background(), bad)
		assert.ErrorIs(t, err, ErrCorruptTile)
		assert.True(t, IsGraphUnavailable(err))
	})
}

func TestTileNearestEdge(t *testing.T) {
	dir := t.TempDir()
	cell, lat, lon := cellCenter(-7.7956, 110.3695)
	writeTile(t, dir, cell, lat, lon)
	store, err := NewStore(dir, testLevel, 4, zap.NewNop())
	require.NoError(t, err)
	tl, err := store.Load(context.Background(), cell)
	require.NoError(t, err)

	e, dist, ok := tl.NearestEdge(lat+0.0001, lon+0.002)
	require.True(t, ok)
	assert.Equal(t, datastructure.NewEdgeKey(10, 11, 0), tl.GetGraph().GetEdge(e).GetKey())
	assert.InDelta(t, 11.1, dist, 0.2)

	// far outside every search box: full scan still answers
	e, _, ok = tl.NearestEdge(lat+0.03, lon+0.004)
	require.True(t, ok)
	assert.Equal(t, datastructure.NewEdgeKey(11, 12, 0), tl.GetGraph().GetEdge(e).GetKey())
}

type fakeSource struct {
	tiles map[s2.CellID]*Tile
	loads int
}

func (f *fakeSource) Load(ctx context.Context, cell s2.CellID) (*Tile, error) {
	f.loads++
	if t, ok := f.tiles[cell]; ok {
		return t, nil
	}
	return nil, ErrNoGraphData
}

func (f *fakeSource) Level() int {
	return testLevel
}

func tileAt(cell s2.CellID, bbox *datastructure.BoundingBox) *Tile {
	b := datastructure.NewTileGraphBuilder(cell.ToToken(), bbox)
	return NewTile(cell, b.Build())
}

func TestCursorLocate(t *testing.T) {
	cellA, latA, lonA := cellCenter(-7.7956, 110.3695)
	cellB, latB, lonB := cellCenter(-6.2, 106.8)
	cellC, latC, lonC := cellCenter(-7.25, 112.75)

	src := &fakeSource{tiles: map[s2.CellID]*Tile{
		cellA: tileAt(cellA, CellBoundingBox(cellA, 0)),
		cellB: tileAt(cellB, CellBoundingBox(cellB, 0)),
		// packaged for the wrong place
		cellC: tileAt(cellC, CellBoundingBox(cellA, 0)),
	}}
	c := NewCursor(src)
	ctx := context.Background()

	tl, changed, err := c.Locate(ctx, latA, lonA)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, cellA, tl.GetCell())

	tl, changed, err = c.Locate(ctx, latA+0.0001, lonA)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, cellA, tl.GetCell())
	assert.Equal(t, 1, src.loads)

	tl, changed, err = c.Locate(ctx, latB, lonB)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, cellB, tl.GetCell())
	assert.Equal(t, 1, c.Swaps())

	_, _, err = c.Locate(ctx, latC, lonC)
	assert.ErrorIs(t, err, ErrTileMismatch)
	assert.Equal(t, cellB, c.Current().GetCell(), "resident tile kept after a rejected load")

	_, _, err = c.Locate(ctx, 51.5, -0.12)
	assert.ErrorIs(t, err, ErrNoGraphData)
}

func TestCursorRemembersMissingCells(t *testing.T) {
	cellA, latA, lonA := cellCenter(-7.7956, 110.3695)
	src := &fakeSource{tiles: map[s2.CellID]*Tile{
		cellA: tileAt(cellA, CellBoundingBox(cellA, 0)),
	}}
	c := NewCursor(src)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := c.Locate(ctx, 51.5+float64(i)*0.0001, -0.12)
		assert.ErrorIs(t, err, ErrNoGraphData)
	}
	assert.Equal(t, 1, src.loads, "missing cell looked up once per run")

	_, _, err := c.Locate(ctx, latA, lonA)
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads)

	// a fresh cursor tries again
	_, _, err = NewCursor(src).Locate(ctx, 51.5, -0.12)
	assert.ErrorIs(t, err, ErrNoGraphData)
	assert.Equal(t, 3, src.loads)
}

func TestCursorKeepsResidentTileWhenVerificationFails(t *testing.T) {
	cellA, latA, lonA := cellCenter(-7.7956, 110.3695)
	rect := s2.CellFromCellID(cellA).RectBound()
	// just across the northern border of cellA
	nLat := rect.Hi().Lat.Degrees() + 0.0005
	cellN := CellID(nLat, lonA, testLevel)
	require.NotEqual(t, cellA, cellN)

	src := &fakeSource{tiles: map[s2.CellID]*Tile{
		// resident tile carries a margin, the neighbour tile is packaged wrongly
		cellA: tileAt(cellA, CellBoundingBox(cellA, 500)),
		cellN: tileAt(cellN, datastructure.NewBoundingBox(0, 0, 0, 0)),
	}}
	c := NewCursor(src)
	_, _, err := c.Locate(context.Background(), latA, lonA)
	require.NoError(t, err)

	tl, changed, err := c.Locate(context.Background(), nLat, lonA)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, cellA, tl.GetCell())
}
