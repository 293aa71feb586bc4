package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/geo"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/lintang-b-s/roadtrace/pkg/trace"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const t0 = int64(1700000000000)

type fixture struct {
	pipeline *Pipeline
	cell     s2.CellID
	lat, lon float64
}

// newFixture writes a tile with edge A running east into node 2, B north and C south of it.
func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg, err := util.DefaultConfig()
	require.NoError(t, err)
	cell := tile.CellID(-7.7956, 110.3695, cfg.Tiles.CellLevel)
	ll := cell.LatLng()
	lat, lon := ll.Lat.Degrees(), ll.Lng.Degrees()

	b := datastructure.NewTileGraphBuilder(cell.ToToken(), tile.CellBoundingBox(cell, cfg.Tiles.MarginM))
	b.AddEdge(1, 2, []geo.Coordinate{geo.NewCoordinate(lat, lon-0.0005), geo.NewCoordinate(lat, lon)},
		"residential", "A")
	b.AddEdge(2, 3, []geo.Coordinate{geo.NewCoordinate(lat, lon), geo.NewCoordinate(lat+0.0005, lon)},
		"tertiary", "B")
	b.AddEdge(2, 4, []geo.Coordinate{geo.NewCoordinate(lat, lon), geo.NewCoordinate(lat-0.0005, lon)},
		"residential", "")

	dir := t.TempDir()
	require.NoError(t, b.Build().WriteTile(filepath.Join(dir, tile.TileFileName(cell))))

	store, err := tile.NewStore(dir, cfg.Tiles.CellLevel, cfg.Tiles.CacheSize, zap.NewNop())
	require.NoError(t, err)
	return fixture{
		pipeline: NewPipeline(cfg, store, zap.NewNop()),
		cell:     cell,
		lat:      lat,
		lon:      lon,
	}
}

func (f fixture) crossingTrace() *trace.RawTrace {
	raw := &trace.RawTrace{Metadata: map[string]string{"device": "test"}}
	for i := 0; i < 10; i++ {
		raw.Samples = append(raw.Samples, trace.RawSample{Timestamp: t0 + int64(i)*1000, Lat: f.lat,
			Lon: f.lon - 0.00045 + float64(i)*0.00004, Speed: 20, Heading: 90})
	}
	for j := 0; j < 5; j++ {
		raw.Samples = append(raw.Samples, trace.RawSample{Timestamp: t0 + int64(10+j)*1000,
			Lat: f.lat + 0.00035 + float64(j)*0.00003, Lon: f.lon, Speed: 20, Heading: 0})
	}
	return raw
}

func TestProcessTraceCrossing(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipeline.ProcessTrace(context.Background(), f.crossingTrace())
	require.NoError(t, err)

	require.Len(t, res.Runs, 2)
	assert.Equal(t, "A", res.Runs[0].Name)
	assert.Equal(t, 0, res.Runs[0].StartSampleIndex)
	assert.Equal(t, 9, res.Runs[0].EndSampleIndex)
	assert.Equal(t, "B", res.Runs[1].Name)
	assert.Equal(t, 10, res.Runs[1].StartSampleIndex)
	assert.Equal(t, 14, res.Runs[1].EndSampleIndex)
	assert.Equal(t, "tertiary", res.Runs[1].HighwayClass)
	assert.Equal(t, t0+10000, res.Runs[1].StartTimestamp)

	assert.Equal(t, 15, res.Stats.Matched)
	assert.Equal(t, 0, res.Stats.Skipped)
	assert.Equal(t, "test", res.Metadata["device"])
}

func TestProcessTraceIdempotent(t *testing.T) {
	f := newFixture(t)
	a, err := f.pipeline.ProcessTrace(context.Background(), f.crossingTrace())
	require.NoError(t, err)
	b, err := f.pipeline.ProcessTrace(context.Background(), f.crossingTrace())
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Runs, b.Runs)
}

func TestProcessTraceCoverage(t *testing.T) {
	f := newFixture(t)
	res, err := f.pipeline.ProcessTrace(context.Background(), f.crossingTrace())
	require.NoError(t, err)

	covered := make([]int, len(res.Samples))
	for _, r := range res.Runs {
		for i := r.StartSampleIndex; i <= r.EndSampleIndex; i++ {
			covered[i]++
		}
	}
	for i, c := range covered {
		assert.Equal(t, 1, c, "sample %d", i)
	}
}

func TestProcessTraceStationary(t *testing.T) {
	f := newFixture(t)
	raw := &trace.RawTrace{}
	for i := 0; i < 5; i++ {
		raw.Samples = append(raw.Samples, trace.RawSample{Timestamp: t0 + int64(i)*1000, Lat: f.lat,
			Lon: f.lon - 0.0002, Speed: 0})
	}
	res, err := f.pipeline.ProcessTrace(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, res.Runs)
	assert.Empty(t, res.Samples)
	assert.Equal(t, 1, res.Stats.Deduplicated)
}

func TestProcessTraceUngraphed(t *testing.T) {
	f := newFixture(t)
	raw := &trace.RawTrace{Samples: []trace.RawSample{
		{Timestamp: t0, Lat: 51.50, Lon: -0.12, Speed: 10},
		{Timestamp: t0 + 1000, Lat: 51.5001, Lon: -0.12, Speed: 10},
	}}
	_, err := f.pipeline.ProcessTrace(context.Background(), raw)
	assert.ErrorIs(t, err, ErrUngraphedTrace)
	assert.ErrorIs(t, err, tile.ErrNoGraphData)
}

func TestProcessTraceGapSplitsRun(t *testing.T) {
	f := newFixture(t)
	raw := &trace.RawTrace{}
	add := func(lat, lon float64) {
		raw.Samples = append(raw.Samples, trace.RawSample{Timestamp: t0 + int64(len(raw.Samples))*1000,
			Lat: lat, Lon: lon, Speed: 15, Heading: 0})
	}
	add(f.lat+0.0001, f.lon)
	add(f.lat+0.00015, f.lon)
	add(f.lat+0.0002, f.lon)
	// a cell without a tile
	add(-6.2, 106.8)
	add(f.lat+0.00025, f.lon)
	add(f.lat+0.0003, f.lon)

	res, err := f.pipeline.ProcessTrace(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Skipped)
	require.Len(t, res.Runs, 2)
	assert.Equal(t, res.Runs[0].ID, res.Runs[1].ID)
	assert.Equal(t, 2, res.Runs[0].EndSampleIndex)
	assert.Equal(t, 4, res.Runs[1].StartSampleIndex)
}

func TestProcessTraceCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.pipeline.ProcessTrace(ctx, f.crossingTrace())
	assert.ErrorIs(t, err, context.Canceled)
}

func writeCSV(t *testing.T, dir, name string, raw *trace.RawTrace) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("# device: test\n")
	sb.WriteString("timestamp,lat,lon,speed,heading\n")
	for _, s := range raw.Samples {
		fmt.Fprintf(&sb, "%d,%s,%s,%s,%s\n", s.Timestamp, util.FormatFloat(s.Lat), util.FormatFloat(s.Lon),
			util.FormatFloat(s.Speed), util.FormatFloat(s.Heading))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestProcessFiles(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	good := writeCSV(t, dir, "RecWay_1.csv", f.crossingTrace())
	bad := filepath.Join(dir, "RecWay_missing.csv")

	results := f.pipeline.ProcessFiles(context.Background(), []string{good, bad, good}, 2)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, good, results[0].Result.Source)
	assert.Len(t, results[0].Result.Runs, 2)

	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Result)

	require.NoError(t, results[2].Err)
	assert.Equal(t, results[0].Result.Runs, results[2].Result.Runs)
}
