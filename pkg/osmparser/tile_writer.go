package osmparser

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/geo/s2"
	"github.com/lintang-b-s/roadtrace/pkg/concurrent"
	"github.com/lintang-b-s/roadtrace/pkg/datastructure"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

type TileWriterConfig struct {
	Dir     string
	Level   int
	MarginM float64
	Workers int
}

type TileSummary struct {
	Cell  s2.CellID
	Path  string
	Edges int
}

// WriteTiles partitions edges into one tile per cell. An edge goes to every cell its bounding box,
// expanded by the margin, touches; edges near a border therefore exist in both tiles.
func WriteTiles(ctx context.Context, edges []Edge, cfg TileWriterConfig, log *zap.Logger) ([]TileSummary, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "create tile dir %s", cfg.Dir)
	}

	byCell := make(map[s2.CellID][]int)
	for i, e := range edges {
		if len(e.Geometry) == 0 {
			continue
		}
		for _, cell := range tile.CellsCovering(e.BoundingBox(), cfg.Level, cfg.MarginM) {
			byCell[cell] = append(byCell[cell], i)
		}
	}

	cells := make([]s2.CellID, 0, len(byCell))
	for cell := range byCell {
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })
	log.Sugar().Infof("writing %d tiles at cell level %d", len(cells), cfg.Level)

	type written struct {
		summary TileSummary
		err     error
	}
	results := concurrent.Run(ctx, cfg.Workers, cells, func(ctx context.Context, cell s2.CellID) written {
		if err := ctx.Err(); err != nil {
			return written{err: err}
		}
		b := datastructure.NewTileGraphBuilder(cell.ToToken(), tile.CellBoundingBox(cell, cfg.MarginM))
		for _, i := range byCell[cell] {
			e := edges[i]
			b.AddEdgeWithKey(e.Key, e.Geometry, e.Highway, e.Name)
		}
		path := filepath.Join(cfg.Dir, tile.TileFileName(cell))
		if err := b.Build().WriteTile(path); err != nil {
			return written{err: util.WrapErrorf(err, util.ErrInternalServerError, "write tile %s", cell.ToToken())}
		}
		return written{summary: TileSummary{Cell: cell, Path: path, Edges: b.NumberOfEdges()}}
	})

	summaries := make([]TileSummary, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			return summaries, r.err
		}
		summaries = append(summaries, r.summary)
	}
	return summaries, nil
}
