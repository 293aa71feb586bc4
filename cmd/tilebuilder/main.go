package main

import (
	"context"
	"flag"
	"runtime"

	"github.com/lintang-b-s/roadtrace/pkg/logger"
	"github.com/lintang-b-s/roadtrace/pkg/osmparser"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

var (
	mapFile = flag.String("f", "./data/map.osm.pbf", "openstreetmap file (.osm.pbf or .osm)")
	outDir  = flag.String("out", "", "tile directory, defaults to tiles.dir")
	workers = flag.Int("workers", runtime.NumCPU(), "number of tiles written concurrently")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := util.LoadConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	dir := cfg.Tiles.Dir
	if *outDir != "" {
		dir = *outDir
	}

	ctx := context.Background()
	parser := osmparser.NewOsmParser(logger)
	edges, err := parser.Parse(ctx, osmparser.FileScanner(*mapFile))
	if err != nil {
		logger.Fatal("parse osm", zap.String("file", *mapFile), zap.Error(err))
	}

	tiles, err := osmparser.WriteTiles(ctx, edges, osmparser.TileWriterConfig{
		Dir:     dir,
		Level:   cfg.Tiles.CellLevel,
		MarginM: cfg.Tiles.MarginM,
		Workers: *workers,
	}, logger)
	if err != nil {
		logger.Fatal("write tiles", zap.Error(err))
	}

	logger.Sugar().Infof("wrote %d tiles with %d edges to %s", len(tiles), len(edges), dir)
}
