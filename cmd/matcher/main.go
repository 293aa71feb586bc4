package main

import (
	"context"
	"flag"
	"os"
	"runtime"

	"github.com/lintang-b-s/roadtrace/pkg/logger"
	"github.com/lintang-b-s/roadtrace/pkg/output"
	"github.com/lintang-b-s/roadtrace/pkg/pipeline"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

var (
	workers = flag.Int("workers", runtime.NumCPU(), "number of traces matched concurrently")
	kml     = flag.Bool("kml", false, "also write a kml file per trace")
)

// matcher runs the pipeline once over the trace files given as arguments.
func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if flag.NArg() == 0 {
		logger.Fatal("usage: matcher [-workers n] [-kml] trace.csv...")
	}

	cfg, err := util.LoadConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if *kml {
		cfg.Output.KML = true
	}

	store, err := tile.NewStore(cfg.Tiles.Dir, cfg.Tiles.CellLevel, cfg.Tiles.CacheSize, logger)
	if err != nil {
		logger.Fatal("open tile store", zap.Error(err))
	}
	pipe := pipeline.NewPipeline(cfg, store, logger)
	sink := output.NewSink(cfg.Output, logger)

	failed := 0
	for _, fr := range pipe.ProcessFiles(context.Background(), flag.Args(), *workers) {
		if fr.Err != nil {
			failed++
			logger.Error("match trace", zap.String("file", fr.Path), zap.Error(fr.Err))
			continue
		}
		written, err := sink.Write(fr.Result)
		if err != nil {
			failed++
			logger.Error("write output", zap.String("file", fr.Path), zap.Error(err))
			continue
		}
		logger.Info("trace matched", zap.String("file", fr.Path), zap.Int("runs", len(fr.Result.Runs)),
			zap.Any("stats", fr.Result.Stats), zap.Strings("output", written))
	}
	if failed > 0 {
		logger.Sync()
		os.Exit(1)
	}
}
