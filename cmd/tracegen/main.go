package main

import (
	"context"
	"flag"
	"time"

	"github.com/lintang-b-s/roadtrace/pkg/logger"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/lintang-b-s/roadtrace/pkg/trace"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	lat        = flag.Float64("lat", -7.7956, "latitude inside the tile to walk")
	lon        = flag.Float64("lon", 110.3695, "longitude inside the tile to walk")
	samples    = flag.Int("n", 600, "number of rows")
	interval   = flag.Int64("interval", 1000, "sampling interval in milliseconds")
	speed      = flag.Float64("speed", 10, "mean speed in m/s")
	noise      = flag.Float64("noise", 4, "gps position noise (std dev) in meters")
	dupRate    = flag.Float64("dup", 0.02, "probability of a duplicated row")
	stopRate   = flag.Float64("stop", 0.01, "probability of starting a stationary stretch")
	stopLength = flag.Int("stop_len", 20, "rows per stationary stretch")
	seed       = flag.Uint64("seed", 0, "random seed, 0 uses the clock")
	out        = flag.String("out", "./data/raw/RecWay_generated.csv", "output csv")
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
	store, err := tile.NewStore(cfg.Tiles.Dir, cfg.Tiles.CellLevel, cfg.Tiles.CacheSize, logger)
	if err != nil {
		logger.Fatal("open tile store", zap.Error(err))
	}
	t, err := store.Load(context.Background(), tile.CellID(*lat, *lon, store.Level()))
	if err != nil {
		logger.Fatal("load tile", zap.Float64("lat", *lat), zap.Float64("lon", *lon), zap.Error(err))
	}

	if t.GetGraph().NumberOfEdges() == 0 {
		logger.Fatal("tile has no roads", zap.String("cell", t.GetCell().ToToken()))
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	rd := rand.New(rand.NewSource(*seed))
	raw := generate(t.GetGraph(), walkConfig{
		Samples:      *samples,
		IntervalMs:   *interval,
		StartMs:      time.Now().UnixMilli(),
		Speed:        *speed,
		NoiseM:       *noise,
		HeadingNoise: 5,
		DupRate:      *dupRate,
		StopRate:     *stopRate,
		StopLength:   *stopLength,
	}, rd)

	if err := trace.WriteCSVFile(*out, raw); err != nil {
		logger.Fatal("write trace", zap.String("file", *out), zap.Error(err))
	}
	logger.Info("trace generated", zap.String("file", *out), zap.Int("rows", len(raw.Samples)),
		zap.Uint64("seed", *seed))
}
