package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/lintang-b-s/roadtrace/pkg/http"
	"github.com/lintang-b-s/roadtrace/pkg/http/router/controllers"
	"github.com/lintang-b-s/roadtrace/pkg/http/usecases"
	"github.com/lintang-b-s/roadtrace/pkg/logger"
	"github.com/lintang-b-s/roadtrace/pkg/output"
	"github.com/lintang-b-s/roadtrace/pkg/pipeline"
	"github.com/lintang-b-s/roadtrace/pkg/tile"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"github.com/lintang-b-s/roadtrace/pkg/watcher"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	enableWatcher = flag.Bool("watcher", true, "watch watcher.dir for new trace files")
	enableAPI     = flag.Bool("api", true, "serve the ops http api")
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
	pipe := pipeline.NewPipeline(cfg, store, logger)
	sink := output.NewSink(cfg.Output, logger)

	ctx, cleanup := NewContext()
	defer cleanup()

	group, gctx := errgroup.WithContext(ctx)

	var watcherService controllers.WatcherService
	if *enableWatcher {
		fileWatcher := watcher.NewWatcher(cfg.Watcher, func(ctx context.Context, path string) error {
			res, err := pipe.ProcessFile(ctx, path)
			if err != nil {
				return err
			}
			written, err := sink.Write(res)
			if err != nil {
				return err
			}
			logger.Info("trace matched", zap.String("file", path), zap.Int("runs", len(res.Runs)),
				zap.Strings("output", written), zap.Duration("elapsed", res.Elapsed))
			return nil
		}, logger)
		watcherService = fileWatcher
		group.Go(func() error {
			return fileWatcher.Run(gctx)
		})
	}

	if *enableAPI {
		api := http.NewServer(logger)
		matchService := usecases.NewMatchService(logger, pipe, sink)
		group.Go(func() error {
			return api.Use(gctx, cfg.API, matchService, watcherService)
		})
	}

	go func() {
		signal := http.GracefulShutdown()
		logger.Info("shutdown signal received", zap.String("signal", signal.String()))
		cleanup()
	}()

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("roadtrace engine stopped", zap.Error(err))
		return
	}
	logger.Info(fmt.Sprintf("roadtrace engine stopped, tiles dir %s", store.Dir()))
}

func NewContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	return ctx, cancel
}
