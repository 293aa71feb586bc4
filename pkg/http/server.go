package http

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	http_router "github.com/lintang-b-s/roadtrace/pkg/http/router"
	"github.com/lintang-b-s/roadtrace/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/roadtrace/pkg/http/server"
	"github.com/lintang-b-s/roadtrace/pkg/util"
	"go.uber.org/zap"
)

type Server struct {
	Log *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	return &Server{Log: log}
}

// Use serves the ops API until ctx is done.
func (s *Server) Use(
	ctx context.Context,
	cfg util.APIConfig,
	matchService controllers.MatchService,
	watcherService controllers.WatcherService,
) error {
	config := http_server.Config{
		Port:    cfg.Port,
		Timeout: cfg.Timeout,
	}
	opts := http_router.Options{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	}
	return http_router.NewAPI(s.Log).Run(ctx, config, opts, matchService, watcherService)
}

// GracefulShutdown blocks until SIGINT or SIGTERM arrives.
func GracefulShutdown() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	return <-quit
}
