package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/roadtrace/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/roadtrace/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/roadtrace/pkg/http/server"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type API struct {
	log *zap.Logger
}

func NewAPI(log *zap.Logger) *API {
	return &API{log: log}
}

type Options struct {
	RateLimit float64 // requests per second per client, 0 disables
	RateBurst int
}

// Handler builds the middleware chain and routes.
func (api *API) Handler(opts Options, matchService controllers.MatchService,
	watcherService controllers.WatcherService) http.Handler {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	group := router_helper.NewRouteGroup(router, "/api")
	controllers.New(matchService, watcherService, api.log).Routes(group)

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Logger(api.log)}
	if opts.RateLimit > 0 {
		mwChain = append(mwChain, Limit(opts.RateLimit, opts.RateBurst))
	}
	return alice.New(mwChain...).Then(router)
}

// Run serves until ctx is done or the listener fails.
func (api *API) Run(
	ctx context.Context,
	config http_server.Config,
	opts Options,
	matchService controllers.MatchService,
	watcherService controllers.WatcherService,
) error {
	api.log.Info("Run httprouter API")

	srv := http_server.New(ctx, api.Handler(opts, matchService, watcherService), config)
	api.log.Info(fmt.Sprintf("API run on port %d", config.Port))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		api.log.Info("HTTP server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
		api.log.Info("Context canceled, shutting down server")
		if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
