package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/roadtrace/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

const maxBodyBytes = 32 << 20

type traceAPI struct {
	matchService   MatchService
	watcherService WatcherService
	validate       *validator.Validate
	trans          ut.Translator
	log            *zap.Logger
}

func New(matchService MatchService, watcherService WatcherService, log *zap.Logger) *traceAPI {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &traceAPI{
		matchService:   matchService,
		watcherService: watcherService,
		validate:       validate,
		trans:          trans,
		log:            log,
	}
}

func (api *traceAPI) Routes(group *helper.RouteGroup) {
	group.POST("/traces/match", api.matchTrace)
	group.GET("/watcher/status", api.watcherStatus)
	group.POST("/watcher/scan", api.watcherScan)
}

func (api *traceAPI) matchTrace(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request matchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}

	if err := api.validate.Struct(request); err != nil {
		vv := translateError(err, api.trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return
	}

	doc, err := api.matchService.MatchTrace(r.Context(), request.toRawTrace())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": doc}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *traceAPI) watcherStatus(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if api.watcherService == nil {
		api.errorResponse(w, r, http.StatusServiceUnavailable, "watcher_disabled", "file watcher is not running")
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": api.watcherService.Status()}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *traceAPI) watcherScan(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if api.watcherService == nil {
		api.errorResponse(w, r, http.StatusServiceUnavailable, "watcher_disabled", "file watcher is not running")
		return
	}
	api.watcherService.TriggerScan()
	if err := api.writeJSON(w, http.StatusAccepted, envelope{"data": "scan scheduled"}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
