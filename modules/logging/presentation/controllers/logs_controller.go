package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/modules/logging/presentation/mappers"
	"github.com/iota-uz/portal/modules/logging/presentation/viewmodels"
	"github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/application"
	"github.com/iota-uz/portal/pkg/composables"
	"github.com/iota-uz/portal/pkg/httpapi"
	"github.com/iota-uz/portal/pkg/middleware"
)

type LogsQuery struct {
	Category string `form:"category"`
	Level    string `form:"level"`
	UserID   string `form:"userId"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

func (q *LogsQuery) ToFindParams() (*logrecord.FindParams, error) {
	params := &logrecord.FindParams{
		Category: q.Category,
		UserID:   q.UserID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Level != "" {
		lvl, err := logrecord.ParseLevel(q.Level)
		if err != nil {
			return nil, err
		}
		params.Level = &lvl
	}
	return params, nil
}

type LogsController struct {
	logsService *services.LogsService
	basePath    string
}

func NewLogsController(app application.Application) application.Controller {
	return &LogsController{
		logsService: app.Service(services.LogsService{}).(*services.LogsService),
		basePath:    "/logs",
	}
}

func (c *LogsController) Key() string {
	return c.basePath
}

func (c *LogsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireUser())
	router.HandleFunc("", c.List).Methods(http.MethodGet)
}

func (c *LogsController) List(w http.ResponseWriter, r *http.Request) {
	query, err := composables.UseQuery(&LogsQuery{}, r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, "Invalid query parameters", nil)
		return
	}
	params, err := query.ToFindParams()
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeBadRequest, err.Error(), nil)
		return
	}

	records, err := c.logsService.List(r.Context(), params)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to list log records")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "Could not load logs", nil)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.LogsPage{
		Logs:   mappers.LogRecordsToViewModels(records),
		Limit:  c.logsService.EffectiveLimit(params.Limit),
		Offset: params.Offset,
	})
}
