package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/portal/modules/core/presentation/viewmodels"
	"github.com/iota-uz/portal/pkg/application"
	"github.com/iota-uz/portal/pkg/httpapi"
)

type HealthController struct{}

func NewHealthController() application.Controller {
	return &HealthController{}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Get).Methods(http.MethodGet, http.MethodHead)
}

func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, &viewmodels.Health{Status: "ok"})
}
