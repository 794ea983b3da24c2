package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crowd-dev/crowd-api/modules/automation/domain/aggregates/automation"
	"github.com/crowd-dev/crowd-api/modules/automation/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
	"github.com/crowd-dev/crowd-api/pkg/middleware"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

type AutomationController struct {
	automations *services.AutomationService
	signer      *token.Signer
	pageSize    int
	maxPageSize int
	basePath    string
}

func NewAutomationController(app application.Application) application.Controller {
	c := app.Collaborators()
	return &AutomationController{
		automations: app.Service(services.AutomationService{}).(*services.AutomationService),
		signer:      c.Tokens,
		pageSize:    c.PageSize,
		maxPageSize: c.MaxPageSize,
		basePath:    "/api/tenant/{tenantId}/automation",
	}
}

func (c *AutomationController) Key() string {
	return c.basePath
}

func (c *AutomationController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(
		middleware.Authenticate(c.signer),
		middleware.ProvideTenant(),
	)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Destroy).Methods(http.MethodDelete)
}

func (c *AutomationController) List(w http.ResponseWriter, r *http.Request) {
	params, err := httpapi.ParseListParams(r, c.pageSize, c.maxPageSize)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	rows, count, err := c.automations.FindAndCountAll(r.Context(), &automation.FindParams{
		Filter:  params.Filter,
		Limit:   params.Limit,
		Offset:  params.Offset,
		OrderBy: params.OrderBy,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, httpapi.Page[*automation.Automation]{
		Rows:   rows,
		Count:  count,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

func (c *AutomationController) Create(w http.ResponseWriter, r *http.Request) {
	var dto automation.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	created, err := c.automations.Create(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *AutomationController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	a, err := c.automations.FindByID(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, a)
}

func (c *AutomationController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto automation.UpdateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	updated, err := c.automations.Update(r.Context(), id, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, updated)
}

func (c *AutomationController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.automations.Destroy(r.Context(), id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
