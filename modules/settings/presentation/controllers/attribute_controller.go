package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crowd-dev/crowd-api/modules/settings/domain/aggregates/attribute"
	"github.com/crowd-dev/crowd-api/modules/settings/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
	"github.com/crowd-dev/crowd-api/pkg/middleware"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

type AttributeController struct {
	attributes  *services.AttributeService
	signer      *token.Signer
	pageSize    int
	maxPageSize int
	basePath    string
}

func NewAttributeController(app application.Application) application.Controller {
	c := app.Collaborators()
	return &AttributeController{
		attributes:  app.Service(services.AttributeService{}).(*services.AttributeService),
		signer:      c.Tokens,
		pageSize:    c.PageSize,
		maxPageSize: c.MaxPageSize,
		basePath:    "/api/tenant/{tenantId}/settings/members/attributes",
	}
}

func (c *AttributeController) Key() string {
	return c.basePath
}

func (c *AttributeController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(
		middleware.Authenticate(c.signer),
		middleware.ProvideTenant(),
	)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("", c.DestroyAll).Methods(http.MethodDelete)
	router.HandleFunc("/predefined/{platform}", c.CreatePredefined).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Destroy).Methods(http.MethodDelete)
}

func (c *AttributeController) List(w http.ResponseWriter, r *http.Request) {
	params, err := httpapi.ParseListParams(r, c.pageSize, c.maxPageSize)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	rows, count, err := c.attributes.FindAndCountAll(r.Context(), &attribute.FindParams{
		Filter:  params.Filter,
		Limit:   params.Limit,
		Offset:  params.Offset,
		OrderBy: params.OrderBy,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, httpapi.Page[*attribute.Setting]{
		Rows:   rows,
		Count:  count,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

func (c *AttributeController) Create(w http.ResponseWriter, r *http.Request) {
	var dto attribute.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	created, err := c.attributes.Create(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *AttributeController) CreatePredefined(w http.ResponseWriter, r *http.Request) {
	platform := mux.Vars(r)["platform"]
	list, ok := attribute.Predefined[platform]
	if !ok {
		httpapi.WriteServiceError(w, r, serrors.Validation("unknownPlatform", "no predefined attributes for "+platform))
		return
	}
	// The shared slice must not be normalized in place.
	dtos := append([]attribute.CreateDTO(nil), list...)
	out, err := c.attributes.CreatePredefined(r.Context(), dtos)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *AttributeController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	s, err := c.attributes.FindByID(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, s)
}

func (c *AttributeController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto attribute.UpdateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	updated, err := c.attributes.Update(r.Context(), id, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, updated)
}

func (c *AttributeController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.attributes.Destroy(r.Context(), id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *AttributeController) DestroyAll(w http.ResponseWriter, r *http.Request) {
	ids, err := httpapi.QueryIDs(r, "ids")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.attributes.DestroyAll(r.Context(), ids); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
