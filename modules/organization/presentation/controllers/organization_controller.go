package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organization"
	"github.com/crowd-dev/crowd-api/modules/organization/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
	"github.com/crowd-dev/crowd-api/pkg/middleware"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

type OrganizationController struct {
	organizations *services.OrganizationService
	signer        *token.Signer
	pageSize      int
	maxPageSize   int
	basePath      string
}

func NewOrganizationController(app application.Application) application.Controller {
	c := app.Collaborators()
	return &OrganizationController{
		organizations: app.Service(services.OrganizationService{}).(*services.OrganizationService),
		signer:        c.Tokens,
		pageSize:      c.PageSize,
		maxPageSize:   c.MaxPageSize,
		basePath:      "/api/tenant/{tenantId}/organization",
	}
}

func (c *OrganizationController) Key() string {
	return c.basePath
}

func (c *OrganizationController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(
		middleware.Authenticate(c.signer),
		middleware.ProvideTenant(),
	)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("", c.DestroyAll).Methods(http.MethodDelete)
	router.HandleFunc("/autocomplete", c.Autocomplete).Methods(http.MethodGet)
	router.HandleFunc("/import", c.Import).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Destroy).Methods(http.MethodDelete)
}

func (c *OrganizationController) List(w http.ResponseWriter, r *http.Request) {
	params, err := httpapi.ParseListParams(r, c.pageSize, c.maxPageSize)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	rows, count, err := c.organizations.FindAndCountAll(r.Context(), &organization.FindParams{
		Filter:  params.Filter,
		Limit:   params.Limit,
		Offset:  params.Offset,
		OrderBy: params.OrderBy,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, httpapi.Page[*organization.Organization]{
		Rows:   rows,
		Count:  count,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// Create enriches by default; ?enrich=false stores the body as given.
func (c *OrganizationController) Create(w http.ResponseWriter, r *http.Request) {
	var dto organization.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	enrich := r.URL.Query().Get("enrich") != "false"
	created, err := c.organizations.Create(r.Context(), &dto, enrich)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

type importBody struct {
	Data       organization.CreateDTO `json:"data"`
	ImportHash string                 `json:"importHash"`
}

func (c *OrganizationController) Import(w http.ResponseWriter, r *http.Request) {
	var body importBody
	if err := httpapi.DecodeJSON(r, &body); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := body.Data.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	created, err := c.organizations.Import(r.Context(), &body.Data, body.ImportHash)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *OrganizationController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	o, err := c.organizations.FindByID(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, o)
}

func (c *OrganizationController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto organization.UpdateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	updated, err := c.organizations.Update(r.Context(), id, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, updated)
}

func (c *OrganizationController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.organizations.DestroyAll(r.Context(), []uuid.UUID{id}); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *OrganizationController) DestroyAll(w http.ResponseWriter, r *http.Request) {
	ids, err := httpapi.QueryIDs(r, "ids")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.organizations.DestroyAll(r.Context(), ids); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *OrganizationController) Autocomplete(w http.ResponseWriter, r *http.Request) {
	limit, err := httpapi.QueryInt(r, "limit", 0)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	items, err := c.organizations.FindAllAutocomplete(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, items)
}
