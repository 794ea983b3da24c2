package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/crowd-dev/crowd-api/modules/member/domain/aggregates/member"
	"github.com/crowd-dev/crowd-api/modules/member/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
	"github.com/crowd-dev/crowd-api/pkg/middleware"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

type MemberController struct {
	members     *services.MemberService
	signer      *token.Signer
	pageSize    int
	maxPageSize int
	basePath    string
}

func NewMemberController(app application.Application) application.Controller {
	c := app.Collaborators()
	return &MemberController{
		members:     app.Service(services.MemberService{}).(*services.MemberService),
		signer:      c.Tokens,
		pageSize:    c.PageSize,
		maxPageSize: c.MaxPageSize,
		basePath:    "/api/tenant/{tenantId}/member",
	}
}

func (c *MemberController) Key() string {
	return c.basePath
}

func (c *MemberController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(
		middleware.Authenticate(c.signer),
		middleware.ProvideTenant(),
	)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("", c.DestroyAll).Methods(http.MethodDelete)
	router.HandleFunc("/autocomplete", c.Autocomplete).Methods(http.MethodGet)
	router.HandleFunc("/exists", c.Exists).Methods(http.MethodGet)
	router.HandleFunc("/merge-suggestions", c.MergeSuggestions).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Update).Methods(http.MethodPut)
	router.HandleFunc("/{id}", c.Destroy).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/to-merge", c.AddToMerge).Methods(http.MethodPut)
	router.HandleFunc("/{id}/to-merge", c.RemoveToMerge).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/no-merge", c.AddNoMerge).Methods(http.MethodPut)
	router.HandleFunc("/{id}/no-merge", c.RemoveNoMerge).Methods(http.MethodDelete)
}

func (c *MemberController) List(w http.ResponseWriter, r *http.Request) {
	params, err := httpapi.ParseListParams(r, c.pageSize, c.maxPageSize)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	rows, count, err := c.members.FindAndCountAll(r.Context(), &member.FindParams{
		Filter:  params.Filter,
		Limit:   params.Limit,
		Offset:  params.Offset,
		OrderBy: params.OrderBy,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, httpapi.Page[*member.Member]{
		Rows:   rows,
		Count:  count,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

func (c *MemberController) Create(w http.ResponseWriter, r *http.Request) {
	var dto member.CreateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	created, err := c.members.Create(r.Context(), &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *MemberController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	m, err := c.members.FindByID(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, m)
}

func (c *MemberController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	var dto member.UpdateDTO
	if err := httpapi.DecodeJSON(r, &dto); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if errs, ok := dto.Ok(r.Context()); !ok {
		httpapi.WriteValidationErrors(w, r, errs)
		return
	}
	updated, err := c.members.Update(r.Context(), id, &dto)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, updated)
}

func (c *MemberController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.members.Destroy(r.Context(), id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *MemberController) DestroyAll(w http.ResponseWriter, r *http.Request) {
	ids, err := httpapi.QueryIDs(r, "ids")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	n, err := c.members.DestroyAll(r.Context(), ids)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (c *MemberController) Autocomplete(w http.ResponseWriter, r *http.Request) {
	limit, err := httpapi.QueryInt(r, "limit", 0)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	items, err := c.members.FindAllAutocomplete(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, items)
}

func (c *MemberController) Exists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exists, err := c.members.MemberExists(r.Context(), q.Get("username"), q.Get("platform"))
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (c *MemberController) MergeSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := httpapi.QueryInt(r, "limit", c.pageSize)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	offset, err := httpapi.QueryInt(r, "offset", 0)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	out, err := c.members.FindMembersWithMergeSuggestions(r.Context(), limit, offset)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

type mergeEdgesBody struct {
	IDs []uuid.UUID `json:"ids"`
}

func (c *MemberController) edges(apply func(*services.MemberService, *http.Request, uuid.UUID, []uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpapi.PathID(r, "id")
		if err != nil {
			httpapi.WriteServiceError(w, r, err)
			return
		}
		var body mergeEdgesBody
		if err := httpapi.DecodeJSON(r, &body); err != nil {
			httpapi.WriteServiceError(w, r, err)
			return
		}
		if err := apply(c.members, r, id, body.IDs); err != nil {
			httpapi.WriteServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *MemberController) AddToMerge(w http.ResponseWriter, r *http.Request) {
	c.edges(func(s *services.MemberService, r *http.Request, id uuid.UUID, ids []uuid.UUID) error {
		return s.AddToMerge(r.Context(), id, ids)
	})(w, r)
}

func (c *MemberController) RemoveToMerge(w http.ResponseWriter, r *http.Request) {
	c.edges(func(s *services.MemberService, r *http.Request, id uuid.UUID, ids []uuid.UUID) error {
		return s.RemoveToMerge(r.Context(), id, ids)
	})(w, r)
}

func (c *MemberController) AddNoMerge(w http.ResponseWriter, r *http.Request) {
	c.edges(func(s *services.MemberService, r *http.Request, id uuid.UUID, ids []uuid.UUID) error {
		return s.AddNoMerge(r.Context(), id, ids)
	})(w, r)
}

func (c *MemberController) RemoveNoMerge(w http.ResponseWriter, r *http.Request) {
	c.edges(func(s *services.MemberService, r *http.Request, id uuid.UUID, ids []uuid.UUID) error {
		return s.RemoveNoMerge(r.Context(), id, ids)
	})(w, r)
}
