package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/crowd-dev/crowd-api/modules/integration/domain/aggregates/integration"
	"github.com/crowd-dev/crowd-api/modules/integration/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
	"github.com/crowd-dev/crowd-api/pkg/middleware"
	"github.com/crowd-dev/crowd-api/pkg/oauth"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

type IntegrationController struct {
	integrations *services.IntegrationService
	exchanger    oauth.Exchanger
	state        *oauth.StateCodec
	signer       *token.Signer
	frontendURL  string
	pageSize     int
	maxPageSize  int
	basePath     string
}

func NewIntegrationController(app application.Application) application.Controller {
	c := app.Collaborators()
	return &IntegrationController{
		integrations: app.Service(services.IntegrationService{}).(*services.IntegrationService),
		exchanger:    c.OAuth,
		state:        c.State,
		signer:       c.Tokens,
		frontendURL:  c.FrontendURL,
		pageSize:     c.PageSize,
		maxPageSize:  c.MaxPageSize,
		basePath:     "/api/tenant/{tenantId}/integration",
	}
}

func (c *IntegrationController) Key() string {
	return c.basePath
}

func (c *IntegrationController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(
		middleware.Authenticate(c.signer),
		middleware.ProvideTenant(),
	)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/authenticate/{platform}", c.Authenticate).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Destroy).Methods(http.MethodDelete)
}

func (c *IntegrationController) List(w http.ResponseWriter, r *http.Request) {
	params, err := httpapi.ParseListParams(r, c.pageSize, c.maxPageSize)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	rows, count, err := c.integrations.FindAndCountAll(r.Context(), &integration.FindParams{
		Filter:  params.Filter,
		Limit:   params.Limit,
		Offset:  params.Offset,
		OrderBy: params.OrderBy,
	})
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, httpapi.Page[*integration.Integration]{
		Rows:   rows,
		Count:  count,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

type authenticateResponse struct {
	URL string `json:"url"`
}

// Authenticate returns the provider consent URL. The signed state carries
// the tenant, the caller and where to send the browser afterwards, which
// must live under the frontend URL.
func (c *IntegrationController) Authenticate(w http.ResponseWriter, r *http.Request) {
	platform := mux.Vars(r)["platform"]
	redirectURL := r.URL.Query().Get("redirectUrl")
	if redirectURL == "" {
		redirectURL = c.frontendURL
	}
	if c.frontendURL != "" && !strings.HasPrefix(redirectURL, c.frontendURL) {
		httpapi.WriteServiceError(w, r, serrors.Validation("invalidRedirectUrl", "redirectUrl must point to the frontend"))
		return
	}
	if c.exchanger == nil {
		httpapi.WriteServiceError(w, r, serrors.Validation("platformNotConfigured", platform+" is not configured"))
		return
	}
	principal, err := composables.UsePrincipal(r.Context())
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	state := &oauth.State{
		TenantID:    principal.TenantID,
		UserID:      principal.UserID,
		Roles:       principal.Roles,
		RedirectURL: redirectURL,
		Platform:    platform,
	}
	raw, err := c.state.Encode(state)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	url, err := c.exchanger.AuthCodeURL(platform, raw, c.state.Verifier(state))
	if err != nil {
		httpapi.WriteServiceError(w, r, serrors.Validation("platformNotConfigured", err.Error()))
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, authenticateResponse{URL: url})
}

func (c *IntegrationController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	i, err := c.integrations.FindByID(r.Context(), id)
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, i)
}

func (c *IntegrationController) Destroy(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	if err := c.integrations.Destroy(r.Context(), id); err != nil {
		httpapi.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
