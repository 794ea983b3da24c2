package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/crowd-dev/crowd-api/modules/integration/domain/aggregates/integration"
	"github.com/crowd-dev/crowd-api/modules/integration/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/oauth"
)

// OAuthCallbackController finishes provider round trips. It is not behind
// bearer auth; the signed state restores tenant and caller instead.
type OAuthCallbackController struct {
	integrations *services.IntegrationService
	exchanger    oauth.Exchanger
	state        *oauth.StateCodec
	frontendURL  string
	basePath     string
}

func NewOAuthCallbackController(app application.Application) application.Controller {
	c := app.Collaborators()
	return &OAuthCallbackController{
		integrations: app.Service(services.IntegrationService{}).(*services.IntegrationService),
		exchanger:    c.OAuth,
		state:        c.State,
		frontendURL:  c.FrontendURL,
		basePath:     "/api/{platform}/callback",
	}
}

func (c *OAuthCallbackController) Key() string {
	return c.basePath
}

func (c *OAuthCallbackController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.Callback).Methods(http.MethodGet)
}

func (c *OAuthCallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	platform := mux.Vars(r)["platform"]
	q := r.URL.Query()
	logger := composables.UseLogger(r.Context()).WithField("platform", platform)

	state, err := c.state.Decode(q.Get("state"))
	if err == nil && state.Platform != platform {
		err = errPlatformMismatch
	}
	if err != nil {
		logger.WithError(err).Warn("oauth callback with unreadable state")
		http.Redirect(w, r, oauth.ErrorRedirect("", c.frontendURL, platform), http.StatusFound)
		return
	}

	fail := func(err error) {
		logger.WithError(err).WithField("tenant-id", state.TenantID.String()).Warn("oauth callback failed")
		http.Redirect(w, r, oauth.ErrorRedirect(state.RedirectURL, c.frontendURL, platform), http.StatusFound)
	}
	if providerErr := q.Get("error"); providerErr != "" {
		fail(&providerError{code: providerErr, description: q.Get("error_description")})
		return
	}
	if c.exchanger == nil {
		fail(errNotConfigured)
		return
	}

	ctx := composables.WithPrincipal(r.Context(), &composables.Principal{
		UserID:   state.UserID,
		TenantID: state.TenantID,
		Roles:    state.Roles,
	})
	ctx = composables.WithTenantID(ctx, state.TenantID)

	tok, err := c.exchanger.Exchange(ctx, platform, q.Get("code"), c.state.Verifier(state))
	if err != nil {
		fail(err)
		return
	}
	if _, err := c.integrations.Connect(ctx, connectDTO(ctx, platform, q, tok)); err != nil {
		fail(err)
		return
	}
	http.Redirect(w, r, state.RedirectURL, http.StatusFound)
}

func connectDTO(ctx context.Context, platform string, q url.Values, tok *oauth2.Token) *integration.ConnectDTO {
	dto := &integration.ConnectDTO{
		Platform: platform,
		Token:    &tok.AccessToken,
		Status:   integration.StatusInProgress,
	}
	if tok.RefreshToken != "" {
		dto.RefreshToken = &tok.RefreshToken
	}
	if id := externalIdentifier(platform, q, tok); id != "" {
		dto.IntegrationIdentifier = &id
	} else {
		composables.UseLogger(ctx).WithFields(logrus.Fields{"platform": platform}).Debug("no integration identifier in callback")
	}
	return dto
}

// externalIdentifier picks the id of the connected guild, workspace or
// installation out of the callback.
func externalIdentifier(platform string, q url.Values, tok *oauth2.Token) string {
	switch platform {
	case oauth.Discord:
		return q.Get("guild_id")
	case oauth.GitHub:
		return q.Get("installation_id")
	case oauth.Slack:
		if team, ok := tok.Extra("team").(map[string]any); ok {
			if id, ok := team["id"].(string); ok {
				return id
			}
		}
	}
	return ""
}
