package application

import (
	"time"

	"github.com/crowd-dev/crowd-api/pkg/analytics"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/enrichment"
	"github.com/crowd-dev/crowd-api/pkg/featureflags"
	"github.com/crowd-dev/crowd-api/pkg/oauth"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

// Collaborators are the external services modules depend on. Fields left
// nil are filled with inert defaults by New: a permissive checker, a no-op
// analytics sink, a static flag provider with nothing enabled and disabled
// enrichment. Production wiring sets every field.
type Collaborators struct {
	Authz      authz.Checker
	Analytics  analytics.Sink
	Flags      featureflags.Provider
	Enrichment enrichment.Provider
	TxManager  composables.TxManager
	OAuth      oauth.Exchanger
	State      *oauth.StateCodec
	// Tokens verifies bearer tokens on tenant API routes.
	Tokens *token.Signer
	// FrontendURL is the redirect used when an OAuth state is unreadable.
	FrontendURL string
	// FlagPollInterval and FlagMaxAttempts bound the automation flag wait.
	FlagPollInterval time.Duration
	FlagMaxAttempts  int
	// CanDeletePolicy is "silent" or "reject".
	CanDeletePolicy string
	// PopulateRelations is the hydration default for this service role.
	PopulateRelations bool
	PageSize          int
	MaxPageSize       int
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Authz == nil {
		c.Authz = authz.AllowAll{}
	}
	if c.Analytics == nil {
		c.Analytics = analytics.NopSink{}
	}
	if c.Flags == nil {
		c.Flags = featureflags.NewStaticProvider()
	}
	if c.Enrichment == nil {
		c.Enrichment = enrichment.Disabled{}
	}
	if c.TxManager == nil {
		c.TxManager = composables.NewTxManager()
	}
	if c.State == nil {
		c.State = oauth.NewStateCodec("insecure-test-secret", 0)
	}
	if c.Tokens == nil {
		c.Tokens = token.NewSigner("insecure-test-secret")
	}
	if c.PageSize <= 0 {
		c.PageSize = 50
	}
	if c.MaxPageSize < c.PageSize {
		c.MaxPageSize = 200
	}
	if c.FlagPollInterval <= 0 {
		c.FlagPollInterval = 500 * time.Millisecond
	}
	if c.FlagMaxAttempts <= 0 {
		c.FlagMaxAttempts = 10
	}
	if c.CanDeletePolicy == "" {
		c.CanDeletePolicy = "silent"
	}
	return c
}
