package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	TenantIDKey  ContextKey = "tenantID"
	PrincipalKey ContextKey = "principal"
	RequestStart ContextKey = "requestStart"
	LocaleKey    ContextKey = "locale"
	LocalizerKey ContextKey = "localizer"
	HydrationKey ContextKey = "hydration"
)

// DefaultLimit is the page size used when a list request omits limit.
const DefaultLimit = 50

var Validate = validator.New(validator.WithRequiredStructEnabled())
