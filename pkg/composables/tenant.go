package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/pkg/constants"
)

var (
	ErrNoTenantIDFound  = errors.New("tenant id not found in context")
	ErrNoPrincipalFound = errors.New("principal not found in context")
)

// Tenant is the isolation boundary restored for every request.
type Tenant struct {
	ID   uuid.UUID
	Name string
	Plan string
}

func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoTenantIDFound
	}
	return id, nil
}

// Principal is the acting user. Credentials are verified before it is put
// into the context; services only read it.
type Principal struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Roles       []string
	Permissions []string
}

// Has reports whether the principal was granted the permission directly.
func (p *Principal) Has(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, constants.PrincipalKey, p)
}

func UsePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := ctx.Value(constants.PrincipalKey).(*Principal)
	if !ok || p == nil {
		return nil, ErrNoPrincipalFound
	}
	return p, nil
}

// UseUserID returns the acting user id, or uuid.Nil for system callers.
func UseUserID(ctx context.Context) uuid.UUID {
	p, err := UsePrincipal(ctx)
	if err != nil {
		return uuid.Nil
	}
	return p.UserID
}

// WithPopulateRelations overrides relation hydration for the request.
func WithPopulateRelations(ctx context.Context, populate bool) context.Context {
	return context.WithValue(ctx, constants.HydrationKey, populate)
}

// UsePopulateRelations returns the request override, or fallback when none
// was set.
func UsePopulateRelations(ctx context.Context, fallback bool) bool {
	if v, ok := ctx.Value(constants.HydrationKey).(bool); ok {
		return v
	}
	return fallback
}
