package authz

import (
	"context"
	"strings"

	"github.com/crowd-dev/crowd-api/pkg/composables"
)

// Checker is consulted before every mutating or sensitive read operation.
type Checker interface {
	ValidateHas(ctx context.Context, permission string) error
}

// ValidateHas checks a permission key such as "member.create" for the
// principal and tenant found in ctx. Permissions granted directly in the
// principal's token allow the request without consulting the policy.
func (s *Service) ValidateHas(ctx context.Context, permission string) error {
	tenantID, _ := composables.UseTenantID(ctx)
	principal, err := composables.UsePrincipal(ctx)
	if err != nil {
		principal = &composables.Principal{}
	}
	if principal.TenantID == tenantID && principal.Has(permission) {
		return nil
	}

	object, action := SplitPermission(permission)
	req := NewRequest(
		SubjectForUser(tenantID, principal.UserID),
		DomainFromTenant(tenantID),
		object,
		action,
	)
	roles := make([]string, 0, len(principal.Roles))
	for _, role := range principal.Roles {
		roles = append(roles, SubjectForRole(role))
	}
	return s.Authorize(ctx, req, roles...)
}

// SplitPermission turns "memberAttributeSettings.edit" into its object and
// action parts. A key without a dot is treated as an object with any action.
func SplitPermission(permission string) (string, string) {
	permission = strings.TrimSpace(permission)
	i := strings.LastIndex(permission, objectSeparator)
	if i <= 0 {
		return strings.ToLower(permission), defaultActionWildcard
	}
	return strings.ToLower(permission[:i]), NormalizeAction(permission[i+1:])
}

// AllowAll is a Checker that grants everything, used by internal callers.
type AllowAll struct{}

func (AllowAll) ValidateHas(context.Context, string) error { return nil }
