package authz

import (
	"strings"

	"github.com/google/uuid"
)

const (
	globalDomain          = "global"
	subjectTenantPrefix   = "tenant"
	subjectUserPrefix     = "user"
	rolePrefix            = "role"
	objectSeparator       = "."
	subjectSeparator      = ":"
	defaultActionWildcard = "*"
)

// Request is a single casbin evaluation: who, in which tenant, on what.
type Request struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

func NewRequest(subject, domain, object, action string) Request {
	return Request{
		Subject: subject,
		Domain:  domain,
		Object:  object,
		Action:  action,
	}
}

// SubjectForUser builds tenant:{tenantID}:user:{userID}.
func SubjectForUser(tenantID, userID uuid.UUID) string {
	userPart := "anonymous"
	if userID != uuid.Nil {
		userPart = userID.String()
	}
	return strings.Join([]string{
		subjectTenantPrefix, DomainFromTenant(tenantID),
		subjectUserPrefix, userPart,
	}, subjectSeparator)
}

// SubjectForRole returns role:{slug}; already prefixed slugs are kept.
func SubjectForRole(roleSlug string) string {
	roleSlug = strings.ToLower(strings.TrimSpace(roleSlug))
	if roleSlug == "" {
		roleSlug = "unnamed"
	}
	if strings.HasPrefix(roleSlug, rolePrefix+subjectSeparator) {
		return roleSlug
	}
	return rolePrefix + subjectSeparator + roleSlug
}

// DomainFromTenant converts a tenant ID into a casbin domain string.
func DomainFromTenant(id uuid.UUID) string {
	if id == uuid.Nil {
		return globalDomain
	}
	return strings.ToLower(id.String())
}

// NormalizeAction lowercases an action; empty means any action.
func NormalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return defaultActionWildcard
	}
	return action
}
