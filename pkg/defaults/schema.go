package defaults

import (
	"fmt"
	"slices"
	"sort"

	"github.com/crowd-dev/crowd-api/pkg/authz"

	automationPerms "github.com/crowd-dev/crowd-api/modules/automation/permissions"
	corePerms "github.com/crowd-dev/crowd-api/modules/core/permissions"
	integrationPerms "github.com/crowd-dev/crowd-api/modules/integration/permissions"
	memberPerms "github.com/crowd-dev/crowd-api/modules/member/permissions"
	organizationPerms "github.com/crowd-dev/crowd-api/modules/organization/permissions"
	settingsPerms "github.com/crowd-dev/crowd-api/modules/settings/permissions"
)

// Built-in roles.
const (
	RoleAdmin    = "admin"
	RoleReadonly = "readonly"
)

// readActions are granted to the readonly role.
var readActions = []string{"read", "autocomplete"}

// Permissions lists every permission key checked by the built-in modules.
func Permissions() []string {
	return slices.Concat(
		corePerms.Permissions,
		memberPerms.Permissions,
		organizationPerms.Permissions,
		settingsPerms.Permissions,
		automationPerms.Permissions,
		integrationPerms.Permissions,
	)
}

// Policies renders the casbin p-lines of the built-in roles. Admins get
// everything; readonly users get the read actions of every object.
func Policies() []string {
	lines := []string{fmt.Sprintf("p, %s, *, *, *", authz.SubjectForRole(RoleAdmin))}
	seen := map[string]bool{}
	var reads []string
	for _, p := range Permissions() {
		object, action := authz.SplitPermission(p)
		if !slices.Contains(readActions, action) {
			continue
		}
		line := fmt.Sprintf("p, %s, *, %s, %s", authz.SubjectForRole(RoleReadonly), object, action)
		if !seen[line] {
			seen[line] = true
			reads = append(reads, line)
		}
	}
	sort.Strings(reads)
	return append(lines, reads...)
}
