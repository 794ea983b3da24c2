package persistence

import (
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

var (
	organizationTable = repo.Table{Name: "organizations", Alias: "o", TenantScoped: true, SoftDelete: true}
	memberTable       = repo.Table{Name: "members", TenantScoped: true, SoftDelete: true}
	cacheTable        = repo.Table{Name: "organization_caches", SoftDelete: true}
)

var organizationMembers = repo.ManyToMany{
	Table:         "member_organizations",
	OwnerColumn:   "organization_id",
	RelatedColumn: "member_id",
	OrderBy:       "created_at",
	Related:       &memberTable,
}

const communityMemberCountExpr = `(SELECT COUNT(*) FROM member_organizations mo
	JOIN members mm ON mm.id = mo.member_id AND mm.deleted_at IS NULL
	WHERE mo.organization_id = o.id)`

// OrganizationSchema is the public filter and orderBy vocabulary of
// organizations.
var OrganizationSchema = repo.Schema{
	Entity: "organization",
	Fields: map[string]repo.FieldSpec{
		"id":           {Kind: repo.KindID, Column: "o.id"},
		"name":         {Kind: repo.KindText, Column: "o.name"},
		"url":          {Kind: repo.KindText, Column: "o.url"},
		"description":  {Kind: repo.KindText, Column: "o.description"},
		"parentUrl":    {Kind: repo.KindText, Column: "o.parent_url"},
		"emails":       {Kind: repo.KindText, Column: "array_to_string(o.emails, ',')"},
		"phoneNumbers": {Kind: repo.KindText, Column: "array_to_string(o.phone_numbers, ',')"},
		"tags":         {Kind: repo.KindText, Column: "array_to_string(o.tags, ',')"},
		"twitter":      {Kind: repo.KindExact, Column: "o.twitter", Type: repo.TypeJSON},
		"linkedin":     {Kind: repo.KindExact, Column: "o.linkedin", Type: repo.TypeJSON},
		"crunchbase":   {Kind: repo.KindExact, Column: "o.crunchbase", Type: repo.TypeJSON},
		"importHash":   {Kind: repo.KindExact, Column: "o.import_hash", Type: repo.TypeString},
		"members": {
			Kind:     repo.KindIDSet,
			Column:   "o.id",
			Subquery: "SELECT organization_id FROM member_organizations WHERE member_id = ANY($%d::uuid[])",
		},
		"employeesRange":            {Kind: repo.KindRange, Column: "o.employees", Type: repo.TypeInt},
		"communityMemberCountRange": {Kind: repo.KindRange, Column: communityMemberCountExpr, Type: repo.TypeInt},
		"createdAtRange":            {Kind: repo.KindRange, Column: "o.created_at", Type: repo.TypeTime},
	},
	Sort: map[string]string{
		"id":                   "o.id",
		"name":                 "o.name",
		"url":                  "o.url",
		"employees":            "o.employees",
		"createdAt":            "o.created_at",
		"updatedAt":            "o.updated_at",
		"communityMemberCount": communityMemberCountExpr,
	},
	DefaultSort: repo.SortBy[string]{
		Fields: []repo.SortByField[string]{{Field: "createdAt"}},
	},
}
