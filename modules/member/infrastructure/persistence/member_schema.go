package persistence

import (
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

var (
	memberTable       = repo.Table{Name: "members", Alias: "m", TenantScoped: true, SoftDelete: true}
	tagTable          = repo.Table{Name: "tags", TenantScoped: true, SoftDelete: true}
	organizationTable = repo.Table{Name: "organizations", TenantScoped: true, SoftDelete: true}
)

var (
	memberTags = repo.ManyToMany{
		Table:         "member_tags",
		OwnerColumn:   "member_id",
		RelatedColumn: "tag_id",
		OrderBy:       "created_at",
		Related:       &tagTable,
	}
	memberOrganizations = repo.ManyToMany{
		Table:         "member_organizations",
		OwnerColumn:   "member_id",
		RelatedColumn: "organization_id",
		OrderBy:       "created_at",
		Related:       &organizationTable,
	}
	memberToMerge = repo.ManyToMany{
		Table:         "member_to_merge",
		OwnerColumn:   "member_id",
		RelatedColumn: "to_merge_id",
		OrderBy:       "created_at",
		Related:       &memberTable,
	}
	memberNoMerge = repo.ManyToMany{
		Table:         "member_no_merge",
		OwnerColumn:   "member_id",
		RelatedColumn: "no_merge_id",
		OrderBy:       "created_at",
		Related:       &memberTable,
	}
)

const activitiesCountExpr = "(SELECT COUNT(*) FROM activities a WHERE a.member_id = m.id AND a.deleted_at IS NULL)"

// MemberSchema is the public filter and orderBy vocabulary of members.
var MemberSchema = repo.Schema{
	Entity: "member",
	Fields: map[string]repo.FieldSpec{
		"id":         {Kind: repo.KindID, Column: "m.id"},
		"platform":   {Kind: repo.KindJSONKey, Column: "m.username"},
		"username":   {Kind: repo.KindText, Column: "m.username::text"},
		"info":       {Kind: repo.KindText, Column: "m.info::text"},
		"crowdInfo":  {Kind: repo.KindExact, Column: "m.crowd_info", Type: repo.TypeJSON},
		"type":       {Kind: repo.KindText, Column: "m.type"},
		"email":      {Kind: repo.KindText, Column: "m.email"},
		"bio":        {Kind: repo.KindText, Column: "m.bio"},
		"location":   {Kind: repo.KindText, Column: "m.location"},
		"signals":    {Kind: repo.KindText, Column: "m.signals"},
		"importHash": {Kind: repo.KindExact, Column: "m.import_hash", Type: repo.TypeString},
		"tags": {
			Kind:     repo.KindIDSet,
			Column:   "m.id",
			Subquery: "SELECT member_id FROM member_tags WHERE tag_id = ANY($%d::uuid[])",
		},
		"organizations": {
			Kind:     repo.KindIDSet,
			Column:   "m.id",
			Subquery: "SELECT member_id FROM member_organizations WHERE organization_id = ANY($%d::uuid[])",
		},
		"scoreRange":     {Kind: repo.KindRange, Column: "m.score", Type: repo.TypeInt},
		"reachRange":     {Kind: repo.KindRange, Column: "(m.reach->>'total')::int", Type: repo.TypeInt},
		"joinedAtRange":  {Kind: repo.KindRange, Column: "m.joined_at", Type: repo.TypeTime},
		"createdAtRange": {Kind: repo.KindRange, Column: "m.created_at", Type: repo.TypeTime},
	},
	Sort: map[string]string{
		"id":              "m.id",
		"score":           "m.score",
		"joinedAt":        "m.joined_at",
		"createdAt":       "m.created_at",
		"updatedAt":       "m.updated_at",
		"email":           "m.email",
		"location":        "m.location",
		"type":            "m.type",
		"displayName":     "m.username->>'crowdUsername'",
		"activitiesCount": activitiesCountExpr,
		"reach":           "(m.reach->>'total')::int",
	},
	DefaultSort: repo.SortBy[string]{
		Fields: []repo.SortByField[string]{{Field: "joinedAt", NullsLast: true}},
	},
}
