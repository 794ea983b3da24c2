package persistence

import (
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

var settingsTable = repo.Table{Name: "member_attribute_settings", Alias: "s", TenantScoped: true, SoftDelete: true}

var AttributeSchema = repo.Schema{
	Entity: "memberAttributeSettings",
	Fields: map[string]repo.FieldSpec{
		"id":             {Kind: repo.KindID, Column: "s.id"},
		"canDelete":      {Kind: repo.KindBool, Column: "s.can_delete"},
		"show":           {Kind: repo.KindBool, Column: "s.show"},
		"type":           {Kind: repo.KindExact, Column: "s.type", Type: repo.TypeString},
		"label":          {Kind: repo.KindExact, Column: "s.label", Type: repo.TypeString},
		"name":           {Kind: repo.KindExact, Column: "s.name", Type: repo.TypeString},
		"createdAtRange": {Kind: repo.KindRange, Column: "s.created_at", Type: repo.TypeTime},
	},
	Sort: map[string]string{
		"name":      "s.name",
		"label":     "s.label",
		"type":      "s.type",
		"createdAt": "s.created_at",
		"updatedAt": "s.updated_at",
	},
	DefaultSort: repo.SortBy[string]{
		Fields: []repo.SortByField[string]{{Field: "createdAt"}},
	},
}
