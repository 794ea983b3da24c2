package persistence

import (
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

var automationTable = repo.Table{Name: "automations", Alias: "a", TenantScoped: true, SoftDelete: true}

var AutomationSchema = repo.Schema{
	Entity: "automation",
	Fields: map[string]repo.FieldSpec{
		"id":             {Kind: repo.KindID, Column: "a.id"},
		"type":           {Kind: repo.KindExact, Column: "a.type", Type: repo.TypeString},
		"trigger":        {Kind: repo.KindExact, Column: "a.trigger", Type: repo.TypeString},
		"state":          {Kind: repo.KindExact, Column: "a.state", Type: repo.TypeString},
		"createdAtRange": {Kind: repo.KindRange, Column: "a.created_at", Type: repo.TypeTime},
	},
	Sort: map[string]string{
		"type":      "a.type",
		"trigger":   "a.trigger",
		"state":     "a.state",
		"createdAt": "a.created_at",
		"updatedAt": "a.updated_at",
	},
	DefaultSort: repo.SortBy[string]{
		Fields: []repo.SortByField[string]{{Field: "createdAt"}},
	},
}
