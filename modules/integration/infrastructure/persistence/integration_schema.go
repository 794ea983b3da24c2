package persistence

import (
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

var integrationTable = repo.Table{Name: "integrations", Alias: "i", TenantScoped: true, SoftDelete: true}

var IntegrationSchema = repo.Schema{
	Entity: "integration",
	Fields: map[string]repo.FieldSpec{
		"id":                    {Kind: repo.KindID, Column: "i.id"},
		"platform":              {Kind: repo.KindExact, Column: "i.platform", Type: repo.TypeString},
		"status":                {Kind: repo.KindExact, Column: "i.status", Type: repo.TypeString},
		"integrationIdentifier": {Kind: repo.KindExact, Column: "i.integration_identifier", Type: repo.TypeString},
		"createdAtRange":        {Kind: repo.KindRange, Column: "i.created_at", Type: repo.TypeTime},
	},
	Sort: map[string]string{
		"platform":  "i.platform",
		"status":    "i.status",
		"createdAt": "i.created_at",
	},
	DefaultSort: repo.SortBy[string]{
		Fields: []repo.SortByField[string]{{Field: "createdAt"}},
	},
}
