package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

type target struct {
	Endpoint string
	Method   string
	Path     func(tenantID string) string
	Body     func() ([]byte, error)
	Weight   int
}

type profile struct {
	Name         string
	VUs          int
	Duration     time.Duration
	DefaultP99MS int
	Targets      []target
}

func tenantPath(entity, suffix string, query url.Values) func(string) string {
	return func(tenantID string) string {
		p := "/api/tenant/" + tenantID + "/" + entity + suffix
		if len(query) > 0 {
			p += "?" + query.Encode()
		}
		return p
	}
}

func filterQuery(filter map[string]any, extra url.Values) url.Values {
	q := url.Values{}
	if filter != nil {
		raw, _ := json.Marshal(filter)
		q.Set("filter", string(raw))
	}
	for k, v := range extra {
		q[k] = v
	}
	return q
}

var readTargets = []target{
	{
		Endpoint: "member.list",
		Method:   http.MethodGet,
		Path:     tenantPath("member", "", url.Values{"limit": {"25"}}),
		Weight:   30,
	},
	{
		Endpoint: "member.list.filtered",
		Method:   http.MethodGet,
		Path: tenantPath("member", "", filterQuery(map[string]any{
			"and": []any{
				map[string]any{"platform": "github"},
				map[string]any{"score": map[string]any{"gte": 3}},
			},
		}, url.Values{"orderBy": {"score_DESC"}, "limit": {"50"}})),
		Weight: 25,
	},
	{
		Endpoint: "member.autocomplete",
		Method:   http.MethodGet,
		Path:     tenantPath("member", "/autocomplete", url.Values{"query": {"jo"}, "limit": {"10"}}),
		Weight:   15,
	},
	{
		Endpoint: "organization.list",
		Method:   http.MethodGet,
		Path:     tenantPath("organization", "", url.Values{"orderBy": {"memberCount_DESC"}, "limit": {"25"}}),
		Weight:   15,
	},
	{
		Endpoint: "organization.autocomplete",
		Method:   http.MethodGet,
		Path:     tenantPath("organization", "/autocomplete", url.Values{"query": {"a"}}),
		Weight:   10,
	},
	{
		Endpoint: "automation.list",
		Method:   http.MethodGet,
		Path:     tenantPath("automation", "", nil),
		Weight:   5,
	},
}

var writeTargets = []target{
	{
		Endpoint: "organization.create",
		Method:   http.MethodPost,
		Path:     tenantPath("organization", "", nil),
		Body:     buildOrganizationCreate,
		Weight:   10,
	},
}

func builtinProfile(name string) (profile, error) {
	switch name {
	case "read_small":
		return profile{Name: name, VUs: 5, Duration: 30 * time.Second, DefaultP99MS: 300, Targets: readTargets}, nil
	case "read_large":
		return profile{Name: name, VUs: 50, Duration: 2 * time.Minute, DefaultP99MS: 800, Targets: readTargets}, nil
	case "mix_read_write":
		targets := append(append([]target(nil), readTargets...), writeTargets...)
		return profile{Name: name, VUs: 20, Duration: time.Minute, DefaultP99MS: 1000, Targets: targets}, nil
	default:
		return profile{}, fmt.Errorf("unknown profile %q (read_small|read_large|mix_read_write)", name)
	}
}

func buildOrganizationCreate() ([]byte, error) {
	name := "load-" + uuid.NewString()[:8]
	return json.Marshal(map[string]any{
		"name":        name,
		"description": "created by crowd-load",
	})
}
