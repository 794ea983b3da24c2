package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

// ListParams are the query parameters shared by list endpoints.
type ListParams struct {
	Filter  map[string]any
	Limit   int
	Offset  int
	OrderBy string
}

// ParseListParams reads filter, limit, offset and orderBy. The filter may
// be a JSON object (?filter={"name":"x"}) or bracket pairs (?filter[name]=x).
// A missing or zero limit means defaultLimit; every limit is capped at
// maxLimit.
func ParseListParams(r *http.Request, defaultLimit, maxLimit int) (ListParams, error) {
	q := r.URL.Query()
	params := ListParams{
		Filter:  map[string]any{},
		Limit:   defaultLimit,
		OrderBy: q.Get("orderBy"),
	}

	if raw := strings.TrimSpace(q.Get("filter")); raw != "" {
		dec := json.NewDecoder(strings.NewReader(raw))
		if err := dec.Decode(&params.Filter); err != nil {
			return params, serrors.Validation("invalidFilter", "filter must be a JSON object")
		}
	}
	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		field := key[len("filter[") : len(key)-1]
		if len(values) == 1 {
			params.Filter[field] = values[0]
			continue
		}
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		params.Filter[field] = list
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return params, serrors.Validation("invalidFilter", "limit must be a non-negative integer")
		}
		params.Limit = n
	}
	if params.Limit == 0 {
		params.Limit = defaultLimit
	}
	if maxLimit > 0 && (params.Limit == 0 || params.Limit > maxLimit) {
		params.Limit = maxLimit
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return params, serrors.Validation("invalidFilter", "offset must be a non-negative integer")
		}
		params.Offset = n
	}
	return params, nil
}

// DecodeJSON decodes a request body, mapping syntax errors to Validation.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return serrors.Validation("invalidBody", "invalid json body").WithCause(err)
	}
	return nil
}

// Page is the list response shape.
type Page[T any] struct {
	Rows   []T   `json:"rows"`
	Count  int64 `json:"count"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
