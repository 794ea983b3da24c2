package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

func TestParseListParams(t *testing.T) {
	t.Parallel()

	t.Run("Json_Filter_And_Paging", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, `/members?filter={"scoreRange":[10,50]}&limit=20&offset=40&orderBy=score_DESC`, nil)
		p, err := ParseListParams(r, 50, 200)
		require.NoError(t, err)
		assert.Equal(t, []any{float64(10), float64(50)}, p.Filter["scoreRange"])
		assert.Equal(t, 20, p.Limit)
		assert.Equal(t, 40, p.Offset)
		assert.Equal(t, "score_DESC", p.OrderBy)
	})

	t.Run("Bracket_Filter", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/members?filter[email]=crowd&filter[tags]=a&filter[tags]=b", nil)
		p, err := ParseListParams(r, 50, 200)
		require.NoError(t, err)
		assert.Equal(t, "crowd", p.Filter["email"])
		assert.Equal(t, []any{"a", "b"}, p.Filter["tags"])
		assert.Equal(t, 50, p.Limit)
	})

	t.Run("Limit_Is_Capped", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/members?limit=5000", nil)
		p, err := ParseListParams(r, 50, 200)
		require.NoError(t, err)
		assert.Equal(t, 200, p.Limit)
	})

	t.Run("Zero_Limit_Means_Default", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/members?limit=0", nil)
		p, err := ParseListParams(r, 50, 200)
		require.NoError(t, err)
		assert.Equal(t, 50, p.Limit)

		p, err = ParseListParams(r, 0, 200)
		require.NoError(t, err)
		assert.Equal(t, 200, p.Limit)
	})

	t.Run("Bad_Input_Is_Validation", func(t *testing.T) {
		for _, target := range []string{"/members?filter=nope", "/members?limit=-1", "/members?offset=x"} {
			_, err := ParseListParams(httptest.NewRequest(http.MethodGet, target, nil), 50, 200)
			assert.True(t, serrors.IsKind(err, serrors.KindValidation), target)
		}
	})
}

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{serrors.NotFound("member", 1), http.StatusNotFound, "NOT_FOUND"},
		{serrors.Validation("typesNotMatching", "x"), http.StatusBadRequest, "typesNotMatching"},
		{serrors.Conflict("Organization", "url"), http.StatusConflict, "ALREADY_EXISTS"},
		{serrors.Forbidden("planLimitExceeded", "x"), http.StatusForbidden, "planLimitExceeded"},
		{errors.New("pg: connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteServiceError(w, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.status, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"`+tc.code+`"`)
	}

	w := httptest.NewRecorder()
	WriteServiceError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("secret dsn"))
	assert.NotContains(t, w.Body.String(), "secret dsn")
}
