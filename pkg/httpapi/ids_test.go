package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

func TestQueryIDs(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	r := httptest.NewRequest(http.MethodDelete, "/member?ids[]="+a.String()+"&ids[]="+b.String()+"&ids="+c.String(), nil)
	ids, err := QueryIDs(r, "ids")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, ids)

	r = httptest.NewRequest(http.MethodDelete, "/member?ids="+a.String()+","+b.String(), nil)
	ids, err = QueryIDs(r, "ids")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	_, err = QueryIDs(httptest.NewRequest(http.MethodDelete, "/member?ids=nope", nil), "ids")
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))
}

func TestPathID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": id.String()})
	got, err := PathID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "42"})
	_, err = PathID(r, "id")
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))
}

func TestQueryInt(t *testing.T) {
	t.Parallel()

	n, err := QueryInt(httptest.NewRequest(http.MethodGet, "/?limit=7", nil), "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = QueryInt(httptest.NewRequest(http.MethodGet, "/", nil), "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = QueryInt(httptest.NewRequest(http.MethodGet, "/?limit=-3", nil), "limit", 10)
	assert.Error(t, err)
}
