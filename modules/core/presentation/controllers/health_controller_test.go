package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthController(t *testing.T) {
	t.Parallel()

	get := func(c *HealthController) (*httptest.ResponseRecorder, healthResponse) {
		r := mux.NewRouter()
		c.Register(r)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		var body healthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w, body
	}

	t.Run("Healthy", func(t *testing.T) {
		w, body := get(&HealthController{db: pingerFunc(func(context.Context) error { return nil })})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, healthStatusHealthy, body.Status)
	})

	t.Run("Ping_Failure_Is_Down", func(t *testing.T) {
		w, body := get(&HealthController{db: pingerFunc(func(context.Context) error { return errors.New("refused") })})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "refused", body.Checks["database"].Error)
	})

	t.Run("No_Pool_Is_Down", func(t *testing.T) {
		w, _ := get(&HealthController{})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
