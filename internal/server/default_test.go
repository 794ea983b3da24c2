package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
	"github.com/crowd-dev/crowd-api/pkg/intl"
)

func testConfig() *configuration.Configuration {
	return &configuration.Configuration{
		CORSOrigins:     "http://localhost:8081",
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		Hydration:       configuration.HydrationOptions{ServiceRole: "api", PopulateRelation: true},
	}
}

func TestDefault(t *testing.T) {
	bundle, err := intl.LoadBundle()
	require.NoError(t, err)

	t.Run("Unknown_Route_Is_JSON_404", func(t *testing.T) {
		app := application.New(&application.ApplicationOptions{Logger: logrus.New(), Bundle: bundle})
		srv, err := Default(&DefaultOptions{
			Logger:        logrus.New(),
			Configuration: testConfig(),
			Application:   app,
			Bundle:        bundle,
		})
		require.NoError(t, err)
		assert.Len(t, app.Middleware(), 5)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	})

	t.Run("Rate_Limit_Redis_Without_Client_Falls_Back", func(t *testing.T) {
		conf := testConfig()
		conf.RateLimit = configuration.RateLimitOptions{Enabled: true, Storage: "redis", GlobalRPS: 1}
		app := application.New(&application.ApplicationOptions{Logger: logrus.New(), Bundle: bundle})
		srv, err := Default(&DefaultOptions{
			Logger:        logrus.New(),
			Configuration: conf,
			Application:   app,
			Bundle:        bundle,
		})
		require.NoError(t, err)
		assert.Len(t, app.Middleware(), 6)

		h := srv.Handler()
		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/nope", nil))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})
}
