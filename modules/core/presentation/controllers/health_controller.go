package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/httpapi"
)

type healthStatus string

const (
	healthStatusHealthy  healthStatus = "healthy"
	healthStatusDegraded healthStatus = "degraded"
	healthStatusDown     healthStatus = "down"
)

const dbDegradedLatency = 100 * time.Millisecond

type healthResponse struct {
	Status    healthStatus               `json:"status"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]componentHealth `json:"checks"`
}

type componentHealth struct {
	Status       healthStatus `json:"status"`
	ResponseTime string       `json:"responseTime,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db Pinger
}

func NewHealthController(app application.Application) application.Controller {
	var db Pinger
	if pool := app.DB(); pool != nil {
		db = pool
	}
	return &HealthController{db: db}
}

var _ Pinger = (*pgxpool.Pool)(nil)

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Get).Methods(http.MethodGet)
}

func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	db := c.checkDatabase(r.Context())
	resp := healthResponse{
		Status:    db.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]componentHealth{"database": db},
	}
	status := http.StatusOK
	if resp.Status == healthStatusDown {
		status = http.StatusServiceUnavailable
	}
	_ = httpapi.WriteJSON(w, status, resp)
}

func (c *HealthController) checkDatabase(ctx context.Context) componentHealth {
	if c.db == nil {
		return componentHealth{Status: healthStatusDown, Error: "database pool not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := c.db.Ping(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return componentHealth{Status: healthStatusDown, ResponseTime: elapsed.String(), Error: err.Error()}
	}
	if elapsed > dbDegradedLatency {
		return componentHealth{Status: healthStatusDegraded, ResponseTime: elapsed.String()}
	}
	return componentHealth{Status: healthStatusHealthy, ResponseTime: elapsed.String()}
}
