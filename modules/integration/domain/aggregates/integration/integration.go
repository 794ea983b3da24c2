package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("integration not found")

const (
	StatusInProgress = "in-progress"
	StatusDone       = "done"
	StatusError      = "error"
)

// Integration links a tenant to one external platform. A tenant has at most
// one live integration per platform.
type Integration struct {
	ID                    uuid.UUID      `json:"id"`
	TenantID              uuid.UUID      `json:"tenantId"`
	Platform              string         `json:"platform"`
	Status                string         `json:"status"`
	IntegrationIdentifier *string        `json:"integrationIdentifier"`
	Token                 *string        `json:"-"`
	RefreshToken          *string        `json:"-"`
	Settings              map[string]any `json:"settings"`
	CreatedByID           *uuid.UUID     `json:"createdById"`
	UpdatedByID           *uuid.UUID     `json:"updatedById"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// ConnectDTO is what an OAuth callback learned about the connection.
type ConnectDTO struct {
	Platform              string
	IntegrationIdentifier *string
	Token                 *string
	RefreshToken          *string
	Settings              map[string]any
	Status                string
}

type FindParams struct {
	Filter  map[string]any
	Limit   int
	Offset  int
	OrderBy string
}

type Repository interface {
	Create(ctx context.Context, dto *ConnectDTO) (*Integration, error)
	// Reconnect overwrites the credentials and status of an existing row.
	Reconnect(ctx context.Context, id uuid.UUID, dto *ConnectDTO) (*Integration, error)
	Destroy(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)
	// FindByPlatform returns nil, nil when the tenant has no live
	// integration for platform.
	FindByPlatform(ctx context.Context, platform string) (*Integration, error)
	FindAndCountAll(ctx context.Context, params *FindParams) ([]*Integration, int64, error)
}
