package automation

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	Filter  map[string]any
	Limit   int
	Offset  int
	OrderBy string
}

type Repository interface {
	Create(ctx context.Context, dto *CreateDTO) (*Automation, error)
	Update(ctx context.Context, id uuid.UUID, dto *UpdateDTO) (*Automation, error)
	Destroy(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Automation, error)
	FindAndCountAll(ctx context.Context, params *FindParams) ([]*Automation, int64, error)
	// Count counts every non-deleted automation of the tenant.
	Count(ctx context.Context) (int64, error)
	// CountActive counts only automations in the active state.
	CountActive(ctx context.Context) (int64, error)
}
