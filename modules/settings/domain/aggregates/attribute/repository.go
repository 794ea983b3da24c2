package attribute

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
	Create(ctx context.Context, dto *CreateDTO) (*Setting, error)
	Update(ctx context.Context, id uuid.UUID, dto *UpdateDTO) (*Setting, error)
	Destroy(ctx context.Context, id uuid.UUID, force bool) error
	FindByID(ctx context.Context, id uuid.UUID) (*Setting, error)
	FindByNames(ctx context.Context, names []string) ([]*Setting, error)
	FindAndCountAll(ctx context.Context, params *FindParams) ([]*Setting, int64, error)
}
