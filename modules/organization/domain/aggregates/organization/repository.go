package organization

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/pkg/repo"
)

type FindParams struct {
	Filter  map[string]any
	Limit   int
	Offset  int
	OrderBy string
}

type Repository interface {
	Create(ctx context.Context, dto *CreateDTO) (*Organization, error)
	Update(ctx context.Context, id uuid.UUID, dto *UpdateDTO) (*Organization, error)
	Destroy(ctx context.Context, id uuid.UUID, force bool) error
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindByURL(ctx context.Context, url string) (*Organization, error)
	FindAndCountAll(ctx context.Context, params *FindParams) ([]*Organization, int64, error)
	Count(ctx context.Context, filter map[string]any) (int64, error)
	ImportHashExists(ctx context.Context, importHash string) (bool, error)
	FilterIDsInTenant(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	FindAllAutocomplete(ctx context.Context, query string, limit int) ([]repo.AutocompleteItem, error)
}
