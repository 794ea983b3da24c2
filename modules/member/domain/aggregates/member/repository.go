package member

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
	// PopulateRelations loads activities and relation names. When false only
	// relation ids are filled.
	PopulateRelations bool
}

type Repository interface {
	Create(ctx context.Context, dto *CreateDTO) (*Member, error)
	Update(ctx context.Context, id uuid.UUID, dto *UpdateDTO) (*Member, error)
	Destroy(ctx context.Context, id uuid.UUID, force bool) error
	DestroyBulk(ctx context.Context, ids []uuid.UUID, force bool) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID, populate bool) (*Member, error)
	FindAndCountAll(ctx context.Context, params *FindParams) ([]*Member, int64, error)
	Count(ctx context.Context, filter map[string]any) (int64, error)
	FilterIDsInTenant(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	FindAllAutocomplete(ctx context.Context, query string, limit int) ([]repo.AutocompleteItem, error)
	MemberExists(ctx context.Context, username, platform string) (bool, error)

	AddToMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error
	RemoveToMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error
	AddNoMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error
	RemoveNoMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error
	FindMembersWithMergeSuggestions(ctx context.Context, limit, offset int) ([]MergeSuggestion, error)
}
