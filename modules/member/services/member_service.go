package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/modules/member/domain/aggregates/member"
	"github.com/crowd-dev/crowd-api/modules/member/permissions"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/repo"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const entityName = "Member"

type MemberService struct {
	repo     member.Repository
	authz    authz.Checker
	tx       composables.TxManager
	populate bool
}

// NewMemberService builds the service. populate is the hydration default
// when a request does not override it.
func NewMemberService(repo member.Repository, checker authz.Checker, tx composables.TxManager, populate bool) *MemberService {
	return &MemberService{
		repo:     repo,
		authz:    checker,
		tx:       tx,
		populate: populate,
	}
}

func (s *MemberService) Create(ctx context.Context, dto *member.CreateDTO) (*member.Member, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberCreate); err != nil {
		return nil, err
	}
	created, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*member.Member, error) {
		return s.repo.Create(txCtx, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	return created, nil
}

func (s *MemberService) Update(ctx context.Context, id uuid.UUID, dto *member.UpdateDTO) (*member.Member, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberEdit); err != nil {
		return nil, err
	}
	updated, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*member.Member, error) {
		return s.repo.Update(txCtx, id, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	return updated, nil
}

func (s *MemberService) Destroy(ctx context.Context, id uuid.UUID) error {
	if err := s.authz.ValidateHas(ctx, permissions.MemberDestroy); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Destroy(txCtx, id, false)
	})
}

// DestroyAll hard deletes the given members. Ids outside the tenant are
// ignored.
func (s *MemberService) DestroyAll(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberDestroy); err != nil {
		return 0, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (int64, error) {
		return s.repo.DestroyBulk(txCtx, ids, true)
	})
}

func (s *MemberService) FindByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberRead); err != nil {
		return nil, err
	}
	populate := composables.UsePopulateRelations(ctx, s.populate)
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*member.Member, error) {
		return s.repo.FindByID(txCtx, id, populate)
	})
}

func (s *MemberService) FindAndCountAll(ctx context.Context, params *member.FindParams) ([]*member.Member, int64, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberRead); err != nil {
		return nil, 0, err
	}
	if params == nil {
		params = &member.FindParams{}
	}
	params.PopulateRelations = composables.UsePopulateRelations(ctx, s.populate)
	return composables.InTxPage(ctx, s.tx, func(txCtx context.Context) ([]*member.Member, int64, error) {
		return s.repo.FindAndCountAll(txCtx, params)
	})
}

func (s *MemberService) Count(ctx context.Context, filter map[string]any) (int64, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberRead); err != nil {
		return 0, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (int64, error) {
		return s.repo.Count(txCtx, filter)
	})
}

func (s *MemberService) FindAllAutocomplete(ctx context.Context, query string, limit int) ([]repo.AutocompleteItem, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAutocomplete); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) ([]repo.AutocompleteItem, error) {
		return s.repo.FindAllAutocomplete(txCtx, query, limit)
	})
}

func (s *MemberService) MemberExists(ctx context.Context, username, platform string) (bool, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberRead); err != nil {
		return false, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (bool, error) {
		return s.repo.MemberExists(txCtx, username, platform)
	})
}

// FilterIDsInTenant is used by other modules to sanitize member references.
// It joins the caller's transaction when there is one.
func (s *MemberService) FilterIDsInTenant(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) ([]uuid.UUID, error) {
		return s.repo.FilterIDsInTenant(txCtx, ids)
	})
}

func (s *MemberService) AddToMerge(ctx context.Context, id uuid.UUID, others []uuid.UUID) error {
	return s.mergeEdges(ctx, id, others, s.repo.AddToMerge)
}

func (s *MemberService) RemoveToMerge(ctx context.Context, id uuid.UUID, others []uuid.UUID) error {
	return s.mergeEdges(ctx, id, others, s.repo.RemoveToMerge)
}

func (s *MemberService) AddNoMerge(ctx context.Context, id uuid.UUID, others []uuid.UUID) error {
	return s.mergeEdges(ctx, id, others, s.repo.AddNoMerge)
}

func (s *MemberService) RemoveNoMerge(ctx context.Context, id uuid.UUID, others []uuid.UUID) error {
	return s.mergeEdges(ctx, id, others, s.repo.RemoveNoMerge)
}

func (s *MemberService) FindMembersWithMergeSuggestions(ctx context.Context, limit, offset int) ([]member.MergeSuggestion, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberRead); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) ([]member.MergeSuggestion, error) {
		return s.repo.FindMembersWithMergeSuggestions(txCtx, limit, offset)
	})
}

func (s *MemberService) mergeEdges(
	ctx context.Context,
	id uuid.UUID,
	others []uuid.UUID,
	apply func(context.Context, uuid.UUID, ...uuid.UUID) error,
) error {
	if err := s.authz.ValidateHas(ctx, permissions.MemberEdit); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		inTenant, err := s.repo.FilterIDsInTenant(txCtx, others)
		if err != nil {
			return err
		}
		return apply(txCtx, id, inTenant...)
	})
}
