package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/modules/settings/domain/aggregates/attribute"
	"github.com/crowd-dev/crowd-api/modules/settings/permissions"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const entityName = "MemberAttributeSettings"

// CanDeletePolicy decides what destroying a canDelete=false setting does.
type CanDeletePolicy string

const (
	// PolicySilent skips protected settings without an error.
	PolicySilent CanDeletePolicy = "silent"
	// PolicyReject fails with a cannotDelete validation error.
	PolicyReject CanDeletePolicy = "reject"
)

type AttributeService struct {
	repo   attribute.Repository
	authz  authz.Checker
	tx     composables.TxManager
	policy CanDeletePolicy
}

func NewAttributeService(repo attribute.Repository, checker authz.Checker, tx composables.TxManager, policy CanDeletePolicy) *AttributeService {
	if policy != PolicyReject {
		policy = PolicySilent
	}
	return &AttributeService{
		repo:   repo,
		authz:  checker,
		tx:     tx,
		policy: policy,
	}
}

func (s *AttributeService) Create(ctx context.Context, dto *attribute.CreateDTO) (*attribute.Setting, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAttributesCreate); err != nil {
		return nil, err
	}
	dto.Normalize()
	created, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*attribute.Setting, error) {
		return s.repo.Create(txCtx, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	return created, nil
}

// CreatePredefined creates the given attributes, keeping any setting that
// already exists under the same name. The result follows the input order.
func (s *AttributeService) CreatePredefined(ctx context.Context, list []attribute.CreateDTO) ([]*attribute.Setting, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAttributesCreate); err != nil {
		return nil, err
	}
	out, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) ([]*attribute.Setting, error) {
		names := make([]string, len(list))
		for i := range list {
			list[i].Normalize()
			names[i] = list[i].Name
		}
		existing, err := s.repo.FindByNames(txCtx, names)
		if err != nil {
			return nil, err
		}
		byName := make(map[string]*attribute.Setting, len(existing))
		for _, e := range existing {
			byName[e.Name] = e
		}
		out := make([]*attribute.Setting, 0, len(list))
		for i := range list {
			if e, ok := byName[list[i].Name]; ok {
				out = append(out, e)
				continue
			}
			created, err := s.repo.Create(txCtx, &list[i])
			if err != nil {
				return nil, err
			}
			byName[created.Name] = created
			out = append(out, created)
		}
		return out, nil
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	return out, nil
}

// Update rejects changes to type and canDelete; a supplied name is dropped.
func (s *AttributeService) Update(ctx context.Context, id uuid.UUID, dto *attribute.UpdateDTO) (*attribute.Setting, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAttributesEdit); err != nil {
		return nil, err
	}
	updated, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*attribute.Setting, error) {
		current, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return nil, err
		}
		if dto.Type != nil && *dto.Type != current.Type {
			return nil, serrors.Validation("typesNotMatching", "attribute type cannot be changed")
		}
		if dto.CanDelete != nil && *dto.CanDelete != current.CanDelete {
			return nil, serrors.Validation("canDeleteReadonly", "canDelete cannot be changed")
		}
		dto.Name = nil
		return s.repo.Update(txCtx, id, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	return updated, nil
}

func (s *AttributeService) Destroy(ctx context.Context, id uuid.UUID) error {
	return s.DestroyAll(ctx, []uuid.UUID{id})
}

// DestroyAll soft deletes every id in one transaction. Protected settings
// follow the configured CanDeletePolicy.
func (s *AttributeService) DestroyAll(ctx context.Context, ids []uuid.UUID) error {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAttributesDestroy); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		for _, id := range ids {
			setting, err := s.repo.FindByID(txCtx, id)
			if err != nil {
				return err
			}
			if !setting.CanDelete {
				if s.policy == PolicyReject {
					return serrors.Validation("cannotDelete", "attribute cannot be deleted").
						WithTemplateData(map[string]string{"name": setting.Name})
				}
				continue
			}
			if err := s.repo.Destroy(txCtx, id, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *AttributeService) FindByID(ctx context.Context, id uuid.UUID) (*attribute.Setting, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAttributesRead); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*attribute.Setting, error) {
		return s.repo.FindByID(txCtx, id)
	})
}

func (s *AttributeService) FindByNames(ctx context.Context, names []string) ([]*attribute.Setting, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAttributesRead); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) ([]*attribute.Setting, error) {
		return s.repo.FindByNames(txCtx, names)
	})
}

func (s *AttributeService) FindAndCountAll(ctx context.Context, params *attribute.FindParams) ([]*attribute.Setting, int64, error) {
	if err := s.authz.ValidateHas(ctx, permissions.MemberAttributesRead); err != nil {
		return nil, 0, err
	}
	return composables.InTxPage(ctx, s.tx, func(txCtx context.Context) ([]*attribute.Setting, int64, error) {
		return s.repo.FindAndCountAll(txCtx, params)
	})
}
