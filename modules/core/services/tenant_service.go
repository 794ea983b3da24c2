package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/modules/core/domain/entities/tenant"
	"github.com/crowd-dev/crowd-api/modules/core/permissions"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type TenantService struct {
	repo  tenant.Repository
	authz authz.Checker
	tx    composables.TxManager
}

func NewTenantService(repo tenant.Repository, checker authz.Checker, tx composables.TxManager) *TenantService {
	return &TenantService{
		repo:  repo,
		authz: checker,
		tx:    tx,
	}
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	if err := s.authz.ValidateHas(ctx, permissions.TenantRead); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Create is used by provisioning commands and runs without a permission
// check.
func (s *TenantService) Create(ctx context.Context, name, plan string) (*tenant.Tenant, error) {
	if plan == "" {
		plan = tenant.PlanEssential
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*tenant.Tenant, error) {
		return s.repo.Create(txCtx, tenant.New(name, tenant.WithPlan(plan)))
	})
}

func (s *TenantService) ChangePlan(ctx context.Context, id uuid.UUID, plan string) error {
	if err := s.authz.ValidateHas(ctx, permissions.TenantEdit); err != nil {
		return err
	}
	if plan != tenant.PlanEssential && plan != tenant.PlanGrowth {
		return serrors.Validation("unknownPlan", "unknown plan "+plan)
	}
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.UpdatePlan(txCtx, id, plan)
	})
}

func (s *TenantService) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.repo.List(ctx)
}
