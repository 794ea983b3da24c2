package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/modules/integration/domain/aggregates/integration"
	"github.com/crowd-dev/crowd-api/modules/integration/permissions"
	"github.com/crowd-dev/crowd-api/pkg/analytics"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const entityName = "Integration"

type IntegrationService struct {
	repo  integration.Repository
	sink  analytics.Sink
	authz authz.Checker
	tx    composables.TxManager
}

func NewIntegrationService(repo integration.Repository, sink analytics.Sink, checker authz.Checker, tx composables.TxManager) *IntegrationService {
	return &IntegrationService{
		repo:  repo,
		sink:  sink,
		authz: checker,
		tx:    tx,
	}
}

// Connect stores the credentials of a finished OAuth round trip. A second
// connect for the same platform refreshes the existing integration.
func (s *IntegrationService) Connect(ctx context.Context, dto *integration.ConnectDTO) (*integration.Integration, error) {
	if err := s.authz.ValidateHas(ctx, permissions.IntegrationCreate); err != nil {
		return nil, err
	}
	if dto.Platform == "" {
		return nil, serrors.Validation("platformRequired", "platform is required")
	}
	connected, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*integration.Integration, error) {
		existing, err := s.repo.FindByPlatform(txCtx, dto.Platform)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.repo.Reconnect(txCtx, existing.ID, dto)
		}
		return s.repo.Create(txCtx, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	s.sink.Track(ctx, "Integration Connected", map[string]any{
		"id":       connected.ID.String(),
		"platform": connected.Platform,
	})
	return connected, nil
}

func (s *IntegrationService) Destroy(ctx context.Context, id uuid.UUID) error {
	if err := s.authz.ValidateHas(ctx, permissions.IntegrationDestroy); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Destroy(txCtx, id)
	})
}

func (s *IntegrationService) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	if err := s.authz.ValidateHas(ctx, permissions.IntegrationRead); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*integration.Integration, error) {
		return s.repo.FindByID(txCtx, id)
	})
}

func (s *IntegrationService) FindAndCountAll(ctx context.Context, params *integration.FindParams) ([]*integration.Integration, int64, error) {
	if err := s.authz.ValidateHas(ctx, permissions.IntegrationRead); err != nil {
		return nil, 0, err
	}
	return composables.InTxPage(ctx, s.tx, func(txCtx context.Context) ([]*integration.Integration, int64, error) {
		return s.repo.FindAndCountAll(txCtx, params)
	})
}
