package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crowd-dev/crowd-api/modules/automation/domain/aggregates/automation"
	"github.com/crowd-dev/crowd-api/modules/automation/permissions"
	"github.com/crowd-dev/crowd-api/modules/core/domain/entities/tenant"
	"github.com/crowd-dev/crowd-api/pkg/analytics"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/featureflags"
	"github.com/crowd-dev/crowd-api/pkg/retry"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const (
	entityName = "Automation"

	// essentialAutomationLimit is how many automations the essential plan
	// keeps the automations flag on for.
	essentialAutomationLimit = 2
)

// TenantReader resolves the billing plan of a tenant.
type TenantReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

type FlagWait struct {
	Interval    time.Duration
	MaxAttempts int
}

type AutomationService struct {
	repo    automation.Repository
	tenants TenantReader
	flags   featureflags.Provider
	sink    analytics.Sink
	authz   authz.Checker
	tx      composables.TxManager
	wait    FlagWait
	m       *metrics

	// background tracks in-flight flag waits so shutdown can drain them.
	background sync.WaitGroup
}

func NewAutomationService(
	repo automation.Repository,
	tenants TenantReader,
	flags featureflags.Provider,
	sink analytics.Sink,
	checker authz.Checker,
	tx composables.TxManager,
	wait FlagWait,
) *AutomationService {
	if wait.Interval <= 0 {
		wait.Interval = 500 * time.Millisecond
	}
	if wait.MaxAttempts <= 0 {
		wait.MaxAttempts = 10
	}
	return &AutomationService{
		repo:    repo,
		tenants: tenants,
		flags:   flags,
		sink:    sink,
		authz:   checker,
		tx:      tx,
		wait:    wait,
		m:       metricsSingleton(),
	}
}

// ExpectedFlag is the value the billing system eventually writes for the
// automations flag once a tenant on plan owns count automations.
func ExpectedFlag(plan string, count int64) bool {
	return plan == tenant.PlanGrowth || (plan == tenant.PlanEssential && count < essentialAutomationLimit)
}

type created struct {
	automation *automation.Automation
	count      int64
	plan       string
}

// Create refuses with planLimitExceeded while the automations flag is off
// for the tenant. After a successful create it waits in the background for
// the flag provider to catch up with the new automation count.
func (s *AutomationService) Create(ctx context.Context, dto *automation.CreateDTO) (*automation.Automation, error) {
	if err := s.authz.ValidateHas(ctx, permissions.AutomationCreate); err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	enabled, err := s.flags.IsFeatureEnabled(ctx, featureflags.Automations, tenantID)
	if err != nil {
		return nil, serrors.Upstream("featureFlags", err)
	}
	if !enabled {
		return nil, serrors.Forbidden("planLimitExceeded", "automation limit of the current plan reached")
	}

	res, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*created, error) {
		a, err := s.repo.Create(txCtx, dto)
		if err != nil {
			return nil, err
		}
		count, err := s.repo.Count(txCtx)
		if err != nil {
			return nil, err
		}
		t, err := s.tenants.GetByID(txCtx, tenantID)
		if err != nil {
			return nil, err
		}
		return &created{automation: a, count: count, plan: t.Plan()}, nil
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}

	s.sink.Track(ctx, "Automation Created", map[string]any{
		"id":      res.automation.ID.String(),
		"type":    string(res.automation.Type),
		"trigger": string(res.automation.Trigger),
	})

	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.EnsureFlagUpdated(bg, tenantID, res.plan, res.count)
	}()
	return res.automation, nil
}

// EnsureFlagUpdated polls the flag provider until the automations flag of
// the tenant equals ExpectedFlag(plan, count). It gives up silently after
// the configured number of attempts.
func (s *AutomationService) EnsureFlagUpdated(ctx context.Context, tenantID uuid.UUID, plan string, count int64) retry.Result {
	expected := ExpectedFlag(plan, count)
	res, err := retry.Poll(ctx, func(ctx context.Context) (bool, error) {
		enabled, err := s.flags.IsFeatureEnabled(ctx, featureflags.Automations, tenantID)
		if err != nil {
			return false, err
		}
		return enabled == expected, nil
	}, s.wait.Interval, s.wait.MaxAttempts)

	s.m.flagSyncTotal.WithLabelValues(res.Outcome.String()).Inc()
	s.m.flagSyncAttempts.Observe(float64(res.Attempts))

	entry := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"tenant_id": tenantID.String(),
		"flag":      featureflags.Automations,
		"expected":  expected,
		"attempts":  res.Attempts,
	})
	switch {
	case err != nil:
		entry.WithError(err).Debug("flag wait cancelled")
	case !res.OK():
		if res.LastErr != nil {
			entry = entry.WithError(res.LastErr)
		}
		entry.Info("feature flag did not sync in time")
	default:
		entry.Debug("feature flag ensured")
	}
	return res
}

// Wait blocks until every background flag wait has returned.
func (s *AutomationService) Wait() {
	s.background.Wait()
}

func (s *AutomationService) Update(ctx context.Context, id uuid.UUID, dto *automation.UpdateDTO) (*automation.Automation, error) {
	if err := s.authz.ValidateHas(ctx, permissions.AutomationEdit); err != nil {
		return nil, err
	}
	updated, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*automation.Automation, error) {
		return s.repo.Update(txCtx, id, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	return updated, nil
}

func (s *AutomationService) Destroy(ctx context.Context, id uuid.UUID) error {
	if err := s.authz.ValidateHas(ctx, permissions.AutomationDestroy); err != nil {
		return err
	}
	if err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.Destroy(txCtx, id)
	}); err != nil {
		return err
	}
	s.sink.Track(ctx, "Automation Destroyed", map[string]any{"id": id.String()})
	return nil
}

func (s *AutomationService) FindByID(ctx context.Context, id uuid.UUID) (*automation.Automation, error) {
	if err := s.authz.ValidateHas(ctx, permissions.AutomationRead); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*automation.Automation, error) {
		return s.repo.FindByID(txCtx, id)
	})
}

func (s *AutomationService) FindAndCountAll(ctx context.Context, params *automation.FindParams) ([]*automation.Automation, int64, error) {
	if err := s.authz.ValidateHas(ctx, permissions.AutomationRead); err != nil {
		return nil, 0, err
	}
	return composables.InTxPage(ctx, s.tx, func(txCtx context.Context) ([]*automation.Automation, int64, error) {
		return s.repo.FindAndCountAll(txCtx, params)
	})
}
