package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organization"
	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organizationcache"
	"github.com/crowd-dev/crowd-api/modules/organization/permissions"
	"github.com/crowd-dev/crowd-api/pkg/analytics"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/enrichment"
	"github.com/crowd-dev/crowd-api/pkg/repo"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const entityName = "Organization"

// MemberScope narrows member ids to the ones visible in the tenant.
type MemberScope interface {
	FilterIDsInTenant(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type OrganizationService struct {
	repo       organization.Repository
	cache      organizationcache.Repository
	members    MemberScope
	enrichment enrichment.Provider
	analytics  analytics.Sink
	authz      authz.Checker
	tx         composables.TxManager
}

func NewOrganizationService(
	repo organization.Repository,
	cache organizationcache.Repository,
	members MemberScope,
	enricher enrichment.Provider,
	sink analytics.Sink,
	checker authz.Checker,
	tx composables.TxManager,
) *OrganizationService {
	return &OrganizationService{
		repo:       repo,
		cache:      cache,
		members:    members,
		enrichment: enricher,
		analytics:  sink,
		authz:      checker,
		tx:         tx,
	}
}

// Create stores a new organization. With enrich set, missing attributes are
// filled from the shared cache or the enrichment provider; both lookups are
// best-effort.
func (s *OrganizationService) Create(ctx context.Context, dto *organization.CreateDTO, enrich bool) (*organization.Organization, error) {
	if err := s.authz.ValidateHas(ctx, permissions.OrganizationCreate); err != nil {
		return nil, err
	}
	if dto.Name == "" && !dto.HasURL() {
		return nil, serrors.Validation("nameOrUrlRequired", "organization name or url is required")
	}
	enriched := false
	if enrich {
		enriched = s.enrich(ctx, dto)
	}
	if dto.Name == "" {
		dto.Name = enrichment.Domain(*dto.URL)
	}

	created, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*organization.Organization, error) {
		if dto.Members != nil {
			members, err := s.members.FilterIDsInTenant(txCtx, dto.Members)
			if err != nil {
				return nil, err
			}
			dto.Members = members
		}
		return s.repo.Create(txCtx, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	s.analytics.Track(ctx, "Organization Created", map[string]any{
		"id":       created.ID.String(),
		"enriched": enriched,
	})
	return created, nil
}

// enrich merges cached or freshly fetched metadata into dto and reports
// whether any was found. Fresh results are written to the cache.
func (s *OrganizationService) enrich(ctx context.Context, dto *organization.CreateDTO) bool {
	logger := composables.UseLogger(ctx)
	if !dto.HasURL() {
		url, err := s.enrichment.URLFromName(ctx, dto.Name)
		if err != nil || url == "" {
			logger.WithError(err).WithField("name", dto.Name).Debug("could not resolve organization url")
			return false
		}
		dto.URL = &url
	}
	url := *dto.URL

	cached, err := s.cache.FindByURL(ctx, url)
	if err != nil {
		logger.WithError(err).WithField("url", url).Warn("organization cache lookup failed")
	}
	if cached != nil {
		dto.MergeEnrichment(cached.Metadata())
		return true
	}

	meta, err := s.enrichment.Enrich(ctx, url)
	if err != nil {
		level := logrus.WarnLevel
		if errors.Is(err, enrichment.ErrNotFound) || errors.Is(err, enrichment.ErrDisabled) {
			level = logrus.DebugLevel
		}
		logger.WithError(err).WithField("url", url).Log(level, "could not enrich organization")
		return false
	}
	if _, err := s.cache.Create(ctx, organizationcache.FromMetadata(url, meta)); err != nil {
		logger.WithError(err).WithField("url", url).Warn("failed to cache organization enrichment")
	}
	dto.MergeEnrichment(meta)
	return true
}

func (s *OrganizationService) Update(ctx context.Context, id uuid.UUID, dto *organization.UpdateDTO) (*organization.Organization, error) {
	if err := s.authz.ValidateHas(ctx, permissions.OrganizationEdit); err != nil {
		return nil, err
	}
	updated, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*organization.Organization, error) {
		if dto.Members != nil {
			members, err := s.members.FilterIDsInTenant(txCtx, *dto.Members)
			if err != nil {
				return nil, err
			}
			dto.Members = &members
		}
		return s.repo.Update(txCtx, id, dto)
	})
	if err != nil {
		return nil, serrors.TranslateUnique(err, entityName)
	}
	return updated, nil
}

// DestroyAll hard deletes every id. Any missing id aborts the whole batch.
func (s *OrganizationService) DestroyAll(ctx context.Context, ids []uuid.UUID) error {
	if err := s.authz.ValidateHas(ctx, permissions.OrganizationDestroy); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(txCtx context.Context) error {
		for _, id := range ids {
			if err := s.repo.Destroy(txCtx, id, true); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *OrganizationService) FindByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	if err := s.authz.ValidateHas(ctx, permissions.OrganizationRead); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (*organization.Organization, error) {
		return s.repo.FindByID(txCtx, id)
	})
}

func (s *OrganizationService) FindAndCountAll(ctx context.Context, params *organization.FindParams) ([]*organization.Organization, int64, error) {
	if err := s.authz.ValidateHas(ctx, permissions.OrganizationRead); err != nil {
		return nil, 0, err
	}
	return composables.InTxPage(ctx, s.tx, func(txCtx context.Context) ([]*organization.Organization, int64, error) {
		return s.repo.FindAndCountAll(txCtx, params)
	})
}

func (s *OrganizationService) FindAllAutocomplete(ctx context.Context, query string, limit int) ([]repo.AutocompleteItem, error) {
	if err := s.authz.ValidateHas(ctx, permissions.OrganizationAutocomplete); err != nil {
		return nil, err
	}
	return composables.InTxResult(ctx, s.tx, func(txCtx context.Context) ([]repo.AutocompleteItem, error) {
		return s.repo.FindAllAutocomplete(txCtx, query, limit)
	})
}

// Import creates an organization tagged with importHash. Re-importing the
// same hash is a conflict.
func (s *OrganizationService) Import(ctx context.Context, dto *organization.CreateDTO, importHash string) (*organization.Organization, error) {
	if err := s.authz.ValidateHas(ctx, permissions.OrganizationImport); err != nil {
		return nil, err
	}
	if importHash == "" {
		return nil, serrors.Validation("importHashRequired", "import hash is required")
	}
	exists, err := composables.InTxResult(ctx, s.tx, func(txCtx context.Context) (bool, error) {
		return s.repo.ImportHashExists(txCtx, importHash)
	})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, serrors.Conflict(entityName, "importHash")
	}
	dto.ImportHash = &importHash
	return s.Create(ctx, dto, true)
}
