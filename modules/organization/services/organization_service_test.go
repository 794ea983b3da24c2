package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organization"
	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organizationcache"
	"github.com/crowd-dev/crowd-api/modules/organization/services"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/enrichment"
	"github.com/crowd-dev/crowd-api/pkg/repo"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type openTx struct{ pgx.Tx }

type txStub struct{ calls int }

func (s *txStub) InTx(ctx context.Context, fn func(context.Context) error) error {
	s.calls++
	return fn(composables.WithTx(ctx, openTx{}))
}

type repoStub struct {
	organization.Repository
	created    []*organization.CreateDTO
	hashes     map[string]bool
	destroyed  []uuid.UUID
	destroyErr map[uuid.UUID]error
	outsideTx  []string
}

func (r *repoStub) seen(ctx context.Context, op string) {
	if !composables.HasTx(ctx) {
		r.outsideTx = append(r.outsideTx, op)
	}
}

func (r *repoStub) FindByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	r.seen(ctx, "FindByID")
	return &organization.Organization{ID: id}, nil
}

func (r *repoStub) FindAndCountAll(ctx context.Context, _ *organization.FindParams) ([]*organization.Organization, int64, error) {
	r.seen(ctx, "FindAndCountAll")
	return nil, 0, nil
}

func (r *repoStub) FindAllAutocomplete(ctx context.Context, _ string, _ int) ([]repo.AutocompleteItem, error) {
	r.seen(ctx, "FindAllAutocomplete")
	return nil, nil
}

func (r *repoStub) Create(_ context.Context, dto *organization.CreateDTO) (*organization.Organization, error) {
	r.created = append(r.created, dto)
	return &organization.Organization{ID: uuid.New(), Name: dto.Name, URL: dto.URL, Members: dto.Members}, nil
}

func (r *repoStub) ImportHashExists(ctx context.Context, hash string) (bool, error) {
	r.seen(ctx, "ImportHashExists")
	return r.hashes[hash], nil
}

func (r *repoStub) Destroy(_ context.Context, id uuid.UUID, force bool) error {
	if err := r.destroyErr[id]; err != nil {
		return err
	}
	if !force {
		return errors.New("organizations are hard deleted")
	}
	r.destroyed = append(r.destroyed, id)
	return nil
}

type cacheStub struct {
	organizationcache.Repository
	entries map[string]*organizationcache.Entry
	writes  int
}

func (c *cacheStub) FindByURL(_ context.Context, url string) (*organizationcache.Entry, error) {
	return c.entries[url], nil
}

func (c *cacheStub) Create(_ context.Context, e *organizationcache.Entry) (*organizationcache.Entry, error) {
	c.writes++
	c.entries[e.URL] = e
	return e, nil
}

type enricherStub struct {
	meta    map[string]*enrichment.OrganizationMetadata
	urls    map[string]string
	enrichN int
}

func (e *enricherStub) Enrich(_ context.Context, url string) (*enrichment.OrganizationMetadata, error) {
	e.enrichN++
	m, ok := e.meta[url]
	if !ok {
		return nil, enrichment.ErrNotFound
	}
	return m, nil
}

func (e *enricherStub) URLFromName(_ context.Context, name string) (string, error) {
	u, ok := e.urls[name]
	if !ok {
		return "", enrichment.ErrNotFound
	}
	return u, nil
}

type memberScope struct{ known map[uuid.UUID]bool }

func (m memberScope) FilterIDsInTenant(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	for _, id := range ids {
		if m.known[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type sinkStub struct{ events []string }

func (s *sinkStub) Track(_ context.Context, event string, _ map[string]any) {
	s.events = append(s.events, event)
}

type fixture struct {
	svc      *services.OrganizationService
	repo     *repoStub
	cache    *cacheStub
	enricher *enricherStub
	sink     *sinkStub
	tx       *txStub
	members  memberScope
}

func newFixture() *fixture {
	f := &fixture{
		repo:     &repoStub{hashes: map[string]bool{}, destroyErr: map[uuid.UUID]error{}},
		cache:    &cacheStub{entries: map[string]*organizationcache.Entry{}},
		enricher: &enricherStub{meta: map[string]*enrichment.OrganizationMetadata{}, urls: map[string]string{}},
		sink:     &sinkStub{},
		tx:       &txStub{},
		members:  memberScope{known: map[uuid.UUID]bool{}},
	}
	f.svc = services.NewOrganizationService(f.repo, f.cache, f.members, f.enricher, f.sink, authz.AllowAll{}, f.tx)
	return f
}

func strPtr(s string) *string { return &s }

func TestOrganizationService_Create(t *testing.T) {
	t.Parallel()

	t.Run("Name_Or_URL_Required", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(context.Background(), &organization.CreateDTO{}, true)
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
		assert.Empty(t, f.repo.created)
	})

	t.Run("Enrichment_Never_Overwrites_Supplied_Fields", func(t *testing.T) {
		f := newFixture()
		employees := 42
		f.enricher.meta["https://crowd.dev"] = &enrichment.OrganizationMetadata{
			Name:        "Crowd Inc",
			URL:         "https://crowd.dev",
			Description: "Community-led growth",
			Employees:   &employees,
		}
		org, err := f.svc.Create(context.Background(), &organization.CreateDTO{
			Name: "crowd.dev",
			URL:  strPtr("https://crowd.dev"),
		}, true)
		require.NoError(t, err)
		assert.Equal(t, "crowd.dev", org.Name)

		dto := f.repo.created[0]
		require.NotNil(t, dto.Description)
		assert.Equal(t, "Community-led growth", *dto.Description)
		assert.Equal(t, &employees, dto.Employees)
		assert.Equal(t, 1, f.cache.writes)
		assert.Equal(t, []string{"Organization Created"}, f.sink.events)
	})

	t.Run("Cache_Hit_Skips_Provider", func(t *testing.T) {
		f := newFixture()
		f.cache.entries["https://crowd.dev"] = &organizationcache.Entry{
			URL:         "https://crowd.dev",
			Description: strPtr("cached"),
		}
		_, err := f.svc.Create(context.Background(), &organization.CreateDTO{URL: strPtr("https://crowd.dev")}, true)
		require.NoError(t, err)
		assert.Zero(t, f.enricher.enrichN)
		assert.Equal(t, "cached", *f.repo.created[0].Description)
	})

	t.Run("Name_Only_Resolves_URL", func(t *testing.T) {
		f := newFixture()
		f.enricher.urls["crowd"] = "https://crowd.dev"
		f.enricher.meta["https://crowd.dev"] = &enrichment.OrganizationMetadata{Logo: "https://logo/crowd.png"}
		org, err := f.svc.Create(context.Background(), &organization.CreateDTO{Name: "crowd"}, true)
		require.NoError(t, err)
		require.NotNil(t, org.URL)
		assert.Equal(t, "https://crowd.dev", *org.URL)
		assert.Equal(t, "https://logo/crowd.png", *f.repo.created[0].Logo)
	})

	t.Run("Provider_Failure_Is_Best_Effort", func(t *testing.T) {
		f := newFixture()
		org, err := f.svc.Create(context.Background(), &organization.CreateDTO{URL: strPtr("https://www.unknown.io")}, true)
		require.NoError(t, err)
		assert.Equal(t, "unknown.io", org.Name)
		assert.Zero(t, f.cache.writes)
	})

	t.Run("Without_Enrichment_Provider_Is_Not_Called", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(context.Background(), &organization.CreateDTO{Name: "acme", URL: strPtr("https://acme.io")}, false)
		require.NoError(t, err)
		assert.Zero(t, f.enricher.enrichN)
	})

	t.Run("Members_Are_Sanitized", func(t *testing.T) {
		f := newFixture()
		known := uuid.New()
		f.members.known[known] = true
		org, err := f.svc.Create(context.Background(), &organization.CreateDTO{
			Name:    "acme",
			Members: []uuid.UUID{uuid.New(), known},
		}, false)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{known}, org.Members)
		assert.Equal(t, 1, f.tx.calls)
	})
}

func TestOrganizationService_Import(t *testing.T) {
	t.Parallel()

	t.Run("Hash_Required", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Import(context.Background(), &organization.CreateDTO{Name: "acme"}, "")
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("Duplicate_Hash_Is_Conflict", func(t *testing.T) {
		f := newFixture()
		f.repo.hashes["h1"] = true
		_, err := f.svc.Import(context.Background(), &organization.CreateDTO{Name: "acme"}, "h1")
		assert.True(t, serrors.IsKind(err, serrors.KindConflict))
		assert.Empty(t, f.repo.created)
	})

	t.Run("Stamps_Hash", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Import(context.Background(), &organization.CreateDTO{Name: "acme"}, "h2")
		require.NoError(t, err)
		require.NotNil(t, f.repo.created[0].ImportHash)
		assert.Equal(t, "h2", *f.repo.created[0].ImportHash)
	})
}

func TestOrganizationService_DestroyAll(t *testing.T) {
	t.Parallel()

	f := newFixture()
	a, b, missing := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, f.svc.DestroyAll(context.Background(), []uuid.UUID{a, b}))
	assert.Equal(t, []uuid.UUID{a, b}, f.repo.destroyed)

	f.repo.destroyErr[missing] = serrors.NotFound("Organization", missing)
	err := f.svc.DestroyAll(context.Background(), []uuid.UUID{missing})
	assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
}

func TestOrganizationService_ReadsRunInTransaction(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	_, _, err = f.svc.FindAndCountAll(ctx, &organization.FindParams{})
	require.NoError(t, err)
	_, err = f.svc.FindAllAutocomplete(ctx, "ac", 5)
	require.NoError(t, err)
	_, err = f.svc.Import(ctx, &organization.CreateDTO{Name: "acme"}, "h3")
	require.NoError(t, err)

	assert.Empty(t, f.repo.outsideTx)
}
