package persistence_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/modules/member/domain/aggregates/member"
	memberpersistence "github.com/crowd-dev/crowd-api/modules/member/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organization"
	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organizationcache"
	"github.com/crowd-dev/crowd-api/modules/organization/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/pkg/itf"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

func strPtr(s string) *string { return &s }

func createOrganization(t *testing.T, ctx context.Context, r organization.Repository, dto *organization.CreateDTO) *organization.Organization {
	t.Helper()
	o, err := r.Create(ctx, dto)
	require.NoError(t, err)
	return o
}

func TestOrganizationRepository(t *testing.T) {
	t.Parallel()
	f := itf.Setup(t)
	r := persistence.NewOrganizationRepository()
	members := memberpersistence.NewMemberRepository()

	t.Run("Create_Stamps_Tenant_And_Actor", func(t *testing.T) {
		employees := 42
		o := createOrganization(t, f.Ctx, r, &organization.CreateDTO{
			Name:         "crowd.dev",
			URL:          strPtr("https://crowd.dev"),
			Emails:       []string{"hello@crowd.dev"},
			Tags:         []string{"community", "growth"},
			Twitter:      map[string]any{"handle": "CrowdDotDev"},
			Employees:    &employees,
			RevenueRange: map[string]any{"min": float64(10), "max": float64(50)},
		})
		assert.Equal(t, f.TenantID(), o.TenantID)
		require.NotNil(t, o.CreatedByID)
		assert.Equal(t, f.Principal.UserID, *o.CreatedByID)
		assert.Equal(t, []string{"community", "growth"}, o.Tags)
		assert.Equal(t, "CrowdDotDev", o.Twitter["handle"])
		assert.Equal(t, int64(0), o.CommunityMemberCount)
		assert.Empty(t, o.Members)

		byURL, err := r.FindByURL(f.Ctx, "https://crowd.dev")
		require.NoError(t, err)
		assert.Equal(t, o.ID, byURL.ID)
	})

	t.Run("Members_Are_Counted_And_Linked_Both_Ways", func(t *testing.T) {
		gilfoyle, err := members.Create(f.Ctx, &member.CreateDTO{Username: map[string]string{"crowdUsername": "gilfoyle"}})
		require.NoError(t, err)
		dinesh, err := members.Create(f.Ctx, &member.CreateDTO{Username: map[string]string{"crowdUsername": "dinesh"}})
		require.NoError(t, err)

		o := createOrganization(t, f.Ctx, r, &organization.CreateDTO{
			Name:    "pied piper",
			URL:     strPtr("https://piedpiper.com"),
			Members: []uuid.UUID{gilfoyle.ID, dinesh.ID, uuid.New()},
		})
		assert.Equal(t, int64(2), o.CommunityMemberCount)
		assert.ElementsMatch(t, []uuid.UUID{gilfoyle.ID, dinesh.ID}, o.Members)

		for _, id := range []uuid.UUID{gilfoyle.ID, dinesh.ID} {
			m, err := members.FindByID(f.Ctx, id, true)
			require.NoError(t, err)
			require.Len(t, m.Organizations, 1)
			require.NotNil(t, m.Organizations[0].URL)
			assert.Equal(t, "https://piedpiper.com", *m.Organizations[0].URL)
		}

		page, count, err := r.FindAndCountAll(f.Ctx, &organization.FindParams{
			Filter: map[string]any{"members": []any{dinesh.ID.String()}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, o.ID, page[0].ID)
	})

	t.Run("Name_Filter_Is_Substring_Newest_First", func(t *testing.T) {
		first := createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "test-organization-substring"})
		second := createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "another test-organization-substring"})
		createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "unrelated-substring"})

		rows, count, err := r.FindAndCountAll(f.Ctx, &organization.FindParams{
			Filter: map[string]any{"name": "TEST-organization-sub"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		require.Len(t, rows, 2)
		assert.Equal(t, second.ID, rows[0].ID)
		assert.Equal(t, first.ID, rows[1].ID)
	})

	t.Run("CreatedAt_Range_Open_Lower_Bound", func(t *testing.T) {
		o1 := createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "range-one"})
		o2 := createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "range-two"})
		createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "range-three"})

		rows, count, err := r.FindAndCountAll(f.Ctx, &organization.FindParams{
			Filter: map[string]any{
				"name":           "range-",
				"createdAtRange": []any{nil, o2.CreatedAt},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.Equal(t, []uuid.UUID{o2.ID, o1.ID}, []uuid.UUID{rows[0].ID, rows[1].ID})
	})

	t.Run("Update_Replaces_Only_Supplied_Fields", func(t *testing.T) {
		o := createOrganization(t, f.Ctx, r, &organization.CreateDTO{
			Name:        "before",
			Description: strPtr("kept"),
		})
		updated, err := r.Update(f.Ctx, o.ID, &organization.UpdateDTO{Name: strPtr("after")})
		require.NoError(t, err)
		assert.Equal(t, "after", updated.Name)
		require.NotNil(t, updated.Description)
		assert.Equal(t, "kept", *updated.Description)

		_, err = r.Update(f.Ctx, uuid.New(), &organization.UpdateDTO{Name: strPtr("x")})
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
	})

	t.Run("Destroy_Then_NotFound", func(t *testing.T) {
		o := createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "doomed"})
		require.NoError(t, r.Destroy(f.Ctx, o.ID, false))
		assert.True(t, serrors.IsKind(r.Destroy(f.Ctx, o.ID, false), serrors.KindNotFound))
		require.NoError(t, r.Destroy(f.Ctx, o.ID, true))

		otherCtx, _ := f.ForTenant(t, "")
		visible := createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "mine"})
		assert.True(t, serrors.IsKind(r.Destroy(otherCtx, visible.ID, true), serrors.KindNotFound))
	})

	t.Run("ImportHash_And_Autocomplete", func(t *testing.T) {
		createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "Zeta Labs", ImportHash: strPtr("zeta-hash")})
		createOrganization(t, f.Ctx, r, &organization.CreateDTO{Name: "Zenith"})

		exists, err := r.ImportHashExists(f.Ctx, "zeta-hash")
		require.NoError(t, err)
		assert.True(t, exists)

		otherCtx, _ := f.ForTenant(t, "")
		exists, err = r.ImportHashExists(otherCtx, "zeta-hash")
		require.NoError(t, err)
		assert.False(t, exists)

		items, err := r.FindAllAutocomplete(f.Ctx, "ze", 0)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Zenith", items[0].Label)
		assert.Equal(t, "Zeta Labs", items[1].Label)
	})
}

func TestOrganizationCacheRepository(t *testing.T) {
	t.Parallel()
	f := itf.Setup(t)
	r := persistence.NewOrganizationCacheRepository()

	t.Run("FindByURL_Absent_Is_Nil", func(t *testing.T) {
		e, err := r.FindByURL(f.Ctx, "https://nowhere.example")
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("Shared_Across_Tenants", func(t *testing.T) {
		created, err := r.Create(f.Ctx, &organizationcache.Entry{URL: "https://shared.example", Name: strPtr("Shared")})
		require.NoError(t, err)

		otherCtx, _ := f.ForTenant(t, "")
		found, err := r.FindByURL(otherCtx, "https://shared.example")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)

		again, err := r.Create(otherCtx, &organizationcache.Entry{URL: "https://shared.example"})
		require.NoError(t, err)
		assert.Equal(t, created.ID, again.ID)
	})

	t.Run("Update_And_Destroy", func(t *testing.T) {
		created, err := r.Create(f.Ctx, &organizationcache.Entry{URL: "https://update.example"})
		require.NoError(t, err)

		updated, err := r.Update(f.Ctx, created.ID, &organizationcache.Entry{URL: "https://update.example", Logo: strPtr("logo.png")})
		require.NoError(t, err)
		require.NotNil(t, updated.Logo)
		assert.Equal(t, "logo.png", *updated.Logo)

		require.NoError(t, r.Destroy(f.Ctx, created.ID, false))
		_, err = r.FindByID(f.Ctx, created.ID)
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
		assert.True(t, serrors.IsKind(r.Destroy(f.Ctx, created.ID, false), serrors.KindNotFound))
	})
}
