package persistence_test

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/modules/settings/domain/aggregates/attribute"
	"github.com/crowd-dev/crowd-api/modules/settings/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/itf"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

func TestAttributeRepository(t *testing.T) {
	t.Parallel()
	f := itf.Setup(t)
	r := persistence.NewAttributeRepository()

	t.Run("Create_Defaults_Flags", func(t *testing.T) {
		s, err := r.Create(f.Ctx, &attribute.CreateDTO{Type: attribute.TypeString, Name: "title", Label: "Title"})
		require.NoError(t, err)
		assert.True(t, s.CanDelete)
		assert.True(t, s.Show)
		assert.Empty(t, s.Options)
		assert.Equal(t, f.TenantID(), s.TenantID)
	})

	t.Run("Duplicate_Name_Is_Unique_Violation", func(t *testing.T) {
		_, err := r.Create(f.Ctx, &attribute.CreateDTO{Type: attribute.TypeString, Name: "dup", Label: "Dup"})
		require.NoError(t, err)

		// Savepoint keeps the shared test transaction usable.
		sp, err := f.Tx.Begin(f.Ctx)
		require.NoError(t, err)
		defer func() { _ = sp.Rollback(f.Ctx) }()
		_, err = r.Create(composables.WithTx(f.Ctx, sp), &attribute.CreateDTO{Type: attribute.TypeNumber, Name: "dup", Label: "Dup again"})
		require.Error(t, err)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.True(t, serrors.IsKind(serrors.TranslateUnique(err, "MemberAttributeSettings"), serrors.KindConflict))
	})

	t.Run("Same_Name_In_Other_Tenant", func(t *testing.T) {
		otherCtx, _ := f.ForTenant(t, "")
		_, err := r.Create(otherCtx, &attribute.CreateDTO{Type: attribute.TypeString, Name: "title", Label: "Title"})
		require.NoError(t, err)
	})

	t.Run("FindByNames_Ordered_By_Name", func(t *testing.T) {
		_, err := r.Create(f.Ctx, &attribute.CreateDTO{Type: attribute.TypeString, Name: "bio", Label: "Bio"})
		require.NoError(t, err)

		out, err := r.FindByNames(f.Ctx, []string{"title", "bio", "missing"})
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "bio", out[0].Name)
		assert.Equal(t, "title", out[1].Name)
	})

	t.Run("Filter_CanDelete", func(t *testing.T) {
		locked := false
		_, err := r.Create(f.Ctx, &attribute.CreateDTO{
			Type: attribute.TypeString, Name: "sourceId", Label: "Source ID", CanDelete: &locked,
		})
		require.NoError(t, err)

		rows, count, err := r.FindAndCountAll(f.Ctx, &attribute.FindParams{
			Filter: map[string]any{"canDelete": false},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
		assert.Equal(t, "sourceId", rows[0].Name)
	})

	t.Run("Update_Ignores_Name", func(t *testing.T) {
		s, err := r.Create(f.Ctx, &attribute.CreateDTO{Type: attribute.TypeMultiSelect, Name: "tier", Label: "Tier"})
		require.NoError(t, err)

		label, name := "Plan tier", "renamed"
		options := []string{"gold", "silver"}
		updated, err := r.Update(f.Ctx, s.ID, &attribute.UpdateDTO{Label: &label, Name: &name, Options: &options})
		require.NoError(t, err)
		assert.Equal(t, "tier", updated.Name)
		assert.Equal(t, "Plan tier", updated.Label)
		assert.Equal(t, options, updated.Options)
	})

	t.Run("Destroy_Frees_Name", func(t *testing.T) {
		s, err := r.Create(f.Ctx, &attribute.CreateDTO{Type: attribute.TypeString, Name: "temp", Label: "Temp"})
		require.NoError(t, err)
		require.NoError(t, r.Destroy(f.Ctx, s.ID, false))

		_, err = r.FindByID(f.Ctx, s.ID)
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))

		_, err = r.Create(f.Ctx, &attribute.CreateDTO{Type: attribute.TypeString, Name: "temp", Label: "Temp"})
		require.NoError(t, err)
	})

	t.Run("Force_Destroy_Removes_Soft_Deleted_Row", func(t *testing.T) {
		s, err := r.Create(f.Ctx, &attribute.CreateDTO{Type: attribute.TypeString, Name: "purged", Label: "Purged"})
		require.NoError(t, err)
		require.NoError(t, r.Destroy(f.Ctx, s.ID, false))

		err = r.Destroy(f.Ctx, s.ID, false)
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))

		require.NoError(t, r.Destroy(f.Ctx, s.ID, true))
		err = r.Destroy(f.Ctx, s.ID, true)
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
	})
}
