package repo_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/pkg/itf"
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

var members = repo.Table{Name: "members", Alias: "m", TenantScoped: true, SoftDelete: true}

func TestTable_Scope(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	where, args := members.Scope(tenantID)
	assert.Equal(t, []string{"m.tenant_id = $1", "m.deleted_at IS NULL"}, where)
	assert.Equal(t, []any{tenantID}, args)

	cache := repo.Table{Name: "organization_caches", SoftDelete: true}
	where, args = cache.Scope(tenantID)
	assert.Equal(t, []string{"deleted_at IS NULL"}, where)
	assert.Empty(t, args)
}

func TestTable_FilterIDsInTenant(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	t.Run("Preserves_Input_Order", func(t *testing.T) {
		tx := &itf.StubTx{
			QueryFunc: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
				return itf.NewRows([]any{a}, []any{c}), nil
			},
		}
		got, err := members.FilterIDsInTenant(context.Background(), tx, tenantID, []uuid.UUID{c, b, a, c})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{c, a}, got)

		calls := tx.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t,
			"SELECT id FROM members WHERE tenant_id = $1 AND deleted_at IS NULL AND id = ANY($2::uuid[])",
			calls[0].SQL,
		)
		assert.Equal(t, tenantID, calls[0].Args[0])
	})

	t.Run("Empty_Input_Skips_Query", func(t *testing.T) {
		tx := &itf.StubTx{}
		got, err := members.FilterIDsInTenant(context.Background(), tx, tenantID, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
		assert.Empty(t, tx.Calls())
	})
}

func TestTable_Destroy(t *testing.T) {
	t.Parallel()

	tenantID, id := uuid.New(), uuid.New()

	t.Run("Soft_Delete_Excludes_Deleted_Rows", func(t *testing.T) {
		tx := &itf.StubTx{}
		require.NoError(t, members.Destroy(context.Background(), tx, tenantID, id, false))
		sql := tx.Calls()[0].SQL
		assert.True(t, strings.HasPrefix(sql, "UPDATE members SET deleted_at = NOW()"))
		assert.Contains(t, sql, "deleted_at IS NULL")
	})

	t.Run("Force_Hard_Deletes", func(t *testing.T) {
		tx := &itf.StubTx{}
		require.NoError(t, members.Destroy(context.Background(), tx, tenantID, id, true))
		assert.Equal(t, "DELETE FROM members WHERE tenant_id = $1 AND id = $2", tx.Calls()[0].SQL)
	})

	t.Run("No_Rows_Is_NotFound", func(t *testing.T) {
		tx := &itf.StubTx{
			ExecFunc: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
				return pgconn.NewCommandTag("UPDATE 0"), nil
			},
		}
		err := members.Destroy(context.Background(), tx, tenantID, id, false)
		assert.ErrorIs(t, err, repo.ErrNotFound)
	})
}

func TestTable_Autocomplete(t *testing.T) {
	t.Parallel()

	tenantID, id := uuid.New(), uuid.New()
	tx := &itf.StubTx{
		QueryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
			return itf.NewRows([]any{id, "crowd.dev"}), nil
		},
	}
	items, err := members.Autocomplete(context.Background(), tx, tenantID, "m.display_name", "cro", 5)
	require.NoError(t, err)
	assert.Equal(t, []repo.AutocompleteItem{{ID: id, Label: "crowd.dev"}}, items)

	call := tx.Calls()[0]
	assert.Equal(t,
		"SELECT m.id, m.display_name FROM members m WHERE m.tenant_id = $1 AND m.deleted_at IS NULL AND m.display_name ILIKE $2 ORDER BY m.display_name ASC LIMIT 5",
		call.SQL,
	)
	assert.Equal(t, []any{tenantID, "cro%"}, call.Args)
}

func TestLoadIDs(t *testing.T) {
	t.Parallel()

	m1, m2, x, y := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	tx := &itf.StubTx{
		QueryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
			return itf.NewRows([]any{m1, x}, []any{m1, y}, []any{m2, x}), nil
		},
	}
	rel := repo.ManyToMany{Table: "member_to_merge", OwnerColumn: "member_id", RelatedColumn: "to_merge_id"}
	got, err := repo.LoadIDs(context.Background(), tx, rel, []uuid.UUID{m1, m2})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID][]uuid.UUID{m1: {x, y}, m2: {x}}, got)
	assert.Equal(t,
		"SELECT member_id, to_merge_id FROM member_to_merge WHERE member_id = ANY($1::uuid[]) ORDER BY member_id, to_merge_id",
		tx.Calls()[0].SQL,
	)
}

func TestLoadIDs_SkipsSoftDeletedRelated(t *testing.T) {
	t.Parallel()

	m1, org := uuid.New(), uuid.New()
	tx := &itf.StubTx{
		QueryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
			return itf.NewRows([]any{m1, org}), nil
		},
	}
	orgs := repo.Table{Name: "organizations", TenantScoped: true, SoftDelete: true}
	rel := repo.ManyToMany{
		Table:         "member_organizations",
		OwnerColumn:   "member_id",
		RelatedColumn: "organization_id",
		OrderBy:       "created_at",
		Related:       &orgs,
	}
	got, err := repo.LoadIDs(context.Background(), tx, rel, []uuid.UUID{m1})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID][]uuid.UUID{m1: {org}}, got)
	assert.Equal(t,
		"SELECT j.member_id, j.organization_id FROM member_organizations j "+
			"JOIN organizations r ON r.id = j.organization_id AND r.deleted_at IS NULL "+
			"WHERE j.member_id = ANY($1::uuid[]) ORDER BY j.member_id, j.created_at",
		tx.Calls()[0].SQL,
	)
	assert.Equal(t, []any{[]uuid.UUID{m1}}, tx.Calls()[0].Args)
}

func TestReplaceLinks(t *testing.T) {
	t.Parallel()

	owner, t1, t2 := uuid.New(), uuid.New(), uuid.New()
	tx := &itf.StubTx{}
	rel := repo.ManyToMany{Table: "member_tags", OwnerColumn: "member_id", RelatedColumn: "tag_id"}
	require.NoError(t, repo.ReplaceLinks(context.Background(), tx, rel, owner, []uuid.UUID{t1, t2}))

	calls := tx.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "DELETE FROM member_tags WHERE member_id = $1", calls[0].SQL)
	assert.Equal(t,
		"INSERT INTO member_tags (member_id, tag_id) VALUES ($1, $2), ($3, $4) ON CONFLICT DO NOTHING",
		calls[1].SQL,
	)
	assert.Equal(t, []any{owner, t1, owner, t2}, calls[1].Args)
}
