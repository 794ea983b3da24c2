package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationSchema_Compile(t *testing.T) {
	t.Parallel()

	tenantID, memberID := uuid.New(), uuid.New()
	where, args := organizationTable.Scope(tenantID)
	extra, args, err := OrganizationSchema.ParseAndCompile(map[string]any{
		"members":        []any{memberID.String()},
		"employeesRange": []any{10, nil},
	}, args)
	require.NoError(t, err)

	assert.Equal(t, []string{"o.tenant_id = $1", "o.deleted_at IS NULL"}, where)
	require.Len(t, extra, 2)
	assert.Contains(t, extra, "o.employees >= $2")
	assert.Contains(t, extra, "o.id IN (SELECT organization_id FROM member_organizations WHERE member_id = ANY($3::uuid[]))")
	require.Len(t, args, 3)
	assert.Equal(t, tenantID, args[0])
}

func TestOrganizationSchema_OrderBy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ORDER BY o.created_at DESC", OrganizationSchema.OrderSQL(""))
	assert.Equal(t, "ORDER BY o.name ASC NULLS LAST", OrganizationSchema.OrderSQL("name_ASC"))
	assert.Contains(t, OrganizationSchema.OrderSQL("communityMemberCount_DESC"), "COUNT(*)")
	assert.Equal(t, "ORDER BY o.created_at DESC", OrganizationSchema.OrderSQL("bogus_ASC"))
}
