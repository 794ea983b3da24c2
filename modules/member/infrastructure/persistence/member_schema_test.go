package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

func TestMemberSchema_Compile(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	tagID := uuid.New()

	where, args := memberTable.Scope(tenantID)
	extra, args, err := MemberSchema.ParseAndCompile(map[string]any{
		"scoreRange": []any{10, 50},
		"reachRange": []any{nil, 100},
		"email":      "crowd",
		"tags":       []any{tagID.String()},
		"platform":   "github",
		"nickname":   "ignored",
	}, args)
	require.NoError(t, err)
	where = append(where, extra...)

	assert.Equal(t, []string{
		"m.tenant_id = $1",
		"m.deleted_at IS NULL",
		"m.email ILIKE $2",
		"m.username ? $3",
		"(m.reach->>'total')::int <= $4",
		"m.score >= $5",
		"m.score <= $6",
		"m.id IN (SELECT member_id FROM member_tags WHERE tag_id = ANY($7::uuid[]))",
	}, where)
	assert.Equal(t, []any{tenantID, "%crowd%", "github", int64(100), int64(10), int64(50), []uuid.UUID{tagID}}, args)
}

func TestMemberSchema_RejectsMalformedValues(t *testing.T) {
	t.Parallel()

	_, _, err := MemberSchema.ParseAndCompile(map[string]any{"id": "not-a-uuid"}, nil)
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))

	_, _, err = MemberSchema.ParseAndCompile(map[string]any{"scoreRange": "10"}, nil)
	require.Error(t, err)
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))
}

func TestMemberSchema_OrderBy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ORDER BY m.joined_at DESC NULLS LAST", MemberSchema.OrderSQL(""))
	assert.Equal(t, "ORDER BY m.joined_at DESC NULLS LAST", MemberSchema.OrderSQL("shoeSize_ASC"))
	assert.Equal(t,
		"ORDER BY "+activitiesCountExpr+" DESC NULLS LAST",
		MemberSchema.OrderSQL("activitiesCount_DESC"),
	)
	assert.Equal(t,
		"ORDER BY (m.reach->>'total')::int ASC NULLS LAST, m.score DESC NULLS LAST",
		MemberSchema.OrderSQL("reach_ASC,score_DESC"),
	)
}
