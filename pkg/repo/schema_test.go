package repo

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

var testSchema = Schema{
	Entity: "member",
	Fields: map[string]FieldSpec{
		"id":            {Kind: KindID, Column: "m.id"},
		"email":         {Kind: KindText, Column: "m.email"},
		"type":          {Kind: KindExact, Column: "m.type", Type: TypeString},
		"score":         {Kind: KindExact, Column: "m.score", Type: TypeInt},
		"show":          {Kind: KindBool, Column: "m.show"},
		"scoreRange":    {Kind: KindRange, Column: "m.score", Type: TypeInt},
		"joinedAtRange": {Kind: KindRange, Column: "m.joined_at", Type: TypeTime},
		"platform":      {Kind: KindJSONKey, Column: "m.username"},
		"tags": {
			Kind:     KindIDSet,
			Column:   "m.id",
			Subquery: "SELECT member_id FROM member_tags WHERE tag_id = ANY($%d::uuid[])",
		},
	},
	Sort: map[string]string{
		"joinedAt":        "m.joined_at",
		"score":           "m.score",
		"activitiesCount": "(SELECT COUNT(*) FROM activities a WHERE a.member_id = m.id)",
	},
	DefaultSort: SortBy[string]{Fields: []SortByField[string]{{Field: "joinedAt"}}},
}

func compile(t *testing.T, raw map[string]any) ([]string, []any) {
	t.Helper()
	where, args, err := testSchema.ParseAndCompile(raw, []any{"tenant"})
	require.NoError(t, err)
	return where, args
}

func TestSchema_Ranges(t *testing.T) {
	t.Parallel()

	t.Run("Closed_Range_Is_Inclusive", func(t *testing.T) {
		where, args := compile(t, map[string]any{"scoreRange": []any{float64(10), float64(50)}})
		assert.Equal(t, []string{"m.score >= $2", "m.score <= $3"}, where)
		assert.Equal(t, []any{"tenant", int64(10), int64(50)}, args)
	})

	t.Run("Null_Lower_Bound_Is_Open", func(t *testing.T) {
		where, args := compile(t, map[string]any{"scoreRange": []any{nil, float64(50)}})
		assert.Equal(t, []string{"m.score <= $2"}, where)
		assert.Equal(t, []any{"tenant", int64(50)}, args)
	})

	t.Run("Empty_String_Upper_Bound_Is_Open", func(t *testing.T) {
		where, _ := compile(t, map[string]any{"joinedAtRange": []any{"2024-01-02", ""}})
		assert.Equal(t, []string{"m.joined_at >= $2"}, where)
	})

	t.Run("Zero_Is_A_Real_Bound", func(t *testing.T) {
		where, args := compile(t, map[string]any{"scoreRange": []any{float64(0), nil}})
		assert.Equal(t, []string{"m.score >= $2"}, where)
		assert.Equal(t, int64(0), args[1])
	})

	t.Run("Time_Bounds_Are_Parsed", func(t *testing.T) {
		_, args := compile(t, map[string]any{"joinedAtRange": []any{"2024-01-02T10:00:00Z", nil}})
		assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), args[1])
	})

	t.Run("Malformed_Range_Is_Validation_Error", func(t *testing.T) {
		_, _, err := testSchema.ParseAndCompile(map[string]any{"scoreRange": "ten"}, nil)
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))

		_, _, err = testSchema.ParseAndCompile(map[string]any{"scoreRange": []any{"a", "b"}}, nil)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})
}

func TestSchema_FieldKinds(t *testing.T) {
	t.Parallel()

	tag1, tag2 := uuid.New(), uuid.New()

	t.Run("Text_Is_Substring_Match", func(t *testing.T) {
		where, args := compile(t, map[string]any{"email": "crowd.dev"})
		assert.Equal(t, []string{"m.email ILIKE $2"}, where)
		assert.Equal(t, "%crowd.dev%", args[1])
	})

	t.Run("Bool_Accepts_String_Form", func(t *testing.T) {
		for _, v := range []any{true, "true", "TRUE"} {
			_, args := compile(t, map[string]any{"show": v})
			assert.Equal(t, true, args[1])
		}
		_, args := compile(t, map[string]any{"show": "false"})
		assert.Equal(t, false, args[1])

		_, _, err := testSchema.ParseAndCompile(map[string]any{"show": "yes"}, nil)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("IDSet_Compiles_To_Subquery", func(t *testing.T) {
		where, args := compile(t, map[string]any{"tags": []any{tag1.String(), tag2.String()}})
		assert.Equal(t,
			[]string{"m.id IN (SELECT member_id FROM member_tags WHERE tag_id = ANY($2::uuid[]))"},
			where,
		)
		assert.Equal(t, []uuid.UUID{tag1, tag2}, args[1])
	})

	t.Run("IDSet_Rejects_Bad_Ids", func(t *testing.T) {
		_, _, err := testSchema.ParseAndCompile(map[string]any{"tags": []any{"nope"}}, nil)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("Id_Single_And_List", func(t *testing.T) {
		where, _ := compile(t, map[string]any{"id": tag1.String()})
		assert.Equal(t, []string{"m.id = $2"}, where)
		where, _ = compile(t, map[string]any{"id": []any{tag1.String()}})
		assert.Equal(t, []string{"m.id = ANY($2::uuid[])"}, where)
	})

	t.Run("Json_Key", func(t *testing.T) {
		where, args := compile(t, map[string]any{"platform": "github"})
		assert.Equal(t, []string{"m.username ? $2"}, where)
		assert.Equal(t, "github", args[1])
	})

	t.Run("Unknown_Keys_Are_Ignored", func(t *testing.T) {
		where, args := compile(t, map[string]any{"favouriteColor": "blue", "type": "lead"})
		assert.Equal(t, []string{"m.type = $2"}, where)
		assert.Len(t, args, 2)
	})

	t.Run("Empty_Values_Are_Skipped", func(t *testing.T) {
		where, _ := compile(t, map[string]any{"email": "", "tags": []any{}, "type": nil})
		assert.Empty(t, where)
	})

	t.Run("Predicates_Are_Ordered_By_Key", func(t *testing.T) {
		where, _ := compile(t, map[string]any{"type": "lead", "email": "a", "scoreRange": []any{1, 2}})
		assert.Equal(t, []string{"m.email ILIKE $2", "m.score >= $3", "m.score <= $4", "m.type = $5"}, where)
	})
}

func TestSchema_TaggedOperators(t *testing.T) {
	t.Parallel()

	where, args := compile(t, map[string]any{
		"score": map[string]any{"gte": float64(5), "lte": "9"},
		"type":  map[string]any{"in": []any{"lead", "member"}},
	})
	assert.Equal(t, []string{"m.score >= $2", "m.score <= $3", "m.type = ANY($4::text[])"}, where)
	assert.Equal(t, []any{"tenant", int64(5), int64(9), []string{"lead", "member"}}, args)

	_, _, err := testSchema.ParseAndCompile(map[string]any{"score": map[string]any{"between": 1}}, nil)
	assert.True(t, serrors.IsKind(err, serrors.KindValidation))
}

func TestSchema_OrderBy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ORDER BY m.joined_at DESC", testSchema.OrderSQL(""))
	assert.Equal(t, "ORDER BY m.score ASC NULLS LAST", testSchema.OrderSQL("score_ASC"))
	assert.Equal(t,
		"ORDER BY (SELECT COUNT(*) FROM activities a WHERE a.member_id = m.id) DESC NULLS LAST",
		testSchema.OrderSQL("activitiesCount_DESC"),
	)
	assert.Equal(t, "ORDER BY m.joined_at DESC", testSchema.OrderSQL("password_ASC"))
	assert.Equal(t, "ORDER BY m.score DESC NULLS LAST, m.joined_at ASC NULLS LAST", testSchema.OrderSQL("score_desc,joinedAt"))
}
