package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryHelpers(t *testing.T) {
	t.Parallel()

	t.Run("Join_Skips_Empty_Parts", func(t *testing.T) {
		assert.Equal(t, "SELECT 1 LIMIT 5", Join("SELECT 1", "", "  ", "LIMIT 5"))
	})

	t.Run("JoinWhere", func(t *testing.T) {
		assert.Equal(t, "", JoinWhere())
		assert.Equal(t, "WHERE a = $1 AND b IS NULL", JoinWhere("a = $1", "", "b IS NULL"))
	})

	t.Run("FormatLimitOffset", func(t *testing.T) {
		assert.Equal(t, "LIMIT 50", FormatLimitOffset(50, 0))
		assert.Equal(t, "LIMIT 10 OFFSET 20", FormatLimitOffset(10, 20))
		assert.Equal(t, "OFFSET 5", FormatLimitOffset(0, 5))
		assert.Equal(t, "", FormatLimitOffset(0, 0))
	})

	t.Run("Insert_With_Returning", func(t *testing.T) {
		assert.Equal(t,
			"INSERT INTO tags (tenant_id, name) VALUES ($1, $2) RETURNING id",
			Insert("tags", []string{"tenant_id", "name"}, "id"),
		)
	})

	t.Run("Update_Places_Where_After_Fields", func(t *testing.T) {
		assert.Equal(t,
			"UPDATE tags SET name = $1 WHERE id = $2",
			Update("tags", []string{"name"}, "id = $2"),
		)
	})

	t.Run("BatchInsertQueryN", func(t *testing.T) {
		q, args := BatchInsertQueryN("INSERT INTO member_tags (member_id, tag_id)", [][]interface{}{
			{"m1", "t1"},
			{"m1", "t2"},
		})
		assert.Equal(t, "INSERT INTO member_tags (member_id, tag_id) VALUES ($1, $2), ($3, $4)", q)
		assert.Equal(t, []interface{}{"m1", "t1", "m1", "t2"}, args)

		q, args = BatchInsertQueryN("INSERT INTO x (a)", nil)
		assert.Empty(t, q)
		assert.Nil(t, args)
	})

	t.Run("Changes_Keep_Call_Order", func(t *testing.T) {
		var c Changes
		assert.True(t, c.Empty())
		c.Set("name", "crowd").SetIf(false, "url", "x").SetIf(true, "logo", nil)
		assert.Equal(t, []string{"name", "logo"}, c.Fields())
		assert.Equal(t, []any{"crowd", nil}, c.Values())
		assert.Equal(t, "UPDATE organizations SET name = $1, logo = $2 WHERE id = $3",
			Update("organizations", c.Fields(), "id = $3"))
	})
}

func TestFilters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "m.score >= $2", Gte(10).String("m.score", 2))
	assert.Equal(t, "m.type <> $3", NotEq("lead").String("m.type", 3))
	assert.Equal(t, "m.id = ANY($4::uuid[])", In([]string{"a"}, "uuid[]").String("m.id", 4))
	assert.Equal(t, "m.deleted_at IS NULL", IsNull(true).String("m.deleted_at", 9))
	assert.Nil(t, IsNull(false).Value())

	like := ILike("50%_off")
	assert.Equal(t, "o.name ILIKE $2", like.String("o.name", 2))
	assert.Equal(t, []any{`%50\%\_off%`}, like.Value())
	assert.Equal(t, []any{"cro%"}, Prefix("cro").Value())

	sub := InSubquery("SELECT member_id FROM member_tags WHERE tag_id = ANY($%d::uuid[])", []string{"t"})
	assert.Equal(t,
		"m.id IN (SELECT member_id FROM member_tags WHERE tag_id = ANY($5::uuid[]))",
		sub.String("m.id", 5),
	)
}

func TestApply(t *testing.T) {
	t.Parallel()

	columns := map[string]string{"name": "o.name", "employees": "o.employees"}
	where, args, err := Apply([]string{"o.tenant_id = $1"}, []any{"tenant"}, []FieldFilter[string]{
		{Column: "name", Filter: ILike("crowd")},
		{Column: "employees", Filter: Lt(100)},
	}, columns)
	assert.NoError(t, err)
	assert.Equal(t, []string{"o.tenant_id = $1", "o.name ILIKE $2", "o.employees < $3"}, where)
	assert.Equal(t, []any{"tenant", "%crowd%", 100}, args)

	_, _, err = Apply(nil, nil, []FieldFilter[string]{{Column: "nope", Filter: Eq(1)}}, columns)
	assert.Error(t, err)
}
