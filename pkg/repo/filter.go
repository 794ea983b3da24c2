package repo

import (
	"fmt"
	"strings"
)

// Filter renders a single predicate against a column expression. argIdx is
// the placeholder number of the first value returned by Value.
type Filter interface {
	String(column string, argIdx int) string
	Value() []any
}

// FieldFilter binds a Filter to an entity field.
type FieldFilter[T comparable] struct {
	Column T
	Filter Filter
}

type compareFilter struct {
	op    string
	value any
	cast  string
}

func (f compareFilter) String(column string, argIdx int) string {
	return fmt.Sprintf("%s %s $%d%s", column, f.op, argIdx, f.cast)
}

func (f compareFilter) Value() []any { return []any{f.value} }

func Eq(value any) Filter    { return compareFilter{op: "=", value: value} }
func NotEq(value any) Filter { return compareFilter{op: "<>", value: value} }
func Gt(value any) Filter    { return compareFilter{op: ">", value: value} }
func Gte(value any) Filter   { return compareFilter{op: ">=", value: value} }
func Lt(value any) Filter    { return compareFilter{op: "<", value: value} }
func Lte(value any) Filter   { return compareFilter{op: "<=", value: value} }

// JSONContains matches jsonb columns containing value (already encoded).
func JSONContains(value any) Filter {
	return compareFilter{op: "@>", value: value, cast: "::jsonb"}
}

// HasKey matches jsonb objects holding the given top-level key.
func HasKey(key string) Filter { return compareFilter{op: "?", value: key} }

type inFilter struct {
	values any
	cast   string
}

// In matches any element of a slice. cast is the array type, e.g. "uuid[]".
func In(values any, cast string) Filter { return inFilter{values: values, cast: cast} }

func (f inFilter) String(column string, argIdx int) string {
	if f.cast == "" {
		return fmt.Sprintf("%s = ANY($%d)", column, argIdx)
	}
	return fmt.Sprintf("%s = ANY($%d::%s)", column, argIdx, f.cast)
}

func (f inFilter) Value() []any { return []any{f.values} }

type likeFilter struct {
	pattern string
}

// ILike is a case-insensitive substring match with wildcards escaped.
func ILike(value string) Filter {
	return likeFilter{pattern: "%" + EscapeLike(value) + "%"}
}

// Prefix is a case-insensitive prefix match with wildcards escaped.
func Prefix(value string) Filter {
	return likeFilter{pattern: EscapeLike(value) + "%"}
}

func (f likeFilter) String(column string, argIdx int) string {
	return fmt.Sprintf("%s ILIKE $%d", column, argIdx)
}

func (f likeFilter) Value() []any { return []any{f.pattern} }

type subqueryFilter struct {
	query  string
	values any
}

// InSubquery renders "column IN (query)". query must contain exactly one %d
// verb, which receives the placeholder number of values.
func InSubquery(query string, values any) Filter {
	return subqueryFilter{query: query, values: values}
}

func (f subqueryFilter) String(column string, argIdx int) string {
	return fmt.Sprintf("%s IN (%s)", column, fmt.Sprintf(f.query, argIdx))
}

func (f subqueryFilter) Value() []any { return []any{f.values} }

type nullFilter struct {
	null bool
}

func IsNull(null bool) Filter { return nullFilter{null: null} }

func (f nullFilter) String(column string, _ int) string {
	if f.null {
		return column + " IS NULL"
	}
	return column + " IS NOT NULL"
}

func (f nullFilter) Value() []any { return nil }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so user input matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Apply renders filters onto where/args the way every repository does: the
// next placeholder is always len(args)+1.
func Apply[T comparable](where []string, args []any, filters []FieldFilter[T], columns map[T]string) ([]string, []any, error) {
	for _, f := range filters {
		column, ok := columns[f.Column]
		if !ok {
			return nil, nil, fmt.Errorf("unknown filter field: %v", f.Column)
		}
		where = append(where, f.Filter.String(column, len(args)+1))
		args = append(args, f.Filter.Value()...)
	}
	return where, args, nil
}
