package repo

import (
	"fmt"
	"strings"
)

type SortByField[T comparable] struct {
	Field     T
	Ascending bool
	NullsLast bool
}

type SortBy[T comparable] struct {
	Fields []SortByField[T]
}

// ToSQL renders ORDER BY using mapping to resolve fields to columns or
// expressions. Unmapped fields are skipped.
func (s SortBy[T]) ToSQL(mapping map[T]string) string {
	parts := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		column, ok := mapping[f.Field]
		if !ok {
			continue
		}
		dir := "DESC"
		if f.Ascending {
			dir = "ASC"
		}
		part := fmt.Sprintf("%s %s", column, dir)
		if f.NullsLast {
			part += " NULLS LAST"
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// ParseOrderBy reads tokens such as "joinedAt_DESC" or "score_ASC,name_ASC".
// Tokens naming unknown fields are dropped; if nothing remains the schema
// default is returned.
func (s Schema) ParseOrderBy(raw string) SortBy[string] {
	var out SortBy[string]
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		field, dir := token, "ASC"
		if i := strings.LastIndex(token, "_"); i > 0 {
			switch strings.ToUpper(token[i+1:]) {
			case "ASC", "DESC":
				field, dir = token[:i], strings.ToUpper(token[i+1:])
			}
		}
		if _, ok := s.Sort[field]; !ok {
			continue
		}
		out.Fields = append(out.Fields, SortByField[string]{
			Field:     field,
			Ascending: dir == "ASC",
			NullsLast: true,
		})
	}
	if len(out.Fields) == 0 {
		return s.DefaultSort
	}
	return out
}

// OrderSQL resolves a raw orderBy to an ORDER BY clause.
func (s Schema) OrderSQL(raw string) string {
	return s.ParseOrderBy(raw).ToSQL(s.Sort)
}
