package repo

import (
	"fmt"
	"strings"
)

// Join concatenates non-empty SQL fragments with a single space.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// JoinWhere renders a WHERE clause of ANDed predicates, or "" when empty.
func JoinWhere(expressions ...string) string {
	out := make([]string, 0, len(expressions))
	for _, e := range expressions {
		if e != "" {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(out, " AND ")
}

// FormatLimitOffset renders LIMIT/OFFSET. A non-positive limit means no limit.
func FormatLimitOffset(limit, offset int) string {
	var parts []string
	if limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", limit))
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", offset))
	}
	return strings.Join(parts, " ")
}

// Insert renders "INSERT INTO table (a, b) VALUES ($1, $2) RETURNING ...".
func Insert(tableName string, fields []string, returning ...string) string {
	placeholders := make([]string, len(fields))
	for i := range fields {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(fields, ", "), strings.Join(placeholders, ", "),
	)
	if len(returning) > 0 {
		q += " RETURNING " + strings.Join(returning, ", ")
	}
	return q
}

// Update renders "UPDATE table SET a = $1, b = $2 WHERE ...". Placeholders in
// where must start at len(fields)+1.
func Update(tableName string, fields []string, where ...string) string {
	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = fmt.Sprintf("%s = $%d", f, i+1)
	}
	return Join(
		fmt.Sprintf("UPDATE %s SET %s", tableName, strings.Join(sets, ", ")),
		JoinWhere(where...),
	)
}

// Exists wraps a query into SELECT EXISTS(...).
func Exists(inner string) string {
	return fmt.Sprintf("SELECT EXISTS (%s)", inner)
}

// BatchInsertQueryN appends a multi-row VALUES list to prefix. Every row must
// have the same number of columns.
func BatchInsertQueryN(prefix string, rows [][]interface{}) (string, []interface{}) {
	if len(rows) == 0 {
		return "", nil
	}
	args := make([]interface{}, 0, len(rows)*len(rows[0]))
	values := make([]string, len(rows))
	for i, row := range rows {
		ph := make([]string, len(row))
		for j, v := range row {
			args = append(args, v)
			ph[j] = fmt.Sprintf("$%d", len(args))
		}
		values[i] = "(" + strings.Join(ph, ", ") + ")"
	}
	return prefix + " VALUES " + strings.Join(values, ", "), args
}

// Changes collects column assignments for Insert and Update in call order.
type Changes struct {
	fields []string
	values []any
}

func (c *Changes) Set(field string, value any) *Changes {
	c.fields = append(c.fields, field)
	c.values = append(c.values, value)
	return c
}

// SetIf records the assignment only when ok is true.
func (c *Changes) SetIf(ok bool, field string, value any) *Changes {
	if ok {
		c.Set(field, value)
	}
	return c
}

func (c *Changes) Fields() []string { return c.fields }
func (c *Changes) Values() []any    { return c.values }
func (c *Changes) Empty() bool      { return len(c.fields) == 0 }
