package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Table describes how rows of an entity are scoped. Every read built from
// Scope carries the tenant and soft-delete predicates explicitly.
type Table struct {
	Name         string
	Alias        string
	TenantScoped bool
	SoftDelete   bool
}

// Col qualifies a column with the table alias.
func (t Table) Col(column string) string {
	if t.Alias == "" {
		return column
	}
	return t.Alias + "." + column
}

// From renders "name alias".
func (t Table) From() string {
	if t.Alias == "" {
		return t.Name
	}
	return t.Name + " " + t.Alias
}

// Scope returns the predicates every visible row must satisfy. For tenant
// scoped tables the tenant id is always $1.
func (t Table) Scope(tenantID uuid.UUID) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if t.TenantScoped {
		args = append(args, tenantID)
		where = append(where, fmt.Sprintf("%s = $%d", t.Col("tenant_id"), len(args)))
	}
	if t.SoftDelete {
		where = append(where, t.Col("deleted_at")+" IS NULL")
	}
	return where, args
}

func (t Table) scopeUnaliased(tenantID uuid.UUID) ([]string, []any) {
	unaliased := t
	unaliased.Alias = ""
	return unaliased.Scope(tenantID)
}

// FilterIDsInTenant returns the ids that exist and are visible in the
// tenant, in input order and without duplicates.
func (t Table) FilterIDsInTenant(ctx context.Context, tx Tx, tenantID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	where, args := t.scopeUnaliased(tenantID)
	args = append(args, ids)
	where = append(where, fmt.Sprintf("id = ANY($%d::uuid[])", len(args)))

	rows, err := tx.Query(ctx, Join("SELECT id FROM "+t.Name, JoinWhere(where...)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]uuid.UUID, 0, len(found))
	for _, id := range ids {
		if _, ok := found[id]; ok {
			out = append(out, id)
			delete(found, id)
		}
	}
	return out, nil
}

// Destroy soft deletes a visible row, or hard deletes it when force is set.
// A hard delete also reaches soft-deleted rows. ErrNotFound is returned when
// nothing matched.
func (t Table) Destroy(ctx context.Context, tx Tx, tenantID, id uuid.UUID, force bool) error {
	var (
		where []string
		args  []any
	)
	if t.TenantScoped {
		args = append(args, tenantID)
		where = append(where, "tenant_id = $1")
	}
	args = append(args, id)
	where = append(where, fmt.Sprintf("id = $%d", len(args)))

	var q string
	if force || !t.SoftDelete {
		q = Join("DELETE FROM "+t.Name, JoinWhere(where...))
	} else {
		where = append(where, "deleted_at IS NULL")
		q = Join("UPDATE "+t.Name+" SET deleted_at = NOW(), updated_at = NOW()", JoinWhere(where...))
	}
	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DestroyMany applies Destroy semantics to a set of ids and returns how many
// rows were affected. Missing ids are skipped.
func (t Table) DestroyMany(ctx context.Context, tx Tx, tenantID uuid.UUID, ids []uuid.UUID, force bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var (
		where []string
		args  []any
	)
	if t.TenantScoped {
		args = append(args, tenantID)
		where = append(where, "tenant_id = $1")
	}
	args = append(args, ids)
	where = append(where, fmt.Sprintf("id = ANY($%d::uuid[])", len(args)))

	var q string
	if force || !t.SoftDelete {
		q = Join("DELETE FROM "+t.Name, JoinWhere(where...))
	} else {
		where = append(where, "deleted_at IS NULL")
		q = Join("UPDATE "+t.Name+" SET deleted_at = NOW(), updated_at = NOW()", JoinWhere(where...))
	}
	tag, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Count counts visible rows matching extra predicates. where/args must have
// been built on top of Scope.
func (t Table) Count(ctx context.Context, tx Tx, where []string, args []any) (int64, error) {
	var count int64
	q := Join("SELECT COUNT(*) FROM "+t.From(), JoinWhere(where...))
	if err := tx.QueryRow(ctx, q, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// AutocompleteItem is the {id, label} pair returned by autocomplete lookups.
type AutocompleteItem struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}

// Autocomplete does a prefix match on labelExpr, ordered alphabetically. A
// non-positive limit returns every match.
func (t Table) Autocomplete(ctx context.Context, tx Tx, tenantID uuid.UUID, labelExpr, query string, limit int) ([]AutocompleteItem, error) {
	where, args := t.Scope(tenantID)
	where, args, err := Apply(where, args, []FieldFilter[string]{
		{Column: "label", Filter: Prefix(query)},
	}, map[string]string{"label": labelExpr})
	if err != nil {
		return nil, err
	}
	q := Join(
		fmt.Sprintf("SELECT %s, %s FROM %s", t.Col("id"), labelExpr, t.From()),
		JoinWhere(where...),
		"ORDER BY "+labelExpr+" ASC",
		FormatLimitOffset(limit, 0),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]AutocompleteItem, 0)
	for rows.Next() {
		var item AutocompleteItem
		if err := rows.Scan(&item.ID, &item.Label); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
