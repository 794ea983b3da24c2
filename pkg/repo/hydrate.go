package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ManyToMany describes a join table linking owners to related rows. Only the
// two key columns are ever read, so join attributes never leak.
type ManyToMany struct {
	Table         string
	OwnerColumn   string
	RelatedColumn string
	// OrderBy orders related ids within an owner; defaults to the related
	// column.
	OrderBy string
	// Related is the table the related ids point into. When it soft
	// deletes, links to deleted rows are skipped.
	Related *Table
}

func (rel ManyToMany) loadQuery() string {
	order := rel.OrderBy
	if order == "" {
		order = rel.RelatedColumn
	}
	if rel.Related == nil || !rel.Related.SoftDelete {
		return fmt.Sprintf(
			"SELECT %s, %s FROM %s WHERE %s = ANY($1::uuid[]) ORDER BY %s, %s",
			rel.OwnerColumn, rel.RelatedColumn, rel.Table, rel.OwnerColumn, rel.OwnerColumn, order,
		)
	}
	return fmt.Sprintf(
		"SELECT j.%s, j.%s FROM %s j JOIN %s r ON r.id = j.%s AND r.deleted_at IS NULL WHERE j.%s = ANY($1::uuid[]) ORDER BY j.%s, j.%s",
		rel.OwnerColumn, rel.RelatedColumn, rel.Table, rel.Related.Name, rel.RelatedColumn,
		rel.OwnerColumn, rel.OwnerColumn, order,
	)
}

// LoadIDs loads related ids for a page of owners with one query.
func LoadIDs(ctx context.Context, tx Tx, rel ManyToMany, owners []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(owners))
	if len(owners) == 0 {
		return out, nil
	}
	rows, err := tx.Query(ctx, rel.loadQuery(), owners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var owner, related uuid.UUID
		if err := rows.Scan(&owner, &related); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], related)
	}
	return out, rows.Err()
}

// LoadRows runs a batched relation query whose only parameter is the owner
// id array ($1) and groups the scanned rows by owner. The query decides the
// order within an owner.
func LoadRows[T any](
	ctx context.Context,
	tx Tx,
	query string,
	owners []uuid.UUID,
	scan func(pgx.Rows) (uuid.UUID, T, error),
) (map[uuid.UUID][]T, error) {
	out := make(map[uuid.UUID][]T, len(owners))
	if len(owners) == 0 {
		return out, nil
	}
	rows, err := tx.Query(ctx, query, owners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		owner, item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], item)
	}
	return out, rows.Err()
}

// ReplaceLinks rewrites the links of one owner: existing rows are removed and
// the given related ids inserted.
func ReplaceLinks(ctx context.Context, tx Tx, rel ManyToMany, owner uuid.UUID, related []uuid.UUID) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", rel.Table, rel.OwnerColumn), owner); err != nil {
		return err
	}
	return AddLinks(ctx, tx, rel, owner, related)
}

// AddLinks inserts links, ignoring ones that already exist.
func AddLinks(ctx context.Context, tx Tx, rel ManyToMany, owner uuid.UUID, related []uuid.UUID) error {
	if len(related) == 0 {
		return nil
	}
	values := make([][]interface{}, 0, len(related))
	for _, id := range related {
		values = append(values, []interface{}{owner, id})
	}
	q, args := BatchInsertQueryN(
		fmt.Sprintf("INSERT INTO %s (%s, %s)", rel.Table, rel.OwnerColumn, rel.RelatedColumn),
		values,
	)
	_, err := tx.Exec(ctx, q+" ON CONFLICT DO NOTHING", args...)
	return err
}

// RemoveLinks deletes the given links of one owner.
func RemoveLinks(ctx context.Context, tx Tx, rel ManyToMany, owner uuid.UUID, related []uuid.UUID) error {
	if len(related) == 0 {
		return nil
	}
	_, err := tx.Exec(
		ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = $1 AND %s = ANY($2::uuid[])", rel.Table, rel.OwnerColumn, rel.RelatedColumn),
		owner, related,
	)
	return err
}
