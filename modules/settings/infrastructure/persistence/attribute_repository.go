package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/modules/settings/domain/aggregates/attribute"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/repo"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const (
	settingColumns = `s.id, s.tenant_id, s.type, s.name, s.label, s.can_delete, s.show, s.options,
		s.created_by_id, s.updated_by_id, s.created_at, s.updated_at`
	settingFindQuery = "SELECT " + settingColumns + " FROM member_attribute_settings s"
)

type AttributeRepository struct{}

func NewAttributeRepository() attribute.Repository {
	return &AttributeRepository{}
}

func actorRef(ctx context.Context) *uuid.UUID {
	id := composables.UseUserID(ctx)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func notFound(id uuid.UUID) error {
	return serrors.NotFound("MemberAttributeSettings", id).WithCause(attribute.ErrNotFound)
}

func orTrue(b *bool) bool {
	return b == nil || *b
}

func (r *AttributeRepository) Create(ctx context.Context, dto *attribute.CreateDTO) (*attribute.Setting, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	options := dto.Options
	if options == nil {
		options = []string{}
	}
	actor := actorRef(ctx)
	now := time.Now()

	var c repo.Changes
	c.Set("tenant_id", tenantID).
		Set("type", string(dto.Type)).
		Set("name", dto.Name).
		Set("label", dto.Label).
		Set("can_delete", orTrue(dto.CanDelete)).
		Set("show", orTrue(dto.Show)).
		Set("options", options).
		Set("created_by_id", actor).
		Set("updated_by_id", actor).
		Set("created_at", now).
		Set("updated_at", now)

	var id uuid.UUID
	if err := tx.QueryRow(ctx, repo.Insert("member_attribute_settings", c.Fields(), "id"), c.Values()...).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert member attribute setting")
	}
	return r.FindByID(ctx, id)
}

// Update writes label, show and options. Type, name and canDelete are
// guarded by the service and never written here.
func (r *AttributeRepository) Update(ctx context.Context, id uuid.UUID, dto *attribute.UpdateDTO) (*attribute.Setting, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	var c repo.Changes
	c.SetIf(dto.Label != nil, "label", dto.Label).
		SetIf(dto.Show != nil, "show", dto.Show).
		SetIf(dto.Options != nil, "options", dto.Options).
		Set("updated_by_id", actorRef(ctx)).
		Set("updated_at", time.Now())

	n := len(c.Fields())
	q := repo.Update("member_attribute_settings", c.Fields(),
		fmt.Sprintf("tenant_id = $%d", n+1),
		fmt.Sprintf("id = $%d", n+2),
		"deleted_at IS NULL",
	)
	tag, err := tx.Exec(ctx, q, append(c.Values(), tenantID, id)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update member attribute setting")
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound(id)
	}
	return r.FindByID(ctx, id)
}

// Destroy soft deletes the setting, or removes the row when force is set.
func (r *AttributeRepository) Destroy(ctx context.Context, id uuid.UUID, force bool) error {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return err
	}
	if err := settingsTable.Destroy(ctx, tx, tenantID, id, force); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(id)
		}
		return errors.Wrap(err, "failed to destroy member attribute setting")
	}
	return nil
}

func (r *AttributeRepository) FindByID(ctx context.Context, id uuid.UUID) (*attribute.Setting, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := settingsTable.Scope(tenantID)
	args = append(args, id)
	where = append(where, fmt.Sprintf("s.id = $%d", len(args)))

	s, err := scanSetting(tx.QueryRow(ctx, repo.Join(settingFindQuery, repo.JoinWhere(where...)), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(err, "failed to find member attribute setting")
	}
	return s, nil
}

// FindByNames returns the settings whose name is in names, ordered by name.
func (r *AttributeRepository) FindByNames(ctx context.Context, names []string) ([]*attribute.Setting, error) {
	if len(names) == 0 {
		return []*attribute.Setting{}, nil
	}
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := settingsTable.Scope(tenantID)
	args = append(args, names)
	where = append(where, fmt.Sprintf("s.name = ANY($%d::text[])", len(args)))

	rows, err := tx.Query(ctx, repo.Join(settingFindQuery, repo.JoinWhere(where...), "ORDER BY s.name"), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query member attribute settings")
	}
	return collectSettings(rows)
}

func (r *AttributeRepository) FindAndCountAll(ctx context.Context, params *attribute.FindParams) ([]*attribute.Setting, int64, error) {
	if params == nil {
		params = &attribute.FindParams{}
	}
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := settingsTable.Scope(tenantID)
	extra, args, err := AttributeSchema.ParseAndCompile(params.Filter, args)
	if err != nil {
		return nil, 0, err
	}
	where = append(where, extra...)

	count, err := settingsTable.Count(ctx, tx, where, args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count member attribute settings")
	}
	if count == 0 {
		return []*attribute.Setting{}, 0, nil
	}
	limit := params.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	q := repo.Join(
		settingFindQuery,
		repo.JoinWhere(where...),
		AttributeSchema.OrderSQL(params.OrderBy),
		repo.FormatLimitOffset(limit, params.Offset),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to query member attribute settings")
	}
	settings, err := collectSettings(rows)
	if err != nil {
		return nil, 0, err
	}
	return settings, count, nil
}

func scanSetting(row pgx.Row) (*attribute.Setting, error) {
	s := &attribute.Setting{}
	var typ string
	err := row.Scan(
		&s.ID, &s.TenantID, &typ, &s.Name, &s.Label, &s.CanDelete, &s.Show, &s.Options,
		&s.CreatedByID, &s.UpdatedByID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Type = attribute.Type(typ)
	return s, nil
}

func collectSettings(rows pgx.Rows) ([]*attribute.Setting, error) {
	defer rows.Close()
	out := make([]*attribute.Setting, 0)
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
