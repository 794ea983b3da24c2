package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/modules/automation/domain/aggregates/automation"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/repo"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const (
	automationColumns = `a.id, a.tenant_id, a.type, a.trigger, a.settings, a.state,
		a.created_by_id, a.updated_by_id, a.created_at, a.updated_at`
	automationFindQuery = "SELECT " + automationColumns + " FROM automations a"
)

type AutomationRepository struct{}

func NewAutomationRepository() automation.Repository {
	return &AutomationRepository{}
}

func actorRef(ctx context.Context) *uuid.UUID {
	id := composables.UseUserID(ctx)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func notFound(id uuid.UUID) error {
	return serrors.NotFound("Automation", id).WithCause(automation.ErrNotFound)
}

func (r *AutomationRepository) Create(ctx context.Context, dto *automation.CreateDTO) (*automation.Automation, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	settings := dto.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	state := dto.State
	if state == "" {
		state = automation.StateActive
	}
	actor := actorRef(ctx)
	now := time.Now()

	var c repo.Changes
	c.Set("tenant_id", tenantID).
		Set("type", string(dto.Type)).
		Set("trigger", string(dto.Trigger)).
		Set("settings", settings).
		Set("state", string(state)).
		Set("created_by_id", actor).
		Set("updated_by_id", actor).
		Set("created_at", now).
		Set("updated_at", now)

	var id uuid.UUID
	if err := tx.QueryRow(ctx, repo.Insert("automations", c.Fields(), "id"), c.Values()...).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert automation")
	}
	return r.FindByID(ctx, id)
}

func (r *AutomationRepository) Update(ctx context.Context, id uuid.UUID, dto *automation.UpdateDTO) (*automation.Automation, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	var c repo.Changes
	if dto.Trigger != nil {
		c.Set("trigger", string(*dto.Trigger))
	}
	if dto.Settings != nil {
		c.Set("settings", *dto.Settings)
	}
	if dto.State != nil {
		c.Set("state", string(*dto.State))
	}
	c.Set("updated_by_id", actorRef(ctx)).
		Set("updated_at", time.Now())

	n := len(c.Fields())
	q := repo.Update("automations", c.Fields(),
		fmt.Sprintf("tenant_id = $%d", n+1),
		fmt.Sprintf("id = $%d", n+2),
		"deleted_at IS NULL",
	)
	tag, err := tx.Exec(ctx, q, append(c.Values(), tenantID, id)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update automation")
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound(id)
	}
	return r.FindByID(ctx, id)
}

func (r *AutomationRepository) Destroy(ctx context.Context, id uuid.UUID) error {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return err
	}
	if err := automationTable.Destroy(ctx, tx, tenantID, id, false); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(id)
		}
		return errors.Wrap(err, "failed to destroy automation")
	}
	return nil
}

func (r *AutomationRepository) FindByID(ctx context.Context, id uuid.UUID) (*automation.Automation, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := automationTable.Scope(tenantID)
	args = append(args, id)
	where = append(where, fmt.Sprintf("a.id = $%d", len(args)))

	a, err := scanAutomation(tx.QueryRow(ctx, repo.Join(automationFindQuery, repo.JoinWhere(where...)), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(err, "failed to find automation")
	}
	return a, nil
}

func (r *AutomationRepository) FindAndCountAll(ctx context.Context, params *automation.FindParams) ([]*automation.Automation, int64, error) {
	if params == nil {
		params = &automation.FindParams{}
	}
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := automationTable.Scope(tenantID)
	extra, args, err := AutomationSchema.ParseAndCompile(params.Filter, args)
	if err != nil {
		return nil, 0, err
	}
	where = append(where, extra...)

	count, err := automationTable.Count(ctx, tx, where, args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count automations")
	}
	if count == 0 {
		return []*automation.Automation{}, 0, nil
	}
	limit := params.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	q := repo.Join(
		automationFindQuery,
		repo.JoinWhere(where...),
		AutomationSchema.OrderSQL(params.OrderBy),
		repo.FormatLimitOffset(limit, params.Offset),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to query automations")
	}
	defer rows.Close()
	out := make([]*automation.Automation, 0)
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan automation")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, count, nil
}

func (r *AutomationRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, nil)
}

func (r *AutomationRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, map[string]any{"state": string(automation.StateActive)})
}

func (r *AutomationRepository) count(ctx context.Context, filter map[string]any) (int64, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := automationTable.Scope(tenantID)
	extra, args, err := AutomationSchema.ParseAndCompile(filter, args)
	if err != nil {
		return 0, err
	}
	count, err := automationTable.Count(ctx, tx, append(where, extra...), args)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count automations")
	}
	return count, nil
}

func scanAutomation(row pgx.Row) (*automation.Automation, error) {
	a := &automation.Automation{}
	var typ, trigger, state string
	err := row.Scan(
		&a.ID, &a.TenantID, &typ, &trigger, &a.Settings, &state,
		&a.CreatedByID, &a.UpdatedByID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Type = automation.Type(typ)
	a.Trigger = automation.Trigger(trigger)
	a.State = automation.State(state)
	return a, nil
}
