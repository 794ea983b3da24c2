package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/modules/integration/domain/aggregates/integration"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/repo"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const (
	integrationColumns = `i.id, i.tenant_id, i.platform, i.status, i.integration_identifier, i.token,
		i.refresh_token, i.settings, i.created_by_id, i.updated_by_id, i.created_at, i.updated_at`
	integrationFindQuery = "SELECT " + integrationColumns + " FROM integrations i"
)

type IntegrationRepository struct{}

func NewIntegrationRepository() integration.Repository {
	return &IntegrationRepository{}
}

func actorRef(ctx context.Context) *uuid.UUID {
	id := composables.UseUserID(ctx)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func notFound(id any) error {
	return serrors.NotFound("Integration", id).WithCause(integration.ErrNotFound)
}

func settingsOrEmpty(s map[string]any) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return s
}

func (r *IntegrationRepository) Create(ctx context.Context, dto *integration.ConnectDTO) (*integration.Integration, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	status := dto.Status
	if status == "" {
		status = integration.StatusInProgress
	}
	actor := actorRef(ctx)

	var c repo.Changes
	c.Set("tenant_id", tenantID).
		Set("platform", dto.Platform).
		Set("status", status).
		Set("integration_identifier", dto.IntegrationIdentifier).
		Set("token", dto.Token).
		Set("refresh_token", dto.RefreshToken).
		Set("settings", settingsOrEmpty(dto.Settings)).
		Set("created_by_id", actor).
		Set("updated_by_id", actor)

	var id uuid.UUID
	if err := tx.QueryRow(ctx, repo.Insert("integrations", c.Fields(), "id"), c.Values()...).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert integration")
	}
	return r.FindByID(ctx, id)
}

func (r *IntegrationRepository) Reconnect(ctx context.Context, id uuid.UUID, dto *integration.ConnectDTO) (*integration.Integration, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	status := dto.Status
	if status == "" {
		status = integration.StatusInProgress
	}
	var c repo.Changes
	c.Set("status", status).
		Set("token", dto.Token).
		Set("refresh_token", dto.RefreshToken).
		SetIf(dto.IntegrationIdentifier != nil, "integration_identifier", dto.IntegrationIdentifier).
		SetIf(dto.Settings != nil, "settings", dto.Settings).
		Set("updated_by_id", actorRef(ctx)).
		Set("updated_at", time.Now())

	n := len(c.Fields())
	q := repo.Update("integrations", c.Fields(),
		fmt.Sprintf("tenant_id = $%d", n+1),
		fmt.Sprintf("id = $%d", n+2),
		"deleted_at IS NULL",
	)
	tag, err := tx.Exec(ctx, q, append(c.Values(), tenantID, id)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update integration")
	}
	if tag.RowsAffected() == 0 {
		return nil, notFound(id)
	}
	return r.FindByID(ctx, id)
}

func (r *IntegrationRepository) Destroy(ctx context.Context, id uuid.UUID) error {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return err
	}
	if err := integrationTable.Destroy(ctx, tx, tenantID, id, false); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(id)
		}
		return errors.Wrap(err, "failed to destroy integration")
	}
	return nil
}

func (r *IntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	i, err := r.findOne(ctx, "i.id", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, err
	}
	return i, nil
}

func (r *IntegrationRepository) FindByPlatform(ctx context.Context, platform string) (*integration.Integration, error) {
	i, err := r.findOne(ctx, "i.platform", platform)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return i, nil
}

func (r *IntegrationRepository) findOne(ctx context.Context, column string, value any) (*integration.Integration, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := integrationTable.Scope(tenantID)
	args = append(args, value)
	where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))

	i, err := scanIntegration(tx.QueryRow(ctx, repo.Join(integrationFindQuery, repo.JoinWhere(where...)), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to find integration")
	}
	return i, nil
}

func (r *IntegrationRepository) FindAndCountAll(ctx context.Context, params *integration.FindParams) ([]*integration.Integration, int64, error) {
	if params == nil {
		params = &integration.FindParams{}
	}
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := integrationTable.Scope(tenantID)
	extra, args, err := IntegrationSchema.ParseAndCompile(params.Filter, args)
	if err != nil {
		return nil, 0, err
	}
	where = append(where, extra...)

	count, err := integrationTable.Count(ctx, tx, where, args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count integrations")
	}
	if count == 0 {
		return []*integration.Integration{}, 0, nil
	}
	limit := params.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	rows, err := tx.Query(ctx, repo.Join(
		integrationFindQuery,
		repo.JoinWhere(where...),
		IntegrationSchema.OrderSQL(params.OrderBy),
		repo.FormatLimitOffset(limit, params.Offset),
	), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to query integrations")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*integration.Integration, error) {
		return scanIntegration(row)
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to scan integrations")
	}
	return out, count, nil
}

func scanIntegration(row pgx.Row) (*integration.Integration, error) {
	i := &integration.Integration{}
	err := row.Scan(
		&i.ID, &i.TenantID, &i.Platform, &i.Status, &i.IntegrationIdentifier, &i.Token,
		&i.RefreshToken, &i.Settings, &i.CreatedByID, &i.UpdatedByID, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return i, nil
}
