package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/modules/core/domain/entities/tenant"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const tenantFindQuery = `SELECT id, name, plan, created_at, updated_at FROM tenants`

// TenantRepository reads the tenants table directly. Tenants are the
// isolation boundary themselves, so no tenant scope applies.
type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	tenants, err := r.queryTenants(ctx, tenantFindQuery+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, serrors.NotFound("Tenant", id).WithCause(tenant.ErrNotFound)
	}
	return tenants[0], nil
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var id uuid.UUID
	if err := tx.QueryRow(ctx,
		`INSERT INTO tenants (id, name, plan, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		t.ID(), t.Name(), t.Plan(), t.CreatedAt(), t.UpdatedAt(),
	).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert tenant")
	}
	return r.GetByID(ctx, id)
}

func (r *TenantRepository) UpdatePlan(ctx context.Context, id uuid.UUID, plan string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE tenants SET plan = $1, updated_at = NOW() WHERE id = $2`, plan, id)
	if err != nil {
		return errors.Wrap(err, "failed to update tenant plan")
	}
	if tag.RowsAffected() == 0 {
		return serrors.NotFound("Tenant", id).WithCause(tenant.ErrNotFound)
	}
	return nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return r.queryTenants(ctx, tenantFindQuery+" ORDER BY created_at")
}

func (r *TenantRepository) queryTenants(ctx context.Context, query string, args ...any) ([]*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*tenant.Tenant, error) {
		var (
			id                   uuid.UUID
			name, plan           string
			createdAt, updatedAt time.Time
		)
		if err := row.Scan(&id, &name, &plan, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan tenant row")
		}
		return tenant.New(name,
			tenant.WithID(id),
			tenant.WithPlan(plan),
			tenant.WithCreatedAt(createdAt),
			tenant.WithUpdatedAt(updatedAt),
		), nil
	})
}
