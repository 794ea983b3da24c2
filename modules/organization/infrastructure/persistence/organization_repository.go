package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organization"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

const (
	organizationColumns = `o.id, o.tenant_id, o.name, o.url, o.description, o.parent_url, o.emails, o.phone_numbers,
		o.logo, o.tags, o.twitter, o.linkedin, o.crunchbase, o.employees, o.revenue_range, o.import_hash,
		o.created_by_id, o.updated_by_id, o.created_at, o.updated_at, ` + communityMemberCountExpr
	organizationFindQuery = "SELECT " + organizationColumns + " FROM organizations o"

	organizationVisibleQuery = `SELECT EXISTS (
		SELECT 1 FROM organizations WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	)`
)

type OrganizationRepository struct{}

func NewOrganizationRepository() organization.Repository {
	return &OrganizationRepository{}
}

func (r *OrganizationRepository) Create(ctx context.Context, dto *organization.CreateDTO) (*organization.Organization, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	actor := actorRef(ctx)
	now := time.Now()

	var c repo.Changes
	c.Set("tenant_id", tenantID).
		Set("name", dto.Name).
		Set("url", dto.URL).
		Set("description", dto.Description).
		Set("parent_url", dto.ParentURL).
		Set("emails", dto.Emails).
		Set("phone_numbers", dto.PhoneNumbers).
		Set("logo", dto.Logo).
		Set("tags", dto.Tags).
		Set("twitter", dto.Twitter).
		Set("linkedin", dto.Linkedin).
		Set("crunchbase", dto.Crunchbase).
		Set("employees", dto.Employees).
		Set("revenue_range", dto.RevenueRange).
		Set("import_hash", dto.ImportHash).
		Set("created_by_id", actor).
		Set("updated_by_id", actor).
		Set("created_at", now).
		Set("updated_at", now)

	var id uuid.UUID
	if err := tx.QueryRow(ctx, repo.Insert("organizations", c.Fields(), "id"), c.Values()...).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert organization")
	}
	if err := r.setMembers(ctx, tx, tenantID, id, &dto.Members); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *OrganizationRepository) Update(ctx context.Context, id uuid.UUID, dto *organization.UpdateDTO) (*organization.Organization, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, organizationVisibleQuery, tenantID, id).Scan(&exists); err != nil {
		return nil, errors.Wrap(err, "failed to look up organization")
	}
	if !exists {
		return nil, notFound(id)
	}

	var c repo.Changes
	c.SetIf(dto.Name != nil, "name", dto.Name).
		SetIf(dto.URL != nil, "url", dto.URL).
		SetIf(dto.Description != nil, "description", dto.Description).
		SetIf(dto.ParentURL != nil, "parent_url", dto.ParentURL).
		SetIf(dto.Emails != nil, "emails", dto.Emails).
		SetIf(dto.PhoneNumbers != nil, "phone_numbers", dto.PhoneNumbers).
		SetIf(dto.Logo != nil, "logo", dto.Logo).
		SetIf(dto.Tags != nil, "tags", dto.Tags).
		SetIf(dto.Twitter != nil, "twitter", dto.Twitter).
		SetIf(dto.Linkedin != nil, "linkedin", dto.Linkedin).
		SetIf(dto.Crunchbase != nil, "crunchbase", dto.Crunchbase).
		SetIf(dto.Employees != nil, "employees", dto.Employees).
		SetIf(dto.RevenueRange != nil, "revenue_range", dto.RevenueRange).
		SetIf(dto.ImportHash != nil, "import_hash", dto.ImportHash).
		Set("updated_by_id", actorRef(ctx)).
		Set("updated_at", time.Now())

	n := len(c.Fields())
	q := repo.Update("organizations", c.Fields(),
		fmt.Sprintf("tenant_id = $%d", n+1),
		fmt.Sprintf("id = $%d", n+2),
		"deleted_at IS NULL",
	)
	if _, err := tx.Exec(ctx, q, append(c.Values(), tenantID, id)...); err != nil {
		return nil, errors.Wrap(err, "failed to update organization")
	}
	if err := r.setMembers(ctx, tx, tenantID, id, dto.Members); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *OrganizationRepository) Destroy(ctx context.Context, id uuid.UUID, force bool) error {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return err
	}
	if err := organizationTable.Destroy(ctx, tx, tenantID, id, force); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(id)
		}
		return errors.Wrap(err, "failed to destroy organization")
	}
	return nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	return r.findOne(ctx, "o.id", id)
}

func (r *OrganizationRepository) FindByURL(ctx context.Context, url string) (*organization.Organization, error) {
	return r.findOne(ctx, "o.url", url)
}

func (r *OrganizationRepository) findOne(ctx context.Context, column string, value any) (*organization.Organization, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := organizationTable.Scope(tenantID)
	args = append(args, value)
	where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))

	o, err := scanOrganization(tx.QueryRow(ctx, repo.Join(organizationFindQuery, repo.JoinWhere(where...)), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(value)
		}
		return nil, errors.Wrap(err, "failed to find organization")
	}
	if err := hydrateMembers(ctx, tx, []*organization.Organization{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrganizationRepository) FindAndCountAll(ctx context.Context, params *organization.FindParams) ([]*organization.Organization, int64, error) {
	if params == nil {
		params = &organization.FindParams{}
	}
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, 0, err
	}
	where, args := organizationTable.Scope(tenantID)
	extra, args, err := OrganizationSchema.ParseAndCompile(params.Filter, args)
	if err != nil {
		return nil, 0, err
	}
	where = append(where, extra...)

	count, err := organizationTable.Count(ctx, tx, where, args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count organizations")
	}
	if count == 0 {
		return []*organization.Organization{}, 0, nil
	}

	limit := params.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	q := repo.Join(
		organizationFindQuery,
		repo.JoinWhere(where...),
		OrganizationSchema.OrderSQL(params.OrderBy),
		repo.FormatLimitOffset(limit, params.Offset),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to query organizations")
	}
	orgs, err := collectOrganizations(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := hydrateMembers(ctx, tx, orgs); err != nil {
		return nil, 0, err
	}
	return orgs, count, nil
}

func (r *OrganizationRepository) Count(ctx context.Context, filter map[string]any) (int64, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := organizationTable.Scope(tenantID)
	extra, args, err := OrganizationSchema.ParseAndCompile(filter, args)
	if err != nil {
		return 0, err
	}
	return organizationTable.Count(ctx, tx, append(where, extra...), args)
}

func (r *OrganizationRepository) ImportHashExists(ctx context.Context, importHash string) (bool, error) {
	n, err := r.Count(ctx, map[string]any{"importHash": importHash})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrganizationRepository) FilterIDsInTenant(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	return organizationTable.FilterIDsInTenant(ctx, tx, tenantID, ids)
}

func (r *OrganizationRepository) FindAllAutocomplete(ctx context.Context, query string, limit int) ([]repo.AutocompleteItem, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	return organizationTable.Autocomplete(ctx, tx, tenantID, "o.name", query, limit)
}

func (r *OrganizationRepository) setMembers(ctx context.Context, tx repo.Tx, tenantID, id uuid.UUID, members *[]uuid.UUID) error {
	if members == nil {
		return nil
	}
	inTenant, err := memberTable.FilterIDsInTenant(ctx, tx, tenantID, *members)
	if err != nil {
		return errors.Wrap(err, "failed to scope members")
	}
	if err := repo.ReplaceLinks(ctx, tx, organizationMembers, id, inTenant); err != nil {
		return errors.Wrap(err, "failed to link members")
	}
	return nil
}

func hydrateMembers(ctx context.Context, tx repo.Tx, orgs []*organization.Organization) error {
	if len(orgs) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orgs))
	for i, o := range orgs {
		ids[i] = o.ID
	}
	members, err := repo.LoadIDs(ctx, tx, organizationMembers, ids)
	if err != nil {
		return errors.Wrap(err, "failed to load organization members")
	}
	for _, o := range orgs {
		o.Members = members[o.ID]
		if o.Members == nil {
			o.Members = []uuid.UUID{}
		}
	}
	return nil
}

func scanOrganization(row pgx.Row) (*organization.Organization, error) {
	o := &organization.Organization{}
	err := row.Scan(
		&o.ID, &o.TenantID, &o.Name, &o.URL, &o.Description, &o.ParentURL, &o.Emails, &o.PhoneNumbers,
		&o.Logo, &o.Tags, &o.Twitter, &o.Linkedin, &o.Crunchbase, &o.Employees, &o.RevenueRange, &o.ImportHash,
		&o.CreatedByID, &o.UpdatedByID, &o.CreatedAt, &o.UpdatedAt, &o.CommunityMemberCount,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func collectOrganizations(rows pgx.Rows) ([]*organization.Organization, error) {
	defer rows.Close()
	out := make([]*organization.Organization, 0)
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
