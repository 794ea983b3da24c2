package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organizationcache"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

const (
	cacheColumns = `id, name, url, description, parent_url, emails, phone_numbers, logo, tags,
		twitter, linkedin, crunchbase, employees, revenue_range, created_at, updated_at`
	cacheFindQuery = "SELECT " + cacheColumns + " FROM organization_caches"
)

// OrganizationCacheRepository stores enrichment results for every tenant.
// Reads and writes ignore the tenant in context.
type OrganizationCacheRepository struct{}

func NewOrganizationCacheRepository() organizationcache.Repository {
	return &OrganizationCacheRepository{}
}

func cacheChanges(e *organizationcache.Entry) *repo.Changes {
	c := &repo.Changes{}
	c.Set("name", e.Name).
		Set("url", e.URL).
		Set("description", e.Description).
		Set("parent_url", e.ParentURL).
		Set("emails", e.Emails).
		Set("phone_numbers", e.PhoneNumbers).
		Set("logo", e.Logo).
		Set("tags", e.Tags).
		Set("twitter", e.Twitter).
		Set("linkedin", e.Linkedin).
		Set("crunchbase", e.Crunchbase).
		Set("employees", e.Employees).
		Set("revenue_range", e.RevenueRange)
	return c
}

// Create inserts e. A concurrent writer may have cached the url first, in
// which case the existing entry is returned.
func (r *OrganizationCacheRepository) Create(ctx context.Context, e *organizationcache.Entry) (*organizationcache.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	c := cacheChanges(e)
	q := repo.Insert("organization_caches", c.Fields()) +
		" ON CONFLICT (url) WHERE deleted_at IS NULL DO NOTHING RETURNING id"

	var id uuid.UUID
	if err := tx.QueryRow(ctx, q, c.Values()...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.FindByURL(ctx, e.URL)
		}
		return nil, errors.Wrap(err, "failed to insert organization cache")
	}
	return r.FindByID(ctx, id)
}

func (r *OrganizationCacheRepository) Update(ctx context.Context, id uuid.UUID, e *organizationcache.Entry) (*organizationcache.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	c := cacheChanges(e).Set("updated_at", time.Now())
	n := len(c.Fields())
	q := repo.Update("organization_caches", c.Fields(), fmt.Sprintf("id = $%d", n+1), "deleted_at IS NULL")
	tag, err := tx.Exec(ctx, q, append(c.Values(), id)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update organization cache")
	}
	if tag.RowsAffected() == 0 {
		return nil, cacheNotFound(id)
	}
	return r.FindByID(ctx, id)
}

func (r *OrganizationCacheRepository) Destroy(ctx context.Context, id uuid.UUID, force bool) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if err := cacheTable.Destroy(ctx, tx, uuid.Nil, id, force); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return cacheNotFound(id)
		}
		return errors.Wrap(err, "failed to destroy organization cache")
	}
	return nil
}

func (r *OrganizationCacheRepository) FindByID(ctx context.Context, id uuid.UUID) (*organizationcache.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q := repo.Join(cacheFindQuery, repo.JoinWhere("id = $1", "deleted_at IS NULL"))
	e, err := scanCacheEntry(tx.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cacheNotFound(id)
		}
		return nil, errors.Wrap(err, "failed to find organization cache")
	}
	return e, nil
}

func (r *OrganizationCacheRepository) FindByURL(ctx context.Context, url string) (*organizationcache.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q := repo.Join(cacheFindQuery, repo.JoinWhere("url = $1", "deleted_at IS NULL"))
	e, err := scanCacheEntry(tx.QueryRow(ctx, q, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find organization cache by url")
	}
	return e, nil
}

func scanCacheEntry(row pgx.Row) (*organizationcache.Entry, error) {
	e := &organizationcache.Entry{}
	err := row.Scan(
		&e.ID, &e.Name, &e.URL, &e.Description, &e.ParentURL, &e.Emails, &e.PhoneNumbers, &e.Logo, &e.Tags,
		&e.Twitter, &e.Linkedin, &e.Crunchbase, &e.Employees, &e.RevenueRange, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
