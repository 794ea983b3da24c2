package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/modules/member/domain/aggregates/member"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

const (
	memberColumns = `m.id, m.tenant_id, m.username, m.info, m.crowd_info, m.type, m.email, m.score, m.bio,
		m.location, m.signals, m.reach, m.joined_at, m.import_hash, m.created_by_id, m.updated_by_id,
		m.created_at, m.updated_at`
	memberFindQuery = "SELECT " + memberColumns + " FROM members m"

	memberExistsQuery = `SELECT EXISTS (
		SELECT 1 FROM members WHERE tenant_id = $1 AND deleted_at IS NULL AND username->>$2 = $3
	)`
	memberVisibleQuery = `SELECT EXISTS (
		SELECT 1 FROM members WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	)`
	memberLinkActivitiesQuery = `UPDATE activities SET member_id = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = ANY($3::uuid[]) AND deleted_at IS NULL`
	memberEvictToMergeQuery = `DELETE FROM member_to_merge
		WHERE (member_id = $1 AND to_merge_id = ANY($2::uuid[]))
		   OR (to_merge_id = $1 AND member_id = ANY($2::uuid[]))`
	memberMergeSuggestionsQuery = `SELECT tm.member_id, tm.to_merge_id FROM member_to_merge tm
		JOIN members m ON m.id = tm.member_id AND m.tenant_id = $1 AND m.deleted_at IS NULL
		JOIN members o ON o.id = tm.to_merge_id AND o.tenant_id = $1 AND o.deleted_at IS NULL
		WHERE tm.member_id < tm.to_merge_id OR NOT EXISTS (
			SELECT 1 FROM member_to_merge r WHERE r.member_id = tm.to_merge_id AND r.to_merge_id = tm.member_id
		)
		ORDER BY tm.created_at DESC, tm.member_id`

	memberTagsQuery = `SELECT mt.member_id, t.id, t.name FROM member_tags mt
		JOIN tags t ON t.id = mt.tag_id AND t.deleted_at IS NULL
		WHERE mt.member_id = ANY($1::uuid[])
		ORDER BY mt.member_id, mt.created_at`
	memberOrganizationsQuery = `SELECT mo.member_id, o.id, o.name, o.url FROM member_organizations mo
		JOIN organizations o ON o.id = mo.organization_id AND o.deleted_at IS NULL
		WHERE mo.member_id = ANY($1::uuid[])
		ORDER BY mo.member_id, mo.created_at`
	memberActivitiesQuery = `SELECT a.member_id, a.id, a.type, a.platform, a.timestamp, a.title, a.body, a.url, a.score
		FROM activities a
		WHERE a.member_id = ANY($1::uuid[]) AND a.deleted_at IS NULL
		ORDER BY a.member_id, a.timestamp DESC`
)

type MemberRepository struct{}

func NewMemberRepository() member.Repository {
	return &MemberRepository{}
}

// relationSet holds relation ids to write. A nil field leaves the stored
// links untouched.
type relationSet struct {
	Activities    *[]uuid.UUID
	Tags          *[]uuid.UUID
	Organizations *[]uuid.UUID
	ToMerge       *[]uuid.UUID
	NoMerge       *[]uuid.UUID
}

func (r *MemberRepository) Create(ctx context.Context, dto *member.CreateDTO) (*member.Member, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}

	joinedAt := time.Now()
	if dto.JoinedAt != nil {
		joinedAt = *dto.JoinedAt
	}
	reach := dto.Reach
	if reach == nil {
		reach = map[string]int{"total": -1}
	}
	username := member.NormalizeUsername(dto.Username)
	if username == nil {
		username = map[string]string{}
	}
	actor := actorRef(ctx)

	var c repo.Changes
	c.Set("tenant_id", tenantID).
		Set("username", username).
		Set("info", jsonObject(dto.Info)).
		Set("crowd_info", jsonObject(dto.CrowdInfo)).
		Set("type", dto.Type).
		Set("email", dto.Email).
		Set("score", dto.Score).
		Set("bio", dto.Bio).
		Set("location", dto.Location).
		Set("signals", dto.Signals).
		Set("reach", reach).
		Set("joined_at", joinedAt).
		Set("import_hash", dto.ImportHash).
		Set("created_by_id", actor).
		Set("updated_by_id", actor)

	var id uuid.UUID
	if err := tx.QueryRow(ctx, repo.Insert("members", c.Fields(), "id"), c.Values()...).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert member")
	}

	if err := r.setRelations(ctx, tx, tenantID, id, relationSet{
		Activities:    &dto.Activities,
		Tags:          &dto.Tags,
		Organizations: &dto.Organizations,
		ToMerge:       &dto.ToMerge,
		NoMerge:       &dto.NoMerge,
	}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id, true)
}

func (r *MemberRepository) Update(ctx context.Context, id uuid.UUID, dto *member.UpdateDTO) (*member.Member, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.ensureVisible(ctx, tx, tenantID, id); err != nil {
		return nil, err
	}

	var c repo.Changes
	c.SetIf(dto.Username != nil, "username", member.NormalizeUsername(dto.Username)).
		SetIf(dto.Info != nil, "info", dto.Info).
		SetIf(dto.CrowdInfo != nil, "crowd_info", dto.CrowdInfo).
		SetIf(dto.Type != nil, "type", dto.Type).
		SetIf(dto.Email != nil, "email", dto.Email).
		SetIf(dto.Score != nil, "score", dto.Score).
		SetIf(dto.Bio != nil, "bio", dto.Bio).
		SetIf(dto.Location != nil, "location", dto.Location).
		SetIf(dto.Signals != nil, "signals", dto.Signals).
		SetIf(dto.Reach != nil, "reach", dto.Reach).
		SetIf(dto.JoinedAt != nil, "joined_at", dto.JoinedAt).
		SetIf(dto.ImportHash != nil, "import_hash", dto.ImportHash).
		Set("updated_by_id", actorRef(ctx)).
		Set("updated_at", time.Now())

	n := len(c.Fields())
	q := repo.Update("members", c.Fields(),
		fmt.Sprintf("tenant_id = $%d", n+1),
		fmt.Sprintf("id = $%d", n+2),
		"deleted_at IS NULL",
	)
	if _, err := tx.Exec(ctx, q, append(c.Values(), tenantID, id)...); err != nil {
		return nil, errors.Wrap(err, "failed to update member")
	}

	if err := r.setRelations(ctx, tx, tenantID, id, relationSet{
		Activities:    dto.Activities,
		Tags:          dto.Tags,
		Organizations: dto.Organizations,
		ToMerge:       dto.ToMerge,
		NoMerge:       dto.NoMerge,
	}); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id, true)
}

func (r *MemberRepository) Destroy(ctx context.Context, id uuid.UUID, force bool) error {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return err
	}
	if err := memberTable.Destroy(ctx, tx, tenantID, id, force); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(id)
		}
		return errors.Wrap(err, "failed to destroy member")
	}
	return nil
}

func (r *MemberRepository) DestroyBulk(ctx context.Context, ids []uuid.UUID, force bool) (int64, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return 0, err
	}
	n, err := memberTable.DestroyMany(ctx, tx, tenantID, ids, force)
	if err != nil {
		return 0, errors.Wrap(err, "failed to destroy members")
	}
	return n, nil
}

func (r *MemberRepository) FindByID(ctx context.Context, id uuid.UUID, populate bool) (*member.Member, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	where, args := memberTable.Scope(tenantID)
	args = append(args, id)
	where = append(where, fmt.Sprintf("m.id = $%d", len(args)))

	m, err := scanMember(tx.QueryRow(ctx, repo.Join(memberFindQuery, repo.JoinWhere(where...)), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(err, "failed to find member")
	}
	if err := r.hydrate(ctx, tx, []*member.Member{m}, populate); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MemberRepository) FindAndCountAll(ctx context.Context, params *member.FindParams) ([]*member.Member, int64, error) {
	if params == nil {
		params = &member.FindParams{}
	}
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, 0, err
	}

	where, args := memberTable.Scope(tenantID)
	extra, args, err := MemberSchema.ParseAndCompile(params.Filter, args)
	if err != nil {
		return nil, 0, err
	}
	where = append(where, extra...)

	count, err := memberTable.Count(ctx, tx, where, args)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count members")
	}
	if count == 0 {
		return []*member.Member{}, 0, nil
	}

	limit := params.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	q := repo.Join(
		memberFindQuery,
		repo.JoinWhere(where...),
		MemberSchema.OrderSQL(params.OrderBy),
		repo.FormatLimitOffset(limit, params.Offset),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to query members")
	}
	members, err := collectMembers(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.hydrate(ctx, tx, members, params.PopulateRelations); err != nil {
		return nil, 0, err
	}
	return members, count, nil
}

func (r *MemberRepository) Count(ctx context.Context, filter map[string]any) (int64, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return 0, err
	}
	where, args := memberTable.Scope(tenantID)
	extra, args, err := MemberSchema.ParseAndCompile(filter, args)
	if err != nil {
		return 0, err
	}
	return memberTable.Count(ctx, tx, append(where, extra...), args)
}

func (r *MemberRepository) FilterIDsInTenant(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	return memberTable.FilterIDsInTenant(ctx, tx, tenantID, ids)
}

func (r *MemberRepository) FindAllAutocomplete(ctx context.Context, query string, limit int) ([]repo.AutocompleteItem, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	return memberTable.Autocomplete(ctx, tx, tenantID, "m.username->>'crowdUsername'", query, limit)
}

func (r *MemberRepository) MemberExists(ctx context.Context, username, platform string) (bool, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, memberExistsQuery, tenantID, platform, username).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check member existence")
	}
	return exists, nil
}

func (r *MemberRepository) AddToMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error {
	return r.withVisible(ctx, id, func(tx repo.Tx) error {
		return repo.AddLinks(ctx, tx, memberToMerge, id, without(others, id))
	})
}

func (r *MemberRepository) RemoveToMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error {
	return r.withVisible(ctx, id, func(tx repo.Tx) error {
		return repo.RemoveLinks(ctx, tx, memberToMerge, id, others)
	})
}

// AddNoMerge records that the members are distinct and drops any pending
// merge suggestion between them in either direction.
func (r *MemberRepository) AddNoMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error {
	return r.withVisible(ctx, id, func(tx repo.Tx) error {
		return addNoMerge(ctx, tx, id, without(others, id))
	})
}

func (r *MemberRepository) RemoveNoMerge(ctx context.Context, id uuid.UUID, others ...uuid.UUID) error {
	return r.withVisible(ctx, id, func(tx repo.Tx) error {
		return repo.RemoveLinks(ctx, tx, memberNoMerge, id, others)
	})
}

func (r *MemberRepository) FindMembersWithMergeSuggestions(ctx context.Context, limit, offset int) ([]member.MergeSuggestion, error) {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, repo.Join(memberMergeSuggestionsQuery, repo.FormatLimitOffset(limit, offset)), tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query merge suggestions")
	}
	defer rows.Close()

	out := make([]member.MergeSuggestion, 0)
	for rows.Next() {
		var s member.MergeSuggestion
		if err := rows.Scan(&s.Members[0], &s.Members[1]); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *MemberRepository) withVisible(ctx context.Context, id uuid.UUID, fn func(tx repo.Tx) error) error {
	tx, tenantID, err := composables.UseTenantTx(ctx)
	if err != nil {
		return err
	}
	if err := r.ensureVisible(ctx, tx, tenantID, id); err != nil {
		return err
	}
	return fn(tx)
}

func (r *MemberRepository) ensureVisible(ctx context.Context, tx repo.Tx, tenantID, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, memberVisibleQuery, tenantID, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "failed to look up member")
	}
	if !exists {
		return notFound(id)
	}
	return nil
}

func (r *MemberRepository) setRelations(ctx context.Context, tx repo.Tx, tenantID, id uuid.UUID, rel relationSet) error {
	if rel.Activities != nil && len(*rel.Activities) > 0 {
		if _, err := tx.Exec(ctx, memberLinkActivitiesQuery, id, tenantID, *rel.Activities); err != nil {
			return errors.Wrap(err, "failed to link activities")
		}
	}
	links := []struct {
		rel repo.ManyToMany
		ids *[]uuid.UUID
	}{
		{memberTags, rel.Tags},
		{memberOrganizations, rel.Organizations},
		{memberToMerge, rel.ToMerge},
	}
	for _, l := range links {
		if l.ids == nil {
			continue
		}
		related, err := l.rel.Related.FilterIDsInTenant(ctx, tx, tenantID, without(*l.ids, id))
		if err != nil {
			return errors.Wrapf(err, "failed to scope %s", l.rel.Table)
		}
		if err := repo.ReplaceLinks(ctx, tx, l.rel, id, related); err != nil {
			return errors.Wrapf(err, "failed to link %s", l.rel.Table)
		}
	}
	if rel.NoMerge != nil {
		if _, err := tx.Exec(ctx, "DELETE FROM member_no_merge WHERE member_id = $1", id); err != nil {
			return errors.Wrap(err, "failed to reset member_no_merge")
		}
		others, err := memberTable.FilterIDsInTenant(ctx, tx, tenantID, without(*rel.NoMerge, id))
		if err != nil {
			return errors.Wrap(err, "failed to scope member_no_merge")
		}
		if err := addNoMerge(ctx, tx, id, others); err != nil {
			return err
		}
	}
	return nil
}

func addNoMerge(ctx context.Context, tx repo.Tx, id uuid.UUID, others []uuid.UUID) error {
	if len(others) == 0 {
		return nil
	}
	if err := repo.AddLinks(ctx, tx, memberNoMerge, id, others); err != nil {
		return errors.Wrap(err, "failed to link member_no_merge")
	}
	if _, err := tx.Exec(ctx, memberEvictToMergeQuery, id, others); err != nil {
		return errors.Wrap(err, "failed to evict merge suggestions")
	}
	return nil
}

// hydrate fills relations for a page of members with one query per
// relation. Without populate only relation ids are loaded.
func (r *MemberRepository) hydrate(ctx context.Context, tx repo.Tx, members []*member.Member, populate bool) error {
	if len(members) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	toMerge, err := repo.LoadIDs(ctx, tx, memberToMerge, ids)
	if err != nil {
		return errors.Wrap(err, "failed to load toMerge")
	}
	noMerge, err := repo.LoadIDs(ctx, tx, memberNoMerge, ids)
	if err != nil {
		return errors.Wrap(err, "failed to load noMerge")
	}
	for _, m := range members {
		m.ToMerge = nonNil(toMerge[m.ID])
		m.NoMerge = nonNil(noMerge[m.ID])
	}

	if !populate {
		tagIDs, err := repo.LoadIDs(ctx, tx, memberTags, ids)
		if err != nil {
			return errors.Wrap(err, "failed to load tag ids")
		}
		orgIDs, err := repo.LoadIDs(ctx, tx, memberOrganizations, ids)
		if err != nil {
			return errors.Wrap(err, "failed to load organization ids")
		}
		for _, m := range members {
			m.Tags = make([]member.TagRef, 0, len(tagIDs[m.ID]))
			for _, id := range tagIDs[m.ID] {
				m.Tags = append(m.Tags, member.TagRef{ID: id})
			}
			m.Organizations = make([]member.OrganizationRef, 0, len(orgIDs[m.ID]))
			for _, id := range orgIDs[m.ID] {
				m.Organizations = append(m.Organizations, member.OrganizationRef{ID: id})
			}
		}
		return nil
	}

	tags, err := repo.LoadRows(ctx, tx, memberTagsQuery, ids, func(rows pgx.Rows) (uuid.UUID, member.TagRef, error) {
		var owner uuid.UUID
		var t member.TagRef
		err := rows.Scan(&owner, &t.ID, &t.Name)
		return owner, t, err
	})
	if err != nil {
		return errors.Wrap(err, "failed to load tags")
	}
	orgs, err := repo.LoadRows(ctx, tx, memberOrganizationsQuery, ids, func(rows pgx.Rows) (uuid.UUID, member.OrganizationRef, error) {
		var owner uuid.UUID
		var o member.OrganizationRef
		err := rows.Scan(&owner, &o.ID, &o.Name, &o.URL)
		return owner, o, err
	})
	if err != nil {
		return errors.Wrap(err, "failed to load organizations")
	}
	activities, err := repo.LoadRows(ctx, tx, memberActivitiesQuery, ids, func(rows pgx.Rows) (uuid.UUID, member.Activity, error) {
		var owner uuid.UUID
		var a member.Activity
		err := rows.Scan(&owner, &a.ID, &a.Type, &a.Platform, &a.Timestamp, &a.Title, &a.Body, &a.URL, &a.Score)
		return owner, a, err
	})
	if err != nil {
		return errors.Wrap(err, "failed to load activities")
	}

	for _, m := range members {
		m.Tags = tags[m.ID]
		if m.Tags == nil {
			m.Tags = []member.TagRef{}
		}
		m.Organizations = orgs[m.ID]
		if m.Organizations == nil {
			m.Organizations = []member.OrganizationRef{}
		}
		m.Activities = activities[m.ID]
		if m.Activities == nil {
			m.Activities = []member.Activity{}
		}
	}
	return nil
}

func scanMember(row pgx.Row) (*member.Member, error) {
	m := &member.Member{}
	err := row.Scan(
		&m.ID, &m.TenantID, &m.Username, &m.Info, &m.CrowdInfo, &m.Type, &m.Email, &m.Score, &m.Bio,
		&m.Location, &m.Signals, &m.Reach, &m.JoinedAt, &m.ImportHash, &m.CreatedByID, &m.UpdatedByID,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func collectMembers(rows pgx.Rows) ([]*member.Member, error) {
	defer rows.Close()
	out := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
