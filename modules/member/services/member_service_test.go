package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/modules/member/domain/aggregates/member"
	"github.com/crowd-dev/crowd-api/modules/member/permissions"
	"github.com/crowd-dev/crowd-api/modules/member/services"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/repo"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type openTx struct{ pgx.Tx }

type txStub struct{ calls int }

func (s *txStub) InTx(ctx context.Context, fn func(context.Context) error) error {
	s.calls++
	return fn(composables.WithTx(ctx, openTx{}))
}

type checkerStub struct {
	denied map[string]bool
	asked  []string
}

func (c *checkerStub) ValidateHas(_ context.Context, permission string) error {
	c.asked = append(c.asked, permission)
	if c.denied[permission] {
		return serrors.Forbidden("permissionDenied", "permission denied")
	}
	return nil
}

type repoStub struct {
	member.Repository
	members   map[uuid.UUID]*member.Member
	createErr error
	lastFind  *member.FindParams
	toMerge   map[uuid.UUID][]uuid.UUID
	outsideTx []string
}

func (r *repoStub) seen(ctx context.Context, op string) {
	if !composables.HasTx(ctx) {
		r.outsideTx = append(r.outsideTx, op)
	}
}

func newRepoStub() *repoStub {
	return &repoStub{members: map[uuid.UUID]*member.Member{}, toMerge: map[uuid.UUID][]uuid.UUID{}}
}

func (r *repoStub) Create(_ context.Context, dto *member.CreateDTO) (*member.Member, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	m := &member.Member{ID: uuid.New(), Username: member.NormalizeUsername(dto.Username)}
	r.members[m.ID] = m
	return m, nil
}

func (r *repoStub) FindByID(ctx context.Context, id uuid.UUID, _ bool) (*member.Member, error) {
	r.seen(ctx, "FindByID")
	m, ok := r.members[id]
	if !ok {
		return nil, serrors.NotFound("Member", id)
	}
	return m, nil
}

func (r *repoStub) FindAndCountAll(ctx context.Context, params *member.FindParams) ([]*member.Member, int64, error) {
	r.seen(ctx, "FindAndCountAll")
	r.lastFind = params
	return []*member.Member{}, 0, nil
}

func (r *repoStub) FilterIDsInTenant(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.seen(ctx, "FilterIDsInTenant")
	out := []uuid.UUID{}
	for _, id := range ids {
		if _, ok := r.members[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *repoStub) AddToMerge(_ context.Context, id uuid.UUID, others ...uuid.UUID) error {
	r.toMerge[id] = append(r.toMerge[id], others...)
	return nil
}

func (r *repoStub) FindAllAutocomplete(ctx context.Context, _ string, _ int) ([]repo.AutocompleteItem, error) {
	r.seen(ctx, "FindAllAutocomplete")
	return []repo.AutocompleteItem{}, nil
}

func (r *repoStub) Count(ctx context.Context, _ map[string]any) (int64, error) {
	r.seen(ctx, "Count")
	return int64(len(r.members)), nil
}

func (r *repoStub) MemberExists(ctx context.Context, _, _ string) (bool, error) {
	r.seen(ctx, "MemberExists")
	return false, nil
}

func (r *repoStub) FindMembersWithMergeSuggestions(ctx context.Context, _, _ int) ([]member.MergeSuggestion, error) {
	r.seen(ctx, "FindMembersWithMergeSuggestions")
	return nil, nil
}

func TestMemberService_Create(t *testing.T) {
	t.Parallel()

	t.Run("Runs_In_One_Transaction", func(t *testing.T) {
		tx := &txStub{}
		checker := &checkerStub{}
		svc := services.NewMemberService(newRepoStub(), checker, tx, true)

		m, err := svc.Create(context.Background(), &member.CreateDTO{Username: map[string]string{"github": "joan"}})
		require.NoError(t, err)
		assert.Equal(t, "joan", m.Username[member.CrowdUsername])
		assert.Equal(t, 1, tx.calls)
		assert.Equal(t, []string{permissions.MemberCreate}, checker.asked)
	})

	t.Run("Permission_Checked_First", func(t *testing.T) {
		tx := &txStub{}
		checker := &checkerStub{denied: map[string]bool{permissions.MemberCreate: true}}
		svc := services.NewMemberService(newRepoStub(), checker, tx, true)

		_, err := svc.Create(context.Background(), &member.CreateDTO{})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindForbidden))
		assert.Zero(t, tx.calls)
	})

	t.Run("Unique_Violation_Becomes_Conflict", func(t *testing.T) {
		r := newRepoStub()
		r.createErr = &pgconn.PgError{Code: "23505", Detail: "Key (tenant_id, import_hash)=(x, y) already exists."}
		svc := services.NewMemberService(r, &checkerStub{}, &txStub{}, true)

		_, err := svc.Create(context.Background(), &member.CreateDTO{})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindConflict))

		var be *serrors.BaseError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "Errors.Member.AlreadyExists", be.LocaleKey)
		assert.Equal(t, "import_hash", be.TemplateData["Field"])
	})
}

func TestMemberService_PopulateRelations(t *testing.T) {
	t.Parallel()

	r := newRepoStub()
	svc := services.NewMemberService(r, &checkerStub{}, &txStub{}, true)

	_, _, err := svc.FindAndCountAll(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, r.lastFind.PopulateRelations)

	ctx := composables.WithPopulateRelations(context.Background(), false)
	_, _, err = svc.FindAndCountAll(ctx, &member.FindParams{Limit: 10})
	require.NoError(t, err)
	assert.False(t, r.lastFind.PopulateRelations)
	assert.Equal(t, 10, r.lastFind.Limit)
}

func TestMemberService_MergeEdgesAreSanitized(t *testing.T) {
	t.Parallel()

	r := newRepoStub()
	svc := services.NewMemberService(r, &checkerStub{}, &txStub{}, true)
	ctx := context.Background()

	a, err := svc.Create(ctx, &member.CreateDTO{Username: map[string]string{"github": "a"}})
	require.NoError(t, err)
	b, err := svc.Create(ctx, &member.CreateDTO{Username: map[string]string{"github": "b"}})
	require.NoError(t, err)

	foreign := uuid.New()
	require.NoError(t, svc.AddToMerge(ctx, a.ID, []uuid.UUID{foreign, b.ID}))
	assert.Equal(t, []uuid.UUID{b.ID}, r.toMerge[a.ID])
}

func TestMemberService_ReadsRunInTransaction(t *testing.T) {
	t.Parallel()

	r := newRepoStub()
	tx := &txStub{}
	svc := services.NewMemberService(r, &checkerStub{}, tx, false)
	ctx := context.Background()

	m, err := svc.Create(ctx, &member.CreateDTO{Username: map[string]string{"github": "joan"}})
	require.NoError(t, err)
	tx.calls = 0

	_, err = svc.FindByID(ctx, m.ID)
	require.NoError(t, err)
	_, _, err = svc.FindAndCountAll(ctx, nil)
	require.NoError(t, err)
	_, err = svc.Count(ctx, nil)
	require.NoError(t, err)
	_, err = svc.FindAllAutocomplete(ctx, "jo", 5)
	require.NoError(t, err)
	_, err = svc.MemberExists(ctx, "joan", "github")
	require.NoError(t, err)
	_, err = svc.FindMembersWithMergeSuggestions(ctx, 10, 0)
	require.NoError(t, err)
	_, err = svc.FilterIDsInTenant(ctx, []uuid.UUID{m.ID})
	require.NoError(t, err)

	assert.Empty(t, r.outsideTx)
	assert.Equal(t, 7, tx.calls)
}
