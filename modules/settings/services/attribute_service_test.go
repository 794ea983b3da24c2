package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/modules/settings/domain/aggregates/attribute"
	"github.com/crowd-dev/crowd-api/modules/settings/services"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type openTx struct{ pgx.Tx }

type txStub struct{}

func (txStub) InTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(composables.WithTx(ctx, openTx{}))
}

type memoryRepo struct {
	attribute.Repository
	byID      map[uuid.UUID]*attribute.Setting
	destroyed []uuid.UUID
	updated   []*attribute.UpdateDTO
	forced    []bool
	outsideTx []string
}

func (r *memoryRepo) seen(ctx context.Context, op string) {
	if !composables.HasTx(ctx) {
		r.outsideTx = append(r.outsideTx, op)
	}
}

func (r *memoryRepo) FindAndCountAll(ctx context.Context, _ *attribute.FindParams) ([]*attribute.Setting, int64, error) {
	r.seen(ctx, "FindAndCountAll")
	return nil, int64(len(r.byID)), nil
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: map[uuid.UUID]*attribute.Setting{}}
}

func (r *memoryRepo) Create(_ context.Context, dto *attribute.CreateDTO) (*attribute.Setting, error) {
	s := &attribute.Setting{
		ID:        uuid.New(),
		Type:      dto.Type,
		Name:      dto.Name,
		Label:     dto.Label,
		CanDelete: dto.CanDelete == nil || *dto.CanDelete,
		Show:      dto.Show == nil || *dto.Show,
	}
	r.byID[s.ID] = s
	return s, nil
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, dto *attribute.UpdateDTO) (*attribute.Setting, error) {
	r.updated = append(r.updated, dto)
	s := r.byID[id]
	if dto.Label != nil {
		s.Label = *dto.Label
	}
	return s, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*attribute.Setting, error) {
	r.seen(ctx, "FindByID")
	s, ok := r.byID[id]
	if !ok {
		return nil, serrors.NotFound("MemberAttributeSettings", id)
	}
	return s, nil
}

func (r *memoryRepo) FindByNames(ctx context.Context, names []string) ([]*attribute.Setting, error) {
	r.seen(ctx, "FindByNames")
	out := []*attribute.Setting{}
	for _, s := range r.byID {
		for _, n := range names {
			if s.Name == n {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (r *memoryRepo) Destroy(_ context.Context, id uuid.UUID, force bool) error {
	r.destroyed = append(r.destroyed, id)
	r.forced = append(r.forced, force)
	delete(r.byID, id)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func TestAttributeService_Create(t *testing.T) {
	t.Parallel()

	r := newMemoryRepo()
	svc := services.NewAttributeService(r, authz.AllowAll{}, txStub{}, services.PolicySilent)

	s, err := svc.Create(context.Background(), &attribute.CreateDTO{Type: attribute.TypeString, Label: "Job title"})
	require.NoError(t, err)
	assert.Equal(t, "jobTitle", s.Name)
	assert.True(t, s.CanDelete)
}

func TestAttributeService_CreatePredefined(t *testing.T) {
	t.Parallel()

	r := newMemoryRepo()
	svc := services.NewAttributeService(r, authz.AllowAll{}, txStub{}, services.PolicySilent)

	existing, err := svc.Create(context.Background(), &attribute.CreateDTO{Type: attribute.TypeString, Name: "sourceId", Label: "Custom"})
	require.NoError(t, err)

	list := append([]attribute.CreateDTO{}, attribute.DiscordAttributes...)
	list = append(list, attribute.CreateDTO{Type: attribute.TypeURL, Label: "Website"})
	out, err := svc.CreatePredefined(context.Background(), list)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, existing.ID, out[0].ID)
	assert.Equal(t, "Custom", out[0].Label)
	assert.Equal(t, "website", out[1].Name)
	assert.Len(t, r.byID, 2)
}

func TestAttributeService_Update(t *testing.T) {
	t.Parallel()

	r := newMemoryRepo()
	svc := services.NewAttributeService(r, authz.AllowAll{}, txStub{}, services.PolicySilent)
	s, err := svc.Create(context.Background(), &attribute.CreateDTO{Type: attribute.TypeString, Label: "Bio"})
	require.NoError(t, err)

	t.Run("Type_Change_Rejected", func(t *testing.T) {
		typ := attribute.TypeNumber
		_, err := svc.Update(context.Background(), s.ID, &attribute.UpdateDTO{Type: &typ})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
		assert.Contains(t, err.Error(), "type")
	})

	t.Run("CanDelete_Change_Rejected", func(t *testing.T) {
		_, err := svc.Update(context.Background(), s.ID, &attribute.UpdateDTO{CanDelete: boolPtr(false)})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("Same_Values_Allowed_And_Name_Dropped", func(t *testing.T) {
		typ := attribute.TypeString
		label, name := "Biography", "renamed"
		updated, err := svc.Update(context.Background(), s.ID, &attribute.UpdateDTO{
			Type:      &typ,
			CanDelete: boolPtr(true),
			Label:     &label,
			Name:      &name,
		})
		require.NoError(t, err)
		assert.Equal(t, "Biography", updated.Label)
		assert.Equal(t, "bio", updated.Name)
		assert.Nil(t, r.updated[len(r.updated)-1].Name)
	})
}

func TestAttributeService_DestroyAll(t *testing.T) {
	t.Parallel()

	setup := func(policy services.CanDeletePolicy) (*services.AttributeService, *memoryRepo, uuid.UUID, uuid.UUID) {
		r := newMemoryRepo()
		svc := services.NewAttributeService(r, authz.AllowAll{}, txStub{}, policy)
		open, err := svc.Create(context.Background(), &attribute.CreateDTO{Type: attribute.TypeString, Label: "Open"})
		require.NoError(t, err)
		locked, err := svc.Create(context.Background(), &attribute.CreateDTO{
			Type: attribute.TypeString, Label: "Locked", CanDelete: boolPtr(false),
		})
		require.NoError(t, err)
		return svc, r, open.ID, locked.ID
	}

	t.Run("Silent_Skips_Protected", func(t *testing.T) {
		svc, r, open, locked := setup(services.PolicySilent)
		require.NoError(t, svc.DestroyAll(context.Background(), []uuid.UUID{locked, open}))
		assert.Equal(t, []uuid.UUID{open}, r.destroyed)
		assert.Contains(t, r.byID, locked)
	})

	t.Run("Reject_Fails", func(t *testing.T) {
		svc, _, _, locked := setup(services.PolicyReject)
		err := svc.Destroy(context.Background(), locked)
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("Unknown_Policy_Is_Silent", func(t *testing.T) {
		svc, _, _, locked := setup("bogus")
		assert.NoError(t, svc.Destroy(context.Background(), locked))
	})

	t.Run("Missing_Is_NotFound", func(t *testing.T) {
		svc, _, _, _ := setup(services.PolicySilent)
		err := svc.Destroy(context.Background(), uuid.New())
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))
	})
}

func TestAttributeService_ReadsRunInTransaction(t *testing.T) {
	t.Parallel()

	r := newMemoryRepo()
	svc := services.NewAttributeService(r, authz.AllowAll{}, txStub{}, services.PolicySilent)
	ctx := context.Background()

	s, err := svc.Create(ctx, &attribute.CreateDTO{Type: attribute.TypeString, Label: "Title"})
	require.NoError(t, err)

	_, err = svc.FindByID(ctx, s.ID)
	require.NoError(t, err)
	_, err = svc.FindByNames(ctx, []string{"title"})
	require.NoError(t, err)
	_, _, err = svc.FindAndCountAll(ctx, &attribute.FindParams{})
	require.NoError(t, err)

	assert.Empty(t, r.outsideTx)
}

func TestAttributeService_DestroySoftDeletes(t *testing.T) {
	t.Parallel()

	r := newMemoryRepo()
	svc := services.NewAttributeService(r, authz.AllowAll{}, txStub{}, services.PolicySilent)
	ctx := context.Background()

	s, err := svc.Create(ctx, &attribute.CreateDTO{Type: attribute.TypeString, Label: "Title"})
	require.NoError(t, err)
	require.NoError(t, svc.Destroy(ctx, s.ID))
	assert.Equal(t, []uuid.UUID{s.ID}, r.destroyed)
	assert.Equal(t, []bool{false}, r.forced)
}
