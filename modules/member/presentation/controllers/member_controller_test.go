package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowd-dev/crowd-api/modules/member/domain/aggregates/member"
	"github.com/crowd-dev/crowd-api/modules/member/presentation/controllers"
	"github.com/crowd-dev/crowd-api/modules/member/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/authz"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
	"github.com/crowd-dev/crowd-api/pkg/token"
)

type passThroughTx struct{}

func (passThroughTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type memoryRepo struct {
	member.Repository
	members  map[uuid.UUID]*member.Member
	lastFind *member.FindParams
	noMerge  map[uuid.UUID][]uuid.UUID
}

func (r *memoryRepo) Create(_ context.Context, dto *member.CreateDTO) (*member.Member, error) {
	m := &member.Member{ID: uuid.New(), Username: member.NormalizeUsername(dto.Username)}
	r.members[m.ID] = m
	return m, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id uuid.UUID, _ bool) (*member.Member, error) {
	m, ok := r.members[id]
	if !ok {
		return nil, serrors.NotFound("Member", id).WithCause(member.ErrNotFound)
	}
	return m, nil
}

func (r *memoryRepo) FindAndCountAll(_ context.Context, params *member.FindParams) ([]*member.Member, int64, error) {
	r.lastFind = params
	out := make([]*member.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *memoryRepo) FilterIDsInTenant(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{}
	for _, id := range ids {
		if _, ok := r.members[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *memoryRepo) AddNoMerge(_ context.Context, id uuid.UUID, others ...uuid.UUID) error {
	if _, ok := r.members[id]; !ok {
		return serrors.NotFound("Member", id)
	}
	r.noMerge[id] = append(r.noMerge[id], others...)
	return nil
}

type fixture struct {
	router   *mux.Router
	repo     *memoryRepo
	tenantID uuid.UUID
	bearer   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer := token.NewSigner("controller-test")
	app := application.New(&application.ApplicationOptions{
		Collaborators: application.Collaborators{Tokens: signer, PageSize: 20, MaxPageSize: 50},
	})
	r := &memoryRepo{members: map[uuid.UUID]*member.Member{}, noMerge: map[uuid.UUID][]uuid.UUID{}}
	app.RegisterServices(services.NewMemberService(r, authz.AllowAll{}, passThroughTx{}, true))

	router := mux.NewRouter()
	controllers.NewMemberController(app).Register(router)

	tenantID := uuid.New()
	raw, err := signer.Sign(&token.APIClaims{TenantID: tenantID, UserID: uuid.New(), Roles: []string{"admin"}}, time.Hour)
	require.NoError(t, err)
	return &fixture{router: router, repo: r, tenantID: tenantID, bearer: raw}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	url := "/api/tenant/" + f.tenantID.String() + "/member" + path
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	req.Header.Set("Authorization", "Bearer "+f.bearer)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestMemberController(t *testing.T) {
	t.Parallel()

	t.Run("Create_Returns_201", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodPost, "", `{"username":{"github":"  octo "}}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var got member.Member
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, "octo", got.Username["github"])
		assert.Equal(t, "octo", got.Username[member.CrowdUsername])
	})

	t.Run("Create_Without_Username_Is_400", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodPost, "", `{"email":"a@b.co"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
		assert.Empty(t, f.repo.members)
	})

	t.Run("Malformed_Body_Is_400", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodPost, "", `{"username":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("List_Passes_Filter_And_Caps_Limit", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodGet, `?filter={"email":"crowd"}&limit=500&offset=5&orderBy=score_DESC`, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NotNil(t, f.repo.lastFind)
		assert.Equal(t, "crowd", f.repo.lastFind.Filter["email"])
		assert.Equal(t, 50, f.repo.lastFind.Limit)
		assert.Equal(t, 5, f.repo.lastFind.Offset)
		assert.Equal(t, "score_DESC", f.repo.lastFind.OrderBy)

		var page struct {
			Rows  []json.RawMessage `json:"rows"`
			Count int64             `json:"count"`
			Limit int               `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		assert.Equal(t, int64(0), page.Count)
		assert.Equal(t, 50, page.Limit)
	})

	t.Run("Unknown_ID_Is_404", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodGet, "/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Malformed_ID_Is_400", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(http.MethodGet, "/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NoMerge_Drops_Foreign_IDs", func(t *testing.T) {
		f := newFixture(t)
		a := &member.Member{ID: uuid.New()}
		b := &member.Member{ID: uuid.New()}
		f.repo.members[a.ID], f.repo.members[b.ID] = a, b

		body := `{"ids":["` + b.ID.String() + `","` + uuid.NewString() + `"]}`
		w := f.do(http.MethodPut, "/"+a.ID.String()+"/no-merge", body)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
		assert.Equal(t, []uuid.UUID{b.ID}, f.repo.noMerge[a.ID])
	})

	t.Run("Other_Tenant_Is_403", func(t *testing.T) {
		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/api/tenant/"+uuid.NewString()+"/member", nil)
		req.Header.Set("Authorization", "Bearer "+f.bearer)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
