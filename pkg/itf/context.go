package itf

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"

	"github.com/crowd-dev/crowd-api/pkg/application"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/configuration"
	"github.com/crowd-dev/crowd-api/pkg/intl"
)

// TestContext provides a fluent API for building test contexts
type TestContext struct {
	ctx       context.Context
	modules   []application.Module
	collab    application.Collaborators
	principal *composables.Principal
	plan      string
	dbName    string
}

func NewTestContext() *TestContext {
	return &TestContext{ctx: context.Background()}
}

// WithModules loads modules into the test application
func (tc *TestContext) WithModules(modules ...application.Module) *TestContext {
	tc.modules = append(tc.modules, modules...)
	return tc
}

// WithCollaborators overrides the external services handed to modules.
func (tc *TestContext) WithCollaborators(c application.Collaborators) *TestContext {
	tc.collab = c
	return tc
}

// WithPrincipal sets the acting user; its tenant is overwritten with the
// test tenant.
func (tc *TestContext) WithPrincipal(p *composables.Principal) *TestContext {
	tc.principal = p
	return tc
}

// WithPlan sets the plan of the test tenant.
func (tc *TestContext) WithPlan(plan string) *TestContext {
	tc.plan = plan
	return tc
}

func (tc *TestContext) WithDBName(name string) *TestContext {
	tc.dbName = name
	return tc
}

// Build creates a fresh database, migrates it, creates a tenant and opens a
// transaction that is rolled back on cleanup. Tests are skipped when
// Postgres is not reachable.
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()
	CanDialPostgres(tb)

	if tc.dbName == "" {
		tc.dbName = tb.Name()
	}
	if err := CreateDB(tc.ctx, tc.dbName); err != nil {
		tb.Fatal(err)
	}
	pool := NewPool(DbOpts(tc.dbName))
	if err := Migrate(tc.ctx, pool); err != nil {
		pool.Close()
		tb.Fatal(err)
	}

	app, err := SetupApplication(pool, tc.collab, tc.modules...)
	if err != nil {
		pool.Close()
		tb.Fatal(err)
	}

	tenant, err := CreateTestTenant(tc.ctx, pool, tc.plan)
	if err != nil {
		pool.Close()
		tb.Fatal(err)
	}

	tx, err := pool.Begin(tc.ctx)
	if err != nil {
		pool.Close()
		tb.Fatal(err)
	}

	principal := tc.principal
	if principal == nil {
		principal = &composables.Principal{UserID: uuid.New(), Roles: []string{"admin"}}
	}
	principal.TenantID = tenant.ID

	ctx := tc.ctx
	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithTx(ctx, tx)
	ctx = composables.WithTenantID(ctx, tenant.ID)
	ctx = composables.WithPrincipal(ctx, principal)
	ctx = composables.WithParams(ctx, DefaultParams())
	ctx = intl.WithLocale(ctx, language.English)

	tb.Cleanup(func() {
		if err := tx.Rollback(context.Background()); err != nil && err != pgx.ErrTxClosed {
			tb.Logf("Warning: failed to rollback transaction: %v", err)
		}
		pool.Close()
		if err := DropDB(context.Background(), tc.dbName); err != nil {
			tb.Logf("Warning: failed to drop database: %v", err)
		}
	})

	return &TestEnvironment{
		Ctx:       ctx,
		Pool:      pool,
		Tx:        tx,
		App:       app,
		Tenant:    tenant,
		Principal: principal,
	}
}

// Setup is shorthand for NewTestContext().WithModules(mods...).Build(tb).
func Setup(tb testing.TB, mods ...application.Module) *TestEnvironment {
	tb.Helper()
	return NewTestContext().WithModules(mods...).Build(tb)
}

// TestEnvironment contains all test dependencies
type TestEnvironment struct {
	Ctx       context.Context
	Pool      *pgxpool.Pool
	Tx        pgx.Tx
	App       application.Application
	Tenant    *composables.Tenant
	Principal *composables.Principal
}

// GetService is a generic helper that retrieves and casts a service
func GetService[T any](te *TestEnvironment) *T {
	var zero T
	service := te.App.Service(zero)
	if service == nil {
		return nil
	}
	return service.(*T)
}

func (te *TestEnvironment) TenantID() uuid.UUID {
	return te.Tenant.ID
}

// ForTenant returns a context for a second tenant sharing the same
// transaction.
func (te *TestEnvironment) ForTenant(tb testing.TB, plan string) (context.Context, *composables.Tenant) {
	tb.Helper()
	tenant, err := CreateTestTenant(te.Ctx, te.Tx, plan)
	if err != nil {
		tb.Fatal(err)
	}
	p := *te.Principal
	p.TenantID = tenant.ID
	ctx := composables.WithTenantID(te.Ctx, tenant.ID)
	ctx = composables.WithPrincipal(ctx, &p)
	return ctx, tenant
}

func SetupApplication(pool *pgxpool.Pool, collab application.Collaborators, mods ...application.Module) (application.Application, error) {
	conf := configuration.Use()
	bundle, err := intl.LoadBundle()
	if err != nil {
		return nil, err
	}
	app := application.New(&application.ApplicationOptions{
		Pool:   pool,
		Bundle: bundle,
		Logger: conf.Logger(),

		Collaborators: collab,
	})
	if err := application.LoadModules(app, mods...); err != nil {
		return nil, err
	}
	return app, nil
}
