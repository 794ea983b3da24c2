package application

import (
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct{ name string }

type fakeController struct{ key string }

func (c *fakeController) Register(*mux.Router) {}
func (c *fakeController) Key() string          { return c.key }

func TestServiceRegistry(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	app.RegisterServices(&fakeService{name: "members"})

	svc := app.Service(fakeService{}).(*fakeService)
	assert.Equal(t, "members", svc.name)
	assert.Panics(t, func() { app.Service(struct{}{}) })
}

func TestControllersAreOrderedByKey(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	app.RegisterControllers(&fakeController{"/b"}, &fakeController{"/a"}, &fakeController{"/a"})

	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	assert.Equal(t, "/a", controllers[0].Key())
	assert.Equal(t, "/b", controllers[1].Key())
}

func TestCollaboratorDefaults(t *testing.T) {
	t.Parallel()

	c := New(&ApplicationOptions{}).Collaborators()
	assert.NotNil(t, c.Authz)
	assert.NotNil(t, c.Analytics)
	assert.NotNil(t, c.Flags)
	assert.NotNil(t, c.Enrichment)
	assert.NotNil(t, c.TxManager)
	assert.Equal(t, "silent", c.CanDeletePolicy)
	assert.Equal(t, 10, c.FlagMaxAttempts)
}
