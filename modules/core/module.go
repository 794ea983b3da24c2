package core

import (
	"github.com/crowd-dev/crowd-api/modules/core/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/core/presentation/controllers"
	"github.com/crowd-dev/crowd-api/modules/core/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	c := app.Collaborators()
	app.RegisterServices(
		services.NewTenantService(persistence.NewTenantRepository(), c.Authz, c.TxManager),
	)
	app.RegisterControllers(
		controllers.NewHealthController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}
