package settings

import (
	"github.com/crowd-dev/crowd-api/modules/settings/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/settings/presentation/controllers"
	"github.com/crowd-dev/crowd-api/modules/settings/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	c := app.Collaborators()
	app.RegisterServices(
		services.NewAttributeService(
			persistence.NewAttributeRepository(),
			c.Authz,
			c.TxManager,
			services.CanDeletePolicy(c.CanDeletePolicy),
		),
	)
	app.RegisterControllers(
		controllers.NewAttributeController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "settings"
}
