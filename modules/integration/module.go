package integration

import (
	"github.com/crowd-dev/crowd-api/modules/integration/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/integration/presentation/controllers"
	"github.com/crowd-dev/crowd-api/modules/integration/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	c := app.Collaborators()
	app.RegisterServices(
		services.NewIntegrationService(persistence.NewIntegrationRepository(), c.Analytics, c.Authz, c.TxManager),
	)
	app.RegisterControllers(
		controllers.NewIntegrationController(app),
		controllers.NewOAuthCallbackController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "integration"
}
