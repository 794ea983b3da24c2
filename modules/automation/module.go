package automation

import (
	"github.com/crowd-dev/crowd-api/modules/automation/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/automation/presentation/controllers"
	"github.com/crowd-dev/crowd-api/modules/automation/services"
	corepersistence "github.com/crowd-dev/crowd-api/modules/core/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	c := app.Collaborators()
	app.RegisterServices(
		services.NewAutomationService(
			persistence.NewAutomationRepository(),
			corepersistence.NewTenantRepository(),
			c.Flags,
			c.Analytics,
			c.Authz,
			c.TxManager,
			services.FlagWait{Interval: c.FlagPollInterval, MaxAttempts: c.FlagMaxAttempts},
		),
	)
	app.RegisterControllers(
		controllers.NewAutomationController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "automation"
}
