package member

import (
	"github.com/crowd-dev/crowd-api/modules/member/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/member/presentation/controllers"
	"github.com/crowd-dev/crowd-api/modules/member/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	c := app.Collaborators()
	app.RegisterServices(
		services.NewMemberService(persistence.NewMemberRepository(), c.Authz, c.TxManager, c.PopulateRelations),
	)
	app.RegisterControllers(
		controllers.NewMemberController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "member"
}
