package organization

import (
	memberservices "github.com/crowd-dev/crowd-api/modules/member/services"
	"github.com/crowd-dev/crowd-api/modules/organization/infrastructure/persistence"
	"github.com/crowd-dev/crowd-api/modules/organization/presentation/controllers"
	"github.com/crowd-dev/crowd-api/modules/organization/services"
	"github.com/crowd-dev/crowd-api/pkg/application"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

// Register must run after the member module, whose service scopes member
// references.
func (m *Module) Register(app application.Application) error {
	c := app.Collaborators()
	members := app.Service(memberservices.MemberService{}).(*memberservices.MemberService)
	app.RegisterServices(
		services.NewOrganizationService(
			persistence.NewOrganizationRepository(),
			persistence.NewOrganizationCacheRepository(),
			members,
			c.Enrichment,
			c.Analytics,
			c.Authz,
			c.TxManager,
		),
	)
	app.RegisterControllers(
		controllers.NewOrganizationController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "organization"
}
