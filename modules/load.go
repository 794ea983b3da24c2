package modules

import (
	"github.com/crowd-dev/crowd-api/modules/automation"
	"github.com/crowd-dev/crowd-api/modules/core"
	"github.com/crowd-dev/crowd-api/modules/integration"
	"github.com/crowd-dev/crowd-api/modules/member"
	"github.com/crowd-dev/crowd-api/modules/organization"
	"github.com/crowd-dev/crowd-api/modules/settings"
	"github.com/crowd-dev/crowd-api/pkg/application"
)

// BuiltInModules in registration order. Organization resolves the member
// service, so member must come first.
func BuiltInModules() []application.Module {
	return []application.Module{
		core.NewModule(),
		member.NewModule(),
		organization.NewModule(),
		settings.NewModule(),
		automation.NewModule(),
		integration.NewModule(),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.LoadModules(app, append(BuiltInModules(), externalModules...)...)
}
