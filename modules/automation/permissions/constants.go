package permissions

const (
	AutomationCreate  = "automation.create"
	AutomationEdit    = "automation.edit"
	AutomationDestroy = "automation.destroy"
	AutomationRead    = "automation.read"
)

var Permissions = []string{
	AutomationCreate,
	AutomationEdit,
	AutomationDestroy,
	AutomationRead,
}
