package permissions

const (
	IntegrationCreate  = "integration.create"
	IntegrationDestroy = "integration.destroy"
	IntegrationRead    = "integration.read"
)

var Permissions = []string{
	IntegrationCreate,
	IntegrationDestroy,
	IntegrationRead,
}
