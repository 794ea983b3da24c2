package permissions

const (
	TenantRead = "tenant.read"
	TenantEdit = "tenant.edit"
)

var Permissions = []string{
	TenantRead,
	TenantEdit,
}
