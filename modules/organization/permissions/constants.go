package permissions

const (
	OrganizationCreate       = "organization.create"
	OrganizationEdit         = "organization.edit"
	OrganizationDestroy      = "organization.destroy"
	OrganizationRead         = "organization.read"
	OrganizationAutocomplete = "organization.autocomplete"
	OrganizationImport       = "organization.import"
)

var Permissions = []string{
	OrganizationCreate,
	OrganizationEdit,
	OrganizationDestroy,
	OrganizationRead,
	OrganizationAutocomplete,
	OrganizationImport,
}
