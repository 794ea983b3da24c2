package permissions

const (
	MemberAttributesCreate  = "memberAttributeSettings.create"
	MemberAttributesEdit    = "memberAttributeSettings.edit"
	MemberAttributesDestroy = "memberAttributeSettings.destroy"
	MemberAttributesRead    = "memberAttributeSettings.read"
)

var Permissions = []string{
	MemberAttributesCreate,
	MemberAttributesEdit,
	MemberAttributesDestroy,
	MemberAttributesRead,
}
