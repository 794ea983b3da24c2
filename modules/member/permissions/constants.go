package permissions

const (
	MemberCreate       = "member.create"
	MemberEdit         = "member.edit"
	MemberDestroy      = "member.destroy"
	MemberRead         = "member.read"
	MemberAutocomplete = "member.autocomplete"
)

var Permissions = []string{
	MemberCreate,
	MemberEdit,
	MemberDestroy,
	MemberRead,
	MemberAutocomplete,
}
