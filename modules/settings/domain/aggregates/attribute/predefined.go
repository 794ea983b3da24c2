package attribute

func boolPtr(b bool) *bool { return &b }

// Attributes every Discord integration writes on members.
var DiscordAttributes = []CreateDTO{
	{
		Type:      TypeString,
		Name:      "sourceId",
		Label:     "Source ID",
		CanDelete: boolPtr(false),
		Show:      boolPtr(false),
	},
}

// Predefined maps an integration platform to the attributes it needs.
var Predefined = map[string][]CreateDTO{
	"discord": DiscordAttributes,
}
