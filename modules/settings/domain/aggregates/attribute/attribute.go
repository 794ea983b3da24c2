package attribute

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrNotFound = errors.New("member attribute setting not found")

type Type string

const (
	TypeBoolean     Type = "boolean"
	TypeNumber      Type = "number"
	TypeEmail       Type = "email"
	TypeString      Type = "string"
	TypeURL         Type = "url"
	TypeDate        Type = "date"
	TypeMultiSelect Type = "multiselect"
	TypeSpecial     Type = "special"
)

// Setting declares a custom member attribute for a tenant. Type and
// CanDelete are fixed at creation.
type Setting struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Type        Type       `json:"type"`
	Name        string     `json:"name"`
	Label       string     `json:"label"`
	CanDelete   bool       `json:"canDelete"`
	Show        bool       `json:"show"`
	Options     []string   `json:"options"`
	CreatedByID *uuid.UUID `json:"createdById"`
	UpdatedByID *uuid.UUID `json:"updatedById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

var titler = cases.Title(language.Und)

// CamelCase turns a label such as "Job title" into "jobTitle".
func CamelCase(label string) string {
	words := strings.FieldsFunc(label, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(strings.ToLower(w))
			continue
		}
		b.WriteString(titler.String(w))
	}
	return b.String()
}
