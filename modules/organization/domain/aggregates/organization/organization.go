package organization

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("organization not found")

type Organization struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenantId"`
	Name         string         `json:"name"`
	URL          *string        `json:"url"`
	Description  *string        `json:"description"`
	ParentURL    *string        `json:"parentUrl"`
	Emails       []string       `json:"emails"`
	PhoneNumbers []string       `json:"phoneNumbers"`
	Logo         *string        `json:"logo"`
	Tags         []string       `json:"tags"`
	Twitter      map[string]any `json:"twitter"`
	Linkedin     map[string]any `json:"linkedin"`
	Crunchbase   map[string]any `json:"crunchbase"`
	Employees    *int           `json:"employees"`
	RevenueRange map[string]any `json:"revenueRange"`
	ImportHash   *string        `json:"importHash"`
	CreatedByID  *uuid.UUID     `json:"createdById"`
	UpdatedByID  *uuid.UUID     `json:"updatedById"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`

	CommunityMemberCount int64       `json:"communityMemberCount"`
	Members              []uuid.UUID `json:"members"`
}
