package member

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("member not found")

// CrowdUsername is the username key every member carries. It defaults to
// the first platform handle when not supplied.
const CrowdUsername = "crowdUsername"

type Member struct {
	ID          uuid.UUID         `json:"id"`
	TenantID    uuid.UUID         `json:"tenantId"`
	Username    map[string]string `json:"username"`
	Info        map[string]any    `json:"info"`
	CrowdInfo   map[string]any    `json:"crowdInfo"`
	Type        *string           `json:"type"`
	Email       *string           `json:"email"`
	Score       *int              `json:"score"`
	Bio         *string           `json:"bio"`
	Location    *string           `json:"location"`
	Signals     *string           `json:"signals"`
	Reach       map[string]int    `json:"reach"`
	JoinedAt    time.Time         `json:"joinedAt"`
	ImportHash  *string           `json:"importHash,omitempty"`
	CreatedByID *uuid.UUID        `json:"createdById"`
	UpdatedByID *uuid.UUID        `json:"updatedById"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`

	Activities    []Activity        `json:"activities,omitempty"`
	Tags          []TagRef          `json:"tags"`
	Organizations []OrganizationRef `json:"organizations"`
	ToMerge       []uuid.UUID       `json:"toMerge"`
	NoMerge       []uuid.UUID       `json:"noMerge"`
}

// DisplayName is the crowd username, or any handle when that is missing.
func (m Member) DisplayName() string {
	if v, ok := m.Username[CrowdUsername]; ok {
		return v
	}
	for _, v := range m.Username {
		return v
	}
	return ""
}

type Activity struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
	Title     *string   `json:"title,omitempty"`
	Body      *string   `json:"body,omitempty"`
	URL       *string   `json:"url,omitempty"`
	Score     int       `json:"score"`
}

// TagRef and OrganizationRef are the light forms relations are hydrated
// into. Only ids are filled when relations are not populated.
type TagRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
}

type OrganizationRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`
	URL  *string   `json:"url,omitempty"`
}

// MergeSuggestion pairs a member with one it may be merged into.
type MergeSuggestion struct {
	Members [2]uuid.UUID `json:"members"`
}
