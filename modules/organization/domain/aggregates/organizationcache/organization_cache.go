// Package organizationcache holds enriched company data shared by every
// tenant, keyed by url.
package organizationcache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/pkg/enrichment"
)

var ErrNotFound = errors.New("organization cache entry not found")

type Entry struct {
	ID           uuid.UUID      `json:"id"`
	Name         *string        `json:"name"`
	URL          string         `json:"url"`
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
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// FromMetadata builds a cache entry for url from provider output.
func FromMetadata(url string, m *enrichment.OrganizationMetadata) *Entry {
	e := &Entry{
		URL:          url,
		Emails:       m.Emails,
		PhoneNumbers: m.PhoneNumbers,
		Tags:         m.Tags,
		Twitter:      m.Twitter,
		Linkedin:     m.Linkedin,
		Crunchbase:   m.Crunchbase,
		Employees:    m.Employees,
		RevenueRange: m.RevenueRange,
	}
	e.Name = optional(m.Name)
	e.Description = optional(m.Description)
	e.ParentURL = optional(m.ParentURL)
	e.Logo = optional(m.Logo)
	return e
}

// Metadata converts the entry back to the provider shape so cached and
// fresh results merge the same way.
func (e *Entry) Metadata() *enrichment.OrganizationMetadata {
	return &enrichment.OrganizationMetadata{
		Name:         deref(e.Name),
		URL:          e.URL,
		Description:  deref(e.Description),
		ParentURL:    deref(e.ParentURL),
		Emails:       e.Emails,
		PhoneNumbers: e.PhoneNumbers,
		Logo:         deref(e.Logo),
		Tags:         e.Tags,
		Twitter:      e.Twitter,
		Linkedin:     e.Linkedin,
		Crunchbase:   e.Crunchbase,
		Employees:    e.Employees,
		RevenueRange: e.RevenueRange,
	}
}

// Repository is not tenant scoped.
type Repository interface {
	Create(ctx context.Context, e *Entry) (*Entry, error)
	Update(ctx context.Context, id uuid.UUID, e *Entry) (*Entry, error)
	Destroy(ctx context.Context, id uuid.UUID, force bool) error
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	// FindByURL returns nil, nil when no entry exists.
	FindByURL(ctx context.Context, url string) (*Entry, error)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
