package organization

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/enrichment"
	"github.com/crowd-dev/crowd-api/pkg/intl"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type CreateDTO struct {
	Name         string         `json:"name" validate:"omitempty,max=255"`
	URL          *string        `json:"url" validate:"omitempty,max=1024"`
	Description  *string        `json:"description"`
	ParentURL    *string        `json:"parentUrl"`
	Emails       []string       `json:"emails" validate:"omitempty,dive,email"`
	PhoneNumbers []string       `json:"phoneNumbers"`
	Logo         *string        `json:"logo"`
	Tags         []string       `json:"tags"`
	Twitter      map[string]any `json:"twitter"`
	Linkedin     map[string]any `json:"linkedin"`
	Crunchbase   map[string]any `json:"crunchbase"`
	Employees    *int           `json:"employees" validate:"omitempty,min=0"`
	RevenueRange map[string]any `json:"revenueRange"`
	ImportHash   *string        `json:"importHash" validate:"omitempty,max=255"`

	Members []uuid.UUID `json:"members"`
}

// UpdateDTO changes only the fields that are set. Members replace the
// stored links when non-nil.
type UpdateDTO struct {
	Name         *string        `json:"name" validate:"omitempty,min=1,max=255"`
	URL          *string        `json:"url" validate:"omitempty,max=1024"`
	Description  *string        `json:"description"`
	ParentURL    *string        `json:"parentUrl"`
	Emails       []string       `json:"emails" validate:"omitempty,dive,email"`
	PhoneNumbers []string       `json:"phoneNumbers"`
	Logo         *string        `json:"logo"`
	Tags         []string       `json:"tags"`
	Twitter      map[string]any `json:"twitter"`
	Linkedin     map[string]any `json:"linkedin"`
	Crunchbase   map[string]any `json:"crunchbase"`
	Employees    *int           `json:"employees" validate:"omitempty,min=0"`
	RevenueRange map[string]any `json:"revenueRange"`
	ImportHash   *string        `json:"importHash" validate:"omitempty,max=255"`

	Members *[]uuid.UUID `json:"members"`
}

func (d *CreateDTO) HasURL() bool {
	return d.URL != nil && strings.TrimSpace(*d.URL) != ""
}

// MergeEnrichment copies enriched attributes into fields the caller left
// empty. Supplied values always win.
func (d *CreateDTO) MergeEnrichment(m *enrichment.OrganizationMetadata) {
	if m == nil {
		return
	}
	if d.Name == "" {
		d.Name = m.Name
	}
	if !d.HasURL() && m.URL != "" {
		d.URL = strPtr(m.URL)
	}
	if d.Description == nil && m.Description != "" {
		d.Description = strPtr(m.Description)
	}
	if d.ParentURL == nil && m.ParentURL != "" {
		d.ParentURL = strPtr(m.ParentURL)
	}
	if d.Emails == nil {
		d.Emails = m.Emails
	}
	if d.PhoneNumbers == nil {
		d.PhoneNumbers = m.PhoneNumbers
	}
	if d.Logo == nil && m.Logo != "" {
		d.Logo = strPtr(m.Logo)
	}
	if d.Tags == nil {
		d.Tags = m.Tags
	}
	if d.Twitter == nil {
		d.Twitter = m.Twitter
	}
	if d.Linkedin == nil {
		d.Linkedin = m.Linkedin
	}
	if d.Crunchbase == nil {
		d.Crunchbase = m.Crunchbase
	}
	if d.Employees == nil {
		d.Employees = m.Employees
	}
	if d.RevenueRange == nil {
		d.RevenueRange = m.RevenueRange
	}
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	if d.URL != nil {
		d.URL = strPtr(strings.TrimSpace(*d.URL))
	}
}

func (d *UpdateDTO) Normalize() {
	if d.Name != nil {
		d.Name = strPtr(strings.TrimSpace(*d.Name))
	}
	if d.URL != nil {
		d.URL = strPtr(strings.TrimSpace(*d.URL))
	}
}

func (d *CreateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validate(ctx, d)
}

func (d *UpdateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validate(ctx, d)
}

func validate(ctx context.Context, dto any) (map[string]string, bool) {
	errs := constants.Validate.Struct(dto)
	if errs == nil {
		return map[string]string{}, true
	}
	validatorErrs, ok := errs.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": errs.Error()}, false
	}
	l, _ := intl.UseLocalizer(ctx)
	fieldKey := func(field string) string {
		return fmt.Sprintf("Organization.Fields.%s", field)
	}
	return serrors.LocalizeValidationErrors(serrors.ProcessValidatorErrors(validatorErrs, fieldKey), l), false
}

func strPtr(s string) *string {
	return &s
}
