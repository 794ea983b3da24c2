package attribute

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/intl"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type CreateDTO struct {
	Type      Type     `json:"type" validate:"required,oneof=boolean number email string url date multiselect special"`
	Name      string   `json:"name" validate:"omitempty,max=255"`
	Label     string   `json:"label" validate:"required,max=255"`
	CanDelete *bool    `json:"canDelete"`
	Show      *bool    `json:"show"`
	Options   []string `json:"options"`
}

// UpdateDTO carries Name and the immutable fields only so the service can
// reject or drop them.
type UpdateDTO struct {
	Type      *Type     `json:"type" validate:"omitempty,oneof=boolean number email string url date multiselect special"`
	Name      *string   `json:"name"`
	Label     *string   `json:"label" validate:"omitempty,min=1,max=255"`
	CanDelete *bool     `json:"canDelete"`
	Show      *bool     `json:"show"`
	Options   *[]string `json:"options"`
}

// Normalize derives the name from the label when none was given.
func (d *CreateDTO) Normalize() {
	d.Label = strings.TrimSpace(d.Label)
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		d.Name = CamelCase(d.Label)
	}
}

func (d *CreateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	d.Normalize()
	return validate(ctx, d)
}

func (d *UpdateDTO) Ok(ctx context.Context) (map[string]string, bool) {
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
		return fmt.Sprintf("MemberAttributeSettings.Fields.%s", field)
	}
	return serrors.LocalizeValidationErrors(serrors.ProcessValidatorErrors(validatorErrs, fieldKey), l), false
}
