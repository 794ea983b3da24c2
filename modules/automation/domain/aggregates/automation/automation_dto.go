package automation

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/intl"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

type CreateDTO struct {
	Type     Type           `json:"type" validate:"required,oneof=webhook slack"`
	Trigger  Trigger        `json:"trigger" validate:"required,oneof=new_activity new_member"`
	Settings map[string]any `json:"settings"`
	State    State          `json:"state" validate:"omitempty,oneof=active disabled"`
}

type UpdateDTO struct {
	Trigger  *Trigger        `json:"trigger" validate:"omitempty,oneof=new_activity new_member"`
	Settings *map[string]any `json:"settings"`
	State    *State          `json:"state" validate:"omitempty,oneof=active disabled"`
}

func (d *CreateDTO) Ok(ctx context.Context) (map[string]string, bool) {
	if d.State == "" {
		d.State = StateActive
	}
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
	return serrors.LocalizeValidationErrors(serrors.ProcessValidatorErrors(validatorErrs, func(field string) string {
		return fmt.Sprintf("Automation.Fields.%s", field)
	}), l), false
}
