package serrors

import (
	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/go-i18n/v2/i18n"
)

// ValidationErrors maps a field name to its validation error.
type ValidationErrors map[string]*BaseError

func NewFieldRequiredError(field, fieldLocaleKey string) *BaseError {
	return NewError(
		"FIELD_REQUIRED",
		field+" is required",
		"ValidationErrors.FIELD_REQUIRED",
	).WithKind(KindValidation).WithTemplateData(map[string]string{
		"Field": fieldLocaleKey,
	})
}

// ProcessValidatorErrors converts validator output into field errors. The
// callback maps a struct field to its locale key; an empty key keeps the
// raw field name.
func ProcessValidatorErrors(errs validator.ValidationErrors, fieldLocaleKey func(string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		key := fieldLocaleKey(fe.Field())
		if key == "" {
			key = fe.Field()
		}
		if fe.Tag() == "required" {
			out[fe.Field()] = NewFieldRequiredError(fe.Field(), key)
			continue
		}
		out[fe.Field()] = NewError(
			"FIELD_INVALID",
			fe.Field()+" failed "+fe.Tag(),
			"ValidationErrors."+fe.Tag(),
		).WithKind(KindValidation).WithTemplateData(map[string]string{
			"Field": key,
			"Param": fe.Param(),
		})
	}
	return out
}

func LocalizeValidationErrors(errs ValidationErrors, l *i18n.Localizer) map[string]string {
	out := make(map[string]string, len(errs))
	for field, err := range errs {
		out[field] = err.Localize(l)
	}
	return out
}
