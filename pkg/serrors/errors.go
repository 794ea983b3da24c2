package serrors

import (
	"errors"
	"fmt"

	"github.com/iota-uz/go-i18n/v2/i18n"
)

// Kind classifies a domain error for transport mapping.
type Kind string

const (
	KindInternal   Kind = "internal"
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindUpstream   Kind = "upstream"
)

// BaseError is the error type surfaced by services. Code is a stable machine
// identifier and LocaleKey resolves to a user-facing message.
type BaseError struct {
	Kind         Kind
	Code         string
	Message      string
	LocaleKey    string
	TemplateData map[string]string
	cause        error
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Kind:      KindInternal,
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BaseError) Unwrap() error {
	return e.cause
}

func (e *BaseError) WithKind(kind Kind) *BaseError {
	e.Kind = kind
	return e
}

func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	e.TemplateData = data
	return e
}

func (e *BaseError) WithCause(err error) *BaseError {
	e.cause = err
	return e
}

// Localize renders the error using the localizer, falling back to Message.
func (e *BaseError) Localize(l *i18n.Localizer) string {
	if l == nil || e.LocaleKey == "" {
		return e.Message
	}
	data := make(map[string]interface{}, len(e.TemplateData))
	for k, v := range e.TemplateData {
		data[k] = v
	}
	// Field may carry a locale key for the field label.
	if field, ok := e.TemplateData["Field"]; ok {
		if label, err := l.Localize(&i18n.LocalizeConfig{MessageID: field}); err == nil && label != "" {
			data["Field"] = label
		}
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    e.LocaleKey,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		return e.Message
	}
	return msg
}

// KindOf returns the kind of the first BaseError in the chain.
func KindOf(err error) Kind {
	var be *BaseError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func NotFound(entity string, id any) *BaseError {
	return NewError(
		"NOT_FOUND",
		fmt.Sprintf("%s %v not found", entity, id),
		"Errors.NotFound",
	).WithKind(KindNotFound).WithTemplateData(map[string]string{
		"Entity": entity,
		"ID":     fmt.Sprint(id),
	})
}

func Validation(code, message string) *BaseError {
	return NewError(code, message, "Errors.Validation."+code).WithKind(KindValidation)
}

func Conflict(entity, field string) *BaseError {
	return NewError(
		"ALREADY_EXISTS",
		fmt.Sprintf("%s with this %s already exists", entity, field),
		fmt.Sprintf("Errors.%s.AlreadyExists", entity),
	).WithKind(KindConflict).WithTemplateData(map[string]string{
		"Entity": entity,
		"Field":  field,
	})
}

func Forbidden(code, message string) *BaseError {
	return NewError(code, message, "Errors.Forbidden."+code).WithKind(KindForbidden)
}

func Upstream(provider string, err error) *BaseError {
	return NewError(
		"UPSTREAM_FAILURE",
		fmt.Sprintf("%s request failed", provider),
		"Errors.Upstream",
	).WithKind(KindUpstream).WithTemplateData(map[string]string{
		"Provider": provider,
	}).WithCause(err)
}
