package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/intl"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind serrors.Kind) int {
	switch kind {
	case serrors.KindNotFound:
		return http.StatusNotFound
	case serrors.KindValidation:
		return http.StatusBadRequest
	case serrors.KindConflict:
		return http.StatusConflict
	case serrors.KindForbidden:
		return http.StatusForbidden
	case serrors.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError renders err as an ErrorEnvelope, localizing domain
// errors. Internal errors are logged and never echoed to the client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	meta := map[string]string{}
	if id := composables.UseRequestID(ctx); id != "" {
		meta["request_id"] = id
	}

	var be *serrors.BaseError
	if !errors.As(err, &be) || be.Kind == serrors.KindInternal {
		composables.UseLogger(ctx).WithError(err).Error("request failed")
		_ = WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", meta)
		return
	}

	status := StatusFor(be.Kind)
	if status >= http.StatusInternalServerError {
		composables.UseLogger(ctx).WithError(err).WithFields(logrus.Fields{"code": be.Code}).Warn("upstream failure")
	}
	l, _ := intl.UseLocalizer(ctx)
	for k, v := range be.TemplateData {
		if _, exists := meta[k]; !exists && k != "subject" {
			meta[k] = v
		}
	}
	_ = WriteError(w, status, be.Code, be.Localize(l), meta)
}

// WriteValidationErrors renders per-field validation errors.
func WriteValidationErrors(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	meta := map[string]string{}
	if id := composables.UseRequestID(r.Context()); id != "" {
		meta["request_id"] = id
	}
	_ = WriteJSON(w, http.StatusBadRequest, map[string]any{
		"code":    "VALIDATION_FAILED",
		"message": "validation failed",
		"fields":  fields,
		"meta":    meta,
	})
}
