package authz

import (
	"fmt"

	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

const errorCodeForbidden = "permissionDenied"

func forbiddenError(req Request) *serrors.BaseError {
	return serrors.Forbidden(errorCodeForbidden, "permission denied").WithTemplateData(map[string]string{
		"object":  req.Object,
		"action":  req.Action,
		"domain":  req.Domain,
		"subject": req.Subject,
	})
}

// configError standardizes configuration validation errors.
func configError(msg string, args ...any) error {
	return fmt.Errorf("authz: "+msg, args...)
}
