package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organization"
	"github.com/crowd-dev/crowd-api/modules/organization/domain/aggregates/organizationcache"
	"github.com/crowd-dev/crowd-api/pkg/composables"
	"github.com/crowd-dev/crowd-api/pkg/serrors"
)

func actorRef(ctx context.Context) *uuid.UUID {
	id := composables.UseUserID(ctx)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func notFound(id any) error {
	return serrors.NotFound("Organization", id).WithCause(organization.ErrNotFound)
}

func cacheNotFound(id uuid.UUID) error {
	return serrors.NotFound("OrganizationCache", id).WithCause(organizationcache.ErrNotFound)
}
